package basic

import (
	"errors"
	"testing"
)

// TestTokenCache checks hit accounting and that cached results match a
// fresh scan.
func TestTokenCache(t *testing.T) {
	c := NewTokenCache(8)

	const line = "10 PRINT A + 1"
	first, err := c.Tokenize(line)
	if err != nil {
		t.Fatalf("Tokenize failed: %v", err)
	}
	second, err := c.Tokenize(line)
	if err != nil {
		t.Fatalf("cached Tokenize failed: %v", err)
	}

	fresh, _ := Tokenize(line)
	if len(second) != len(fresh) {
		t.Fatalf("cached scan has %d tokens, fresh scan %d", len(second), len(fresh))
	}
	for i := range fresh {
		if second[i] != fresh[i] {
			t.Errorf("token %d differs: cached %v, fresh %v", i, second[i], fresh[i])
		}
	}
	if &first[0] != &second[0] {
		t.Errorf("second lookup did not reuse the cached slice")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = (%d, %d), want (1, 1)", hits, misses)
	}
}

// TestTokenCacheErrorsNotCached checks that failing lines are rescanned.
func TestTokenCacheErrorsNotCached(t *testing.T) {
	c := NewTokenCache(8)
	for i := 0; i < 2; i++ {
		if _, err := c.Tokenize(`PRINT "BAD`); !errors.Is(err, ErrUnterminatedString) {
			t.Fatalf("attempt %d: got %v, want ErrUnterminatedString", i, err)
		}
	}
	if hits, _ := c.Stats(); hits != 0 {
		t.Errorf("error line must never hit the cache, got %d hits", hits)
	}
}
