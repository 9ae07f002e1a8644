package basic

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultTokenCacheSize is used when no size is configured.
const DefaultTokenCacheSize = 512

// TokenCache memoizes line tokenization. Programs re-run the same lines
// constantly, so the cache pays for itself in tight loops and on reload.
// Cached token slices are shared; tokens are never mutated after scanning.
type TokenCache struct {
	cache  *lru.Cache[string, []Token]
	hits   int64
	misses int64
}

// NewTokenCache creates a bounded token cache.
func NewTokenCache(size int) *TokenCache {
	if size <= 0 {
		size = DefaultTokenCacheSize
	}
	cache, err := lru.New[string, []Token](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &TokenCache{cache: cache}
}

// Tokenize scans the line, serving repeated lines from the cache. Lex
// errors are not cached.
func (c *TokenCache) Tokenize(line string) ([]Token, error) {
	if tokens, ok := c.cache.Get(line); ok {
		atomic.AddInt64(&c.hits, 1)
		return tokens, nil
	}
	atomic.AddInt64(&c.misses, 1)

	tokens, err := Tokenize(line)
	if err != nil {
		return nil, err
	}
	c.cache.Add(line, tokens)
	return tokens, nil
}

// Stats returns the hit and miss counters.
func (c *TokenCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Purge empties the cache.
func (c *TokenCache) Purge() {
	c.cache.Purge()
}
