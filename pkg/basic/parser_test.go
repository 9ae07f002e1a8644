package basic

import (
	"errors"
	"testing"
)

func parseSource(t *testing.T, source string) *Line {
	t.Helper()
	tokens, err := Tokenize(source)
	if err != nil {
		t.Fatalf("Tokenize(%q) failed: %v", source, err)
	}
	line, err := ParseLine(source, tokens)
	if err != nil {
		t.Fatalf("ParseLine(%q) failed: %v", source, err)
	}
	return line
}

// TestParseLineNumbering checks the stored-versus-immediate split.
func TestParseLineNumbering(t *testing.T) {
	line := parseSource(t, "10 PRINT A")
	if line.Number != 10 {
		t.Errorf("got line number %d, want 10", line.Number)
	}
	if _, ok := line.Stmt.(*PrintStmt); !ok {
		t.Errorf("got %T, want *PrintStmt", line.Stmt)
	}

	line = parseSource(t, "PRINT A")
	if line.Number != 0 {
		t.Errorf("immediate line: got number %d, want 0", line.Number)
	}

	// A bare line number is a deletion request.
	line = parseSource(t, "20")
	if line.Number != 20 || line.Stmt != nil {
		t.Errorf("bare number: got (%d, %T), want (20, nil)", line.Number, line.Stmt)
	}
}

// TestParseStatements checks statement shapes.
func TestParseStatements(t *testing.T) {
	line := parseSource(t, `10 PRINT "X IS ", X, ""`)
	ps := line.Stmt.(*PrintStmt)
	if len(ps.Items) != 3 {
		t.Fatalf("got %d print items, want 3", len(ps.Items))
	}
	if ps.Items[0].Expr != nil || ps.Items[0].Text != "X IS " {
		t.Errorf("item 0: want text %q", "X IS ")
	}
	if ps.Items[1].Expr == nil {
		t.Errorf("item 1: want an expression item")
	}

	line = parseSource(t, "20 IF A <> B THEN GOTO 50")
	ifs := line.Stmt.(*IfStmt)
	if ifs.Rel != RelNe {
		t.Errorf("got relation %v, want RelNe", ifs.Rel)
	}
	if _, ok := ifs.Then.(*GotoStmt); !ok {
		t.Errorf("got THEN statement %T, want *GotoStmt", ifs.Then)
	}

	line = parseSource(t, "30 INPUT A, B, C")
	is := line.Stmt.(*InputStmt)
	if string(is.Vars) != "ABC" {
		t.Errorf("got vars %q, want ABC", is.Vars)
	}

	line = parseSource(t, "40 LET Z = -X + 1")
	ls := line.Stmt.(*LetStmt)
	if ls.Var != 'Z' {
		t.Errorf("got var %c, want Z", ls.Var)
	}

	line = parseSource(t, "50 GOSUB 100 + N")
	if _, ok := line.Stmt.(*GosubStmt); !ok {
		t.Errorf("got %T, want *GosubStmt", line.Stmt)
	}

	line = parseSource(t, `LOAD "DEMO"`)
	if st, ok := line.Stmt.(*LoadStmt); !ok || st.Name != "DEMO" {
		t.Errorf("got %T %+v, want *LoadStmt{Name: DEMO}", line.Stmt, line.Stmt)
	}
}

// TestParseErrors checks syntax error classification.
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		want     error
		wantLine int
	}{
		{"missing THEN", "10 IF A = 1 GOTO 20", ErrUnexpectedToken, 10},
		{"long variable name", "10 LET AB = 1", ErrInvalidVariable, 10},
		{"unknown keyword", "10 WRITE A", ErrUnknownStatement, 10},
		{"trailing garbage", "10 END 5", ErrUnexpectedToken, 10},
		{"unbalanced parens", "10 LET A = (1 + 2", ErrUnexpectedToken, 10},
		{"stored RUN", "10 RUN", ErrImmediateOnly, 10},
		{"stored LIST", "20 LIST", ErrImmediateOnly, 20},
		{"stored SAVE", `30 SAVE "X"`, ErrImmediateOnly, 30},
		{"incomplete expression", "10 LET A = 1 +", ErrUnexpectedToken, 10},
		{"immediate missing expr", "GOTO", ErrUnexpectedToken, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.source)
			if err != nil {
				t.Fatalf("Tokenize(%q) failed: %v", tt.source, err)
			}
			_, err = ParseLine(tt.source, tokens)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ParseLine(%q): got %v, want %v", tt.source, err, tt.want)
			}
			var be *Error
			if !errors.As(err, &be) {
				t.Fatalf("error is not a *basic.Error: %v", err)
			}
			if be.Line != tt.wantLine {
				t.Errorf("got line %d, want %d", be.Line, tt.wantLine)
			}
		})
	}
}
