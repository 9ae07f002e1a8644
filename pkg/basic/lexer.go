package basic

import (
	"strconv"
	"strings"
)

// Lexer turns one line of source text into tokens. It is stateless across
// lines; whitespace only separates tokens.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a lexer for a single source line.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize scans the whole line and returns its tokens, terminated by a
// TokEOL token. An unrecognized character or an unterminated string literal
// yields a lex error; previously scanned tokens are discarded.
func Tokenize(line string) ([]Token, error) {
	l := NewLexer(line)
	var tokens []Token
	for {
		tok, err := l.next(tokens)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOL {
			return tokens, nil
		}
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) skipSpace() {
	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
}

// next scans one token. The tokens scanned so far are passed in so REM can
// be detected at statement position and swallow the rest of the line.
func (l *Lexer) next(prev []Token) (Token, error) {
	l.skipSpace()

	start := l.pos
	ch := l.peek()

	switch {
	case ch == 0 || ch == '\n':
		return Token{Type: TokEOL, Pos: start}, nil

	case isDigit(ch):
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
		text := l.input[start:l.pos]
		num, err := strconv.Atoi(text)
		if err != nil {
			// Digit-only text that still fails Atoi does not fit an int.
			return Token{}, lexError(start, ErrInvalidNumber, text)
		}
		return Token{Type: TokNumber, Text: text, Num: num, Pos: start}, nil

	case isLetter(ch):
		for l.pos < len(l.input) && isLetter(l.input[l.pos]) {
			l.pos++
		}
		text := strings.ToUpper(l.input[start:l.pos])
		if text == "REM" && atStatementPosition(prev) {
			rest := strings.TrimPrefix(l.input[l.pos:], " ")
			l.pos = len(l.input)
			return Token{Type: TokComment, Text: rest, Pos: start}, nil
		}
		return Token{Type: TokIdent, Text: text, Pos: start}, nil

	case ch == '"':
		l.pos++
		for l.pos < len(l.input) && l.input[l.pos] != '"' {
			l.pos++
		}
		if l.pos >= len(l.input) {
			return Token{}, lexError(len(l.input), ErrUnterminatedString, "")
		}
		text := l.input[start+1 : l.pos]
		l.pos++
		return Token{Type: TokString, Text: text, Pos: start}, nil

	default:
		l.pos++
		switch ch {
		case '+':
			return Token{Type: TokPlus, Text: "+", Pos: start}, nil
		case '-':
			return Token{Type: TokMinus, Text: "-", Pos: start}, nil
		case '*':
			return Token{Type: TokStar, Text: "*", Pos: start}, nil
		case '/':
			return Token{Type: TokSlash, Text: "/", Pos: start}, nil
		case '(':
			return Token{Type: TokLParen, Text: "(", Pos: start}, nil
		case ')':
			return Token{Type: TokRParen, Text: ")", Pos: start}, nil
		case ',':
			return Token{Type: TokComma, Text: ",", Pos: start}, nil
		case '=':
			return Token{Type: TokEq, Text: "=", Pos: start}, nil
		case '<':
			if l.peek() == '=' {
				l.pos++
				return Token{Type: TokLe, Text: "<=", Pos: start}, nil
			}
			if l.peek() == '>' {
				l.pos++
				return Token{Type: TokNe, Text: "<>", Pos: start}, nil
			}
			return Token{Type: TokLt, Text: "<", Pos: start}, nil
		case '>':
			if l.peek() == '=' {
				l.pos++
				return Token{Type: TokGe, Text: ">=", Pos: start}, nil
			}
			return Token{Type: TokGt, Text: ">", Pos: start}, nil
		default:
			return Token{}, lexError(start, ErrUnexpectedChar, string(ch))
		}
	}
}

// atStatementPosition reports whether the next identifier starts a statement:
// either nothing has been scanned yet, or only the leading line number.
func atStatementPosition(prev []Token) bool {
	if len(prev) == 0 {
		return true
	}
	return len(prev) == 1 && prev[0].Type == TokNumber
}
