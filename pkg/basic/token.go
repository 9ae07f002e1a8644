// Package basic implements a line-numbered TinyBASIC interpreter.
package basic

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	TokEOL TokenType = iota // end of line
	TokNumber
	TokString
	TokIdent
	TokComment // remainder of a REM line, taken verbatim
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokLParen
	TokRParen
	TokComma
	TokEq
	TokLt
	TokLe
	TokGt
	TokGe
	TokNe
)

// Token is one lexical token of a source line. Identifiers are stored
// uppercased; Num carries the value of a number literal. Pos is the byte
// offset within the line, used for diagnostics.
type Token struct {
	Type TokenType
	Text string
	Num  int
	Pos  int
}

func (t Token) String() string {
	switch t.Type {
	case TokEOL:
		return "end of line"
	default:
		return t.Text
	}
}
