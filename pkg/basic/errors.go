package basic

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Callers match these with errors.Is; user-facing text is
// produced by Error.
var (
	// Lexical errors.
	ErrUnexpectedChar     = errors.New("unexpected character")
	ErrUnterminatedString = errors.New("unterminated string literal")
	ErrInvalidNumber      = errors.New("number out of range")

	// Parse errors.
	ErrUnexpectedToken   = errors.New("unexpected token")
	ErrUnknownStatement  = errors.New("unknown statement")
	ErrInvalidVariable   = errors.New("invalid variable name")
	ErrInvalidLineNumber = errors.New("invalid line number")
	ErrImmediateOnly     = errors.New("only allowed in immediate mode")

	// Runtime errors.
	ErrUndefinedLine      = errors.New("undefined line")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrReturnWithoutGosub = errors.New("RETURN without GOSUB")
	ErrInvalidInput       = errors.New("input is not a valid integer")
	ErrGosubDepthExceeded = errors.New("GOSUB depth exceeded")
	ErrNoProgram          = errors.New("no program loaded")
	ErrProgramTooLarge    = errors.New("program too large")
	ErrNoInputExpected    = errors.New("no input expected")
	ErrNoSourceStore      = errors.New("program storage not available")
	ErrInterrupted        = errors.New("interrupted")
	ErrAwaitingInput      = errors.New("INPUT pending")
	ErrImmediateGosub     = errors.New("GOSUB requires a running program")
	ErrLineTooLong        = errors.New("line too long")
	ErrStepLimit          = errors.New("step limit exceeded")
)

// Error categories, printed in classic BASIC style.
const (
	CategoryLex     = "LEX ERROR"
	CategorySyntax  = "SYNTAX ERROR"
	CategoryRuntime = "RUNTIME ERROR"
)

// Error is a structured interpreter error. Line is the offending program
// line, 0 for immediate mode. Pos is the column within the source line for
// lex and parse errors. Token names the offending token where one exists.
type Error struct {
	Category string
	Line     int
	Pos      int
	Token    string
	Err      error
}

func (e *Error) Error() string {
	msg := strings.ToUpper(e.Err.Error())
	if e.Token != "" {
		msg += fmt.Sprintf(" %q", e.Token)
	}
	if e.Pos > 0 {
		msg += fmt.Sprintf(" AT POSITION %d", e.Pos)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s IN LINE %d: %s", e.Category, e.Line, msg)
	}
	return fmt.Sprintf("%s: %s", e.Category, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func lexError(pos int, err error, token string) *Error {
	return &Error{Category: CategoryLex, Pos: pos, Token: token, Err: err}
}

func syntaxError(pos int, err error, token string) *Error {
	return &Error{Category: CategorySyntax, Pos: pos, Token: token, Err: err}
}

func runtimeError(line int, err error) *Error {
	return &Error{Category: CategoryRuntime, Line: line, Err: err}
}

// withLine attaches the program line number to a lex or parse error so
// errors from stored lines name the line they belong to.
func withLine(err error, line int) error {
	var be *Error
	if errors.As(err, &be) && be.Line == 0 {
		be.Line = line
	}
	return err
}
