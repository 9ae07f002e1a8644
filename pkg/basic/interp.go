package basic

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/antibyte/basicterm/pkg/configuration"
	"github.com/antibyte/basicterm/pkg/logger"
)

// State is the executor's run state.
type State int

const (
	// StateIdle means no program run is in progress.
	StateIdle State = iota
	// StateRunning means the executor is inside the run loop.
	StateRunning
	// StateAwaitingInput means execution is suspended inside an INPUT
	// statement until ProvideInput is called.
	StateAwaitingInput
	// StateHalted means the last run ended (END, fallthrough or error).
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateAwaitingInput:
		return "awaiting input"
	case StateHalted:
		return "halted"
	}
	return "unknown"
}

// IO is the bridge to the host's output surface. Write and Clear must not
// block interpreter progress. Reading input is inverted: the executor
// suspends in StateAwaitingInput and the host calls ProvideInput.
type IO interface {
	Write(text string)
	Clear()
	SetPrompt(text string)
}

// SourceStore is the program-source boundary used by LOAD and SAVE. The
// interpreter only ever exchanges plain program text with it.
type SourceStore interface {
	LoadProgram(name string) (string, error)
	SaveProgram(name, source string) error
}

// haltOnReturn is pushed on the call stack when a GOSUB has no following
// line; RETURN then halts, matching falling off the end of the program.
const haltOnReturn = -1

// Interpreter owns one program, one environment and one execution state.
// Multiple instances are fully independent.
type Interpreter struct {
	mu    sync.Mutex
	io    IO
	store SourceStore

	prog       *Program
	env        Environment
	gosubStack []int
	pc         int
	state      State
	running    bool // a stored-program run is in progress (survives suspension)

	pendingVars []byte // INPUT variables still to be filled
	inputLine   int    // line of the suspended INPUT

	tokens *TokenCache

	maxProgramLines int
	maxLineLength   int
	maxGosubDepth   int
	stepLimit       int
	checkEvery      int

	ctxMu  sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an interpreter with a fresh environment, an empty program and
// an empty call stack. The store may be nil; LOAD and SAVE then fail with a
// runtime error.
func New(io IO, store SourceStore) *Interpreter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Interpreter{
		io:              io,
		store:           store,
		prog:            NewProgram(),
		tokens:          NewTokenCache(configuration.GetInt("Basic", "token_cache_size", DefaultTokenCacheSize)),
		maxProgramLines: configuration.GetInt("Basic", "max_program_lines", 5000),
		maxLineLength:   configuration.GetInt("Basic", "max_line_length", 255),
		maxGosubDepth:   configuration.GetInt("Basic", "max_gosub_depth", 100),
		stepLimit:       configuration.GetInt("Basic", "run_step_limit", 0),
		checkEvery:      configuration.GetInt("Basic", "context_check_every", 1000),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// State returns the current run state.
func (in *Interpreter) State() State {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.state
}

// Listing returns the stored program text in ascending line order.
func (in *Interpreter) Listing() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.prog.Source()
}

// Interrupt cancels an in-progress run from another goroutine. The run loop
// notices between statements and ends the run with an error.
func (in *Interpreter) Interrupt() {
	in.ctxMu.Lock()
	defer in.ctxMu.Unlock()
	in.cancel()
}

// Abort discards the current execution state, including a pending INPUT
// suspension. The program and the variables are kept.
func (in *Interpreter) Abort() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.gosubStack = in.gosubStack[:0]
	in.pendingVars = nil
	in.running = false
	in.state = StateIdle
}

func (in *Interpreter) renewContext() {
	in.ctxMu.Lock()
	defer in.ctxMu.Unlock()
	in.cancel()
	in.ctx, in.cancel = context.WithCancel(context.Background())
}

func (in *Interpreter) runContext() context.Context {
	in.ctxMu.Lock()
	defer in.ctxMu.Unlock()
	return in.ctx
}

// Execute processes one typed line: a numbered line is stored (or deleted,
// for a bare number), an immediate statement runs at once. Execution runs
// to completion, to the first INPUT suspension, or to an error.
func (in *Interpreter) Execute(source string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.state == StateAwaitingInput {
		return runtimeError(in.inputLine, ErrAwaitingInput)
	}
	if len(source) > in.maxLineLength {
		return syntaxError(0, ErrLineTooLong, "")
	}

	tokens, err := in.tokens.Tokenize(source)
	if err != nil {
		return withLine(err, leadingLineNumber(source))
	}
	line, err := ParseLine(source, tokens)
	if err != nil {
		return err
	}

	if line.Number > 0 {
		if line.Stmt == nil {
			in.prog.Delete(line.Number)
			return nil
		}
		if !in.prog.Has(line.Number) && in.prog.Len() >= in.maxProgramLines {
			return runtimeError(line.Number, ErrProgramTooLarge)
		}
		in.prog.Set(line)
		return nil
	}

	return in.execImmediate(line.Stmt)
}

// ProvideInput feeds one line of input text to a suspended INPUT statement.
// Text that does not parse as an integer returns an InvalidInput error and
// leaves the suspension in place, so the driver may re-prompt or Abort.
func (in *Interpreter) ProvideInput(text string) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.state != StateAwaitingInput {
		return runtimeError(0, ErrNoInputExpected)
	}

	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return runtimeError(in.inputLine, ErrInvalidInput)
	}

	in.env.Set(in.pendingVars[0], value)
	in.pendingVars = in.pendingVars[1:]

	if len(in.pendingVars) > 0 {
		in.io.SetPrompt(string(in.pendingVars[0]) + "? ")
		return nil
	}

	in.io.SetPrompt("")
	if !in.running {
		in.state = StateIdle
		return nil
	}
	in.state = StateRunning
	in.advance(in.inputLine)
	return in.loop()
}

// Run executes the stored program from its first line, like the immediate
// RUN command.
func (in *Interpreter) Run() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.startRunFirst()
}

// LoadSource replaces the program with the given source text. Every
// non-blank line must carry a line number. Variables and execution state
// are reset, as for NEW.
func (in *Interpreter) LoadSource(src string) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.loadSource(src)
}

func (in *Interpreter) loadSource(src string) error {
	in.clearAll()
	for _, raw := range strings.Split(src, "\n") {
		text := strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		tokens, err := in.tokens.Tokenize(text)
		if err != nil {
			return withLine(err, leadingLineNumber(text))
		}
		line, err := ParseLine(text, tokens)
		if err != nil {
			return err
		}
		if line.Number == 0 {
			return syntaxError(0, ErrInvalidLineNumber, strings.TrimSpace(text))
		}
		if line.Stmt == nil {
			in.prog.Delete(line.Number)
			continue
		}
		if !in.prog.Has(line.Number) && in.prog.Len() >= in.maxProgramLines {
			return runtimeError(line.Number, ErrProgramTooLarge)
		}
		in.prog.Set(line)
	}
	return nil
}

// leadingLineNumber reads the line-number prefix of a raw source line, so
// errors raised before parsing can still name the stored line.
func leadingLineNumber(source string) int {
	s := strings.TrimLeft(source, " \t")
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0
	}
	return n
}

func (in *Interpreter) clearAll() {
	in.prog.Clear()
	in.env.Reset()
	in.gosubStack = in.gosubStack[:0]
	in.pendingVars = nil
	in.running = false
	in.state = StateIdle
}

// execImmediate runs one immediate-mode statement.
func (in *Interpreter) execImmediate(stmt Stmt) error {
	switch s := stmt.(type) {
	case nil:
		return nil
	case *RemStmt:
		return nil
	case *EndStmt:
		return nil
	case *ClsStmt:
		in.io.Clear()
		return nil
	case *PrintStmt:
		return in.doPrint(s, 0)
	case *LetStmt:
		return in.doLet(s, 0)
	case *IfStmt:
		ok, err := in.evalCond(s, 0)
		if err != nil {
			return err
		}
		if ok {
			return in.execImmediate(s.Then)
		}
		return nil
	case *InputStmt:
		in.beginInput(s.Vars, 0, false)
		return nil
	case *GotoStmt:
		target, err := in.evalTarget(s.Target, 0)
		if err != nil {
			return err
		}
		return in.startRun(target)
	case *GosubStmt:
		return runtimeError(0, ErrImmediateGosub)
	case *ReturnStmt:
		return runtimeError(0, ErrReturnWithoutGosub)
	case *RunStmt:
		return in.startRunFirst()
	case *ListStmt:
		if src := in.prog.Source(); src != "" {
			in.io.Write(src + "\n")
		}
		return nil
	case *NewStmt:
		in.clearAll()
		return nil
	case *HelpStmt:
		in.io.Write(helpText)
		return nil
	case *LoadStmt:
		if in.store == nil {
			return runtimeError(0, ErrNoSourceStore)
		}
		src, err := in.store.LoadProgram(s.Name)
		if err != nil {
			return runtimeError(0, err)
		}
		if err := in.loadSource(src); err != nil {
			return err
		}
		in.io.Write("PROGRAM LOADED\n")
		return nil
	case *SaveStmt:
		if in.store == nil {
			return runtimeError(0, ErrNoSourceStore)
		}
		if in.prog.Len() == 0 {
			return runtimeError(0, ErrNoProgram)
		}
		if err := in.store.SaveProgram(s.Name, in.prog.Source()); err != nil {
			return runtimeError(0, err)
		}
		in.io.Write("PROGRAM SAVED\n")
		return nil
	default:
		return runtimeError(0, ErrUnknownStatement)
	}
}

func (in *Interpreter) startRunFirst() error {
	first, ok := in.prog.First()
	if !ok {
		return runtimeError(0, ErrNoProgram)
	}
	return in.startRun(first)
}

// startRun begins a program run at the given line. The call stack and the
// program counter are rebuilt; the variables are not (only NEW and a fresh
// instance zero them).
func (in *Interpreter) startRun(startLine int) error {
	if !in.prog.Has(startLine) {
		return &Error{Category: CategoryRuntime, Err: ErrUndefinedLine, Token: strconv.Itoa(startLine)}
	}
	in.gosubStack = in.gosubStack[:0]
	in.pc = startLine
	in.state = StateRunning
	in.running = true
	in.renewContext()
	logger.BasicDebug("run started at line %d (%d lines)", startLine, in.prog.Len())
	return in.loop()
}

// loop executes statements until the program halts, suspends on INPUT, or
// fails. The run context is polled between statements so a host can
// interrupt a runaway program.
func (in *Interpreter) loop() error {
	steps := 0
	for in.state == StateRunning {
		steps++
		if in.checkEvery > 0 && steps%in.checkEvery == 0 {
			if in.runContext().Err() != nil {
				in.state = StateHalted
				in.running = false
				return runtimeError(in.pc, ErrInterrupted)
			}
		}
		if in.stepLimit > 0 && steps > in.stepLimit {
			in.state = StateHalted
			in.running = false
			return runtimeError(in.pc, ErrStepLimit)
		}

		line, ok := in.prog.Get(in.pc)
		if !ok {
			in.state = StateHalted
			in.running = false
			return &Error{Category: CategoryRuntime, Line: in.pc, Err: ErrUndefinedLine, Token: strconv.Itoa(in.pc)}
		}
		if err := in.execStmt(line.Stmt, in.pc); err != nil {
			in.state = StateHalted
			in.running = false
			return err
		}
	}
	if in.state == StateHalted {
		in.running = false
		logger.BasicDebug("run halted")
	}
	return nil
}

// execStmt performs one stored-program statement and applies its
// control-flow rule: the statement decides the next program counter.
func (in *Interpreter) execStmt(stmt Stmt, line int) error {
	switch s := stmt.(type) {
	case *PrintStmt:
		if err := in.doPrint(s, line); err != nil {
			return err
		}
		in.advance(line)
	case *LetStmt:
		if err := in.doLet(s, line); err != nil {
			return err
		}
		in.advance(line)
	case *RemStmt:
		in.advance(line)
	case *ClsStmt:
		in.io.Clear()
		in.advance(line)
	case *IfStmt:
		ok, err := in.evalCond(s, line)
		if err != nil {
			return err
		}
		if ok {
			// The nested statement's own control-flow rule applies:
			// THEN GOTO jumps, THEN PRINT falls through.
			return in.execStmt(s.Then, line)
		}
		in.advance(line)
	case *InputStmt:
		in.beginInput(s.Vars, line, true)
	case *GotoStmt:
		target, err := in.evalTarget(s.Target, line)
		if err != nil {
			return err
		}
		in.pc = target
	case *GosubStmt:
		if len(in.gosubStack) >= in.maxGosubDepth {
			return runtimeError(line, ErrGosubDepthExceeded)
		}
		target, err := in.evalTarget(s.Target, line)
		if err != nil {
			return err
		}
		ret := haltOnReturn
		if next, ok := in.prog.NextAfter(line); ok {
			ret = next
		}
		in.gosubStack = append(in.gosubStack, ret)
		in.pc = target
	case *ReturnStmt:
		n := len(in.gosubStack)
		if n == 0 {
			return runtimeError(line, ErrReturnWithoutGosub)
		}
		ret := in.gosubStack[n-1]
		in.gosubStack = in.gosubStack[:n-1]
		if ret == haltOnReturn {
			in.state = StateHalted
		} else {
			in.pc = ret
		}
	case *EndStmt:
		in.state = StateHalted
	default:
		// Immediate-only statements cannot be stored; the parser rejects
		// them on numbered lines.
		return runtimeError(line, ErrUnknownStatement)
	}
	return nil
}

// advance moves the program counter to the next stored line; falling off
// the end halts like an implicit END.
func (in *Interpreter) advance(line int) {
	if next, ok := in.prog.NextAfter(line); ok {
		in.pc = next
	} else {
		in.state = StateHalted
	}
}

// beginInput suspends execution until the host supplies one integer per
// variable, in order.
func (in *Interpreter) beginInput(vars []byte, line int, fromRun bool) {
	in.pendingVars = append([]byte(nil), vars...)
	in.inputLine = line
	in.running = fromRun
	in.state = StateAwaitingInput
	in.io.SetPrompt(string(in.pendingVars[0]) + "? ")
}

func (in *Interpreter) doPrint(s *PrintStmt, line int) error {
	// All items are evaluated before anything is written, so a failing
	// item produces no partial output.
	var sb strings.Builder
	for _, item := range s.Items {
		if item.Expr == nil {
			sb.WriteString(item.Text)
			continue
		}
		value, err := in.evalExpr(item.Expr, line)
		if err != nil {
			return err
		}
		sb.WriteString(strconv.Itoa(value))
	}
	sb.WriteByte('\n')
	in.io.Write(sb.String())
	return nil
}

func (in *Interpreter) doLet(s *LetStmt, line int) error {
	value, err := in.evalExpr(s.Expr, line)
	if err != nil {
		return err
	}
	in.env.Set(s.Var, value)
	return nil
}

func (in *Interpreter) evalCond(s *IfStmt, line int) (bool, error) {
	left, err := in.evalExpr(s.Left, line)
	if err != nil {
		return false, err
	}
	right, err := in.evalExpr(s.Right, line)
	if err != nil {
		return false, err
	}
	switch s.Rel {
	case RelEq:
		return left == right, nil
	case RelNe:
		return left != right, nil
	case RelLt:
		return left < right, nil
	case RelLe:
		return left <= right, nil
	case RelGt:
		return left > right, nil
	case RelGe:
		return left >= right, nil
	}
	return false, runtimeError(line, ErrUnknownStatement)
}

// evalTarget evaluates a jump target and requires it to name a stored line.
func (in *Interpreter) evalTarget(e Expr, line int) (int, error) {
	target, err := in.evalExpr(e, line)
	if err != nil {
		return 0, err
	}
	if !in.prog.Has(target) {
		return 0, &Error{Category: CategoryRuntime, Line: line, Err: ErrUndefinedLine, Token: strconv.Itoa(target)}
	}
	return target, nil
}

// evalExpr walks an expression tree. There are no undefined variables: all
// 26 slots exist and default to zero.
func (in *Interpreter) evalExpr(e Expr, line int) (int, error) {
	switch n := e.(type) {
	case *NumberLit:
		return n.Value, nil
	case *VarRef:
		return in.env.Get(n.Name), nil
	case *UnaryExpr:
		value, err := in.evalExpr(n.Operand, line)
		if err != nil {
			return 0, err
		}
		if n.Op == '-' {
			value = -value
		}
		return value, nil
	case *BinaryExpr:
		left, err := in.evalExpr(n.Left, line)
		if err != nil {
			return 0, err
		}
		right, err := in.evalExpr(n.Right, line)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case '+':
			return left + right, nil
		case '-':
			return left - right, nil
		case '*':
			return left * right, nil
		case '/':
			if right == 0 {
				return 0, runtimeError(line, ErrDivisionByZero)
			}
			return left / right, nil
		}
	}
	return 0, runtimeError(line, ErrUnknownStatement)
}
