package basic

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// testIO records everything the interpreter sends to its host.
type testIO struct {
	out     strings.Builder
	prompts []string
	clears  int
}

func (io *testIO) Write(text string)     { io.out.WriteString(text) }
func (io *testIO) Clear()                { io.clears++ }
func (io *testIO) SetPrompt(text string) { io.prompts = append(io.prompts, text) }
func (io *testIO) lastPrompt() string {
	if len(io.prompts) == 0 {
		return ""
	}
	return io.prompts[len(io.prompts)-1]
}

// memStore is an in-memory SourceStore for LOAD/SAVE tests.
type memStore struct {
	programs map[string]string
}

func (s *memStore) LoadProgram(name string) (string, error) {
	src, ok := s.programs[name]
	if !ok {
		return "", fmt.Errorf("program %q not found", name)
	}
	return src, nil
}

func (s *memStore) SaveProgram(name, source string) error {
	if s.programs == nil {
		s.programs = make(map[string]string)
	}
	s.programs[name] = source
	return nil
}

func newTestInterp() (*Interpreter, *testIO) {
	io := &testIO{}
	return New(io, nil), io
}

// feed executes lines and fails the test on any error.
func feed(t *testing.T, in *Interpreter, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := in.Execute(line); err != nil {
			t.Fatalf("Execute(%q) failed: %v", line, err)
		}
	}
}

// TestRunSequentialOrder checks that execution follows line numbers, not
// entry order.
func TestRunSequentialOrder(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"30 PRINT 3",
		"10 PRINT 1",
		"20 PRINT 2",
		"RUN",
	)
	if got := io.out.String(); got != "1\n2\n3\n" {
		t.Errorf("output %q, want %q", got, "1\n2\n3\n")
	}
	if in.State() != StateHalted {
		t.Errorf("state %v, want halted", in.State())
	}
}

// TestExpressionEvaluation checks precedence, associativity, unary signs
// and truncating division through PRINT.
func TestExpressionEvaluation(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 - 2 - 3", "5"},
		{"20 / 4 / 5", "1"},
		{"7 / 2", "3"},
		{"-7 / 2", "-3"},
		{"--5", "5"},
		{"2 * -3", "-6"},
		{"-(1 + 2)", "-3"},
		{"+4", "4"},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			in, io := newTestInterp()
			feed(t, in, "PRINT "+tt.expr)
			if got := io.out.String(); got != tt.want+"\n" {
				t.Errorf("PRINT %s = %q, want %q", tt.expr, got, tt.want+"\n")
			}
		})
	}
}

// TestPrintMixedItems checks string and expression items in one statement.
func TestPrintMixedItems(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"LET X = 6",
		`PRINT "X IS ", X * 7`,
		"PRINT",
	)
	if got := io.out.String(); got != "X IS 42\n\n" {
		t.Errorf("output %q, want %q", got, "X IS 42\n\n")
	}
}

// TestLineReplacement checks that re-entering a line number replaces the
// old statement and a bare number deletes it.
func TestLineReplacement(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"10 PRINT 111",
		"20 PRINT 222",
		"10 PRINT 999",
		"20",
		"RUN",
	)
	if got := io.out.String(); got != "999\n" {
		t.Errorf("output %q, want %q", got, "999\n")
	}
}

// TestGotoControlFlow checks jumps and the undefined-line error.
func TestGotoControlFlow(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"10 GOTO 40",
		"20 PRINT 2",
		"30 END",
		"40 PRINT 4",
		"50 GOTO 20",
	)
	if err := in.Execute("RUN"); err != nil {
		t.Fatalf("RUN failed: %v", err)
	}
	if got := io.out.String(); got != "4\n2\n" {
		t.Errorf("output %q, want %q", got, "4\n2\n")
	}

	in2, _ := newTestInterp()
	feed(t, in2, "10 GOTO 99")
	err := in2.Execute("RUN")
	if !errors.Is(err, ErrUndefinedLine) {
		t.Fatalf("got %v, want ErrUndefinedLine", err)
	}
	if !strings.Contains(err.Error(), "IN LINE 10") {
		t.Errorf("error %q does not name line 10", err.Error())
	}
	if in2.State() != StateHalted {
		t.Errorf("state %v after runtime error, want halted", in2.State())
	}
}

// TestGosubReturn checks call/return including nesting and the sentinel
// for a GOSUB on the last line.
func TestGosubReturn(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"10 GOSUB 100",
		"20 PRINT 2",
		"30 END",
		"100 PRINT 100",
		"110 GOSUB 200",
		"120 PRINT 120",
		"130 RETURN",
		"200 PRINT 200",
		"210 RETURN",
		"RUN",
	)
	want := "100\n200\n120\n2\n"
	if got := io.out.String(); got != want {
		t.Errorf("output %q, want %q", got, want)
	}

	// GOSUB on the last stored line: RETURN behaves like running past the
	// end of the program.
	in2, io2 := newTestInterp()
	feed(t, in2,
		"10 GOTO 30",
		"20 PRINT 1",
		"25 RETURN",
		"30 GOSUB 20",
		"RUN",
	)
	if got := io2.out.String(); got != "1\n" {
		t.Errorf("output %q, want %q", got, "1\n")
	}
	if in2.State() != StateHalted {
		t.Errorf("state %v, want halted", in2.State())
	}
}

// TestReturnWithoutGosub checks the bare RETURN error.
func TestReturnWithoutGosub(t *testing.T) {
	in, _ := newTestInterp()
	feed(t, in, "10 RETURN")
	if err := in.Execute("RUN"); !errors.Is(err, ErrReturnWithoutGosub) {
		t.Fatalf("got %v, want ErrReturnWithoutGosub", err)
	}

	if err := in.Execute("RETURN"); !errors.Is(err, ErrReturnWithoutGosub) {
		t.Errorf("immediate RETURN: got %v, want ErrReturnWithoutGosub", err)
	}
}

// TestGosubDepthLimit checks runaway recursion protection.
func TestGosubDepthLimit(t *testing.T) {
	in, _ := newTestInterp()
	feed(t, in, "10 GOSUB 10")
	if err := in.Execute("RUN"); !errors.Is(err, ErrGosubDepthExceeded) {
		t.Fatalf("got %v, want ErrGosubDepthExceeded", err)
	}
}

// TestDivisionByZero checks the error and that a failing PRINT produces no
// partial output.
func TestDivisionByZero(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in, `20 PRINT "A", 1 / 0, "B"`)
	err := in.Execute("RUN")
	if !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("got %v, want ErrDivisionByZero", err)
	}
	if got := io.out.String(); got != "" {
		t.Errorf("failing PRINT wrote %q, want no output", got)
	}
	if err.Error() != "RUNTIME ERROR IN LINE 20: DIVISION BY ZERO" {
		t.Errorf("error text %q", err.Error())
	}
}

// TestIfStatement checks both branches and a THEN GOTO jump.
func TestIfStatement(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"10 LET A = 5",
		"20 IF A > 3 THEN PRINT 1",
		"30 IF A > 9 THEN PRINT 2",
		"40 IF A <> 0 THEN GOTO 60",
		"50 PRINT 3",
		"60 PRINT 4",
		"RUN",
	)
	if got := io.out.String(); got != "1\n4\n" {
		t.Errorf("output %q, want %q", got, "1\n4\n")
	}
}

// TestCountingLoop runs the classic counter and checks the variable
// afterwards.
func TestCountingLoop(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"10 LET I = 1",
		"20 PRINT I",
		"30 LET I = I + 1",
		"40 IF I <= 3 THEN GOTO 20",
		"RUN",
	)
	if got := io.out.String(); got != "1\n2\n3\n" {
		t.Errorf("output %q, want %q", got, "1\n2\n3\n")
	}
	if got := in.env.Get('I'); got != 4 {
		t.Errorf("I = %d after loop, want 4", got)
	}
}

// TestInputSuspendResume checks the non-blocking INPUT state machine.
func TestInputSuspendResume(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"10 INPUT A",
		"20 PRINT A * 2",
		"RUN",
	)
	if in.State() != StateAwaitingInput {
		t.Fatalf("state %v after RUN, want awaiting input", in.State())
	}
	if io.lastPrompt() != "A? " {
		t.Errorf("prompt %q, want %q", io.lastPrompt(), "A? ")
	}
	if got := io.out.String(); got != "" {
		t.Errorf("output before input: %q", got)
	}

	if err := in.ProvideInput(" 7 "); err != nil {
		t.Fatalf("ProvideInput failed: %v", err)
	}
	if got := io.out.String(); got != "14\n" {
		t.Errorf("output %q, want %q", got, "14\n")
	}
	if in.State() != StateHalted {
		t.Errorf("state %v, want halted", in.State())
	}
	if got := in.env.Get('A'); got != 7 {
		t.Errorf("A = %d, want 7", got)
	}
}

// TestInputMultipleVars checks per-variable prompting.
func TestInputMultipleVars(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"10 INPUT A, B",
		"20 PRINT A + B",
		"RUN",
	)
	if io.lastPrompt() != "A? " {
		t.Fatalf("first prompt %q, want %q", io.lastPrompt(), "A? ")
	}
	if err := in.ProvideInput("3"); err != nil {
		t.Fatalf("first ProvideInput failed: %v", err)
	}
	if in.State() != StateAwaitingInput {
		t.Fatalf("state %v between variables, want awaiting input", in.State())
	}
	if io.lastPrompt() != "B? " {
		t.Errorf("second prompt %q, want %q", io.lastPrompt(), "B? ")
	}
	if err := in.ProvideInput("4"); err != nil {
		t.Fatalf("second ProvideInput failed: %v", err)
	}
	if got := io.out.String(); got != "7\n" {
		t.Errorf("output %q, want %q", got, "7\n")
	}
}

// TestInputInvalid checks that bad input keeps the suspension alive and a
// corrected value still binds.
func TestInputInvalid(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"10 INPUT A",
		"20 PRINT A",
		"RUN",
	)
	err := in.ProvideInput("seven")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
	if in.State() != StateAwaitingInput {
		t.Fatalf("state %v after invalid input, want awaiting input", in.State())
	}
	if err := in.ProvideInput("42"); err != nil {
		t.Fatalf("corrected ProvideInput failed: %v", err)
	}
	if got := io.out.String(); got != "42\n" {
		t.Errorf("output %q, want %q", got, "42\n")
	}
}

// TestInputImmediate checks INPUT typed without a program run.
func TestInputImmediate(t *testing.T) {
	in, _ := newTestInterp()
	feed(t, in, "INPUT Q")
	if in.State() != StateAwaitingInput {
		t.Fatalf("state %v, want awaiting input", in.State())
	}
	// Typing another line while INPUT is pending is rejected.
	if err := in.Execute("PRINT 1"); !errors.Is(err, ErrAwaitingInput) {
		t.Errorf("got %v, want ErrAwaitingInput", err)
	}
	if err := in.ProvideInput("9"); err != nil {
		t.Fatalf("ProvideInput failed: %v", err)
	}
	if in.State() != StateIdle {
		t.Errorf("state %v after immediate INPUT, want idle", in.State())
	}
	if got := in.env.Get('Q'); got != 9 {
		t.Errorf("Q = %d, want 9", got)
	}

	if err := in.ProvideInput("1"); !errors.Is(err, ErrNoInputExpected) {
		t.Errorf("unsolicited input: got %v, want ErrNoInputExpected", err)
	}
}

// TestRunKeepsVariables checks that only NEW and construction zero the
// environment.
func TestRunKeepsVariables(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"LET A = 5",
		"10 PRINT A",
		"RUN",
	)
	if got := io.out.String(); got != "5\n" {
		t.Fatalf("output %q, want %q (RUN must not reset variables)", io.out.String(), "5\n")
	}

	feed(t, in, "NEW")
	if got := in.env.Get('A'); got != 0 {
		t.Errorf("A = %d after NEW, want 0", got)
	}
	if err := in.Execute("RUN"); !errors.Is(err, ErrNoProgram) {
		t.Errorf("RUN after NEW: got %v, want ErrNoProgram", err)
	}
}

// TestImmediateGoto starts a run at the named line.
func TestImmediateGoto(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"10 PRINT 1",
		"20 PRINT 2",
		"GOTO 20",
	)
	if got := io.out.String(); got != "2\n" {
		t.Errorf("output %q, want %q", got, "2\n")
	}

	if err := in.Execute("GOSUB 10"); !errors.Is(err, ErrImmediateGosub) {
		t.Errorf("immediate GOSUB: got %v, want ErrImmediateGosub", err)
	}
}

// TestListAndCls checks the remaining immediate commands.
func TestListAndCls(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in,
		"20 END",
		"10 PRINT 1",
		"LIST",
	)
	if got := io.out.String(); got != "10 PRINT 1\n20 END\n" {
		t.Errorf("LIST output %q", got)
	}

	feed(t, in, "CLS")
	if io.clears != 1 {
		t.Errorf("CLS did not reach the host, clears = %d", io.clears)
	}

	io.out.Reset()
	feed(t, in, "HELP")
	if !strings.Contains(io.out.String(), "GOSUB") {
		t.Errorf("HELP output missing statement summary: %q", io.out.String())
	}
}

// TestLoadSave checks the SourceStore round trip.
func TestLoadSave(t *testing.T) {
	store := &memStore{}
	io := &testIO{}
	in := New(io, store)
	feed(t, in,
		"10 LET A = 1",
		"20 PRINT A",
		`SAVE "DEMO"`,
	)
	if !strings.Contains(io.out.String(), "PROGRAM SAVED") {
		t.Errorf("missing save confirmation: %q", io.out.String())
	}
	if store.programs["DEMO"] != "10 LET A = 1\n20 PRINT A" {
		t.Errorf("stored source %q", store.programs["DEMO"])
	}

	feed(t, in, "NEW", `LOAD "DEMO"`)
	if got := in.Listing(); got != "10 LET A = 1\n20 PRINT A" {
		t.Errorf("listing after LOAD: %q", got)
	}

	if err := in.Execute(`LOAD "MISSING"`); err == nil {
		t.Errorf("LOAD of a missing program must fail")
	}

	in2, _ := newTestInterp() // nil store
	if err := in2.Execute(`SAVE "X"`); !errors.Is(err, ErrNoSourceStore) {
		t.Errorf("got %v, want ErrNoSourceStore", err)
	}
}

// TestLoadSource checks the bulk source boundary.
func TestLoadSource(t *testing.T) {
	in, io := newTestInterp()
	err := in.LoadSource("10 PRINT 7\n\n20 END\n")
	if err != nil {
		t.Fatalf("LoadSource failed: %v", err)
	}
	feed(t, in, "RUN")
	if got := io.out.String(); got != "7\n" {
		t.Errorf("output %q, want %q", got, "7\n")
	}

	if err := in.LoadSource("PRINT 1"); !errors.Is(err, ErrInvalidLineNumber) {
		t.Errorf("unnumbered line: got %v, want ErrInvalidLineNumber", err)
	}
}

// TestStoredLineErrorsAreLocal checks that a bad line is rejected without
// touching stored neighbors, and that the error names the offending line.
func TestStoredLineErrorsAreLocal(t *testing.T) {
	in, io := newTestInterp()
	feed(t, in, "10 PRINT 1")
	err := in.Execute("20 PRINT \"OOPS")
	if !errors.Is(err, ErrUnterminatedString) {
		t.Fatalf("got %v, want ErrUnterminatedString", err)
	}
	// The line fails in the scanner, before it is parsed; the error must
	// still carry the stored line number.
	if !strings.Contains(err.Error(), "IN LINE 20") {
		t.Errorf("lex error %q does not name line 20", err.Error())
	}
	if err := in.Execute("30 LET A = 1 ; 2"); !strings.Contains(err.Error(), "IN LINE 30") {
		t.Errorf("lex error %q does not name line 30", err.Error())
	}
	feed(t, in, "RUN")
	if got := io.out.String(); got != "1\n" {
		t.Errorf("output %q, want %q", got, "1\n")
	}

	// An immediate-mode lex error still reports no line.
	if err := in.Execute(`PRINT "BAD`); strings.Contains(err.Error(), "IN LINE") {
		t.Errorf("immediate lex error %q must not carry a line number", err.Error())
	}
}

// TestInterrupt cancels an endless loop from another goroutine.
func TestInterrupt(t *testing.T) {
	in, _ := newTestInterp()
	feed(t, in, "10 GOTO 10")

	done := make(chan error, 1)
	go func() {
		done <- in.Execute("RUN")
	}()

	time.Sleep(50 * time.Millisecond)
	in.Interrupt()

	select {
	case err := <-done:
		if !errors.Is(err, ErrInterrupted) {
			t.Fatalf("got %v, want ErrInterrupted", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("interrupt did not stop the run")
	}
	if in.State() != StateHalted {
		t.Errorf("state %v after interrupt, want halted", in.State())
	}
}
