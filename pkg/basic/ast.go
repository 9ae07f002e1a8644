package basic

// RelOp is a relational operator, valid only inside an IF comparison.
type RelOp int

const (
	RelEq RelOp = iota
	RelNe
	RelLt
	RelLe
	RelGt
	RelGe
)

func (op RelOp) String() string {
	switch op {
	case RelEq:
		return "="
	case RelNe:
		return "<>"
	case RelLt:
		return "<"
	case RelLe:
		return "<="
	case RelGt:
		return ">"
	case RelGe:
		return ">="
	}
	return "?"
}

// Expr is an expression tree node. The set of implementations is closed;
// the evaluator dispatches exhaustively over it.
type Expr interface {
	exprNode()
}

// NumberLit is an integer literal.
type NumberLit struct {
	Value int
}

// VarRef reads one of the 26 variables A-Z.
type VarRef struct {
	Name byte
}

// UnaryExpr applies a leading '+' or '-' sign.
type UnaryExpr struct {
	Op      byte
	Operand Expr
}

// BinaryExpr combines two expressions with '+', '-', '*' or '/'.
type BinaryExpr struct {
	Op    byte
	Left  Expr
	Right Expr
}

func (*NumberLit) exprNode()  {}
func (*VarRef) exprNode()     {}
func (*UnaryExpr) exprNode()  {}
func (*BinaryExpr) exprNode() {}

// Stmt is a statement AST node. Like Expr this is a closed set.
type Stmt interface {
	stmtNode()
}

// PrintItem is one element of a PRINT list: either a string literal (Expr
// nil) or an expression.
type PrintItem struct {
	Text string
	Expr Expr
}

// PrintStmt writes its items in order, then a newline.
type PrintStmt struct {
	Items []PrintItem
}

// IfStmt gates exactly one nested statement behind a comparison.
type IfStmt struct {
	Left  Expr
	Rel   RelOp
	Right Expr
	Then  Stmt
}

// InputStmt reads one integer per listed variable, in order.
type InputStmt struct {
	Vars []byte
}

// LetStmt assigns an expression value to a variable.
type LetStmt struct {
	Var  byte
	Expr Expr
}

// GotoStmt jumps to the line number its target evaluates to.
type GotoStmt struct {
	Target Expr
}

// GosubStmt jumps like GOTO and records the following line for RETURN.
type GosubStmt struct {
	Target Expr
}

// ReturnStmt resumes at the line recorded by the most recent GOSUB.
type ReturnStmt struct{}

// EndStmt halts the program.
type EndStmt struct{}

// RemStmt is a comment.
type RemStmt struct {
	Comment string
}

// ClsStmt clears the output surface.
type ClsStmt struct{}

// The following statements are only legal in immediate mode.

// RunStmt executes the stored program from its first line.
type RunStmt struct{}

// ListStmt writes the stored program source.
type ListStmt struct{}

// NewStmt clears the program, the variables and the call stack.
type NewStmt struct{}

// HelpStmt writes the statement summary.
type HelpStmt struct{}

// LoadStmt replaces the program with a named stored source.
type LoadStmt struct {
	Name string
}

// SaveStmt stores the program source under a name.
type SaveStmt struct {
	Name string
}

func (*PrintStmt) stmtNode()  {}
func (*IfStmt) stmtNode()     {}
func (*InputStmt) stmtNode()  {}
func (*LetStmt) stmtNode()    {}
func (*GotoStmt) stmtNode()   {}
func (*GosubStmt) stmtNode()  {}
func (*ReturnStmt) stmtNode() {}
func (*EndStmt) stmtNode()    {}
func (*RemStmt) stmtNode()    {}
func (*ClsStmt) stmtNode()    {}
func (*RunStmt) stmtNode()    {}
func (*ListStmt) stmtNode()   {}
func (*NewStmt) stmtNode()    {}
func (*HelpStmt) stmtNode()   {}
func (*LoadStmt) stmtNode()   {}
func (*SaveStmt) stmtNode()   {}

// Line is a parsed source line. Number is 0 for an immediate-mode line; a
// numbered line with a nil Stmt deletes that line from the program.
type Line struct {
	Number int
	Stmt   Stmt
	Source string
}
