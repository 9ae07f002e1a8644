package basic

// parser consumes one line's token stream. Statement dispatch is by the
// leading keyword; expressions use layered recursive descent so that '*'
// and '/' bind tighter than '+' and '-' and all four are left-associative.
type parser struct {
	tokens []Token
	pos    int
}

// ParseLine parses one source line into a Line. A leading number makes it a
// stored-program line (a bare number deletes that line); otherwise the
// statement is immediate. Relational operators are only accepted inside an
// IF comparison.
func ParseLine(source string, tokens []Token) (*Line, error) {
	p := &parser{tokens: tokens}
	line := &Line{Source: source}

	if p.cur().Type == TokNumber {
		tok := p.cur()
		if tok.Num <= 0 {
			return nil, syntaxError(tok.Pos, ErrInvalidLineNumber, tok.Text)
		}
		line.Number = tok.Num
		p.advance()
		if p.cur().Type == TokEOL {
			// A bare line number deletes the stored line.
			return line, nil
		}
	}

	if p.cur().Type == TokEOL {
		return line, nil
	}

	stmt, err := p.parseStatement(line.Number > 0)
	if err != nil {
		return nil, withLine(err, line.Number)
	}
	if p.cur().Type != TokEOL {
		return nil, withLine(syntaxError(p.cur().Pos, ErrUnexpectedToken, p.cur().String()), line.Number)
	}
	line.Stmt = stmt
	return line, nil
}

func (p *parser) cur() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokEOL}
	}
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *parser) expect(tt TokenType) (Token, error) {
	tok := p.cur()
	if tok.Type != tt {
		return Token{}, syntaxError(tok.Pos, ErrUnexpectedToken, tok.String())
	}
	p.advance()
	return tok, nil
}

// parseStatement parses one statement. numbered marks a stored-program
// line, where the immediate-only commands are rejected.
func (p *parser) parseStatement(numbered bool) (Stmt, error) {
	tok := p.cur()

	if tok.Type == TokComment {
		p.advance()
		return &RemStmt{Comment: tok.Text}, nil
	}
	if tok.Type != TokIdent {
		return nil, syntaxError(tok.Pos, ErrUnexpectedToken, tok.String())
	}
	p.advance()

	switch tok.Text {
	case "PRINT":
		return p.parsePrint()
	case "IF":
		return p.parseIf(numbered)
	case "INPUT":
		return p.parseInput()
	case "LET":
		return p.parseLet()
	case "GOTO":
		target, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &GotoStmt{Target: target}, nil
	case "GOSUB":
		target, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &GosubStmt{Target: target}, nil
	case "RETURN":
		return &ReturnStmt{}, nil
	case "END":
		return &EndStmt{}, nil
	case "CLS":
		return &ClsStmt{}, nil
	case "RUN", "LIST", "NEW", "HELP", "LOAD", "SAVE":
		if numbered {
			return nil, syntaxError(tok.Pos, ErrImmediateOnly, tok.Text)
		}
		switch tok.Text {
		case "RUN":
			return &RunStmt{}, nil
		case "LIST":
			return &ListStmt{}, nil
		case "NEW":
			return &NewStmt{}, nil
		case "HELP":
			return &HelpStmt{}, nil
		case "LOAD":
			name, err := p.expect(TokString)
			if err != nil {
				return nil, err
			}
			return &LoadStmt{Name: name.Text}, nil
		default:
			name, err := p.expect(TokString)
			if err != nil {
				return nil, err
			}
			return &SaveStmt{Name: name.Text}, nil
		}
	default:
		return nil, syntaxError(tok.Pos, ErrUnknownStatement, tok.Text)
	}
}

func (p *parser) parsePrint() (Stmt, error) {
	stmt := &PrintStmt{}
	if p.cur().Type == TokEOL {
		return stmt, nil
	}
	for {
		if p.cur().Type == TokString {
			stmt.Items = append(stmt.Items, PrintItem{Text: p.cur().Text})
			p.advance()
		} else {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			stmt.Items = append(stmt.Items, PrintItem{Expr: expr})
		}
		if p.cur().Type != TokComma {
			return stmt, nil
		}
		p.advance()
	}
}

func (p *parser) parseIf(numbered bool) (Stmt, error) {
	left, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	var rel RelOp
	tok := p.cur()
	switch tok.Type {
	case TokEq:
		rel = RelEq
	case TokNe:
		rel = RelNe
	case TokLt:
		rel = RelLt
	case TokLe:
		rel = RelLe
	case TokGt:
		rel = RelGt
	case TokGe:
		rel = RelGe
	default:
		return nil, syntaxError(tok.Pos, ErrUnexpectedToken, tok.String())
	}
	p.advance()

	right, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	then := p.cur()
	if then.Type != TokIdent || then.Text != "THEN" {
		return nil, syntaxError(then.Pos, ErrUnexpectedToken, then.String())
	}
	p.advance()

	body, err := p.parseStatement(numbered)
	if err != nil {
		return nil, err
	}

	return &IfStmt{Left: left, Rel: rel, Right: right, Then: body}, nil
}

func (p *parser) parseInput() (Stmt, error) {
	stmt := &InputStmt{}
	for {
		name, err := p.parseVarName()
		if err != nil {
			return nil, err
		}
		stmt.Vars = append(stmt.Vars, name)
		if p.cur().Type != TokComma {
			return stmt, nil
		}
		p.advance()
	}
}

func (p *parser) parseLet() (Stmt, error) {
	name, err := p.parseVarName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokEq); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &LetStmt{Var: name, Expr: expr}, nil
}

// parseVarName accepts a single letter A-Z.
func (p *parser) parseVarName() (byte, error) {
	tok := p.cur()
	if tok.Type != TokIdent {
		return 0, syntaxError(tok.Pos, ErrUnexpectedToken, tok.String())
	}
	if len(tok.Text) != 1 || tok.Text[0] < 'A' || tok.Text[0] > 'Z' {
		return 0, syntaxError(tok.Pos, ErrInvalidVariable, tok.Text)
	}
	p.advance()
	return tok.Text[0], nil
}

// parseExpression handles '+' and '-', the lowest precedence level.
func (p *parser) parseExpression() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var op byte
		switch p.cur().Type {
		case TokPlus:
			op = '+'
		case TokMinus:
			op = '-'
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

// parseTerm handles '*' and '/'.
func (p *parser) parseTerm() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op byte
		switch p.cur().Type {
		case TokStar:
			op = '*'
		case TokSlash:
			op = '/'
		default:
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

// parseUnary handles leading signs, which may stack.
func (p *parser) parseUnary() (Expr, error) {
	switch p.cur().Type {
	case TokPlus:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: '+', Operand: operand}, nil
	case TokMinus:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: '-', Operand: operand}, nil
	default:
		return p.parsePrimary()
	}
}

// parsePrimary handles literals, variables and parenthesized expressions.
func (p *parser) parsePrimary() (Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case TokNumber:
		p.advance()
		return &NumberLit{Value: tok.Num}, nil
	case TokIdent:
		name, err := p.parseVarName()
		if err != nil {
			return nil, err
		}
		return &VarRef{Name: name}, nil
	case TokLParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, syntaxError(tok.Pos, ErrUnexpectedToken, tok.String())
	}
}
