// Package parser implements the recursive-descent, precedence-climbing
// parser described by SPEC_FULL.md §A, turning a internal/lexer token
// stream into an internal/ast tree. Grounded on the precedence-climbing
// shape of original_source/src/parser/grammar.rs (a PEG grammar expressing
// the same operator precedence chain: or, and, equality, relational,
// additive, multiplicative, power, unary, postfix, primary), re-expressed
// by hand since the example pack carries no PEG/parser-combinator library.
package parser

import (
	"nyx/internal/ast"
	"nyx/internal/lexer"
	"nyx/internal/langerr"
)

type Parser struct {
	toks []lexer.Token
	pos  int
}

func Parse(src string) (ast.Program, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	prog, err := p.parseBlockStats(true)
	if err != nil {
		return nil, err
	}
	return prog, nil
}

func (p *Parser) cur() lexer.Token { return p.toks[p.pos] }

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) atSymbol(s string) bool {
	t := p.cur()
	return t.Kind == lexer.TokSymbol && t.Text == s
}

func (p *Parser) atKeyword(k string) bool {
	t := p.cur()
	return t.Kind == lexer.TokKeyword && t.Text == k
}

func (p *Parser) expectSymbol(s string) error {
	if !p.atSymbol(s) {
		return langerr.Syntaxf(p.cur().Line, "expected %q, got %q", s, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) expectKeyword(k string) error {
	if !p.atKeyword(k) {
		return langerr.Syntaxf(p.cur().Line, "expected keyword %q, got %q", k, p.cur().Text)
	}
	p.advance()
	return nil
}

func (p *Parser) expectId() (string, error) {
	t := p.cur()
	if t.Kind != lexer.TokId {
		return "", langerr.Syntaxf(t.Line, "expected identifier, got %q", t.Text)
	}
	p.advance()
	return t.Text, nil
}

// parseBlockStats parses a flat sequence of statements. At top level
// (topLevel==true) it runs until TokEOF; inside a `:` ... `;` block it is
// called after the leading `:` has been consumed and stops at the first
// unmatched `;` belonging to the *enclosing* construct, per the grammar
// `block := ':' stat (';' stat)* ';'?`.
func (p *Parser) parseBlockStats(topLevel bool) (ast.Block, error) {
	var stats ast.Block
	for {
		if topLevel && p.cur().Kind == lexer.TokEOF {
			return stats, nil
		}
		if !topLevel && (p.cur().Kind == lexer.TokEOF || p.atKeywordAny("else") || p.atSymbol(";")) {
			return stats, nil
		}
		stat, err := p.parseStat()
		if err != nil {
			return nil, err
		}
		stats = append(stats, stat)
		if p.atSymbol(";") {
			p.advance()
			continue
		}
		if topLevel && p.cur().Kind != lexer.TokEOF {
			return nil, langerr.Syntaxf(p.cur().Line, "expected \";\", got %q", p.cur().Text)
		}
		return stats, nil
	}
}

func (p *Parser) atKeywordAny(ks ...string) bool {
	for _, k := range ks {
		if p.atKeyword(k) {
			return true
		}
	}
	return false
}

// parseBlock parses a `:` stat (';' stat)* ';'? construct, as used after
// if/while/for/fun headers.
func (p *Parser) parseBlock() (ast.Block, error) {
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	return p.parseBlockStats(false)
}

func (p *Parser) parseStat() (ast.Stat, error) {
	line := p.cur().Line
	switch {
	case p.atKeyword("let"):
		return p.parseLet(line)
	case p.atKeyword("if"):
		return p.parseCond(line)
	case p.atKeyword("while"):
		return p.parseWhile(line)
	case p.atKeyword("for"):
		return p.parseFor(line)
	case p.atKeyword("return"):
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return ast.ReturnStat{Value: val}, nil
	default:
		return p.parseExprOrSetStat(line)
	}
}

func (p *Parser) parseLet(line int) (ast.Stat, error) {
	p.advance() // 'let'
	name, err := p.expectId()
	if err != nil {
		return nil, err
	}
	var declType ast.TypeExpr
	if p.atSymbol(":") {
		p.advance()
		declType, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectSymbol("="); err != nil {
		return nil, err
	}
	val, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ast.LetStat{Name: name, Type: declType, Value: val}, nil
}

func (p *Parser) parseCond(line int) (ast.Stat, error) {
	var branches []ast.Branch
	for {
		if err := p.expectKeyword("if"); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		branches = append(branches, ast.Branch{Cond: cond, Block: body})
		if p.atKeyword("else") {
			p.advance()
			if p.atKeyword("if") {
				continue
			}
			elseBody, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			branches = append(branches, ast.Branch{Cond: nil, Block: elseBody})
		}
		break
	}
	return ast.CondStat{Branches: branches}, nil
}

func (p *Parser) parseWhile(line int) (ast.Stat, error) {
	p.advance() // 'while'
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.WhileStat{Cond: cond, Body: body}, nil
}

func (p *Parser) parseFor(line int) (ast.Stat, error) {
	p.advance() // 'for'
	name, err := p.expectId()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	src, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.ForStat{Var: name, Source: src, Body: body}, nil
}

func (p *Parser) parseExprOrSetStat(line int) (ast.Stat, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.atSymbol("=") {
		p.advance()
		lv, err := exprToLExpr(e, line)
		if err != nil {
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return ast.SetStat{Target: lv, Value: val}, nil
	}
	return ast.ExprStat{Expr: e}, nil
}

func exprToLExpr(e ast.Expr, line int) (ast.LExpr, error) {
	switch v := e.(type) {
	case ast.IdExpr:
		return ast.IdLExpr{Name: v.Name}, nil
	case ast.IndexExpr:
		return ast.IndexLExpr{Target: v.Target, Index: v.Index}, nil
	default:
		return nil, langerr.Syntaxf(line, "invalid assignment target")
	}
}

// ---- Types ----

func (p *Parser) parseType() (ast.TypeExpr, error) {
	if p.atKeyword("any") || (p.cur().Kind == lexer.TokId && p.cur().Text == "Any") {
		p.advance()
		return ast.AnyTypeExpr{}, nil
	}
	if p.atSymbol("(") {
		p.advance()
		var params []ast.TypeExpr
		if !p.atSymbol(")") {
			for {
				t, err := p.parseType()
				if err != nil {
					return nil, err
				}
				params = append(params, t)
				if p.atSymbol(",") {
					p.advance()
					continue
				}
				break
			}
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		if err := p.expectSymbol("->"); err != nil {
			return nil, err
		}
		result, err := p.parseType()
		if err != nil {
			return nil, err
		}
		return ast.FunctionTypeExpr{Params: params, Result: result}, nil
	}
	name, err := p.expectId()
	if err != nil {
		return nil, err
	}
	return ast.NamedTypeExpr{Name: name}, nil
}

// ---- Expressions (precedence climbing) ----

func (p *Parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.BinOpExpr{Op: ast.Or, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseEq()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("and") {
		p.advance()
		right, err := p.parseEq()
		if err != nil {
			return nil, err
		}
		left = ast.BinOpExpr{Op: ast.And, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEq() (ast.Expr, error) {
	left, err := p.parseRel()
	if err != nil {
		return nil, err
	}
	for p.atSymbol("==") || p.atSymbol("!=") {
		op := ast.Eq
		if p.cur().Text == "!=" {
			op = ast.Neq
		}
		p.advance()
		right, err := p.parseRel()
		if err != nil {
			return nil, err
		}
		left = ast.BinOpExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseRel() (ast.Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for p.atSymbol("<") || p.atSymbol("<=") || p.atSymbol(">") || p.atSymbol(">=") {
		var op ast.BinOp
		switch p.cur().Text {
		case "<":
			op = ast.Lth
		case "<=":
			op = ast.Leq
		case ">":
			op = ast.Gth
		case ">=":
			op = ast.Geq
		}
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		left = ast.BinOpExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdd() (ast.Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.atSymbol("+") || p.atSymbol("-") {
		op := ast.Add
		if p.cur().Text == "-" {
			op = ast.Sub
		}
		p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = ast.BinOpExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMul() (ast.Expr, error) {
	left, err := p.parsePow()
	if err != nil {
		return nil, err
	}
	for p.atSymbol("*") || p.atSymbol("/") || p.atSymbol("%") {
		var op ast.BinOp
		switch p.cur().Text {
		case "*":
			op = ast.Mul
		case "/":
			op = ast.Div
		case "%":
			op = ast.Mod
		}
		p.advance()
		right, err := p.parsePow()
		if err != nil {
			return nil, err
		}
		left = ast.BinOpExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parsePow is right-associative, per the grammar's `powExpr := unary
// ('^' powExpr)?` production.
func (p *Parser) parsePow() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.atSymbol("^") {
		p.advance()
		right, err := p.parsePow()
		if err != nil {
			return nil, err
		}
		return ast.BinOpExpr{Op: ast.Pow, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.atSymbol("-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaOpExpr{Op: ast.Neg, Operand: operand}, nil
	}
	if p.atKeyword("not") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.UnaOpExpr{Op: ast.Not, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atSymbol("["):
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol("]"); err != nil {
				return nil, err
			}
			e = ast.IndexExpr{Target: e, Index: idx}
		case p.atSymbol("."):
			p.advance()
			name, err := p.expectId()
			if err != nil {
				return nil, err
			}
			e = ast.PropExpr{Target: e, Name: name}
		case p.atSymbol("("):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			e = ast.CallExpr{Callee: e, Args: args}
		default:
			return e, nil
		}
	}
}

func (p *Parser) parseArgs() ([]ast.Expr, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var args []ast.Expr
	if !p.atSymbol(")") {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, e)
			if p.atSymbol(",") {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch {
	case t.Kind == lexer.TokInt:
		p.advance()
		return ast.NewInt(t.Line, t.Int), nil
	case t.Kind == lexer.TokReal:
		p.advance()
		return ast.NewReal(t.Line, t.Real), nil
	case t.Kind == lexer.TokString:
		p.advance()
		return ast.NewString(t.Line, t.Text), nil
	case t.Kind == lexer.TokKeyword && t.Text == "nil":
		p.advance()
		return ast.NewNil(t.Line), nil
	case t.Kind == lexer.TokKeyword && t.Text == "true":
		p.advance()
		return ast.NewBool(t.Line, true), nil
	case t.Kind == lexer.TokKeyword && t.Text == "false":
		p.advance()
		return ast.NewBool(t.Line, false), nil
	case t.Kind == lexer.TokId:
		p.advance()
		return ast.NewId(t.Line, t.Text), nil
	case t.Kind == lexer.TokSymbol && t.Text == "[":
		return p.parseListLit(t.Line)
	case t.Kind == lexer.TokSymbol && t.Text == "(":
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return e, nil
	case t.Kind == lexer.TokKeyword && t.Text == "fun":
		return p.parseFunctionLit(t.Line)
	default:
		return nil, langerr.Syntaxf(t.Line, "unexpected token %q", t.Text)
	}
}

func (p *Parser) parseListLit(line int) (ast.Expr, error) {
	p.advance() // '['
	var elems []ast.Expr
	if !p.atSymbol("]") {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
			if p.atSymbol(",") {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expectSymbol("]"); err != nil {
		return nil, err
	}
	return ast.ListExpr{Elements: elems}, nil
}

func (p *Parser) parseFunctionLit(line int) (ast.Expr, error) {
	p.advance() // 'fun'
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	var params []ast.Param
	if !p.atSymbol(")") {
		for {
			name, err := p.expectId()
			if err != nil {
				return nil, err
			}
			var pt ast.TypeExpr = ast.AnyTypeExpr{}
			if p.atSymbol(":") {
				p.advance()
				pt, err = p.parseType()
				if err != nil {
					return nil, err
				}
			}
			params = append(params, ast.Param{Name: name, Type: pt})
			if p.atSymbol(",") {
				p.advance()
				continue
			}
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	var result ast.TypeExpr = ast.AnyTypeExpr{}
	if p.atSymbol("->") {
		p.advance()
		var err error
		result, err = p.parseType()
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return ast.FunctionExpr{Params: params, Result: result, Body: body}, nil
}
