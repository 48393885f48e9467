package parser

import (
	"fmt"

	"github.com/xyproto/c67cc/internal/ast"
	"github.com/xyproto/c67cc/internal/token"
)

// expr parses a comma-expression, the widest grammar production.
func (p *Parser) expr() (ast.Expr, error) {
	x, err := p.assignExpr()
	if err != nil {
		return nil, err
	}
	for p.accept(token.Punct, ",") {
		y, err := p.assignExpr()
		if err != nil {
			return nil, err
		}
		x = &ast.CommaExpr{Base: base(x.Position()), X: x, Y: y}
	}
	return x, nil
}

var compoundOps = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"&=": true, "|=": true, "^=": true, "<<=": true, ">>=": true,
}

func compoundBase(op string) string {
	return op[:len(op)-1]
}

// assignExpr parses `conditional (= | += | ...) assignExpr`, right-
// associative, per C11's grammar.
func (p *Parser) assignExpr() (ast.Expr, error) {
	lhs, err := p.condExpr()
	if err != nil {
		return nil, err
	}
	if p.isPunct("=") {
		pos := p.advance().Pos
		rhs, err := p.assignExpr()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{Base: base(pos), LHS: lhs, RHS: rhs}, nil
	}
	if p.cur().Kind == token.Punct && compoundOps[p.cur().Value] {
		opTok := p.advance()
		rhs, err := p.assignExpr()
		if err != nil {
			return nil, err
		}
		baseOp := token.Token{Kind: token.Punct, Value: compoundBase(opTok.Value), Pos: opTok.Pos}
		return &ast.CompoundAssignExpr{Base: base(opTok.Pos), Op: baseOp, LHS: lhs, RHS: rhs}, nil
	}
	return lhs, nil
}

func (p *Parser) condExpr() (ast.Expr, error) {
	cond, err := p.logicalOr()
	if err != nil {
		return nil, err
	}
	if p.accept(token.Punct, "?") {
		then, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		els, err := p.condExpr()
		if err != nil {
			return nil, err
		}
		return &ast.CondExpr{Base: base(cond.Position()), Cond: cond, Then: then, Else: els}, nil
	}
	return cond, nil
}

func (p *Parser) logicalOr() (ast.Expr, error) {
	x, err := p.logicalAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(token.Punct, "||") {
		y, err := p.logicalAnd()
		if err != nil {
			return nil, err
		}
		x = &ast.LogicalExpr{Base: base(x.Position()), And: false, X: x, Y: y}
	}
	return x, nil
}

func (p *Parser) logicalAnd() (ast.Expr, error) {
	x, err := p.bitOr()
	if err != nil {
		return nil, err
	}
	for p.accept(token.Punct, "&&") {
		y, err := p.bitOr()
		if err != nil {
			return nil, err
		}
		x = &ast.LogicalExpr{Base: base(x.Position()), And: true, X: x, Y: y}
	}
	return x, nil
}

// binLevel is one precedence level of left-associative binary operators.
type binLevel struct {
	ops  []string
	next func(*Parser) (ast.Expr, error)
}

func (p *Parser) bitOr() (ast.Expr, error)  { return p.binaryLevel([]string{"|"}, (*Parser).bitXor) }
func (p *Parser) bitXor() (ast.Expr, error) { return p.binaryLevel([]string{"^"}, (*Parser).bitAnd) }
func (p *Parser) bitAnd() (ast.Expr, error) { return p.binaryLevel([]string{"&"}, (*Parser).equality) }
func (p *Parser) equality() (ast.Expr, error) {
	return p.binaryLevel([]string{"==", "!="}, (*Parser).relational)
}
func (p *Parser) relational() (ast.Expr, error) {
	return p.binaryLevel([]string{"<", ">", "<=", ">="}, (*Parser).shift)
}
func (p *Parser) shift() (ast.Expr, error) {
	return p.binaryLevel([]string{"<<", ">>"}, (*Parser).additive)
}
func (p *Parser) additive() (ast.Expr, error) {
	return p.binaryLevel([]string{"+", "-"}, (*Parser).multiplicative)
}
func (p *Parser) multiplicative() (ast.Expr, error) {
	return p.binaryLevel([]string{"*", "/", "%"}, (*Parser).unary)
}

func (p *Parser) binaryLevel(ops []string, next func(*Parser) (ast.Expr, error)) (ast.Expr, error) {
	x, err := next(p)
	if err != nil {
		return nil, err
	}
	for {
		matched := ""
		if p.cur().Kind == token.Punct {
			for _, op := range ops {
				if p.cur().Value == op {
					matched = op
					break
				}
			}
		}
		if matched == "" {
			return x, nil
		}
		opTok := p.advance()
		y, err := next(p)
		if err != nil {
			return nil, err
		}
		x = &ast.BinaryExpr{Base: base(opTok.Pos), Op: opTok, X: x, Y: y}
	}
}

var unaryOps = map[string]bool{"-": true, "+": true, "~": true, "!": true, "&": true, "*": true}

func (p *Parser) unary() (ast.Expr, error) {
	pos := p.cur().Pos
	if p.isKeyword("sizeof") {
		return p.sizeofExpr()
	}
	if p.isPunct("++") || p.isPunct("--") {
		op := p.advance().Value
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.IncDecExpr{Base: base(pos), Op: op, Prefix: true, X: x}, nil
	}
	if p.cur().Kind == token.Punct && unaryOps[p.cur().Value] {
		op := p.advance().Value
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Base: base(pos), Op: op, X: x}, nil
	}
	return p.castExprOrUnary()
}

// castExprOrUnary handles `(type)expr` vs. a parenthesized expression:
// both start with '(', disambiguated by whether a type starts next.
func (p *Parser) castExprOrUnary() (ast.Expr, error) {
	if p.isPunct("(") && p.startsTypeAfterParen() {
		pos := p.advance().Pos
		ts, decl, err := p.typeName()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		x, err := p.castExprOrUnaryTail()
		if err != nil {
			return nil, err
		}
		return &ast.CastExpr{Base: base(pos), Type: ts, Decl: decl, X: x}, nil
	}
	return p.postfix()
}

// castExprOrUnaryTail parses the operand of a cast, which is itself a
// (possibly nested) cast-expression per C11 grammar.
func (p *Parser) castExprOrUnaryTail() (ast.Expr, error) {
	return p.unary()
}

func (p *Parser) startsTypeAfterParen() bool {
	save := p.pos
	defer func() { p.pos = save }()
	p.advance() // '('
	return p.atTypeStart()
}

func (p *Parser) sizeofExpr() (ast.Expr, error) {
	pos := p.advance().Pos
	if p.isPunct("(") && p.startsTypeAfterParen() {
		p.advance()
		ts, decl, err := p.typeName()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.SizeofExpr{Base: base(pos), OfType: ts, OfDecl: decl}, nil
	}
	x, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &ast.SizeofExpr{Base: base(pos), Operand: x}, nil
}

func (p *Parser) postfix() (ast.Expr, error) {
	x, err := p.primary()
	if err != nil {
		return nil, err
	}
	for {
		pos := p.cur().Pos
		switch {
		case p.accept(token.Punct, "["):
			idx, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			x = &ast.IndexExpr{Base: base(pos), X: x, Index: idx}
		case p.accept(token.Punct, "("):
			var args []ast.Expr
			if !p.isPunct(")") {
				for {
					a, err := p.assignExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if !p.accept(token.Punct, ",") {
						break
					}
				}
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			x = &ast.CallExpr{Base: base(pos), Func: x, Args: args}
		case p.accept(token.Punct, "."):
			name, err := p.expect(token.Ident, "")
			if err != nil {
				return nil, err
			}
			x = &ast.MemberExpr{Base: base(pos), X: x, Field: name.Value}
		case p.accept(token.Punct, "->"):
			name, err := p.expect(token.Ident, "")
			if err != nil {
				return nil, err
			}
			x = &ast.MemberExpr{Base: base(pos), X: x, Field: name.Value, Arrow: true}
		case p.isPunct("++") || p.isPunct("--"):
			op := p.advance().Value
			x = &ast.IncDecExpr{Base: base(pos), Op: op, Prefix: false, X: x}
		default:
			return x, nil
		}
	}
}

func (p *Parser) primary() (ast.Expr, error) {
	t := p.cur()
	switch t.Kind {
	case token.IntLiteral:
		p.advance()
		return &ast.IntLit{Base: base(t.Pos), Value: t.IntValue, Unsigned: t.Suffix.Unsigned, Long: t.Suffix.Long}, nil
	case token.CharLiteral:
		p.advance()
		return &ast.CharLit{Base: base(t.Pos), Value: t.Str[0]}, nil
	case token.StringLiteral:
		p.advance()
		val := append([]byte{}, t.Str...)
		for p.cur().Kind == token.StringLiteral { // adjacent string-literal concatenation
			nxt := p.advance()
			val = append(val[:len(val)-1], nxt.Str...)
		}
		return &ast.StringLit{Base: base(t.Pos), Value: val}, nil
	case token.Ident:
		p.advance()
		return &ast.Ident{Base: base(t.Pos), Name: t.Value}, nil
	case token.Punct:
		if t.Value == "(" {
			p.advance()
			x, err := p.expr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return x, nil
		}
	}
	return nil, fmt.Errorf("%s: unexpected token %q", t.Pos, t)
}
