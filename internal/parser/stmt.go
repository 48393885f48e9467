package parser

import (
	"github.com/xyproto/c67cc/internal/ast"
	"github.com/xyproto/c67cc/internal/token"
)

func (p *Parser) block() (*ast.BlockStmt, error) {
	pos := p.cur().Pos
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	b := &ast.BlockStmt{Base: base(pos)}
	for !p.isPunct("}") {
		item, err := p.blockItem()
		if err != nil {
			return nil, err
		}
		if item != nil {
			b.Items = append(b.Items, item)
		}
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Parser) blockItem() (ast.Node, error) {
	if p.atTypeStart() {
		storage, isTypedef, err := p.storageClass()
		if err != nil {
			return nil, err
		}
		pos := p.cur().Pos
		ts, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		if p.isPunct(";") {
			p.advance()
			return &ast.TagDecl{Base: base(pos), StructUnion: ts.StructUnion, EnumSpec: ts.EnumSpec}, nil
		}
		decl, err := p.declarator()
		if err != nil {
			return nil, err
		}
		if isTypedef {
			p.typedefs[decl.Name] = true
			if err := p.expectPunct(";"); err != nil {
				return nil, err
			}
			return &ast.TypedefDecl{Base: base(pos), Type: ts, Decl: decl}, nil
		}
		return p.restOfVarDecl(pos, storage, ts, decl)
	}
	return p.stmt()
}

func (p *Parser) stmt() (ast.Stmt, error) {
	pos := p.cur().Pos
	switch {
	case p.isPunct("{"):
		return p.block()
	case p.isPunct(";"):
		p.advance()
		return &ast.EmptyStmt{Base: base(pos)}, nil
	case p.isKeyword("if"):
		return p.ifStmt()
	case p.isKeyword("while"):
		return p.whileStmt()
	case p.isKeyword("do"):
		return p.doWhileStmt()
	case p.isKeyword("for"):
		return p.forStmt()
	case p.isKeyword("return"):
		return p.returnStmt()
	case p.isKeyword("break"):
		p.advance()
		if err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return &ast.BreakStmt{Base: base(pos)}, nil
	case p.isKeyword("continue"):
		p.advance()
		if err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return &ast.ContinueStmt{Base: base(pos)}, nil
	case p.isKeyword("goto"):
		p.advance()
		name, err := p.expect(token.Ident, "")
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return &ast.GotoStmt{Base: base(pos), Label: name.Value}, nil
	case p.isKeyword("switch"):
		return p.switchStmt()
	case p.cur().Kind == token.Ident && p.peekN(1).Kind == token.Punct && p.peekN(1).Value == ":":
		name := p.advance().Value
		p.advance() // ":"
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		return &ast.LabeledStmt{Base: base(pos), Label: name, Stmt: s}, nil
	default:
		x, err := p.expr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(";"); err != nil {
			return nil, err
		}
		return &ast.ExprStmt{Base: base(pos), X: x}, nil
	}
}

func (p *Parser) ifStmt() (ast.Stmt, error) {
	pos := p.advance().Pos
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	then, err := p.stmt()
	if err != nil {
		return nil, err
	}
	var els ast.Stmt
	if p.accept(token.Keyword, "else") {
		els, err = p.stmt()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStmt{Base: base(pos), Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) whileStmt() (ast.Stmt, error) {
	pos := p.advance().Pos
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.stmt()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Base: base(pos), Cond: cond, Body: body}, nil
}

func (p *Parser) doWhileStmt() (ast.Stmt, error) {
	pos := p.advance().Pos
	body, err := p.stmt()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Keyword, "while"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.DoWhileStmt{Base: base(pos), Body: body, Cond: cond}, nil
}

func (p *Parser) forStmt() (ast.Stmt, error) {
	pos := p.advance().Pos
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var initNode ast.Node
	if !p.isPunct(";") {
		if p.atTypeStart() {
			d, err := p.blockItem() // consumes trailing ';' itself
			if err != nil {
				return nil, err
			}
			initNode = d
			return p.forStmtRest(pos, initNode)
		}
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		initNode = &ast.ExprStmt{Base: base(e.Position()), X: e}
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return p.forStmtRest(pos, initNode)
}

func (p *Parser) forStmtRest(pos token.Position, initNode ast.Node) (ast.Stmt, error) {
	var cond ast.Expr
	if !p.isPunct(";") {
		c, err := p.expr()
		if err != nil {
			return nil, err
		}
		cond = c
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	var post ast.Expr
	if !p.isPunct(")") {
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		post = e
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.stmt()
	if err != nil {
		return nil, err
	}
	return &ast.ForStmt{Base: base(pos), Init: initNode, Cond: cond, Post: post, Body: body}, nil
}

func (p *Parser) returnStmt() (ast.Stmt, error) {
	pos := p.advance().Pos
	if p.accept(token.Punct, ";") {
		return &ast.ReturnStmt{Base: base(pos)}, nil
	}
	x, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Base: base(pos), X: x}, nil
}

func (p *Parser) switchStmt() (ast.Stmt, error) {
	pos := p.advance().Pos
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	tag, err := p.expr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	sw := &ast.SwitchStmt{Base: base(pos), Tag: tag, DefaultIndex: -1}
	for !p.isPunct("}") {
		cpos := p.cur().Pos
		if p.accept(token.Keyword, "case") {
			v, err := p.condExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(":"); err != nil {
				return nil, err
			}
			body, err := p.caseBody()
			if err != nil {
				return nil, err
			}
			sw.Cases = append(sw.Cases, &ast.CaseClause{Base: base(cpos), Value: v, Body: body})
			continue
		}
		if _, err := p.expect(token.Keyword, "default"); err != nil {
			return nil, err
		}
		if err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		body, err := p.caseBody()
		if err != nil {
			return nil, err
		}
		sw.Default = &ast.CaseClause{Base: base(cpos), Body: body}
		sw.DefaultIndex = len(sw.Cases)
	}
	if err := p.expectPunct("}"); err != nil {
		return nil, err
	}
	return sw, nil
}

func (p *Parser) caseBody() ([]ast.Node, error) {
	var body []ast.Node
	for !p.isPunct("}") && !p.isKeyword("case") && !p.isKeyword("default") {
		n, err := p.blockItem()
		if err != nil {
			return nil, err
		}
		if n != nil {
			body = append(body, n)
		}
	}
	return body, nil
}
