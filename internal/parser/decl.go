package parser

import (
	"fmt"

	"github.com/xyproto/c67cc/internal/ast"
	"github.com/xyproto/c67cc/internal/token"
)

// externalDecl parses one file-scope declaration or function definition.
func (p *Parser) externalDecl() (ast.Node, error) {
	if p.isPunct(";") {
		p.advance()
		return nil, nil
	}
	pos := p.cur().Pos
	storage, isTypedef, err := p.storageClass()
	if err != nil {
		return nil, err
	}
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

	if decl.Func != nil && p.isPunct("{") {
		body, err := p.block()
		if err != nil {
			return nil, err
		}
		return &ast.FuncDecl{Base: base(pos), Storage: storage, Type: ts, Decl: decl, Body: body}, nil
	}

	return p.restOfVarDecl(pos, storage, ts, decl)
}

// restOfVarDecl parses the remainder of a (possibly multi-declarator)
// variable declaration after the first declarator has been read, and
// returns it wrapped as a BlockStmt when there is more than one
// declarator so callers that expect a single Node still work; for the
// common single-declarator case a bare *ast.VarDecl or *ast.FuncDecl is
// returned.
func (p *Parser) restOfVarDecl(pos token.Position, storage ast.StorageClass, ts *ast.TypeSpec, first *ast.Declarator) (ast.Node, error) {
	isConst := hasKeyword(ts.Keywords, "const")
	var decls []ast.Node
	cur := first
	for {
		var init ast.Expr
		if p.accept(token.Punct, "=") {
			e, err := p.assignExpr()
			if err != nil {
				return nil, err
			}
			init = e
		}
		if cur.Func != nil && init == nil {
			decls = append(decls, &ast.FuncDecl{Base: base(pos), Storage: storage, Type: ts, Decl: cur})
		} else {
			decls = append(decls, &ast.VarDecl{Base: base(pos), Storage: storage, IsConst: isConst, Type: ts, Decl: cur, Init: init})
		}
		if !p.accept(token.Punct, ",") {
			break
		}
		d, err := p.declarator()
		if err != nil {
			return nil, err
		}
		cur = d
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	if len(decls) == 1 {
		return decls[0], nil
	}
	blk := &ast.BlockStmt{Items: decls}
	blk.Pos = pos
	return blk, nil
}

func hasKeyword(ks []string, k string) bool {
	for _, s := range ks {
		if s == k {
			return true
		}
	}
	return false
}

func base(pos token.Position) ast.Base {
	return ast.Base{Pos: pos}
}

// storageClass consumes any leading storage-class/typedef keywords.
func (p *Parser) storageClass() (ast.StorageClass, bool, error) {
	storage := ast.StorageDefault
	isTypedef := false
	for {
		switch {
		case p.isKeyword("static"):
			storage = ast.StorageStatic
			p.advance()
		case p.isKeyword("extern"):
			storage = ast.StorageExtern
			p.advance()
		case p.isKeyword("typedef"):
			isTypedef = true
			p.advance()
		case p.isKeyword("auto") || p.isKeyword("register"):
			p.advance() // accepted, semantically equivalent to automatic storage
		default:
			return storage, isTypedef, nil
		}
	}
}

// typeSpec parses declaration-specifiers (minus storage class, already
// consumed): base-type keywords, or a struct/union/enum specifier, or a
// typedef name.
func (p *Parser) typeSpec() (*ast.TypeSpec, error) {
	pos := p.cur().Pos
	ts := &ast.TypeSpec{}
	ts.Pos = pos

	if p.isKeyword("struct") || p.isKeyword("union") {
		su, err := p.structUnionSpec()
		if err != nil {
			return nil, err
		}
		ts.StructUnion = su
		p.consumeQualifiers(ts)
		return ts, nil
	}
	if p.isKeyword("enum") {
		es, err := p.enumSpec()
		if err != nil {
			return nil, err
		}
		ts.EnumSpec = es
		p.consumeQualifiers(ts)
		return ts, nil
	}
	if p.cur().Kind == token.Ident && p.typedefs[p.cur().Value] {
		ts.TypedefName = p.advance().Value
		p.consumeQualifiers(ts)
		return ts, nil
	}

	for p.cur().Kind == token.Keyword && typeKeywords[p.cur().Value] {
		ts.Keywords = append(ts.Keywords, p.advance().Value)
	}
	if len(ts.Keywords) == 0 {
		return nil, fmt.Errorf("%s: expected a type", pos)
	}
	return ts, nil
}

func (p *Parser) consumeQualifiers(ts *ast.TypeSpec) {
	for p.isKeyword("const") || p.isKeyword("volatile") {
		ts.Keywords = append(ts.Keywords, p.advance().Value)
	}
}

func (p *Parser) structUnionSpec() (*ast.StructUnionSpec, error) {
	pos := p.cur().Pos
	isUnion := p.advance().Value == "union"
	su := &ast.StructUnionSpec{IsUnion: isUnion}
	su.Pos = pos
	if p.cur().Kind == token.Ident {
		su.Tag = p.advance().Value
	}
	if p.accept(token.Punct, "{") {
		su.HasBody = true
		for !p.isPunct("}") {
			fts, err := p.typeSpec()
			if err != nil {
				return nil, err
			}
			for {
				d, err := p.declarator()
				if err != nil {
					return nil, err
				}
				su.Members = append(su.Members, &ast.FieldDecl{Base: base(d.Pos), Type: fts, Decl: d})
				if !p.accept(token.Punct, ",") {
					break
				}
			}
			if err := p.expectPunct(";"); err != nil {
				return nil, err
			}
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
	}
	return su, nil
}

func (p *Parser) enumSpec() (*ast.EnumSpec, error) {
	pos := p.cur().Pos
	p.advance() // "enum"
	es := &ast.EnumSpec{}
	es.Pos = pos
	if p.cur().Kind == token.Ident {
		es.Tag = p.advance().Value
	}
	if p.accept(token.Punct, "{") {
		es.HasBody = true
		for !p.isPunct("}") {
			name, err := p.expect(token.Ident, "")
			if err != nil {
				return nil, err
			}
			ec := ast.EnumConstant{Name: name.Value}
			if p.accept(token.Punct, "=") {
				v, err := p.condExpr()
				if err != nil {
					return nil, err
				}
				ec.Value = v
			}
			es.Constants = append(es.Constants, ec)
			if !p.accept(token.Punct, ",") {
				break
			}
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
	}
	return es, nil
}

// declarator parses `*...name[dims](params)` in that nesting order,
// following C11's declarator grammar directly (pointer prefixes bind
// looser than the trailing array/function suffixes).
func (p *Parser) declarator() (*ast.Declarator, error) {
	pos := p.cur().Pos
	ptr := 0
	for p.accept(token.Punct, "*") {
		ptr++
		for p.isKeyword("const") || p.isKeyword("volatile") {
			p.advance()
		}
	}

	var d *ast.Declarator
	if p.accept(token.Punct, "(") {
		inner, err := p.declarator()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		d = inner
		d.Parenthesized = true
	} else {
		name := ""
		if p.cur().Kind == token.Ident {
			name = p.advance().Value
		}
		d = &ast.Declarator{Name: name}
		d.Pos = pos
	}
	d.PointerLvl += ptr

	for {
		if p.accept(token.Punct, "[") {
			dim := ast.ArrayDim{}
			if !p.isPunct("]") {
				e, err := p.assignExpr()
				if err != nil {
					return nil, err
				}
				dim.Size = e
				dim.HasSize = true
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			d.Array = append(d.Array, dim)
			continue
		}
		if p.accept(token.Punct, "(") {
			fd, err := p.funcDeclarator()
			if err != nil {
				return nil, err
			}
			d.Func = fd
			continue
		}
		break
	}
	return d, nil
}

func (p *Parser) funcDeclarator() (*ast.FuncDeclarator, error) {
	fd := &ast.FuncDeclarator{Prototyped: true}
	if p.isPunct(")") {
		p.advance()
		fd.Prototyped = false // `f()`: unspecified parameter list, spec.md 4.1
		return fd, nil
	}
	if p.isKeyword("void") && p.peekN(1).Value == ")" {
		p.advance()
		p.advance()
		return fd, nil // `f(void)`: prototyped, zero params
	}
	for {
		if p.accept(token.Punct, "...") {
			fd.Variadic = true
			break
		}
		_, isTypedef, err := p.storageClass()
		_ = isTypedef
		if err != nil {
			return nil, err
		}
		ts, err := p.typeSpec()
		if err != nil {
			return nil, err
		}
		d, err := p.declarator()
		if err != nil {
			return nil, err
		}
		fd.Params = append(fd.Params, &ast.ParamDecl{Base: base(d.Pos), Type: ts, Decl: d})
		if !p.accept(token.Punct, ",") {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return fd, nil
}

// typeName parses a standalone type-name, as used by sizeof(T) and casts.
func (p *Parser) typeName() (*ast.TypeSpec, *ast.Declarator, error) {
	ts, err := p.typeSpec()
	if err != nil {
		return nil, nil, err
	}
	d, err := p.declarator()
	if err != nil {
		return nil, nil, err
	}
	return ts, d, nil
}
