// Package parser implements spec.md section 6's external recursive-
// descent parser contract: tokens in, an internal/ast tree out. Built so
// the pipeline is runnable end to end; the compiler core (spec.md
// sections 4.1-4.7) treats this package as an upstream collaborator.
package parser

import (
	"fmt"

	"github.com/xyproto/c67cc/internal/ast"
	"github.com/xyproto/c67cc/internal/token"
)

// Parser walks a flat token slice with a single lookahead cursor,
// following the teacher's parser.go structure (an index into the token
// slice plus small peek/expect helpers) rather than chibicc's
// pointer-to-pointer rest-token idiom, since Go has no by-reference
// output parameters as ergonomic as C's.
type Parser struct {
	toks     []token.Token
	pos      int
	typedefs map[string]bool
}

// Parse parses a complete translation unit.
func Parse(toks []token.Token) (*ast.BlockStmt, error) {
	p := &Parser{toks: toks, typedefs: map[string]bool{}}
	unit := &ast.BlockStmt{}
	for p.cur().Kind != token.EOF {
		d, err := p.externalDecl()
		if err != nil {
			return unit, err
		}
		if d != nil {
			unit.Items = append(unit.Items, d)
		}
	}
	return unit, nil
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peekN(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) is(kind token.Kind, val string) bool {
	t := p.cur()
	return t.Kind == kind && (val == "" || t.Value == val)
}

func (p *Parser) isPunct(v string) bool   { return p.is(token.Punct, v) }
func (p *Parser) isKeyword(v string) bool { return p.is(token.Keyword, v) }

func (p *Parser) accept(kind token.Kind, val string) bool {
	if p.is(kind, val) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(kind token.Kind, val string) (token.Token, error) {
	if !p.is(kind, val) {
		return token.Token{}, fmt.Errorf("%s: expected %q, found %q", p.cur().Pos, val, p.cur())
	}
	return p.advance(), nil
}

func (p *Parser) expectPunct(v string) error {
	_, err := p.expect(token.Punct, v)
	return err
}

var typeKeywords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"signed": true, "unsigned": true, "_Bool": true,
	"struct": true, "union": true, "enum": true,
	"const": true, "volatile": true,
}

func (p *Parser) atTypeStart() bool {
	t := p.cur()
	if t.Kind == token.Keyword && (typeKeywords[t.Value] || t.Value == "static" || t.Value == "extern" || t.Value == "typedef" || t.Value == "auto" || t.Value == "register") {
		return true
	}
	if t.Kind == token.Ident && p.typedefs[t.Value] {
		return true
	}
	return false
}
