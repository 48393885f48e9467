package lower

import (
	"github.com/xyproto/c67cc/internal/ast"
	"github.com/xyproto/c67cc/internal/ctype"
	"github.com/xyproto/c67cc/internal/diag"
	"github.com/xyproto/c67cc/internal/il"
	"github.com/xyproto/c67cc/internal/symtab"
)

// lowerExternal lowers one file-scope declaration or function definition.
func (lw *Lowerer) lowerExternal(item ast.Node) {
	switch n := item.(type) {
	case nil:
		return
	case *ast.FuncDecl:
		lw.lowerFuncDecl(n)
	case *ast.VarDecl:
		lw.lowerGlobalVarDecl(n)
	case *ast.TagDecl:
		lw.lowerTagDecl(n)
	case *ast.TypedefDecl:
		lw.lowerTypedefDecl(n)
	case *ast.BlockStmt: // multi-declarator file-scope decl, e.g. `int a, b;`
		for _, sub := range n.Items {
			lw.lowerExternal(sub)
		}
	default:
		lw.diags.Errorf(diag.Declaration, item.Position(), "unsupported top-level construct")
	}
}

func (lw *Lowerer) lowerTagDecl(td *ast.TagDecl) {
	switch {
	case td.StructUnion != nil:
		lw.resolveStructUnion(td.StructUnion)
	case td.EnumSpec != nil:
		lw.resolveEnum(td.EnumSpec)
	}
}

func (lw *Lowerer) lowerTypedefDecl(n *ast.TypedefDecl) {
	t := lw.resolveDeclType(n.Type, n.Decl)
	if _, res := lw.env.Declare(n.Decl.Name, t, symtab.StorageTypedef, symtab.NoLinkage, true); res != symtab.DeclOK {
		lw.diags.Errorf(diag.Declaration, n.Position(), "typedef %q conflicts with a previous declaration", n.Decl.Name)
	}
}

func storageLinkage(storage ast.StorageClass, atFileScope bool) symtab.Linkage {
	switch storage {
	case ast.StorageStatic:
		if atFileScope {
			return symtab.Internal
		}
		return symtab.NoLinkage
	case ast.StorageExtern:
		return symtab.External
	default:
		if atFileScope {
			return symtab.External
		}
		return symtab.NoLinkage
	}
}

func (lw *Lowerer) lowerGlobalVarDecl(vd *ast.VarDecl) {
	t := lw.resolveDeclType(vd.Type, vd.Decl)
	if vd.Init != nil {
		if sl, ok := vd.Init.(*ast.StringLit); ok && t.Kind == ctype.Array && !t.HasLen {
			t = ctype.NewArray(t.Elem, len(sl.Value), true)
		}
	}

	linkage := storageLinkage(vd.Storage, true)
	hasInit := vd.Init != nil
	sym, res := lw.env.Declare(vd.Decl.Name, t, symtab.StorageStatic, linkage, hasInit)
	if res != symtab.DeclOK {
		lw.diags.Errorf(diag.Declaration, vd.Position(), "%q: %s", vd.Decl.Name, res.Error())
		return
	}
	sym.GlobalLabel = vd.Decl.Name

	if vd.Storage == ast.StorageExtern && !hasInit {
		return // declaration only, no storage to allocate
	}

	g := lw.globals[sym.GlobalLabel]
	if g == nil {
		g = &il.Global{Label: sym.GlobalLabel, Linkage: linkageStr(linkage)}
		lw.globals[sym.GlobalLabel] = g
		lw.prog.Globals = append(lw.prog.Globals, g)
	}
	g.Type = sym.Type

	if !hasInit {
		if !g.HasInit {
			g.Kind = il.GlobalBSS
		}
		return
	}

	if sl, ok := vd.Init.(*ast.StringLit); ok && sym.Type.Kind == ctype.Array {
		g.InitStr = sl.Value
		g.Kind = il.GlobalData
		g.HasInit = true
		return
	}
	v, ok := lw.evalConstInt(vd.Init)
	if !ok {
		lw.diags.Errorf(diag.TypeError, vd.Init.Position(), "initializer for %q is not a constant expression", vd.Decl.Name)
		return
	}
	g.InitInt = v
	g.Kind = il.GlobalData
	g.HasInit = true
}

func (lw *Lowerer) lowerFuncDecl(fd *ast.FuncDecl) {
	t := lw.resolveDeclType(fd.Type, fd.Decl)
	linkage := storageLinkage(fd.Storage, true)
	sym, res := lw.env.Declare(fd.Decl.Name, t, symtab.StorageStatic, linkage, fd.Body != nil)
	if res != symtab.DeclOK {
		lw.diags.Errorf(diag.Declaration, fd.Position(), "%q: %s", fd.Decl.Name, res.Error())
		return
	}
	sym.GlobalLabel = fd.Decl.Name
	if fd.Body == nil {
		return // prototype only
	}

	ilFn := il.NewFunction(fd.Decl.Name, t.Ret)
	ilFn.Linkage = linkageStr(linkage)

	prevFn, prevLocals := lw.fn, lw.locals
	lw.fn = ilFn
	lw.locals = map[*symtab.Symbol]*il.Value{}
	lw.env.PushScope()

	params := fd.Decl.Func.Params
	for i, p := range params {
		if i >= len(t.Params) {
			break
		}
		pname := p.Decl.Name
		ptype := t.Params[i]
		slot := ilFn.Factory.NewLvalueLocal(ptype)
		psym, res := lw.env.Declare(pname, ptype, symtab.StorageAutomatic, symtab.NoLinkage, true)
		if res != symtab.DeclOK {
			lw.diags.Errorf(diag.Declaration, p.Position(), "duplicate parameter name %q", pname)
		}
		lw.locals[psym] = slot
		ilFn.Params = append(ilFn.Params, il.Param{Name: pname, Type: ptype, Value: slot})
	}

	lw.lowerBlockBody(fd.Body)

	lw.env.PopScope()
	lw.fn, lw.locals = prevFn, prevLocals

	lw.prog.Functions = append(lw.prog.Functions, ilFn)
}

// lowerBlockBody lowers a function body or nested block's statements
// without pushing a second scope for the outermost function block (the
// scope already pushed to hold its parameters serves that purpose).
func (lw *Lowerer) lowerBlockBody(b *ast.BlockStmt) {
	for _, item := range b.Items {
		lw.lowerBlockItem(item)
	}
}

// lowerBlockItem handles one block-scope declaration or statement.
func (lw *Lowerer) lowerBlockItem(item ast.Node) {
	switch n := item.(type) {
	case nil:
		return
	case *ast.VarDecl:
		lw.lowerLocalVarDecl(n)
	case *ast.FuncDecl:
		// A nested function prototype (no local function definitions in
		// C): declare in the current scope so it may be called or its
		// address taken, but emit nothing further.
		t := lw.resolveDeclType(n.Type, n.Decl)
		linkage := storageLinkage(n.Storage, false)
		if linkage == symtab.NoLinkage {
			linkage = symtab.External
		}
		sym, res := lw.env.Declare(n.Decl.Name, t, symtab.StorageStatic, linkage, false)
		if res == symtab.DeclOK {
			sym.GlobalLabel = n.Decl.Name
		}
	case *ast.TagDecl:
		lw.lowerTagDecl(n)
	case *ast.TypedefDecl:
		lw.lowerTypedefDecl(n)
	case *ast.BlockStmt:
		lw.lowerStmt(n)
	case ast.Stmt:
		lw.lowerStmt(n)
	default:
		lw.diags.Errorf(diag.Declaration, item.Position(), "unsupported block-scope construct")
	}
}

func (lw *Lowerer) lowerLocalVarDecl(vd *ast.VarDecl) {
	t := lw.resolveDeclType(vd.Type, vd.Decl)
	if vd.Init != nil {
		if sl, ok := vd.Init.(*ast.StringLit); ok && t.Kind == ctype.Array && !t.HasLen {
			t = ctype.NewArray(t.Elem, len(sl.Value), true)
		}
	}

	if vd.Storage == ast.StorageStatic {
		lw.lowerStaticLocalVarDecl(vd, t)
		return
	}

	sym, res := lw.env.Declare(vd.Decl.Name, t, symtab.StorageAutomatic, symtab.NoLinkage, vd.Init != nil)
	if res != symtab.DeclOK {
		lw.diags.Errorf(diag.Declaration, vd.Position(), "%q: %s", vd.Decl.Name, res.Error())
		return
	}
	slot := lw.fn.Factory.NewLvalueLocal(t)
	lw.locals[sym] = slot

	if vd.Init == nil {
		return
	}
	if sl, ok := vd.Init.(*ast.StringLit); ok && t.Kind == ctype.Array {
		lw.lowerStringLiteralInto(slot, sl)
		return
	}
	val := lw.lowerRvalue(vd.Init)
	val = lw.assignConvert(val, t, vd.Init.Position())
	lw.fn.Emit(&il.SetAt{Ptr: slot, Src: val})
}

// lowerStaticLocalVarDecl gives a function-local `static` variable file
// storage duration: a unique global label, with per-call re-initialization
// suppressed (spec.md section 8's "static-local-counter independence").
func (lw *Lowerer) lowerStaticLocalVarDecl(vd *ast.VarDecl, t *ctype.Type) {
	label := lw.fn.Name + "." + vd.Decl.Name + "." + itoaLocal(len(lw.globals))
	sym, res := lw.env.Declare(vd.Decl.Name, t, symtab.StorageStatic, symtab.NoLinkage, true)
	if res != symtab.DeclOK {
		lw.diags.Errorf(diag.Declaration, vd.Position(), "%q: %s", vd.Decl.Name, res.Error())
		return
	}
	sym.GlobalLabel = label

	g := &il.Global{Label: label, Type: t, Linkage: "internal"}
	if vd.Init != nil {
		if v, ok := lw.evalConstInt(vd.Init); ok {
			g.InitInt = v
			g.Kind = il.GlobalData
			g.HasInit = true
		} else {
			lw.diags.Errorf(diag.TypeError, vd.Init.Position(), "initializer for static local %q is not a constant expression", vd.Decl.Name)
			g.Kind = il.GlobalBSS
		}
	} else {
		g.Kind = il.GlobalBSS
	}
	lw.globals[label] = g
	lw.prog.Globals = append(lw.prog.Globals, g)

	// Subsequent references resolve through env.Lookup + sym.GlobalLabel,
	// same path as any other named global (see lowerIdent).
	lw.locals[sym] = nil // present-but-nil marks "named global home", not a Local slot
}

func itoaLocal(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
