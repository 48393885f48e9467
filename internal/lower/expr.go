package lower

import (
	"github.com/xyproto/c67cc/internal/ast"
	"github.com/xyproto/c67cc/internal/ctype"
	"github.com/xyproto/c67cc/internal/diag"
	"github.com/xyproto/c67cc/internal/il"
	"github.com/xyproto/c67cc/internal/token"
)

// lowerLvalue resolves e to the ILValue that IS its address (to be used
// as the Ptr operand of a ReadAt/SetAt), per spec.md section 4.4's lvalue
// handling. Lvalue-ness is decided structurally from the AST node kind,
// not by inspecting any returned Value's flags, so the same *il.Value
// identity flows straight through to liveness without ever being copied
// or re-wrapped (e.g. `*p` simply reuses p's own rvalue as the address).
func (lw *Lowerer) lowerLvalue(e ast.Expr) (*il.Value, bool) {
	switch n := e.(type) {
	case *ast.Ident:
		sym := lw.env.Lookup(n.Name)
		if sym == nil {
			lw.diags.Errorf(diag.Declaration, n.Position(), "use of undeclared identifier %q", n.Name)
			return nil, false
		}
		if sym.IsEnumConst {
			lw.diags.Errorf(diag.TypeError, n.Position(), "enumeration constant %q is not assignable", n.Name)
			return nil, false
		}
		if sym.Type.Kind == ctype.Function {
			lw.diags.Errorf(diag.TypeError, n.Position(), "function %q is not an lvalue", n.Name)
			return nil, false
		}
		if slot, ok := lw.locals[sym]; ok && slot != nil {
			return slot, true
		}
		if sym.GlobalLabel == "" {
			lw.diags.Errorf(diag.LoweringInternal, n.Position(), "%q has no storage", n.Name)
			return nil, false
		}
		return lw.fn.Factory.NewNamed(ctype.NewPointer(sym.Type), sym.GlobalLabel, true), true

	case *ast.IndexExpr:
		base := lw.lowerRvalue(n.X)
		if base.Type.Kind != ctype.Pointer {
			lw.diags.Errorf(diag.TypeError, n.Position(), "subscripted value is not an array or pointer")
			return nil, false
		}
		idx := lw.lowerRvalue(n.Index)
		return lw.pointerAdd(base, idx, n.Position()), true

	case *ast.MemberExpr:
		var base *il.Value
		if n.Arrow {
			base = lw.lowerRvalue(n.X)
			if base.Type.Kind != ctype.Pointer {
				lw.diags.Errorf(diag.TypeError, n.Position(), "member reference base type is not a pointer")
				return nil, false
			}
		} else {
			addr, ok := lw.lowerLvalue(n.X)
			if !ok {
				return nil, false
			}
			base = addr
		}
		st := base.Type.Pointee
		if st.Kind != ctype.StructOrUnion {
			lw.diags.Errorf(diag.TypeError, n.Position(), "member reference base type is not a struct or union")
			return nil, false
		}
		m, found := st.Tag.Member(n.Field)
		if !found {
			lw.diags.Errorf(diag.TypeError, n.Position(), "no member named %q", n.Field)
			return nil, false
		}
		out := lw.fn.Factory.NewLocal(ctype.NewPointer(m.Type))
		lw.fn.Emit(&il.PointerAdd{Out: out, Ptr: base, Offset: lw.fn.Factory.NewLiteral(ctype.Long, int64(m.Offset))})
		return out, true

	case *ast.UnaryExpr:
		if n.Op == "*" {
			ptr := lw.lowerRvalue(n.X)
			if ptr.Type.Kind != ctype.Pointer {
				lw.diags.Errorf(diag.TypeError, n.Position(), "indirection requires a pointer operand")
				return nil, false
			}
			return ptr, true
		}
	}
	lw.diags.Errorf(diag.TypeError, e.Position(), "expression is not assignable")
	return nil, false
}

// loadFrom reads the value currently stored at address addr, applying
// array/function decay and leaving struct/union values as their address
// (the degenerate by-value case spec.md section 4.4 documents).
func (lw *Lowerer) loadFrom(addr *il.Value) *il.Value {
	elem := addr.Type.Pointee
	switch elem.Kind {
	case ctype.Array:
		out := lw.fn.Factory.NewLocal(ctype.NewPointer(elem.Elem))
		lw.fn.Emit(&il.AddrOf{Out: out, A: addr})
		return out
	case ctype.Function, ctype.StructOrUnion:
		return addr
	default:
		out := lw.fn.Factory.NewLocal(elem)
		lw.fn.Emit(&il.ReadAt{Out: out, Ptr: addr})
		return out
	}
}

func (lw *Lowerer) toBool(v *il.Value) *il.Value {
	zero := lw.fn.Factory.NewLiteral(v.Type, 0)
	out := lw.fn.Factory.NewLocal(ctype.Int)
	lw.fn.Emit(&il.BinOp{Op: il.OpNeq, Out: out, A: v, B: zero})
	return out
}

// convertTo converts v to target per the assignment/usual-arithmetic
// conversions of spec.md section 4.1, inserting an explicit SET between
// differently-represented values (spec.md section 4.3's rule that
// arithmetic commands require identically-typed operands).
func (lw *Lowerer) convertTo(v *il.Value, target *ctype.Type, pos token.Position) *il.Value {
	if v.Type == target {
		return v
	}
	if target.Kind == ctype.Void {
		return v
	}
	out := lw.fn.Factory.NewLocal(target)
	lw.fn.Emit(&il.Set{Dest: out, Src: v})
	return out
}

// assignConvert is convertTo plus the assignment-compatibility check
// spec.md section 4.1 requires at assignment, initialization, argument
// passing, and return (but not at an explicit cast, which permits more
// conversions than assignment and so calls convertTo directly instead).
func (lw *Lowerer) assignConvert(v *il.Value, target *ctype.Type, pos token.Position) *il.Value {
	isNullConstant := v.Class == il.Literal && v.LiteralValue == 0 && v.Type.IsInteger()
	if ctype.AssignmentConversion(target, v.Type, isNullConstant) == ctype.Forbidden {
		lw.diags.Errorf(diag.TypeError, pos, "cannot convert %s to %s", v.Type, target)
	}
	return lw.convertTo(v, target, pos)
}

func (lw *Lowerer) binArith(op il.Op, x, y *il.Value, pos token.Position) *il.Value {
	t := ctype.UsualArithmeticConversions(x.Type, y.Type)
	x = lw.convertTo(x, t, pos)
	y = lw.convertTo(y, t, pos)
	out := lw.fn.Factory.NewLocal(t)
	lw.fn.Emit(&il.BinOp{Op: op, Out: out, A: x, B: y})
	return out
}

func (lw *Lowerer) shiftOp(op il.Op, x, y *il.Value, pos token.Position) *il.Value {
	t := ctype.PromoteInteger(x.Type)
	x = lw.convertTo(x, t, pos)
	y = lw.convertTo(y, ctype.Int, pos)
	out := lw.fn.Factory.NewLocal(t)
	lw.fn.Emit(&il.BinOp{Op: op, Out: out, A: x, B: y})
	return out
}

func (lw *Lowerer) compareOp(op il.Op, x, y *il.Value, pos token.Position) *il.Value {
	if x.Type.Kind != ctype.Pointer && y.Type.Kind != ctype.Pointer {
		t := ctype.UsualArithmeticConversions(x.Type, y.Type)
		x = lw.convertTo(x, t, pos)
		y = lw.convertTo(y, t, pos)
	}
	out := lw.fn.Factory.NewLocal(ctype.Bool)
	lw.fn.Emit(&il.BinOp{Op: op, Out: out, A: x, B: y})
	return out
}

func (lw *Lowerer) pointerAdd(ptr, idx *il.Value, pos token.Position) *il.Value {
	elem := ptr.Type.Pointee
	sz := int64(1)
	if elem.IsComplete() {
		sz = int64(elem.Size())
	}
	idx = lw.convertTo(idx, ctype.Long, pos)
	offset := idx
	if sz != 1 {
		scaled := lw.fn.Factory.NewLocal(ctype.Long)
		lw.fn.Emit(&il.BinOp{Op: il.OpMult, Out: scaled, A: idx, B: lw.fn.Factory.NewLiteral(ctype.Long, sz)})
		offset = scaled
	}
	out := lw.fn.Factory.NewLocal(ptr.Type)
	lw.fn.Emit(&il.PointerAdd{Out: out, Ptr: ptr, Offset: offset})
	return out
}

func (lw *Lowerer) pointerSub(ptr, idx *il.Value, pos token.Position) *il.Value {
	elem := ptr.Type.Pointee
	sz := int64(1)
	if elem.IsComplete() {
		sz = int64(elem.Size())
	}
	idx = lw.convertTo(idx, ctype.Long, pos)
	offset := idx
	if sz != 1 {
		scaled := lw.fn.Factory.NewLocal(ctype.Long)
		lw.fn.Emit(&il.BinOp{Op: il.OpMult, Out: scaled, A: idx, B: lw.fn.Factory.NewLiteral(ctype.Long, sz)})
		offset = scaled
	}
	out := lw.fn.Factory.NewLocal(ptr.Type)
	lw.fn.Emit(&il.PointerSub{Out: out, Ptr: ptr, Offset: offset})
	return out
}

func (lw *Lowerer) pointerDiff(a, b *il.Value, pos token.Position) *il.Value {
	elemSize := 1
	if a.Type.Pointee.IsComplete() {
		elemSize = a.Type.Pointee.Size()
	}
	out := lw.fn.Factory.NewLocal(ctype.Long)
	lw.fn.Emit(&il.PointerDiff{Out: out, A: a, B: b, ElemSize: elemSize})
	return out
}

func (lw *Lowerer) applyBinaryOp(opStr string, x, y *il.Value, pos token.Position) *il.Value {
	switch opStr {
	case "+":
		if x.Type.Kind == ctype.Pointer {
			return lw.pointerAdd(x, y, pos)
		}
		if y.Type.Kind == ctype.Pointer {
			return lw.pointerAdd(y, x, pos)
		}
		return lw.binArith(il.OpAdd, x, y, pos)
	case "-":
		if x.Type.Kind == ctype.Pointer && y.Type.Kind == ctype.Pointer {
			return lw.pointerDiff(x, y, pos)
		}
		if x.Type.Kind == ctype.Pointer {
			return lw.pointerSub(x, y, pos)
		}
		return lw.binArith(il.OpSub, x, y, pos)
	case "*":
		return lw.binArith(il.OpMult, x, y, pos)
	case "/":
		return lw.binArith(il.OpDiv, x, y, pos)
	case "%":
		return lw.binArith(il.OpMod, x, y, pos)
	case "&":
		return lw.binArith(il.OpAnd, x, y, pos)
	case "|":
		return lw.binArith(il.OpOr, x, y, pos)
	case "^":
		return lw.binArith(il.OpXor, x, y, pos)
	case "<<":
		return lw.shiftOp(il.OpLShift, x, y, pos)
	case ">>":
		return lw.shiftOp(il.OpRShift, x, y, pos)
	case "==":
		return lw.compareOp(il.OpEq, x, y, pos)
	case "!=":
		return lw.compareOp(il.OpNeq, x, y, pos)
	case "<":
		return lw.compareOp(il.OpLt, x, y, pos)
	case "<=":
		return lw.compareOp(il.OpLe, x, y, pos)
	case ">":
		return lw.compareOp(il.OpGt, x, y, pos)
	case ">=":
		return lw.compareOp(il.OpGe, x, y, pos)
	default:
		lw.errf(pos, "unsupported operator %q", opStr)
		return lw.poison()
	}
}

func (lw *Lowerer) nextStringLabel() string {
	lw.strLabelSeq++
	return ".Lstr" + itoaLocal(lw.strLabelSeq)
}

func (lw *Lowerer) lowerStringLiteralInto(slot *il.Value, sl *ast.StringLit) {
	label := lw.nextStringLabel()
	lw.prog.Strings = append(lw.prog.Strings, &il.StringLiteralData{Label: label, Bytes: sl.Value})
	src := lw.fn.Factory.NewStringLiteral(slot.Type.Pointee, label)
	lw.fn.Emit(&il.StructMemberCopy{DestPtr: slot, SrcPtr: src, Size: slot.Type.Pointee.Size()})
}

func (lw *Lowerer) lowerCallee(e ast.Expr) *il.Value {
	if id, ok := e.(*ast.Ident); ok {
		if sym := lw.env.Lookup(id.Name); sym != nil && sym.Type.Kind == ctype.Function {
			return lw.fn.Factory.NewNamed(sym.Type, sym.GlobalLabel, false)
		}
	}
	return lw.lowerRvalue(e)
}

func (lw *Lowerer) defaultArgPromote(v *il.Value) *il.Value {
	if v.Type.IsInteger() {
		return lw.convertTo(v, ctype.PromoteInteger(v.Type), token.Position{})
	}
	return v
}

// lowerRvalue lowers e and returns the ILValue of its result, inserting
// whatever loads/conversions the expression's meaning requires.
func (lw *Lowerer) lowerRvalue(e ast.Expr) *il.Value {
	switch n := e.(type) {
	case *ast.IntLit:
		t := ctype.Int
		switch {
		case n.Long && n.Unsigned:
			t = ctype.ULong
		case n.Long:
			t = ctype.Long
		case n.Unsigned:
			t = ctype.UInt
		case n.Value > 0x7fffffff:
			t = ctype.Long
		}
		return lw.fn.Factory.NewLiteral(t, int64(n.Value))

	case *ast.CharLit:
		return lw.fn.Factory.NewLiteral(ctype.Int, int64(int8(n.Value)))

	case *ast.StringLit:
		label := lw.nextStringLabel()
		lw.prog.Strings = append(lw.prog.Strings, &il.StringLiteralData{Label: label, Bytes: n.Value})
		return lw.fn.Factory.NewStringLiteral(ctype.NewPointer(ctype.Char), label)

	case *ast.Ident:
		sym := lw.env.Lookup(n.Name)
		if sym == nil {
			lw.diags.Errorf(diag.Declaration, n.Position(), "use of undeclared identifier %q", n.Name)
			return lw.poison()
		}
		if sym.IsEnumConst {
			return lw.fn.Factory.NewLiteral(ctype.Int, sym.EnumValue)
		}
		if sym.Type.Kind == ctype.Function {
			return lw.fn.Factory.NewNamed(sym.Type, sym.GlobalLabel, false)
		}
		addr, ok := lw.lowerLvalue(n)
		if !ok {
			return lw.poison()
		}
		return lw.loadFrom(addr)

	case *ast.IndexExpr, *ast.MemberExpr:
		addr, ok := lw.lowerLvalue(n)
		if !ok {
			return lw.poison()
		}
		return lw.loadFrom(addr)

	case *ast.UnaryExpr:
		switch n.Op {
		case "*":
			addr, ok := lw.lowerLvalue(n)
			if !ok {
				return lw.poison()
			}
			return lw.loadFrom(addr)
		case "&":
			if id, ok := n.X.(*ast.Ident); ok {
				if sym := lw.env.Lookup(id.Name); sym != nil && sym.Type.Kind == ctype.Function {
					return lw.lowerRvalue(n.X)
				}
			}
			addr, ok := lw.lowerLvalue(n.X)
			if !ok {
				lw.diags.Errorf(diag.TypeError, n.Position(), "cannot take the address of this expression")
				return lw.poison()
			}
			out := lw.fn.Factory.NewLocal(addr.Type)
			lw.fn.Emit(&il.AddrOf{Out: out, A: addr})
			return out
		case "-":
			v := lw.lowerRvalue(n.X)
			t := ctype.PromoteInteger(v.Type)
			v = lw.convertTo(v, t, n.Position())
			out := lw.fn.Factory.NewLocal(t)
			lw.fn.Emit(&il.UnOp{Op: il.OpNeg, Out: out, A: v})
			return out
		case "+":
			v := lw.lowerRvalue(n.X)
			return lw.convertTo(v, ctype.PromoteInteger(v.Type), n.Position())
		case "~":
			v := lw.lowerRvalue(n.X)
			t := ctype.PromoteInteger(v.Type)
			v = lw.convertTo(v, t, n.Position())
			out := lw.fn.Factory.NewLocal(t)
			lw.fn.Emit(&il.UnOp{Op: il.OpNot, Out: out, A: v})
			return out
		case "!":
			v := lw.lowerRvalue(n.X)
			zero := lw.fn.Factory.NewLiteral(v.Type, 0)
			out := lw.fn.Factory.NewLocal(ctype.Bool)
			lw.fn.Emit(&il.BinOp{Op: il.OpEq, Out: out, A: v, B: zero})
			return out
		default:
			lw.errf(n.Position(), "unsupported unary operator %q", n.Op)
			return lw.poison()
		}

	case *ast.IncDecExpr:
		addr, ok := lw.lowerLvalue(n.X)
		if !ok {
			lw.diags.Errorf(diag.TypeError, n.Position(), "expression is not assignable")
			return lw.poison()
		}
		cur := lw.loadFrom(addr)
		elem := addr.Type.Pointee
		deltaOp := "+"
		if n.Op == "--" {
			deltaOp = "-"
		}
		var newVal *il.Value
		if elem.Kind == ctype.Pointer {
			one := lw.fn.Factory.NewLiteral(ctype.Long, 1)
			if deltaOp == "+" {
				newVal = lw.pointerAdd(cur, one, n.Position())
			} else {
				newVal = lw.pointerSub(cur, one, n.Position())
			}
		} else {
			one := lw.fn.Factory.NewLiteral(elem, 1)
			newVal = lw.applyBinaryOp(deltaOp, cur, one, n.Position())
			newVal = lw.convertTo(newVal, elem, n.Position())
		}
		lw.fn.Emit(&il.SetAt{Ptr: addr, Src: newVal})
		if n.Prefix {
			return newVal
		}
		return cur

	case *ast.AssignExpr:
		addr, ok := lw.lowerLvalue(n.LHS)
		if !ok {
			lw.diags.Errorf(diag.TypeError, n.Position(), "assignment to non-lvalue expression")
			return lw.poison()
		}
		pointee := addr.Type.Pointee
		if pointee.Kind == ctype.StructOrUnion {
			src := lw.lowerRvalue(n.RHS)
			lw.fn.Emit(&il.StructMemberCopy{DestPtr: addr, SrcPtr: src, Size: pointee.Size()})
			return addr
		}
		rhs := lw.lowerRvalue(n.RHS)
		rhs = lw.assignConvert(rhs, pointee, n.RHS.Position())
		lw.fn.Emit(&il.SetAt{Ptr: addr, Src: rhs})
		return rhs

	case *ast.CompoundAssignExpr:
		addr, ok := lw.lowerLvalue(n.LHS)
		if !ok {
			lw.diags.Errorf(diag.TypeError, n.Position(), "assignment to non-lvalue expression")
			return lw.poison()
		}
		cur := lw.loadFrom(addr)
		rhs := lw.lowerRvalue(n.RHS)
		result := lw.applyBinaryOp(n.Op.Value, cur, rhs, n.Position())
		result = lw.convertTo(result, addr.Type.Pointee, n.Position())
		lw.fn.Emit(&il.SetAt{Ptr: addr, Src: result})
		return result

	case *ast.BinaryExpr:
		x := lw.lowerRvalue(n.X)
		y := lw.lowerRvalue(n.Y)
		return lw.applyBinaryOp(n.Op.Value, x, y, n.Position())

	case *ast.LogicalExpr:
		return lw.lowerLogical(n)

	case *ast.CondExpr:
		return lw.lowerCond(n)

	case *ast.CommaExpr:
		lw.lowerRvalue(n.X)
		return lw.lowerRvalue(n.Y)

	case *ast.CallExpr:
		return lw.lowerCall(n)

	case *ast.SizeofExpr:
		var t *ctype.Type
		if n.OfType != nil {
			t = lw.resolveDeclType(n.OfType, n.OfDecl)
		} else {
			t = lw.typeOf(n.Operand)
		}
		sz := int64(1)
		if t.IsComplete() {
			sz = int64(t.Size())
		} else {
			lw.diags.Errorf(diag.TypeError, n.Position(), "sizeof applied to an incomplete type %s", t)
		}
		out := lw.fn.Factory.NewLocal(ctype.ULong)
		lw.fn.Emit(&il.Load{Out: out, Imm: sz})
		return out

	case *ast.CastExpr:
		t := lw.resolveDeclType(n.Type, n.Decl)
		v := lw.lowerRvalue(n.X)
		return lw.convertTo(v, t, n.Position())
	}

	lw.diags.Errorf(diag.LoweringInternal, e.Position(), "unsupported expression construct")
	return lw.poison()
}

func (lw *Lowerer) lowerLogical(n *ast.LogicalExpr) *il.Value {
	result := lw.fn.Factory.NewLvalueLocal(ctype.Int)
	endLabel := lw.fn.NewLabel("logend")
	xv := lw.toBool(lw.lowerRvalue(n.X))
	if n.And {
		lw.fn.Emit(&il.SetAt{Ptr: result, Src: lw.fn.Factory.NewLiteral(ctype.Int, 0)})
		lw.fn.Emit(&il.JumpZero{Cond: xv, Target: endLabel})
	} else {
		lw.fn.Emit(&il.SetAt{Ptr: result, Src: lw.fn.Factory.NewLiteral(ctype.Int, 1)})
		lw.fn.Emit(&il.JumpNotZero{Cond: xv, Target: endLabel})
	}
	yv := lw.toBool(lw.lowerRvalue(n.Y))
	lw.fn.Emit(&il.SetAt{Ptr: result, Src: yv})
	lw.fn.Emit(&il.Label{Name: endLabel})
	out := lw.fn.Factory.NewLocal(ctype.Int)
	lw.fn.Emit(&il.ReadAt{Out: out, Ptr: result})
	return out
}

func (lw *Lowerer) lowerCond(n *ast.CondExpr) *il.Value {
	cond := lw.toBool(lw.lowerRvalue(n.Cond))
	elseLabel := lw.fn.NewLabel("condelse")
	endLabel := lw.fn.NewLabel("condend")
	lw.fn.Emit(&il.JumpZero{Cond: cond, Target: elseLabel})

	thenVal := lw.lowerRvalue(n.Then)
	resultType := thenVal.Type
	slot := lw.fn.Factory.NewLvalueLocal(resultType)
	lw.fn.Emit(&il.SetAt{Ptr: slot, Src: thenVal})
	lw.fn.Emit(&il.Jump{Target: endLabel})

	lw.fn.Emit(&il.Label{Name: elseLabel})
	elseVal := lw.lowerRvalue(n.Else)
	elseVal = lw.convertTo(elseVal, resultType, n.Else.Position())
	lw.fn.Emit(&il.SetAt{Ptr: slot, Src: elseVal})

	lw.fn.Emit(&il.Label{Name: endLabel})
	out := lw.fn.Factory.NewLocal(resultType)
	lw.fn.Emit(&il.ReadAt{Out: out, Ptr: slot})
	return out
}

func (lw *Lowerer) lowerCall(n *ast.CallExpr) *il.Value {
	calleeVal := lw.lowerCallee(n.Func)
	ft := calleeVal.Type
	if ft.Kind == ctype.Pointer {
		ft = ft.Pointee
	}
	retType := ctype.Int
	var paramTypes []*ctype.Type
	prototyped := false
	if ft.Kind == ctype.Function {
		retType = ft.Ret
		paramTypes = ft.Params
		prototyped = ft.Prototyped
	} else {
		lw.diags.Errorf(diag.TypeError, n.Position(), "called object is not a function or function pointer")
	}

	if prototyped && len(n.Args) != len(paramTypes) {
		lw.diags.Errorf(diag.TypeError, n.Position(), "call with %d arguments, function takes %d", len(n.Args), len(paramTypes))
	}

	args := make([]*il.Value, 0, len(n.Args))
	for i, a := range n.Args {
		av := lw.lowerRvalue(a)
		if prototyped && i < len(paramTypes) {
			av = lw.assignConvert(av, paramTypes[i], a.Position())
		} else {
			av = lw.defaultArgPromote(av)
		}
		args = append(args, av)
	}

	var out *il.Value
	if retType != ctype.VoidType {
		out = lw.fn.Factory.NewLocal(retType)
	}
	lw.fn.Emit(&il.Call{Out: out, Func: calleeVal, Args: args})
	if out == nil {
		return lw.fn.Factory.NewLiteral(ctype.Int, 0)
	}
	return out
}

// typeOf computes the type an expression would have without lowering it,
// used by `sizeof expr` (spec.md section 4.4: "operand is not lowered").
func (lw *Lowerer) typeOf(e ast.Expr) *ctype.Type {
	switch n := e.(type) {
	case *ast.IntLit:
		if n.Long {
			return ctype.Long
		}
		return ctype.Int
	case *ast.CharLit:
		return ctype.Int
	case *ast.StringLit:
		return ctype.NewPointer(ctype.Char)
	case *ast.Ident:
		sym := lw.env.Lookup(n.Name)
		if sym == nil {
			return ctype.Int
		}
		if sym.IsEnumConst {
			return ctype.Int
		}
		return sym.Type
	case *ast.UnaryExpr:
		switch n.Op {
		case "*":
			pt := lw.typeOf(n.X)
			if pt.Kind == ctype.Pointer {
				return pt.Pointee
			}
			return ctype.Int
		case "&":
			return ctype.NewPointer(lw.typeOf(n.X))
		default:
			return ctype.PromoteInteger(lw.typeOf(n.X))
		}
	case *ast.IndexExpr:
		bt := lw.typeOf(n.X)
		if bt.Kind == ctype.Array {
			return bt.Elem
		}
		if bt.Kind == ctype.Pointer {
			return bt.Pointee
		}
		return ctype.Int
	case *ast.MemberExpr:
		bt := lw.typeOf(n.X)
		st := bt
		if n.Arrow && bt.Kind == ctype.Pointer {
			st = bt.Pointee
		}
		if st.Kind == ctype.StructOrUnion {
			if m, ok := st.Tag.Member(n.Field); ok {
				return m.Type
			}
		}
		return ctype.Int
	case *ast.BinaryExpr:
		xt, yt := lw.typeOf(n.X), lw.typeOf(n.Y)
		if xt.Kind == ctype.Pointer {
			return xt
		}
		if yt.Kind == ctype.Pointer {
			return yt
		}
		return ctype.UsualArithmeticConversions(xt, yt)
	case *ast.CastExpr:
		return lw.resolveDeclType(n.Type, n.Decl)
	case *ast.CallExpr:
		ft := lw.typeOf(n.Func)
		if ft.Kind == ctype.Pointer {
			ft = ft.Pointee
		}
		if ft.Kind == ctype.Function {
			return ft.Ret
		}
		return ctype.Int
	case *ast.SizeofExpr:
		return ctype.ULong
	case *ast.CondExpr:
		return lw.typeOf(n.Then)
	case *ast.AssignExpr:
		return lw.typeOf(n.LHS)
	case *ast.CompoundAssignExpr:
		return lw.typeOf(n.LHS)
	case *ast.IncDecExpr:
		return lw.typeOf(n.X)
	case *ast.CommaExpr:
		return lw.typeOf(n.Y)
	default:
		return ctype.Int
	}
}
