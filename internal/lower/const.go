package lower

import (
	"github.com/xyproto/c67cc/internal/ast"
	"github.com/xyproto/c67cc/internal/ctype"
)

// evalConstInt folds e as an integer constant expression (SPEC_FULL.md
// section 12's supplement, needed for array bounds, enum values, and static/
// global initializers). ok is false when e is not a constant expression
// this compiler can fold, in which case callers report their own
// diagnostic with the context-appropriate message.
func (lw *Lowerer) evalConstInt(e ast.Expr) (int64, bool) {
	switch n := e.(type) {
	case *ast.IntLit:
		return int64(n.Value), true

	case *ast.CharLit:
		return int64(int8(n.Value)), true

	case *ast.Ident:
		sym := lw.env.Lookup(n.Name)
		if sym != nil && sym.IsEnumConst {
			return sym.EnumValue, true
		}
		return 0, false

	case *ast.UnaryExpr:
		v, ok := lw.evalConstInt(n.X)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case "-":
			return -v, true
		case "+":
			return v, true
		case "~":
			return ^v, true
		case "!":
			return boolToI64(v == 0), true
		}
		return 0, false

	case *ast.BinaryExpr:
		x, ok1 := lw.evalConstInt(n.X)
		y, ok2 := lw.evalConstInt(n.Y)
		if !ok1 || !ok2 {
			return 0, false
		}
		switch n.Op.Value {
		case "+":
			return x + y, true
		case "-":
			return x - y, true
		case "*":
			return x * y, true
		case "/":
			if y == 0 {
				return 0, false
			}
			return x / y, true
		case "%":
			if y == 0 {
				return 0, false
			}
			return x % y, true
		case "&":
			return x & y, true
		case "|":
			return x | y, true
		case "^":
			return x ^ y, true
		case "<<":
			return x << uint(y), true
		case ">>":
			return x >> uint(y), true
		case "==":
			return boolToI64(x == y), true
		case "!=":
			return boolToI64(x != y), true
		case "<":
			return boolToI64(x < y), true
		case "<=":
			return boolToI64(x <= y), true
		case ">":
			return boolToI64(x > y), true
		case ">=":
			return boolToI64(x >= y), true
		}
		return 0, false

	case *ast.LogicalExpr:
		x, ok1 := lw.evalConstInt(n.X)
		if !ok1 {
			return 0, false
		}
		if n.And && x == 0 {
			return 0, true
		}
		if !n.And && x != 0 {
			return 1, true
		}
		y, ok2 := lw.evalConstInt(n.Y)
		if !ok2 {
			return 0, false
		}
		return boolToI64(y != 0), true

	case *ast.CondExpr:
		c, ok := lw.evalConstInt(n.Cond)
		if !ok {
			return 0, false
		}
		if c != 0 {
			return lw.evalConstInt(n.Then)
		}
		return lw.evalConstInt(n.Else)

	case *ast.SizeofExpr:
		var t *ctype.Type
		if n.OfType != nil {
			t = lw.resolveDeclType(n.OfType, n.OfDecl)
		} else {
			t = lw.typeOf(n.Operand)
		}
		if !t.IsComplete() {
			return 0, false
		}
		return int64(t.Size()), true

	case *ast.CastExpr:
		v, ok := lw.evalConstInt(n.X)
		if !ok {
			return 0, false
		}
		t := lw.resolveDeclType(n.Type, n.Decl)
		if !t.IsInteger() {
			return 0, false
		}
		return truncateToWidth(v, t), true

	case *ast.CommaExpr:
		return lw.evalConstInt(n.Y)
	}
	return 0, false
}

func boolToI64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func truncateToWidth(v int64, t *ctype.Type) int64 {
	switch t.Width {
	case 1:
		if t.Signed == ctype.Signed {
			return int64(int8(v))
		}
		return int64(uint8(v))
	case 2:
		if t.Signed == ctype.Signed {
			return int64(int16(v))
		}
		return int64(uint16(v))
	case 4:
		if t.Signed == ctype.Signed {
			return int64(int32(v))
		}
		return int64(uint32(v))
	default:
		return v
	}
}
