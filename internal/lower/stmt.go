package lower

import (
	"github.com/xyproto/c67cc/internal/ast"
	"github.com/xyproto/c67cc/internal/ctype"
	"github.com/xyproto/c67cc/internal/diag"
	"github.com/xyproto/c67cc/internal/il"
)

func (lw *Lowerer) pushLoop(continueLabel, breakLabel string) {
	lw.continueLabels = append(lw.continueLabels, continueLabel)
	lw.breakLabels = append(lw.breakLabels, breakLabel)
}

func (lw *Lowerer) popLoop() {
	lw.continueLabels = lw.continueLabels[:len(lw.continueLabels)-1]
	lw.breakLabels = lw.breakLabels[:len(lw.breakLabels)-1]
}

func (lw *Lowerer) userLabel(name string) string {
	return lw.fn.Name + "_L_" + name
}

// lowerStmt lowers one statement, per spec.md section 4.4's control-flow
// commands (Label/Jump/JumpZero/JumpNotZero).
func (lw *Lowerer) lowerStmt(s ast.Stmt) {
	switch n := s.(type) {
	case nil:
		return

	case *ast.BlockStmt:
		lw.env.PushScope()
		lw.lowerBlockBody(n)
		lw.env.PopScope()

	case *ast.ExprStmt:
		lw.lowerRvalue(n.X)

	case *ast.EmptyStmt:
		// nothing to emit

	case *ast.IfStmt:
		cond := lw.toBool(lw.lowerRvalue(n.Cond))
		if n.Else == nil {
			end := lw.fn.NewLabel("ifend")
			lw.fn.Emit(&il.JumpZero{Cond: cond, Target: end})
			lw.lowerStmt(n.Then)
			lw.fn.Emit(&il.Label{Name: end})
			return
		}
		elseLabel := lw.fn.NewLabel("ifelse")
		end := lw.fn.NewLabel("ifend")
		lw.fn.Emit(&il.JumpZero{Cond: cond, Target: elseLabel})
		lw.lowerStmt(n.Then)
		lw.fn.Emit(&il.Jump{Target: end})
		lw.fn.Emit(&il.Label{Name: elseLabel})
		lw.lowerStmt(n.Else)
		lw.fn.Emit(&il.Label{Name: end})

	case *ast.WhileStmt:
		start := lw.fn.NewLabel("whilestart")
		end := lw.fn.NewLabel("whileend")
		lw.fn.Emit(&il.Label{Name: start})
		cond := lw.toBool(lw.lowerRvalue(n.Cond))
		lw.fn.Emit(&il.JumpZero{Cond: cond, Target: end})
		lw.pushLoop(start, end)
		lw.lowerStmt(n.Body)
		lw.popLoop()
		lw.fn.Emit(&il.Jump{Target: start})
		lw.fn.Emit(&il.Label{Name: end})

	case *ast.DoWhileStmt:
		start := lw.fn.NewLabel("dostart")
		cont := lw.fn.NewLabel("docont")
		end := lw.fn.NewLabel("doend")
		lw.fn.Emit(&il.Label{Name: start})
		lw.pushLoop(cont, end)
		lw.lowerStmt(n.Body)
		lw.popLoop()
		lw.fn.Emit(&il.Label{Name: cont})
		cond := lw.toBool(lw.lowerRvalue(n.Cond))
		lw.fn.Emit(&il.JumpNotZero{Cond: cond, Target: start})
		lw.fn.Emit(&il.Label{Name: end})

	case *ast.ForStmt:
		lw.env.PushScope()
		if n.Init != nil {
			lw.lowerBlockItem(n.Init)
		}
		start := lw.fn.NewLabel("forstart")
		cont := lw.fn.NewLabel("forcont")
		end := lw.fn.NewLabel("forend")
		lw.fn.Emit(&il.Label{Name: start})
		if n.Cond != nil {
			cond := lw.toBool(lw.lowerRvalue(n.Cond))
			lw.fn.Emit(&il.JumpZero{Cond: cond, Target: end})
		}
		lw.pushLoop(cont, end)
		lw.lowerStmt(n.Body)
		lw.popLoop()
		lw.fn.Emit(&il.Label{Name: cont})
		if n.Post != nil {
			lw.lowerRvalue(n.Post)
		}
		lw.fn.Emit(&il.Jump{Target: start})
		lw.fn.Emit(&il.Label{Name: end})
		lw.env.PopScope()

	case *ast.ReturnStmt:
		if n.X == nil {
			lw.fn.Emit(&il.Return{})
			return
		}
		v := lw.lowerRvalue(n.X)
		if lw.fn.ReturnType != ctype.VoidType {
			v = lw.assignConvert(v, lw.fn.ReturnType, n.Position())
		}
		lw.fn.Emit(&il.Return{Value: v})

	case *ast.BreakStmt:
		if len(lw.breakLabels) == 0 {
			lw.diags.Errorf(diag.Syntactic, n.Position(), "'break' statement not in a loop or switch")
			return
		}
		lw.fn.Emit(&il.Jump{Target: lw.breakLabels[len(lw.breakLabels)-1]})

	case *ast.ContinueStmt:
		if len(lw.continueLabels) == 0 {
			lw.diags.Errorf(diag.Syntactic, n.Position(), "'continue' statement not in a loop")
			return
		}
		lw.fn.Emit(&il.Jump{Target: lw.continueLabels[len(lw.continueLabels)-1]})

	case *ast.GotoStmt:
		lw.fn.Emit(&il.Jump{Target: lw.userLabel(n.Label)})

	case *ast.LabeledStmt:
		lw.fn.Emit(&il.Label{Name: lw.userLabel(n.Label)})
		lw.lowerStmt(n.Stmt)

	case *ast.SwitchStmt:
		lw.lowerSwitch(n)

	default:
		lw.diags.Errorf(diag.LoweringInternal, s.Position(), "unsupported statement construct")
	}
}

// lowerSwitch desugars a switch into a compare-and-jump chain followed by
// the fallthrough-joined case bodies, with a single "break" target pushed
// for the whole statement (continue still targets an enclosing loop, if
// any, unaffected by this switch).
func (lw *Lowerer) lowerSwitch(n *ast.SwitchStmt) {
	tagVal := lw.lowerRvalue(n.Tag)
	tagVal = lw.convertTo(tagVal, ctype.PromoteInteger(tagVal.Type), n.Position())

	end := lw.fn.NewLabel("switchend")
	caseLabels := make([]string, len(n.Cases))
	for i := range n.Cases {
		caseLabels[i] = lw.fn.NewLabel("case")
	}
	defaultLabel := end
	if n.Default != nil {
		defaultLabel = lw.fn.NewLabel("default")
	}

	for i, c := range n.Cases {
		v, ok := lw.evalConstInt(c.Value)
		if !ok {
			lw.diags.Errorf(diag.Declaration, c.Position(), "case label is not an integer constant expression")
			continue
		}
		lit := lw.fn.Factory.NewLiteral(tagVal.Type, v)
		eq := lw.fn.Factory.NewLocal(ctype.Bool)
		lw.fn.Emit(&il.BinOp{Op: il.OpEq, Out: eq, A: tagVal, B: lit})
		lw.fn.Emit(&il.JumpNotZero{Cond: eq, Target: caseLabels[i]})
	}
	lw.fn.Emit(&il.Jump{Target: defaultLabel})

	lw.breakLabels = append(lw.breakLabels, end)
	emitDefault := func() {
		lw.fn.Emit(&il.Label{Name: defaultLabel})
		for _, item := range n.Default.Body {
			lw.lowerBlockItem(item)
		}
	}
	if n.Default != nil && n.DefaultIndex == 0 {
		emitDefault()
	}
	for i, c := range n.Cases {
		lw.fn.Emit(&il.Label{Name: caseLabels[i]})
		for _, item := range c.Body {
			lw.lowerBlockItem(item)
		}
		if n.Default != nil && n.DefaultIndex == i+1 {
			emitDefault()
		}
	}
	lw.breakLabels = lw.breakLabels[:len(lw.breakLabels)-1]
	lw.fn.Emit(&il.Label{Name: end})
}
