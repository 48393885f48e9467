package regalloc

import "github.com/xyproto/c67cc/internal/il"

// rewriteSpills implements spec.md section 4.6 step 7's actual-spill
// rewrite. Each value in spilled gets a dedicated stack slot -- built
// with NewLvalueLocal exactly the way internal/lower gives an automatic
// variable its ambient home, so isHomeValue excludes the slot itself
// from ever needing to be colored -- and every command that reads or
// writes the spilled value is rewritten to go through that slot via a
// fresh, one-instruction-lived temporary: a ReadAt before the command
// for each read, a SetAt after it for each write. The caller is expected
// to re-run liveness.Analyze over the rewritten function and restart
// Build; the spilled value no longer appears anywhere, so its long live
// range can no longer make the interference graph unsatisfiable.
func rewriteSpills(fn *il.Function, spilled map[*il.Value]bool) {
	if len(spilled) == 0 {
		return
	}

	slots := map[*il.Value]*il.Value{}
	for v := range spilled {
		slots[v] = fn.Factory.NewLvalueLocal(v.Type)
	}

	rewritten := make([]il.Command, 0, len(fn.Commands))
	for _, cmd := range fn.Commands {
		subst := map[*il.Value]*il.Value{}

		for _, r := range cmd.Reads() {
			if r == nil || subst[r] != nil {
				continue
			}
			if slot, ok := slots[r]; ok {
				t := fn.Factory.NewLocal(r.Type)
				rewritten = append(rewritten, &il.ReadAt{Out: t, Ptr: slot})
				subst[r] = t
			}
		}

		var storeTemps, storeSlots []*il.Value
		for _, w := range cmd.Writes() {
			if w == nil || subst[w] != nil {
				continue
			}
			if slot, ok := slots[w]; ok {
				t := fn.Factory.NewLocal(w.Type)
				subst[w] = t
				storeTemps = append(storeTemps, t)
				storeSlots = append(storeSlots, slot)
			}
		}

		substituteOperands(cmd, subst)
		rewritten = append(rewritten, cmd)

		for i, t := range storeTemps {
			rewritten = append(rewritten, &il.SetAt{Ptr: storeSlots[i], Src: t})
		}
	}
	fn.Commands = rewritten
}

// substituteOperands replaces every operand of cmd found in subst with
// its mapped value, mutating cmd in place. Every Command variant that
// carries *il.Value fields is listed explicitly (mirroring internal/
// asmgen's exhaustive per-command type switch) rather than reflecting
// over Reads()/Writes(), since those return copies, not addressable
// fields.
func substituteOperands(cmd il.Command, subst map[*il.Value]*il.Value) {
	if len(subst) == 0 {
		return
	}
	repl := func(v *il.Value) *il.Value {
		if nv, ok := subst[v]; ok {
			return nv
		}
		return v
	}
	switch n := cmd.(type) {
	case *il.BinOp:
		n.A, n.B, n.Out = repl(n.A), repl(n.B), repl(n.Out)
	case *il.UnOp:
		n.A, n.Out = repl(n.A), repl(n.Out)
	case *il.AddrOf:
		n.A, n.Out = repl(n.A), repl(n.Out)
	case *il.ReadAt:
		n.Ptr, n.Out = repl(n.Ptr), repl(n.Out)
	case *il.SetAt:
		n.Ptr, n.Src = repl(n.Ptr), repl(n.Src)
	case *il.PointerAdd:
		n.Ptr, n.Offset, n.Out = repl(n.Ptr), repl(n.Offset), repl(n.Out)
	case *il.PointerSub:
		n.Ptr, n.Offset, n.Out = repl(n.Ptr), repl(n.Offset), repl(n.Out)
	case *il.PointerDiff:
		n.A, n.B, n.Out = repl(n.A), repl(n.B), repl(n.Out)
	case *il.JumpZero:
		n.Cond = repl(n.Cond)
	case *il.JumpNotZero:
		n.Cond = repl(n.Cond)
	case *il.Return:
		if n.Value != nil {
			n.Value = repl(n.Value)
		}
	case *il.Call:
		n.Func = repl(n.Func)
		for i, a := range n.Args {
			n.Args[i] = repl(a)
		}
		if n.Out != nil {
			n.Out = repl(n.Out)
		}
	case *il.Set:
		n.Dest, n.Src = repl(n.Dest), repl(n.Src)
	case *il.Load:
		n.Out = repl(n.Out)
	case *il.StructMemberCopy:
		n.DestPtr, n.SrcPtr = repl(n.DestPtr), repl(n.SrcPtr)
	case *il.Zero:
		n.Ptr = repl(n.Ptr)
	}
}
