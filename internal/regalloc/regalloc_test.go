package regalloc

import (
	"testing"

	"github.com/xyproto/c67cc/internal/ctype"
	"github.com/xyproto/c67cc/internal/il"
	"github.com/xyproto/c67cc/internal/liveness"
)

// assertSound checks spec.md section 8's register-allocator soundness
// property: no two values that interfere may end up in the same spot
// (same register, or same stack offset).
func assertSound(t *testing.T, lv *liveness.Result, res *Result) {
	t.Helper()
	for a, nbrs := range lv.Interference {
		for b := range nbrs {
			if a == b {
				continue
			}
			sa, oka := res.Spots[a]
			sb, okb := res.Spots[b]
			if !oka || !okb {
				continue
			}
			if sa.IsReg && sb.IsReg && sa.Reg == sb.Reg {
				t.Errorf("interfering values share register %v", sa.Reg)
			}
			if !sa.IsReg && !sb.IsReg && sa.Offset == sb.Offset {
				t.Errorf("interfering values share spill offset %d", sa.Offset)
			}
		}
	}
}

func TestAllocateSimpleFunctionIsSound(t *testing.T) {
	fn := il.NewFunction("f", ctype.Int)
	a := fn.Factory.NewLocal(ctype.Int)
	b := fn.Factory.NewLocal(ctype.Int)
	c := fn.Factory.NewLocal(ctype.Int)
	one := fn.Factory.NewLiteral(ctype.Int, 1)
	two := fn.Factory.NewLiteral(ctype.Int, 2)
	fn.Emit(&il.Set{Dest: a, Src: one})
	fn.Emit(&il.Set{Dest: b, Src: two})
	fn.Emit(&il.BinOp{Op: il.OpAdd, Out: c, A: a, B: b})
	fn.Emit(&il.Return{Value: c})

	lv := liveness.Analyze(fn)
	res := Allocate(fn, lv)
	assertSound(t, lv, res)

	for _, v := range []*il.Value{a, b, c} {
		if _, ok := res.Spots[v]; !ok {
			t.Errorf("value %v has no assigned spot", v)
		}
	}
}

// TestAllocateForcesSpillsUnderHighPressure builds a function with more
// simultaneously-live values than there are physical registers, so the
// allocator must spill at least one.
func TestAllocateForcesSpillsUnderHighPressure(t *testing.T) {
	fn := il.NewFunction("manyLive", ctype.Int)
	n := int(NumPhysRegs) + 4
	vals := make([]*il.Value, n)
	for i := 0; i < n; i++ {
		vals[i] = fn.Factory.NewLocal(ctype.Int)
		lit := fn.Factory.NewLiteral(ctype.Int, int64(i))
		fn.Emit(&il.Set{Dest: vals[i], Src: lit})
	}
	// Sum them all so every one of them is live simultaneously right
	// before the final accumulation reads them all.
	sum := fn.Factory.NewLocal(ctype.Int)
	fn.Emit(&il.Set{Dest: sum, Src: vals[0]})
	for i := 1; i < n; i++ {
		next := fn.Factory.NewLocal(ctype.Int)
		fn.Emit(&il.BinOp{Op: il.OpAdd, Out: next, A: sum, B: vals[i]})
		sum = next
	}
	fn.Emit(&il.Return{Value: sum})

	lv := liveness.Analyze(fn)
	res := Allocate(fn, lv)
	assertSound(t, lv, res)

	// The function as built has no memory commands; an actual spill
	// rewrites uses and definitions into ReadAt/SetAt through a stack slot.
	spillCmds := 0
	for _, c := range fn.Commands {
		switch c.(type) {
		case *il.ReadAt, *il.SetAt:
			spillCmds++
		}
	}
	if spillCmds == 0 {
		t.Errorf("expected at least one value to be spilled through a stack slot")
	}
}

func TestAllocateRespectsCallClobbers(t *testing.T) {
	fn := il.NewFunction("callsite", ctype.Int)
	keep := fn.Factory.NewLocal(ctype.Int)
	one := fn.Factory.NewLiteral(ctype.Int, 1)
	fn.Emit(&il.Set{Dest: keep, Src: one})
	callee := fn.Factory.NewNamed(ctype.NewFunction(ctype.Int, nil, true), "callee", false)
	result := fn.Factory.NewLocal(ctype.Int)
	fn.Emit(&il.Call{Out: result, Func: callee})
	sum := fn.Factory.NewLocal(ctype.Int)
	fn.Emit(&il.BinOp{Op: il.OpAdd, Out: sum, A: keep, B: result})
	fn.Emit(&il.Return{Value: sum})

	lv := liveness.Analyze(fn)
	res := Allocate(fn, lv)
	assertSound(t, lv, res)

	if spot, ok := res.Spots[keep]; ok && spot.IsReg {
		for _, r := range CallerSaved {
			if spot.Reg == r {
				t.Errorf("keep is live across a call and must not land in caller-saved register %v", r)
			}
		}
	}
}

func TestFrameSizeIsSixteenByteAligned(t *testing.T) {
	fn := il.NewFunction("manyLive2", ctype.Int)
	n := int(NumPhysRegs) + 6
	vals := make([]*il.Value, n)
	for i := 0; i < n; i++ {
		vals[i] = fn.Factory.NewLocal(ctype.Int)
		lit := fn.Factory.NewLiteral(ctype.Int, int64(i))
		fn.Emit(&il.Set{Dest: vals[i], Src: lit})
	}
	sum := fn.Factory.NewLocal(ctype.Int)
	fn.Emit(&il.Set{Dest: sum, Src: vals[0]})
	for i := 1; i < n; i++ {
		next := fn.Factory.NewLocal(ctype.Int)
		fn.Emit(&il.BinOp{Op: il.OpAdd, Out: next, A: sum, B: vals[i]})
		sum = next
	}
	fn.Emit(&il.Return{Value: sum})

	lv := liveness.Analyze(fn)
	res := Allocate(fn, lv)
	if res.FrameSize%16 != 0 {
		t.Errorf("FrameSize = %d, want a multiple of 16", res.FrameSize)
	}
}
