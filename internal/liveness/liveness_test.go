package liveness

import (
	"testing"

	"github.com/xyproto/c67cc/internal/ctype"
	"github.com/xyproto/c67cc/internal/il"
)

// buildSimpleFunc builds `int f() { a = 1; b = 2; c = a + b; return c; }`
// directly at the IL level, skipping the frontend, to exercise liveness
// on a single straight-line block.
func buildSimpleFunc() (*il.Function, *il.Value, *il.Value, *il.Value) {
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
	return fn, a, b, c
}

func TestInterferenceBetweenSimultaneouslyLiveValues(t *testing.T) {
	fn, a, b, _ := buildSimpleFunc()
	res := Analyze(fn)
	if !res.Interference[a][b] {
		t.Errorf("a and b are both live across the ADD and must interfere")
	}
}

func TestNoSelfInterference(t *testing.T) {
	fn, a, _, _ := buildSimpleFunc()
	res := Analyze(fn)
	if res.Interference[a][a] {
		t.Errorf("a value must never interfere with itself")
	}
}

func TestMoveSuppressesInterferenceEdge(t *testing.T) {
	fn := il.NewFunction("g", ctype.Int)
	x := fn.Factory.NewLocal(ctype.Int)
	y := fn.Factory.NewLocal(ctype.Int)
	fn.Emit(&il.Set{Dest: y, Src: x})
	fn.Emit(&il.Return{Value: y})

	res := Analyze(fn)
	if res.Interference[x][y] {
		t.Errorf("a move between x and y must not create an interference edge")
	}
	found := false
	for _, m := range res.Moves {
		if m.Dest == y && m.Src == x {
			found = true
		}
	}
	if !found {
		t.Errorf("the x->y move should be recorded as a coalescing candidate")
	}
}

func TestCallSiteRecordsLiveAcrossValues(t *testing.T) {
	fn := il.NewFunction("h", ctype.Int)
	keep := fn.Factory.NewLocal(ctype.Int)
	one := fn.Factory.NewLiteral(ctype.Int, 1)
	fn.Emit(&il.Set{Dest: keep, Src: one})
	callee := fn.Factory.NewNamed(ctype.NewFunction(ctype.Int, nil, true), "callee", false)
	result := fn.Factory.NewLocal(ctype.Int)
	fn.Emit(&il.Call{Out: result, Func: callee})
	sum := fn.Factory.NewLocal(ctype.Int)
	fn.Emit(&il.BinOp{Op: il.OpAdd, Out: sum, A: keep, B: result})
	fn.Emit(&il.Return{Value: sum})

	res := Analyze(fn)
	if len(res.CallSites) != 1 {
		t.Fatalf("expected exactly one call site, got %d", len(res.CallSites))
	}
	across := res.CallSites[0].LiveAcross
	found := false
	for _, v := range across {
		if v == keep {
			found = true
		}
	}
	if !found {
		t.Errorf("keep is live across the call and must appear in LiveAcross")
	}
}

func TestDivSiteRecorded(t *testing.T) {
	fn := il.NewFunction("d", ctype.Int)
	a := fn.Factory.NewLocal(ctype.Int)
	b := fn.Factory.NewLocal(ctype.Int)
	out := fn.Factory.NewLocal(ctype.Int)
	div := &il.BinOp{Op: il.OpDiv, Out: out, A: a, B: b}
	fn.Emit(div)
	fn.Emit(&il.Return{Value: out})

	res := Analyze(fn)
	if len(res.DivSites) != 1 || res.DivSites[0] != div {
		t.Errorf("DIV command must be recorded in DivSites")
	}
}

func TestLoopBackEdgeKeepsValueLiveThroughTheWholeLoop(t *testing.T) {
	fn := il.NewFunction("loop", ctype.Int)
	counter := fn.Factory.NewLocal(ctype.Int)
	zero := fn.Factory.NewLiteral(ctype.Int, 0)
	one := fn.Factory.NewLiteral(ctype.Int, 1)
	fn.Emit(&il.Set{Dest: counter, Src: zero})
	fn.Emit(&il.Label{Name: "top"})
	next := fn.Factory.NewLocal(ctype.Int)
	fn.Emit(&il.BinOp{Op: il.OpAdd, Out: next, A: counter, B: one})
	fn.Emit(&il.Set{Dest: counter, Src: next})
	fn.Emit(&il.JumpNotZero{Cond: counter, Target: "top"})
	fn.Emit(&il.Return{Value: counter})

	res := Analyze(fn)
	if len(res.Blocks) < 2 {
		t.Fatalf("expected at least 2 blocks (pre-loop and loop body), got %d", len(res.Blocks))
	}
	var loop *Block
	for _, b := range res.Blocks {
		if l, ok := b.Commands[0].(*il.Label); ok && l.Name == "top" {
			loop = b
		}
	}
	if loop == nil {
		t.Fatal("no block starts at label top")
	}
	backEdge := false
	for _, s := range loop.Succs {
		if res.Blocks[s] == loop {
			backEdge = true
		}
	}
	if !backEdge {
		t.Errorf("loop block must list itself as a successor (the back edge)")
	}
	if !loop.liveIn[counter] || !loop.liveOut[counter] {
		t.Errorf("counter must be live on entry to and exit from the loop block")
	}
}
