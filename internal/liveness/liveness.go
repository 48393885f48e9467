// Package liveness implements spec.md section 4.5: block-granularity
// liveness analysis and the virtual-value interference graph that
// internal/regalloc's Build step extends with physical-register clobber
// edges (calls, DIV/MOD, shifts by register).
package liveness

import "github.com/xyproto/c67cc/internal/il"

// Block is a maximal straight-line run of commands: it starts at a Label
// (the label is its first command) or right after a branch or Return, and
// ends with a branch or Return or just before the next Label (spec.md section
// 4.5's "either is admissible" -- this compiler picks block granularity,
// recorded as an Open Question resolution in DESIGN.md).
type Block struct {
	Commands []il.Command
	Succs    []int // indices into Result.Blocks
	liveIn   map[*il.Value]bool
	liveOut  map[*il.Value]bool
}

// Move is a candidate for register coalescing: a SET between two Local
// values eligible per il.Set.IsMove().
type Move struct {
	Dest, Src *il.Value
}

// CallSite records, for one CALL command, every virtual value live across
// it -- the caller-saved clobber set regalloc's Build step needs.
type CallSite struct {
	Call       *il.Call
	LiveAcross []*il.Value
}

// Result is one function's liveness analysis: per-command live-out sets,
// the virtual-value interference graph, coalescing candidates, and the
// special-constraint sites spec.md section 4.7 needs pre-colored before
// allocation.
type Result struct {
	Blocks       []*Block
	LiveOut      map[il.Command][]*il.Value
	Interference map[*il.Value]map[*il.Value]bool
	Moves        []Move
	CallSites    []CallSite
	DivSites     []*il.BinOp
	ShiftSites   []*il.BinOp
}

func labelIndex(cmds []il.Command) map[string]int {
	idx := map[string]int{}
	for i, c := range cmds {
		if l, ok := c.(*il.Label); ok {
			idx[l.Name] = i
		}
	}
	return idx
}

func isBranch(c il.Command) (target string, fallsThrough bool, unconditional bool) {
	switch n := c.(type) {
	case *il.Jump:
		return n.Target, false, true
	case *il.JumpZero:
		return n.Target, true, false
	case *il.JumpNotZero:
		return n.Target, true, false
	case *il.Return:
		return "", false, false
	}
	return "", true, false
}

func isTerminator(c il.Command) bool {
	switch c.(type) {
	case *il.Jump, *il.JumpZero, *il.JumpNotZero, *il.Return:
		return true
	}
	return false
}

// buildBlocks splits fn's command stream into blocks and wires successor
// edges by label/fallthrough.
func buildBlocks(cmds []il.Command) []*Block {
	labels := labelIndex(cmds)
	var blocks []*Block
	var cur []il.Command

	flush := func() {
		if len(cur) > 0 {
			blocks = append(blocks, &Block{Commands: cur})
			cur = nil
		}
	}
	for _, c := range cmds {
		if _, ok := c.(*il.Label); ok && len(cur) > 0 {
			flush()
		}
		cur = append(cur, c)
		if isTerminator(c) {
			flush()
		}
	}
	flush()

	// blockOfCmdIndex maps a command index in the flat stream to the
	// block that contains it, for resolving jump-target labels.
	blockOfCmdIndex := func(idx int) int {
		// idx is a command index in the flat stream; find the enclosing block.
		acc := 0
		for bi, b := range blocks {
			if idx < acc+len(b.Commands) {
				return bi
			}
			acc += len(b.Commands)
		}
		return len(blocks) - 1
	}

	for bi, b := range blocks {
		if len(b.Commands) == 0 {
			continue
		}
		last := b.Commands[len(b.Commands)-1]
		target, fallsThrough, unconditional := isBranch(last)
		if target != "" {
			if li, ok := labels[target]; ok {
				b.Succs = append(b.Succs, blockOfCmdIndex(li))
			}
		}
		if fallsThrough || (!unconditional && target == "") {
			if bi+1 < len(blocks) {
				b.Succs = append(b.Succs, bi+1)
			}
		}
	}
	return blocks
}

// Analyze runs liveness over fn and returns the interference graph, move
// list, and constraint sites regalloc needs.
func Analyze(fn *il.Function) *Result {
	blocks := buildBlocks(fn.Commands)
	for _, b := range blocks {
		b.liveIn = map[*il.Value]bool{}
		b.liveOut = map[*il.Value]bool{}
	}

	// Iterative backward dataflow to fixpoint over blocks.
	changed := true
	for changed {
		changed = false
		for bi := len(blocks) - 1; bi >= 0; bi-- {
			b := blocks[bi]
			out := map[*il.Value]bool{}
			for _, s := range b.Succs {
				for v := range blocks[s].liveIn {
					out[v] = true
				}
			}
			in := map[*il.Value]bool{}
			for v := range out {
				in[v] = true
			}
			for i := len(b.Commands) - 1; i >= 0; i-- {
				c := b.Commands[i]
				for _, w := range c.Writes() {
					if isAllocatable(w) {
						delete(in, w)
					}
				}
				for _, r := range c.Reads() {
					if isAllocatable(r) {
						in[r] = true
					}
				}
			}
			if !setEqual(in, b.liveIn) || !setEqual(out, b.liveOut) {
				b.liveIn = in
				b.liveOut = out
				changed = true
			}
		}
	}

	res := &Result{
		Blocks:       blocks,
		LiveOut:      map[il.Command][]*il.Value{},
		Interference: map[*il.Value]map[*il.Value]bool{},
	}

	addEdge := func(a, b *il.Value) {
		if a == b || !isAllocatable(a) || !isAllocatable(b) {
			return
		}
		if res.Interference[a] == nil {
			res.Interference[a] = map[*il.Value]bool{}
		}
		if res.Interference[b] == nil {
			res.Interference[b] = map[*il.Value]bool{}
		}
		res.Interference[a][b] = true
		res.Interference[b][a] = true
	}
	touch := func(v *il.Value) {
		if isAllocatable(v) {
			if res.Interference[v] == nil {
				res.Interference[v] = map[*il.Value]bool{}
			}
		}
	}

	for _, b := range blocks {
		live := map[*il.Value]bool{}
		for v := range b.liveOut {
			live[v] = true
		}
		for i := len(b.Commands) - 1; i >= 0; i-- {
			c := b.Commands[i]
			var writesOut []*il.Value
			for _, w := range c.Writes() {
				if isAllocatable(w) {
					writesOut = append(writesOut, w)
				}
			}
			res.LiveOut[c] = setSlice(live)

			if set, ok := c.(*il.Set); ok && set.IsMove() {
				res.Moves = append(res.Moves, Move{Dest: set.Dest, Src: set.Src})
				touch(set.Dest)
				touch(set.Src)
				for v := range live {
					if v != set.Src {
						for _, w := range writesOut {
							addEdge(w, v)
						}
					}
				}
			} else {
				for _, w := range writesOut {
					touch(w)
					for v := range live {
						addEdge(w, v)
					}
				}
			}

			if call, ok := c.(*il.Call); ok {
				var across []*il.Value
				for v := range live {
					across = append(across, v)
				}
				res.CallSites = append(res.CallSites, CallSite{Call: call, LiveAcross: across})
			}
			if bo, ok := c.(*il.BinOp); ok {
				switch bo.Op {
				case il.OpDiv, il.OpMod:
					res.DivSites = append(res.DivSites, bo)
				case il.OpLShift, il.OpRShift:
					res.ShiftSites = append(res.ShiftSites, bo)
				}
			}

			for _, w := range c.Writes() {
				if isAllocatable(w) {
					delete(live, w)
				}
			}
			for _, r := range c.Reads() {
				if isAllocatable(r) {
					live[r] = true
				}
			}
		}
	}

	return res
}

// isAllocatable reports whether v is a register-allocator candidate:
// only Class == Local values need a Spot; Literal/Named/StringLiteral
// values are embedded directly as immediates, labels, or RIP-relative
// references by internal/asmgen.
func isAllocatable(v *il.Value) bool {
	return v != nil && v.Class == il.Local
}

func setEqual(a, b map[*il.Value]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for v := range a {
		if !b[v] {
			return false
		}
	}
	return true
}

func setSlice(s map[*il.Value]bool) []*il.Value {
	out := make([]*il.Value, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	return out
}
