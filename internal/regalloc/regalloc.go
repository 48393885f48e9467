// Package regalloc implements spec.md section 4.6: iterated register
// coalescing (George & Appel) over the interference graph internal/
// liveness builds. Build extends that graph with physical-register
// clobber edges (calls, DIV/MOD, shifts-by-register) before the
// simplify/coalesce/freeze/spill/select loop runs.
package regalloc

import (
	"github.com/xyproto/c67cc/internal/il"
	"github.com/xyproto/c67cc/internal/liveness"
)

// PhysReg names one of the 13 general-purpose integer registers this
// compiler allocates into. RSP and RBP are reserved for the frame;
// R11 is reserved as the emitter's scratch register for memory operands
// and address loads (spec.md section 4.7); immediates, 64-bit ones
// included, are emitted as plain `$imm` operands, not through R11.
type PhysReg int

const (
	RAX PhysReg = iota
	RBX
	RCX
	RDX
	RSI
	RDI
	R8
	R9
	R10
	R12
	R13
	R14
	R15
	NumPhysRegs
)

var regNames = [NumPhysRegs]string{
	"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "r8", "r9", "r10", "r12", "r13", "r14", "r15",
}

func (r PhysReg) String() string {
	if r >= 0 && int(r) < len(regNames) {
		return regNames[r]
	}
	return "?"
}

// CallerSaved lists the registers a CALL instruction clobbers.
var CallerSaved = []PhysReg{RAX, RCX, RDX, RSI, RDI, R8, R9, R10}

// CalleeSaved lists the registers the prologue/epilogue must preserve if
// the allocator uses them (spec.md section 4.7's prologue step).
var CalleeSaved = []PhysReg{RBX, R12, R13, R14, R15}

// ArgRegs is the System V AMD64 integer argument-passing order.
var ArgRegs = []PhysReg{RDI, RSI, RDX, RCX, R8, R9}

// DivClobbers are RAX (dividend/quotient) and RDX (sign-extend/remainder),
// pinned by every DIV/MOD IL command.
var DivClobbers = []PhysReg{RAX, RDX}

// ShiftCountReg is where a variable shift count must live (CL).
const ShiftCountReg = RCX

// Spot is where a register-allocator candidate lives once Allocate
// returns: either a physical register or a stack-frame slot at
// [rbp - Offset].
type Spot struct {
	IsReg  bool
	Reg    PhysReg
	Offset int
}

// Result is one function's allocation: every Local value's final home,
// the callee-saved registers actually used (for the prologue/epilogue),
// and the 16-byte-aligned frame size spill slots require.
type Result struct {
	Spots           map[*il.Value]Spot
	UsedCalleeSaved []PhysReg
	FrameSize       int
}

type nodePair struct{ a, b *il.Value }

// graph is the mutable working state of one run of the algorithm,
// rebuilt from scratch each time an actual spill forces a restart
// (spec.md section 4.6 step 7).
type graph struct {
	adjSet     map[nodePair]bool
	adjList    map[*il.Value][]*il.Value
	degree     map[*il.Value]int
	moves      []liveness.Move
	moveList   map[*il.Value][]int // value -> indices into moves
	alias      map[*il.Value]*il.Value
	precolored map[*il.Value]PhysReg
	nodes      []*il.Value // all non-precolored nodes, stable order

	// worklists
	simplifyWL map[*il.Value]bool
	freezeWL   map[*il.Value]bool
	spillWL    map[*il.Value]bool
	spilled    map[*il.Value]bool
	coalesced  map[*il.Value]bool
	colored    map[*il.Value]PhysReg
	selectStk  []*il.Value

	coalescedMoves map[int]bool
	constrained    map[int]bool
	activeMoves    map[int]bool
	worklistMoves  map[int]bool
	frozenMoves map[int]bool
}

const k = int(NumPhysRegs)

// Allocate runs the iterated register coalescing loop to completion. When
// assignColors cannot find a free register for some node, that's an
// actual spill (spec.md section 4.6 step 7): rewriteSpills gives it a
// dedicated stack slot and replaces every read/write of it with a load/
// store through that slot into a fresh, one-instruction-lived temporary,
// liveness is recomputed over the rewritten function, and Build restarts.
// The spilled value no longer exists as a single long-lived node, so the
// new interference graph is strictly smaller around its former
// neighbors, and the loop is guaranteed to terminate.
func Allocate(fn *il.Function, lv *liveness.Result) *Result {
	for {
		spillCosts := useCounts(fn)
		g := build(fn, lv)
		g.makeWorklists()
		for {
			switch {
			case len(g.simplifyWL) > 0:
				g.simplify()
			case len(g.worklistMoves) > 0:
				g.coalesce()
			case len(g.freezeWL) > 0:
				g.freeze()
			case len(g.spillWL) > 0:
				g.selectSpill(spillCosts)
			default:
				goto doneIteration
			}
		}
	doneIteration:
		if g.assignColors() {
			return g.finish(fn)
		}
		rewriteSpills(fn, g.spilled)
		lv = liveness.Analyze(fn)
	}
}

func useCounts(fn *il.Function) map[*il.Value]int {
	counts := map[*il.Value]int{}
	for _, c := range fn.Commands {
		for _, r := range c.Reads() {
			if r != nil && r.Class == il.Local {
				counts[r]++
			}
		}
		for _, w := range c.Writes() {
			if w != nil && w.Class == il.Local {
				counts[w]++
			}
		}
	}
	return counts
}

// isHomeValue reports whether v is an ambient address slot -- an
// automatic variable or parameter home, or one of the synthesized
// lvalue locals internal/lower uses for short-circuit and conditional-
// expression results -- rather than a genuine register candidate.
// internal/asmgen's buildFrame gives every such value a fixed,
// structurally-computed rbp-relative offset by the same rule (never the
// target of a Writes(), always read as an address) and never consults
// its regalloc Spot, so it must not compete for a color or a spill slot
// here either: see DESIGN.md's "ambient home vs. computed pointer" note.
// rewriteSpills relies on this too -- the slot it allocates for a
// genuine spill is itself built with NewLvalueLocal, so it is excluded
// from the next iteration's graph rather than recursively spilling.
func isHomeValue(v *il.Value) bool {
	return v != nil && v.Class == il.Local && v.IsLvalueLocation
}

// build constructs the interference graph for this iteration: virtual
// interference from liveness, plus clobber edges for calls and DIV/MOD/
// shift sites, plus precolored nodes for every physical register.
func build(fn *il.Function, lv *liveness.Result) *graph {
	g := &graph{
		adjSet:         map[nodePair]bool{},
		adjList:        map[*il.Value][]*il.Value{},
		degree:         map[*il.Value]int{},
		moves:          append([]liveness.Move(nil), lv.Moves...),
		moveList:       map[*il.Value][]int{},
		alias:          map[*il.Value]*il.Value{},
		precolored:     map[*il.Value]PhysReg{},
		simplifyWL:     map[*il.Value]bool{},
		freezeWL:       map[*il.Value]bool{},
		spillWL:        map[*il.Value]bool{},
		spilled:        map[*il.Value]bool{},
		coalesced:      map[*il.Value]bool{},
		colored:        map[*il.Value]PhysReg{},
		coalescedMoves: map[int]bool{},
		constrained:    map[int]bool{},
		activeMoves:    map[int]bool{},
		worklistMoves:  map[int]bool{},
		frozenMoves:    map[int]bool{},
	}

	precolNode := map[PhysReg]*il.Value{}
	precolored := func(r PhysReg) *il.Value {
		if v, ok := precolNode[r]; ok {
			return v
		}
		v := &il.Value{Class: il.Named, SymbolName: "%" + r.String()}
		precolNode[r] = v
		g.precolored[v] = r
		g.degree[v] = 1 << 20 // infinite degree: never simplified/spilled
		return v
	}
	for r := PhysReg(0); r < NumPhysRegs; r++ {
		precolored(r)
	}

	seen := map[*il.Value]bool{}
	addNode := func(v *il.Value) {
		if v == nil || v.Class != il.Local || v.IsLvalueLocation || seen[v] {
			return
		}
		seen[v] = true
		g.nodes = append(g.nodes, v)
		g.degree[v] = 0
	}
	for v := range lv.Interference {
		addNode(v)
	}
	for _, m := range lv.Moves {
		addNode(m.Dest)
		addNode(m.Src)
	}

	addEdge := func(a, b *il.Value) {
		if a == b || isHomeValue(a) || isHomeValue(b) {
			return
		}
		if g.adjSet[nodePair{a, b}] {
			return
		}
		g.adjSet[nodePair{a, b}] = true
		g.adjSet[nodePair{b, a}] = true
		if _, ok := g.precolored[a]; !ok {
			g.adjList[a] = append(g.adjList[a], b)
			g.degree[a]++
		}
		if _, ok := g.precolored[b]; !ok {
			g.adjList[b] = append(g.adjList[b], a)
			g.degree[b]++
		}
	}

	for a, nbrs := range lv.Interference {
		for b := range nbrs {
			addEdge(a, b)
		}
	}

	for i, m := range g.moves {
		g.moveList[m.Dest] = append(g.moveList[m.Dest], i)
		g.moveList[m.Src] = append(g.moveList[m.Src], i)
		g.worklistMoves[i] = true
	}

	for _, cs := range lv.CallSites {
		for _, v := range cs.LiveAcross {
			for _, r := range CallerSaved {
				addEdge(v, precolored(r))
			}
		}
	}
	for _, bo := range lv.DivSites {
		for _, v := range lv.LiveOut[bo] {
			for _, r := range DivClobbers {
				addEdge(v, precolored(r))
			}
		}
		addEdge(bo.A, precolored(RAX))
		// DIV's quotient comes out of RAX, MOD's remainder out of RDX
		// (asmgen.emitBinOp picks the result register the same way); Out
		// gets an interference edge with that register, so it is never
		// assigned it, and asmgen copies the result into Out's own spot.
		if bo.Op == il.OpMod {
			addEdge(bo.Out, precolored(RDX))
		} else {
			addEdge(bo.Out, precolored(RAX))
		}
	}
	for _, bo := range lv.ShiftSites {
		addEdge(bo.B, precolored(ShiftCountReg))
	}

	return g
}

func (g *graph) isPrecolored(v *il.Value) bool {
	_, ok := g.precolored[v]
	return ok
}

func (g *graph) makeWorklists() {
	for _, v := range g.nodes {
		switch {
		case g.degree[v] >= k:
			g.spillWL[v] = true
		case g.moveRelated(v):
			g.freezeWL[v] = true
		default:
			g.simplifyWL[v] = true
		}
	}
}

func (g *graph) moveRelated(v *il.Value) bool {
	for _, mi := range g.moveList[v] {
		if g.activeMoves[mi] || g.worklistMoves[mi] {
			return true
		}
	}
	return false
}

func (g *graph) adjacentOf(v *il.Value) []*il.Value {
	var out []*il.Value
	for _, u := range g.adjList[v] {
		if !g.selectedOrCoalesced(u) {
			out = append(out, u)
		}
	}
	return out
}

func (g *graph) selectedOrCoalesced(v *il.Value) bool {
	if g.coalesced[v] {
		return true
	}
	for _, s := range g.selectStk {
		if s == v {
			return true
		}
	}
	return false
}

func (g *graph) simplify() {
	var v *il.Value
	for n := range g.simplifyWL {
		v = n
		break
	}
	delete(g.simplifyWL, v)
	g.selectStk = append(g.selectStk, v)
	for _, u := range g.adjacentOf(v) {
		g.decrementDegree(u)
	}
}

func (g *graph) decrementDegree(v *il.Value) {
	if g.isPrecolored(v) {
		return
	}
	d := g.degree[v]
	g.degree[v] = d - 1
	if d == k {
		nodes := append(g.adjacentOf(v), v)
		for _, u := range nodes {
			g.enableMoves(u)
		}
		delete(g.spillWL, v)
		if g.moveRelated(v) {
			g.freezeWL[v] = true
		} else {
			g.simplifyWL[v] = true
		}
	}
}

func (g *graph) enableMoves(v *il.Value) {
	for _, mi := range g.moveList[v] {
		if g.activeMoves[mi] {
			delete(g.activeMoves, mi)
			g.worklistMoves[mi] = true
		}
	}
}

func (g *graph) getAlias(v *il.Value) *il.Value {
	for g.coalesced[v] {
		v = g.alias[v]
	}
	return v
}

func (g *graph) coalesce() {
	var mi int
	for i := range g.worklistMoves {
		mi = i
		break
	}
	delete(g.worklistMoves, mi)
	m := g.moves[mi]
	x := g.getAlias(m.Dest)
	y := g.getAlias(m.Src)
	var u, v *il.Value
	if g.isPrecolored(y) {
		u, v = y, x
	} else {
		u, v = x, y
	}

	switch {
	case u == v:
		g.coalescedMoves[mi] = true
		g.addWorklist(u)
	case g.isPrecolored(v) || g.adjSet[nodePair{u, v}]:
		g.constrained[mi] = true
		g.addWorklist(u)
		g.addWorklist(v)
	case g.isPrecolored(u) && g.georgeOK(v, u), !g.isPrecolored(u) && g.briggsOK(u, v):
		g.coalescedMoves[mi] = true
		g.combine(u, v)
		g.addWorklist(u)
	default:
		g.activeMoves[mi] = true
	}
}

func (g *graph) addWorklist(v *il.Value) {
	if !g.isPrecolored(v) && !g.moveRelated(v) && g.degree[v] < k {
		delete(g.freezeWL, v)
		g.simplifyWL[v] = true
	}
}

func (g *graph) briggsOK(u, v *il.Value) bool {
	seen := map[*il.Value]bool{}
	cnt := 0
	for _, t := range append(g.adjacentOf(u), g.adjacentOf(v)...) {
		if seen[t] {
			continue
		}
		seen[t] = true
		d := g.degree[t]
		if g.isPrecolored(t) {
			cnt++
			continue
		}
		if d >= k {
			cnt++
		}
	}
	return cnt < k
}

func (g *graph) georgeOK(v, u *il.Value) bool {
	for _, t := range g.adjacentOf(v) {
		if g.isPrecolored(t) {
			continue
		}
		if g.degree[t] < k || g.adjSet[nodePair{t, u}] {
			continue
		}
		return false
	}
	return true
}

func (g *graph) combine(u, v *il.Value) {
	if g.freezeWL[v] {
		delete(g.freezeWL, v)
	} else {
		delete(g.spillWL, v)
	}
	g.coalesced[v] = true
	g.alias[v] = u
	g.moveList[u] = append(g.moveList[u], g.moveList[v]...)
	for _, t := range g.adjacentOf(v) {
		g.addEdgeLive(t, u)
		g.decrementDegree(t)
	}
	if g.degree[u] >= k && g.freezeWL[u] {
		delete(g.freezeWL, u)
		g.spillWL[u] = true
	}
}

// addEdgeLive adds an interference edge discovered during coalescing
// (combine merges v's neighbors onto u), growing degree as build's
// addEdge does for freshly observed pairs.
func (g *graph) addEdgeLive(a, b *il.Value) {
	if a == b || g.adjSet[nodePair{a, b}] {
		return
	}
	g.adjSet[nodePair{a, b}] = true
	g.adjSet[nodePair{b, a}] = true
	if !g.isPrecolored(a) {
		g.adjList[a] = append(g.adjList[a], b)
		g.degree[a]++
	}
	if !g.isPrecolored(b) {
		g.adjList[b] = append(g.adjList[b], a)
		g.degree[b]++
	}
}

func (g *graph) freeze() {
	var v *il.Value
	for n := range g.freezeWL {
		v = n
		break
	}
	delete(g.freezeWL, v)
	g.simplifyWL[v] = true
	g.freezeMoves(v)
}

func (g *graph) freezeMoves(v *il.Value) {
	for _, mi := range g.moveList[v] {
		if !g.activeMoves[mi] && !g.worklistMoves[mi] {
			continue
		}
		m := g.moves[mi]
		var other *il.Value
		if g.getAlias(m.Src) == g.getAlias(v) {
			other = g.getAlias(m.Dest)
		} else {
			other = g.getAlias(m.Src)
		}
		delete(g.activeMoves, mi)
		delete(g.worklistMoves, mi)
		g.frozenMoves[mi] = true
		if !g.isPrecolored(other) && !g.moveRelated(other) && g.degree[other] < k {
			delete(g.freezeWL, other)
			g.simplifyWL[other] = true
		}
	}
}

// selectSpill picks the highest degree-over-use-count node as the
// potential spill candidate (spec.md section 4.6's spill heuristic).
func (g *graph) selectSpill(useCount map[*il.Value]int) {
	var best *il.Value
	bestScore := -1.0
	for v := range g.spillWL {
		uc := useCount[v]
		if uc == 0 {
			uc = 1
		}
		score := float64(g.degree[v]) / float64(uc)
		if score > bestScore {
			bestScore = score
			best = v
		}
	}
	delete(g.spillWL, best)
	g.simplifyWL[best] = true
	g.freezeMoves(best)
}

// assignColors pops the select stack and attempts to color every node; a
// node with no free color becomes an actual spill and assignColors
// returns false so Allocate can rebuild and retry (spec.md section 4.6
// step 7).
func (g *graph) assignColors() bool {
	ok := true
	for i := len(g.selectStk) - 1; i >= 0; i-- {
		v := g.selectStk[i]
		used := map[PhysReg]bool{}
		for _, w := range g.adjList[v] {
			a := g.getAlias(w)
			if r, isP := g.precolored[a]; isP {
				used[r] = true
				continue
			}
			if r, isC := g.colored[a]; isC {
				used[r] = true
			}
		}
		found := false
		for r := PhysReg(0); r < NumPhysRegs; r++ {
			if !used[r] {
				g.colored[v] = r
				found = true
				break
			}
		}
		if !found {
			g.spilled[v] = true
			ok = false
		}
	}
	g.selectStk = nil
	if !ok {
		return false
	}
	for v := range g.coalesced {
		g.colored[v] = g.colored[g.getAlias(v)]
	}
	return true
}

// finish builds the final Spot map: colored nodes get their register,
// spilled nodes get a stack slot, and the frame size is rounded to a
// 16-byte boundary per the System V AMD64 ABI (spec.md section 4.7).
func (g *graph) finish(fn *il.Function) *Result {
	res := &Result{Spots: map[*il.Value]Spot{}}
	offset := 0
	calleeUsed := map[PhysReg]bool{}

	for v, r := range g.colored {
		res.Spots[v] = Spot{IsReg: true, Reg: r}
		if isCalleeSaved(r) {
			calleeUsed[r] = true
		}
	}
	for _, v := range g.nodes {
		if _, ok := res.Spots[v]; ok {
			continue
		}
		size := v.Type.Size()
		if size < 8 {
			size = 8
		}
		offset += size
		res.Spots[v] = Spot{IsReg: false, Offset: offset}
	}

	for _, r := range CalleeSaved {
		if calleeUsed[r] {
			res.UsedCalleeSaved = append(res.UsedCalleeSaved, r)
		}
	}
	frame := offset
	if frame%16 != 0 {
		frame += 16 - frame%16
	}
	res.FrameSize = frame
	return res
}

func isCalleeSaved(r PhysReg) bool {
	for _, c := range CalleeSaved {
		if c == r {
			return true
		}
	}
	return false
}
