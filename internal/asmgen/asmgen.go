// Package asmgen implements spec.md section 4.7: translating one
// register-allocated function into x86-64 GNU (AT&T syntax) assembly for
// the System V AMD64 ABI, plus the whole-program .data/.bss/.rodata
// layout for the globals and string-literal constants internal/lower
// collected onto the il.Program.
package asmgen

import (
	"fmt"
	"strings"

	"github.com/xyproto/c67cc/internal/il"
	"github.com/xyproto/c67cc/internal/regalloc"
)

// frame is the per-function layout: ambient variable homes (spec.md
// section 4.4's "every automatic variable/parameter gets one ILValue")
// live below the frame pointer at fixed offsets sized by the variable's
// own type, independent of whatever register or spill slot the
// allocator gave the pointer value itself, which never denotes a
// runtime-computed address for these -- see DESIGN.md's "ambient home
// vs. computed pointer" note.
type frame struct {
	homeOffset map[*il.Value]int
	homeSize   map[*il.Value]int
	size       int
}

// buildFrame finds every Local pointer-value that is read as an address
// but never itself the target of any command's Writes() -- the ambient
// homes NewLvalueLocal created for automatic variables and parameters --
// and assigns each a fixed, non-overlapping slot sized by its pointee.
func buildFrame(fn *il.Function) *frame {
	written := map[*il.Value]bool{}
	referenced := map[*il.Value]bool{}
	for _, c := range fn.Commands {
		for _, w := range c.Writes() {
			if w != nil {
				written[w] = true
			}
		}
		for _, r := range c.Reads() {
			if r != nil && r.IsLvalueLocation && r.Class == il.Local {
				referenced[r] = true
			}
		}
	}
	for _, p := range fn.Params {
		if p.Value != nil {
			referenced[p.Value] = true
		}
	}

	f := &frame{homeOffset: map[*il.Value]int{}, homeSize: map[*il.Value]int{}}
	off := 0
	for v := range referenced {
		if written[v] {
			continue // a genuinely computed pointer, not an ambient home
		}
		size := 8
		if v.Type != nil && v.Type.Pointee != nil {
			size = v.Type.Pointee.Size()
			if size <= 0 {
				size = 8
			}
		}
		off += size
		if rem := off % 8; rem != 0 {
			off += 8 - rem // keep every home 8-byte aligned for simplicity
		}
		f.homeOffset[v] = off
		f.homeSize[v] = size
	}
	f.size = off
	return f
}

func (f *frame) isHome(v *il.Value) bool {
	_, ok := f.homeOffset[v]
	return ok
}

// Emit generates the full assembly listing for prog, given each
// function's register allocation.
func Emit(prog *il.Program, allocs map[*il.Function]*regalloc.Result) string {
	var b strings.Builder
	b.WriteString("\t.text\n")
	for _, fn := range prog.Functions {
		if fn.Linkage == "external" {
			fmt.Fprintf(&b, "\t.globl %s\n", fn.Name)
		}
	}
	for _, fn := range prog.Functions {
		emitFunction(&b, fn, allocs[fn])
	}

	var data, bss, rodata strings.Builder
	for _, g := range prog.Globals {
		emitGlobal(&data, &bss, g)
	}
	for _, s := range prog.Strings {
		fmt.Fprintf(&rodata, "%s:\n\t.byte %s\n", s.Label, byteList(s.Bytes))
	}

	if data.Len() > 0 {
		b.WriteString("\t.data\n")
		b.WriteString(data.String())
	}
	if bss.Len() > 0 {
		b.WriteString("\t.bss\n")
		b.WriteString(bss.String())
	}
	if rodata.Len() > 0 {
		b.WriteString("\t.section .rodata\n")
		b.WriteString(rodata.String())
	}
	return b.String()
}

func emitGlobal(data, bss *strings.Builder, g *il.Global) {
	if g.Linkage == "external" {
		fmt.Fprintf(data, "\t.globl %s\n", g.Label)
	}
	switch g.Kind {
	case il.GlobalBSS:
		fmt.Fprintf(bss, "%s:\n\t.zero %d\n", g.Label, g.Type.Size())
	case il.GlobalData:
		fmt.Fprintf(data, "%s:\n", g.Label)
		if g.InitStr != nil {
			fmt.Fprintf(data, "\t.byte %s\n", byteList(g.InitStr))
			if pad := g.Type.Size() - len(g.InitStr); pad > 0 {
				fmt.Fprintf(data, "\t.zero %d\n", pad)
			}
		} else {
			fmt.Fprintf(data, "\t.%s %d\n", dataDirective(g.Type.Size()), g.InitInt)
		}
	}
}

func dataDirective(size int) string {
	switch size {
	case 1:
		return "byte"
	case 2:
		return "word"
	case 4:
		return "long"
	default:
		return "quad"
	}
}

func byteList(bs []byte) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = fmt.Sprintf("%d", b)
	}
	return strings.Join(parts, ", ")
}

type ctx struct {
	b     *strings.Builder
	fn    *il.Function
	alloc *regalloc.Result
	frame *frame
	// calleeBytes is how many bytes the callee-saved pushes below %rbp
	// occupy; every home and spill offset is measured from below that
	// region, not from %rbp directly, so the two never alias.
	calleeBytes int
	frameTotal  int
}

func emitFunction(b *strings.Builder, fn *il.Function, alloc *regalloc.Result) {
	fr := buildFrame(fn)
	c := &ctx{b: b, fn: fn, alloc: alloc, frame: fr}
	c.calleeBytes = 8 * len(alloc.UsedCalleeSaved)
	c.frameTotal = alloc.FrameSize + fr.size
	if combined := c.calleeBytes + c.frameTotal; combined%16 != 0 {
		c.frameTotal += 16 - combined%16
	}

	fmt.Fprintf(b, "%s:\n", fn.Name)
	b.WriteString("\tpushq %rbp\n")
	b.WriteString("\tmovq %rsp, %rbp\n")
	for _, r := range alloc.UsedCalleeSaved {
		fmt.Fprintf(b, "\tpushq %%%s\n", r.String())
	}
	if c.frameTotal > 0 {
		fmt.Fprintf(b, "\tsubq $%d, %%rsp\n", c.frameTotal)
	}

	c.emitParamPrelude()
	for _, cmd := range fn.Commands {
		c.emit(cmd)
	}

	fmt.Fprintf(b, "%s_epilogue:\n", fn.Name)
	if c.frameTotal > 0 {
		fmt.Fprintf(b, "\taddq $%d, %%rsp\n", c.frameTotal)
	}
	for i := len(alloc.UsedCalleeSaved) - 1; i >= 0; i-- {
		fmt.Fprintf(b, "\tpopq %%%s\n", alloc.UsedCalleeSaved[i].String())
	}
	b.WriteString("\tpopq %rbp\n")
	b.WriteString("\tret\n")
}

// emitParamPrelude stores the first six integer parameters from their
// ABI argument registers into their home slots, and reads any remaining
// parameters from the caller's stack frame (spec.md section 4.7).
func (c *ctx) emitParamPrelude() {
	for i, p := range c.fn.Params {
		size := regSize(p.Type.Size())
		dst := c.homeOperand(p.Value)
		if i < len(regalloc.ArgRegs) {
			src := "%" + sizedReg(regalloc.ArgRegs[i], size)
			fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), src, dst)
		} else {
			stackOff := 16 + 8*(i-len(regalloc.ArgRegs))
			fmt.Fprintf(c.b, "\tmov%s %d(%%rbp), %%r11\n", suffix(8), stackOff)
			fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), "%"+sizedReg(R11Alias, size), dst)
		}
	}
}

// homeOperand renders v's ambient home as an [rbp-N] operand. Homes
// occupy the low part of the frame below the callee-saved region;
// spill slots (below) start above the home region so the three never
// overlap.
func (c *ctx) homeOperand(v *il.Value) string {
	return fmt.Sprintf("-%d(%%rbp)", c.calleeBytes+c.frame.homeOffset[v])
}

// operand renders v as an AT&T operand of the given byte size: an
// immediate, a label reference, a register, or a spill-slot memory
// operand, per its regalloc.Spot.
func (c *ctx) operand(v *il.Value, size int) string {
	switch v.Class {
	case il.Literal:
		return fmt.Sprintf("$%d", v.LiteralValue)
	case il.Named:
		if v.IsLvalueLocation {
			return v.SymbolName + "(%rip)"
		}
		return "$" + v.SymbolName
	case il.StringLiteral:
		return v.StringLabel + "(%rip)"
	}
	if c.frame.isHome(v) {
		return c.homeOperand(v)
	}
	spot := c.alloc.Spots[v]
	if spot.IsReg {
		return "%" + sizedReg(spot.Reg, size)
	}
	return fmt.Sprintf("-%d(%%rbp)", c.calleeBytes+c.frame.size+spot.Offset)
}

// R11Alias is the scratch register used to shuttle values between two
// memory operands that cannot be combined in a single x86 instruction.
const R11Alias = regalloc.NumPhysRegs // out-of-band id, never a colorable register

func sizedReg(r regalloc.PhysReg, size int) string {
	if r == R11Alias {
		switch size {
		case 1:
			return "r11b"
		case 2:
			return "r11w"
		case 4:
			return "r11d"
		default:
			return "r11"
		}
	}
	names8 := map[regalloc.PhysReg]string{
		regalloc.RAX: "rax", regalloc.RBX: "rbx", regalloc.RCX: "rcx", regalloc.RDX: "rdx",
		regalloc.RSI: "rsi", regalloc.RDI: "rdi", regalloc.R8: "r8", regalloc.R9: "r9",
		regalloc.R10: "r10", regalloc.R12: "r12", regalloc.R13: "r13", regalloc.R14: "r14", regalloc.R15: "r15",
	}
	names4 := map[regalloc.PhysReg]string{
		regalloc.RAX: "eax", regalloc.RBX: "ebx", regalloc.RCX: "ecx", regalloc.RDX: "edx",
		regalloc.RSI: "esi", regalloc.RDI: "edi", regalloc.R8: "r8d", regalloc.R9: "r9d",
		regalloc.R10: "r10d", regalloc.R12: "r12d", regalloc.R13: "r13d", regalloc.R14: "r14d", regalloc.R15: "r15d",
	}
	names2 := map[regalloc.PhysReg]string{
		regalloc.RAX: "ax", regalloc.RBX: "bx", regalloc.RCX: "cx", regalloc.RDX: "dx",
		regalloc.RSI: "si", regalloc.RDI: "di", regalloc.R8: "r8w", regalloc.R9: "r9w",
		regalloc.R10: "r10w", regalloc.R12: "r12w", regalloc.R13: "r13w", regalloc.R14: "r14w", regalloc.R15: "r15w",
	}
	names1 := map[regalloc.PhysReg]string{
		regalloc.RAX: "al", regalloc.RBX: "bl", regalloc.RCX: "cl", regalloc.RDX: "dl",
		regalloc.RSI: "sil", regalloc.RDI: "dil", regalloc.R8: "r8b", regalloc.R9: "r9b",
		regalloc.R10: "r10b", regalloc.R12: "r12b", regalloc.R13: "r13b", regalloc.R14: "r14b", regalloc.R15: "r15b",
	}
	switch size {
	case 1:
		return names1[r]
	case 2:
		return names2[r]
	case 4:
		return names4[r]
	default:
		return names8[r]
	}
}

func suffix(size int) string {
	switch size {
	case 1:
		return "b"
	case 2:
		return "w"
	case 4:
		return "l"
	default:
		return "q"
	}
}

// regSize clamps an arbitrary type size to the nearest operand width
// the instruction set actually offers (aggregates larger than 8 bytes
// are addressed, never loaded whole into a register).
func regSize(size int) int {
	switch {
	case size <= 1:
		return 1
	case size <= 2:
		return 2
	case size <= 4:
		return 4
	default:
		return 8
	}
}

// loadScratch moves v into the %r11 scratch register, sized to v's type,
// used whenever an instruction's two operands would otherwise both be
// memory (x86 never allows that).
func (c *ctx) loadScratch(v *il.Value) string {
	size := regSize(v.Type.Size())
	reg := "%" + sizedReg(R11Alias, size)
	fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(v, size), reg)
	return reg
}

func (c *ctx) isMem(v *il.Value) bool {
	if v.Class == il.Literal {
		return false
	}
	if v.Class == il.Named || v.Class == il.StringLiteral {
		return true
	}
	if c.frame.isHome(v) {
		return true
	}
	return !c.alloc.Spots[v].IsReg
}

// arithInto emits a two-operand arithmetic op through %rax as the
// accumulator, loading B through %r11 first whenever B is a memory
// operand.
func (c *ctx) arithInto(mnemonic string, out, a, b *il.Value) {
	size := regSize(out.Type.Size())
	acc := "%" + sizedReg(regalloc.RAX, size)
	fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(a, size), acc)
	src := c.operand(b, size)
	if c.isMem(b) {
		src = c.loadScratch(b)
	}
	fmt.Fprintf(c.b, "\t%s%s %s, %s\n", mnemonic, suffix(size), src, acc)
	fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), acc, c.operand(out, size))
}

var setccByOp = map[il.Op]string{
	il.OpEq: "sete", il.OpNeq: "setne",
	il.OpLt: "setl", il.OpLe: "setle", il.OpGt: "setg", il.OpGe: "setge",
}

func (c *ctx) emit(cmd il.Command) {
	switch n := cmd.(type) {
	case *il.Label:
		fmt.Fprintf(c.b, "%s:\n", n.Name)

	case *il.Jump:
		fmt.Fprintf(c.b, "\tjmp %s\n", n.Target)

	case *il.JumpZero:
		size := regSize(n.Cond.Type.Size())
		fmt.Fprintf(c.b, "\tcmp%s $0, %s\n", suffix(size), c.operand(n.Cond, size))
		fmt.Fprintf(c.b, "\tje %s\n", n.Target)

	case *il.JumpNotZero:
		size := regSize(n.Cond.Type.Size())
		fmt.Fprintf(c.b, "\tcmp%s $0, %s\n", suffix(size), c.operand(n.Cond, size))
		fmt.Fprintf(c.b, "\tjne %s\n", n.Target)

	case *il.Return:
		if n.Value != nil {
			size := regSize(n.Value.Type.Size())
			fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(n.Value, size), "%"+sizedReg(regalloc.RAX, size))
		}
		fmt.Fprintf(c.b, "\tjmp %s_epilogue\n", c.fn.Name)

	case *il.BinOp:
		c.emitBinOp(n)

	case *il.UnOp:
		size := regSize(n.Out.Type.Size())
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(n.A, size), "%"+sizedReg(regalloc.RAX, size))
		if n.Op == il.OpNeg {
			fmt.Fprintf(c.b, "\tneg%s %s\n", suffix(size), "%"+sizedReg(regalloc.RAX, size))
		} else {
			fmt.Fprintf(c.b, "\tnot%s %s\n", suffix(size), "%"+sizedReg(regalloc.RAX, size))
		}
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), "%"+sizedReg(regalloc.RAX, size), c.operand(n.Out, size))

	case *il.AddrOf:
		// A already denotes an address (an ambient home or a previously
		// computed pointer); & just copies that bit pattern into Out.
		if c.frame.isHome(n.A) {
			fmt.Fprintf(c.b, "\tleaq %s, %s\n", c.homeOperand(n.A), "%"+sizedReg(regalloc.RAX, 8))
			fmt.Fprintf(c.b, "\tmovq %s, %s\n", "%"+sizedReg(regalloc.RAX, 8), c.operand(n.Out, 8))
			return
		}
		fmt.Fprintf(c.b, "\tmovq %s, %s\n", c.operand(n.A, 8), "%"+sizedReg(regalloc.RAX, 8))
		fmt.Fprintf(c.b, "\tmovq %s, %s\n", "%"+sizedReg(regalloc.RAX, 8), c.operand(n.Out, 8))

	case *il.ReadAt:
		size := regSize(n.Out.Type.Size())
		if c.frame.isHome(n.Ptr) {
			fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.homeOperand(n.Ptr), "%"+sizedReg(regalloc.RAX, size))
		} else {
			addr := c.operand(n.Ptr, 8)
			if c.isMem(n.Ptr) {
				addr = c.loadScratch(n.Ptr)
			}
			fmt.Fprintf(c.b, "\tmov%s (%s), %s\n", suffix(size), addr, "%"+sizedReg(regalloc.RAX, size))
		}
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), "%"+sizedReg(regalloc.RAX, size), c.operand(n.Out, size))

	case *il.SetAt:
		size := regSize(n.Src.Type.Size())
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(n.Src, size), "%"+sizedReg(regalloc.RAX, size))
		if c.frame.isHome(n.Ptr) {
			fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), "%"+sizedReg(regalloc.RAX, size), c.homeOperand(n.Ptr))
			return
		}
		addr := c.operand(n.Ptr, 8)
		if c.isMem(n.Ptr) {
			addr = c.loadScratch(n.Ptr)
		}
		fmt.Fprintf(c.b, "\tmov%s %s, (%s)\n", suffix(size), "%"+sizedReg(regalloc.RAX, size), addr)

	case *il.PointerAdd:
		fmt.Fprintf(c.b, "\tmovq %s, %s\n", c.operand(n.Ptr, 8), "%"+sizedReg(regalloc.RAX, 8))
		src := c.operand(n.Offset, 8)
		if c.isMem(n.Offset) {
			src = c.loadScratch(n.Offset)
		}
		fmt.Fprintf(c.b, "\taddq %s, %s\n", src, "%"+sizedReg(regalloc.RAX, 8))
		fmt.Fprintf(c.b, "\tmovq %s, %s\n", "%"+sizedReg(regalloc.RAX, 8), c.operand(n.Out, 8))

	case *il.PointerSub:
		fmt.Fprintf(c.b, "\tmovq %s, %s\n", c.operand(n.Ptr, 8), "%"+sizedReg(regalloc.RAX, 8))
		src := c.operand(n.Offset, 8)
		if c.isMem(n.Offset) {
			src = c.loadScratch(n.Offset)
		}
		fmt.Fprintf(c.b, "\tsubq %s, %s\n", src, "%"+sizedReg(regalloc.RAX, 8))
		fmt.Fprintf(c.b, "\tmovq %s, %s\n", "%"+sizedReg(regalloc.RAX, 8), c.operand(n.Out, 8))

	case *il.PointerDiff:
		fmt.Fprintf(c.b, "\tmovq %s, %s\n", c.operand(n.A, 8), "%"+sizedReg(regalloc.RAX, 8))
		src := c.operand(n.B, 8)
		if c.isMem(n.B) {
			src = c.loadScratch(n.B)
		}
		fmt.Fprintf(c.b, "\tsubq %s, %s\n", src, "%"+sizedReg(regalloc.RAX, 8))
		if n.ElemSize > 1 {
			fmt.Fprintf(c.b, "\tmovq $%d, %s\n", n.ElemSize, "%"+sizedReg(R11Alias, 8))
			fmt.Fprintf(c.b, "\tcqto\n")
			fmt.Fprintf(c.b, "\tidivq %s\n", "%"+sizedReg(R11Alias, 8))
		}
		fmt.Fprintf(c.b, "\tmovq %s, %s\n", "%"+sizedReg(regalloc.RAX, 8), c.operand(n.Out, 8))

	case *il.Call:
		c.emitCall(n)

	case *il.Set:
		size := regSize(n.Dest.Type.Size())
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(n.Src, size), "%"+sizedReg(regalloc.RAX, size))
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), "%"+sizedReg(regalloc.RAX, size), c.operand(n.Dest, size))

	case *il.Load:
		size := regSize(n.Out.Type.Size())
		fmt.Fprintf(c.b, "\tmov%s $%d, %s\n", suffix(size), n.Imm, c.operand(n.Out, size))

	case *il.StructMemberCopy:
		c.emitStructCopy(n)

	case *il.Zero:
		c.emitZero(n)

	case *il.StringLiteralData:
		// placed in .rodata by Emit, nothing to do inline
	}
}

func (c *ctx) emitBinOp(n *il.BinOp) {
	if n.Op.IsCompare() {
		size := regSize(n.A.Type.Size())
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(n.A, size), "%"+sizedReg(regalloc.RAX, size))
		src := c.operand(n.B, size)
		if c.isMem(n.B) {
			src = c.loadScratch(n.B)
		}
		fmt.Fprintf(c.b, "\tcmp%s %s, %s\n", suffix(size), src, "%"+sizedReg(regalloc.RAX, size))
		fmt.Fprintf(c.b, "\t%s %%al\n", setccByOp[n.Op])
		fmt.Fprintf(c.b, "\tmovzbl %%al, %%eax\n")
		outSize := regSize(n.Out.Type.Size())
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(outSize), "%"+sizedReg(regalloc.RAX, outSize), c.operand(n.Out, outSize))
		return
	}

	switch n.Op {
	case il.OpAdd:
		c.arithInto("add", n.Out, n.A, n.B)
	case il.OpSub:
		c.arithInto("sub", n.Out, n.A, n.B)
	case il.OpAnd:
		c.arithInto("and", n.Out, n.A, n.B)
	case il.OpOr:
		c.arithInto("or", n.Out, n.A, n.B)
	case il.OpXor:
		c.arithInto("xor", n.Out, n.A, n.B)
	case il.OpMult:
		size := regSize(n.Out.Type.Size())
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(n.A, size), "%"+sizedReg(regalloc.RAX, size))
		src := c.operand(n.B, size)
		if c.isMem(n.B) {
			src = c.loadScratch(n.B)
		}
		fmt.Fprintf(c.b, "\timul%s %s, %s\n", suffix(size), src, "%"+sizedReg(regalloc.RAX, size))
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), "%"+sizedReg(regalloc.RAX, size), c.operand(n.Out, size))
	case il.OpDiv, il.OpMod:
		size := regSize(n.Out.Type.Size())
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(n.A, size), "%"+sizedReg(regalloc.RAX, size))
		if size == 8 {
			c.b.WriteString("\tcqto\n")
		} else {
			c.b.WriteString("\tcltd\n")
		}
		divisor := c.operand(n.B, size)
		if c.isMem(n.B) {
			divisor = c.loadScratch(n.B)
		}
		fmt.Fprintf(c.b, "\tidiv%s %s\n", suffix(size), divisor)
		result := regalloc.RAX
		if n.Op == il.OpMod {
			result = regalloc.RDX
		}
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), "%"+sizedReg(result, size), c.operand(n.Out, size))
	case il.OpLShift, il.OpRShift:
		size := regSize(n.Out.Type.Size())
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(n.A, size), "%"+sizedReg(regalloc.RAX, size))
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(n.B, size), "%"+sizedReg(regalloc.RCX, size))
		mnem := "shl"
		if n.Op == il.OpRShift {
			mnem = "sar"
		}
		fmt.Fprintf(c.b, "\t%s%s %%cl, %s\n", mnem, suffix(size), "%"+sizedReg(regalloc.RAX, size))
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), "%"+sizedReg(regalloc.RAX, size), c.operand(n.Out, size))
	}
}

// emitCall marshals Args into the System V integer argument registers
// (spilling any beyond six onto the stack in reverse order), issues the
// CALL, and stores the result.
func (c *ctx) emitCall(n *il.Call) {
	extra := n.Args
	if len(extra) > len(regalloc.ArgRegs) {
		for i := len(extra) - 1; i >= len(regalloc.ArgRegs); i-- {
			size := regSize(extra[i].Type.Size())
			fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(extra[i], size), "%"+sizedReg(regalloc.RAX, 8))
			c.b.WriteString("\tpushq %rax\n")
		}
	}
	for i := 0; i < len(n.Args) && i < len(regalloc.ArgRegs); i++ {
		size := regSize(n.Args[i].Type.Size())
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), c.operand(n.Args[i], size), "%"+sizedReg(regalloc.ArgRegs[i], size))
	}
	if n.Func.Class == il.Named {
		fmt.Fprintf(c.b, "\tcall %s\n", n.Func.SymbolName)
	} else {
		addr := c.operand(n.Func, 8)
		if c.isMem(n.Func) {
			addr = c.loadScratch(n.Func)
		}
		fmt.Fprintf(c.b, "\tcall *%s\n", addr)
	}
	if len(extra) > len(regalloc.ArgRegs) {
		fmt.Fprintf(c.b, "\taddq $%d, %%rsp\n", 8*(len(extra)-len(regalloc.ArgRegs)))
	}
	if n.Out != nil {
		size := regSize(n.Out.Type.Size())
		fmt.Fprintf(c.b, "\tmov%s %s, %s\n", suffix(size), "%"+sizedReg(regalloc.RAX, size), c.operand(n.Out, size))
	}
}

func (c *ctx) emitStructCopy(n *il.StructMemberCopy) {
	srcAddr := c.addrOperand(n.SrcPtr)
	dstAddr := c.addrOperand(n.DestPtr)
	remaining := n.Size
	off := 0
	for remaining >= 8 {
		fmt.Fprintf(c.b, "\tmovq %d(%s), %%rax\n", off, srcAddr)
		fmt.Fprintf(c.b, "\tmovq %%rax, %d(%s)\n", off, dstAddr)
		off += 8
		remaining -= 8
	}
	for remaining > 0 {
		fmt.Fprintf(c.b, "\tmovb %d(%s), %%al\n", off, srcAddr)
		fmt.Fprintf(c.b, "\tmovb %%al, %d(%s)\n", off, dstAddr)
		off++
		remaining--
	}
}

func (c *ctx) emitZero(n *il.Zero) {
	addr := c.addrOperand(n.Ptr)
	remaining := n.Size
	off := 0
	for remaining >= 8 {
		fmt.Fprintf(c.b, "\tmovq $0, %d(%s)\n", off, addr)
		off += 8
		remaining -= 8
	}
	for remaining > 0 {
		fmt.Fprintf(c.b, "\tmovb $0, %d(%s)\n", off, addr)
		off++
		remaining--
	}
}

// addrOperand loads v's address into %r11 and returns the register
// reference for use as a (%r11)-style base in a displacement operand.
func (c *ctx) addrOperand(v *il.Value) string {
	if c.frame.isHome(v) {
		fmt.Fprintf(c.b, "\tleaq %s, %%r11\n", c.homeOperand(v))
		return "%r11"
	}
	fmt.Fprintf(c.b, "\tmovq %s, %%r11\n", c.operand(v, 8))
	return "%r11"
}
