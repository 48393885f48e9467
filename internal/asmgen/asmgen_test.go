package asmgen

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xyproto/c67cc/internal/diag"
	"github.com/xyproto/c67cc/internal/il"
	"github.com/xyproto/c67cc/internal/lexer"
	"github.com/xyproto/c67cc/internal/liveness"
	"github.com/xyproto/c67cc/internal/lower"
	"github.com/xyproto/c67cc/internal/parser"
	"github.com/xyproto/c67cc/internal/regalloc"
)

// compile runs the whole front end through register allocation and
// returns the generated assembly, mirroring internal/driver's assemble
// step so these tests exercise the real pipeline rather than a hand-
// built IL fixture.
func compile(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "a.c")
	if err := os.WriteFile(p, []byte(src), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	toks, err := lexer.Lex(p, lexer.IncludePaths{})
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	unit, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	diags := diag.New()
	prog := lower.LowerUnit(unit, diags)
	if diags.HasErrors() {
		t.Fatalf("lowering errors: %v", diags.Diagnostics())
	}
	allocs := map[*il.Function]*regalloc.Result{}
	for _, fn := range prog.Functions {
		lv := liveness.Analyze(fn)
		allocs[fn] = regalloc.Allocate(fn, lv)
	}
	return Emit(prog, allocs)
}

func TestEmitFunctionHasStandardPrologueAndEpilogue(t *testing.T) {
	asm := compile(t, "int f(int a) { return a; }")
	if !strings.Contains(asm, "f:\n") {
		t.Errorf("missing function label:\n%s", asm)
	}
	if !strings.Contains(asm, "\tpushq %rbp\n") || !strings.Contains(asm, "\tmovq %rsp, %rbp\n") {
		t.Errorf("missing standard prologue:\n%s", asm)
	}
	if !strings.Contains(asm, "f_epilogue:\n") {
		t.Errorf("missing epilogue label:\n%s", asm)
	}
	if !strings.Contains(asm, "\tpopq %rbp\n") || !strings.Contains(asm, "\tret\n") {
		t.Errorf("missing standard epilogue:\n%s", asm)
	}
}

func TestExternalFunctionGetsGloblDirective(t *testing.T) {
	asm := compile(t, "int f(void) { return 0; }")
	if !strings.Contains(asm, "\t.globl f\n") {
		t.Errorf("expected external linkage function to be .globl:\n%s", asm)
	}
}

func TestStaticFunctionIsNotGlobl(t *testing.T) {
	asm := compile(t, "static int helper(void) { return 0; }")
	if strings.Contains(asm, ".globl helper") {
		t.Errorf("internal-linkage function must not be .globl:\n%s", asm)
	}
}

// TestAmbientHomeAddressedViaFramePointer checks that a parameter whose
// address is taken gets a fixed -N(%rbp) home, per DESIGN.md's "ambient
// home vs. computed pointer" note.
func TestAmbientHomeAddressedViaFramePointer(t *testing.T) {
	asm := compile(t, "int f(int a) { int *p; p = &a; return *p; }")
	if !strings.Contains(asm, "(%rbp)") {
		t.Errorf("expected at least one rbp-relative operand:\n%s", asm)
	}
	if !strings.Contains(asm, "leaq") {
		t.Errorf("expected &a to lower to a leaq of a's home:\n%s", asm)
	}
}

func TestDivisionUsesIdivAndSignExtension(t *testing.T) {
	asm := compile(t, "int f(int a, int b) { return a / b; }")
	if !strings.Contains(asm, "idivl") && !strings.Contains(asm, "idivq") {
		t.Errorf("expected an idiv instruction:\n%s", asm)
	}
	if !strings.Contains(asm, "cltd") && !strings.Contains(asm, "cqto") {
		t.Errorf("expected a sign-extension instruction ahead of idiv:\n%s", asm)
	}
}

func TestModuloReadsRemainderFromRDX(t *testing.T) {
	asm := compile(t, "int f(int a, int b) { return a % b; }")
	if !strings.Contains(asm, "%edx") && !strings.Contains(asm, "%rdx") {
		t.Errorf("expected modulo result to be moved out of dx:\n%s", asm)
	}
}

func TestVariableShiftUsesClRegister(t *testing.T) {
	asm := compile(t, "int f(int a, int b) { return a << b; }")
	if !strings.Contains(asm, "%cl") {
		t.Errorf("expected a variable shift count to go through %%cl:\n%s", asm)
	}
}

func TestCallMarshalsArgumentsIntoArgRegsInOrder(t *testing.T) {
	asm := compile(t, "int g(int, int); int f(void) { return g(1, 2); }")
	if !strings.Contains(asm, "\tcall g\n") {
		t.Errorf("expected a direct call to g:\n%s", asm)
	}
	idi := strings.Index(asm, "%edi")
	iesi := strings.Index(asm, "%esi")
	icall := strings.Index(asm, "\tcall g\n")
	if idi == -1 || iesi == -1 || idi > icall || iesi > icall {
		t.Errorf("expected arguments loaded into edi/esi ahead of the call:\n%s", asm)
	}
}

func TestSeventhArgumentSpillsOntoStack(t *testing.T) {
	asm := compile(t, "int g(int,int,int,int,int,int,int); int f(void) { return g(1,2,3,4,5,6,7); }")
	if !strings.Contains(asm, "\tpushq %rax\n") {
		t.Errorf("expected the 7th integer argument to be pushed:\n%s", asm)
	}
	if !strings.Contains(asm, "\taddq $8, %rsp\n") {
		t.Errorf("expected the caller to pop the one stack argument back off:\n%s", asm)
	}
}

func TestGlobalWithZeroInitializerGoesInBss(t *testing.T) {
	asm := compile(t, "int counter;")
	if !strings.Contains(asm, "\t.bss\n") {
		t.Errorf("expected a .bss section for an uninitialized global:\n%s", asm)
	}
	if !strings.Contains(asm, "counter:\n\t.zero 4\n") {
		t.Errorf("expected counter to reserve 4 zero bytes:\n%s", asm)
	}
}

func TestGlobalWithNonzeroInitializerGoesInData(t *testing.T) {
	asm := compile(t, "int counter = 7;")
	if !strings.Contains(asm, "\t.data\n") {
		t.Errorf("expected a .data section for an initialized global:\n%s", asm)
	}
	if !strings.Contains(asm, "counter:\n\t.long 7\n") {
		t.Errorf("expected counter's initializer to be emitted as .long 7:\n%s", asm)
	}
}

func TestStringLiteralPlacedInRodataSection(t *testing.T) {
	asm := compile(t, `char *f(void) { return "hi"; }`)
	if !strings.Contains(asm, "\t.section .rodata\n") {
		t.Errorf("expected a .rodata section for the string literal:\n%s", asm)
	}
	if !strings.Contains(asm, "\t.byte 104, 105, 0") {
		t.Errorf("expected the string's NUL-terminated byte list:\n%s", asm)
	}
}

func TestCalleeSavedRegistersAreSavedAndRestoredInMirrorOrder(t *testing.T) {
	// Enough simultaneously-live values to force the allocator to reach
	// into a callee-saved register.
	asm := compile(t, `
int f(int a, int b, int c, int d, int e, int g, int h, int i, int j) {
	return a + b + c + d + e + g + h + i + j;
}
`)
	pushIdx := strings.Index(asm, "pushq %rbp")
	if pushIdx == -1 {
		t.Fatal("missing frame-pointer push")
	}
	// Any callee-saved push after %rbp must be undone by a matching pop
	// before the final `popq %rbp; ret`, in reverse order.
	if strings.Count(asm, "pushq %rbx") != strings.Count(asm, "popq %rbx") {
		t.Errorf("unbalanced rbx save/restore:\n%s", asm)
	}
	var pushes, pops []string
	for _, line := range strings.Split(asm, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "pushq %") && line != "pushq %rbp" {
			pushes = append(pushes, strings.TrimPrefix(line, "pushq "))
		}
		if strings.HasPrefix(line, "popq %") && line != "popq %rbp" {
			pops = append(pops, strings.TrimPrefix(line, "popq "))
		}
	}
	if len(pushes) != len(pops) {
		t.Fatalf("callee-saved pushes %v and pops %v differ in number:\n%s", pushes, pops, asm)
	}
	for i := range pushes {
		if pushes[i] != pops[len(pops)-1-i] {
			t.Errorf("callee-saved pops %v are not the reverse of pushes %v:\n%s", pops, pushes, asm)
			break
		}
	}
}
