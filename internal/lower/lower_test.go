package lower

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xyproto/c67cc/internal/ctype"
	"github.com/xyproto/c67cc/internal/diag"
	"github.com/xyproto/c67cc/internal/il"
	"github.com/xyproto/c67cc/internal/lexer"
	"github.com/xyproto/c67cc/internal/parser"
)

func lowerSource(t *testing.T, src string) (*il.Program, *diag.Collector) {
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
	prog := LowerUnit(unit, diags)
	return prog, diags
}

func findFunc(prog *il.Program, name string) *il.Function {
	for _, fn := range prog.Functions {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}

// TestLvalueLawAddrOfDeref checks spec.md section 8's `&*p == p` law: the
// roundtrip type-checks without error and reads through memory exactly as
// a bare `*p` would -- at least one ReadAt reaches the pointee, and the
// function's return value carries the pointee's type rather than some
// poisoned stand-in.
func TestLvalueLawAddrOfDeref(t *testing.T) {
	prog, diags := lowerSource(t, "int f(int *p) { return *(&*p); }")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	fn := findFunc(prog, "f")
	if fn == nil {
		t.Fatal("function f not found")
	}
	readAts := 0
	for _, c := range fn.Commands {
		if _, ok := c.(*il.ReadAt); ok {
			readAts++
		}
	}
	if readAts == 0 {
		t.Errorf("expected *(&*p) to read through memory at least once")
	}
	var ret *il.Return
	for _, c := range fn.Commands {
		if r, ok := c.(*il.Return); ok {
			ret = r
		}
	}
	if ret == nil || ret.Value == nil || ret.Value.Type != ctype.Int {
		t.Errorf("return value type = %v, want int", ret)
	}
}

// TestAssignmentEvaluatesLHSAddressOnce checks that `*p = 5` lowers to a
// single SetAt, not a read-modify-write pair, and that the address it
// stores through is computed by exactly one command.
func TestAssignmentEvaluatesLHSAddressOnce(t *testing.T) {
	prog, diags := lowerSource(t, "int f(int *p) { *p = 5; return 0; }")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	fn := findFunc(prog, "f")
	setAts := 0
	var setAt *il.SetAt
	for _, c := range fn.Commands {
		if s, ok := c.(*il.SetAt); ok {
			setAts++
			setAt = s
		}
	}
	if setAts != 1 {
		t.Errorf("got %d SetAt commands, want exactly 1", setAts)
	}
	if setAt != nil {
		defs := 0
		for _, c := range fn.Commands {
			for _, w := range c.Writes() {
				if w == setAt.Ptr {
					defs++
				}
			}
		}
		if defs != 1 {
			t.Errorf("the SetAt's address is written by %d commands, want exactly 1", defs)
		}
	}
}

// TestSizeofDoesNotEvaluateItsOperand checks that sizeof on an expression
// with a side effect (here a call) never lowers the call: spec.md section
// 4.1 makes sizeof purely a compile-time constant.
func TestSizeofDoesNotEvaluateItsOperand(t *testing.T) {
	prog, diags := lowerSource(t, "int g(); int f() { return sizeof(g()); }")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	fn := findFunc(prog, "f")
	for _, c := range fn.Commands {
		if _, ok := c.(*il.Call); ok {
			t.Errorf("sizeof operand must not be evaluated, but found a Call command")
		}
	}
}

func TestLogicalAndShortCircuitsWithBranches(t *testing.T) {
	prog, diags := lowerSource(t, "int f(int a, int b) { return a && b; }")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	fn := findFunc(prog, "f")
	foundBranch := false
	for _, c := range fn.Commands {
		switch c.(type) {
		case *il.JumpZero, *il.JumpNotZero, *il.Jump:
			foundBranch = true
		}
	}
	if !foundBranch {
		t.Errorf("expected && to lower to explicit branch commands for short-circuiting")
	}
}

func TestStaticLocalGetsItsOwnGlobal(t *testing.T) {
	prog, diags := lowerSource(t, "int counter() { static int n = 0; n = n + 1; return n; }")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	if len(prog.Globals) == 0 {
		t.Fatalf("expected a static local to produce a file-scope Global")
	}
}

func TestIncompatibleAssignmentIsReportedNotPanicked(t *testing.T) {
	_, diags := lowerSource(t, "int f() { int *p; p = 5; return 0; }")
	if !diags.HasErrors() {
		t.Errorf("expected a type error assigning int to int*")
	}
}

func TestStructSizeofMatchesLayout(t *testing.T) {
	prog, diags := lowerSource(t, `
struct pair { char c; int i; };
int f() { return sizeof(struct pair); }
`)
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Diagnostics())
	}
	fn := findFunc(prog, "f")
	var load *il.Load
	for _, c := range fn.Commands {
		if l, ok := c.(*il.Load); ok {
			load = l
		}
	}
	if load == nil {
		t.Fatal("expected sizeof to lower to a Load of a compile-time constant")
	}
	if load.Imm != 8 {
		t.Errorf("sizeof(struct pair) = %d, want 8 (char padded to int, 4-byte aligned)", load.Imm)
	}
}
