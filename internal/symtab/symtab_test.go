package symtab

import (
	"testing"

	"github.com/xyproto/c67cc/internal/ctype"
)

func TestDeclareAndLookup(t *testing.T) {
	e := New()
	sym, res := e.Declare("x", ctype.Int, StorageAutomatic, NoLinkage, false)
	if res != DeclOK {
		t.Fatalf("Declare(x) = %v, want DeclOK", res)
	}
	if got := e.Lookup("x"); got != sym {
		t.Errorf("Lookup(x) did not return the declared symbol")
	}
}

func TestNestedScopeShadowing(t *testing.T) {
	e := New()
	outer, _ := e.Declare("x", ctype.Int, StorageAutomatic, NoLinkage, false)
	e.PushScope()
	inner, res := e.Declare("x", ctype.Long, StorageAutomatic, NoLinkage, false)
	if res != DeclOK {
		t.Fatalf("shadowing declaration failed: %v", res)
	}
	if e.Lookup("x") != inner {
		t.Errorf("Lookup(x) in inner scope should find the shadowing declaration")
	}
	e.PopScope()
	if e.Lookup("x") != outer {
		t.Errorf("Lookup(x) after PopScope should find the outer declaration again")
	}
}

func TestTentativeThenDefinedAtFileScope(t *testing.T) {
	e := New()
	sym, res := e.Declare("g", ctype.Int, StorageStatic, External, false)
	if res != DeclOK || sym.State != Tentative {
		t.Fatalf("first file-scope decl: res=%v state=%v, want DeclOK/Tentative", res, sym.State)
	}
	sym2, res2 := e.Declare("g", ctype.Int, StorageStatic, External, true)
	if res2 != DeclOK || sym2.State != Defined {
		t.Fatalf("second decl with init: res=%v state=%v, want DeclOK/Defined", res2, sym2.State)
	}
	if sym != sym2 {
		t.Errorf("redeclaration should coalesce onto the same *Symbol")
	}
}

func TestIncompatibleRedeclarationRejected(t *testing.T) {
	e := New()
	e.Declare("g", ctype.Int, StorageStatic, External, false)
	_, res := e.Declare("g", ctype.NewPointer(ctype.Int), StorageStatic, External, false)
	if res != DeclIncompatible {
		t.Errorf("Declare with incompatible type = %v, want DeclIncompatible", res)
	}
}

func TestLinkageMismatchRejected(t *testing.T) {
	e := New()
	e.Declare("g", ctype.Int, StorageStatic, Internal, false)
	_, res := e.Declare("g", ctype.Int, StorageStatic, External, false)
	if res != DeclLinkageMismatch {
		t.Errorf("Declare with mismatched linkage = %v, want DeclLinkageMismatch", res)
	}
}

func TestLocalExternWithInitializerRejected(t *testing.T) {
	e := New()
	e.PushScope()
	_, res := e.Declare("g", ctype.Int, StorageStatic, External, true)
	if res != DeclLocalExternInit {
		t.Errorf("block-scope extern with initializer = %v, want DeclLocalExternInit", res)
	}
}

func TestDeclareTagForwardThenComplete(t *testing.T) {
	e := New()
	tag, res := e.DeclareTag("struct", "point", nil)
	if res != TagOK || tag.Type != nil {
		t.Fatalf("forward tag decl: res=%v type=%v", res, tag.Type)
	}
	info := &ctype.TagInfo{Name: "point", Defined: true}
	tag2, res2 := e.DeclareTag("struct", "point", info)
	if res2 != TagOK || tag2.Type != info {
		t.Fatalf("completing tag decl: res=%v type=%v", res2, tag2.Type)
	}
	if e.LookupTag("struct", "point") != tag2 {
		t.Errorf("LookupTag should find the completed tag")
	}
}

func TestDeclareTagRedefinitionRejected(t *testing.T) {
	e := New()
	info := &ctype.TagInfo{Name: "point", Defined: true}
	e.DeclareTag("struct", "point", info)
	_, res := e.DeclareTag("struct", "point", &ctype.TagInfo{Name: "point", Defined: true})
	if res != TagRedefinition {
		t.Errorf("redefining a complete tag = %v, want TagRedefinition", res)
	}
}
