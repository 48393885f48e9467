// Package il implements spec.md section 4.3: the IL value/command model
// consumed by internal/liveness, internal/regalloc, and internal/asmgen.
package il

import (
	"fmt"

	"github.com/xyproto/c67cc/internal/ctype"
)

// StorageClass is where an ILValue's storage comes from before register
// allocation assigns it a Spot.
type StorageClass int

const (
	Literal StorageClass = iota
	Local
	Named
	StringLiteral
)

// Value is an immutable, typed operand of the IL, spec.md's ILValue.
// IsLvalueLocation is true iff the value holds the ADDRESS of an object
// rather than the object's own value.
type Value struct {
	ID               int
	Type             *ctype.Type
	Class            StorageClass
	LiteralValue     int64  // Class == Literal
	SymbolName       string // Class == Named
	StringLabel      string // Class == StringLiteral
	IsLvalueLocation bool
}

func (v *Value) String() string {
	switch v.Class {
	case Literal:
		return fmt.Sprintf("$%d", v.LiteralValue)
	case Named:
		return v.SymbolName
	case StringLiteral:
		return v.StringLabel
	default:
		return fmt.Sprintf("t%d", v.ID)
	}
}

// Factory allocates fresh ILValues with sequential ids, mirroring the
// teacher's practice (register_allocator.go) of a single owning struct
// handing out ids rather than package-level mutable state.
type Factory struct {
	next int
}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) fresh() int {
	f.next++
	return f.next
}

// NewLocal allocates a fresh anonymous temporary of type t.
func (f *Factory) NewLocal(t *ctype.Type) *Value {
	return &Value{ID: f.fresh(), Type: t, Class: Local}
}

// NewLvalueLocal allocates a fresh temporary holding an address (used for
// synthesized locations: short-circuit results, spill temporaries before
// the allocator exists, compound-literal-like scratch space).
func (f *Factory) NewLvalueLocal(t *ctype.Type) *Value {
	return &Value{ID: f.fresh(), Type: ctype.NewPointer(t), Class: Local, IsLvalueLocation: true}
}

// NewLiteral wraps a constant integer value of type t.
func (f *Factory) NewLiteral(t *ctype.Type, v int64) *Value {
	return &Value{ID: f.fresh(), Type: t, Class: Literal, LiteralValue: v}
}

// NewNamed wraps a reference to a declared symbol (its address, as an
// lvalue location, or its function designator for calls).
func (f *Factory) NewNamed(t *ctype.Type, symbolLabelOrName string, isLvalue bool) *Value {
	return &Value{ID: f.fresh(), Type: t, Class: Named, SymbolName: symbolLabelOrName, IsLvalueLocation: isLvalue}
}

// NewStringLiteral wraps a reference to a static string-literal label.
func (f *Factory) NewStringLiteral(t *ctype.Type, label string) *Value {
	return &Value{ID: f.fresh(), Type: t, Class: StringLiteral, StringLabel: label}
}
