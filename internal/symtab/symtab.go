// Package symtab implements spec.md section 4.2: nested name scopes, the
// separate ordinary/tag namespaces, linkage resolution, and storage
// duration bookkeeping.
package symtab

import (
	"fmt"

	"github.com/xyproto/c67cc/internal/ctype"
)

// Linkage of a symbol.
type Linkage int

const (
	NoLinkage Linkage = iota
	Internal
	External
)

// Storage duration / class.
type Storage int

const (
	StorageNone Storage = iota
	StorageStatic
	StorageAutomatic
	StorageTypedef
)

// DefState tracks how far a declaration has progressed.
type DefState int

const (
	Declared DefState = iota
	Tentative
	Defined
)

// Symbol is one ordinary-namespace binding.
type Symbol struct {
	Name    string
	Type    *ctype.Type
	Linkage Linkage
	Storage Storage
	State   DefState

	// Exactly one of these is meaningful, depending on Storage/Linkage.
	StackOffset int    // StorageAutomatic
	GlobalLabel string // StorageStatic or External linkage
	IsEnumConst bool
	EnumValue   int64
}

// Tag is one struct/union/enum tag-namespace binding.
type Tag struct {
	Kind string // "struct", "union", "enum"
	Name string
	Type *ctype.TagInfo // nil for enum tags
}

type scope struct {
	symbols map[string]*Symbol
	tags    map[string]*Tag
}

func newScope() *scope {
	return &scope{symbols: make(map[string]*Symbol), tags: make(map[string]*Tag)}
}

// Env is a stack of scopes forming the symbol environment.
type Env struct {
	scopes []*scope
}

// New returns an environment with one (file) scope already pushed.
func New() *Env {
	e := &Env{}
	e.PushScope()
	return e
}

// PushScope opens a new nested scope.
func (e *Env) PushScope() {
	e.scopes = append(e.scopes, newScope())
}

// PopScope closes the innermost scope, destroying its automatic bindings.
func (e *Env) PopScope() {
	if len(e.scopes) == 0 {
		panic("symtab: PopScope on empty environment")
	}
	e.scopes = e.scopes[:len(e.scopes)-1]
}

// AtFileScope reports whether the environment is currently at the
// outermost (translation-unit) scope.
func (e *Env) AtFileScope() bool { return len(e.scopes) == 1 }

// DeclResult reports the outcome of Declare.
type DeclResult int

const (
	DeclOK DeclResult = iota
	DeclIncompatible
	DeclLinkageMismatch
	DeclLocalExternInit
)

// Declare binds name in the current scope, applying spec.md section
// 4.2's redeclaration/linkage rules. On success it returns the (possibly
// pre-existing, now-updated) *Symbol. hasInit indicates the declaration
// carries an initializer (relevant for the "extern ... = init at local
// scope is an error" rule).
func (e *Env) Declare(name string, typ *ctype.Type, storage Storage, linkage Linkage, hasInit bool) (*Symbol, DeclResult) {
	cur := e.scopes[len(e.scopes)-1]

	// extern with an initializer at block scope is always an error,
	// regardless of whether name previously existed.
	if !e.AtFileScope() && storage == StorageStatic && linkage == External && hasInit {
		return nil, DeclLocalExternInit
	}

	if existing, ok := cur.symbols[name]; ok {
		if linkage != NoLinkage && existing.Linkage != NoLinkage && linkage != existing.Linkage {
			return nil, DeclLinkageMismatch
		}
		if !ctype.Compatible(existing.Type, typ) {
			return nil, DeclIncompatible
		}
		existing.Type = ctype.Compose(existing.Type, typ)
		if hasInit || existing.State == Declared {
			if hasInit {
				existing.State = Defined
			} else if existing.State == Declared {
				existing.State = Tentative
			}
		}
		return existing, DeclOK
	}

	// Block-scope `extern` with no local declaration adopts an outer
	// declaration's linkage, if one exists (spec.md section 4.2).
	if !e.AtFileScope() && linkage == External {
		if outer := e.lookupOuter(name, len(e.scopes)-1); outer != nil && outer.Linkage != NoLinkage {
			linkage = outer.Linkage
		}
	}

	state := Declared
	if hasInit {
		state = Defined
	} else if e.AtFileScope() && storage != StorageTypedef && storage != StorageAutomatic {
		state = Tentative
	}

	sym := &Symbol{Name: name, Type: typ, Linkage: linkage, Storage: storage, State: state}
	cur.symbols[name] = sym
	return sym, DeclOK
}

// Lookup walks outward through scopes for name in the ordinary namespace.
func (e *Env) Lookup(name string) *Symbol {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if s, ok := e.scopes[i].symbols[name]; ok {
			return s
		}
	}
	return nil
}

// LookupCurrent looks up name only in the innermost scope.
func (e *Env) LookupCurrent(name string) *Symbol {
	cur := e.scopes[len(e.scopes)-1]
	return cur.symbols[name]
}

func (e *Env) lookupOuter(name string, fromIdx int) *Symbol {
	for i := fromIdx - 1; i >= 0; i-- {
		if s, ok := e.scopes[i].symbols[name]; ok {
			return s
		}
	}
	return nil
}

// TagDeclResult reports the outcome of DeclareTag.
type TagDeclResult int

const (
	TagOK TagDeclResult = iota
	TagWrongKind
	TagRedefinition
)

// DeclareTag binds a struct/union/enum tag in the current scope's tag
// namespace. If a tag of the same kind and name already exists in this
// scope and is incomplete, it is completed in place (info supplies the
// completed members, or nil to declare-without-defining).
func (e *Env) DeclareTag(kind, name string, info *ctype.TagInfo) (*Tag, TagDeclResult) {
	cur := e.scopes[len(e.scopes)-1]
	if existing, ok := cur.tags[name]; ok {
		if existing.Kind != kind {
			return nil, TagWrongKind
		}
		if info == nil {
			return existing, TagOK // forward reference, nothing to complete yet
		}
		if existing.Type != nil && existing.Type.Defined {
			return nil, TagRedefinition
		}
		existing.Type = info
		return existing, TagOK
	}
	t := &Tag{Kind: kind, Name: name, Type: info}
	cur.tags[name] = t
	return t, TagOK
}

// LookupTag walks outward for a tag of the given kind and name.
func (e *Env) LookupTag(kind, name string) *Tag {
	for i := len(e.scopes) - 1; i >= 0; i-- {
		if t, ok := e.scopes[i].tags[name]; ok && t.Kind == kind {
			return t
		}
	}
	return nil
}

func (s Storage) String() string {
	switch s {
	case StorageStatic:
		return "static"
	case StorageAutomatic:
		return "automatic"
	case StorageTypedef:
		return "typedef"
	default:
		return "none"
	}
}

func (l Linkage) String() string {
	switch l {
	case Internal:
		return "internal"
	case External:
		return "external"
	default:
		return "none"
	}
}

func (r DeclResult) Error() string {
	switch r {
	case DeclIncompatible:
		return "redeclaration with incompatible type"
	case DeclLinkageMismatch:
		return "declaration disagrees on linkage with a previous declaration"
	case DeclLocalExternInit:
		return "'extern' variable at block scope cannot have an initializer"
	default:
		return fmt.Sprintf("declaration result %d", int(r))
	}
}
