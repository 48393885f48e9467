package ast

import "github.com/xyproto/c67cc/internal/token"

type Expr interface {
	Node
	exprNode()
}

type IntLit struct {
	Base
	Value    uint64
	Unsigned bool
	Long     bool
}

func (*IntLit) exprNode() {}

type CharLit struct {
	Base
	Value byte
}

func (*CharLit) exprNode() {}

type StringLit struct {
	Base
	Value []byte // decoded, NUL-terminated
}

func (*StringLit) exprNode() {}

type Ident struct {
	Base
	Name string
}

func (*Ident) exprNode() {}

// BinaryExpr covers every binary operator except assignment, &&, and ||,
// which get their own node kinds because their lowering differs.
type BinaryExpr struct {
	Base
	Op   token.Token // the operator token, e.g. "+", "==", "<<"
	X, Y Expr
}

func (*BinaryExpr) exprNode() {}

// LogicalExpr is && or ||, lowered with explicit short-circuit control
// flow per spec.md section 4.4.
type LogicalExpr struct {
	Base
	And bool // true: &&, false: ||
	X, Y Expr
}

func (*LogicalExpr) exprNode() {}

type UnaryExpr struct {
	Base
	Op string // "-", "+", "~", "!", "&", "*"
	X  Expr
}

func (*UnaryExpr) exprNode() {}

// IncDecExpr is prefix/postfix ++/-- (SPEC_FULL section 12).
type IncDecExpr struct {
	Base
	Op     string // "++" or "--"
	Prefix bool
	X      Expr
}

func (*IncDecExpr) exprNode() {}

type AssignExpr struct {
	Base
	LHS, RHS Expr
}

func (*AssignExpr) exprNode() {}

// CompoundAssignExpr is `lhs OP= rhs` (SPEC_FULL section 12); the parser
// always builds this node rather than desugaring it, and internal/lower
// evaluates the LHS address once and reuses it for the read and the write.
type CompoundAssignExpr struct {
	Base
	Op       token.Token // the arithmetic op, e.g. "+" for "+="
	LHS, RHS Expr
}

func (*CompoundAssignExpr) exprNode() {}

type CondExpr struct {
	Base
	Cond, Then, Else Expr
}

func (*CondExpr) exprNode() {}

// CommaExpr is the sequencing comma operator (SPEC_FULL section 12).
type CommaExpr struct {
	Base
	X, Y Expr
}

func (*CommaExpr) exprNode() {}

type CallExpr struct {
	Base
	Func Expr
	Args []Expr
}

func (*CallExpr) exprNode() {}

type IndexExpr struct {
	Base
	X, Index Expr
}

func (*IndexExpr) exprNode() {}

// MemberExpr is `x.m` (Arrow == false) or `x->m` (Arrow == true).
type MemberExpr struct {
	Base
	X     Expr
	Field string
	Arrow bool
}

func (*MemberExpr) exprNode() {}

type SizeofExpr struct {
	Base
	OfType *TypeSpec  // sizeof(type-name), Operand nil
	OfDecl *Declarator // paired with OfType for sizeof(type-name) abstract declarators
	Operand Expr        // sizeof expr, OfType nil
}

func (*SizeofExpr) exprNode() {}

// CastExpr is `(type) expr`.
type CastExpr struct {
	Base
	Type *TypeSpec
	Decl *Declarator
	X    Expr
}

func (*CastExpr) exprNode() {}
