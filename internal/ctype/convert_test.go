package ctype

import "testing"

// spec.md section 8: type compatibility must be reflexive and symmetric.
func TestCompatibleReflexiveAndSymmetric(t *testing.T) {
	types := []*Type{Int, UInt, Long, ULong, Char, NewPointer(Int), NewPointer(Char)}
	for _, a := range types {
		if !Compatible(a, a) {
			t.Errorf("Compatible(%v, %v) = false, want true (reflexive)", a, a)
		}
		for _, b := range types {
			if Compatible(a, b) != Compatible(b, a) {
				t.Errorf("Compatible(%v, %v) != Compatible(%v, %v)", a, b, b, a)
			}
		}
	}
}

func TestCompatibleIncompleteArray(t *testing.T) {
	complete := NewArray(Int, 10, true)
	incomplete := NewArray(Int, 0, false)
	if !Compatible(complete, incomplete) {
		t.Errorf("complete and incomplete int arrays should be compatible")
	}
	other := NewArray(Int, 5, true)
	if Compatible(complete, other) {
		t.Errorf("int[10] and int[5] should not be compatible")
	}
}

func TestPromoteInteger(t *testing.T) {
	cases := []struct {
		in   *Type
		want *Type
	}{
		{Char, Int},
		{UChar, Int},
		{Short, Int},
		{Bool, Int},
		{Int, Int},
		{UInt, UInt},
		{Long, Long},
	}
	for _, c := range cases {
		if got := PromoteInteger(c.in); got != c.want {
			t.Errorf("PromoteInteger(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestUsualArithmeticConversions(t *testing.T) {
	if got := UsualArithmeticConversions(Int, Long); got != Long {
		t.Errorf("int+long = %v, want long", got)
	}
	if got := UsualArithmeticConversions(UInt, Int); got != UInt {
		t.Errorf("unsigned+int = %v, want unsigned int", got)
	}
	if got := UsualArithmeticConversions(Long, UInt); got != ULong {
		t.Errorf("long+unsigned int = %v, want unsigned long", got)
	}
}

func TestStructOrUnionIdentityByTag(t *testing.T) {
	tagA := &TagInfo{Name: "point", Defined: true}
	tagB := &TagInfo{Name: "point", Defined: true}
	a := NewStructOrUnion(tagA)
	b := NewStructOrUnion(tagB)
	if Compatible(a, b) {
		t.Errorf("distinct tags with identical shape must not be compatible")
	}
	if !Compatible(a, a) {
		t.Errorf("a struct type must be compatible with itself")
	}
}
