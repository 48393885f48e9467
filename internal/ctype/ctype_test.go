package ctype

import "testing"

// TestStructPaddingAndSize matches spec.md section 8's sizeof battery:
// a struct { char c; int i; char c2; double-width long l; } should pad
// between members per each member's own alignment and round the whole
// struct up to its largest member's alignment.
func TestStructPaddingAndSize(t *testing.T) {
	tag := &TagInfo{
		Name: "s",
		Members: []Member{
			{Name: "c", Type: Char},
			{Name: "i", Type: Int},
			{Name: "c2", Type: Char},
			{Name: "l", Type: Long},
		},
	}
	LayoutMembers(tag)
	st := NewStructOrUnion(tag)

	want := []int{0, 4, 8, 16}
	for i, m := range tag.Members {
		if m.Offset != want[i] {
			t.Errorf("member %s offset = %d, want %d", m.Name, m.Offset, want[i])
		}
	}
	if got := st.Size(); got != 24 {
		t.Errorf("struct size = %d, want 24 (padded to long's 8-byte alignment)", got)
	}
	if got := st.Align(); got != 8 {
		t.Errorf("struct align = %d, want 8", got)
	}
}

func TestUnionSizeIsLargestMember(t *testing.T) {
	tag := &TagInfo{IsUnion: true, Members: []Member{
		{Name: "c", Type: Char},
		{Name: "l", Type: Long},
	}}
	LayoutMembers(tag)
	u := NewStructOrUnion(tag)
	if got := u.Size(); got != 8 {
		t.Errorf("union size = %d, want 8", got)
	}
	for _, m := range tag.Members {
		if m.Offset != 0 {
			t.Errorf("union member %s offset = %d, want 0", m.Name, m.Offset)
		}
	}
}

func TestArraySizeInvariant(t *testing.T) {
	arr := NewArray(Int, 10, true)
	if got := arr.Size(); got != 40 {
		t.Errorf("int[10] size = %d, want 40", got)
	}
}

func TestPointerInterning(t *testing.T) {
	a := NewPointer(Int)
	b := NewPointer(Int)
	if a != b {
		t.Errorf("NewPointer(Int) should return the same interned *Type both times")
	}
	c := NewConstPointer(Int)
	if c == a {
		t.Errorf("NewConstPointer must not be interned with the non-const pointer")
	}
}
