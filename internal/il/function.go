package il

import "github.com/xyproto/c67cc/internal/ctype"

// Param describes one formal parameter's home in the IL.
type Param struct {
	Name  string
	Type  *ctype.Type
	Value *Value // Local value the parameter is bound to on entry
}

// Function is one function's flattened IL command stream, built entirely
// before any assembly is emitted (spec.md section 3, "Lifecycle").
type Function struct {
	Name       string
	Linkage    string // "external" or "internal"
	Params     []Param
	ReturnType *ctype.Type
	Commands   []Command
	Factory    *Factory
	labelSeq   int
}

// NewFunction creates an empty function IL container with its own value
// factory (ids are unique per function, matching the teacher's per-
// function RegisterAllocator working set, spec.md section 5).
func NewFunction(name string, ret *ctype.Type) *Function {
	return &Function{Name: name, ReturnType: ret, Factory: NewFactory()}
}

// Emit appends a command to the function's IL stream.
func (f *Function) Emit(c Command) {
	f.Commands = append(f.Commands, c)
}

// NewLabel allocates a fresh, function-unique label name.
func (f *Function) NewLabel(hint string) string {
	f.labelSeq++
	return f.Name + "_" + hint + "_" + itoa(f.labelSeq)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// GlobalKind classifies a static-storage-duration object for the data
// section it belongs in (spec.md section 6).
type GlobalKind int

const (
	GlobalBSS GlobalKind = iota // tentative/zero-initialized -> .bss
	GlobalData                  // explicit non-zero initializer -> .data
)

// Global is one file-scope object of static storage duration.
type Global struct {
	Label    string
	Type     *ctype.Type
	Kind     GlobalKind
	Linkage  string // "external" or "internal"
	InitInt  int64  // GlobalData, scalar initializer
	InitStr  []byte // GlobalData, char[] initialized from a string literal
	HasInit  bool
}

// Program is a whole translation unit's IL: every function plus every
// static-storage global and string-literal constant.
type Program struct {
	Functions []*Function
	Globals   []*Global
	Strings   []*StringLiteralData
}
