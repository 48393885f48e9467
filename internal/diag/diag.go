// Package diag is the compiler's error collector (spec.md section 7).
// Diagnostics accumulate with source positions; compilation of a
// translation unit continues past a recoverable error so later errors in
// the same unit are also reported, but assembly is only emitted if no
// error-severity diagnostic was recorded.
package diag

import (
	"fmt"
	"os"
	"sort"

	"github.com/xyproto/c67cc/internal/token"
)

// Level is diagnostic severity, following the teacher's ErrorLevel shape.
type Level int

const (
	Note Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Kind is the error taxonomy from spec.md section 7.
type Kind int

const (
	Lexical Kind = iota
	Syntactic
	TypeError
	Declaration
	Tag
	LoweringInternal
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical"
	case Syntactic:
		return "syntax"
	case TypeError:
		return "type"
	case Declaration:
		return "declaration"
	case Tag:
		return "tag"
	case LoweringInternal:
		return "lowering"
	default:
		return "internal"
	}
}

// Diagnostic is a single collected message.
type Diagnostic struct {
	Level   Level
	Kind    Kind
	Pos     token.Position
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Level, d.Message)
}

// Collector accumulates diagnostics for one translation unit.
type Collector struct {
	diags   []Diagnostic
	Verbose int // Tracef threshold; 0 (the default from New) = silent
}

// New returns an empty collector.
func New() *Collector {
	return &Collector{}
}

// Add records a diagnostic.
func (c *Collector) Add(level Level, kind Kind, pos token.Position, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{
		Level:   level,
		Kind:    kind,
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	})
}

// Errorf is shorthand for Add(Error, kind, pos, ...).
func (c *Collector) Errorf(kind Kind, pos token.Position, format string, args ...any) {
	c.Add(Error, kind, pos, format, args...)
}

// Warnf is shorthand for Add(Warning, kind, pos, ...).
func (c *Collector) Warnf(kind Kind, pos token.Position, format string, args ...any) {
	c.Add(Warning, kind, pos, format, args...)
}

// HasErrors reports whether any Error-severity diagnostic was recorded.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diags {
		if d.Level == Error {
			return true
		}
	}
	return false
}

// Diagnostics returns all collected diagnostics in stable source order.
func (c *Collector) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pos.Line != out[j].Pos.Line {
			return out[i].Pos.Line < out[j].Pos.Line
		}
		return out[i].Pos.Col < out[j].Pos.Col
	})
	return out
}

// PrintTo writes every diagnostic to w, one per line, in the
// "path:line:col: severity: message" format spec.md section 6 mandates.
func (c *Collector) PrintTo(w *os.File) {
	for _, d := range c.Diagnostics() {
		fmt.Fprintln(w, d.String())
	}
}

// Tracef logs a pipeline-internal trace message to stderr when Verbose is
// at least minVerbose. No package in this repository calls it; the
// driver's -v output is printed directly by internal/driver.
func (c *Collector) Tracef(minVerbose int, format string, args ...any) {
	if c.Verbose >= minVerbose {
		fmt.Fprintf(os.Stderr, "trace: "+format+"\n", args...)
	}
}
