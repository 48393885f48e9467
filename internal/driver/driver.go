// Package driver orchestrates the whole pipeline spec.md section 6
// describes: lex -> parse -> lower -> liveness -> regalloc -> asmgen,
// followed by invoking the external assembler and linker to produce an
// executable, exactly the way the teacher's cli.go drives its own
// pipeline stages under a single verbose-timing entry point.
package driver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"
	"golang.org/x/sys/unix"

	"github.com/xyproto/c67cc/internal/asmgen"
	"github.com/xyproto/c67cc/internal/diag"
	"github.com/xyproto/c67cc/internal/il"
	"github.com/xyproto/c67cc/internal/lexer"
	"github.com/xyproto/c67cc/internal/liveness"
	"github.com/xyproto/c67cc/internal/lower"
	"github.com/xyproto/c67cc/internal/parser"
	"github.com/xyproto/c67cc/internal/regalloc"
)

// Options configures one compile invocation (spec.md section 6's CLI
// contract plus SPEC_FULL.md section 13's environment overrides).
type Options struct {
	Source        string
	Output        string
	IncludePaths  []string
	StopAtAsm     bool // -S: stop after emitting assembly
	Verbose       bool
	As, Ld        string // external tool paths, env-overridable
}

// ResolveFromEnv fills in Options.As/Ld from C67CC_AS/C67CC_LD, and
// appends C67CC_INCLUDE_PATH (a ':'-separated list, matching PATH's own
// separator convention) if set (SPEC_FULL.md section 13).
func ResolveFromEnv(o *Options) {
	o.As = env.Str("C67CC_AS", "as")
	o.Ld = env.Str("C67CC_LD", "ld")
	if p := env.Str("C67CC_INCLUDE_PATH", ""); p != "" {
		o.IncludePaths = append(o.IncludePaths, strings.Split(p, ":")...)
	}
	if env.Bool("C67CC_DEBUG") {
		o.Verbose = true
	}
}

// Run executes the full pipeline for one source file and reports
// whether compilation succeeded (spec.md section 6's exit-code contract:
// 0 on success, 1 if any error-severity diagnostic was recorded).
func Run(o Options) bool {
	diags := diag.New()

	toks, err := lexer.Lex(o.Source, lexer.IncludePaths{System: o.IncludePaths})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", o.Source, err)
		return false
	}

	unit, err := parser.Parse(toks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: error: %v\n", o.Source, err)
		return false
	}

	prog := lower.LowerUnit(unit, diags)
	if diags.HasErrors() {
		diags.PrintTo(os.Stderr)
		return false
	}

	asmText := assemble(prog, o.Verbose)
	if diags.HasErrors() {
		diags.PrintTo(os.Stderr)
		return false
	}

	out := o.Output
	if out == "" {
		out = defaultOutputName(o.Source, o.StopAtAsm)
	}

	if o.StopAtAsm {
		return writeFile(out, asmText)
	}

	return assembleAndLink(o, asmText, out)
}

// assemble runs liveness + register allocation over every function and
// hands the whole program to internal/asmgen (spec.md section 4.5-4.7's
// pipeline order).
func assemble(prog *il.Program, verbose bool) string {
	allocs := map[*il.Function]*regalloc.Result{}
	for _, fn := range prog.Functions {
		lv := liveness.Analyze(fn)
		allocs[fn] = regalloc.Allocate(fn, lv)
		if verbose {
			fmt.Fprintf(os.Stderr, "c67cc: allocated %s (%d spot(s), frame %d bytes)\n",
				fn.Name, len(allocs[fn].Spots), allocs[fn].FrameSize)
		}
	}
	return asmgen.Emit(prog, allocs)
}

func defaultOutputName(source string, stopAtAsm bool) string {
	if stopAtAsm {
		return strings.TrimSuffix(source, filepath.Ext(source)) + ".s"
	}
	return "a.out"
}

func writeFile(path, contents string) bool {
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "c67cc: %v\n", err)
		return false
	}
	return true
}

// assembleAndLink writes the generated assembly to `<out>.s` beside the
// output (removed again afterwards, like the `<out>.o` object), then
// invokes the external `as` and `ld` (or their env-configured
// equivalents) exactly as spec.md section 6 specifies linking is done
// entirely outside this compiler's core.
func assembleAndLink(o Options, asmText, out string) bool {
	for name, path := range map[string]string{"assembler": o.As, "linker": o.Ld} {
		if resolved, err := exec.LookPath(path); err != nil || unix.Access(resolved, unix.X_OK) != nil {
			fmt.Fprintf(os.Stderr, "c67cc: %s %q not found or not executable\n", name, path)
			return false
		}
	}

	asmPath := out + ".s"
	if !writeFile(asmPath, asmText) {
		return false
	}
	defer os.Remove(asmPath)

	objPath := out + ".o"
	defer os.Remove(objPath)

	if o.Verbose {
		fmt.Fprintf(os.Stderr, "c67cc: %s -o %s %s\n", o.As, objPath, asmPath)
	}
	if err := runTool(o.As, objPath, asmPath); err != nil {
		fmt.Fprintf(os.Stderr, "c67cc: assembling: %v\n", err)
		return false
	}

	if o.Verbose {
		fmt.Fprintf(os.Stderr, "c67cc: %s -o %s %s\n", o.Ld, out, objPath)
	}
	if err := runLink(o.Ld, out, objPath); err != nil {
		fmt.Fprintf(os.Stderr, "c67cc: linking: %v\n", err)
		return false
	}
	return true
}

func runTool(tool, out, in string) error {
	cmd := exec.Command(tool, "-o", out, in)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	return cmd.Run()
}

// runLink invokes the linker with the standard C runtime startup objects
// so `main` gets called from `_start`, matching what ShivyC's own
// main.py shells out to (spec.md section 6, "linking is external").
func runLink(tool, out, obj string) error {
	args := []string{
		"-o", out,
		"/usr/lib/x86_64-linux-gnu/crt1.o",
		"/usr/lib/x86_64-linux-gnu/crti.o",
		obj,
		"-lc",
		"/usr/lib/x86_64-linux-gnu/crtn.o",
		"-dynamic-linker", "/lib64/ld-linux-x86-64.so.2",
	}
	cmd := exec.Command(tool, args...)
	cmd.Stdout, cmd.Stderr = os.Stdout, os.Stderr
	return cmd.Run()
}
