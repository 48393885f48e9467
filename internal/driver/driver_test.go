package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "a.c")
	if err := os.WriteFile(p, []byte(src), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestRunStopAtAsmWritesAssemblyFile(t *testing.T) {
	src := writeSource(t, "int main(void) { return 0; }")
	out := strings.TrimSuffix(src, ".c") + ".s"
	ok := Run(Options{Source: src, Output: out, StopAtAsm: true})
	if !ok {
		t.Fatal("Run returned false for a well-formed program")
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", out, err)
	}
	if !strings.Contains(string(data), "main:\n") {
		t.Errorf("expected emitted assembly to define main:\n%s", data)
	}
}

func TestRunDefaultOutputNameWithStopAtAsm(t *testing.T) {
	src := writeSource(t, "int main(void) { return 0; }")
	ok := Run(Options{Source: src, StopAtAsm: true})
	if !ok {
		t.Fatal("Run returned false for a well-formed program")
	}
	want := strings.TrimSuffix(src, ".c") + ".s"
	if _, err := os.Stat(want); err != nil {
		t.Errorf("expected default output %s to exist: %v", want, err)
	}
}

func TestRunReportsFailureOnSyntaxError(t *testing.T) {
	src := writeSource(t, "int main(void) { return 0 }")
	ok := Run(Options{Source: src, StopAtAsm: true})
	if ok {
		t.Error("expected Run to fail on a syntax error")
	}
}

func TestRunReportsFailureOnTypeError(t *testing.T) {
	src := writeSource(t, "int main(void) { int *p; p = 5; return 0; }")
	ok := Run(Options{Source: src, StopAtAsm: true})
	if ok {
		t.Error("expected Run to fail when an incompatible assignment is diagnosed")
	}
}

func TestRunMissingSourceFileFails(t *testing.T) {
	ok := Run(Options{Source: filepath.Join(t.TempDir(), "missing.c"), StopAtAsm: true})
	if ok {
		t.Error("expected Run to fail when the source file does not exist")
	}
}

func TestRunFailsWithoutAssemblerWhenNotStoppingAtAsm(t *testing.T) {
	src := writeSource(t, "int main(void) { return 0; }")
	out := filepath.Join(filepath.Dir(src), "a.out")
	ok := Run(Options{Source: src, Output: out, As: "c67cc-nonexistent-as", Ld: "c67cc-nonexistent-ld"})
	if ok {
		t.Error("expected Run to fail when the configured assembler cannot be found")
	}
	if _, err := os.Stat(out); err == nil {
		t.Errorf("expected no output binary to be produced")
	}
}

func TestResolveFromEnvDefaultsToSystemToolchain(t *testing.T) {
	os.Unsetenv("C67CC_AS")
	os.Unsetenv("C67CC_LD")
	os.Unsetenv("C67CC_INCLUDE_PATH")
	os.Unsetenv("C67CC_DEBUG")
	var o Options
	ResolveFromEnv(&o)
	if o.As != "as" || o.Ld != "ld" {
		t.Errorf("got As=%q Ld=%q, want the as/ld defaults", o.As, o.Ld)
	}
	if o.Verbose {
		t.Errorf("expected Verbose to default to false")
	}
}

func TestResolveFromEnvHonorsOverrides(t *testing.T) {
	t.Setenv("C67CC_AS", "/opt/cross/as")
	t.Setenv("C67CC_LD", "/opt/cross/ld")
	t.Setenv("C67CC_INCLUDE_PATH", "/usr/local/include:/opt/include")
	t.Setenv("C67CC_DEBUG", "true")
	var o Options
	ResolveFromEnv(&o)
	if o.As != "/opt/cross/as" || o.Ld != "/opt/cross/ld" {
		t.Errorf("got As=%q Ld=%q, want the overridden paths", o.As, o.Ld)
	}
	if len(o.IncludePaths) != 2 || o.IncludePaths[0] != "/usr/local/include" || o.IncludePaths[1] != "/opt/include" {
		t.Errorf("got IncludePaths=%v, want the split C67CC_INCLUDE_PATH entries", o.IncludePaths)
	}
	if !o.Verbose {
		t.Errorf("expected C67CC_DEBUG=true to enable Verbose")
	}
}
