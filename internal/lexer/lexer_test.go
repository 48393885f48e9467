package lexer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xyproto/c67cc/internal/token"
)

func writeTemp(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestLexBasicTokens(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "a.c", "int x = 42;")
	toks, err := Lex(p, IncludePaths{})
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	want := []token.Kind{token.Keyword, token.Ident, token.Punct, token.IntLiteral, token.Punct, token.EOF}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("token %d kind = %v, want %v", i, toks[i].Kind, k)
		}
	}
	if toks[3].IntValue != 42 {
		t.Errorf("literal value = %d, want 42", toks[3].IntValue)
	}
}

func TestLexStripsLineAndBlockComments(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "a.c", "int x; // trailing\n/* block\ncomment */ int y;")
	toks, err := Lex(p, IncludePaths{})
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	count := 0
	for _, tk := range toks {
		if tk.Kind != token.EOF {
			count++
		}
	}
	if count != 6 {
		t.Errorf("got %d non-EOF tokens, want 6 (int x ; int y ;)", count)
	}
}

func TestLexHexAndOctalIntegerLiterals(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "a.c", "0x1F 017 10")
	toks, err := Lex(p, IncludePaths{})
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	wantVals := []uint64{31, 15, 10}
	for i, v := range wantVals {
		if toks[i].IntValue != v {
			t.Errorf("literal %d = %d, want %d", i, toks[i].IntValue, v)
		}
	}
}

func TestLexStringLiteralEscapesAndNulTerminator(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "a.c", `"ab\n"`)
	toks, err := Lex(p, IncludePaths{})
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if toks[0].Kind != token.StringLiteral {
		t.Fatalf("kind = %v, want StringLiteral", toks[0].Kind)
	}
	want := []byte{'a', 'b', '\n', 0}
	if string(toks[0].Str) != string(want) {
		t.Errorf("decoded bytes = %v, want %v", toks[0].Str, want)
	}
}

func TestLexQuotedIncludeResolvesRelativeToIncludingFile(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	writeTemp(t, sub, "dep.h", "int dep;")
	main := writeTemp(t, sub, "main.c", `#include "dep.h"`+"\nint x;")

	toks, err := Lex(main, IncludePaths{})
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	count := 0
	for _, tk := range toks {
		if tk.Kind != token.EOF {
			count++
		}
	}
	if count != 6 {
		t.Errorf("got %d tokens across both files, want 6 (int dep ; int x ;), toks=%v", count, toks)
	}
}

func TestLexIncludeOnceGuardAgainstRecursiveReinclusion(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "dep.h", "int dep;")
	main := writeTemp(t, dir, "main.c", `#include "dep.h"`+"\n"+`#include "dep.h"`+"\nint x;")

	toks, err := Lex(main, IncludePaths{})
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	count := 0
	for _, tk := range toks {
		if tk.Kind != token.EOF {
			count++
		}
	}
	if count != 6 {
		t.Errorf("got %d tokens, want 6: second #include of the same file must be a no-op", count)
	}
}

func TestLexAngleIncludeSearchesSystemPaths(t *testing.T) {
	dir := t.TempDir()
	sysDir := filepath.Join(dir, "sys")
	if err := os.Mkdir(sysDir, 0755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	writeTemp(t, sysDir, "lib.h", "int libvar;")
	main := writeTemp(t, dir, "main.c", "#include <lib.h>\n")

	_, err := Lex(main, IncludePaths{System: []string{sysDir}})
	if err != nil {
		t.Fatalf("Lex with configured system path: %v", err)
	}

	_, err = Lex(main, IncludePaths{})
	if err == nil {
		t.Errorf("expected an error when lib.h is not on any configured include path")
	}
}

func TestLexMultiCharPunctuatorsPreferLongestMatch(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "a.c", "a <<= b; c <= d;")
	toks, err := Lex(p, IncludePaths{})
	if err != nil {
		t.Fatalf("Lex: %v", err)
	}
	if toks[1].Value != "<<=" {
		t.Errorf("punctuator = %q, want %q", toks[1].Value, "<<=")
	}
}
