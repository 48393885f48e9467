// Command c67cc compiles a single C11-subset translation unit to x86-64
// GNU assembly (or a linked executable), per spec.md section 6's CLI
// contract: `c67cc compile <source.c> [-o <out>]`, exit 0 on success,
// exit 1 if any error-severity diagnostic was recorded.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/c67cc/internal/driver"
)

const versionString = "c67cc 0.1.0"

func main() {
	var (
		outputFlag  = flag.String("o", "", "output file name")
		stopAtAsm   = flag.Bool("S", false, "stop after generating assembly, do not assemble or link")
		verbose     = flag.Bool("v", false, "verbose: print each pipeline stage's key numbers")
		showVersion = flag.Bool("version", false, "print version information and exit")
	)
	var includeDirs []string
	flag.Func("I", "additional #include search directory (repeatable)", func(v string) error {
		includeDirs = append(includeDirs, v)
		return nil
	})
	flag.Parse()

	if *showVersion {
		fmt.Println(versionString)
		return
	}

	args := flag.Args()
	if len(args) > 0 && args[0] == "compile" {
		args = args[1:]
	}
	// Flags may follow the source file as well as precede it.
	var positional []string
	for len(args) > 0 {
		positional = append(positional, args[0])
		flag.CommandLine.Parse(args[1:])
		args = flag.Args()
	}
	if len(positional) != 1 {
		fmt.Fprintln(os.Stderr, "usage: c67cc compile <source.c> [-o out] [-S] [-I dir] [-v]")
		os.Exit(1)
	}

	opts := driver.Options{
		Source:       positional[0],
		Output:       *outputFlag,
		StopAtAsm:    *stopAtAsm,
		Verbose:      *verbose,
		IncludePaths: includeDirs,
	}
	driver.ResolveFromEnv(&opts)

	if !driver.Run(opts) {
		os.Exit(1)
	}
}
