// Command nyxc is the Nyx toolchain's CLI front end: a thin cobra shell
// over internal/lexer, internal/parser, internal/compiler,
// internal/bytecode and internal/vm. Grounded on
// joshuapare-hivekit/cmd/hivectl's rootCmd/persistent-flag/printInfo
// shape, generalized from registry inspection to source/bytecode
// pipeline stages.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nyx/internal/langerr"
	"nyx/internal/prelude"
)

var quiet bool

var rootCmd = &cobra.Command{
	Use:     "nyxc",
	Short:   "Compile and run Nyx programs",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	prelude.RegisterWithCompiler()
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatErr(err))
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a langerr.Kind to a distinct non-zero process exit
// code, so scripts driving nyxc can tell a syntax error from a runtime
// one without scraping stderr text.
func exitCodeFor(err error) int {
	le, ok := err.(*langerr.Error)
	if !ok {
		return 1
	}
	switch le.Kind {
	case langerr.Syntax:
		return 2
	case langerr.Compilation:
		return 3
	case langerr.Execution:
		return 4
	case langerr.IO:
		return 5
	default:
		return 1
	}
}

func formatErr(err error) string {
	return "nyxc: " + err.Error()
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

func readSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", langerr.IOf("cannot read %s: %v", path, err)
	}
	return string(b), nil
}
