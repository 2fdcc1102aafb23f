package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"nyx/internal/bytecode"
	"nyx/internal/compiler"
	"nyx/internal/langerr"
	"nyx/internal/parser"
	"nyx/internal/prelude"
)

var (
	compileDebugInfo bool
	compileStrip     bool
	compileOut       string
)

func init() {
	cmd := &cobra.Command{
		Use:   "compile <source>",
		Short: "Compile a Nyx source file to a bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0])
		},
	}
	cmd.Flags().BoolVar(&compileDebugInfo, "debug-info", true, "embed source line tables")
	cmd.Flags().BoolVar(&compileStrip, "strip", false, "strip debug info from the output, regardless of --debug-info")
	cmd.Flags().StringVarP(&compileOut, "out", "o", "", "output path (defaults to <source> with a .nyxc extension)")
	rootCmd.AddCommand(cmd)
}

func compileToProgram(src string, debugInfo bool) (*bytecode.Program, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	c := compiler.New(debugInfo, prelude.Types())
	return c.Compile(prog)
}

func runCompile(path string) error {
	src, err := readSource(path)
	if err != nil {
		return err
	}
	bc, err := compileToProgram(src, compileDebugInfo)
	if err != nil {
		return err
	}
	if compileStrip {
		stripDebugInfo(bc)
	}

	out := compileOut
	if out == "" {
		out = defaultOutPath(path)
	}
	f, err := os.Create(out)
	if err != nil {
		return langerr.IOf("cannot create %s: %v", out, err)
	}
	defer f.Close()
	if err := bytecode.Write(f, bc); err != nil {
		return langerr.IOf("cannot write %s: %v", out, err)
	}
	printInfo("wrote %s (%d chunks)\n", out, len(bc.Chunks))
	return nil
}

func stripDebugInfo(bc *bytecode.Program) {
	bc.DebugInfo = false
	for i := range bc.Chunks {
		bc.Chunks[i].Lines = nil
	}
}

func defaultOutPath(src string) string {
	if ext := strings.LastIndex(src, "."); ext > strings.LastIndexAny(src, "/\\") {
		return src[:ext] + ".nyxc"
	}
	return src + ".nyxc"
}
