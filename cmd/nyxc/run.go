package main

import (
	"bufio"
	"os"

	"github.com/spf13/cobra"

	"nyx/internal/bytecode"
	"nyx/internal/heap"
	"nyx/internal/prelude"
	"nyx/internal/vm"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "run <bytecode>",
		Short: "Execute a compiled bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			return runProgram(bc)
		},
	})
}

func runProgram(bc *bytecode.Program) error {
	h := heap.New()
	out := bufio.NewWriter(os.Stdout)
	externals := prelude.Build(h, out)

	machine := vm.New(h, bc, externals)
	_, err := machine.Run()
	out.Flush()
	return err
}
