package main

import (
	"os"

	"github.com/spf13/cobra"

	"nyx/internal/bytecode"
	"nyx/internal/langerr"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "list <bytecode>",
		Short: "Disassemble a compiled bytecode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, err := loadProgram(args[0])
			if err != nil {
				return err
			}
			printInfo("%s", bc.Disassemble())
			return nil
		},
	})
}

func loadProgram(path string) (*bytecode.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, langerr.IOf("cannot open %s: %v", path, err)
	}
	defer f.Close()
	bc, err := bytecode.Read(f)
	if err != nil {
		return nil, langerr.IOf("cannot read %s: %v", path, err)
	}
	return bc, nil
}
