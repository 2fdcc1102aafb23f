package main

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "interpret <source>",
		Short: "Compile and run a Nyx source file in one step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			bc, err := compileToProgram(src, false)
			if err != nil {
				return err
			}
			return runProgram(bc)
		},
	})
}
