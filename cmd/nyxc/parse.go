package main

import (
	"github.com/spf13/cobra"

	"nyx/internal/parser"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "parse <source>",
		Short: "Parse a Nyx source file and print its top-level statement tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			prog, err := parser.Parse(src)
			if err != nil {
				return err
			}
			for i, stat := range prog {
				printInfo("%3d  line %-4d %T\n", i, stat.Line(), stat)
			}
			return nil
		},
	})
}
