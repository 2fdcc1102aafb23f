package main

import (
	"github.com/spf13/cobra"

	"nyx/internal/lexer"
)

var tokenKindNames = map[lexer.TokenKind]string{
	lexer.TokEOF:     "eof",
	lexer.TokId:      "id",
	lexer.TokInt:     "int",
	lexer.TokReal:    "real",
	lexer.TokString:  "string",
	lexer.TokKeyword: "keyword",
	lexer.TokSymbol:  "symbol",
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "lex <source>",
		Short: "Tokenize a Nyx source file and print the token stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}
			_, err = tokenizeAndPrint(src)
			return err
		},
	})
}

func tokenizeAndPrint(src string) ([]lexer.Token, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	for _, tok := range toks {
		printInfo("%4d  %-8s %q\n", tok.Line, tokenKindNames[tok.Kind], tok.Text)
	}
	return toks, nil
}
