package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeStripsComments(t *testing.T) {
	toks, err := Tokenize("let x = 1 // trailing comment\n")
	require.NoError(t, err)
	assert.Equal(t, []TokenKind{TokKeyword, TokId, TokSymbol, TokInt, TokEOF}, kinds(toks))
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\nb"`)
	require.NoError(t, err)
	require.Len(t, toks, 2)
	assert.Equal(t, "a\nb", toks[0].Text)
}

func TestTokenizeRealAndIntLiterals(t *testing.T) {
	toks, err := Tokenize("1 2.5")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, int32(1), toks[0].Int)
	assert.Equal(t, 2.5, toks[1].Real)
}

func TestTokenizeMultiCharSymbolsGreedy(t *testing.T) {
	toks, err := Tokenize("a <= b -> c")
	require.NoError(t, err)
	var syms []string
	for _, tok := range toks {
		if tok.Kind == TokSymbol {
			syms = append(syms, tok.Text)
		}
	}
	assert.Equal(t, []string{"<=", "->"}, syms)
}

func TestTokenizeKeywordsVsIdentifiers(t *testing.T) {
	toks, err := Tokenize("if iffy")
	require.NoError(t, err)
	assert.Equal(t, TokKeyword, toks[0].Kind)
	assert.Equal(t, TokId, toks[1].Kind)
}

func TestTokenizeUnterminatedStringErrors(t *testing.T) {
	_, err := Tokenize(`"unterminated`)
	assert.Error(t, err)
}

func TestTokenizeLineNumbersAdvance(t *testing.T) {
	toks, err := Tokenize("let x = 1\nlet y = 2")
	require.NoError(t, err)
	assert.Equal(t, 1, toks[0].Line)
	var found bool
	for _, tok := range toks {
		if tok.Kind == TokId && tok.Text == "y" {
			assert.Equal(t, 2, tok.Line)
			found = true
		}
	}
	assert.True(t, found)
}
