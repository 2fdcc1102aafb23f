package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyx/internal/ast"
)

func TestParseLetStat(t *testing.T) {
	prog, err := Parse("let x = 1")
	require.NoError(t, err)
	require.Len(t, prog, 1)
	let, ok := prog[0].(ast.LetStat)
	require.True(t, ok)
	assert.Equal(t, "x", let.Name)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	prog, err := Parse("let x = 1 + 2 * 3")
	require.NoError(t, err)
	let := prog[0].(ast.LetStat)
	bin, ok := let.Value.(ast.BinOpExpr)
	require.True(t, ok)
	assert.Equal(t, ast.Add, bin.Op)
	_, ok = bin.Right.(ast.BinOpExpr)
	assert.True(t, ok, "multiplication should bind tighter than addition")
}

func TestParsePowIsRightAssociative(t *testing.T) {
	prog, err := Parse("let x = 2 ^ 3 ^ 2")
	require.NoError(t, err)
	let := prog[0].(ast.LetStat)
	bin := let.Value.(ast.BinOpExpr)
	assert.Equal(t, ast.Pow, bin.Op)
	_, rightIsPow := bin.Right.(ast.BinOpExpr)
	assert.True(t, rightIsPow)
}

func TestParseIfElseIfElse(t *testing.T) {
	src := `if a: return 1; else if b: return 2; else: return 3;`
	prog, err := Parse(src)
	require.NoError(t, err)
	cond := prog[0].(ast.CondStat)
	require.Len(t, cond.Branches, 3)
	assert.Nil(t, cond.Branches[2].Cond)
}

func TestParseWhileLoop(t *testing.T) {
	prog, err := Parse(`while n > 0: n = n - 1;`)
	require.NoError(t, err)
	w, ok := prog[0].(ast.WhileStat)
	require.True(t, ok)
	require.Len(t, w.Body, 1)
}

func TestParseForLoop(t *testing.T) {
	prog, err := Parse(`for i in range(0, 3): log(i);`)
	require.NoError(t, err)
	f, ok := prog[0].(ast.ForStat)
	require.True(t, ok)
	assert.Equal(t, "i", f.Var)
}

func TestParseFunctionLiteral(t *testing.T) {
	prog, err := Parse(`let f = fun(n: Int) -> Int: return n;`)
	require.NoError(t, err)
	let := prog[0].(ast.LetStat)
	fn, ok := let.Value.(ast.FunctionExpr)
	require.True(t, ok)
	require.Len(t, fn.Params, 1)
	assert.Equal(t, "n", fn.Params[0].Name)
}

func TestParseCallAndIndexAndProp(t *testing.T) {
	prog, err := Parse(`let x = a.b[0](1, 2)`)
	require.NoError(t, err)
	let := prog[0].(ast.LetStat)
	call, ok := let.Value.(ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
	_, ok = call.Callee.(ast.IndexExpr)
	assert.True(t, ok)
}

func TestParseSetStatOnIndexTarget(t *testing.T) {
	prog, err := Parse(`a[0] = 1`)
	require.NoError(t, err)
	set, ok := prog[0].(ast.SetStat)
	require.True(t, ok)
	_, ok = set.Target.(ast.IndexLExpr)
	assert.True(t, ok)
}

func TestParseListLiteral(t *testing.T) {
	prog, err := Parse(`let xs = [1, 2, 3]`)
	require.NoError(t, err)
	let := prog[0].(ast.LetStat)
	list, ok := let.Value.(ast.ListExpr)
	require.True(t, ok)
	assert.Len(t, list.Elements, 3)
}

func TestParseInvalidAssignmentTargetErrors(t *testing.T) {
	_, err := Parse(`1 = 2`)
	assert.Error(t, err)
}
