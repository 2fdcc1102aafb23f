package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyx/internal/parser"
	"nyx/internal/types"
)

func init() {
	RegisterExternalOrder([]string{"List", "Iterator", "log", "range", "int", "string"})
	RegisterNamespaceMembers("List", map[string]types.Type{
		"size": &types.TypedFunction{Result: types.Int},
		"add":  &types.TypedFunction{Params: []types.Type{types.AnyType}, Result: types.Nil},
		"iter": &types.TypedFunction{Result: &types.Iterator{Elem: types.AnyType}},
	})
	RegisterNamespaceMembers("Iterator", map[string]types.Type{
		"next": &types.UntypedFunction{Result: types.AnyType},
	})
}

func compileSource(t *testing.T, src string) *Compiler {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)
	c := New(true, map[string]types.Type{
		"log":   &types.UntypedFunction{Result: types.Nil},
		"range": &types.TypedFunction{Params: []types.Type{types.Int, types.Int}, Result: &types.Iterator{Elem: types.Int}},
	})
	_, err = c.Compile(prog)
	require.NoError(t, err)
	return c
}

func TestCompileArithmeticExpression(t *testing.T) {
	c := compileSource(t, `log(1+2*3);`)
	require.NotEmpty(t, c.chunks)
	assert.Greater(t, len(c.chunks[0].code), 0)
}

func TestCompileLetAndWhileLoop(t *testing.T) {
	c := compileSource(t, `
let s: Int = 0;
let i: Int = 0;
while i < 5:
	s = s + i;
	i = i + 1;
;
log(s);
`)
	assert.Equal(t, 0, c.chunks[0].used)
}

func TestCompileIfElseChain(t *testing.T) {
	c := compileSource(t, `
let x: Int = 3;
if x == 1:
	log(1);
else if x == 2:
	log(2);
else:
	log(3);
;
`)
	assert.Equal(t, 0, c.chunks[0].used)
}

func TestCompileFunctionLiteralCreatesNewChunk(t *testing.T) {
	c := compileSource(t, `
let f: (Int) -> Int = fun(n: Int) -> Int:
	return n + 1;
;
log(f(41));
`)
	assert.Len(t, c.chunks, 2)
}

func TestCompileRejectsTypeMismatch(t *testing.T) {
	prog, err := parser.Parse(`let x: Int = "hi";`)
	require.NoError(t, err)
	c := New(false, nil)
	_, err = c.Compile(prog)
	require.Error(t, err)
}

func TestCompileRecursiveLetFunction(t *testing.T) {
	c := compileSource(t, `
let f: (Int) -> Int = fun(n: Int) -> Int:
	if n <= 1:
		return 1;
	;
	return n * f(n - 1);
;
log(f(5));
`)
	require.Len(t, c.chunks, 2)
}

func TestCompileForOverRange(t *testing.T) {
	c := compileSource(t, `
let s: Int = 0;
for i in range(1, 5):
	s = s + i;
;
log(s);
`)
	assert.Equal(t, 0, c.chunks[0].used)
}
