package vm

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyx/internal/compiler"
	"nyx/internal/heap"
	"nyx/internal/parser"
	"nyx/internal/prelude"
)

func init() {
	prelude.RegisterWithCompiler()
}

func runSource(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse(src)
	require.NoError(t, err)

	c := compiler.New(false, prelude.Types())
	bc, err := c.Compile(prog)
	require.NoError(t, err)

	h := heap.New()
	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	externals := prelude.Build(h, out)

	machine := New(h, bc, externals)
	_, err = machine.Run()
	require.NoError(t, err)
	out.Flush()
	return buf.String()
}

func TestFactorialViaRecursiveClosure(t *testing.T) {
	out := runSource(t, `
let fact: (Int) -> Int = fun(n: Int) -> Int:
	if n <= 1:
		return 1;
	;
	return n * fact(n - 1);
;
log(fact(5));
`)
	assert.Equal(t, "120\n", out)
}

func TestListAddThenSize(t *testing.T) {
	out := runSource(t, `
let xs = [1, 2, 3];
xs.add(4);
log(xs.size());
`)
	assert.Equal(t, "4\n", out)
}

func TestCounterClosureAliasing(t *testing.T) {
	out := runSource(t, `
let make = fun() -> () -> Int:
	let n: Int = 0;
	return fun() -> Int:
		n = n + 1;
		return n;
	;
;
let counter = make();
log(counter());
log(counter());
log(counter());
`)
	assert.Equal(t, "1\n2\n3\n", out)
}

func TestForLoopOverRangeSums(t *testing.T) {
	out := runSource(t, `
let s: Int = 0;
for i in range(1, 5):
	s = s + i;
;
log(s);
`)
	assert.Equal(t, "10\n", out)
}

func TestBarePropertyAccessBindsCallableMethod(t *testing.T) {
	out := runSource(t, `
let xs = [1, 2, 3];
let adder = xs.add;
adder(4);
log(xs.size());
`)
	assert.Equal(t, "4\n", out)
}

func TestTypeErrorIsReportedAtCompileTime(t *testing.T) {
	prog, err := parser.Parse(`let x: Int = "hi";`)
	require.NoError(t, err)
	c := compiler.New(false, nil)
	_, err = c.Compile(prog)
	require.Error(t, err)
}
