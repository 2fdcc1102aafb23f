package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexPrintsTokenStream(t *testing.T) {
	path := writeTempSource(t, `let x = 1 + 2;`)
	out, err := captureOutput(t, func() error {
		src, err := readSource(path)
		if err != nil {
			return err
		}
		_, err = tokenizeAndPrint(src)
		return err
	})
	require.NoError(t, err)
	assert.Contains(t, out, "keyword")
	assert.Contains(t, out, `"let"`)
}

func TestInterpretRunsSourceEndToEnd(t *testing.T) {
	path := writeTempSource(t, `
let s: Int = 0;
for i in range(1, 5):
	s = s + i;
;
log(s);
`)
	out, err := captureOutput(t, func() error {
		src, err := readSource(path)
		if err != nil {
			return err
		}
		bc, err := compileToProgram(src, false)
		if err != nil {
			return err
		}
		return runProgram(bc)
	})
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)
}

func TestCompileThenListRoundTrips(t *testing.T) {
	path := writeTempSource(t, `log(1 + 2 * 3);`)
	outPath := filepath.Join(t.TempDir(), "prog.nyxc")

	compileOut = outPath
	compileDebugInfo = true
	compileStrip = false
	defer func() { compileOut = "" }()

	_, err := captureOutput(t, func() error { return runCompile(path) })
	require.NoError(t, err)

	bc, err := loadProgram(outPath)
	require.NoError(t, err)
	disasm := bc.Disassemble()
	assert.True(t, strings.Contains(disasm, "Add") || strings.Contains(disasm, "Mul"))
}

func TestCompileRejectsTypeErrorWithLine(t *testing.T) {
	path := writeTempSource(t, `let x: Int = "hi";`)
	_, err := captureOutput(t, func() error { return runCompile(path) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line")
}
