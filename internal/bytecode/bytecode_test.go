package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProgram(debugInfo bool) *Program {
	chunk := Chunk{
		Name:          "main",
		RegisterCount: 4,
		Constants:     []Constant{IntConstant(7), StringConstant("hi")},
		Upvalues:      []UpvalueSpec{{Reg: 0, Name: "x"}},
		Code:          []byte{byte(OpCpy), 0, 1, byte(OpRet), 1},
	}
	if debugInfo {
		chunk.Lines = []LineEntry{{Pos: 0, Line: 1}, {Pos: 3, Line: 2}}
	}
	return &Program{DebugInfo: debugInfo, Chunks: []Chunk{chunk}}
}

func TestRoundTripWithoutDebugInfo(t *testing.T) {
	prog := sampleProgram(false)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, prog))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Len(t, got.Chunks, 1)
	assert.Equal(t, prog.Chunks[0].RegisterCount, got.Chunks[0].RegisterCount)
	assert.Equal(t, prog.Chunks[0].Constants, got.Chunks[0].Constants)
	assert.Equal(t, prog.Chunks[0].Code, got.Chunks[0].Code)
}

func TestRoundTripWithDebugInfo(t *testing.T) {
	prog := sampleProgram(true)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, prog))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.True(t, got.DebugInfo)
	assert.Equal(t, "main", got.Chunks[0].Name)
	assert.Equal(t, prog.Chunks[0].Lines, got.Chunks[0].Lines)
	assert.Equal(t, prog.Chunks[0].Upvalues, got.Chunks[0].Upvalues)
}

func TestReadRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("xxxx")
	_, err := Read(buf)
	assert.Error(t, err)
}

func TestReadRejectsVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("hsyc")
	buf.Write([]byte{99, 0}) // version 99 LE
	buf.WriteByte(0)
	_, err := Read(&buf)
	assert.Error(t, err)
}

func TestDisassembleProducesOneLinePerInstruction(t *testing.T) {
	prog := sampleProgram(true)
	out := prog.Disassemble()
	assert.Contains(t, out, "Cpy")
	assert.Contains(t, out, "Ret")
}
