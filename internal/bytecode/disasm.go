package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders prog as human-readable text: a `== name ==` header
// per chunk, then one line per instruction prefixed with its byte offset
// and source line. Grounded on
// original_source/src/compiler/chunk.rs's disassemble(), which walks a
// chunk's code byte-by-byte printing `pos  line  OPCODE(operands)`;
// SPEC_FULL.md §D notes spec.md leaves the `list` CLI command's exact
// output format unspecified, so this format is adopted directly from the
// original.
func (prog *Program) Disassemble() string {
	var sb strings.Builder
	for i := range prog.Chunks {
		c := &prog.Chunks[i]
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("chunk%d", i)
		}
		fmt.Fprintf(&sb, "== %s ==\n", name)
		sb.WriteString(c.disassemble())
	}
	return sb.String()
}

func (c *Chunk) disassemble() string {
	var sb strings.Builder
	lineFor := func(pos int) int {
		line := 0
		for _, l := range c.Lines {
			if int(l.Pos) <= pos {
				line = int(l.Line)
			}
		}
		return line
	}
	pos := 0
	for pos < len(c.Code) {
		start := pos
		op := Op(c.Code[pos])
		pos++
		var operands []byte
		n := op.NumOperandBytes()
		for i := 0; i < n && pos < len(c.Code); i++ {
			operands = append(operands, c.Code[pos])
			pos++
		}
		line := lineFor(start)
		fmt.Fprintf(&sb, "%04d  %4d  %-12s%s\n", start, line, op, formatOperands(operands))
	}
	return sb.String()
}

func formatOperands(operands []byte) string {
	if len(operands) == 0 {
		return ""
	}
	parts := make([]string, len(operands))
	for i, b := range operands {
		if b >= MaxRegisters {
			parts[i] = fmt.Sprintf("k%d", int(b)-MaxRegisters)
		} else {
			parts[i] = fmt.Sprintf("r%d", b)
		}
	}
	return strings.Join(parts, " ")
}
