// Package compiler lowers an internal/ast tree into an internal/bytecode
// Program: register allocation, lexical scoping, upvalue resolution, type
// checking, jump patching (spec.md §4.4). Grounded throughout on
// original_source/src/compiler/mod.rs's Compiler shape (the kept snapshot
// only compiles literals and Return, so most of the lowering logic here is
// built from spec.md §4.4's prose directly, cross-checked against how
// original_source/src/vm/mod.rs's run loop expects each instruction's
// operands to be laid out).
package compiler

import (
	"nyx/internal/ast"
	"nyx/internal/bytecode"
	"nyx/internal/langerr"
	"nyx/internal/types"
)

// binding is what a resolved identifier lookup inside the current chunk
// yields (spec.md §4.4's binding-resolution algorithm step 1-4).
type bindingKind int

const (
	bindLocal bindingKind = iota
	bindUpvalue
	bindExternal
)

type binding struct {
	kind bindingKind
	reg  byte // local register, or upvalue index, depending on kind
	typ  types.Type
}

// scopeBlock is one nested lexical block within a chunk.
type scopeBlock struct {
	locals map[string]*localInfo
	order  []string // registers freed in reverse declaration order
}

type localInfo struct {
	reg        byte
	typ        types.Type
	closedOver bool
}

// chunkCompiler accumulates one chunk's code, constants, upvalues and
// register bookkeeping while its body is being lowered. Mirrors
// original_source/src/vm/mod.rs's per-frame Registers/ExecRecord shape,
// adapted to compile time: "required/used" register counters instead of a
// live register file, blocks instead of call frames.
type chunkCompiler struct {
	parent *chunkCompiler
	name   string

	required int
	used     int

	blocks []*scopeBlock

	constants []bytecode.Constant

	upvalueRegs  []byte // spec.md §3's upvalue_specs, by index
	upvalueNames []string
	upvalueTypes []types.Type
	upvalueIdx   map[string]int

	code  []byte
	lines []bytecode.LineEntry

	paramTypes []types.Type
	resultType types.Type
}

func newChunkCompiler(parent *chunkCompiler, name string) *chunkCompiler {
	return &chunkCompiler{
		parent:     parent,
		name:       name,
		upvalueIdx: make(map[string]int),
	}
}

// Compiler lowers a whole program into a bytecode.Program.
type Compiler struct {
	debugInfo bool
	chunks    []*chunkCompiler
	externals map[string]types.Type
}

// New creates a Compiler. externals is the prelude's name->type table used
// for binding resolution's last step (spec.md §4.4 step 4).
func New(debugInfo bool, externals map[string]types.Type) *Compiler {
	return &Compiler{debugInfo: debugInfo, externals: externals}
}

// Compile lowers prog into a Program with chunk 0 as the entry point.
func (c *Compiler) Compile(prog ast.Program) (*bytecode.Program, error) {
	main := newChunkCompiler(nil, "main")
	c.chunks = append(c.chunks, main)
	main.pushBlock()
	reachable, err := c.compileBlock(main, prog)
	if err != nil {
		return nil, err
	}
	if reachable {
		kidx, err := main.addConstant(bytecode.NilConstant())
		if err != nil {
			return nil, err
		}
		main.emitByte(byte(bytecode.OpRet))
		main.emitByte(kidx) // implicit Nil return
	}
	main.popBlock()
	if main.used != 0 {
		return nil, langerr.Compilef(0, "register leak in chunk %q: used=%d", main.name, main.used)
	}

	out := &bytecode.Program{DebugInfo: c.debugInfo}
	for _, cc := range c.chunks {
		out.Chunks = append(out.Chunks, cc.toChunk())
	}
	return out, nil
}

func (cc *chunkCompiler) toChunk() bytecode.Chunk {
	var ups []bytecode.UpvalueSpec
	for i, reg := range cc.upvalueRegs {
		name := ""
		if i < len(cc.upvalueNames) {
			name = cc.upvalueNames[i]
		}
		ups = append(ups, bytecode.UpvalueSpec{Reg: reg, Name: name})
	}
	return bytecode.Chunk{
		Name:          cc.name,
		RegisterCount: uint16(cc.required),
		Constants:     cc.constants,
		Upvalues:      ups,
		Code:          cc.code,
		Lines:         cc.lines,
	}
}

// ---- register allocation (spec.md §4.4's allocator contract) ----

func (cc *chunkCompiler) newReg() (byte, error) {
	if cc.used >= bytecode.MaxRegisters {
		return 0, langerr.Compilef(0, "chunk %q exceeds MAX_REGISTERS", cc.name)
	}
	r := byte(cc.used)
	cc.used++
	if cc.used > cc.required {
		cc.required = cc.used
	}
	return r, nil
}

func (cc *chunkCompiler) freeReg(r byte) error {
	if int(r) != cc.used-1 {
		return langerr.Compilef(0, "register free out of LIFO order in chunk %q", cc.name)
	}
	cc.used--
	return nil
}

func (cc *chunkCompiler) freeTo(mark int) {
	for cc.used > mark {
		cc.used--
	}
}

func (cc *chunkCompiler) pushBlock() {
	cc.blocks = append(cc.blocks, &scopeBlock{locals: make(map[string]*localInfo)})
}

// popBlock releases every local declared in the block (in reverse
// order, as the allocator is LIFO) and emits CloseUp for each one marked
// closed-over, per spec.md §4.4's scoping rule.
func (cc *chunkCompiler) popBlock() {
	b := cc.blocks[len(cc.blocks)-1]
	cc.blocks = cc.blocks[:len(cc.blocks)-1]
	for i := len(b.order) - 1; i >= 0; i-- {
		name := b.order[i]
		local := b.locals[name]
		if local.closedOver {
			cc.emitByte(byte(bytecode.OpCloseUp))
			cc.emitByte(local.reg)
		}
	}
	for i := len(b.order) - 1; i >= 0; i-- {
		local := b.locals[b.order[i]]
		cc.used = int(local.reg)
	}
}

func (cc *chunkCompiler) declareLocal(name string, reg byte, typ types.Type) {
	b := cc.blocks[len(cc.blocks)-1]
	b.locals[name] = &localInfo{reg: reg, typ: typ}
	b.order = append(b.order, name)
}

// ---- constants ----

func (cc *chunkCompiler) addConstant(k bytecode.Constant) (byte, error) {
	if len(cc.constants) >= bytecode.MaxRegisters-1 {
		return 0, langerr.Compilef(0, "constant pool overflow in chunk %q", cc.name)
	}
	idx := len(cc.constants)
	cc.constants = append(cc.constants, k)
	return byte(bytecode.MaxRegisters + idx), nil
}

// ---- code emission ----

func (cc *chunkCompiler) emitByte(b byte) { cc.code = append(cc.code, b) }

func (cc *chunkCompiler) noteLine(line int) {
	if line <= 0 {
		return
	}
	cc.lines = append(cc.lines, bytecode.LineEntry{Pos: uint16(len(cc.code)), Line: uint16(line)})
}

// emitJump writes the opcode and a placeholder displacement byte,
// returning the code offset of that byte for later patching.
func (cc *chunkCompiler) emitJump(op bytecode.Op) int {
	cc.emitByte(byte(op))
	cc.emitByte(0)
	return len(cc.code) - 1
}

func (cc *chunkCompiler) emitCondJump(op bytecode.Op, cond byte) int {
	cc.emitByte(byte(op))
	cc.emitByte(0)
	cc.emitByte(cond)
	return len(cc.code) - 2
}

// patchJump backfills the displacement byte at addrPos so the jump lands
// on the current end of code, measured relative to the byte containing
// the displacement itself (spec.md §4.4's "relative, single signed byte"
// jump encoding).
func (cc *chunkCompiler) patchJump(addrPos int) error {
	disp := len(cc.code) - addrPos
	if disp < -128 || disp > 127 {
		return langerr.Compilef(0, "jump too large")
	}
	cc.code[addrPos] = byte(int8(disp))
	return nil
}

func (cc *chunkCompiler) emitLoopBack(op bytecode.Op, target int) error {
	cc.emitByte(byte(op))
	disp := target - len(cc.code)
	if disp < -128 || disp > 127 {
		return langerr.Compilef(0, "jump too large")
	}
	cc.emitByte(byte(int8(disp)))
	return nil
}
