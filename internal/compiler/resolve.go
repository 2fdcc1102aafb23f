package compiler

import (
	"nyx/internal/bytecode"
	"nyx/internal/langerr"
	"nyx/internal/types"
)

// resolve implements spec.md §4.4's binding-resolution algorithm: look for
// name as a local in the current chunk's block stack, then as an existing
// upvalue of the current chunk, then walk outward through enclosing chunks
// (creating a chain of upvalue captures as it goes), then finally the
// prelude's external table. Returns langerr.Compilef on failure.
func (c *Compiler) resolve(cc *chunkCompiler, name string, line int) (binding, error) {
	if local, ok := findLocal(cc, name); ok {
		return binding{kind: bindLocal, reg: local.reg, typ: local.typ}, nil
	}
	if idx, ok := cc.upvalueIdx[name]; ok {
		return binding{kind: bindUpvalue, reg: byte(idx), typ: upvalueType(cc, idx)}, nil
	}
	if cc.parent != nil {
		idx, typ, err := c.captureUpvalue(cc, name, line)
		if err == nil {
			return binding{kind: bindUpvalue, reg: byte(idx), typ: typ}, nil
		}
	}
	if typ, ok := c.externals[name]; ok {
		return binding{kind: bindExternal, typ: typ}, nil
	}
	return binding{}, langerr.Compilef(line, "unresolved name %q", name)
}

func findLocal(cc *chunkCompiler, name string) (*localInfo, bool) {
	for i := len(cc.blocks) - 1; i >= 0; i-- {
		if l, ok := cc.blocks[i].locals[name]; ok {
			return l, true
		}
	}
	return nil, false
}

// captureUpvalue walks outward from cc's parent looking for name, creating
// an upvalue capture on cc (and on every intermediate chunk between cc and
// wherever name is actually bound) so that a deeply nested closure can
// still reach a variable several lexical levels up, per spec.md §4.4's
// "upvalue chain" rule. The upvalue_specs byte at each hop either names a
// direct register of the immediate parent (< MAX_REGISTERS) or reuses one
// of the parent's own upvalues (>= MAX_REGISTERS), matching spec.md §3.
func (c *Compiler) captureUpvalue(cc *chunkCompiler, name string, line int) (int, types.Type, error) {
	parent := cc.parent
	if parent == nil {
		return 0, nil, langerr.Compilef(line, "unresolved name %q", name)
	}
	if local, ok := findLocal(parent, name); ok {
		local.closedOver = true
		idx := addUpvalue(cc, local.reg, name)
		setUpvalueType(cc, idx, local.typ)
		return idx, local.typ, nil
	}
	if pidx, ok := parent.upvalueIdx[name]; ok {
		typ := upvalueType(parent, pidx)
		idx := addUpvalue(cc, byte(bytecode.MaxRegisters+pidx), name)
		setUpvalueType(cc, idx, typ)
		return idx, typ, nil
	}
	pidx, typ, err := c.captureUpvalue(parent, name, line)
	if err != nil {
		return 0, nil, err
	}
	idx := addUpvalue(cc, byte(bytecode.MaxRegisters+pidx), name)
	setUpvalueType(cc, idx, typ)
	return idx, typ, nil
}

func addUpvalue(cc *chunkCompiler, reg byte, name string) int {
	if idx, ok := cc.upvalueIdx[name]; ok {
		return idx
	}
	idx := len(cc.upvalueRegs)
	cc.upvalueRegs = append(cc.upvalueRegs, reg)
	cc.upvalueNames = append(cc.upvalueNames, name)
	cc.upvalueIdx[name] = idx
	return idx
}

func upvalueType(cc *chunkCompiler, idx int) types.Type {
	if idx < len(cc.upvalueTypes) {
		return cc.upvalueTypes[idx]
	}
	return types.AnyType
}

func setUpvalueType(cc *chunkCompiler, idx int, typ types.Type) {
	for len(cc.upvalueTypes) <= idx {
		cc.upvalueTypes = append(cc.upvalueTypes, types.AnyType)
	}
	cc.upvalueTypes[idx] = typ
}
