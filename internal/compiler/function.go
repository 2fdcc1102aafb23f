package compiler

import (
	"fmt"
	"nyx/internal/ast"
	"nyx/internal/bytecode"
	"nyx/internal/langerr"
	"nyx/internal/types"
)

// compileFunctionLiteral compiles v's body as a brand new chunk nested
// under cc, then emits Func in cc to materialize a closure over it.
// Parameters occupy the new chunk's first registers in declaration order,
// matching spec.md §4.5's calling convention (the VM copies argument
// registers straight into the callee's register window starting at 0).
func (c *Compiler) compileFunctionLiteral(cc *chunkCompiler, v ast.FunctionExpr) (byte, types.Type, error) {
	chunkID, funcType, err := c.buildFunctionChunk(cc, v)
	if err != nil {
		return 0, nil, err
	}
	if chunkID > 0xFF {
		return 0, nil, langerr.Compilef(v.Line(), "too many function chunks")
	}
	dest, err := cc.newReg()
	if err != nil {
		return 0, nil, err
	}
	cc.emitByte(byte(bytecode.OpFunc))
	cc.emitByte(dest)
	cc.emitByte(byte(chunkID))
	return dest, funcType, nil
}

// emitFuncInto is like compileFunctionLiteral but writes the resulting
// closure into an already-reserved register instead of allocating its
// own, so a recursive let-binding can declare its name before the
// function body is compiled (spec.md §8 scenario 2: `f` must resolve
// inside its own body as an upvalue over the not-yet-initialized local).
func (c *Compiler) emitFuncInto(cc *chunkCompiler, v ast.FunctionExpr, dest byte) (types.Type, error) {
	chunkID, funcType, err := c.buildFunctionChunk(cc, v)
	if err != nil {
		return nil, err
	}
	if chunkID > 0xFF {
		return nil, langerr.Compilef(v.Line(), "too many function chunks")
	}
	cc.emitByte(byte(bytecode.OpFunc))
	cc.emitByte(dest)
	cc.emitByte(byte(chunkID))
	return funcType, nil
}

// functionExprType resolves v's parameter/result type annotations into a
// TypedFunction without compiling its body, so a recursive let-binding
// can know its own static type before the body is compiled.
func (c *Compiler) functionExprType(cc *chunkCompiler, v ast.FunctionExpr) (types.Type, error) {
	var paramTypes []types.Type
	for _, p := range v.Params {
		pt, err := c.resolveTypeExpr(cc, p.Type)
		if err != nil {
			return nil, err
		}
		paramTypes = append(paramTypes, pt)
	}
	resultType, err := c.resolveTypeExpr(cc, v.Result)
	if err != nil {
		return nil, err
	}
	return &types.TypedFunction{Params: paramTypes, Result: resultType}, nil
}

// buildFunctionChunk compiles v's body as a brand new chunk nested under
// cc and returns its chunk index and static type, without emitting the
// Func instruction or allocating a destination register itself.
func (c *Compiler) buildFunctionChunk(cc *chunkCompiler, v ast.FunctionExpr) (int, types.Type, error) {
	child := newChunkCompiler(cc, fmt.Sprintf("fn%d", len(c.chunks)))
	chunkID := len(c.chunks)
	c.chunks = append(c.chunks, child)

	var paramTypes []types.Type
	for _, p := range v.Params {
		pt, err := c.resolveTypeExpr(cc, p.Type)
		if err != nil {
			return 0, nil, langerr.WithLine(err, v.Line())
		}
		paramTypes = append(paramTypes, pt)
	}
	resultType, err := c.resolveTypeExpr(cc, v.Result)
	if err != nil {
		return 0, nil, langerr.WithLine(err, v.Line())
	}
	child.paramTypes = paramTypes
	child.resultType = resultType

	child.pushBlock()
	for i, p := range v.Params {
		reg, err := child.newReg()
		if err != nil {
			return 0, nil, err
		}
		child.declareLocal(p.Name, reg, paramTypes[i])
	}
	reachable, err := c.compileBlock(child, v.Body)
	if err != nil {
		return 0, nil, err
	}
	if reachable {
		if resultType != types.Nil && resultType != types.AnyType {
			return 0, nil, langerr.Compilef(v.Line(), "function may fall off the end without returning a %s", resultType)
		}
		child.emitByte(byte(bytecode.OpRet))
		kidx, err := child.addConstant(bytecode.NilConstant())
		if err != nil {
			return 0, nil, err
		}
		child.emitByte(kidx)
	}
	child.popBlock()
	if child.used != 0 {
		return 0, nil, langerr.Compilef(v.Line(), "register leak in chunk %q", child.name)
	}

	funcType := types.Type(&types.TypedFunction{Params: paramTypes, Result: resultType})
	return chunkID, funcType, nil
}
