package compiler

import (
	"nyx/internal/ast"
	"nyx/internal/bytecode"
	"nyx/internal/langerr"
	"nyx/internal/types"
)

// compileBlock lowers every statement of b in order, returning whether
// control can still fall off the end (false once a Return has been
// compiled on every path, feeding spec.md §4.6's implicit-nil-return
// check).
func (c *Compiler) compileBlock(cc *chunkCompiler, b ast.Block) (bool, error) {
	reachable := true
	for _, s := range b {
		if !reachable {
			return false, langerr.Compilef(s.Line(), "unreachable statement after return")
		}
		var err error
		reachable, err = c.compileStat(cc, s)
		if err != nil {
			return false, err
		}
	}
	return reachable, nil
}

func (c *Compiler) compileStat(cc *chunkCompiler, s ast.Stat) (bool, error) {
	switch v := s.(type) {
	case ast.ExprStat:
		r, _, err := c.compileExpr(cc, v.Expr)
		if err != nil {
			return false, langerr.WithLine(err, v.Line())
		}
		if err := cc.freeReg(r); err != nil {
			return false, err
		}
		return true, nil
	case ast.LetStat:
		return true, c.compileLet(cc, v)
	case ast.SetStat:
		return true, c.compileSet(cc, v)
	case ast.CondStat:
		return c.compileCond(cc, v)
	case ast.WhileStat:
		return true, c.compileWhile(cc, v)
	case ast.ForStat:
		return true, c.compileFor(cc, v)
	case ast.ReturnStat:
		return false, c.compileReturn(cc, v)
	default:
		return false, langerr.Compilef(s.Line(), "unsupported statement node %T", s)
	}
}

func (c *Compiler) compileLet(cc *chunkCompiler, v ast.LetStat) error {
	if fe, ok := v.Value.(ast.FunctionExpr); ok {
		return c.compileRecursiveLet(cc, v, fe)
	}
	reg, vt, err := c.compileExpr(cc, v.Value)
	if err != nil {
		return langerr.WithLine(err, v.Line())
	}
	declared := vt
	if v.Type != nil {
		dt, err := c.resolveTypeExpr(cc, v.Type)
		if err != nil {
			return langerr.WithLine(err, v.Line())
		}
		if !dt.Accepts(vt) {
			return langerr.Compilef(v.Line(), "cannot assign %s to declared type %s", vt, dt)
		}
		declared = dt
	}
	cc.declareLocal(v.Name, reg, declared)
	return nil
}

// compileRecursiveLet binds a function-literal let before compiling its
// body, so the function can call itself by name (spec.md §8 scenario 2).
// The declared type must be known up front (from an explicit annotation,
// or else derived from the literal's own parameter/result types) since
// the body's self-reference resolves against it before the literal
// finishes compiling.
func (c *Compiler) compileRecursiveLet(cc *chunkCompiler, v ast.LetStat, fe ast.FunctionExpr) error {
	declared, err := c.functionExprType(cc, fe)
	if err != nil {
		return langerr.WithLine(err, v.Line())
	}
	if v.Type != nil {
		dt, err := c.resolveTypeExpr(cc, v.Type)
		if err != nil {
			return langerr.WithLine(err, v.Line())
		}
		if !dt.Accepts(declared) {
			return langerr.Compilef(v.Line(), "cannot assign %s to declared type %s", declared, dt)
		}
		declared = dt
	}
	dest, err := cc.newReg()
	if err != nil {
		return err
	}
	cc.declareLocal(v.Name, dest, declared)
	if _, err := c.emitFuncInto(cc, fe, dest); err != nil {
		return langerr.WithLine(err, v.Line())
	}
	return nil
}

func (c *Compiler) compileSet(cc *chunkCompiler, v ast.SetStat) error {
	switch t := v.Target.(type) {
	case ast.IdLExpr:
		b, err := c.resolve(cc, t.Name, v.Line())
		if err != nil {
			return err
		}
		reg, vt, err := c.compileExpr(cc, v.Value)
		if err != nil {
			return langerr.WithLine(err, v.Line())
		}
		if !b.typ.Accepts(vt) {
			return langerr.Compilef(v.Line(), "cannot assign %s to %s", vt, b.typ)
		}
		switch b.kind {
		case bindLocal:
			cc.emitByte(byte(bytecode.OpCpy))
			cc.emitByte(b.reg)
			cc.emitByte(reg)
		case bindUpvalue:
			cc.emitByte(byte(bytecode.OpSetUp))
			cc.emitByte(b.reg)
			cc.emitByte(reg)
		default:
			return langerr.Compilef(v.Line(), "cannot assign to external %q", t.Name)
		}
		return cc.freeReg(reg)
	case ast.IndexLExpr:
		listReg, lt, err := c.compileExpr(cc, t.Target)
		if err != nil {
			return langerr.WithLine(err, v.Line())
		}
		idxReg, it, err := c.compileExpr(cc, t.Index)
		if err != nil {
			return langerr.WithLine(err, v.Line())
		}
		if it != types.Int {
			return langerr.Compilef(v.Line(), "list index must be Int, got %s", it)
		}
		list, ok := lt.(*types.List)
		if !ok {
			return langerr.Compilef(v.Line(), "cannot index-assign into non-list type %s", lt)
		}
		valReg, vt, err := c.compileExpr(cc, v.Value)
		if err != nil {
			return langerr.WithLine(err, v.Line())
		}
		if !list.Elem.Accepts(vt) {
			return langerr.Compilef(v.Line(), "cannot assign %s into List<%s>", vt, list.Elem)
		}
		cc.emitByte(byte(bytecode.OpListSet))
		cc.emitByte(listReg)
		cc.emitByte(idxReg)
		cc.emitByte(valReg)
		if err := cc.freeReg(valReg); err != nil {
			return err
		}
		if err := cc.freeReg(idxReg); err != nil {
			return err
		}
		return cc.freeReg(listReg)
	default:
		return langerr.Compilef(v.Line(), "unsupported assignment target %T", v.Target)
	}
}

// compileCond lowers an if/else-if/else chain: each branch's condition is
// tested with Jif (jump-if-false) past its block; after a non-final
// branch's block runs, an unconditional Jmp skips past the remaining
// branches. Reachability is "falls off the end" if any branch (including
// a trailing else) falls off the end, or if there is no trailing else at
// all; only when every branch returns is the end unreachable.
func (c *Compiler) compileCond(cc *chunkCompiler, v ast.CondStat) (bool, error) {
	var endJumps []int
	allReturn := true
	hasElse := false
	for i, br := range v.Branches {
		if br.Cond == nil {
			hasElse = true
			cc.pushBlock()
			reachable, err := c.compileBlock(cc, br.Block)
			cc.popBlock()
			if err != nil {
				return false, err
			}
			if reachable {
				allReturn = false
			}
			continue
		}
		condReg, ct, err := c.compileExpr(cc, br.Cond)
		if err != nil {
			return false, langerr.WithLine(err, v.Line())
		}
		if ct != types.Bool {
			return false, langerr.Compilef(v.Line(), "if condition must be Bool, got %s", ct)
		}
		jifAddr := cc.emitCondJump(bytecode.OpJif, condReg)
		if err := cc.freeReg(condReg); err != nil {
			return false, err
		}
		cc.pushBlock()
		reachable, err := c.compileBlock(cc, br.Block)
		cc.popBlock()
		if err != nil {
			return false, err
		}
		if reachable {
			allReturn = false
		}
		if i != len(v.Branches)-1 {
			endJumps = append(endJumps, cc.emitJump(bytecode.OpJmp))
		}
		if err := cc.patchJump(jifAddr); err != nil {
			return false, err
		}
	}
	for _, addr := range endJumps {
		if err := cc.patchJump(addr); err != nil {
			return false, err
		}
	}
	if !hasElse {
		return true, nil
	}
	return !allReturn, nil
}

func (c *Compiler) compileWhile(cc *chunkCompiler, v ast.WhileStat) error {
	loopStart := len(cc.code)
	condReg, ct, err := c.compileExpr(cc, v.Cond)
	if err != nil {
		return langerr.WithLine(err, v.Line())
	}
	if ct != types.Bool {
		return langerr.Compilef(v.Line(), "while condition must be Bool, got %s", ct)
	}
	exitAddr := cc.emitCondJump(bytecode.OpJif, condReg)
	if err := cc.freeReg(condReg); err != nil {
		return err
	}
	cc.pushBlock()
	if _, err := c.compileBlock(cc, v.Body); err != nil {
		cc.popBlock()
		return err
	}
	cc.popBlock()
	if err := cc.emitLoopBack(bytecode.OpJmp, loopStart); err != nil {
		return err
	}
	return cc.patchJump(exitAddr)
}

// compileFor lowers `for x in source: body` by repeatedly calling the
// source iterator's next() through CallMethod and testing the result with
// Jin (jump-if-nil), per spec.md §4.5's iteration protocol and §6's
// Iterator namespace.
func (c *Compiler) compileFor(cc *chunkCompiler, v ast.ForStat) error {
	srcReg, st, err := c.compileExpr(cc, v.Source)
	if err != nil {
		return langerr.WithLine(err, v.Line())
	}
	it, ok := st.(*types.Iterator)
	if !ok {
		return langerr.Compilef(v.Line(), "for-in source must be an Iterator, got %s", st)
	}

	nameConst, err := cc.addConstant(bytecode.StringConstant("next"))
	if err != nil {
		return err
	}

	loopStart := len(cc.code)
	itemReg, err := cc.newReg()
	if err != nil {
		return err
	}
	cc.emitByte(byte(bytecode.OpCallMethod))
	cc.emitByte(itemReg)
	cc.emitByte(srcReg)
	cc.emitByte(nameConst)
	cc.emitByte(0)
	cc.emitByte(0)
	cc.emitByte(0)

	exitAddr := cc.emitCondJump(bytecode.OpJin, itemReg)

	cc.pushBlock()
	cc.declareLocal(v.Var, itemReg, it.Elem)
	if _, err := c.compileBlock(cc, v.Body); err != nil {
		cc.popBlock()
		return err
	}
	cc.popBlock()
	cc.used = int(itemReg)

	if err := cc.emitLoopBack(bytecode.OpJmp, loopStart); err != nil {
		return err
	}
	if err := cc.patchJump(exitAddr); err != nil {
		return err
	}
	return cc.freeReg(srcReg)
}

func (c *Compiler) compileReturn(cc *chunkCompiler, v ast.ReturnStat) error {
	if v.Value == nil {
		cc.emitByte(byte(bytecode.OpRet))
		kidx, err := cc.addConstant(bytecode.NilConstant())
		if err != nil {
			return err
		}
		cc.emitByte(kidx)
		return nil
	}
	reg, rt, err := c.compileExpr(cc, v.Value)
	if err != nil {
		return langerr.WithLine(err, v.Line())
	}
	if cc.resultType != nil && !cc.resultType.Accepts(rt) {
		return langerr.Compilef(v.Line(), "return type mismatch: expected %s, got %s", cc.resultType, rt)
	}
	cc.emitByte(byte(bytecode.OpRet))
	cc.emitByte(reg)
	return cc.freeReg(reg)
}

func (c *Compiler) resolveTypeExpr(cc *chunkCompiler, te ast.TypeExpr) (types.Type, error) {
	switch t := te.(type) {
	case ast.AnyTypeExpr:
		return types.AnyType, nil
	case ast.NamedTypeExpr:
		switch t.Name {
		case "Nil":
			return types.Nil, nil
		case "Bool":
			return types.Bool, nil
		case "Int":
			return types.Int, nil
		case "Real":
			return types.Real, nil
		case "String":
			return types.Str, nil
		default:
			return nil, langerr.Compilef(0, "unknown named type %q", t.Name)
		}
	case ast.FunctionTypeExpr:
		var params []types.Type
		for _, p := range t.Params {
			pt, err := c.resolveTypeExpr(cc, p)
			if err != nil {
				return nil, err
			}
			params = append(params, pt)
		}
		result, err := c.resolveTypeExpr(cc, t.Result)
		if err != nil {
			return nil, err
		}
		return &types.TypedFunction{Params: params, Result: result}, nil
	default:
		return nil, langerr.Compilef(0, "unsupported type expression %T", te)
	}
}
