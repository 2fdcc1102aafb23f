package compiler

import (
	"nyx/internal/ast"
	"nyx/internal/bytecode"
	"nyx/internal/langerr"
	"nyx/internal/types"
)

// compileExpr lowers e into freshly allocated registers of cc, returning
// the register holding the result and its static type. The caller owns
// freeing the returned register once it is done with it (LIFO, per
// spec.md §4.4's allocator contract).
func (c *Compiler) compileExpr(cc *chunkCompiler, e ast.Expr) (byte, types.Type, error) {
	switch v := e.(type) {
	case ast.NilExpr:
		return c.loadConstant(cc, bytecode.NilConstant(), types.Nil)
	case ast.BoolExpr:
		return c.loadConstant(cc, bytecode.BoolConstant(v.Value), types.Bool)
	case ast.IntExpr:
		return c.loadConstant(cc, bytecode.IntConstant(v.Value), types.Int)
	case ast.RealExpr:
		return c.loadConstant(cc, bytecode.RealConstant(v.Value), types.Real)
	case ast.StringExpr:
		return c.loadConstant(cc, bytecode.StringConstant(v.Value), types.Str)
	case ast.IdExpr:
		return c.compileIdent(cc, v)
	case ast.ListExpr:
		return c.compileList(cc, v)
	case ast.BinOpExpr:
		return c.compileBinOp(cc, v)
	case ast.UnaOpExpr:
		return c.compileUnaOp(cc, v)
	case ast.IndexExpr:
		return c.compileIndex(cc, v)
	case ast.CallExpr:
		return c.compileCall(cc, v)
	case ast.PropExpr:
		return c.compileProp(cc, v)
	case ast.FunctionExpr:
		return c.compileFunctionLiteral(cc, v)
	default:
		return 0, nil, langerr.Compilef(e.Line(), "unsupported expression node %T", e)
	}
}

func (c *Compiler) loadConstant(cc *chunkCompiler, k bytecode.Constant, typ types.Type) (byte, types.Type, error) {
	kidx, err := cc.addConstant(k)
	if err != nil {
		return 0, nil, err
	}
	dest, err := cc.newReg()
	if err != nil {
		return 0, nil, err
	}
	cc.emitByte(byte(bytecode.OpCpy))
	cc.emitByte(dest)
	cc.emitByte(kidx)
	return dest, typ, nil
}

func (c *Compiler) compileIdent(cc *chunkCompiler, v ast.IdExpr) (byte, types.Type, error) {
	b, err := c.resolve(cc, v.Name, v.Line())
	if err != nil {
		return 0, nil, err
	}
	switch b.kind {
	case bindLocal:
		dest, err := cc.newReg()
		if err != nil {
			return 0, nil, err
		}
		cc.emitByte(byte(bytecode.OpCpy))
		cc.emitByte(dest)
		cc.emitByte(b.reg)
		return dest, b.typ, nil
	case bindUpvalue:
		dest, err := cc.newReg()
		if err != nil {
			return 0, nil, err
		}
		cc.emitByte(byte(bytecode.OpGetUp))
		cc.emitByte(dest)
		cc.emitByte(b.reg)
		return dest, b.typ, nil
	default: // bindExternal
		dest, err := cc.newReg()
		if err != nil {
			return 0, nil, err
		}
		extIdx, err := c.externalIndex(v.Name)
		if err != nil {
			return 0, nil, langerr.WithLine(err, v.Line())
		}
		cc.emitByte(byte(bytecode.OpGetExt))
		cc.emitByte(dest)
		cc.emitByte(extIdx)
		return dest, b.typ, nil
	}
}

// externalOrder fixes the byte index every GetExt instruction addresses an
// external by, in the order spec.md §6 enumerates the prelude: List,
// Iterator, log, range, int, string. Populated once by
// prelude.RegisterWithCompiler via RegisterExternalOrder so the compiler and VM agree on indices without
// importing internal/prelude directly (which would create an import cycle
// since prelude's native functions are heap.Values produced at VM start,
// not compile-time constants).
var externalOrder []string
var externalIndexOf = map[string]byte{}

// RegisterExternalOrder fixes the name->index table the compiler's GetExt
// emission and the VM's external-table lookup both rely on. Called once by
// cmd/nyxc at startup with the same name list internal/prelude builds its
// runtime table from.
func RegisterExternalOrder(names []string) {
	externalOrder = append([]string(nil), names...)
	externalIndexOf = make(map[string]byte, len(names))
	for i, n := range names {
		externalIndexOf[n] = byte(i)
	}
}

func (c *Compiler) externalIndex(name string) (byte, error) {
	if idx, ok := externalIndexOf[name]; ok {
		return idx, nil
	}
	return 0, langerr.Compilef(0, "unknown external %q", name)
}

func (c *Compiler) compileList(cc *chunkCompiler, v ast.ListExpr) (byte, types.Type, error) {
	dest, err := cc.newReg()
	if err != nil {
		return 0, nil, err
	}
	cc.emitByte(byte(bytecode.OpListNew))
	cc.emitByte(dest)
	cc.emitByte(0)

	var elem types.Type = types.AnyType
	for i, el := range v.Elements {
		r, t, err := c.compileExpr(cc, el)
		if err != nil {
			return 0, nil, err
		}
		if i == 0 {
			elem = t
		} else if !elem.Accepts(t) {
			elem = types.AnyType
		}
		cc.emitByte(byte(bytecode.OpListExtend))
		cc.emitByte(dest)
		cc.emitByte(r)
		cc.emitByte(0)
		if err := cc.freeReg(r); err != nil {
			return 0, nil, err
		}
	}
	return dest, &types.List{Elem: elem}, nil
}

func (c *Compiler) compileBinOp(cc *chunkCompiler, v ast.BinOpExpr) (byte, types.Type, error) {
	lreg, lt, err := c.compileExpr(cc, v.Left)
	if err != nil {
		return 0, nil, err
	}
	rreg, rt, err := c.compileExpr(cc, v.Right)
	if err != nil {
		return 0, nil, err
	}

	var resultType types.Type
	var op bytecode.Op
	switch v.Op {
	case ast.Add, ast.Sub, ast.Mul, ast.Mod:
		if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
			return 0, nil, langerr.Compilef(v.Line(), "arithmetic operator requires numeric operands, got %s and %s", lt, rt)
		}
		if lt == types.Int && rt == types.Int {
			resultType = types.Int
		} else {
			resultType = types.Real
		}
		op = map[ast.BinOp]bytecode.Op{ast.Add: bytecode.OpAdd, ast.Sub: bytecode.OpSub, ast.Mul: bytecode.OpMul, ast.Mod: bytecode.OpMod}[v.Op]
	case ast.Div, ast.Pow:
		if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
			return 0, nil, langerr.Compilef(v.Line(), "arithmetic operator requires numeric operands, got %s and %s", lt, rt)
		}
		resultType = types.Real
		if v.Op == ast.Div {
			op = bytecode.OpDiv
		} else {
			op = bytecode.OpPow
		}
	case ast.Lth, ast.Leq, ast.Gth, ast.Geq:
		if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
			return 0, nil, langerr.Compilef(v.Line(), "comparison operator requires numeric operands, got %s and %s", lt, rt)
		}
		resultType = types.Bool
		op = map[ast.BinOp]bytecode.Op{ast.Lth: bytecode.OpLth, ast.Leq: bytecode.OpLeq, ast.Gth: bytecode.OpGth, ast.Geq: bytecode.OpGeq}[v.Op]
	case ast.Eq, ast.Neq:
		resultType = types.Bool
		if v.Op == ast.Eq {
			op = bytecode.OpEq
		} else {
			op = bytecode.OpNeq
		}
	case ast.And, ast.Or:
		if lt != types.Bool || rt != types.Bool {
			return 0, nil, langerr.Compilef(v.Line(), "logical operator requires bool operands, got %s and %s", lt, rt)
		}
		resultType = types.Bool
		if v.Op == ast.And {
			op = bytecode.OpAnd
		} else {
			op = bytecode.OpOr
		}
	default:
		return 0, nil, langerr.Compilef(v.Line(), "unsupported binary operator")
	}

	if err := cc.freeReg(rreg); err != nil {
		return 0, nil, err
	}
	if err := cc.freeReg(lreg); err != nil {
		return 0, nil, err
	}
	dest, err := cc.newReg()
	if err != nil {
		return 0, nil, err
	}
	cc.emitByte(byte(op))
	cc.emitByte(dest)
	cc.emitByte(lreg)
	cc.emitByte(rreg)
	return dest, resultType, nil
}

func (c *Compiler) compileUnaOp(cc *chunkCompiler, v ast.UnaOpExpr) (byte, types.Type, error) {
	reg, t, err := c.compileExpr(cc, v.Operand)
	if err != nil {
		return 0, nil, err
	}
	var op bytecode.Op
	var resultType types.Type
	switch v.Op {
	case ast.Neg:
		if !types.IsNumeric(t) {
			return 0, nil, langerr.Compilef(v.Line(), "unary - requires a numeric operand, got %s", t)
		}
		op = bytecode.OpNeg
		resultType = t
	case ast.Not:
		if t != types.Bool {
			return 0, nil, langerr.Compilef(v.Line(), "unary 'not' requires a bool operand, got %s", t)
		}
		op = bytecode.OpNot
		resultType = types.Bool
	default:
		return 0, nil, langerr.Compilef(v.Line(), "unsupported unary operator")
	}
	if err := cc.freeReg(reg); err != nil {
		return 0, nil, err
	}
	dest, err := cc.newReg()
	if err != nil {
		return 0, nil, err
	}
	cc.emitByte(byte(op))
	cc.emitByte(dest)
	cc.emitByte(reg)
	return dest, resultType, nil
}

func (c *Compiler) compileIndex(cc *chunkCompiler, v ast.IndexExpr) (byte, types.Type, error) {
	tReg, tt, err := c.compileExpr(cc, v.Target)
	if err != nil {
		return 0, nil, err
	}
	iReg, it, err := c.compileExpr(cc, v.Index)
	if err != nil {
		return 0, nil, err
	}
	if it != types.Int {
		return 0, nil, langerr.Compilef(v.Line(), "list index must be Int, got %s", it)
	}
	lt, ok := tt.(*types.List)
	if !ok {
		return 0, nil, langerr.Compilef(v.Line(), "cannot index non-list type %s", tt)
	}
	if err := cc.freeReg(iReg); err != nil {
		return 0, nil, err
	}
	if err := cc.freeReg(tReg); err != nil {
		return 0, nil, err
	}
	dest, err := cc.newReg()
	if err != nil {
		return 0, nil, err
	}
	cc.emitByte(byte(bytecode.OpListGet))
	cc.emitByte(dest)
	cc.emitByte(tReg)
	cc.emitByte(iReg)
	return dest, lt.Elem, nil
}

// compileCall lowers both plain function calls and bound-method calls.
// Plain calls go through Call; calls on a PropExpr target compile straight
// to CallMethod so the receiver never needs a separately materialized
// Method object, mirroring spec.md §4.5's "method call shortcut".
func (c *Compiler) compileCall(cc *chunkCompiler, v ast.CallExpr) (byte, types.Type, error) {
	if prop, ok := v.Callee.(ast.PropExpr); ok {
		return c.compileMethodCall(cc, prop, v)
	}

	calleeReg, ct, err := c.compileExpr(cc, v.Callee)
	if err != nil {
		return 0, nil, err
	}
	resultType, err := checkCallable(ct, v, len(v.Args))
	if err != nil {
		return 0, nil, err
	}

	argRegs, err := c.compileArgList(cc, ct, v)
	if err != nil {
		return 0, nil, err
	}

	for i := len(argRegs) - 1; i >= 0; i-- {
		if err := cc.freeReg(argRegs[i]); err != nil {
			return 0, nil, err
		}
	}
	if err := cc.freeReg(calleeReg); err != nil {
		return 0, nil, err
	}
	// dest is allocated after the args and callee are freed, so it reuses
	// the callee's register; the VM reads callee and args before writing it.
	dest, err := cc.newReg()
	if err != nil {
		return 0, nil, err
	}
	firstArg := byte(0)
	if len(argRegs) > 0 {
		firstArg = argRegs[0]
	}
	cc.emitByte(byte(bytecode.OpCall))
	cc.emitByte(dest)
	cc.emitByte(calleeReg)
	cc.emitByte(byte(len(argRegs)))
	cc.emitByte(firstArg)
	return dest, resultType, nil
}

// rehome copies the just-computed value at hi down into the first
// now-free register and returns that register, preserving the contiguous
// LIFO stack discipline after operands above it were freed out of
// allocation order (spec.md §4.4's register allocator never leaves gaps).
func rehome(cc *chunkCompiler, hi byte) byte {
	if int(hi) == cc.used {
		lo, err := cc.newReg()
		if err != nil {
			return hi
		}
		if lo != hi {
			cc.emitByte(byte(bytecode.OpCpy))
			cc.emitByte(lo)
			cc.emitByte(hi)
		}
		return lo
	}
	return hi
}

func (c *Compiler) compileArgList(cc *chunkCompiler, ct types.Type, v ast.CallExpr) ([]byte, error) {
	var regs []byte
	for i, a := range v.Args {
		r, at, err := c.compileExpr(cc, a)
		if err != nil {
			return nil, err
		}
		if tf, ok := ct.(*types.TypedFunction); ok && i < len(tf.Params) {
			if !tf.Params[i].Accepts(at) {
				return nil, langerr.Compilef(a.Line(), "argument %d: expected %s, got %s", i+1, tf.Params[i], at)
			}
		}
		regs = append(regs, r)
	}
	return regs, nil
}

func checkCallable(ct types.Type, v ast.CallExpr, argc int) (types.Type, error) {
	switch f := ct.(type) {
	case *types.TypedFunction:
		if len(f.Params) != argc {
			return nil, langerr.Compilef(v.Line(), "expected %d arguments, got %d", len(f.Params), argc)
		}
		return f.Result, nil
	case *types.UntypedFunction:
		return f.Result, nil
	default:
		if ct == types.AnyType {
			return types.AnyType, nil
		}
		return nil, langerr.Compilef(v.Line(), "cannot call non-function type %s", ct)
	}
}

// compileMethodCall lowers `target.name(args...)` straight to CallMethod,
// resolving name against target's type's method namespace (spec.md §4.5 /
// §5's List and Iterator namespaces, plus any Namespace value's own
// members).
func (c *Compiler) compileMethodCall(cc *chunkCompiler, prop ast.PropExpr, call ast.CallExpr) (byte, types.Type, error) {
	targetReg, tt, err := c.compileExpr(cc, prop.Target)
	if err != nil {
		return 0, nil, err
	}
	methodType, err := c.resolveMethodType(tt, prop.Name, prop.Line())
	if err != nil {
		return 0, nil, err
	}
	resultType, err := checkCallable(methodType, call, len(call.Args))
	if err != nil {
		return 0, nil, err
	}
	argRegs, err := c.compileArgList(cc, methodType, call)
	if err != nil {
		return 0, nil, err
	}
	nameConst, err := cc.addConstant(bytecode.StringConstant(prop.Name))
	if err != nil {
		return 0, nil, err
	}
	for i := len(argRegs) - 1; i >= 0; i-- {
		if err := cc.freeReg(argRegs[i]); err != nil {
			return 0, nil, err
		}
	}
	if err := cc.freeReg(targetReg); err != nil {
		return 0, nil, err
	}
	dest, err := cc.newReg()
	if err != nil {
		return 0, nil, err
	}
	firstArg := byte(0)
	if len(argRegs) > 0 {
		firstArg = argRegs[0]
	}
	cc.emitByte(byte(bytecode.OpCallMethod))
	cc.emitByte(dest)
	cc.emitByte(targetReg)
	cc.emitByte(nameConst)
	cc.emitByte(byte(len(argRegs)))
	cc.emitByte(firstArg)
	cc.emitByte(0)
	return dest, resultType, nil
}

func (c *Compiler) resolveMethodType(target types.Type, name string, line int) (types.Type, error) {
	if ns, ok := types.GetMethodNamespace(target); ok {
		if memberType, ok := c.namespaceMember(ns, name); ok {
			return memberType, nil
		}
		return nil, langerr.Compilef(line, "namespace %q has no member %q", ns, name)
	}
	if n, ok := target.(*types.Namespace); ok {
		if mt, ok := n.Members[name]; ok {
			return mt, nil
		}
		return nil, langerr.Compilef(line, "namespace %q has no member %q", n.Name, name)
	}
	if target == types.AnyType {
		return &types.UntypedFunction{Result: types.AnyType}, nil
	}
	return nil, langerr.Compilef(line, "type %s has no property %q", target, name)
}

// namespaceMembers holds the method signatures of the two builtin method
// namespaces, List and Iterator, keyed the way spec.md §5 enumerates them.
// Populated by internal/prelude at startup via RegisterNamespaceMembers so
// the compiler's type checker and the VM's prelude stay in lockstep without
// an import cycle.
var namespaceMembers = map[string]map[string]types.Type{}

func RegisterNamespaceMembers(ns string, members map[string]types.Type) {
	namespaceMembers[ns] = members
}

func (c *Compiler) namespaceMember(ns, name string) (types.Type, bool) {
	members, ok := namespaceMembers[ns]
	if !ok {
		return nil, false
	}
	t, ok := members[name]
	return t, ok
}

// compileProp lowers a bare property access (not immediately called, e.g.
// `let m = obj.prop;`) to a runtime method lookup against the target's
// actual value followed by binding it into a Method. `target.name(args)`
// never reaches here; compileCall special-cases a PropExpr callee straight
// to CallMethod instead.
func (c *Compiler) compileProp(cc *chunkCompiler, v ast.PropExpr) (byte, types.Type, error) {
	targetReg, tt, err := c.compileExpr(cc, v.Target)
	if err != nil {
		return 0, nil, err
	}
	methodType, err := c.resolveMethodType(tt, v.Name, v.Line())
	if err != nil {
		return 0, nil, err
	}
	nameConst, err := cc.addConstant(bytecode.StringConstant(v.Name))
	if err != nil {
		return 0, nil, err
	}
	funcReg, err := cc.newReg()
	if err != nil {
		return 0, nil, err
	}
	cc.emitByte(byte(bytecode.OpGetMethod))
	cc.emitByte(funcReg)
	cc.emitByte(targetReg)
	cc.emitByte(nameConst)

	if err := cc.freeReg(funcReg); err != nil {
		return 0, nil, err
	}
	if err := cc.freeReg(targetReg); err != nil {
		return 0, nil, err
	}
	dest, err := cc.newReg()
	if err != nil {
		return 0, nil, err
	}
	cc.emitByte(byte(bytecode.OpMakeMethod))
	cc.emitByte(dest)
	cc.emitByte(targetReg)
	cc.emitByte(funcReg)
	return dest, methodType, nil
}
