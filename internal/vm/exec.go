package vm

import (
	"nyx/internal/bytecode"
	"nyx/internal/heap"
	"nyx/internal/langerr"
	"nyx/internal/object"
)

// run dispatches f's chunk one instruction at a time until a Ret, mirroring
// vm/exec.go's execNextInstruction switch but operating on a register
// window and returning a value instead of mutating a shared flat register
// file.
func (vm *VM) run(f *frame) (heap.Value, error) {
	code := f.chunk.Code
	for f.pc < len(code) {
		vm.heap.Step()
		op := bytecode.Op(code[f.pc])
		f.pc++
		switch op {
		case bytecode.OpNop:

		case bytecode.OpCpy:
			dest, src := vm.arg(f), vm.arg(f)
			f.regs[dest] = vm.readOperand(f, src)

		case bytecode.OpGetUp:
			dest, idx := vm.arg(f), vm.arg(f)
			f.regs[dest] = vm.readUpvalue(f, int(idx))

		case bytecode.OpSetUp:
			idx, src := vm.arg(f), vm.arg(f)
			vm.writeUpvalue(f, int(idx), vm.readOperand(f, src))

		case bytecode.OpGetExt:
			dest, idx := vm.arg(f), vm.arg(f)
			if int(idx) >= len(vm.externals) {
				return heap.Nil, langerr.Execf("external index %d out of range", idx)
			}
			f.regs[dest] = vm.externals[idx].Clone()

		case bytecode.OpGetMethod:
			dest, targetReg, nameConst := vm.arg(f), vm.arg(f), vm.arg(f)
			name := f.chunk.Constants[int(nameConst)-bytecode.MaxRegisters].String
			fn, err := vm.resolveMethod(f.regs[targetReg], name)
			if err != nil {
				return heap.Nil, err
			}
			f.regs[dest] = fn

		case bytecode.OpNeg:
			dest, src := vm.arg(f), vm.arg(f)
			v, ok := f.regs[src].Neg()
			if !ok {
				return heap.Nil, langerr.Execf("cannot negate %s", f.regs[src].Repr())
			}
			f.regs[dest] = v

		case bytecode.OpNot:
			dest, src := vm.arg(f), vm.arg(f)
			v, ok := f.regs[src].Not()
			if !ok {
				return heap.Nil, langerr.Execf("cannot apply 'not' to %s", f.regs[src].Repr())
			}
			f.regs[dest] = v

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv,
			bytecode.OpMod, bytecode.OpPow, bytecode.OpOr, bytecode.OpAnd,
			bytecode.OpEq, bytecode.OpNeq, bytecode.OpLth, bytecode.OpLeq,
			bytecode.OpGth, bytecode.OpGeq:
			if err := vm.execBinary(f, op); err != nil {
				return heap.Nil, err
			}

		case bytecode.OpFunc:
			dest, chunkID := vm.arg(f), vm.arg(f)
			f.regs[dest] = vm.makeClosure(f, int(chunkID))

		case bytecode.OpCall:
			if err := vm.execCall(f); err != nil {
				return heap.Nil, err
			}

		case bytecode.OpCallMethod:
			if err := vm.execCallMethod(f); err != nil {
				return heap.Nil, err
			}

		case bytecode.OpRet:
			src := vm.arg(f)
			return vm.readOperand(f, src), nil

		case bytecode.OpJmp:
			disp := int8(vm.arg(f))
			f.pc += int(disp) - 1

		case bytecode.OpJit:
			disp, cond := int8(vm.arg(f)), vm.arg(f)
			b, _ := f.regs[cond].AsBool()
			if b {
				f.pc += int(disp) - 2
			}

		case bytecode.OpJif:
			disp, cond := int8(vm.arg(f)), vm.arg(f)
			b, _ := f.regs[cond].AsBool()
			if !b {
				f.pc += int(disp) - 2
			}

		case bytecode.OpJin:
			disp, cond := int8(vm.arg(f)), vm.arg(f)
			if f.regs[cond].IsNil() {
				f.pc += int(disp) - 2
			}

		case bytecode.OpListNew:
			dest, _ := vm.arg(f), vm.arg(f)
			f.regs[dest] = vm.heap.Allocate(object.NewList())

		case bytecode.OpListExtend:
			listReg, valReg, _ := vm.arg(f), vm.arg(f), vm.arg(f)
			lst, ok := heap.RefFromValue[*object.List](f.regs[listReg])
			if !ok {
				return heap.Nil, langerr.Execf("ListExtend on non-list value")
			}
			lst.Get().Append(f.regs[valReg].Clone())

		case bytecode.OpListGet:
			dest, listReg, idxReg := vm.arg(f), vm.arg(f), vm.arg(f)
			lst, ok := heap.RefFromValue[*object.List](f.regs[listReg])
			if !ok {
				return heap.Nil, langerr.Execf("ListGet on non-list value")
			}
			idx, _ := f.regs[idxReg].AsInt()
			v, ok := lst.Get().Get(int(idx))
			if !ok {
				return heap.Nil, langerr.Execf("%v", ErrIndexOutOfRange)
			}
			f.regs[dest] = v.Clone()

		case bytecode.OpListSet:
			listReg, idxReg, valReg := vm.arg(f), vm.arg(f), vm.arg(f)
			lst, ok := heap.RefFromValue[*object.List](f.regs[listReg])
			if !ok {
				return heap.Nil, langerr.Execf("ListSet on non-list value")
			}
			idx, _ := f.regs[idxReg].AsInt()
			if !lst.Get().Set(int(idx), f.regs[valReg].Clone()) {
				return heap.Nil, langerr.Execf("%v", ErrIndexOutOfRange)
			}

		case bytecode.OpMakeMethod:
			dest, thisReg, funcReg := vm.arg(f), vm.arg(f), vm.arg(f)
			m := object.NewMethod(f.regs[thisReg].Clone(), f.regs[funcReg].Clone())
			f.regs[dest] = vm.heap.Allocate(m)

		case bytecode.OpCloseUp:
			reg := vm.arg(f)
			vm.closeUpvalueAt(f, int(reg))

		default:
			return heap.Nil, langerr.Execf("unknown opcode %d", op)
		}
	}
	return heap.Nil, nil
}

func (vm *VM) arg(f *frame) byte {
	b := f.chunk.Code[f.pc]
	f.pc++
	return b
}

// readOperand decodes a register-or-constant operand byte per spec.md
// §4.5: values below bytecode.MaxRegisters name a register directly;
// values at or above it address the chunk's constant pool, materializing
// a fresh heap allocation for string constants each time (spec.md §3: two
// reads of the same string constant are distinct, unaliased objects).
func (vm *VM) readOperand(f *frame, b byte) heap.Value {
	if b < bytecode.MaxRegisters {
		return f.regs[b]
	}
	k := f.chunk.Constants[int(b)-bytecode.MaxRegisters]
	switch k.Tag {
	case bytecode.CTNil:
		return heap.Nil
	case bytecode.CTBool:
		return heap.Bool(k.Bool)
	case bytecode.CTInt:
		return heap.Int(k.Int)
	case bytecode.CTReal:
		return heap.Real(k.Real)
	case bytecode.CTString:
		return vm.heap.Allocate(object.NewString(k.String))
	default:
		return heap.Nil
	}
}

// readUpvalue/writeUpvalue go through the Upvalue cell itself rather than
// resolving "the current frame": each cell carries the register window of
// the frame that owned it at the moment it was opened, so a read or write
// reaches the right register window even while other frames (including a
// recursive call back into the same closure) sit above it on vm.frames.
func (vm *VM) readUpvalue(f *frame, idx int) heap.Value {
	if idx < 0 || idx >= len(f.upvalues) {
		return heap.Nil
	}
	return f.upvalues[idx].Get().Read().Clone()
}

func (vm *VM) writeUpvalue(f *frame, idx int, v heap.Value) {
	if idx < 0 || idx >= len(f.upvalues) {
		return
	}
	f.upvalues[idx].Get().Write(v)
}

// closeUpvalueAt transitions the shared upvalue cell (if any) that closures
// created from f have opened over register reg into the closed state,
// moving the register's current value in. Called when that register's
// owning block exits (spec.md §4.4: "closing happens once, when the frame
// that owns the aliased register returns or the block exits").
func (vm *VM) closeUpvalueAt(f *frame, reg int) {
	up, ok := f.openUps[reg]
	if !ok {
		return
	}
	up.Get().Close()
	delete(f.openUps, reg)
}

func (vm *VM) execBinary(f *frame, op bytecode.Op) error {
	dest, lreg, rreg := vm.arg(f), vm.arg(f), vm.arg(f)
	l, r := f.regs[lreg], f.regs[rreg]
	var v heap.Value
	var ok bool
	switch op {
	case bytecode.OpAdd:
		v, ok = l.Add(r)
	case bytecode.OpSub:
		v, ok = l.Sub(r)
	case bytecode.OpMul:
		v, ok = l.Mul(r)
	case bytecode.OpDiv:
		v, ok = l.Div(r)
	case bytecode.OpMod:
		v, ok = l.Mod(r)
	case bytecode.OpPow:
		v, ok = l.Pow(r)
	case bytecode.OpOr:
		v, ok = l.Or(r)
	case bytecode.OpAnd:
		v, ok = l.And(r)
	case bytecode.OpEq:
		v, ok = heap.Bool(l.Eq(r)), true
	case bytecode.OpNeq:
		v, ok = heap.Bool(!l.Eq(r)), true
	case bytecode.OpLth:
		v, ok = l.Lth(r)
	case bytecode.OpLeq:
		v, ok = l.Leq(r)
	case bytecode.OpGth:
		v, ok = l.Gth(r)
	case bytecode.OpGeq:
		v, ok = l.Geq(r)
	default:
		return langerr.Execf("not a binary opcode: %v", op)
	}
	if !ok {
		return langerr.Execf("operator %v not applicable to %s and %s", op, l.Repr(), r.Repr())
	}
	f.regs[dest] = v
	return nil
}

func (vm *VM) makeClosure(f *frame, chunkID int) heap.Value {
	if chunkID < 0 || chunkID >= len(vm.program.Chunks) {
		return heap.Nil
	}
	child := &vm.program.Chunks[chunkID]
	ups := make([]*heap.Ref[*object.Upvalue], len(child.Upvalues))
	for i, spec := range child.Upvalues {
		ups[i] = vm.resolveChildUpvalue(f, spec)
	}
	ref := heap.AllocateRef[*object.Closure](vm.heap, object.NewClosure(chunkID, ups))
	return ref.ToValue()
}

// resolveChildUpvalue turns one bytecode.UpvalueSpec into a live upvalue
// cell: a spec byte below MaxRegisters captures a register of the
// enclosing frame directly (opening a brand new cell over it, or reusing
// one this run already opened over the same register so aliasing holds);
// a spec byte at or above MaxRegisters reuses one of the enclosing
// closure's own upvalues by index, chaining the capture outward.
func (vm *VM) resolveChildUpvalue(f *frame, spec bytecode.UpvalueSpec) *heap.Ref[*object.Upvalue] {
	if int(spec.Reg) < bytecode.MaxRegisters {
		absolute := int(spec.Reg)
		if f.openUps == nil {
			f.openUps = make(map[int]*heap.Ref[*object.Upvalue])
		}
		if existing, ok := f.openUps[absolute]; ok {
			cloned := existing.Clone()
			return &cloned
		}
		ref := heap.AllocateRef[*object.Upvalue](vm.heap, object.NewOpenUpvalue(f.regs, absolute))
		f.openUps[absolute] = &ref
		return &ref
	}
	idx := int(spec.Reg) - bytecode.MaxRegisters
	if idx < 0 || idx >= len(f.upvalues) {
		ref := heap.AllocateRef[*object.Upvalue](vm.heap, object.NewOpenUpvalue(f.regs, 0))
		return &ref
	}
	cloned := f.upvalues[idx].Clone()
	return &cloned
}

func (vm *VM) execCall(f *frame) error {
	dest, calleeReg, argc, firstArg := vm.arg(f), vm.arg(f), vm.arg(f), vm.arg(f)
	callee := f.regs[calleeReg]
	args := make([]heap.Value, argc)
	for i := 0; i < int(argc); i++ {
		args[i] = f.regs[int(firstArg)+i].Clone()
	}
	result, err := vm.invoke(callee, args)
	if err != nil {
		return err
	}
	f.regs[dest] = result
	return nil
}

func (vm *VM) execCallMethod(f *frame) error {
	dest, targetReg, nameConst, argc, firstArg, _ := vm.arg(f), vm.arg(f), vm.arg(f), vm.arg(f), vm.arg(f), vm.arg(f)
	target := f.regs[targetReg]
	name := f.chunk.Constants[int(nameConst)-bytecode.MaxRegisters].String
	args := make([]heap.Value, argc)
	for i := 0; i < int(argc); i++ {
		args[i] = f.regs[int(firstArg)+i].Clone()
	}
	fn, err := vm.resolveMethod(target, name)
	if err != nil {
		return err
	}
	result, err := vm.invoke(fn, append([]heap.Value{target.Clone()}, args...))
	if err != nil {
		return err
	}
	f.regs[dest] = result
	return nil
}

// resolveMethod looks name up against target's runtime kind, matching the
// namespaces internal/prelude installs: a list value exposes "List"'s
// members, an iterator object exposes "Iterator"'s, and a Namespace value
// exposes its own Members table directly.
func (vm *VM) resolveMethod(target heap.Value, name string) (heap.Value, error) {
	obj := target.Object()
	if obj == nil {
		return heap.Nil, langerr.Execf("%v: %s", ErrNotIterable, name)
	}
	switch p := obj.Payload.(type) {
	case *object.List:
		return vm.lookupNamespace("List", name)
	case *object.Iterator:
		return vm.resolveIteratorMethod(p, name)
	case *object.Namespace:
		v, ok := p.Get(name)
		if !ok {
			return heap.Nil, langerr.Execf("namespace %q has no member %q", p.Name, name)
		}
		return v, nil
	default:
		return heap.Nil, langerr.Execf("%v: %s", ErrNotIterable, name)
	}
}

// resolveIteratorMethod binds name against this specific Iterator object's
// own Next field rather than the shared Iterator namespace: the generic
// namespace only carries type-checking shape, since each Iterator (from
// range() or List.iter()) holds its actual pull logic as a per-instance Go
// closure, not a namespace-wide method body.
func (vm *VM) resolveIteratorMethod(it *object.Iterator, name string) (heap.Value, error) {
	if name != "next" {
		return heap.Nil, langerr.Execf("namespace %q has no member %q", "Iterator", name)
	}
	next := it.Next
	fn := object.NewNativeFunction("Iterator.next", func(args []heap.Value) (heap.Value, error) {
		v, ok := next()
		if !ok {
			return heap.Nil, nil
		}
		return v, nil
	})
	return vm.heap.Allocate(fn), nil
}

func (vm *VM) lookupNamespace(nsName, member string) (heap.Value, error) {
	for _, ext := range vm.externals {
		obj := ext.Object()
		if obj == nil {
			continue
		}
		ns, ok := obj.Payload.(*object.Namespace)
		if !ok || ns.Name != nsName {
			continue
		}
		v, ok := ns.Get(member)
		if !ok {
			return heap.Nil, langerr.Execf("namespace %q has no member %q", nsName, member)
		}
		return v, nil
	}
	return heap.Nil, langerr.Execf("namespace %q not found", nsName)
}

// invoke dispatches a callable Value: a Closure runs through the VM's own
// call-frame machinery, a NativeFunction runs as a direct Go call, and a
// Method prepends its bound receiver before delegating to whichever of the
// two its Function field holds.
func (vm *VM) invoke(callee heap.Value, args []heap.Value) (heap.Value, error) {
	obj := callee.Object()
	if obj == nil {
		return heap.Nil, langerr.Execf("%v: %s", ErrNotCallable, callee.Repr())
	}
	switch fn := obj.Payload.(type) {
	case *object.Closure:
		return vm.callClosure(fn, args)
	case *object.NativeFunction:
		return fn.Call(args)
	case *object.Method:
		return vm.invoke(fn.Function, append([]heap.Value{fn.This.Clone()}, args...))
	default:
		return heap.Nil, langerr.Execf("%v: %s", ErrNotCallable, callee.Repr())
	}
}
