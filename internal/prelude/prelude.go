// Package prelude constructs the five externals spec.md §6 enumerates, in
// the fixed order the compiler's GetExt addressing and the VM's runtime
// table both depend on: List, Iterator, log, range, and the int/string
// coercions. Grounded on vm/devices.go's pattern of registering a small,
// fixed table of host-provided capabilities the VM can call into without
// those capabilities needing their own bytecode, generalized here from
// request/response channels to plain Go closures wrapped as
// object.NativeFunction values.
package prelude

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"nyx/internal/compiler"
	"nyx/internal/heap"
	"nyx/internal/langerr"
	"nyx/internal/object"
	"nyx/internal/types"
)

// Names is the exact order spec.md §6 lists the externals in. Both
// compiler.RegisterExternalOrder and Build must stay in lockstep with it.
var Names = []string{"List", "Iterator", "log", "range", "int", "string"}

// Types returns the externals' static types, ready to hand to
// compiler.New so identifier resolution's final step (spec.md §4.4) can
// type-check uses of List, Iterator, log, range, int and string.
func Types() map[string]types.Type {
	listNamespace := &types.Namespace{Name: "List", Members: map[string]types.Type{
		"size": &types.TypedFunction{Result: types.Int},
		"add":  &types.TypedFunction{Params: []types.Type{types.AnyType}, Result: types.Nil},
		"iter": &types.TypedFunction{Result: &types.Iterator{Elem: types.AnyType}},
	}}
	iterNamespace := &types.Namespace{Name: "Iterator", Members: map[string]types.Type{
		"next": &types.UntypedFunction{Result: types.AnyType},
	}}
	return map[string]types.Type{
		"List":     listNamespace,
		"Iterator": iterNamespace,
		"log":      &types.UntypedFunction{Result: types.Nil},
		"range":    &types.TypedFunction{Params: []types.Type{types.Int, types.Int}, Result: &types.Iterator{Elem: types.Int}},
		"int":      &types.UntypedFunction{Result: types.Int},
		"string":   &types.UntypedFunction{Result: types.Str},
	}
}

// RegisterWithCompiler wires Names and the List/Iterator method tables
// into the package-level tables internal/compiler's GetExt emission and
// method-call type checking read from, without the two packages needing
// to import each other's runtime types.
func RegisterWithCompiler() {
	compiler.RegisterExternalOrder(Names)
	externals := Types()
	listNS := externals["List"].(*types.Namespace)
	iterNS := externals["Iterator"].(*types.Namespace)
	compiler.RegisterNamespaceMembers("List", listNS.Members)
	compiler.RegisterNamespaceMembers("Iterator", iterNS.Members)
}

// Build allocates the runtime Values of every external, in Names order,
// ready to hand to vm.New. out is where log() writes (typically the
// program's stdout).
func Build(h *heap.Heap, out *bufio.Writer) []heap.Value {
	return []heap.Value{
		h.Allocate(buildListNamespace(h)),
		h.Allocate(buildIteratorNamespace()),
		h.Allocate(object.NewNativeFunction("log", logFn(out))),
		h.Allocate(object.NewNativeFunction("range", rangeFn(h))),
		h.Allocate(object.NewNativeFunction("int", intFn())),
		h.Allocate(object.NewNativeFunction("string", stringFn(h))),
	}
}

// buildListNamespace installs the three List<T> methods spec.md §6
// enumerates. Each native's receiver arrives as args[0] since every
// method call is lowered to CallMethod, which prepends the bound
// receiver the same way a Method object's Function would.
func buildListNamespace(h *heap.Heap) *object.Namespace {
	ns := object.NewNamespace("List")
	ns.Set("size", h.Allocate(object.NewNativeFunction("List.size", func(args []heap.Value) (heap.Value, error) {
		lst, ok := receiverList(args)
		if !ok {
			return heap.Nil, langerr.Execf("List.size called on non-list receiver")
		}
		return heap.Int(int32(lst.Len())), nil
	})))
	ns.Set("add", h.Allocate(object.NewNativeFunction("List.add", func(args []heap.Value) (heap.Value, error) {
		lst, ok := receiverList(args)
		if !ok {
			return heap.Nil, langerr.Execf("List.add called on non-list receiver")
		}
		if len(args) < 2 {
			return heap.Nil, langerr.Execf("List.add requires one argument")
		}
		lst.Append(args[1].Clone())
		return heap.Nil, nil
	})))
	ns.Set("iter", h.Allocate(object.NewNativeFunction("List.iter", func(args []heap.Value) (heap.Value, error) {
		lst, ok := receiverList(args)
		if !ok {
			return heap.Nil, langerr.Execf("List.iter called on non-list receiver")
		}
		i := 0
		elems := lst.Elements
		it := object.NewIterator(func() (heap.Value, bool) {
			if i >= len(elems) {
				return heap.Nil, false
			}
			v := elems[i].Clone()
			i++
			return v, true
		})
		return h.Allocate(it), nil
	})))
	return ns
}

func receiverList(args []heap.Value) (*object.List, bool) {
	if len(args) == 0 {
		return nil, false
	}
	ref, ok := heap.RefFromValue[*object.List](args[0])
	if !ok {
		return nil, false
	}
	return ref.Get(), true
}

// buildIteratorNamespace backs the "Iterator" external identifier itself,
// parallel to List's namespace external. Per-instance method dispatch for
// concrete Iterator values never reaches this namespace: the VM resolves
// next() against each Iterator object's own Next closure instead (see
// internal/vm/exec.go's resolveIteratorMethod).
func buildIteratorNamespace() *object.Namespace {
	ns := object.NewNamespace("Iterator")
	ns.Set("next", heap.Nil)
	return ns
}

// logFn implements spec.md §6's log(...): each argument's Repr, joined by
// a single space, terminated by one newline. Grounded on vm/vm.go's
// stdout-through-bufio.Writer plumbing (writec writes straight to
// vm.stdout) rather than fmt.Println directly to stdout, so CLI tests can
// redirect output the same way vm/vm_test.go captures debugOut.
func logFn(out *bufio.Writer) func([]heap.Value) (heap.Value, error) {
	return func(args []heap.Value) (heap.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.Repr()
		}
		fmt.Fprintln(out, strings.Join(parts, " "))
		out.Flush()
		return heap.Nil, nil
	}
}

// rangeFn implements spec.md §6's range(lo, hi): a half-open Int
// iterator, [lo, hi).
func rangeFn(h *heap.Heap) func([]heap.Value) (heap.Value, error) {
	return func(args []heap.Value) (heap.Value, error) {
		if len(args) != 2 {
			return heap.Nil, langerr.Execf("range expects 2 arguments, got %d", len(args))
		}
		lo, ok1 := args[0].AsInt()
		hi, ok2 := args[1].AsInt()
		if !ok1 || !ok2 {
			return heap.Nil, langerr.Execf("range expects Int arguments")
		}
		cur := lo
		it := object.NewIterator(func() (heap.Value, bool) {
			if cur >= hi {
				return heap.Nil, false
			}
			v := heap.Int(cur)
			cur++
			return v, true
		})
		return h.Allocate(it), nil
	}
}

// intFn implements spec.md §6's int(Any) coercion: Int passes through,
// Real truncates toward zero, String parses, anything else errors.
func intFn() func([]heap.Value) (heap.Value, error) {
	return func(args []heap.Value) (heap.Value, error) {
		if len(args) != 1 {
			return heap.Nil, langerr.Execf("int expects 1 argument, got %d", len(args))
		}
		v := args[0]
		if i, ok := v.AsInt(); ok {
			return heap.Int(i), nil
		}
		if r, ok := v.AsReal(); ok {
			return heap.Int(int32(r)), nil
		}
		if obj := v.Object(); obj != nil {
			if s, ok := obj.Payload.(*object.String); ok {
				n, err := strconv.ParseInt(strings.TrimSpace(s.Value), 10, 32)
				if err != nil {
					return heap.Nil, langerr.Execf("cannot convert %q to Int", s.Value)
				}
				return heap.Int(int32(n)), nil
			}
		}
		return heap.Nil, langerr.Execf("cannot convert %s to Int", v.Repr())
	}
}

// stringFn implements spec.md §6's string(Any) coercion: every value's
// Repr, unconditionally.
func stringFn(h *heap.Heap) func([]heap.Value) (heap.Value, error) {
	return func(args []heap.Value) (heap.Value, error) {
		if len(args) != 1 {
			return heap.Nil, langerr.Execf("string expects 1 argument, got %d", len(args))
		}
		return h.Allocate(object.NewString(args[0].Repr())), nil
	}
}
