// Package heap implements the uniformly-sized tagged Value representation
// and the mark-and-sweep garbage-collected heap that backs it (spec.md §3,
// §4.1, §4.2). The two are one package, as in the teacher's gvm package
// (vm.go/bytecode.go/exec.go all share one flat package) and in the
// original hissy implementation (vm/value.rs and vm/gc.rs are tightly
// mutually recursive): a Value that holds an object is only meaningful in
// terms of the Object it roots or references.
package heap

import (
	"fmt"
	"math"
)

// Kind discriminates the variant held by a Value.
type Kind byte

const (
	KNil Kind = iota
	KBool
	KInt
	KReal
	KRootObj
	KRefObj
)

func (k Kind) String() string {
	switch k {
	case KNil:
		return "Nil"
	case KBool:
		return "Bool"
	case KInt:
		return "Int"
	case KReal:
		return "Real"
	case KRootObj, KRefObj:
		return "Object"
	default:
		return "?"
	}
}

// Value is the uniform, trivially-copyable-except-for-rooting tagged union
// described in spec.md §3: Nil, Bool, Int(i32), Real(f64), or a pointer to a
// heap Object, tagged as either a root or non-root reference. We use a
// discriminated struct rather than NaN-boxing — spec.md §3/§9 sanctions
// either, and Go has no safe way to alias raw pointer bits into spare NaN
// mantissa bits without unsafe tricks the teacher never resorts to.
type Value struct {
	kind Kind
	num  uint64 // Int/Real payload (bit pattern); unused otherwise
	obj  *Object
}

var Nil = Value{kind: KNil}
var True = Value{kind: KBool, num: 1}
var False = Value{kind: KBool, num: 0}

func Bool(b bool) Value {
	if b {
		return True
	}
	return False
}

func Int(i int32) Value {
	return Value{kind: KInt, num: uint64(uint32(i))}
}

func Real(f float64) Value {
	return Value{kind: KReal, num: math.Float64bits(f)}
}

// fromObject builds a Value that references or roots obj, per the root flag
// requested. It is only called from Heap (new allocations, always rooted)
// and from Clone and Ref.ToValue, which re-expose an existing Object as a
// Value.
func fromObject(obj *Object, root bool) Value {
	v := Value{obj: obj}
	if root {
		v.kind = KRootObj
		obj.signalRoot()
	} else {
		v.kind = KRefObj
	}
	return v
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool    { return v.kind == KNil }
func (v Value) IsObject() bool { return v.kind == KRootObj || v.kind == KRefObj }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KBool {
		return false, false
	}
	return v.num != 0, true
}

func (v Value) AsInt() (int32, bool) {
	if v.kind != KInt {
		return 0, false
	}
	return int32(uint32(v.num)), true
}

func (v Value) AsReal() (float64, bool) {
	if v.kind != KReal {
		return 0, false
	}
	return math.Float64frombits(v.num), true
}

// Object returns the underlying heap object, or nil if this Value doesn't
// hold one.
func (v Value) Object() *Object {
	if !v.IsObject() {
		return nil
	}
	return v.obj
}

func (v Value) IsNumeric() bool { return v.kind == KInt || v.kind == KReal }

// CastReal widens an Int or Real Value to float64; panics otherwise (callers
// must have already checked IsNumeric, mirroring the teacher's "panics
// aren't expected on the hot path" discipline in vm.go's arithmetic).
func (v Value) CastReal() float64 {
	switch v.kind {
	case KInt:
		i, _ := v.AsInt()
		return float64(i)
	case KReal:
		r, _ := v.AsReal()
		return r
	default:
		panic("CastReal of non-numeric Value")
	}
}

// Clone produces a new handle to the same value. For objects, the clone is
// always a root (spec.md §3: "cloning a non-root location produces a
// root"); non-object kinds clone trivially.
func (v Value) Clone() Value {
	if v.IsObject() {
		return fromObject(v.obj, true)
	}
	return v
}

// Touch implements the root/reachability transition of spec.md §4.1: if
// initial is true, this demotes a root handle to non-root (the handle is
// being moved into a heap container, which now owns the anchoring); if
// false, it marks the referenced object as reachable during a GC trace.
func (v Value) Touch(initial bool) {
	if !v.IsObject() {
		return
	}
	if initial {
		if v.kind == KRootObj {
			v.obj.signalUnroot()
		}
	} else {
		v.obj.mark()
	}
}

// Drop releases a Value that is going out of scope without being stored
// anywhere. If it was a root handle, its root count is decremented.
func (v Value) Drop() {
	if v.kind == KRootObj {
		v.obj.signalUnroot()
	}
}

// Eq implements spec.md §4.1 equality: Nil==Nil, primitives by bit/value
// equality (Real uses IEEE equality, so NaN != NaN), objects by identity.
// Cross-kind comparisons are always false.
func (v Value) Eq(other Value) bool {
	normalize := func(k Kind) Kind {
		if k == KRootObj {
			return KRefObj
		}
		return k
	}
	if normalize(v.kind) != normalize(other.kind) {
		return false
	}
	switch v.kind {
	case KNil:
		return true
	case KBool:
		return v.num == other.num
	case KInt:
		return v.num == other.num
	case KReal:
		r1, _ := v.AsReal()
		r2, _ := other.AsReal()
		return r1 == r2
	case KRootObj, KRefObj:
		return v.obj == other.obj
	default:
		return false
	}
}

// Repr renders a Value the way the VM's log() builtin does.
func (v Value) Repr() string {
	switch v.kind {
	case KNil:
		return "nil"
	case KBool:
		b, _ := v.AsBool()
		return fmt.Sprintf("%t", b)
	case KInt:
		i, _ := v.AsInt()
		return fmt.Sprintf("%d", i)
	case KReal:
		r, _ := v.AsReal()
		return fmt.Sprintf("%g", r)
	case KRootObj, KRefObj:
		return v.obj.Repr()
	default:
		return "?"
	}
}

func (v Value) String() string { return v.Repr() }
