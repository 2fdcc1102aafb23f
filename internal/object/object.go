// Package object implements every heap-allocated value kind (spec.md §3,
// §5): strings, lists, closures, upvalues, native functions, namespaces and
// iterators. Each type implements heap.Traceable so internal/heap's
// collector can mark through it without the two packages needing to know
// about each other's other consumers.
package object

import (
	"fmt"
	"strings"

	"nyx/internal/heap"
)

// String is the string payload kind (spec.md §3's "string" is carried as a
// plain Go string under a heap wrapper so it participates in identity
// comparison like every other object).
type String struct {
	Value string
}

func NewString(s string) *String { return &String{Value: s} }

func (s *String) Mark()          {}
func (s *String) Unroot()        {}
func (s *String) Repr() string   { return s.Value }

// List is the mutable, growable Value sequence backing List<T> (spec.md
// §5). Elements are stored unrooted: ownership of their root count is
// transferred to the list on insertion and released on Mark/Unroot the
// same way original_source/src/vm/object.rs's `impl Traceable for Vec<Value>`
// treats its elements.
type List struct {
	Elements []heap.Value
}

func NewList() *List { return &List{} }

func (l *List) Append(v heap.Value) {
	v.Touch(true)
	l.Elements = append(l.Elements, v)
}

func (l *List) Get(i int) (heap.Value, bool) {
	if i < 0 || i >= len(l.Elements) {
		return heap.Nil, false
	}
	return l.Elements[i], true
}

func (l *List) Set(i int, v heap.Value) bool {
	if i < 0 || i >= len(l.Elements) {
		return false
	}
	old := l.Elements[i]
	old.Drop()
	v.Touch(true)
	l.Elements[i] = v
	return true
}

func (l *List) Len() int { return len(l.Elements) }

func (l *List) Mark() {
	for _, v := range l.Elements {
		v.Touch(false)
	}
}

func (l *List) Unroot() {
	for _, v := range l.Elements {
		v.Drop()
	}
}

func (l *List) Repr() string {
	parts := make([]string, len(l.Elements))
	for i, v := range l.Elements {
		parts[i] = v.Repr()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// UpvalueState distinguishes an upvalue that still points at a live
// register window slot from one that has been closed over after its
// owning frame returned (spec.md §4.4).
type UpvalueState int

const (
	// OnStack means the upvalue aliases a register at the recorded
	// absolute index in the caller's register file; reads/writes go
	// through that slot.
	OnStack UpvalueState = iota
	// OnHeap means the frame that owned the aliased register has
	// returned; the upvalue now owns a moved-in copy of the value.
	OnHeap
)

// Upvalue is a single mutable capture cell, shared by every closure that
// captured the same lexical binding (spec.md §4.4's aliasing requirement:
// two inner closures over the same outer local share one Upvalue object).
// Mirrors original_source/src/vm/object.rs's Upvalue/UpvalueData pairing,
// generalized from a Rust enum to an explicit state field since Go lacks
// sum types.
//
// While open, an Upvalue holds a reference to its owning frame's register
// window (captured at the moment the closure over it was created) rather
// than re-deriving "the current frame" at read/write time: the frame that
// lexically owns a captured register is not in general the frame on top of
// the call stack when that upvalue is later read or written, most notably
// when a closure recurses into itself.
type Upvalue struct {
	state     UpvalueState
	regs      []heap.Value
	stackIdx  int
	heapValue heap.Value
}

// NewOpenUpvalue creates an upvalue pointing at a live register in regs,
// the register window belonging to the frame that owns it, identified by
// its absolute index within that window.
func NewOpenUpvalue(regs []heap.Value, absoluteRegIdx int) *Upvalue {
	return &Upvalue{state: OnStack, regs: regs, stackIdx: absoluteRegIdx}
}

func (u *Upvalue) IsOpen() bool { return u.state == OnStack }

// Read returns the upvalue's current value, through its owning register
// while open or from the moved-in copy once closed.
func (u *Upvalue) Read() heap.Value {
	if u.state == OnStack {
		return u.regs[u.stackIdx]
	}
	return u.heapValue
}

// Write overwrites the upvalue's current value, through its owning
// register while open or in place once closed.
func (u *Upvalue) Write(val heap.Value) {
	if u.state == OnStack {
		u.regs[u.stackIdx] = val
		return
	}
	old := u.heapValue
	old.Drop()
	val.Touch(true)
	u.heapValue = val
}

// Close transitions this upvalue from open to closed, moving its owning
// register's current value in and releasing the reference to the frame's
// register window. Called exactly once, when the frame that owns the
// register returns or its block exits (spec.md §4.4: "closing is
// one-way").
func (u *Upvalue) Close() {
	val := u.regs[u.stackIdx].Clone()
	val.Touch(true)
	u.state = OnHeap
	u.heapValue = val
	u.regs = nil
}

func (u *Upvalue) Mark() {
	if u.state == OnHeap {
		u.heapValue.Touch(false)
	}
}

func (u *Upvalue) Unroot() {
	if u.state == OnHeap {
		u.heapValue.Drop()
	}
}

func (u *Upvalue) Repr() string { return "<upvalue>" }

// Closure pairs a compiled chunk index with the upvalues it captured
// (spec.md §4.4, §5). The chunk itself lives in the compiled Program, not
// here; Closure only needs to remember which one to jump to.
type Closure struct {
	ChunkID  int
	Upvalues []*heap.Ref[*Upvalue]
}

func NewClosure(chunkID int, upvalues []*heap.Ref[*Upvalue]) *Closure {
	return &Closure{ChunkID: chunkID, Upvalues: upvalues}
}

func (c *Closure) Mark() {
	for _, u := range c.Upvalues {
		u.Get().Mark()
	}
}

func (c *Closure) Unroot() {
	for _, u := range c.Upvalues {
		u.Unroot()
	}
}

func (c *Closure) Repr() string { return fmt.Sprintf("<function %d>", c.ChunkID) }

// NativeFunction wraps a prelude-provided Go function so it can be called
// through the same Call instruction path as a Closure (spec.md §6's
// enumerated externals). Its Call signature takes already-resolved
// argument Values and returns a single result Value or an error.
type NativeFunction struct {
	Name string
	Call func(args []heap.Value) (heap.Value, error)
}

func NewNativeFunction(name string, fn func(args []heap.Value) (heap.Value, error)) *NativeFunction {
	return &NativeFunction{Name: name, Call: fn}
}

func (n *NativeFunction) Mark()   {}
func (n *NativeFunction) Unroot() {}
func (n *NativeFunction) Repr() string {
	return fmt.Sprintf("<native function %s>", n.Name)
}

// Namespace groups named members under one heap object (spec.md §5's
// Namespace kind: the List/Iterator method tables and the prelude module
// itself are all namespaces).
type Namespace struct {
	Name    string
	Members map[string]heap.Value
}

func NewNamespace(name string) *Namespace {
	return &Namespace{Name: name, Members: make(map[string]heap.Value)}
}

func (n *Namespace) Set(member string, v heap.Value) {
	v.Touch(true)
	n.Members[member] = v
}

func (n *Namespace) Get(member string) (heap.Value, bool) {
	v, ok := n.Members[member]
	return v, ok
}

func (n *Namespace) Mark() {
	for _, v := range n.Members {
		v.Touch(false)
	}
}

func (n *Namespace) Unroot() {
	for _, v := range n.Members {
		v.Drop()
	}
}

func (n *Namespace) Repr() string { return fmt.Sprintf("<namespace %s>", n.Name) }

// Method binds a receiver to a callable, produced at property-access time
// for namespace-backed method calls (spec.md §3's Method kind). Calling it
// prepends This to the argument list before invoking Function.
type Method struct {
	This     heap.Value
	Function heap.Value
}

func NewMethod(this, function heap.Value) *Method {
	this.Touch(true)
	function.Touch(true)
	return &Method{This: this, Function: function}
}

func (m *Method) Mark() {
	m.This.Touch(false)
	m.Function.Touch(false)
}

func (m *Method) Unroot() {
	m.This.Drop()
	m.Function.Drop()
}

func (m *Method) Repr() string { return "<method>" }

// Iterator wraps a Go-native pull function returning (value, hasNext). It
// backs both the range() prelude external and iteration over a List.
type Iterator struct {
	Next func() (heap.Value, bool)
}

func NewIterator(next func() (heap.Value, bool)) *Iterator {
	return &Iterator{Next: next}
}

func (it *Iterator) Mark()        {}
func (it *Iterator) Unroot()      {}
func (it *Iterator) Repr() string { return "<iterator>" }
