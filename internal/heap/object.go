package heap

// Traceable is implemented by every heap object payload (string, list,
// closure, upvalue, native function, namespace, method, iterator — see
// package object). Mark visits direct Value/handle children so the
// collector can reach them; Unroot demotes any directly-held root Values to
// non-root the moment the payload becomes heap-owned (spec.md §4.2's root
// tracking contract). This mirrors original_source/src/vm/gc.rs's
// Traceable trait one for one.
type Traceable interface {
	Mark()
	Unroot()
	Repr() string
}

// Object is the GC's bookkeeping wrapper around a payload: a mark bit local
// to the current collection cycle, a root-handle count, and the payload
// itself. Equivalent to the teacher's flat register/stack bookkeeping
// style of owning all mutable VM state in one struct, generalized here to
// per-object GC metadata the way original_source/src/vm/gc.rs's GCWrapper
// does.
type Object struct {
	marked  bool
	roots   uint32
	Payload Traceable
}

func (o *Object) signalRoot()   { o.roots++ }
func (o *Object) signalUnroot() { o.roots-- }

func (o *Object) mark() {
	if !o.marked {
		o.marked = true
		o.Payload.Mark()
	}
}

func (o *Object) reset() { o.marked = false }

func (o *Object) Repr() string { return o.Payload.Repr() }

// Ref is a typed root handle to a heap object, used internally by object
// kinds that hold references to other heap objects (e.g. a Closure's
// upvalue list) and by callers that need a concrete payload type rather
// than a type-erased Value.
type Ref[T Traceable] struct {
	root    bool
	object  *Object
	payload T
}

func newRef[T Traceable](obj *Object, payload T, root bool) Ref[T] {
	r := Ref[T]{root: root, object: obj, payload: payload}
	if root {
		obj.signalRoot()
	}
	return r
}

func (r Ref[T]) Get() T { return r.payload }

func (r Ref[T]) Object() *Object { return r.object }

// Clone produces a new root handle to the same object.
func (r Ref[T]) Clone() Ref[T] {
	return newRef(r.object, r.payload, true)
}

// Unroot demotes this handle in place; used when a reference is being
// moved into a container that will own the anchoring from here on.
func (r *Ref[T]) Unroot() {
	if r.root {
		r.root = false
		r.object.signalUnroot()
	}
}

// Drop releases a handle that is going out of scope without being stored.
func (r Ref[T]) Drop() {
	if r.root {
		r.object.signalUnroot()
	}
}

// ToValue erases the type of this handle into a Value, preserving its root
// status.
func (r Ref[T]) ToValue() Value {
	return fromObject(r.object, r.root)
}

// RefFromValue attempts to recover a typed Ref from a Value, failing if the
// Value does not hold an object or the object's payload is not a T.
func RefFromValue[T Traceable](v Value) (Ref[T], bool) {
	obj := v.Object()
	if obj == nil {
		return Ref[T]{}, false
	}
	payload, ok := obj.Payload.(T)
	if !ok {
		return Ref[T]{}, false
	}
	return Ref[T]{root: v.kind == KRootObj, object: obj, payload: payload}, true
}
