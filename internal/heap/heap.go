package heap

// Heap owns every live Object and drives mark-and-sweep collection. It is
// the Go counterpart of original_source/src/vm/gc.rs's GCHeap: objects are
// added on allocation, collected by walking from every Object whose root
// count is greater than zero, and swept by dropping everything left
// unmarked.
type Heap struct {
	objects   []*Object
	allocated uint64
	threshold uint64
}

// initialThreshold is the byte count at which the first collection is
// considered, per spec.md §4.2. It doubles after every collection.
const initialThreshold = 64

func New() *Heap {
	return &Heap{threshold: initialThreshold}
}

// approxSize is a rough accounting unit used only to drive the collection
// threshold; hissy's GCHeap doesn't track exact sizes either; it treats
// "one more object" as the unit of growth pressure.
const approxSize = 32

// Allocate wraps v in a new, rooted Object and returns a root Value handle
// to it.
func (h *Heap) Allocate(v Traceable) Value {
	obj := &Object{Payload: v}
	h.objects = append(h.objects, obj)
	h.allocated += approxSize
	return fromObject(obj, true)
}

// AllocateRef is like Allocate but returns a typed Ref instead of an erased
// Value, for internal callers (e.g. the VM's closure and upvalue construction)
// that need the concrete payload type back immediately.
func AllocateRef[T Traceable](h *Heap, v T) Ref[T] {
	obj := &Object{Payload: v}
	h.objects = append(h.objects, obj)
	h.allocated += approxSize
	return newRef(obj, v, true)
}

// Collect runs one mark-and-sweep cycle: mark every object reachable from a
// rooted handle, drop everything left unmarked, then reset the mark bit on
// survivors so the next cycle starts clean. Mirrors GCHeap::collect in
// gc.rs exactly (mark roots, retain marked, reset).
func (h *Heap) Collect() {
	for _, obj := range h.objects {
		if obj.roots > 0 {
			obj.mark()
		}
	}
	survivors := h.objects[:0]
	for _, obj := range h.objects {
		if obj.marked {
			obj.reset()
			survivors = append(survivors, obj)
		}
	}
	h.objects = survivors
	h.allocated = uint64(len(h.objects)) * approxSize
}

// Step is called once per VM instruction dispatched (spec.md §4.2): it
// collects only once accumulated allocation crosses the current threshold,
// then doubles the threshold, so collection frequency backs off as the
// working set grows.
func (h *Heap) Step() {
	if h.allocated < h.threshold {
		return
	}
	h.Collect()
	h.threshold *= 2
}

func (h *Heap) Size() int { return len(h.objects) }

func (h *Heap) IsEmpty() bool { return len(h.objects) == 0 }
