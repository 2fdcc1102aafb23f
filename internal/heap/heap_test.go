package heap

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubObj is a minimal Traceable used to exercise Heap bookkeeping without
// pulling in the object package (which itself depends on heap).
type stubObj struct {
	child *Value
	marks *int
}

func (s *stubObj) Mark() {
	*s.marks++
	if s.child != nil {
		s.child.Touch(false)
	}
}

func (s *stubObj) Unroot() {
	if s.child != nil {
		s.child.Touch(true)
	}
}

func (s *stubObj) Repr() string { return "stub" }

func TestValueConstructorsAndAccessors(t *testing.T) {
	assert.True(t, Nil.IsNil())
	b, ok := True.AsBool()
	require.True(t, ok)
	assert.True(t, b)

	i, ok := Int(-7).AsInt()
	require.True(t, ok)
	assert.Equal(t, int32(-7), i)

	r, ok := Real(2.5).AsReal()
	require.True(t, ok)
	assert.Equal(t, 2.5, r)

	_, ok = Int(1).AsBool()
	assert.False(t, ok)
}

func TestValueEq(t *testing.T) {
	assert.True(t, Nil.Eq(Nil))
	assert.True(t, Int(3).Eq(Int(3)))
	assert.False(t, Int(3).Eq(Real(3)))

	nan := Real(math.NaN())
	assert.False(t, nan.Eq(nan))
}

func TestHeapAllocateAndCollectSweepsUnrooted(t *testing.T) {
	h := New()
	marks := 0
	root := h.Allocate(&stubObj{marks: &marks})
	require.Equal(t, 1, h.Size())

	leaked := h.Allocate(&stubObj{marks: &marks})
	leaked.Drop()

	h.Collect()
	assert.Equal(t, 1, h.Size())
	assert.True(t, root.IsObject())
}

func TestHeapStepDoublesThresholdAfterCollecting(t *testing.T) {
	h := New()
	initial := h.threshold
	h.allocated = h.threshold
	h.Step()
	assert.Equal(t, initial*2, h.threshold)
}

func TestCloneRerootsObject(t *testing.T) {
	h := New()
	marks := 0
	v := h.Allocate(&stubObj{marks: &marks})
	clone := v.Clone()
	v.Drop()
	h.Collect()
	assert.Equal(t, 1, h.Size())
	clone.Drop()
	h.Collect()
	assert.Equal(t, 0, h.Size())
}
