package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyx/internal/heap"
)

func TestListAppendGetSet(t *testing.T) {
	l := NewList()
	l.Append(heap.Int(1))
	l.Append(heap.Int(2))
	require.Equal(t, 2, l.Len())

	v, ok := l.Get(0)
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int32(1), i)

	ok = l.Set(1, heap.Int(9))
	require.True(t, ok)
	v, _ = l.Get(1)
	i, _ = v.AsInt()
	assert.Equal(t, int32(9), i)

	_, ok = l.Get(5)
	assert.False(t, ok)
}

func TestListRepr(t *testing.T) {
	l := NewList()
	l.Append(heap.Int(1))
	l.Append(heap.Bool(true))
	assert.Equal(t, "[1, true]", l.Repr())
}

func TestUpvalueOpenToClosedTransition(t *testing.T) {
	regs := []heap.Value{heap.Int(0), heap.Int(0), heap.Int(0), heap.Int(42)}
	u := NewOpenUpvalue(regs, 3)
	assert.True(t, u.IsOpen())
	i, _ := u.Read().AsInt()
	assert.Equal(t, int32(42), i)

	u.Close()
	assert.False(t, u.IsOpen())
	i, _ = u.Read().AsInt()
	assert.Equal(t, int32(42), i)

	u.Write(heap.Int(7))
	i, _ = u.Read().AsInt()
	assert.Equal(t, int32(7), i)
}

func TestUpvalueAliasingThroughOpenRegister(t *testing.T) {
	regs := []heap.Value{heap.Int(1)}
	u := NewOpenUpvalue(regs, 0)
	u.Write(heap.Int(9))
	assert.Equal(t, regs[0], u.Read())
	i, _ := regs[0].AsInt()
	assert.Equal(t, int32(9), i)
}

func TestNativeFunctionCall(t *testing.T) {
	fn := NewNativeFunction("double", func(args []heap.Value) (heap.Value, error) {
		i, _ := args[0].AsInt()
		return heap.Int(i * 2), nil
	})
	result, err := fn.Call([]heap.Value{heap.Int(21)})
	require.NoError(t, err)
	i, _ := result.AsInt()
	assert.Equal(t, int32(42), i)
}

func TestNamespaceGetSet(t *testing.T) {
	ns := NewNamespace("list")
	ns.Set("size", heap.Int(0))
	v, ok := ns.Get("size")
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int32(0), i)

	_, ok = ns.Get("missing")
	assert.False(t, ok)
}

func TestMethodBindsReceiverAndFunction(t *testing.T) {
	fn := heap.Int(1) // stand-in callable identity for this test
	m := NewMethod(heap.Int(9), fn)
	i, _ := m.This.AsInt()
	assert.Equal(t, int32(9), i)
}

func TestIteratorNext(t *testing.T) {
	i := 0
	it := NewIterator(func() (heap.Value, bool) {
		if i >= 3 {
			return heap.Nil, false
		}
		v := heap.Int(int32(i))
		i++
		return v, true
	})
	var seen []int32
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		n, _ := v.AsInt()
		seen = append(seen, n)
	}
	assert.Equal(t, []int32{0, 1, 2}, seen)
}
