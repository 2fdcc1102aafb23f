package prelude

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyx/internal/heap"
	"nyx/internal/object"
)

func TestBuildProducesExternalsInNamesOrder(t *testing.T) {
	h := heap.New()
	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	externals := Build(h, out)
	require.Len(t, externals, len(Names))
}

func TestLogWritesSpaceJoinedRepr(t *testing.T) {
	h := heap.New()
	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	externals := Build(h, out)
	logObj := externals[2].Object().Payload.(*object.NativeFunction)

	_, err := logObj.Call([]heap.Value{heap.Int(1), heap.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, "1 true\n", buf.String())
}

func TestRangeIsHalfOpen(t *testing.T) {
	h := heap.New()
	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	externals := Build(h, out)
	rangeObj := externals[3].Object().Payload.(*object.NativeFunction)

	result, err := rangeObj.Call([]heap.Value{heap.Int(1), heap.Int(4)})
	require.NoError(t, err)
	it := result.Object().Payload.(*object.Iterator)

	var got []int32
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		n, _ := v.AsInt()
		got = append(got, n)
	}
	assert.Equal(t, []int32{1, 2, 3}, got)
}

func TestIntCoercionParsesString(t *testing.T) {
	h := heap.New()
	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	externals := Build(h, out)
	intObj := externals[4].Object().Payload.(*object.NativeFunction)

	result, err := intObj.Call([]heap.Value{h.Allocate(object.NewString("42"))})
	require.NoError(t, err)
	n, ok := result.AsInt()
	require.True(t, ok)
	assert.Equal(t, int32(42), n)
}

func TestListAddAndSize(t *testing.T) {
	h := heap.New()
	var buf bytes.Buffer
	out := bufio.NewWriter(&buf)
	externals := Build(h, out)
	listNS := externals[0].Object().Payload.(*object.Namespace)
	addFn, _ := listNS.Get("add")
	sizeFn, _ := listNS.Get("size")

	lst := h.Allocate(object.NewList())
	addNative := addFn.Object().Payload.(*object.NativeFunction)
	_, err := addNative.Call([]heap.Value{lst, heap.Int(7)})
	require.NoError(t, err)

	sizeNative := sizeFn.Object().Payload.(*object.NativeFunction)
	result, err := sizeNative.Call([]heap.Value{lst})
	require.NoError(t, err)
	n, _ := result.AsInt()
	assert.Equal(t, int32(1), n)
}
