package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimitiveAcceptsOnlyItself(t *testing.T) {
	assert.True(t, Int.Accepts(Int))
	assert.False(t, Int.Accepts(Real))
	assert.True(t, Int.Accepts(AnyType))
}

func TestListIsCovariant(t *testing.T) {
	ints := &List{Elem: Int}
	assert.True(t, ints.Accepts(&List{Elem: Int}))
	assert.False(t, ints.Accepts(&List{Elem: Real}))
}

func TestTypedFunctionIsContravariantInParamsCovariantInResult(t *testing.T) {
	narrow := &TypedFunction{Params: []Type{Int}, Result: Int}
	wide := &TypedFunction{Params: []Type{AnyType}, Result: Int}

	// a function accepting Any-in-Int-out can stand in anywhere an
	// Int-in-Int-out function is expected: callers pass a narrower Int
	// argument, which Any happily accepts.
	assert.True(t, narrow.Accepts(wide))
	assert.False(t, wide.Accepts(narrow))
}

func TestUntypedFunctionAcceptsByResultOnly(t *testing.T) {
	f := &UntypedFunction{Result: Int}
	assert.True(t, f.Accepts(&TypedFunction{Params: []Type{Str}, Result: Int}))
	assert.False(t, f.Accepts(&TypedFunction{Params: []Type{Str}, Result: Real}))
}

func TestNamespaceOnlyAcceptsSameName(t *testing.T) {
	a := &Namespace{Name: "List"}
	b := &Namespace{Name: "List"}
	c := &Namespace{Name: "Iterator"}
	assert.True(t, a.Accepts(b))
	assert.False(t, a.Accepts(c))
}

func TestGetMethodNamespace(t *testing.T) {
	ns, ok := GetMethodNamespace(&List{Elem: Int})
	assert.True(t, ok)
	assert.Equal(t, "List", ns)

	_, ok = GetMethodNamespace(Int)
	assert.False(t, ok)
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric(Int))
	assert.True(t, IsNumeric(Real))
	assert.False(t, IsNumeric(Str))
}
