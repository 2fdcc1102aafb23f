package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddKeepsIntWhenBothOperandsAreInt(t *testing.T) {
	v, ok := Int(2).Add(Int(3))
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int32(5), i)
}

func TestAddPromotesToRealWhenEitherOperandIsReal(t *testing.T) {
	v, ok := Int(2).Add(Real(0.5))
	require.True(t, ok)
	r, _ := v.AsReal()
	assert.Equal(t, 2.5, r)
}

func TestDivAlwaysPromotesToReal(t *testing.T) {
	v, ok := Int(4).Div(Int(2))
	require.True(t, ok)
	_, isReal := v.AsReal()
	assert.True(t, isReal)
}

func TestModNormalizesToSignOfDivisor(t *testing.T) {
	v, ok := Int(-7).Mod(Int(3))
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int32(2), i)

	v, ok = Int(7).Mod(Int(-3))
	require.True(t, ok)
	i, _ = v.AsInt()
	assert.Equal(t, int32(-2), i)
}

func TestLogicalOpsRejectNonBool(t *testing.T) {
	_, ok := Int(1).And(True)
	assert.False(t, ok)

	v, ok := True.And(False)
	require.True(t, ok)
	b, _ := v.AsBool()
	assert.False(t, b)
}

func TestComparisonsAcrossIntAndReal(t *testing.T) {
	v, ok := Int(3).Lth(Real(3.5))
	require.True(t, ok)
	b, _ := v.AsBool()
	assert.True(t, b)
}

func TestNegFlipsSignForIntAndReal(t *testing.T) {
	v, ok := Int(5).Neg()
	require.True(t, ok)
	i, _ := v.AsInt()
	assert.Equal(t, int32(-5), i)

	v, ok = Real(1.5).Neg()
	require.True(t, ok)
	r, _ := v.AsReal()
	assert.Equal(t, -1.5, r)
}
