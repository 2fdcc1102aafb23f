package heap

import "math"

// The operator methods below mirror original_source/src/vm/op.rs one for
// one: each returns (result, ok) instead of Option<Value>, since Go has no
// Option type. Int op Int stays Int for + - * %; / and ^ always promote to
// Real; any Real operand promotes the whole operation (spec.md §4.1).

type numPair struct {
	isInt  bool
	i1, i2 int32
	r1, r2 float64
}

func (v Value) numPair(other Value) (numPair, bool) {
	if !v.IsNumeric() || !other.IsNumeric() {
		return numPair{}, false
	}
	if v.kind == KInt && other.kind == KInt {
		i1, _ := v.AsInt()
		i2, _ := other.AsInt()
		return numPair{isInt: true, i1: i1, i2: i2}, true
	}
	return numPair{r1: v.CastReal(), r2: other.CastReal()}, true
}

func (v Value) Neg() (Value, bool) {
	switch v.kind {
	case KInt:
		i, _ := v.AsInt()
		return Int(-i), true
	case KReal:
		r, _ := v.AsReal()
		return Real(-r), true
	default:
		return Nil, false
	}
}

func (v Value) Add(other Value) (Value, bool) {
	p, ok := v.numPair(other)
	if !ok {
		return Nil, false
	}
	if p.isInt {
		return Int(p.i1 + p.i2), true
	}
	return Real(p.r1 + p.r2), true
}

func (v Value) Sub(other Value) (Value, bool) {
	p, ok := v.numPair(other)
	if !ok {
		return Nil, false
	}
	if p.isInt {
		return Int(p.i1 - p.i2), true
	}
	return Real(p.r1 - p.r2), true
}

func (v Value) Mul(other Value) (Value, bool) {
	p, ok := v.numPair(other)
	if !ok {
		return Nil, false
	}
	if p.isInt {
		return Int(p.i1 * p.i2), true
	}
	return Real(p.r1 * p.r2), true
}

// Div always promotes to Real, even for an exact integer division
// (spec.md §9 Open Question: "no separate integer-division operator
// exists").
func (v Value) Div(other Value) (Value, bool) {
	if !v.IsNumeric() || !other.IsNumeric() {
		return Nil, false
	}
	return Real(v.CastReal() / other.CastReal()), true
}

func (v Value) Pow(other Value) (Value, bool) {
	if !v.IsNumeric() || !other.IsNumeric() {
		return Nil, false
	}
	return Real(math.Pow(v.CastReal(), other.CastReal())), true
}

// Mod returns a result with the sign of the divisor, matching mathematical
// remainder for a positive divisor (spec.md §4.1, §8).
func (v Value) Mod(other Value) (Value, bool) {
	p, ok := v.numPair(other)
	if !ok {
		return Nil, false
	}
	if p.isInt {
		r := p.i1 % p.i2
		if r != 0 && (r < 0) != (p.i2 < 0) {
			r += p.i2
		}
		return Int(r), true
	}
	r := math.Mod(p.r1, p.r2)
	if r != 0 && (r < 0) != (p.r2 < 0) {
		r += p.r2
	}
	return Real(r), true
}

func (v Value) Not() (Value, bool) {
	b, ok := v.AsBool()
	if !ok {
		return Nil, false
	}
	return Bool(!b), true
}

func (v Value) And(other Value) (Value, bool) {
	b1, ok1 := v.AsBool()
	b2, ok2 := other.AsBool()
	if !ok1 || !ok2 {
		return Nil, false
	}
	return Bool(b1 && b2), true
}

func (v Value) Or(other Value) (Value, bool) {
	b1, ok1 := v.AsBool()
	b2, ok2 := other.AsBool()
	if !ok1 || !ok2 {
		return Nil, false
	}
	return Bool(b1 || b2), true
}

func (v Value) Lth(other Value) (Value, bool) {
	p, ok := v.numPair(other)
	if !ok {
		return Nil, false
	}
	if p.isInt {
		return Bool(p.i1 < p.i2), true
	}
	return Bool(p.r1 < p.r2), true
}

func (v Value) Leq(other Value) (Value, bool) {
	p, ok := v.numPair(other)
	if !ok {
		return Nil, false
	}
	if p.isInt {
		return Bool(p.i1 <= p.i2), true
	}
	return Bool(p.r1 <= p.r2), true
}

func (v Value) Gth(other Value) (Value, bool) {
	p, ok := v.numPair(other)
	if !ok {
		return Nil, false
	}
	if p.isInt {
		return Bool(p.i1 > p.i2), true
	}
	return Bool(p.r1 > p.r2), true
}

func (v Value) Geq(other Value) (Value, bool) {
	p, ok := v.numPair(other)
	if !ok {
		return Nil, false
	}
	if p.isInt {
		return Bool(p.i1 >= p.i2), true
	}
	return Bool(p.r1 >= p.r2), true
}
