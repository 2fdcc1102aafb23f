// Package types implements the structural type system used by the
// compiler's type checker (spec.md §2, §4.5): primitives, List<T>,
// TypedFunction/UntypedFunction, Namespace, Iterator<T> and Any.
// Grounded on original_source/src/compiler/types.rs's Type enum and
// can_assign function, re-expressed as an interface hierarchy instead of a
// Rust enum since each kind carries a different shape of child type.
package types

import "fmt"

// Type is implemented by every member of the type lattice. Accepts
// reports whether a value of type other may be used where a value of type
// Type is expected (spec.md §4.5's assignability relation).
type Type interface {
	String() string
	Accepts(other Type) bool
}

// Primitive covers Nil, Bool, Int, Real and String (spec.md §2).
type Primitive struct {
	Name string
}

var (
	Nil  = &Primitive{Name: "nil"}
	Bool = &Primitive{Name: "bool"}
	Int  = &Primitive{Name: "int"}
	Real = &Primitive{Name: "real"}
	Str  = &Primitive{Name: "string"}
)

func (p *Primitive) String() string { return p.Name }

func (p *Primitive) Accepts(other Type) bool {
	if AnyType.equals(other) {
		return true
	}
	op, ok := other.(*Primitive)
	return ok && op.Name == p.Name
}

// IsNumeric reports whether t is Int or Real (spec.md §4.5's numeric
// operator applicability).
func IsNumeric(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && (p == Int || p == Real)
}

// List is covariant in its element type: List<T> accepts List<U> whenever
// T accepts U (spec.md §4.5, matching can_assign's List arm in types.rs).
type List struct {
	Elem Type
}

func (l *List) String() string { return fmt.Sprintf("List<%s>", l.Elem) }

func (l *List) Accepts(other Type) bool {
	if AnyType.equals(other) {
		return true
	}
	ol, ok := other.(*List)
	return ok && l.Elem.Accepts(ol.Elem)
}

// Iterator is covariant in its yielded type, the same way List is.
type Iterator struct {
	Elem Type
}

func (it *Iterator) String() string { return fmt.Sprintf("Iterator<%s>", it.Elem) }

func (it *Iterator) Accepts(other Type) bool {
	if AnyType.equals(other) {
		return true
	}
	oi, ok := other.(*Iterator)
	return ok && it.Elem.Accepts(oi.Elem)
}

// TypedFunction carries a fixed, typed parameter list and result type. Its
// assignability is the classic function-subtyping rule: contravariant in
// parameters, covariant in result (spec.md §4.5; types.rs's can_assign
// TypedFunction arm reverses the parameter comparison direction for
// exactly this reason).
type TypedFunction struct {
	Params []Type
	Result Type
}

func (f *TypedFunction) String() string {
	s := "("
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s + ") -> " + f.Result.String()
}

func (f *TypedFunction) Accepts(other Type) bool {
	if AnyType.equals(other) {
		return true
	}
	of, ok := other.(*TypedFunction)
	if !ok || len(of.Params) != len(f.Params) {
		return false
	}
	for i := range f.Params {
		// contravariant: other's parameter type must accept ours
		if !of.Params[i].Accepts(f.Params[i]) {
			return false
		}
	}
	return f.Result.Accepts(of.Result)
}

// UntypedFunction accepts any callable whose result type matches,
// regardless of parameter shape (spec.md §4.5: a function value whose
// parameter types weren't declared).
type UntypedFunction struct {
	Result Type
}

func (f *UntypedFunction) String() string { return "Function -> " + f.Result.String() }

func (f *UntypedFunction) Accepts(other Type) bool {
	if AnyType.equals(other) {
		return true
	}
	switch o := other.(type) {
	case *TypedFunction:
		return f.Result.Accepts(o.Result)
	case *UntypedFunction:
		return f.Result.Accepts(o.Result)
	default:
		return false
	}
}

// Namespace types are never assignable to one another except identity
// (spec.md §4.5: namespaces are module-like singletons, not a structural
// family), matching can_assign's Namespace arm which only permits exact
// matches.
type Namespace struct {
	Name    string
	Members map[string]Type
}

func (n *Namespace) String() string { return "namespace " + n.Name }

func (n *Namespace) Accepts(other Type) bool {
	if AnyType.equals(other) {
		return true
	}
	on, ok := other.(*Namespace)
	return ok && on.Name == n.Name
}

// anyType is the universal type: it both accepts every other type and is
// accepted by every other type's Accepts check (handled above via the
// AnyType.equals(other) guard in each concrete Accepts, and here by
// accepting unconditionally).
type anyType struct{}

func (a *anyType) String() string     { return "Any" }
func (a *anyType) Accepts(Type) bool  { return true }
func (a *anyType) equals(t Type) bool { _, ok := t.(*anyType); return ok }

var AnyType = &anyType{}

// GetMethodNamespace resolves the namespace a value of type t exposes its
// methods through (e.g. a List<T> exposes the "List" namespace, an
// Iterator<T> exposes "Iterator"), per spec.md §5 and
// original_source/src/compiler/types.rs's get_method_namespace.
func GetMethodNamespace(t Type) (string, bool) {
	switch t.(type) {
	case *List:
		return "List", true
	case *Iterator:
		return "Iterator", true
	default:
		return "", false
	}
}
