// Package types implements the static type lattice: the
// primitive/composite type tags and the compatibility relation the
// parser's type checker uses to accept or reject an expression in a
// given context.
package types

import "fmt"

// Kind tags which variant of Type a value is.
type Kind int

const (
	Nothing Kind = iota
	Bool
	Int
	Float
	String
	Vector
	Object
	Function
	Class
	Enum
	Unknown
)

// ClassHandle and EnumHandle are shared, immutable identity tokens for
// a declared class/enum. Compatibility and equality for these compare
// by handle identity, never structurally.
type ClassHandle struct {
	Name    string
	Ctor    *FunctionType // nil if the class has no "new" constructor
	Fields  map[string]Type
	Methods map[string]*FunctionType
}

type EnumHandle struct {
	Name     string
	Variants []EnumVariant
}

type EnumVariant struct {
	Name    string
	Payload Type // Nothing-kind Type{} when the variant carries no value
}

// FunctionType is the signature of a Function-kind Type.
type FunctionType struct {
	Params []Type
	Ret    Type
}

// Type is the tagged union of the language's primitive and composite types.
// Only the field matching Kind is meaningful.
type Type struct {
	Kind     Kind
	Elem     *Type             // Vector(T): element type
	Fields   map[string]Type   // Object(field -> T)
	Func     *FunctionType     // Function(params, ret)
	Class    *ClassHandle      // Class(handle)
	Enum     *EnumHandle       // Enum(handle)
}

func Primitive(k Kind) Type { return Type{Kind: k} }

func VectorOf(elem Type) Type {
	e := elem
	return Type{Kind: Vector, Elem: &e}
}

func ObjectOf(fields map[string]Type) Type {
	return Type{Kind: Object, Fields: fields}
}

func FuncOf(params []Type, ret Type) Type {
	return Type{Kind: Function, Func: &FunctionType{Params: params, Ret: ret}}
}

func ClassOf(h *ClassHandle) Type { return Type{Kind: Class, Class: h} }
func EnumOf(h *EnumHandle) Type   { return Type{Kind: Enum, Enum: h} }

func (t Type) String() string {
	switch t.Kind {
	case Nothing:
		return "nothing"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Vector:
		return fmt.Sprintf("[%s]", t.Elem.String())
	case Object:
		return "object"
	case Function:
		return "function"
	case Class:
		return "class " + t.Class.Name
	case Enum:
		return "enum " + t.Enum.Name
	case Unknown:
		return "unknown"
	}
	return "?"
}

// Compatible implements the checker's compatibility relation: the type
// relation the checker uses to decide whether a value of type a
// satisfies a demand for type b. It is NOT symmetric in general for
// Object (width/depth subtyping is one-directional: a's fields must
// be a superset of b's).
func Compatible(a, b Type) bool {
	if a.Kind == Unknown || b.Kind == Unknown {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case Nothing, Bool, Int, Float, String:
		return true
	case Vector:
		return Compatible(*a.Elem, *b.Elem)
	case Function:
		if len(a.Func.Params) != len(b.Func.Params) {
			return false
		}
		if !Compatible(a.Func.Ret, b.Func.Ret) {
			return false
		}
		for i := range a.Func.Params {
			if !Compatible(a.Func.Params[i], b.Func.Params[i]) {
				return false
			}
		}
		return true
	case Object:
		// a compatible with b iff every field b demands exists in a
		// with a compatible type (a ⊇ b, pointwise).
		for name, bt := range b.Fields {
			at, ok := a.Fields[name]
			if !ok || !Compatible(at, bt) {
				return false
			}
		}
		return true
	case Class:
		return a.Class == b.Class
	case Enum:
		return a.Enum == b.Enum
	}
	return false
}
