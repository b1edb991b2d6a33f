// Package eval is the tree-walking evaluator: it runs a typed
// ast.Module by walking its AST directly, without a separate
// compilation step (cf. internal/wasm, the other backend).
package eval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/types"
)

// Value is the tagged sum of the runtime value kinds. Every concrete
// type below implements it as a small per-kind struct with
// Type()/String(), rather than a Go interface{} grab-bag.
type Value interface {
	Type() string
	String() string
}

// NothingValue is the sole inhabitant of the Nothing type.
type NothingValue struct{}

func (NothingValue) Type() string   { return "NOTHING" }
func (NothingValue) String() string { return "nothing" }

type BoolValue struct{ Value bool }

func (BoolValue) Type() string { return "BOOL" }
func (b BoolValue) String() string {
	if b.Value {
		return "true"
	}
	return "false"
}

type IntValue struct{ Value int32 }

func (IntValue) Type() string     { return "INT" }
func (i IntValue) String() string { return strconv.FormatInt(int64(i.Value), 10) }

type FloatValue struct{ Value float32 }

func (FloatValue) Type() string     { return "FLOAT" }
func (f FloatValue) String() string { return strconv.FormatFloat(float64(f.Value), 'g', -1, 32) }

type StringValue struct{ Value string }

func (StringValue) Type() string     { return "STRING" }
func (s StringValue) String() string { return s.Value }

// VectorValue wraps a shared slice: runtime Vector/Object values are
// shared by reference. The pointer-to-slice indirection is what lets
// element assignment through one alias be visible to every other
// holder.
type VectorValue struct{ Elems *[]Value }

func NewVector(elems []Value) VectorValue {
	return VectorValue{Elems: &elems}
}

func (VectorValue) Type() string { return "VECTOR" }
func (v VectorValue) String() string {
	parts := make([]string, len(*v.Elems))
	for i, e := range *v.Elems {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ObjectValue wraps a shared field map with the same aliasing
// semantics as VectorValue. Handle is non-nil for values constructed
// via ConstructClass, used to dispatch method field access.
type ObjectValue struct {
	Fields *map[string]Value
	Handle *types.ClassHandle
}

func NewObject(fields map[string]Value) ObjectValue {
	return ObjectValue{Fields: &fields}
}

func (ObjectValue) Type() string { return "OBJECT" }
func (o ObjectValue) String() string {
	parts := make([]string, 0, len(*o.Fields))
	for k, v := range *o.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.String()))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// FunctionValue is a callable module function or class method. Self
// is non-nil when this value came from a method field access (a bound
// method), and is bound to the name "self" in the call's fresh scope.
type FunctionValue struct {
	Decl      *ast.FunctionDecl
	ModuleUID ast.UID
	Self      Value
}

func (FunctionValue) Type() string { return "FUNCTION" }
func (f FunctionValue) String() string {
	return fmt.Sprintf("<function %s>", f.Decl.Name)
}

// ExtHandler is a host-implemented function backing an ExtFunction
// value: a definition-module function with no portal-source body.
type ExtHandler func(args []Value) (Value, error)

type ExtFunctionValue struct {
	Name    string
	Handler ExtHandler
}

func (ExtFunctionValue) Type() string     { return "EXT_FUNCTION" }
func (e ExtFunctionValue) String() string { return fmt.Sprintf("<ext function %s>", e.Name) }

// EnumValue tags a constructed enum variant plus its optional payload.
type EnumValue struct {
	EnumName string
	Variant  string
	Payload  Value // nil if the variant carries no payload
}

func (EnumValue) Type() string { return "ENUM" }
func (e EnumValue) String() string {
	if e.Payload != nil {
		return fmt.Sprintf("%s.%s(%s)", e.EnumName, e.Variant, e.Payload.String())
	}
	return fmt.Sprintf("%s.%s", e.EnumName, e.Variant)
}

// Truthy implements the language's truthiness table: false, 0, 0.0,
// the empty string, the empty vector and nothing are falsy.
func Truthy(v Value) bool {
	switch t := v.(type) {
	case BoolValue:
		return t.Value
	case IntValue:
		return t.Value != 0
	case FloatValue:
		return t.Value != 0
	case StringValue:
		return t.Value != ""
	case VectorValue:
		return len(*t.Elems) != 0
	case NothingValue:
		return false
	default:
		return true
	}
}
