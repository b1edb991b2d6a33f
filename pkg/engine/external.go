package engine

import (
	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/eval"
	"github.com/portal-lang/portal/internal/lexer"
	"github.com/portal-lang/portal/internal/module"
	"github.com/portal-lang/portal/internal/parser"
)

// InsertExternalModule parses source as a definition module — function
// headers only, no bodies — and binds each header to the
// host handler of the same name.
// Scripts that import identifier call the handlers as if they had
// portal bodies. Every declared header must have a handler.
func (e *Engine) InsertExternalModule(identifier, source string, handlers map[string]eval.ExtHandler) (ast.UID, error) {
	uid := module.DeriveUID(identifier)
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return 0, err
	}
	pm, err := module.PreParse(identifier, uid, tokens, true)
	if err != nil {
		return 0, err
	}
	mod, err := parser.ParseDefinition(pm)
	if err != nil {
		return 0, err
	}
	e.loader.InsertModule(mod)
	if err := e.runner.LoadExternal(mod, handlers); err != nil {
		return 0, err
	}
	e.loaded[mod.UID] = true
	return mod.UID, nil
}

// FromValue converts a runtime value into the host type R. Supported
// targets are the primitive host equivalents plus eval.Value itself
// for hosts that want the raw value.
func FromValue[R any](v eval.Value) (R, error) {
	var out R
	switch p := any(&out).(type) {
	case *eval.Value:
		*p = v
	case *bool:
		b, ok := v.(eval.BoolValue)
		if !ok {
			return out, &eval.Error{Kind: eval.ErrCantConvertValue}
		}
		*p = b.Value
	case *int32:
		i, ok := v.(eval.IntValue)
		if !ok {
			return out, &eval.Error{Kind: eval.ErrCantConvertValue}
		}
		*p = i.Value
	case *int:
		i, ok := v.(eval.IntValue)
		if !ok {
			return out, &eval.Error{Kind: eval.ErrCantConvertValue}
		}
		*p = int(i.Value)
	case *float32:
		f, ok := v.(eval.FloatValue)
		if !ok {
			return out, &eval.Error{Kind: eval.ErrCantConvertValue}
		}
		*p = f.Value
	case *float64:
		f, ok := v.(eval.FloatValue)
		if !ok {
			return out, &eval.Error{Kind: eval.ErrCantConvertValue}
		}
		*p = float64(f.Value)
	case *string:
		s, ok := v.(eval.StringValue)
		if !ok {
			return out, &eval.Error{Kind: eval.ErrCantConvertValue}
		}
		*p = s.Value
	default:
		return out, &eval.Error{Kind: eval.ErrCantConvertValue}
	}
	return out, nil
}

// GetTypedFunction is GetFunction plus host-type conversion: the
// returned closure runs the bound zero-argument function and converts
// its result to R, failing with ErrCantConvertValue on a kind
// mismatch.
func GetTypedFunction[R any](e *Engine, uid ast.UID, name string) (func() (R, error), bool) {
	call, ok := e.GetFunction(uid, name)
	if !ok {
		return nil, false
	}
	return func() (R, error) {
		v, err := call()
		if err != nil {
			var zero R
			return zero, err
		}
		return FromValue[R](v)
	}, true
}
