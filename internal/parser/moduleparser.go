package parser

import (
	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/module"
	"github.com/portal-lang/portal/internal/token"
	"github.com/portal-lang/portal/internal/types"
)

// moduleParser turns one ParsableModule into a typed ast.Module. It
// is constructed fresh per module by the Loader, consuming pre-parsed
// modules in loader-dependency order, and is not reused.
type moduleParser struct {
	pm     *module.ParsableModule
	scope  *ModuleScope
	loader *Loader

	classes map[string]*types.ClassHandle
	enums   map[string]*types.EnumHandle
}

func newModuleParser(pm *module.ParsableModule, importScope *ModuleScope, loader *Loader) *moduleParser {
	return &moduleParser{
		pm:      pm,
		scope:   importScope,
		loader:  loader,
		classes: map[string]*types.ClassHandle{},
		enums:   map[string]*types.EnumHandle{},
	}
}

func (mp *moduleParser) resolveTypeName(name string) types.Type {
	switch name {
	case "int":
		return types.Primitive(types.Int)
	case "float":
		return types.Primitive(types.Float)
	case "string":
		return types.Primitive(types.String)
	case "bool":
		return types.Primitive(types.Bool)
	case "nothing", "":
		return types.Primitive(types.Nothing)
	}
	if h, ok := mp.classes[name]; ok {
		return types.ClassOf(h)
	}
	if h, ok := mp.enums[name]; ok {
		return types.EnumOf(h)
	}
	return types.Primitive(types.Unknown)
}

func (mp *moduleParser) funcTypeOf(params []module.ParamHeader, hasRet bool, retName string) *types.FunctionType {
	pts := make([]types.Type, len(params))
	for i, p := range params {
		pts[i] = mp.resolveTypeName(p.TypeName)
	}
	ret := types.Primitive(types.Nothing)
	if hasRet {
		ret = mp.resolveTypeName(retName)
	}
	return &types.FunctionType{Params: pts, Ret: ret}
}

// parseModule runs the full header-then-body two-phase parse and
// returns the frozen, typed module.
func (mp *moduleParser) parseModule(importUIDs []module.UID) (*ast.Module, error) {
	// Pass 1: placeholder handles for every Class/Enum, so mutually
	// referencing field/param/variant types resolve regardless of
	// declaration order.
	for _, d := range mp.pm.Declarations {
		switch d.Kind {
		case module.DeclClass:
			mp.classes[d.Class.Name] = &types.ClassHandle{Name: d.Class.Name}
		case module.DeclEnum:
			mp.enums[d.Enum.Name] = &types.EnumHandle{Name: d.Enum.Name}
		}
	}

	// Pass 2: fill handles, declare every global symbol so forward
	// references and mutual recursion work without reordering.
	for _, d := range mp.pm.Declarations {
		switch d.Kind {
		case module.DeclClass:
			mp.fillClassHandle(d.Class)
			mp.scope.Declare(d.Class.Name, Symbol{Kind: SymClass, UID: mp.pm.UID, Type: types.ClassOf(mp.classes[d.Class.Name])})
		case module.DeclEnum:
			mp.fillEnumHandle(d.Enum)
			mp.scope.Declare(d.Enum.Name, Symbol{Kind: SymEnum, UID: mp.pm.UID, Type: types.EnumOf(mp.enums[d.Enum.Name])})
		case module.DeclFunction:
			ft := mp.funcTypeOf(d.Function.Params, d.Function.HasRet, d.Function.RetType)
			mp.scope.Declare(d.Function.Name, Symbol{Kind: SymFunc, UID: mp.pm.UID, Type: types.FuncOf(ft.Params, ft.Ret)})
		case module.DeclVariable:
			t := types.Primitive(types.Unknown)
			if d.Variable.HasType {
				t = mp.resolveTypeName(d.Variable.TypeName)
			}
			mp.scope.Declare(d.Variable.Name, Symbol{Kind: SymVar, UID: mp.pm.UID, Type: t})
		}
	}

	mod := &ast.Module{UID: ast.UID(mp.pm.UID), Identifier: mp.pm.Identifier, Imports: toASTUIDs(importUIDs)}

	// Pass 3: parse bodies.
	for _, d := range mp.pm.Declarations {
		switch d.Kind {
		case module.DeclVariable:
			v, err := mp.parseVariable(d.Variable)
			if err != nil {
				return nil, err
			}
			mod.Variables = append(mod.Variables, v)
			mp.scope.Declare(d.Variable.Name, Symbol{Kind: SymVar, UID: mp.pm.UID, Type: v.EvalType()})
		case module.DeclFunction:
			fn, err := mp.parseFunction(d.Function, nil)
			if err != nil {
				return nil, err
			}
			mod.Functions = append(mod.Functions, fn)
		case module.DeclClass:
			methods, err := mp.parseClassMethods(d.Class)
			if err != nil {
				return nil, err
			}
			mod.Functions = append(mod.Functions, methods...)
		}
	}

	return mod, nil
}

func toASTUIDs(uids []module.UID) []ast.UID {
	out := make([]ast.UID, len(uids))
	for i, u := range uids {
		out[i] = ast.UID(u)
	}
	return out
}

func (mp *moduleParser) fillClassHandle(c *module.ClassHeader) {
	h := mp.classes[c.Name]
	h.Fields = map[string]types.Type{}
	for _, f := range c.Fields {
		h.Fields[f.Name] = mp.resolveTypeName(f.TypeName)
	}
	h.Methods = map[string]*types.FunctionType{}
	for _, m := range c.Methods {
		ft := mp.funcTypeOf(m.Params, m.HasRet, m.RetType)
		h.Methods[m.Name] = ft
		if m.Name == "new" {
			h.Ctor = ft
		}
	}
}

func (mp *moduleParser) fillEnumHandle(e *module.EnumHeader) {
	h := mp.enums[e.Name]
	for _, v := range e.Variants {
		payload := types.Primitive(types.Nothing)
		if v.HasPayload {
			payload = mp.resolveTypeName(v.PayloadType)
		}
		h.Variants = append(h.Variants, types.EnumVariant{Name: v.Name, Payload: payload})
	}
}

func (mp *moduleParser) parseVariable(h *module.VariableHeader) (*ast.VariableDecl, error) {
	toks := mp.pm.Tokens[h.Value.Start:h.Value.End]
	ep := newExprParser(toks, NewParserScope(mp.scope))
	val, err := ep.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := ep.expectEnd(); err != nil {
		return nil, err
	}
	t := val.EvalType()
	if h.HasType {
		declared := mp.resolveTypeName(h.TypeName)
		if !types.Compatible(val.EvalType(), declared) {
			return nil, &Error{Kind: ErrWrongType, Pos: val.Pos(), Expected: declared, Got: val.EvalType()}
		}
		t = declared
	}
	pos := token.Position{}
	if len(toks) > 0 {
		pos = toks[0].Pos()
	}
	return &ast.VariableDecl{
		Base:  ast.NewBase(pos, t),
		Name:  h.Name,
		Typed: h.HasType,
		Value: val,
	}, nil
}

func (mp *moduleParser) parseFunction(h *module.FunctionHeader, selfType *types.Type) (*ast.FunctionDecl, error) {
	toks := mp.pm.Tokens[h.Body.Start:h.Body.End]
	fnScope := NewParserScope(mp.scope)
	params := make([]string, len(h.Params))
	paramTypes := make([]types.Type, len(h.Params))
	for i, p := range h.Params {
		t := mp.resolveTypeName(p.TypeName)
		fnScope.Declare(p.Name, t)
		params[i] = p.Name
		paramTypes[i] = t
	}
	if selfType != nil {
		fnScope.Declare("self", *selfType)
	}
	ret := types.Primitive(types.Nothing)
	if h.HasRet {
		ret = mp.resolveTypeName(h.RetType)
	}
	sp := newStmtParser(toks, fnScope, ret)
	body, err := sp.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDecl{
		Name:   h.Name,
		Params: params,
		Sig:    &types.FunctionType{Params: paramTypes, Ret: ret},
		Body:   body,
	}, nil
}

// parseClassMethods parses every method body and returns them as
// ordinary FunctionDecls qualified "ClassName.method", the name the
// evaluator looks up when dispatching a method call: method access
// yields a Function value, and invoking it runs the body like any
// other function, with "self" bound in its scope.
func (mp *moduleParser) parseClassMethods(c *module.ClassHeader) ([]*ast.FunctionDecl, error) {
	h := mp.classes[c.Name]
	selfType := types.ClassOf(h)
	var out []*ast.FunctionDecl
	for _, m := range c.Methods {
		fn, err := mp.parseFunction(&m, &selfType)
		if err != nil {
			return nil, err
		}
		fn.Name = c.Name + "." + fn.Name
		fn.Class = h
		out = append(out, fn)
	}
	return out, nil
}
