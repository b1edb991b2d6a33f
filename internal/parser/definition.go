package parser

import (
	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/module"
)

// ParseDefinition turns a definition module (the header-only
// pre-parse variant) into a signature-only ast.Module: every declaration must be
// a function header and the resulting FunctionDecls carry no body.
// Hosts bind the headers to native handlers through
// engine.InsertExternalModule.
func ParseDefinition(pm *module.ParsableModule) (*ast.Module, error) {
	mp := newModuleParser(pm, NewModuleScope(pm.UID), nil)
	mod := &ast.Module{UID: ast.UID(pm.UID), Identifier: pm.Identifier}
	for _, d := range pm.Declarations {
		if d.Kind != module.DeclFunction {
			return nil, &Error{Kind: ErrUnexpectedError, Msg: "definition modules may only declare functions"}
		}
		h := d.Function
		ft := mp.funcTypeOf(h.Params, h.HasRet, h.RetType)
		params := make([]string, len(h.Params))
		for i, p := range h.Params {
			params[i] = p.Name
		}
		mod.Functions = append(mod.Functions, &ast.FunctionDecl{Name: h.Name, Params: params, Sig: ft})
	}
	return mod, nil
}
