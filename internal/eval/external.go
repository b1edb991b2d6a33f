package eval

import "github.com/portal-lang/portal/internal/ast"

// LoadExternal registers mod as an externally implemented definition
// module: each function header is bound in the module's global scope
// to the host handler of the same name, so cross-module references
// from script code resolve to an ExtFunctionValue and dispatch into
// the host instead of walking a portal body.
func (ev *Evaluator) LoadExternal(mod *ast.Module, handlers map[string]ExtHandler) error {
	env := &moduleEnv{uid: mod.UID, scope: NewScope(nil), funcs: map[string]*ast.FunctionDecl{}}
	for _, fn := range mod.Functions {
		h, found := handlers[fn.Name]
		if !found {
			return &Error{Kind: ErrVarNotFound, Name: fn.Name}
		}
		env.scope.Declare(fn.Name, ExtFunctionValue{Name: fn.Name, Handler: h})
	}
	ev.modules[mod.UID] = env
	return nil
}
