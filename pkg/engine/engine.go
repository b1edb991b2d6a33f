// Package engine is the single façade a host embeds: load source
// through a module.Importer, then either run it on the tree-walking
// evaluator or lower it to a WASM module.
package engine

import (
	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/eval"
	"github.com/portal-lang/portal/internal/module"
	"github.com/portal-lang/portal/internal/parser"
	"github.com/portal-lang/portal/internal/wasm"
)

// Engine owns the module cache, the evaluator's runtime state, and
// tracks which modules have already had their top-level declarations
// evaluated (a module reachable from two import paths must only run
// its VariableDecls once).
type Engine struct {
	loader *parser.Loader
	runner *eval.Evaluator
	loaded map[ast.UID]bool
}

func New() *Engine {
	return &Engine{
		loader: parser.NewLoader(),
		runner: eval.NewEvaluator(),
		loaded: map[ast.UID]bool{},
	}
}

// InsertModule installs a pre-built module (a host-native module with
// no portal source of its own) and runs its top-level declarations so
// later imports see its exports.
func (e *Engine) InsertModule(mod *ast.Module) error {
	e.loader.InsertModule(mod)
	return e.load(mod)
}

// LoadModule resolves identifier through importer: parsing it and
// every transitive import not already cached, then evaluating each
// newly loaded module's top-level declarations in dependency order.
// Returns the loaded module's UID.
func (e *Engine) LoadModule(identifier string, importer module.Importer) (ast.UID, error) {
	mod, deps, err := e.loader.Load(identifier, importer)
	if err != nil {
		return 0, err
	}
	for _, dep := range deps {
		if err := e.load(dep); err != nil {
			return 0, err
		}
	}
	if err := e.load(mod); err != nil {
		return 0, err
	}
	return mod.UID, nil
}

func (e *Engine) load(mod *ast.Module) error {
	if e.loaded[mod.UID] {
		return nil
	}
	if err := e.runner.Load(mod); err != nil {
		return err
	}
	e.loaded[mod.UID] = true
	return nil
}

// Call invokes the named top-level function of the module identified
// by uid with already-converted runtime values, returning its result.
func (e *Engine) Call(uid ast.UID, name string, args ...eval.Value) (eval.Value, error) {
	return e.runner.Call(uid, name, args)
}

// Callable is returned by GetFunction: calling it runs the bound
// zero-argument function again.
type Callable func() (eval.Value, error)

// GetFunction resolves a zero-argument top-level function of the
// module named by uid,
// returned as a closure hosts can invoke repeatedly. ok is false if
// uid is unknown or carries no such function.
func (e *Engine) GetFunction(uid ast.UID, name string) (fn Callable, ok bool) {
	mod, found := e.loader.GetModule(module.UID(uid))
	if !found {
		return nil, false
	}
	for _, f := range mod.Functions {
		if f.Name == name {
			return func() (eval.Value, error) { return e.runner.Call(uid, name, nil) }, true
		}
	}
	return nil, false
}

// ExportedFunctionNames lists the names of uid's top-level functions,
// excluding class methods (whose qualified "Class.method" names are
// not directly callable entry points).
func (e *Engine) ExportedFunctionNames(uid ast.UID) []string {
	mod, ok := e.loader.GetModule(module.UID(uid))
	if !ok {
		return nil
	}
	var names []string
	for _, fn := range mod.Functions {
		if fn.Class == nil {
			names = append(names, fn.Name)
		}
	}
	return names
}

// ModuleSummary returns the loaded ast.Module for uid, for --verbose
// diagnostic dumps; nil if uid is unknown.
func (e *Engine) ModuleSummary(uid ast.UID) *ast.Module {
	mod, _ := e.loader.GetModule(module.UID(uid))
	return mod
}

// BuildModuleSource lowers the module identified by uid to a WASM
// module binary. Only valid once the module has been
// loaded via LoadModule/InsertModule.
func (e *Engine) BuildModuleSource(uid ast.UID) ([]byte, error) {
	mod, ok := e.loader.GetModule(module.UID(uid))
	if !ok {
		return nil, &module.Error{Kind: module.ErrModuleNotFound}
	}
	return wasm.Build(mod)
}
