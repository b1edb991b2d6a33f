package parser

import (
	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/lexer"
	"github.com/portal-lang/portal/internal/module"
	"github.com/portal-lang/portal/internal/types"
)

type cacheState int

const (
	stateLoading cacheState = iota
	stateReady
)

type cacheEntry struct {
	state cacheState
	mod   *ast.Module
}

// Loader is the module loader: it owns the UID -> module
// cache, coordinates the tokenizer + pre-parser + parser over the
// import graph, and detects cycles via an in-cache "loading" sentinel
// rather than a separate visited set.
type Loader struct {
	cache  map[module.UID]*cacheEntry
	scopes map[module.UID]*ModuleScope
}

func NewLoader() *Loader {
	return &Loader{
		cache:  map[module.UID]*cacheEntry{},
		scopes: map[module.UID]*ModuleScope{},
	}
}

// InsertModule directly installs a pre-built module, used by hosts
// adding built-in/native modules.
func (l *Loader) InsertModule(mod *ast.Module) {
	l.cache[mod.UID] = &cacheEntry{state: stateReady, mod: mod}
	l.scopes[mod.UID] = buildModuleScope(mod)
}

func (l *Loader) GetModule(uid module.UID) (*ast.Module, bool) {
	e, ok := l.cache[uid]
	if !ok || e.state != stateReady {
		return nil, false
	}
	return e.mod, true
}

func (l *Loader) moduleScope(uid module.UID) *ModuleScope {
	return l.scopes[uid]
}

// Load resolves identifier through importer, returning the loaded
// module and the list of modules it transitively pulled in during
// this call; already-cached dependencies are not repeated, and a
// cache hit returns immediately with an empty dependency list.
func (l *Loader) Load(identifier string, importer module.Importer) (*ast.Module, []*ast.Module, error) {
	uid, ok := importer.GetUniqueIdentifier(identifier)
	if !ok {
		return nil, nil, &module.Error{Kind: module.ErrModuleNotFound, Identifier: identifier}
	}
	if e, ok := l.cache[uid]; ok {
		if e.state == stateLoading {
			return nil, nil, &module.Error{Kind: module.ErrCircularImport, Identifier: identifier}
		}
		return e.mod, nil, nil
	}

	source, ok := importer.LoadModule(identifier)
	if !ok {
		return nil, nil, &module.Error{Kind: module.ErrLoadModuleError, Identifier: identifier}
	}

	l.cache[uid] = &cacheEntry{state: stateLoading}

	tokens, err := lexer.Tokenize(source)
	if err != nil {
		delete(l.cache, uid)
		return nil, nil, err
	}
	pm, err := module.PreParse(identifier, uid, tokens, false)
	if err != nil {
		delete(l.cache, uid)
		return nil, nil, err
	}

	var deps []*ast.Module
	var importUIDs []module.UID
	importScope := NewModuleScope(uid)
	for _, path := range pm.Imports() {
		depUID, _ := importer.GetUniqueIdentifier(path)
		_, cached := l.cache[depUID]
		depMod, subDeps, err := l.Load(path, importer)
		if err != nil {
			delete(l.cache, uid)
			return nil, nil, err
		}
		deps = append(deps, subDeps...)
		if !cached {
			deps = append(deps, depMod)
		}
		importUIDs = append(importUIDs, depMod.UID)
		importScope.Import(l.moduleScope(depMod.UID))
	}

	mp := newModuleParser(pm, importScope, l)
	mod, err := mp.parseModule(importUIDs)
	if err != nil {
		delete(l.cache, uid)
		return nil, nil, err
	}

	l.cache[uid] = &cacheEntry{state: stateReady, mod: mod}
	l.scopes[uid] = mp.scope
	return mod, deps, nil
}

// buildModuleScope reconstructs a ModuleScope from an already-parsed
// AST module, used for modules inserted directly via InsertModule
// rather than loaded through the tokenizer/parser pipeline.
func buildModuleScope(mod *ast.Module) *ModuleScope {
	s := NewModuleScope(mod.UID)
	for _, fn := range mod.Functions {
		s.Declare(fn.Name, Symbol{Kind: SymFunc, UID: mod.UID, Type: types.FuncOf(fn.Sig.Params, fn.Sig.Ret)})
	}
	for _, v := range mod.Variables {
		s.Declare(v.Name, Symbol{Kind: SymVar, UID: mod.UID, Type: v.EvalType()})
	}
	return s
}
