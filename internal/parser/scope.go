package parser

import (
	"github.com/portal-lang/portal/internal/module"
	"github.com/portal-lang/portal/internal/types"
)

// SymbolKind tags what a ModuleScope entry denotes: a module-global
// variable, function, class or enum.
type SymbolKind int

const (
	SymVar SymbolKind = iota
	SymFunc
	SymClass
	SymEnum
)

// Symbol is one module-global declaration visible to the parser,
// namespaced by the UID of the module that owns it, so every
// VariableRef node carries the UID of the module that declared the
// variable even when the referrer lives elsewhere.
type Symbol struct {
	Kind SymbolKind
	UID  module.UID
	Type types.Type
}

// ModuleScope is the module-level symbol table: the module's own
// declarations plus every (transitively, but flattened one level by
// the loader's dependency order) imported module's exported globals.
// It outlives any single ParserScope built on top of it.
type ModuleScope struct {
	UID     module.UID
	Symbols map[string]Symbol
}

func NewModuleScope(uid module.UID) *ModuleScope {
	return &ModuleScope{UID: uid, Symbols: map[string]Symbol{}}
}

func (m *ModuleScope) Declare(name string, sym Symbol) {
	m.Symbols[name] = sym
}

func (m *ModuleScope) Lookup(name string) (Symbol, bool) {
	s, ok := m.Symbols[name]
	return s, ok
}

// Import copies every symbol from other into m, namespaced by
// other's own UID (not m's) so field VariableRef.Module is correct
// regardless of which module re-exports the name.
func (m *ModuleScope) Import(other *ModuleScope) {
	for name, sym := range other.Symbols {
		if _, exists := m.Symbols[name]; !exists {
			m.Symbols[name] = sym
		}
	}
}

// ParserScope is the lexical (per-function/per-block) scope stack:
// an ordered list of name -> type bindings with a parent pointer;
// nearest binding wins.
type ParserScope struct {
	vars   map[string]types.Type
	parent *ParserScope
	module *ModuleScope
}

func NewParserScope(mod *ModuleScope) *ParserScope {
	return &ParserScope{vars: map[string]types.Type{}, module: mod}
}

func (s *ParserScope) Child() *ParserScope {
	return &ParserScope{vars: map[string]types.Type{}, parent: s, module: s.module}
}

func (s *ParserScope) Declare(name string, t types.Type) {
	s.vars[name] = t
}

// Lookup walks the lexical chain first, then falls back to the
// enclosing module's globals (own and imported).
func (s *ParserScope) Lookup(name string) (types.Type, module.UID, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return t, s.module.UID, true
		}
	}
	if sym, ok := s.module.Lookup(name); ok {
		return sym.Type, sym.UID, true
	}
	return types.Type{}, 0, false
}

func (s *ParserScope) ModuleScope() *ModuleScope { return s.module }

// LookupSymbol is like Lookup but also reports the SymbolKind, so the
// expression parser can tell a class/enum/function name apart from a
// plain variable before deciding how to parse what follows it.
func (s *ParserScope) LookupSymbol(name string) (Symbol, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.vars[name]; ok {
			return Symbol{Kind: SymVar, UID: s.module.UID, Type: t}, true
		}
	}
	return s.module.Lookup(name)
}
