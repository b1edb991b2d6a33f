package module

import (
	"fmt"

	"github.com/portal-lang/portal/internal/token"
)

// Snapshot is a token-span delimiting a body to be parsed later: a
// pair of indices into the shared ParsableModule.Tokens slice. The
// parser advances an independent cursor over the slice instead of
// copying tokens out of it.
type Snapshot struct {
	Start, End int
}

// ParamHeader is one declared parameter's name and type spelling, as
// scanned from source text (not yet resolved to a types.Type — that
// happens in internal/parser once every imported module's globals are
// visible).
type ParamHeader struct {
	Name     string
	TypeName string
}

// VariableHeader is a pre-scanned `var name[: T] = expr` declaration.
type VariableHeader struct {
	Name     string
	TypeName string // "" if untyped
	HasType  bool
	Value    Snapshot // spans up to, not including, the terminating NewLine
}

// FunctionHeader is a pre-scanned `func name(params): ret` signature.
type FunctionHeader struct {
	Name    string
	Params  []ParamHeader
	RetType string // "" (Nothing) if no return type was written
	HasRet  bool
	Body    Snapshot // spans the Indent..Dedent body, exclusive of both
}

// FieldHeader is a pre-scanned class field declaration.
type FieldHeader struct {
	Name     string
	TypeName string
}

// ClassHeader is a pre-scanned class declaration: its fields and
// method signatures (bodies snapshotted, not yet parsed).
type ClassHeader struct {
	Name    string
	Fields  []FieldHeader
	Methods []FunctionHeader
}

// EnumVariantHeader is one pre-scanned enum variant, optionally
// carrying a payload type.
type EnumVariantHeader struct {
	Name        string
	PayloadType string
	HasPayload  bool
}

// EnumHeader is a pre-scanned enum declaration.
type EnumHeader struct {
	Name     string
	Variants []EnumVariantHeader
}

// DeclKind tags which field of Declaration is populated.
type DeclKind int

const (
	DeclImport DeclKind = iota
	DeclVariable
	DeclFunction
	DeclClass
	DeclEnum
)

// Declaration is one top-level header the pre-parser recorded.
type Declaration struct {
	Kind     DeclKind
	Import   *ImportHeader
	Variable *VariableHeader
	Function *FunctionHeader
	Class    *ClassHeader
	Enum     *EnumHeader
}

// ImportHeader records an `import "path"` statement for the loader.
type ImportHeader struct {
	Path string
}

// ParsableModule is the pre-parser's output: tokens, imports and
// declaration headers. Definition is true for the definition-module
// variant: header-only, used when a host injects externally
// implemented functions; `var` is illegal in it.
type ParsableModule struct {
	Identifier   string
	UID          UID
	Tokens       []token.Token
	Declarations []Declaration
	Definition   bool
}

// Imports extracts the raw import path strings, in source order, for
// the loader to resolve and recursively pre-parse.
func (m *ParsableModule) Imports() []string {
	var out []string
	for _, d := range m.Declarations {
		if d.Kind == DeclImport {
			out = append(out, d.Import.Path)
		}
	}
	return out
}

// PreParseError is a malformed top-level declaration header. It is
// reported with the same position machinery as every other family;
// the loader returns it unchanged, with its source position.
type PreParseError struct {
	Msg string
	Pos token.Position
}

func (e *PreParseError) Error() string {
	return fmt.Sprintf("%s at %s", e.Msg, e.Pos)
}

// Position implements the shared errors.Positioned interface.
func (e *PreParseError) Position() token.Position { return e.Pos }

// PreParse scans tokens for top-level declaration headers without
// parsing expression bodies. definition selects the
// definition-module variant.
func PreParse(identifier string, uid UID, tokens []token.Token, definition bool) (*ParsableModule, error) {
	p := &preparser{toks: tokens}
	mod := &ParsableModule{Identifier: identifier, UID: uid, Tokens: tokens, Definition: definition}

	for !p.atEnd() {
		switch {
		case p.at(token.NewLine):
			p.pos++
		case p.at(token.KwImport):
			d, err := p.scanImport()
			if err != nil {
				return nil, err
			}
			mod.Declarations = append(mod.Declarations, d)
		case p.at(token.KwVariable):
			if definition {
				return nil, &PreParseError{Msg: "var is not allowed in a definition module", Pos: p.cur().Pos()}
			}
			d, err := p.scanVariable()
			if err != nil {
				return nil, err
			}
			mod.Declarations = append(mod.Declarations, d)
		case p.at(token.KwFunction):
			d, err := p.scanFunction(definition)
			if err != nil {
				return nil, err
			}
			mod.Declarations = append(mod.Declarations, d)
		case p.at(token.KwClass):
			d, err := p.scanClass()
			if err != nil {
				return nil, err
			}
			mod.Declarations = append(mod.Declarations, d)
		case p.at(token.KwEnum):
			d, err := p.scanEnum()
			if err != nil {
				return nil, err
			}
			mod.Declarations = append(mod.Declarations, d)
		default:
			return nil, &PreParseError{Msg: fmt.Sprintf("unexpected token %s at module top level", p.cur().Kind), Pos: p.cur().Pos()}
		}
	}
	return mod, nil
}

type preparser struct {
	toks []token.Token
	pos  int
}

func (p *preparser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *preparser) cur() token.Token {
	if p.atEnd() {
		if len(p.toks) == 0 {
			return token.Token{Kind: token.EOF}
		}
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos]
}

func (p *preparser) at(k token.Kind) bool { return !p.atEnd() && p.toks[p.pos].Kind == k }

func (p *preparser) advance() token.Token {
	t := p.cur()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *preparser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, &PreParseError{
			Msg: fmt.Sprintf("expected %s, got %s", k, p.cur().Kind),
			Pos: p.cur().Pos(),
		}
	}
	return p.advance(), nil
}

// skipToNewLine advances past tokens up to and including the next
// NewLine, or to EOF — used to resynchronize after a single-line header.
func (p *preparser) skipToNewLine() {
	for !p.atEnd() && !p.at(token.NewLine) {
		p.pos++
	}
	if p.at(token.NewLine) {
		p.pos++
	}
}

// skipBlock advances past one Indent..Dedent block, recording its
// interior as a Snapshot (exclusive of the Indent/Dedent tokens
// themselves), honoring nested Indent/Dedent via a depth counter.
func (p *preparser) skipBlock() (Snapshot, error) {
	if _, err := p.expect(token.NewLine); err != nil {
		return Snapshot{}, err
	}
	if _, err := p.expect(token.Indent); err != nil {
		return Snapshot{}, err
	}
	start := p.pos
	depth := 1
	for {
		if p.atEnd() {
			return Snapshot{}, &PreParseError{Msg: "unexpected end of file inside block", Pos: p.cur().Pos()}
		}
		switch p.toks[p.pos].Kind {
		case token.Indent:
			depth++
		case token.Dedent:
			depth--
			if depth == 0 {
				end := p.pos
				p.pos++ // consume the matching Dedent
				return Snapshot{Start: start, End: end}, nil
			}
		}
		p.pos++
	}
}

func (p *preparser) scanImport() (Declaration, error) {
	p.advance() // KwImport
	lit, err := p.expect(token.LiteralString)
	if err != nil {
		return Declaration{}, err
	}
	p.skipToNewLine()
	return Declaration{Kind: DeclImport, Import: &ImportHeader{Path: lit.Literal}}, nil
}

func (p *preparser) scanType() (string, error) {
	t := p.cur()
	if t.Kind == token.TypeName || t.Kind == token.Symbol {
		p.advance()
		return t.Literal, nil
	}
	return "", &PreParseError{Msg: "expected a type name", Pos: t.Pos()}
}

func (p *preparser) scanVariable() (Declaration, error) {
	p.advance() // KwVariable
	name, err := p.expect(token.Symbol)
	if err != nil {
		return Declaration{}, err
	}
	h := &VariableHeader{Name: name.Literal}
	if p.at(token.Operator) && p.cur().Literal == ":" {
		p.advance()
		typ, err := p.scanType()
		if err != nil {
			return Declaration{}, err
		}
		h.HasType, h.TypeName = true, typ
	}
	if _, err := p.expectOperator("="); err != nil {
		return Declaration{}, err
	}
	start := p.pos
	for !p.atEnd() && !p.at(token.NewLine) {
		p.pos++
	}
	h.Value = Snapshot{Start: start, End: p.pos}
	p.skipToNewLine()
	return Declaration{Kind: DeclVariable, Variable: h}, nil
}

func (p *preparser) expectOperator(lit string) (token.Token, error) {
	if (p.at(token.Operator) || p.at(token.MathOperator) || p.at(token.BoolOperator)) && p.cur().Literal == lit {
		return p.advance(), nil
	}
	return token.Token{}, &PreParseError{Msg: fmt.Sprintf("expected %q", lit), Pos: p.cur().Pos()}
}

func (p *preparser) scanParamList() ([]ParamHeader, error) {
	if _, err := p.expect(token.ParenOpen); err != nil {
		return nil, err
	}
	var params []ParamHeader
	for !p.at(token.ParenClose) {
		name, err := p.expect(token.Symbol)
		if err != nil {
			return nil, err
		}
		ph := ParamHeader{Name: name.Literal}
		if _, err := p.expectOperator(":"); err != nil {
			return nil, err
		}
		typ, err := p.scanType()
		if err != nil {
			return nil, err
		}
		ph.TypeName = typ
		params = append(params, ph)
		if p.at(token.Operator) && p.cur().Literal == "," {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.ParenClose); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *preparser) scanFunctionSignature() (FunctionHeader, error) {
	name, err := p.expect(token.Symbol)
	if err != nil {
		return FunctionHeader{}, err
	}
	h := FunctionHeader{Name: name.Literal}
	params, err := p.scanParamList()
	if err != nil {
		return FunctionHeader{}, err
	}
	h.Params = params
	if p.at(token.Operator) && p.cur().Literal == ":" {
		p.advance()
		typ, err := p.scanType()
		if err != nil {
			return FunctionHeader{}, err
		}
		h.HasRet, h.RetType = true, typ
	}
	return h, nil
}

func (p *preparser) scanFunction(definitionModule bool) (Declaration, error) {
	p.advance() // KwFunction
	h, err := p.scanFunctionSignature()
	if err != nil {
		return Declaration{}, err
	}
	if definitionModule {
		// Header only: no body to snapshot.
		p.skipToNewLine()
		return Declaration{Kind: DeclFunction, Function: &h}, nil
	}
	snap, err := p.skipBlock()
	if err != nil {
		return Declaration{}, err
	}
	h.Body = snap
	return Declaration{Kind: DeclFunction, Function: &h}, nil
}

func (p *preparser) scanClass() (Declaration, error) {
	p.advance() // KwClass
	name, err := p.expect(token.Symbol)
	if err != nil {
		return Declaration{}, err
	}
	if _, err := p.expect(token.NewLine); err != nil {
		return Declaration{}, err
	}
	if _, err := p.expect(token.Indent); err != nil {
		return Declaration{}, err
	}
	h := &ClassHeader{Name: name.Literal}
	for !p.at(token.Dedent) {
		switch {
		case p.at(token.NewLine):
			p.pos++
		case p.at(token.KwVariable):
			p.advance()
			fname, err := p.expect(token.Symbol)
			if err != nil {
				return Declaration{}, err
			}
			if _, err := p.expectOperator(":"); err != nil {
				return Declaration{}, err
			}
			typ, err := p.scanType()
			if err != nil {
				return Declaration{}, err
			}
			p.skipToNewLine()
			h.Fields = append(h.Fields, FieldHeader{Name: fname.Literal, TypeName: typ})
		case p.at(token.KwFunction):
			p.advance()
			mh, err := p.scanFunctionSignature()
			if err != nil {
				return Declaration{}, err
			}
			snap, err := p.skipBlock()
			if err != nil {
				return Declaration{}, err
			}
			mh.Body = snap
			h.Methods = append(h.Methods, mh)
		default:
			return Declaration{}, &PreParseError{Msg: "expected a field or method declaration", Pos: p.cur().Pos()}
		}
	}
	p.advance() // Dedent
	return Declaration{Kind: DeclClass, Class: h}, nil
}

func (p *preparser) scanEnum() (Declaration, error) {
	p.advance() // KwEnum
	name, err := p.expect(token.Symbol)
	if err != nil {
		return Declaration{}, err
	}
	if _, err := p.expect(token.NewLine); err != nil {
		return Declaration{}, err
	}
	if _, err := p.expect(token.Indent); err != nil {
		return Declaration{}, err
	}
	h := &EnumHeader{Name: name.Literal}
	for !p.at(token.Dedent) {
		if p.at(token.NewLine) {
			p.pos++
			continue
		}
		vname, err := p.expect(token.Symbol)
		if err != nil {
			return Declaration{}, err
		}
		v := EnumVariantHeader{Name: vname.Literal}
		if p.at(token.ParenOpen) {
			p.advance()
			typ, err := p.scanType()
			if err != nil {
				return Declaration{}, err
			}
			if _, err := p.expect(token.ParenClose); err != nil {
				return Declaration{}, err
			}
			v.HasPayload, v.PayloadType = true, typ
		}
		h.Variants = append(h.Variants, v)
		p.skipToNewLine()
	}
	p.advance() // Dedent
	return Declaration{Kind: DeclEnum, Enum: h}, nil
}
