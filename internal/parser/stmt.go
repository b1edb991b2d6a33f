package parser

import (
	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/token"
	"github.com/portal-lang/portal/internal/types"
)

// stmtParser is the recursive-descent statement parser. It shares
// the exprParser's expression grammar by delegating to a nested
// exprParser instance over the same token slice and cursor.
type stmtParser struct {
	toks    []token.Token
	pos     int
	scope   *ParserScope
	retType types.Type
}

func newStmtParser(toks []token.Token, scope *ParserScope, retType types.Type) *stmtParser {
	return &stmtParser{toks: toks, scope: scope, retType: retType}
}

func (p *stmtParser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *stmtParser) cur() token.Token {
	if p.atEnd() {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *stmtParser) curPos() token.Position {
	if p.atEnd() {
		if len(p.toks) > 0 {
			return p.toks[len(p.toks)-1].Pos()
		}
		return token.Position{}
	}
	return p.cur().Pos()
}

func (p *stmtParser) at(k token.Kind) bool { return !p.atEnd() && p.toks[p.pos].Kind == k }

func (p *stmtParser) atOp(lit string) bool {
	if p.atEnd() {
		return false
	}
	t := p.toks[p.pos]
	return (t.Kind == token.Operator || t.Kind == token.MathOperator || t.Kind == token.BoolOperator) && t.Literal == lit
}

func (p *stmtParser) advance() token.Token {
	t := p.cur()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *stmtParser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		if p.atEnd() {
			return token.Token{}, &Error{Kind: ErrUnexpectedEndOfFile, Pos: p.curPos()}
		}
		return token.Token{}, &Error{Kind: ErrUnexpectedToken, Pos: p.curPos(), Token: p.cur().Kind.String()}
	}
	return p.advance(), nil
}

func (p *stmtParser) skipNewLines() {
	for p.at(token.NewLine) {
		p.pos++
	}
}

// parseExprHere runs an exprParser starting at the statement cursor's
// current position and syncs the cursor back afterward.
func (p *stmtParser) parseExprHere() (ast.Node, error) {
	ep := &exprParser{toks: p.toks, pos: p.pos, scope: p.scope}
	n, err := ep.parseExpr()
	p.pos = ep.pos
	return n, err
}

// parseBlock parses every statement in a token slice that is already
// the interior of an Indent..Dedent pair (snapshots exclude the
// Indent/Dedent bracket tokens themselves).
func (p *stmtParser) parseBlock() ([]ast.Node, error) {
	return p.parseStatements()
}

func (p *stmtParser) parseStatements() ([]ast.Node, error) {
	var stmts []ast.Node
	p.skipNewLines()
	for !p.atEnd() && !p.at(token.Dedent) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
		p.skipNewLines()
	}
	return stmts, nil
}

// parseIndentedBody consumes "NewLine Indent <stmts> Dedent" and
// returns the parsed statement list.
func (p *stmtParser) parseIndentedBody() ([]ast.Node, error) {
	if _, err := p.expect(token.NewLine); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Indent); err != nil {
		return nil, err
	}
	child := &stmtParser{toks: p.toks, pos: p.pos, scope: p.scope.Child(), retType: p.retType}
	body, err := child.parseStatements()
	if err != nil {
		return nil, err
	}
	p.pos = child.pos
	if _, err := p.expect(token.Dedent); err != nil {
		return nil, err
	}
	return body, nil
}

func (p *stmtParser) parseStatement() (ast.Node, error) {
	pos := p.curPos()
	switch p.cur().Kind {
	case token.KwVariable:
		return p.parseVariableDecl(pos)
	case token.KwIf:
		return p.parseIf(pos)
	case token.KwFor:
		return p.parseFor(pos)
	case token.KwWhile:
		return p.parseWhile(pos)
	case token.KwReturn:
		return p.parseReturn(pos, ast.JumpReturn)
	case token.KwBreak:
		return p.parseReturn(pos, ast.JumpBreak)
	default:
		return p.parseExprHere()
	}
}

func (p *stmtParser) parseVariableDecl(pos token.Position) (ast.Node, error) {
	p.advance() // var
	nameTok, err := p.expect(token.Symbol)
	if err != nil {
		return nil, err
	}
	typed := false
	var declared types.Type
	if p.atOp(":") {
		p.advance()
		typed = true
		t, err := p.parseTypeName()
		if err != nil {
			return nil, err
		}
		declared = t
	}
	if _, err := p.expectOp("="); err != nil {
		return nil, err
	}
	value, err := p.parseExprHere()
	if err != nil {
		return nil, err
	}
	t := value.EvalType()
	if typed {
		if !types.Compatible(value.EvalType(), declared) {
			return nil, &Error{Kind: ErrWrongType, Pos: pos, Expected: declared, Got: value.EvalType()}
		}
		t = declared
	}
	p.scope.Declare(nameTok.Literal, t)
	return &ast.VariableDecl{Base: ast.NewBase(pos, t), Name: nameTok.Literal, Typed: typed, Value: value}, nil
}

// parseTypeName accepts either a primitive TypeName token or a
// Symbol naming a previously declared class/enum.
func (p *stmtParser) parseTypeName() (types.Type, error) {
	if p.at(token.TypeName) {
		return primitiveByName(p.advance().Literal), nil
	}
	if p.at(token.Symbol) {
		name := p.advance().Literal
		if sym, ok := p.scope.LookupSymbol(name); ok && (sym.Kind == SymClass || sym.Kind == SymEnum) {
			return sym.Type, nil
		}
		return types.Primitive(types.Unknown), nil
	}
	return types.Type{}, &Error{Kind: ErrUnexpectedToken, Pos: p.curPos(), Token: p.cur().Kind.String()}
}

func (p *stmtParser) expectOp(lit string) (token.Token, error) {
	if p.atOp(lit) {
		return p.advance(), nil
	}
	if p.atEnd() {
		return token.Token{}, &Error{Kind: ErrUnexpectedEndOfFile, Pos: p.curPos()}
	}
	return token.Token{}, &Error{Kind: ErrUnexpectedToken, Pos: p.curPos(), Token: p.cur().Kind.String()}
}

func (p *stmtParser) parseIf(pos token.Position) (ast.Node, error) {
	p.advance() // if
	cond, err := p.parseExprHere()
	if err != nil {
		return nil, err
	}
	then, err := p.parseIndentedBody()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{Base: ast.NewBase(pos, types.Primitive(types.Nothing)), Cond: cond, Then: then}

	if p.at(token.KwElse) {
		p.advance()
		if p.at(token.KwIf) {
			elsePos := p.curPos()
			nested, err := p.parseIf(elsePos)
			if err != nil {
				return nil, err
			}
			stmt.ElseIf = nested.(*ast.IfStatement)
		} else {
			body, err := p.parseIndentedBody()
			if err != nil {
				return nil, err
			}
			stmt.ElseBody = body
		}
	}
	return stmt, nil
}

func (p *stmtParser) parseFor(pos token.Position) (ast.Node, error) {
	p.advance() // for
	nameTok, err := p.expect(token.Symbol)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwIn); err != nil {
		return nil, err
	}
	minExpr, err := p.parseExprHere()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectOp(".."); err != nil {
		return nil, err
	}
	maxExpr, err := p.parseExprHere()
	if err != nil {
		return nil, err
	}
	if minExpr.EvalType().Kind != types.Int && minExpr.EvalType().Kind != types.Unknown {
		return nil, &Error{Kind: ErrWrongType, Pos: pos, Expected: types.Primitive(types.Int), Got: minExpr.EvalType()}
	}
	if maxExpr.EvalType().Kind != types.Int && maxExpr.EvalType().Kind != types.Unknown {
		return nil, &Error{Kind: ErrWrongType, Pos: pos, Expected: types.Primitive(types.Int), Got: maxExpr.EvalType()}
	}

	if _, err := p.expect(token.NewLine); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Indent); err != nil {
		return nil, err
	}
	child := &stmtParser{toks: p.toks, pos: p.pos, scope: p.scope.Child(), retType: p.retType}
	child.scope.Declare(nameTok.Literal, types.Primitive(types.Int))
	body, err := child.parseStatements()
	if err != nil {
		return nil, err
	}
	p.pos = child.pos
	if _, err := p.expect(token.Dedent); err != nil {
		return nil, err
	}

	return &ast.ForStatement{
		Base:     ast.NewBase(pos, types.Primitive(types.Nothing)),
		IterName: nameTok.Literal,
		Min:      minExpr,
		Max:      maxExpr,
		Body:     body,
	}, nil
}

func (p *stmtParser) parseWhile(pos token.Position) (ast.Node, error) {
	p.advance() // while
	cond, err := p.parseExprHere()
	if err != nil {
		return nil, err
	}
	body, err := p.parseIndentedBody()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{Base: ast.NewBase(pos, types.Primitive(types.Nothing)), Cond: cond, Body: body}, nil
}

func (p *stmtParser) parseReturn(pos token.Position, kind ast.JumpKind) (ast.Node, error) {
	p.advance() // return | break
	var value ast.Node
	if !p.at(token.NewLine) && !p.at(token.Dedent) && !p.atEnd() {
		v, err := p.parseExprHere()
		if err != nil {
			return nil, err
		}
		value = v
	}
	t := types.Primitive(types.Nothing)
	if value != nil {
		t = value.EvalType()
	}
	if kind == ast.JumpReturn && value != nil && !types.Compatible(t, p.retType) {
		return nil, &Error{Kind: ErrWrongType, Pos: pos, Expected: p.retType, Got: t}
	}
	return &ast.ReturnStatement{Base: ast.NewBase(pos, t), Kind: kind, Value: value}, nil
}
