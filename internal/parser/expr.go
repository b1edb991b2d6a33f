package parser

import (
	"strconv"

	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/token"
	"github.com/portal-lang/portal/internal/types"
)

// exprParser parses one expression over an independent cursor into a
// token slice, advancing its own cursor over the shared slice rather
// than copying tokens out of it.
//
// Precedence is flat by construction: parsePrimary produces a left
// operand, then the infix loop below folds any run of infix operators
// strictly left-to-right with no precedence climbing, so `2 + 3 * 4`
// evaluates as `(2 + 3) * 4 = 20`, not 14. Index, call and field
// access bind to the operand they follow, so `v[0] + v[1]` adds two
// elements.
type exprParser struct {
	toks  []token.Token
	pos   int
	scope *ParserScope
}

func newExprParser(toks []token.Token, scope *ParserScope) *exprParser {
	return &exprParser{toks: toks, scope: scope}
}

func (p *exprParser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *exprParser) cur() token.Token {
	if p.atEnd() {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *exprParser) curPos() token.Position {
	if p.atEnd() {
		if len(p.toks) > 0 {
			return p.toks[len(p.toks)-1].Pos()
		}
		return token.Position{}
	}
	return p.cur().Pos()
}

func (p *exprParser) at(k token.Kind) bool { return !p.atEnd() && p.toks[p.pos].Kind == k }

func (p *exprParser) atOp(lit string) bool {
	if p.atEnd() {
		return false
	}
	t := p.toks[p.pos]
	return (t.Kind == token.Operator || t.Kind == token.MathOperator || t.Kind == token.BoolOperator) && t.Literal == lit
}

func (p *exprParser) advance() token.Token {
	t := p.cur()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *exprParser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		if p.atEnd() {
			return token.Token{}, &Error{Kind: ErrUnexpectedEndOfFile, Pos: p.curPos()}
		}
		return token.Token{}, &Error{Kind: ErrUnexpectedToken, Pos: p.curPos(), Token: p.cur().Kind.String()}
	}
	return p.advance(), nil
}

// expectEnd reports an error if unconsumed tokens remain (used after
// parsing a variable initializer snapshot, which should be exactly
// one expression).
func (p *exprParser) expectEnd() error {
	if !p.atEnd() {
		return &Error{Kind: ErrUnexpectedToken, Pos: p.curPos(), Token: p.cur().Kind.String()}
	}
	return nil
}

func (p *exprParser) parseArgList() ([]ast.Node, error) {
	if _, err := p.expect(token.ParenOpen); err != nil {
		return nil, err
	}
	var args []ast.Node
	for !p.at(token.ParenClose) {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.ParenClose); err != nil {
		return nil, err
	}
	return args, nil
}

// parseExpr parses one primary operand followed by the flat infix
// loop.
func (p *exprParser) parseExpr() (ast.Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parseInfix(left, false)
}

// parseInfix runs the infix loop over left. With postfixOnly set it
// applies only index, call and field access, which is how the right
// operand of a math or boolean operator is completed.
func (p *exprParser) parseInfix(left ast.Node, postfixOnly bool) (ast.Node, error) {
	for {
		pos := p.curPos()
		if postfixOnly && !p.at(token.BracketOpen) && !p.at(token.ParenOpen) && !p.atOp(".") {
			return left, nil
		}
		switch {
		case p.at(token.MathOperator):
			opTok := p.advance()
			right, err := p.parsePrimary()
			if err == nil {
				right, err = p.parseInfix(right, true)
			}
			if err != nil {
				return nil, err
			}
			left, err = mathOperation(pos, left, opTok.Literal, right)
			if err != nil {
				return nil, err
			}

		case p.at(token.BoolOperator):
			opTok := p.advance()
			right, err := p.parsePrimary()
			if err == nil {
				right, err = p.parseInfix(right, true)
			}
			if err != nil {
				return nil, err
			}
			left = &ast.BoolOperation{Base: ast.NewBase(pos, types.Primitive(types.Bool)), Lit: opTok.Literal, Left: left, Right: right}

		case p.at(token.BracketOpen):
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.BracketClose); err != nil {
				return nil, err
			}
			vt := left.EvalType()
			if vt.Kind != types.Vector && vt.Kind != types.Unknown {
				return nil, &Error{Kind: ErrNotIndexable, Pos: pos}
			}
			elem := types.Primitive(types.Unknown)
			if vt.Kind == types.Vector {
				elem = *vt.Elem
			}
			left = &ast.VectorIndex{Base: ast.NewBase(pos, elem), Vector: left, Index: idx}

		case p.at(token.ParenOpen):
			args, err := p.parseArgList()
			if err != nil {
				return nil, err
			}
			ft := left.EvalType()
			if ft.Kind != types.Function && ft.Kind != types.Unknown {
				return nil, &Error{Kind: ErrNotCallable, Pos: pos}
			}
			ret := types.Primitive(types.Unknown)
			if ft.Kind == types.Function {
				if len(args) != len(ft.Func.Params) {
					return nil, &Error{Kind: ErrInvalidArgCount, Pos: pos}
				}
				for i, a := range args {
					if !types.Compatible(a.EvalType(), ft.Func.Params[i]) {
						return nil, &Error{Kind: ErrWrongType, Pos: a.Pos(), Expected: ft.Func.Params[i], Got: a.EvalType()}
					}
				}
				ret = ft.Func.Ret
			}
			left = &ast.FunctionInvok{Base: ast.NewBase(pos, ret), Callee: left, Args: args}

		case p.atOp("."):
			p.advance()
			nameTok, err := p.expect(token.Symbol)
			if err != nil {
				return nil, err
			}
			left, err = p.fieldAccess(pos, left, nameTok.Literal)
			if err != nil {
				return nil, err
			}

		case p.atOp("="):
			p.advance()
			value, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			left, err = p.assignment(pos, left, value)
			if err != nil {
				return nil, err
			}

		default:
			return left, nil
		}
	}
}

func mathOperation(pos token.Position, left ast.Node, lit string, right ast.Node) (ast.Node, error) {
	lt, rt := left.EvalType(), right.EvalType()
	var result types.Type
	switch {
	case lt.Kind == types.Unknown || rt.Kind == types.Unknown:
		result = types.Primitive(types.Unknown)
	case lt.Kind == types.Int && rt.Kind == types.Int:
		result = types.Primitive(types.Int)
	case (lt.Kind == types.Int || lt.Kind == types.Float) && (rt.Kind == types.Int || rt.Kind == types.Float):
		result = types.Primitive(types.Float)
	case lt.Kind == types.String && rt.Kind == types.String && lit == "+":
		result = types.Primitive(types.String)
	default:
		return nil, &Error{Kind: ErrWrongType, Pos: pos, Expected: lt, Got: rt}
	}
	return &ast.MathOperation{Base: ast.NewBase(pos, result), Lit: lit, Left: left, Right: right}, nil
}

func (p *exprParser) fieldAccess(pos token.Position, obj ast.Node, name string) (ast.Node, error) {
	ot := obj.EvalType()
	switch ot.Kind {
	case types.Object:
		t, ok := ot.Fields[name]
		if !ok {
			t = types.Primitive(types.Nothing)
		}
		return &ast.FieldAccess{Base: ast.NewBase(pos, t), Object: obj, Field: name}, nil
	case types.Class:
		if t, ok := ot.Class.Fields[name]; ok {
			return &ast.FieldAccess{Base: ast.NewBase(pos, t), Object: obj, Field: name}, nil
		}
		if m, ok := ot.Class.Methods[name]; ok {
			return &ast.FieldAccess{Base: ast.NewBase(pos, types.FuncOf(m.Params, m.Ret)), Object: obj, Field: name}, nil
		}
		return nil, &Error{Kind: ErrFieldDoesntExist, Pos: pos, Name: name}
	case types.Unknown:
		return &ast.FieldAccess{Base: ast.NewBase(pos, types.Primitive(types.Unknown)), Object: obj, Field: name}, nil
	default:
		return nil, &Error{Kind: ErrInvalidFieldAccess, Pos: pos}
	}
}

func (p *exprParser) assignment(pos token.Position, left ast.Node, value ast.Node) (ast.Node, error) {
	switch l := left.(type) {
	case *ast.VariableRef:
		if !types.Compatible(value.EvalType(), l.EvalType()) {
			return nil, &Error{Kind: ErrWrongType, Pos: pos, Expected: l.EvalType(), Got: value.EvalType()}
		}
		return &ast.VariableAsgn{Base: ast.NewBase(pos, types.Primitive(types.Nothing)), Name: l.Name, Value: value}, nil
	case *ast.FieldAccess:
		if !types.Compatible(value.EvalType(), l.EvalType()) {
			return nil, &Error{Kind: ErrWrongType, Pos: pos, Expected: l.EvalType(), Got: value.EvalType()}
		}
		return &ast.FieldAsgn{Base: ast.NewBase(pos, types.Primitive(types.Nothing)), Object: l.Object, Field: l.Field, Value: value}, nil
	case *ast.VectorIndex:
		if !types.Compatible(value.EvalType(), l.EvalType()) {
			return nil, &Error{Kind: ErrWrongType, Pos: pos, Expected: l.EvalType(), Got: value.EvalType()}
		}
		return &ast.ValueFieldAssign{Base: ast.NewBase(pos, types.Primitive(types.Nothing)), Object: l.Vector, Index: l.Index, Value: value}, nil
	default:
		return nil, &Error{Kind: ErrUnexpectedToken, Pos: pos, Token: "="}
	}
}

// parsePrimary parses one primary form: a literal, symbol,
// parenthesized expression, vector/object literal, unary minus, or
// inline function literal.
func (p *exprParser) parsePrimary() (ast.Node, error) {
	pos := p.curPos()
	if p.atEnd() {
		return nil, &Error{Kind: ErrUnexpectedEndOfFile, Pos: pos}
	}
	t := p.cur()
	switch t.Kind {
	case token.LiteralInt:
		p.advance()
		n, _ := strconv.ParseInt(t.Literal, 10, 32)
		return &ast.Literal{Base: ast.NewBase(pos, types.Primitive(types.Int)), Value: int32(n)}, nil
	case token.LiteralFloat:
		p.advance()
		f, _ := strconv.ParseFloat(t.Literal, 32)
		return &ast.Literal{Base: ast.NewBase(pos, types.Primitive(types.Float)), Value: float32(f)}, nil
	case token.LiteralString:
		p.advance()
		return &ast.Literal{Base: ast.NewBase(pos, types.Primitive(types.String)), Value: t.Literal}, nil
	case token.LiteralBool:
		p.advance()
		return &ast.Literal{Base: ast.NewBase(pos, types.Primitive(types.Bool)), Value: t.Literal == "true"}, nil
	case token.LiteralNothing:
		p.advance()
		return &ast.Literal{Base: ast.NewBase(pos, types.Primitive(types.Nothing)), Value: nil}, nil

	case token.MathOperator:
		// Unary minus: "optional sign handled by unary minus in the
		// parser". '-' is the only unary math operator.
		if t.Literal == "-" {
			p.advance()
			operand, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			var zeroVal any = int32(0)
			if operand.EvalType().Kind == types.Float {
				zeroVal = float32(0)
			}
			zero := &ast.Literal{Base: ast.NewBase(pos, operand.EvalType()), Value: zeroVal}
			return mathOperation(pos, zero, "-", operand)
		}
		return nil, &Error{Kind: ErrUnexpectedToken, Pos: pos, Token: t.Literal}

	case token.ParenOpen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.ParenClose); err != nil {
			return nil, err
		}
		return &ast.Paren{Base: ast.NewBase(pos, inner.EvalType()), Inner: inner}, nil

	case token.BracketOpen:
		return p.parseVectorLiteral(pos)

	case token.BraceOpen:
		return p.parseObjectLiteral(pos)

	case token.KwFunction:
		return p.parseFunctionLiteral(pos)

	case token.Symbol:
		return p.parseSymbol(pos)

	default:
		return nil, &Error{Kind: ErrUnexpectedToken, Pos: pos, Token: t.Kind.String()}
	}
}

func (p *exprParser) parseVectorLiteral(pos token.Position) (ast.Node, error) {
	p.advance() // [
	var elems []ast.Node
	for !p.at(token.BracketClose) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		elems = append(elems, e)
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.BracketClose); err != nil {
		return nil, err
	}
	elemType := types.Primitive(types.Unknown)
	if len(elems) > 0 {
		elemType = elems[0].EvalType()
	}
	return &ast.VectorLiteral{Base: ast.NewBase(pos, types.VectorOf(elemType)), Elems: elems}, nil
}

func (p *exprParser) parseObjectLiteral(pos token.Position) (ast.Node, error) {
	p.advance() // {
	var keys []string
	var values []ast.Node
	fields := map[string]types.Type{}
	for !p.at(token.BraceClose) {
		key, err := p.expect(token.Symbol)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectOperator(":"); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		keys = append(keys, key.Literal)
		values = append(values, v)
		fields[key.Literal] = v.EvalType()
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.BraceClose); err != nil {
		return nil, err
	}
	return &ast.ObjectLiteral{Base: ast.NewBase(pos, types.ObjectOf(fields)), Keys: keys, Values: values}, nil
}

func (p *exprParser) expectOperator(lit string) (token.Token, error) {
	if p.atOp(lit) {
		return p.advance(), nil
	}
	if p.atEnd() {
		return token.Token{}, &Error{Kind: ErrUnexpectedEndOfFile, Pos: p.curPos()}
	}
	return token.Token{}, &Error{Kind: ErrUnexpectedToken, Pos: p.curPos(), Token: p.cur().Kind.String()}
}

// parseFunctionLiteral parses the inline function form
// `func(args): ret indent body dedent`. Unlike top-level function
// declarations, its body is parsed immediately (it has no pre-parser
// snapshot of its own — it is itself inside a snapshot already).
func (p *exprParser) parseFunctionLiteral(pos token.Position) (ast.Node, error) {
	p.advance() // func
	if _, err := p.expect(token.ParenOpen); err != nil {
		return nil, err
	}
	var params []string
	var paramTypes []types.Type
	childScope := p.scope.Child()
	for !p.at(token.ParenClose) {
		name, err := p.expect(token.Symbol)
		if err != nil {
			return nil, err
		}
		if _, err := p.expectOperator(":"); err != nil {
			return nil, err
		}
		typTok, err := p.expect(token.TypeName)
		if err != nil {
			return nil, err
		}
		t := primitiveByName(typTok.Literal)
		childScope.Declare(name.Literal, t)
		params = append(params, name.Literal)
		paramTypes = append(paramTypes, t)
		if p.atOp(",") {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.ParenClose); err != nil {
		return nil, err
	}
	ret := types.Primitive(types.Nothing)
	if p.atOp(":") {
		p.advance()
		retTok, err := p.expect(token.TypeName)
		if err != nil {
			return nil, err
		}
		ret = primitiveByName(retTok.Literal)
	}
	if _, err := p.expect(token.NewLine); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Indent); err != nil {
		return nil, err
	}
	sp := &stmtParser{toks: p.toks, pos: p.pos, scope: childScope, retType: ret}
	body, err := sp.parseStatements()
	if err != nil {
		return nil, err
	}
	if _, err := sp.expect(token.Dedent); err != nil {
		return nil, err
	}
	p.pos = sp.pos
	ft := types.FuncOf(paramTypes, ret)
	return &ast.FunctionLiteral{Base: ast.NewBase(pos, ft), Params: params, Body: body}, nil
}

func primitiveByName(name string) types.Type {
	switch name {
	case "int":
		return types.Primitive(types.Int)
	case "float":
		return types.Primitive(types.Float)
	case "string":
		return types.Primitive(types.String)
	case "bool":
		return types.Primitive(types.Bool)
	default:
		return types.Primitive(types.Nothing)
	}
}

func (p *exprParser) parseSymbol(pos token.Position) (ast.Node, error) {
	name := p.advance().Literal
	sym, ok := p.scope.LookupSymbol(name)
	if !ok {
		return nil, &Error{Kind: ErrVarNotFound, Pos: pos, Name: name}
	}
	switch sym.Kind {
	case SymClass:
		return p.parseClassConstruct(pos, name, sym)
	case SymEnum:
		return p.parseEnumConstruct(pos, name, sym)
	default:
		return &ast.VariableRef{Base: ast.NewBase(pos, sym.Type), Module: ast.UID(sym.UID), Name: name}, nil
	}
}

func (p *exprParser) parseClassConstruct(pos token.Position, name string, sym Symbol) (ast.Node, error) {
	handle := sym.Type.Class
	if !p.at(token.ParenOpen) {
		return nil, &Error{Kind: ErrUnexpectedToken, Pos: pos, Token: "("}
	}
	args, err := p.parseArgList()
	if err != nil {
		return nil, err
	}
	if handle.Ctor != nil {
		if len(args) != len(handle.Ctor.Params) {
			return nil, &Error{Kind: ErrInvalidArgCount, Pos: pos}
		}
		for i, a := range args {
			if !types.Compatible(a.EvalType(), handle.Ctor.Params[i]) {
				return nil, &Error{Kind: ErrWrongType, Pos: a.Pos(), Expected: handle.Ctor.Params[i], Got: a.EvalType()}
			}
		}
	} else if len(args) != 0 {
		return nil, &Error{Kind: ErrInvalidArgCount, Pos: pos}
	}
	return &ast.ConstructClass{Base: ast.NewBase(pos, types.ClassOf(handle)), ClassName: name, Handle: handle, Args: args}, nil
}

func (p *exprParser) parseEnumConstruct(pos token.Position, name string, sym Symbol) (ast.Node, error) {
	handle := sym.Type.Enum
	if _, err := p.expectOperator("."); err != nil {
		return nil, err
	}
	variantTok, err := p.expect(token.Symbol)
	if err != nil {
		return nil, err
	}
	var variant *types.EnumVariant
	for i := range handle.Variants {
		if handle.Variants[i].Name == variantTok.Literal {
			variant = &handle.Variants[i]
			break
		}
	}
	if variant == nil {
		return nil, &Error{Kind: ErrInvalidEnumVariant, Pos: pos, Name: variantTok.Literal}
	}
	var value ast.Node
	if variant.Payload.Kind != types.Nothing {
		if _, err := p.expect(token.ParenOpen); err != nil {
			return nil, err
		}
		value, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !types.Compatible(value.EvalType(), variant.Payload) {
			return nil, &Error{Kind: ErrWrongType, Pos: value.Pos(), Expected: variant.Payload, Got: value.EvalType()}
		}
		if _, err := p.expect(token.ParenClose); err != nil {
			return nil, err
		}
	} else if p.at(token.ParenOpen) {
		return nil, &Error{Kind: ErrInvalidArgCount, Pos: pos}
	}
	return &ast.ConstructEnumVariant{Base: ast.NewBase(pos, types.EnumOf(handle)), EnumName: name, Handle: handle, Variant: variant.Name, Value: value}, nil
}
