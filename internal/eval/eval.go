package eval

import (
	"math"
	"strings"

	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/token"
	"github.com/portal-lang/portal/internal/types"
)

// ResultKind tags which of the three outcomes an evaluation
// produced.
type ResultKind int

const (
	ResOk ResultKind = iota
	ResRet
	ResErr
)

// Result is the value every node evaluation returns. ResOk carries a
// plain value; ResRet carries a value in flight to an enclosing
// function (JumpReturn) or loop (JumpBreak); ResErr aborts the walk.
type Result struct {
	Kind  ResultKind
	Value Value
	Jump  ast.JumpKind
	Err   error
}

func ok(v Value) Result                     { return Result{Kind: ResOk, Value: v} }
func ret(v Value, kind ast.JumpKind) Result { return Result{Kind: ResRet, Value: v, Jump: kind} }
func fail(err error) Result                 { return Result{Kind: ResErr, Err: err} }
func okNothing() Result                     { return ok(NothingValue{}) }

// moduleEnv is one loaded module's runtime state: its global scope
// (vars declared at top level) and its function table, keyed by plain
// name ("foo"). Class methods are not in the table: they are looked up
// through Evaluator.classes, since a method can be reached from any
// module that imports the class.
type moduleEnv struct {
	uid   ast.UID
	scope *Scope
	funcs map[string]*ast.FunctionDecl
}

type classEntry struct {
	uid     ast.UID
	methods map[string]*ast.FunctionDecl
}

// Evaluator holds every loaded module's runtime state and dispatches
// cross-module variable/function lookups and method calls.
type Evaluator struct {
	modules map[ast.UID]*moduleEnv
	classes map[*types.ClassHandle]*classEntry
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		modules: map[ast.UID]*moduleEnv{},
		classes: map[*types.ClassHandle]*classEntry{},
	}
}

// Load registers mod's functions and evaluates its top-level variable
// declarations. Callers must Load every module's dependencies before
// the module itself (the order internal/parser.Loader already returns
// them in), since a VariableDecl's initializer may reference an
// imported module's exports.
func (ev *Evaluator) Load(mod *ast.Module) error {
	env := &moduleEnv{uid: mod.UID, scope: NewScope(nil), funcs: map[string]*ast.FunctionDecl{}}
	ev.modules[mod.UID] = env

	for _, fn := range mod.Functions {
		if fn.Class != nil {
			entry := ev.classes[fn.Class]
			if entry == nil {
				entry = &classEntry{uid: mod.UID, methods: map[string]*ast.FunctionDecl{}}
				ev.classes[fn.Class] = entry
			}
			entry.methods[methodName(fn.Name)] = fn
		} else {
			env.funcs[fn.Name] = fn
		}
	}

	for _, v := range mod.Variables {
		res := ev.eval(v, env.scope, env)
		if res.Kind == ResErr {
			return res.Err
		}
	}
	return nil
}

// methodName strips the "ClassName." qualifier moduleparser.go adds
// when it declares a method's FunctionDecl.
func methodName(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// Call runs the named top-level function of the module identified by
// uid with args already evaluated, returning its result value. This
// is the entry point pkg/engine uses to invoke an exported function
// from outside the evaluator.
func (ev *Evaluator) Call(uid ast.UID, name string, args []Value) (Value, error) {
	env, found := ev.modules[uid]
	if !found {
		return nil, &Error{Kind: ErrModuleNotFound, Name: name}
	}
	if fn, found := env.funcs[name]; found {
		return ev.invoke(fn, uid, nil, args)
	}
	// A module-scope binding can also be callable: an externally
	// implemented function (LoadExternal) or a function value assigned
	// to a top-level var.
	if v, found := env.scope.Get(name); found {
		switch fn := v.(type) {
		case ExtFunctionValue:
			return fn.Handler(args)
		case FunctionValue:
			return ev.invoke(fn.Decl, fn.ModuleUID, fn.Self, args)
		}
		return nil, &Error{Kind: ErrValueNotFunc}
	}
	return nil, &Error{Kind: ErrVarNotFound, Name: name}
}

// invoke runs fn's body in a fresh scope chained off its defining
// module's global scope, with params bound in it. self is bound under
// the name "self" when non-nil (a class method call).
func (ev *Evaluator) invoke(fn *ast.FunctionDecl, definingModule ast.UID, self Value, args []Value) (Value, error) {
	if len(args) != len(fn.Params) {
		return nil, &Error{Kind: ErrFuncInvalidParamCount, Expected: len(fn.Params), Got: len(args)}
	}
	defEnv, found := ev.modules[definingModule]
	if !found {
		return nil, &Error{Kind: ErrModuleNotFound}
	}
	callScope := defEnv.scope.Child()
	if self != nil {
		callScope.Declare("self", self)
	}
	for i, p := range fn.Params {
		callScope.Declare(p, args[i])
	}

	for _, stmt := range fn.Body {
		res := ev.eval(stmt, callScope, defEnv)
		switch res.Kind {
		case ResErr:
			return nil, res.Err
		case ResRet:
			if res.Jump == ast.JumpReturn {
				return res.Value, nil
			}
			// a break that reaches the function body (the parser does not
			// check that a break sits inside a for/while loop) is an error.
			return nil, &Error{Kind: ErrCantConvertValue}
		}
	}
	return NothingValue{}, nil
}

// eval is the node dispatch. scope is the current lexical scope;
// env is the module that lexically encloses node (used to resolve
// FunctionLiteral's defining module and as the starting point for
// cross-module VariableRef fallback).
func (ev *Evaluator) eval(node ast.Node, scope *Scope, env *moduleEnv) Result {
	switch n := node.(type) {

	case *ast.Literal:
		return ok(literalValue(n.Value))

	case *ast.VariableRef:
		if v, found := scope.Get(n.Name); found {
			return ok(v)
		}
		target, found := ev.modules[n.Module]
		if !found {
			return fail(&Error{Kind: ErrModuleNotFound, Pos: n.Pos(), Name: n.Name})
		}
		if v, found := target.scope.Get(n.Name); found {
			return ok(v)
		}
		if fn, found := target.funcs[n.Name]; found {
			return ok(FunctionValue{Decl: fn, ModuleUID: n.Module})
		}
		return fail(&Error{Kind: ErrVarNotFound, Pos: n.Pos(), Name: n.Name})

	case *ast.VariableDecl:
		res := ev.eval(n.Value, scope, env)
		if res.Kind != ResOk {
			return res
		}
		scope.Declare(n.Name, res.Value)
		return okNothing()

	case *ast.VariableAsgn:
		res := ev.eval(n.Value, scope, env)
		if res.Kind != ResOk {
			return res
		}
		scope.Set(n.Name, res.Value)
		return okNothing()

	case *ast.Paren:
		return ev.eval(n.Inner, scope, env)

	case *ast.VectorLiteral:
		elems := make([]Value, len(n.Elems))
		for i, e := range n.Elems {
			res := ev.eval(e, scope, env)
			if res.Kind != ResOk {
				return res
			}
			elems[i] = res.Value
		}
		return ok(NewVector(elems))

	case *ast.ObjectLiteral:
		fields := make(map[string]Value, len(n.Keys))
		for i, key := range n.Keys {
			res := ev.eval(n.Values[i], scope, env)
			if res.Kind != ResOk {
				return res
			}
			fields[key] = res.Value
		}
		return ok(NewObject(fields))

	case *ast.FunctionLiteral:
		decl := &ast.FunctionDecl{Name: "<anonymous>", Params: n.Params, Body: n.Body}
		return ok(FunctionValue{Decl: decl, ModuleUID: env.uid})

	case *ast.MathOperation:
		return ev.mathOperation(n, scope, env)

	case *ast.BoolOperation:
		return ev.boolOperation(n, scope, env)

	case *ast.VectorIndex:
		vres := ev.eval(n.Vector, scope, env)
		if vres.Kind != ResOk {
			return vres
		}
		ires := ev.eval(n.Index, scope, env)
		if ires.Kind != ResOk {
			return ires
		}
		vec, ok1 := vres.Value.(VectorValue)
		idx, ok2 := ires.Value.(IntValue)
		if !ok1 || !ok2 {
			return fail(&Error{Kind: ErrValueNotNumber, Pos: n.Pos()})
		}
		elems := *vec.Elems
		if idx.Value < 0 || int(idx.Value) >= len(elems) {
			return fail(&Error{Kind: ErrIndexOutOfBounds, Pos: n.Pos()})
		}
		return ok(elems[idx.Value])

	case *ast.ValueFieldAccess:
		vres := ev.eval(n.Object, scope, env)
		if vres.Kind != ResOk {
			return vres
		}
		ires := ev.eval(n.Index, scope, env)
		if ires.Kind != ResOk {
			return ires
		}
		vec, ok1 := vres.Value.(VectorValue)
		idx, ok2 := ires.Value.(IntValue)
		if !ok1 || !ok2 {
			return fail(&Error{Kind: ErrValueNotNumber, Pos: n.Pos()})
		}
		elems := *vec.Elems
		if idx.Value < 0 || int(idx.Value) >= len(elems) {
			return ok(NothingValue{})
		}
		return ok(elems[idx.Value])

	case *ast.ValueFieldAssign:
		vres := ev.eval(n.Object, scope, env)
		if vres.Kind != ResOk {
			return vres
		}
		ires := ev.eval(n.Index, scope, env)
		if ires.Kind != ResOk {
			return ires
		}
		valRes := ev.eval(n.Value, scope, env)
		if valRes.Kind != ResOk {
			return valRes
		}
		vec, ok1 := vres.Value.(VectorValue)
		idx, ok2 := ires.Value.(IntValue)
		if !ok1 || !ok2 {
			return fail(&Error{Kind: ErrValueNotNumber, Pos: n.Pos()})
		}
		elems := *vec.Elems
		if idx.Value < 0 || int(idx.Value) >= len(elems) {
			return fail(&Error{Kind: ErrIndexOutOfBounds, Pos: n.Pos()})
		}
		elems[idx.Value] = valRes.Value
		return okNothing()

	case *ast.FunctionInvok:
		return ev.functionInvok(n, scope, env)

	case *ast.FieldAccess:
		return ev.fieldAccess(n, scope, env)

	case *ast.FieldAsgn:
		objRes := ev.eval(n.Object, scope, env)
		if objRes.Kind != ResOk {
			return objRes
		}
		valRes := ev.eval(n.Value, scope, env)
		if valRes.Kind != ResOk {
			return valRes
		}
		obj, isObj := objRes.Value.(ObjectValue)
		if !isObj {
			return fail(&Error{Kind: ErrCantConvertValue, Pos: n.Pos()})
		}
		(*obj.Fields)[n.Field] = valRes.Value
		return okNothing()

	case *ast.ConstructClass:
		return ev.constructClass(n, scope, env)

	case *ast.ConstructEnumVariant:
		var payload Value
		if n.Value != nil {
			res := ev.eval(n.Value, scope, env)
			if res.Kind != ResOk {
				return res
			}
			payload = res.Value
		}
		return ok(EnumValue{EnumName: n.EnumName, Variant: n.Variant, Payload: payload})

	case *ast.ReturnStatement:
		var v Value = NothingValue{}
		if n.Value != nil {
			res := ev.eval(n.Value, scope, env)
			if res.Kind != ResOk {
				return res
			}
			v = res.Value
		}
		return ret(v, n.Kind)

	case *ast.IfStatement:
		return ev.ifStatement(n, scope, env)

	case *ast.ForStatement:
		return ev.forStatement(n, scope, env)

	case *ast.WhileStatement:
		return ev.whileStatement(n, scope, env)
	}

	return fail(&Error{Kind: ErrCantConvertValue, Pos: node.Pos()})
}

func literalValue(v any) Value {
	switch t := v.(type) {
	case nil:
		return NothingValue{}
	case bool:
		return BoolValue{Value: t}
	case int32:
		return IntValue{Value: t}
	case float32:
		return FloatValue{Value: t}
	case string:
		return StringValue{Value: t}
	}
	return NothingValue{}
}

func (ev *Evaluator) execBody(body []ast.Node, scope *Scope, env *moduleEnv) Result {
	var last Result = okNothing()
	for _, stmt := range body {
		res := ev.eval(stmt, scope, env)
		if res.Kind != ResOk {
			return res
		}
		last = res
	}
	return last
}

func (ev *Evaluator) ifStatement(n *ast.IfStatement, scope *Scope, env *moduleEnv) Result {
	cond := ev.eval(n.Cond, scope, env)
	if cond.Kind != ResOk {
		return cond
	}
	if Truthy(cond.Value) {
		return ev.execBody(n.Then, scope.Child(), env)
	}
	if n.ElseIf != nil {
		return ev.ifStatement(n.ElseIf, scope, env)
	}
	if n.ElseBody != nil {
		return ev.execBody(n.ElseBody, scope.Child(), env)
	}
	return okNothing()
}

func (ev *Evaluator) forStatement(n *ast.ForStatement, scope *Scope, env *moduleEnv) Result {
	minRes := ev.eval(n.Min, scope, env)
	if minRes.Kind != ResOk {
		return minRes
	}
	maxRes := ev.eval(n.Max, scope, env)
	if maxRes.Kind != ResOk {
		return maxRes
	}
	minVal, ok1 := minRes.Value.(IntValue)
	maxVal, ok2 := maxRes.Value.(IntValue)
	if !ok1 || !ok2 {
		return fail(&Error{Kind: ErrValueNotNumber, Pos: n.Pos()})
	}

	for i := minVal.Value; i < maxVal.Value; i++ {
		iterScope := scope.Child()
		iterScope.Declare(n.IterName, IntValue{Value: i})
		res := ev.execBody(n.Body, iterScope, env)
		if res.Kind == ResErr {
			return res
		}
		if res.Kind == ResRet {
			if res.Jump == ast.JumpBreak {
				return ok(res.Value)
			}
			return res
		}
	}
	return okNothing()
}

func (ev *Evaluator) whileStatement(n *ast.WhileStatement, scope *Scope, env *moduleEnv) Result {
	for {
		cond := ev.eval(n.Cond, scope, env)
		if cond.Kind != ResOk {
			return cond
		}
		if !Truthy(cond.Value) {
			return okNothing()
		}
		res := ev.execBody(n.Body, scope.Child(), env)
		if res.Kind == ResErr {
			return res
		}
		if res.Kind == ResRet {
			if res.Jump == ast.JumpBreak {
				return ok(res.Value)
			}
			return res
		}
	}
}

func (ev *Evaluator) fieldAccess(n *ast.FieldAccess, scope *Scope, env *moduleEnv) Result {
	objRes := ev.eval(n.Object, scope, env)
	if objRes.Kind != ResOk {
		return objRes
	}
	obj, isObj := objRes.Value.(ObjectValue)
	if !isObj {
		return fail(&Error{Kind: ErrCantConvertValue, Pos: n.Pos()})
	}
	if v, found := (*obj.Fields)[n.Field]; found {
		return ok(v)
	}
	if obj.Handle != nil {
		if entry := ev.classes[obj.Handle]; entry != nil {
			if fn, found := entry.methods[n.Field]; found {
				return ok(FunctionValue{Decl: fn, ModuleUID: entry.uid, Self: obj})
			}
		}
	}
	return ok(NothingValue{})
}

func (ev *Evaluator) constructClass(n *ast.ConstructClass, scope *Scope, env *moduleEnv) Result {
	fields := map[string]Value{}
	for name, t := range n.Handle.Fields {
		fields[name] = zeroValue(t)
	}
	obj := ObjectValue{Fields: &fields, Handle: n.Handle}

	entry := ev.classes[n.Handle]
	if entry == nil || n.Handle.Ctor == nil {
		return ok(obj)
	}
	ctor, found := entry.methods["new"]
	if !found {
		return ok(obj)
	}

	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		res := ev.eval(a, scope, env)
		if res.Kind != ResOk {
			return res
		}
		args[i] = res.Value
	}
	if _, err := ev.invoke(ctor, entry.uid, obj, args); err != nil {
		return fail(err)
	}
	return ok(obj)
}

func zeroValue(t types.Type) Value {
	switch t.Kind {
	case types.Bool:
		return BoolValue{}
	case types.Int:
		return IntValue{}
	case types.Float:
		return FloatValue{}
	case types.String:
		return StringValue{}
	case types.Vector:
		return NewVector(nil)
	case types.Object:
		fields := map[string]Value{}
		for name, ft := range t.Fields {
			fields[name] = zeroValue(ft)
		}
		return NewObject(fields)
	default:
		return NothingValue{}
	}
}

func (ev *Evaluator) functionInvok(n *ast.FunctionInvok, scope *Scope, env *moduleEnv) Result {
	calleeRes := ev.eval(n.Callee, scope, env)
	if calleeRes.Kind != ResOk {
		return calleeRes
	}

	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		res := ev.eval(a, scope, env)
		if res.Kind != ResOk {
			return res
		}
		args[i] = res.Value
	}

	switch fn := calleeRes.Value.(type) {
	case FunctionValue:
		v, err := ev.invoke(fn.Decl, fn.ModuleUID, fn.Self, args)
		if err != nil {
			return fail(err)
		}
		return ok(v)
	case ExtFunctionValue:
		v, err := fn.Handler(args)
		if err != nil {
			return fail(err)
		}
		return ok(v)
	default:
		return fail(&Error{Kind: ErrValueNotFunc, Pos: n.Pos()})
	}
}

func (ev *Evaluator) mathOperation(n *ast.MathOperation, scope *Scope, env *moduleEnv) Result {
	lres := ev.eval(n.Left, scope, env)
	if lres.Kind != ResOk {
		return lres
	}
	rres := ev.eval(n.Right, scope, env)
	if rres.Kind != ResOk {
		return rres
	}

	if ls, isStr := lres.Value.(StringValue); isStr {
		rs, isStr2 := rres.Value.(StringValue)
		if !isStr2 || n.Lit != "+" {
			return fail(&Error{Kind: ErrValueNotNumber, Pos: n.Pos()})
		}
		return ok(StringValue{Value: ls.Value + rs.Value})
	}

	li, lIsInt := lres.Value.(IntValue)
	ri, rIsInt := rres.Value.(IntValue)
	if lIsInt && rIsInt {
		res, err := intMath(n.Lit, li.Value, ri.Value, n.Pos())
		if err != nil {
			return fail(err)
		}
		return ok(IntValue{Value: res})
	}

	lf, err := toFloat(lres.Value, n.Pos())
	if err != nil {
		return fail(err)
	}
	rf, err := toFloat(rres.Value, n.Pos())
	if err != nil {
		return fail(err)
	}
	res, err := floatMath(n.Lit, lf, rf, n.Pos())
	if err != nil {
		return fail(err)
	}
	return ok(FloatValue{Value: res})
}

func toFloat(v Value, pos token.Position) (float32, error) {
	switch t := v.(type) {
	case IntValue:
		return float32(t.Value), nil
	case FloatValue:
		return t.Value, nil
	default:
		return 0, &Error{Kind: ErrValueNotNumber, Pos: pos}
	}
}

func intMath(op string, a, b int32, pos token.Position) (int32, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, &Error{Kind: ErrDivideByZero, Pos: pos}
		}
		return a / b, nil
	case "%":
		if b == 0 {
			return 0, &Error{Kind: ErrDivideByZero, Pos: pos}
		}
		return a % b, nil
	case "^":
		return intPow(a, b), nil
	}
	return 0, &Error{Kind: ErrValueNotNumber, Pos: pos}
}

// intPow implements Int^Int with a non-negative exponent via repeated
// squaring; a negative exponent truncates to 0 since the Int domain
// has no fractional results.
func intPow(base, exp int32) int32 {
	if exp < 0 {
		return 0
	}
	var result int32 = 1
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}

func floatMath(op string, a, b float32, pos token.Position) (float32, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, &Error{Kind: ErrDivideByZero, Pos: pos}
		}
		return a / b, nil
	case "%":
		if b == 0 {
			return 0, &Error{Kind: ErrDivideByZero, Pos: pos}
		}
		return float32(math.Mod(float64(a), float64(b))), nil
	case "^":
		return float32(math.Pow(float64(a), float64(b))), nil
	}
	return 0, &Error{Kind: ErrValueNotNumber, Pos: pos}
}

func (ev *Evaluator) boolOperation(n *ast.BoolOperation, scope *Scope, env *moduleEnv) Result {
	lres := ev.eval(n.Left, scope, env)
	if lres.Kind != ResOk {
		return lres
	}
	rres := ev.eval(n.Right, scope, env)
	if rres.Kind != ResOk {
		return rres
	}

	switch n.Lit {
	case "==":
		return ok(BoolValue{Value: valuesEqual(lres.Value, rres.Value)})
	case "!=":
		return ok(BoolValue{Value: !valuesEqual(lres.Value, rres.Value)})
	}

	lf, lok := numericValue(lres.Value)
	rf, rok := numericValue(rres.Value)
	if !lok || !rok {
		return fail(&Error{Kind: ErrValueNotNumber, Pos: n.Pos()})
	}
	var res bool
	switch n.Lit {
	case ">":
		res = lf > rf
	case "<":
		res = lf < rf
	case ">=":
		res = lf >= rf
	case "<=":
		res = lf <= rf
	default:
		return fail(&Error{Kind: ErrValueNotNumber, Pos: n.Pos()})
	}
	return ok(BoolValue{Value: res})
}

func numericValue(v Value) (float64, bool) {
	switch t := v.(type) {
	case IntValue:
		return float64(t.Value), true
	case FloatValue:
		return float64(t.Value), true
	default:
		return 0, false
	}
}

// valuesEqual implements the equality rule: structural for
// primitives, reference identity for functions/objects/vectors.
func valuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case BoolValue:
		bv, ok := b.(BoolValue)
		return ok && av.Value == bv.Value
	case IntValue:
		switch bv := b.(type) {
		case IntValue:
			return av.Value == bv.Value
		case FloatValue:
			return float32(av.Value) == bv.Value
		}
		return false
	case FloatValue:
		switch bv := b.(type) {
		case IntValue:
			return av.Value == float32(bv.Value)
		case FloatValue:
			return av.Value == bv.Value
		}
		return false
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av.Value == bv.Value
	case NothingValue:
		_, ok := b.(NothingValue)
		return ok
	case VectorValue:
		bv, ok := b.(VectorValue)
		return ok && av.Elems == bv.Elems
	case ObjectValue:
		bv, ok := b.(ObjectValue)
		return ok && av.Fields == bv.Fields
	case FunctionValue:
		bv, ok := b.(FunctionValue)
		return ok && av.Decl == bv.Decl
	case EnumValue:
		bv, ok := b.(EnumValue)
		return ok && av.EnumName == bv.EnumName && av.Variant == bv.Variant
	}
	return false
}
