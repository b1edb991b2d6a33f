// Package wasm lowers a typed module to a WASM module binary:
// Int/Bool/Float functions using direct-name calls,
// arithmetic, comparisons, if/return, and for/while as
// block/loop/br_if shapes. Every aggregate type
// (Vector/Object/Function/Class/Enum) is rejected with Unsupported.
package wasm

import (
	"fmt"

	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/types"
)

// Unsupported reports an AST shape the lowerer has no WASM encoding
// for. Build returns it instead of a partial/incorrect module.
type Unsupported struct {
	Reason string
}

func (e *Unsupported) Error() string { return "wasm: unsupported: " + e.Reason }

// Build lowers every top-level function of mod into one WASM module:
// Type, Function, Export and Code sections, in that order. Class
// methods (fn.Class != nil) are skipped — aggregate Class values have
// no WASM representation, so a method's "self" parameter could never
// be passed.
func Build(mod *ast.Module) ([]byte, error) {
	var fns []*ast.FunctionDecl
	for _, fn := range mod.Functions {
		if fn.Class == nil {
			fns = append(fns, fn)
		}
	}

	funcIndex := make(map[string]uint32, len(fns))
	for i, fn := range fns {
		funcIndex[fn.Name] = uint32(i)
	}

	var types_ []byte
	var funcs []byte
	var exports []byte
	var codes []byte

	types_ = append(types_, uleb128(uint64(len(fns)))...)
	funcs = append(funcs, uleb128(uint64(len(fns)))...)
	exports = append(exports, uleb128(uint64(len(fns)))...)
	codes = append(codes, uleb128(uint64(len(fns)))...)

	for i, fn := range fns {
		typeBytes, err := functionType(fn)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", fn.Name, err)
		}
		types_ = append(types_, typeBytes...)

		funcs = append(funcs, uleb128(uint64(i))...)

		exports = append(exports, byteString(fn.Name)...)
		exports = append(exports, exportKindFunc)
		exports = append(exports, uleb128(uint64(i))...)

		body, err := lowerFunction(fn, funcIndex)
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", fn.Name, err)
		}
		codes = append(codes, uleb128(uint64(len(body)))...)
		codes = append(codes, body...)
	}

	out := append([]byte{}, wasmMagic...)
	out = append(out, wasmVersion...)
	out = append(out, section(sectionType, types_)...)
	out = append(out, section(sectionFunction, funcs)...)
	out = append(out, section(sectionExport, exports)...)
	out = append(out, section(sectionCode, codes)...)
	return out, nil
}

func convertType(t types.Type) (valType, bool, error) {
	switch t.Kind {
	case types.Int, types.Bool, types.String:
		return valI32, true, nil
	case types.Float:
		return valF32, true, nil
	case types.Nothing, types.Unknown:
		return 0, false, nil
	default:
		return 0, false, &Unsupported{Reason: "aggregate type " + t.String()}
	}
}

func functionType(fn *ast.FunctionDecl) ([]byte, error) {
	out := []byte{funcTypeTag}

	params := make([]valType, 0, len(fn.Sig.Params))
	for _, p := range fn.Sig.Params {
		vt, ok, err := convertType(p)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &Unsupported{Reason: "parameter of type " + p.String()}
		}
		params = append(params, vt)
	}
	out = append(out, uleb128(uint64(len(params)))...)
	for _, vt := range params {
		out = append(out, byte(vt))
	}

	retType, hasRet, err := convertType(fn.Sig.Ret)
	if err != nil {
		return nil, err
	}
	if hasRet {
		out = append(out, uleb128(1)...)
		out = append(out, byte(retType))
	} else {
		out = append(out, uleb128(0)...)
	}
	return out, nil
}

// funcBuilder tracks one function's local slots: params occupy the
// first len(Params) indices (mirroring WASM's own local numbering),
// every VariableDecl appends one more; for-loops add one slot for the
// index variable plus an unnamed slot holding the evaluated bound.
//
// depth counts open block/loop/if frames so a break can compute its
// relative branch label; loopExits records, per enclosing loop, the
// depth of the block a break must branch out of.
type funcBuilder struct {
	locals    []string
	extraKind []valType
	funcIndex map[string]uint32
	enc       encoder
	depth     int
	loopExits []int
}

func lowerFunction(fn *ast.FunctionDecl, funcIndex map[string]uint32) ([]byte, error) {
	fb := &funcBuilder{locals: append([]string{}, fn.Params...), funcIndex: funcIndex}

	for _, stmt := range fn.Body {
		if err := fb.build(stmt); err != nil {
			return nil, err
		}
	}
	fb.enc.emit(opEnd)

	var body []byte
	body = append(body, uleb128(uint64(len(fb.extraKind)))...)
	for _, k := range fb.extraKind {
		body = append(body, uleb128(1)...)
		body = append(body, byte(k))
	}
	body = append(body, fb.enc.buf...)
	return body, nil
}

func (fb *funcBuilder) localIndex(name string) (uint32, bool) {
	for i, l := range fb.locals {
		if l == name {
			return uint32(i), true
		}
	}
	return 0, false
}

func (fb *funcBuilder) build(node ast.Node) error {
	switch n := node.(type) {

	case *ast.VariableDecl:
		vt, ok, err := convertType(n.Value.EvalType())
		if err != nil {
			return err
		}
		if !ok {
			return &Unsupported{Reason: "local of type " + n.Value.EvalType().String()}
		}
		fb.locals = append(fb.locals, n.Name)
		fb.extraKind = append(fb.extraKind, vt)
		id := uint32(len(fb.locals) - 1)
		if err := fb.build(n.Value); err != nil {
			return err
		}
		fb.enc.emitU(opLocalSet, uint64(id))
		return nil

	case *ast.VariableRef:
		id, ok := fb.localIndex(n.Name)
		if !ok {
			return &Unsupported{Reason: "reference to non-local " + n.Name}
		}
		fb.enc.emitU(opLocalGet, uint64(id))
		return nil

	case *ast.VariableAsgn:
		if err := fb.build(n.Value); err != nil {
			return err
		}
		id, ok := fb.localIndex(n.Name)
		if !ok {
			return &Unsupported{Reason: "assignment to non-local " + n.Name}
		}
		fb.enc.emitU(opLocalSet, uint64(id))
		return nil

	case *ast.FunctionInvok:
		ref, ok := n.Callee.(*ast.VariableRef)
		if !ok {
			return &Unsupported{Reason: "indirect function call"}
		}
		id, ok := fb.funcIndex[ref.Name]
		if !ok {
			return &Unsupported{Reason: "call to unknown function " + ref.Name}
		}
		for _, arg := range n.Args {
			if err := fb.build(arg); err != nil {
				return err
			}
		}
		fb.enc.emitU(opCall, uint64(id))
		return nil

	case *ast.Literal:
		switch v := n.Value.(type) {
		case nil:
			return nil
		case int32:
			fb.enc.i32Const(v)
		case bool:
			if v {
				fb.enc.i32Const(1)
			} else {
				fb.enc.i32Const(0)
			}
		case float32:
			fb.enc.f32Const(v)
		case string:
			return &Unsupported{Reason: "string literal"}
		}
		return nil

	case *ast.MathOperation:
		return fb.buildMath(n)

	case *ast.BoolOperation:
		return fb.buildBool(n)

	case *ast.ReturnStatement:
		if n.Kind == ast.JumpBreak {
			if len(fb.loopExits) == 0 {
				return &Unsupported{Reason: "break outside a loop"}
			}
			if n.Value != nil {
				return &Unsupported{Reason: "break with a value"}
			}
			exit := fb.loopExits[len(fb.loopExits)-1]
			fb.enc.emitU(opBr, uint64(fb.depth-1-exit))
			return nil
		}
		if n.Kind != ast.JumpReturn {
			return &Unsupported{Reason: "panic"}
		}
		if n.Value != nil {
			if err := fb.build(n.Value); err != nil {
				return err
			}
		}
		fb.enc.emit(opReturn)
		return nil

	case *ast.IfStatement:
		if n.ElseIf != nil || n.ElseBody != nil {
			return &Unsupported{Reason: "if/else chain"}
		}
		if err := fb.build(n.Cond); err != nil {
			return err
		}
		fb.enc.buf = append(fb.enc.buf, opIf, blockTypeEmpty)
		fb.depth++
		for _, stmt := range n.Then {
			if err := fb.build(stmt); err != nil {
				return err
			}
		}
		fb.depth--
		fb.enc.emit(opEnd)
		return nil

	case *ast.WhileStatement:
		return fb.buildWhile(n)

	case *ast.ForStatement:
		return fb.buildFor(n)

	case *ast.Paren:
		return fb.build(n.Inner)

	default:
		return &Unsupported{Reason: fmt.Sprintf("%T", node)}
	}
}

func (fb *funcBuilder) buildMath(n *ast.MathOperation) error {
	if err := fb.build(n.Left); err != nil {
		return err
	}
	if err := fb.build(n.Right); err != nil {
		return err
	}
	isFloat := n.EvalType().Kind == types.Float
	var op byte
	switch n.Lit {
	case "+":
		op = pick(isFloat, opF32Add, opI32Add)
	case "-":
		op = pick(isFloat, opF32Sub, opI32Sub)
	case "*":
		op = pick(isFloat, opF32Mul, opI32Mul)
	case "/":
		op = pick(isFloat, opF32Div, opI32DivS)
	case "%":
		if isFloat {
			return &Unsupported{Reason: "float modulus"}
		}
		op = opI32RemS
	default:
		return &Unsupported{Reason: "operator " + n.Lit}
	}
	fb.enc.emit(op)
	return nil
}

// buildWhile lowers `while cond: body` to
//
//	block
//	  loop
//	    cond i32.eqz br_if 1   ; exit when the condition fails
//	    body
//	    br 0                   ; back to the loop head
//	  end
//	end
//
// A break in the body branches out of the enclosing block.
func (fb *funcBuilder) buildWhile(n *ast.WhileStatement) error {
	fb.enc.buf = append(fb.enc.buf, opBlock, blockTypeEmpty)
	exit := fb.depth
	fb.depth++
	fb.loopExits = append(fb.loopExits, exit)
	fb.enc.buf = append(fb.enc.buf, opLoop, blockTypeEmpty)
	fb.depth++

	if err := fb.build(n.Cond); err != nil {
		return err
	}
	fb.enc.emit(opI32Eqz)
	fb.enc.emitU(opBrIf, uint64(fb.depth-1-exit))

	for _, stmt := range n.Body {
		if err := fb.build(stmt); err != nil {
			return err
		}
	}
	fb.enc.emitU(opBr, 0)

	fb.depth--
	fb.enc.emit(opEnd)
	fb.depth--
	fb.enc.emit(opEnd)
	fb.loopExits = fb.loopExits[:len(fb.loopExits)-1]
	return nil
}

// buildFor lowers `for i in min..max: body` as a while-shaped loop
// over two i32 locals: the named index and an unnamed slot holding the
// evaluated upper bound (so max is evaluated once, before the loop).
func (fb *funcBuilder) buildFor(n *ast.ForStatement) error {
	fb.locals = append(fb.locals, n.IterName)
	fb.extraKind = append(fb.extraKind, valI32)
	idx := uint64(len(fb.locals) - 1)
	fb.locals = append(fb.locals, "")
	fb.extraKind = append(fb.extraKind, valI32)
	bound := uint64(len(fb.locals) - 1)

	if err := fb.build(n.Min); err != nil {
		return err
	}
	fb.enc.emitU(opLocalSet, idx)
	if err := fb.build(n.Max); err != nil {
		return err
	}
	fb.enc.emitU(opLocalSet, bound)

	fb.enc.buf = append(fb.enc.buf, opBlock, blockTypeEmpty)
	exit := fb.depth
	fb.depth++
	fb.loopExits = append(fb.loopExits, exit)
	fb.enc.buf = append(fb.enc.buf, opLoop, blockTypeEmpty)
	fb.depth++

	fb.enc.emitU(opLocalGet, idx)
	fb.enc.emitU(opLocalGet, bound)
	fb.enc.emit(opI32GeS)
	fb.enc.emitU(opBrIf, uint64(fb.depth-1-exit))

	for _, stmt := range n.Body {
		if err := fb.build(stmt); err != nil {
			return err
		}
	}

	fb.enc.emitU(opLocalGet, idx)
	fb.enc.i32Const(1)
	fb.enc.emit(opI32Add)
	fb.enc.emitU(opLocalSet, idx)
	fb.enc.emitU(opBr, 0)

	fb.depth--
	fb.enc.emit(opEnd)
	fb.depth--
	fb.enc.emit(opEnd)
	fb.loopExits = fb.loopExits[:len(fb.loopExits)-1]
	return nil
}

func (fb *funcBuilder) buildBool(n *ast.BoolOperation) error {
	if err := fb.build(n.Left); err != nil {
		return err
	}
	if err := fb.build(n.Right); err != nil {
		return err
	}
	isFloat := n.Left.EvalType().Kind == types.Float || n.Right.EvalType().Kind == types.Float
	var op byte
	switch n.Lit {
	case "==":
		op = pick(isFloat, opF32Eq, opI32Eq)
	case "!=":
		op = pick(isFloat, opF32Ne, opI32Ne)
	case ">":
		op = pick(isFloat, opF32Gt, opI32GtS)
	case "<":
		op = pick(isFloat, opF32Lt, opI32LtS)
	case ">=":
		op = pick(isFloat, opF32Ge, opI32GeS)
	case "<=":
		op = pick(isFloat, opF32Le, opI32LeS)
	default:
		return &Unsupported{Reason: "operator " + n.Lit}
	}
	fb.enc.emit(op)
	return nil
}

func pick(cond bool, a, b byte) byte {
	if cond {
		return a
	}
	return b
}
