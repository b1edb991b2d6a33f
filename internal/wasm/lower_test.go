package wasm

import (
	"bytes"
	"encoding/hex"
	"os"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/portal-lang/portal/internal/ast"
	"github.com/portal-lang/portal/internal/token"
	"github.com/portal-lang/portal/internal/types"
)

func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m)
	os.Exit(v)
}

func intLit(v int32) *ast.Literal {
	return &ast.Literal{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Value: v}
}

func intRef(name string) *ast.VariableRef {
	return &ast.VariableRef{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Name: name}
}

// TestBuild_Arithmetic checks that `fn add(a, b) { return a + b }`
// lowers to a well-formed single-function module: magic/version
// header, one type/function/export/code entry, and the expected
// local.get/local.get/i32.add/return instruction stream.
func TestBuild_Arithmetic(t *testing.T) {
	sig := &types.FunctionType{Params: []types.Type{types.Primitive(types.Int), types.Primitive(types.Int)}, Ret: types.Primitive(types.Int)}
	add := &ast.FunctionDecl{
		Name:   "add",
		Params: []string{"a", "b"},
		Sig:    sig,
		Body: []ast.Node{
			&ast.ReturnStatement{
				Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)),
				Kind: ast.JumpReturn,
				Value: &ast.MathOperation{
					Base:  ast.NewBase(token.Position{}, types.Primitive(types.Int)),
					Lit:   "+",
					Left:  intRef("a"),
					Right: intRef("b"),
				},
			},
		},
	}
	mod := &ast.Module{UID: 1, Identifier: "main", Functions: []*ast.FunctionDecl{add}}

	out, err := Build(mod)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !bytes.Equal(out[:4], wasmMagic) {
		t.Fatalf("missing wasm magic header, got %x", out[:4])
	}
	if !bytes.Equal(out[4:8], wasmVersion) {
		t.Fatalf("missing wasm version, got %x", out[4:8])
	}

	want := []byte{opLocalGet, 0x00, opLocalGet, 0x01, opI32Add, opReturn, opEnd}
	if !bytes.Contains(out, want) {
		t.Fatalf("expected instruction stream %x to appear in %x", want, out)
	}
}

// TestBuild_LocalDecl checks that a VariableDecl allocates a fresh
// local slot after the function's params.
func TestBuild_LocalDecl(t *testing.T) {
	sig := &types.FunctionType{Params: []types.Type{types.Primitive(types.Int)}, Ret: types.Primitive(types.Int)}
	fn := &ast.FunctionDecl{
		Name:   "double",
		Params: []string{"x"},
		Sig:    sig,
		Body: []ast.Node{
			&ast.VariableDecl{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Name: "y",
				Value: &ast.MathOperation{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Lit: "+", Left: intRef("x"), Right: intRef("x")}},
			&ast.ReturnStatement{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Kind: ast.JumpReturn, Value: intRef("y")},
		},
	}
	mod := &ast.Module{UID: 1, Identifier: "main", Functions: []*ast.FunctionDecl{fn}}

	out, err := Build(mod)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []byte{opLocalGet, 0x01}
	if !bytes.Contains(out, want) {
		t.Fatalf("expected a local.get of slot 1 (the declared local) in %x", out)
	}
}

// TestBuild_WhileLoop checks the block/loop/br_if lowering shape:
// the condition is negated with i32.eqz and branches out of the
// enclosing block, the body's tail branches back to the loop head.
func TestBuild_WhileLoop(t *testing.T) {
	sig := &types.FunctionType{Params: []types.Type{types.Primitive(types.Int)}, Ret: types.Primitive(types.Int)}
	fn := &ast.FunctionDecl{
		Name:   "spin",
		Params: []string{"n"},
		Sig:    sig,
		Body: []ast.Node{
			&ast.WhileStatement{
				Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)),
				Cond: &ast.BoolOperation{Base: ast.NewBase(token.Position{}, types.Primitive(types.Bool)), Lit: ">", Left: intRef("n"), Right: intLit(0)},
				Body: []ast.Node{
					&ast.VariableAsgn{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Name: "n",
						Value: &ast.MathOperation{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Lit: "-", Left: intRef("n"), Right: intLit(1)}},
				},
			},
			&ast.ReturnStatement{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Kind: ast.JumpReturn, Value: intRef("n")},
		},
	}
	mod := &ast.Module{UID: 1, Identifier: "main", Functions: []*ast.FunctionDecl{fn}}

	out, err := Build(mod)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	head := []byte{opBlock, blockTypeEmpty, opLoop, blockTypeEmpty, opLocalGet, 0x00, opI32Const, 0x00, opI32GtS, opI32Eqz, opBrIf, 0x01}
	if !bytes.Contains(out, head) {
		t.Fatalf("expected while head %x to appear in %x", head, out)
	}
	tail := []byte{opLocalSet, 0x00, opBr, 0x00, opEnd, opEnd}
	if !bytes.Contains(out, tail) {
		t.Fatalf("expected while tail %x to appear in %x", tail, out)
	}
}

// TestBuild_ForLoop checks that a for statement allocates two extra
// i32 locals (index and evaluated bound) and increments the index at
// the loop tail.
func TestBuild_ForLoop(t *testing.T) {
	sig := &types.FunctionType{Params: nil, Ret: types.Primitive(types.Int)}
	fn := &ast.FunctionDecl{
		Name: "count",
		Sig:  sig,
		Body: []ast.Node{
			&ast.VariableDecl{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Name: "total", Value: intLit(0)},
			&ast.ForStatement{
				Base:     ast.NewBase(token.Position{}, types.Primitive(types.Nothing)),
				IterName: "i",
				Min:      intLit(0),
				Max:      intLit(3),
				Body: []ast.Node{
					&ast.VariableAsgn{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Name: "total",
						Value: &ast.MathOperation{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Lit: "+", Left: intRef("total"), Right: intRef("i")}},
				},
			},
			&ast.ReturnStatement{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Kind: ast.JumpReturn, Value: intRef("total")},
		},
	}
	mod := &ast.Module{UID: 1, Identifier: "main", Functions: []*ast.FunctionDecl{fn}}

	out, err := Build(mod)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// locals: total=0, i=1, bound=2; the exit test compares i against
	// the bound and the tail increments i before branching back.
	head := []byte{opLocalGet, 0x01, opLocalGet, 0x02, opI32GeS, opBrIf, 0x01}
	if !bytes.Contains(out, head) {
		t.Fatalf("expected for-loop exit test %x to appear in %x", head, out)
	}
	tail := []byte{opLocalGet, 0x01, opI32Const, 0x01, opI32Add, opLocalSet, 0x01, opBr, 0x00, opEnd, opEnd}
	if !bytes.Contains(out, tail) {
		t.Fatalf("expected for-loop tail %x to appear in %x", tail, out)
	}
}

// TestBuild_BreakInLoop checks a bare break branches out of the
// enclosing loop's exit block, through an intervening if frame.
func TestBuild_BreakInLoop(t *testing.T) {
	sig := &types.FunctionType{Params: []types.Type{types.Primitive(types.Int)}, Ret: types.Primitive(types.Int)}
	fn := &ast.FunctionDecl{
		Name:   "findLimit",
		Params: []string{"n"},
		Sig:    sig,
		Body: []ast.Node{
			&ast.WhileStatement{
				Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)),
				Cond: &ast.Literal{Base: ast.NewBase(token.Position{}, types.Primitive(types.Bool)), Value: true},
				Body: []ast.Node{
					&ast.IfStatement{
						Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)),
						Cond: &ast.BoolOperation{Base: ast.NewBase(token.Position{}, types.Primitive(types.Bool)), Lit: ">", Left: intRef("n"), Right: intLit(10)},
						Then: []ast.Node{
							&ast.ReturnStatement{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Kind: ast.JumpBreak},
						},
					},
					&ast.VariableAsgn{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Name: "n",
						Value: &ast.MathOperation{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Lit: "+", Left: intRef("n"), Right: intLit(1)}},
				},
			},
			&ast.ReturnStatement{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Kind: ast.JumpReturn, Value: intRef("n")},
		},
	}
	mod := &ast.Module{UID: 1, Identifier: "main", Functions: []*ast.FunctionDecl{fn}}

	out, err := Build(mod)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Inside block(0)/loop(1)/if(2) a break must use label 2 to leave
	// the block.
	want := []byte{opIf, blockTypeEmpty, opBr, 0x02, opEnd}
	if !bytes.Contains(out, want) {
		t.Fatalf("expected break branch %x to appear in %x", want, out)
	}
}

// TestBuild_ModuleBytesSnapshot pins the exact encoded module for a
// two-function program exercising calls, locals and a for loop,
// so any encoding change shows up as a reviewable hex diff.
func TestBuild_ModuleBytesSnapshot(t *testing.T) {
	intSig := &types.FunctionType{Params: []types.Type{types.Primitive(types.Int)}, Ret: types.Primitive(types.Int)}
	double := &ast.FunctionDecl{
		Name:   "double",
		Params: []string{"x"},
		Sig:    intSig,
		Body: []ast.Node{
			&ast.ReturnStatement{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Kind: ast.JumpReturn,
				Value: &ast.MathOperation{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Lit: "*", Left: intRef("x"), Right: intLit(2)}},
		},
	}
	main := &ast.FunctionDecl{
		Name: "main",
		Sig:  &types.FunctionType{Params: nil, Ret: types.Primitive(types.Int)},
		Body: []ast.Node{
			&ast.VariableDecl{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Name: "total", Value: intLit(0)},
			&ast.ForStatement{
				Base:     ast.NewBase(token.Position{}, types.Primitive(types.Nothing)),
				IterName: "i",
				Min:      intLit(0),
				Max:      intLit(4),
				Body: []ast.Node{
					&ast.VariableAsgn{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Name: "total",
						Value: &ast.MathOperation{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)), Lit: "+", Left: intRef("total"),
							Right: &ast.FunctionInvok{Base: ast.NewBase(token.Position{}, types.Primitive(types.Int)),
								Callee: &ast.VariableRef{Base: ast.NewBase(token.Position{}, intSig.Ret), Name: "double"}, Args: []ast.Node{intRef("i")}}}},
				},
			},
			&ast.ReturnStatement{Base: ast.NewBase(token.Position{}, types.Primitive(types.Nothing)), Kind: ast.JumpReturn, Value: intRef("total")},
		},
	}
	mod := &ast.Module{UID: 1, Identifier: "main", Functions: []*ast.FunctionDecl{double, main}}

	out, err := Build(mod)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	snaps.MatchSnapshot(t, hex.Dump(out))
}

// TestBuild_Unsupported checks that a Vector-typed parameter is
// rejected rather than silently mis-encoded.
func TestBuild_Unsupported(t *testing.T) {
	elem := types.Primitive(types.Int)
	sig := &types.FunctionType{Params: []types.Type{types.VectorOf(elem)}, Ret: types.Primitive(types.Nothing)}
	fn := &ast.FunctionDecl{Name: "sumVec", Params: []string{"v"}, Sig: sig, Body: nil}
	mod := &ast.Module{UID: 1, Identifier: "main", Functions: []*ast.FunctionDecl{fn}}

	_, err := Build(mod)
	if err == nil {
		t.Fatal("expected an error for a Vector parameter")
	}
}

// TestBuild_SkipsClassMethods checks that class methods are excluded
// from lowering rather than rejected for their unencodeable "self".
func TestBuild_SkipsClassMethods(t *testing.T) {
	handle := &types.ClassHandle{Name: "Counter"}
	method := &ast.FunctionDecl{
		Name:   "Counter.reset",
		Params: []string{},
		Sig:    &types.FunctionType{Params: nil, Ret: types.Primitive(types.Nothing)},
		Class:  handle,
	}
	mod := &ast.Module{UID: 1, Identifier: "main", Functions: []*ast.FunctionDecl{method}}

	out, err := Build(mod)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// an empty function set still produces a valid (empty) module.
	if !bytes.Equal(out[:4], wasmMagic) {
		t.Fatalf("expected a well-formed empty module, got %x", out)
	}
}
