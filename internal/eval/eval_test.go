package eval

import (
	"testing"

	"github.com/portal-lang/portal/internal/lexer"
	"github.com/portal-lang/portal/internal/module"
	"github.com/portal-lang/portal/internal/parser"
	"github.com/portal-lang/portal/internal/token"
)

func mustTokenize(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	return toks
}

// memImporter resolves identifiers against an in-memory source map,
// used to drive the lexer/pre-parser/parser/loader pipeline end to
// end without touching a filesystem.
type memImporter struct {
	sources map[string]string
}

func (m *memImporter) GetUniqueIdentifier(identifier string) (module.UID, bool) {
	if _, ok := m.sources[identifier]; !ok {
		return 0, false
	}
	return module.DeriveUID(identifier), true
}

func (m *memImporter) LoadModule(identifier string) (string, bool) {
	src, ok := m.sources[identifier]
	return src, ok
}

func loadMain(t *testing.T, sources map[string]string) (*Evaluator, module.UID) {
	t.Helper()
	imp := &memImporter{sources: sources}
	loader := parser.NewLoader()
	mod, deps, err := loader.Load("main", imp)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ev := NewEvaluator()
	for _, dep := range deps {
		if err := ev.Load(dep); err != nil {
			t.Fatalf("Load dep %s: %v", dep.Identifier, err)
		}
	}
	if err := ev.Load(mod); err != nil {
		t.Fatalf("Load main: %v", err)
	}
	return ev, mod.UID
}

// TestCall_FlatPrecedence pins down that `2 + 3 * 4` evaluates left
// to right under flat precedence, yielding 20 rather than the
// operator-precedence-climbing answer of 14.
func TestCall_FlatPrecedence(t *testing.T) {
	src := "func main(): int\n    return 2 + 3 * 4\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	result, err := ev.Call(uid, "main", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	iv, ok := result.(IntValue)
	if !ok || iv.Value != 20 {
		t.Fatalf("expected IntValue{20}, got %#v", result)
	}
}

func TestCall_FunctionArgs(t *testing.T) {
	src := "func add(a: int, b: int): int\n    return a + b\n" +
		"func main(): int\n    return add(40, 2)\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	result, err := ev.Call(uid, "main", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	iv, ok := result.(IntValue)
	if !ok || iv.Value != 42 {
		t.Fatalf("expected IntValue{42}, got %#v", result)
	}
}

func TestCall_VectorIndex(t *testing.T) {
	src := "var v = [1, 2, 3]\n" +
		"func main(): int\n    return v[1]\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	result, err := ev.Call(uid, "main", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	iv, ok := result.(IntValue)
	if !ok || iv.Value != 2 {
		t.Fatalf("expected IntValue{2}, got %#v", result)
	}
}

func TestCall_VectorIndexOutOfBounds(t *testing.T) {
	src := "var v = [1, 2, 3]\n" +
		"func main(): int\n    return v[5]\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	_, err := ev.Call(uid, "main", nil)
	if err == nil {
		t.Fatal("expected an out-of-bounds error")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != ErrIndexOutOfBounds {
		t.Fatalf("expected ErrIndexOutOfBounds, got %#v", err)
	}
}

// TestCall_ForLoopVectorAssign builds [0,1,2] by walking a pre-sized
// vector and writing each index through the computed-index assign
// path (v[i] = i), since no append/push primitive exists.
func TestCall_ForLoopVectorAssign(t *testing.T) {
	src := "func main(): int\n" +
		"    var v = [0, 0, 0]\n" +
		"    for i in 0..3\n" +
		"        v[i] = i\n" +
		"    return v[0] + v[1] + v[2]\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	result, err := ev.Call(uid, "main", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	iv, ok := result.(IntValue)
	if !ok || iv.Value != 3 {
		t.Fatalf("expected IntValue{3} (0+1+2), got %#v", result)
	}
}

func TestCall_ForLoopEmptyRange(t *testing.T) {
	src := "func main(): int\n" +
		"    var total = 0\n" +
		"    for i in 3..3\n" +
		"        total = total + 1\n" +
		"    return total\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	result, err := ev.Call(uid, "main", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	iv, ok := result.(IntValue)
	if !ok || iv.Value != 0 {
		t.Fatalf("expected IntValue{0} for an empty range, got %#v", result)
	}
}

func TestCall_DivideByZero(t *testing.T) {
	src := "func main(): int\n    return 1 / 0\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	_, err := ev.Call(uid, "main", nil)
	if err == nil {
		t.Fatal("expected a divide-by-zero error")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != ErrDivideByZero {
		t.Fatalf("expected ErrDivideByZero, got %#v", err)
	}
}

// TestCall_CrossModule checks that two modules, one importing the
// other, resolve the imported function's own module-level globals
// correctly and that the shared dependency is only loaded once.
func TestCall_CrossModule(t *testing.T) {
	sources := map[string]string{
		"b":    "func pi(): float\n    return 3.14\n",
		"main": "import \"b\"\nfunc main(): float\n    return pi()\n",
	}
	ev, uid := loadMain(t, sources)

	result, err := ev.Call(uid, "main", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	fv, ok := result.(FloatValue)
	if !ok || fv.Value != 3.14 {
		t.Fatalf("expected FloatValue{3.14}, got %#v", result)
	}
}

func TestLoad_CircularImport(t *testing.T) {
	sources := map[string]string{
		"a": "import \"b\"\nfunc a(): int\n    return 1\n",
		"b": "import \"a\"\nfunc b(): int\n    return 1\n",
	}
	imp := &memImporter{sources: sources}
	loader := parser.NewLoader()
	_, _, err := loader.Load("a", imp)
	if err == nil {
		t.Fatal("expected a circular import error")
	}
	e, ok := err.(*module.Error)
	if !ok || e.Kind != module.ErrCircularImport {
		t.Fatalf("expected ErrCircularImport, got %#v", err)
	}
}

func TestLoad_EmptyModule(t *testing.T) {
	ev, uid := loadMain(t, map[string]string{"main": "\n"})
	if _, found := ev.modules[uid]; !found {
		t.Fatal("expected an empty module to still register a moduleEnv")
	}
}

// TestCall_ClassConstructAndMethods constructs a class through its
// "new" constructor, writes a field from outside, and calls one
// method from another through self.
func TestCall_ClassConstructAndMethods(t *testing.T) {
	src := "class Point\n" +
		"    var x: int\n" +
		"    var y: int\n" +
		"    func new(a: int, b: int)\n" +
		"        self.x = a\n" +
		"        self.y = b\n" +
		"    func sum(): int\n" +
		"        return self.x + self.y\n" +
		"    func scaled(): int\n" +
		"        return self.sum() * 2\n" +
		"func main(): int\n" +
		"    var p = Point(3, 4)\n" +
		"    p.y = 5\n" +
		"    return p.scaled()\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	result, err := ev.Call(uid, "main", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	iv, ok := result.(IntValue)
	if !ok || iv.Value != 16 {
		t.Fatalf("expected IntValue{16} (2*(3+5)), got %#v", result)
	}
}

// TestCall_ClassFieldRead checks a plain field read on a constructed
// instance from outside the class.
func TestCall_ClassFieldRead(t *testing.T) {
	src := "class Counter\n" +
		"    var n: int\n" +
		"    func new(start: int)\n" +
		"        self.n = start\n" +
		"func main(): int\n" +
		"    var c = Counter(41)\n" +
		"    return c.n + 1\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	result, err := ev.Call(uid, "main", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	iv, ok := result.(IntValue)
	if !ok || iv.Value != 42 {
		t.Fatalf("expected IntValue{42}, got %#v", result)
	}
}

// TestCall_EnumConstructAndPayload constructs variants with and
// without a payload and checks what the host receives, plus variant
// equality.
func TestCall_EnumConstructAndPayload(t *testing.T) {
	src := "enum Shape\n" +
		"    Circle(float)\n" +
		"    Square\n" +
		"func circle(): Shape\n" +
		"    return Shape.Circle(2.5)\n" +
		"func square(): Shape\n" +
		"    return Shape.Square\n" +
		"func sameShape(): bool\n" +
		"    return Shape.Square == Shape.Square\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	c, err := ev.Call(uid, "circle", nil)
	if err != nil {
		t.Fatalf("Call(circle): %v", err)
	}
	cv, ok := c.(EnumValue)
	if !ok || cv.EnumName != "Shape" || cv.Variant != "Circle" {
		t.Fatalf("expected Shape.Circle, got %#v", c)
	}
	payload, ok := cv.Payload.(FloatValue)
	if !ok || payload.Value != 2.5 {
		t.Fatalf("expected FloatValue{2.5} payload, got %#v", cv.Payload)
	}

	s, err := ev.Call(uid, "square", nil)
	if err != nil {
		t.Fatalf("Call(square): %v", err)
	}
	sv, ok := s.(EnumValue)
	if !ok || sv.Variant != "Square" || sv.Payload != nil {
		t.Fatalf("expected payload-less Shape.Square, got %#v", s)
	}

	same, err := ev.Call(uid, "sameShape", nil)
	if err != nil {
		t.Fatalf("Call(sameShape): %v", err)
	}
	bv, ok := same.(BoolValue)
	if !ok || !bv.Value {
		t.Fatalf("expected equal variants to compare true, got %#v", same)
	}
}

// TestLoad_EnumVariantErrors checks the two construction-time
// rejections: an unknown variant name and an argument passed to a
// payload-less variant.
func TestLoad_EnumVariantErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		kind parser.ErrKind
	}{
		{"unknown variant", "enum Shape\n    Square\nfunc main(): Shape\n    return Shape.Triangle\n", parser.ErrInvalidEnumVariant},
		{"payload on payload-less variant", "enum Shape\n    Square\nfunc main(): Shape\n    return Shape.Square(1)\n", parser.ErrInvalidArgCount},
	}
	for _, c := range cases {
		imp := &memImporter{sources: map[string]string{"main": c.src}}
		_, _, err := parser.NewLoader().Load("main", imp)
		if err == nil {
			t.Fatalf("%s: expected an error", c.name)
		}
		perr, ok := err.(*parser.Error)
		if !ok || perr.Kind != c.kind {
			t.Fatalf("%s: expected kind %v, got %#v", c.name, c.kind, err)
		}
	}
}

// TestCall_BoolOperandsBothEvaluated pins the language decision that
// boolean operators never short-circuit: the right operand is
// evaluated (and its failure surfaces) even when the left operand
// alone would already decide the comparison.
func TestCall_BoolOperandsBothEvaluated(t *testing.T) {
	src := "var v = [1]\n" +
		"func main(): bool\n    return (1 == 2) == (v[5] == 1)\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	_, err := ev.Call(uid, "main", nil)
	if err == nil {
		t.Fatal("expected the right operand's out-of-bounds error to surface")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != ErrIndexOutOfBounds {
		t.Fatalf("expected ErrIndexOutOfBounds, got %#v", err)
	}
}

// TestCall_ExternalFunction drives a definition module bound to a host
// handler through the evaluator's cross-module reference path.
func TestCall_ExternalFunction(t *testing.T) {
	imp := &memImporter{sources: map[string]string{
		"main": "import \"host\"\nfunc main(): int\n    return triple(14)\n",
	}}
	loader := parser.NewLoader()
	ev := NewEvaluator()

	extUID := module.DeriveUID("host")
	hostTokens := mustTokenize(t, "func triple(x: int): int\n")
	pm, err := module.PreParse("host", extUID, hostTokens, true)
	if err != nil {
		t.Fatalf("PreParse: %v", err)
	}
	ext, err := parser.ParseDefinition(pm)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	loader.InsertModule(ext)
	err = ev.LoadExternal(ext, map[string]ExtHandler{
		"triple": func(args []Value) (Value, error) {
			x := args[0].(IntValue)
			return IntValue{Value: x.Value * 3}, nil
		},
	})
	if err != nil {
		t.Fatalf("LoadExternal: %v", err)
	}

	mod, _, err := loader.Load("main", &extImporter{inner: imp, externals: map[string]module.UID{"host": extUID}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := ev.Load(mod); err != nil {
		t.Fatalf("Load main: %v", err)
	}
	result, err := ev.Call(mod.UID, "main", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	iv, ok := result.(IntValue)
	if !ok || iv.Value != 42 {
		t.Fatalf("expected IntValue{42}, got %#v", result)
	}
}

// extImporter resolves external identifiers to pre-inserted UIDs and
// delegates everything else.
type extImporter struct {
	inner     *memImporter
	externals map[string]module.UID
}

func (e *extImporter) GetUniqueIdentifier(identifier string) (module.UID, bool) {
	if uid, ok := e.externals[identifier]; ok {
		return uid, true
	}
	return e.inner.GetUniqueIdentifier(identifier)
}

func (e *extImporter) LoadModule(identifier string) (string, bool) {
	return e.inner.LoadModule(identifier)
}

// TestCall_HostParamCountMismatch checks the host-facing Call path
// (arguments supplied directly by Go code, not statically checked by
// the parser) rejects a wrong argument count.
func TestCall_HostParamCountMismatch(t *testing.T) {
	src := "func add(a: int, b: int): int\n    return a + b\n"
	ev, uid := loadMain(t, map[string]string{"main": src})

	_, err := ev.Call(uid, "add", []Value{IntValue{Value: 1}})
	if err == nil {
		t.Fatal("expected a param-count mismatch error")
	}
	e, ok := err.(*Error)
	if !ok || e.Kind != ErrFuncInvalidParamCount {
		t.Fatalf("expected ErrFuncInvalidParamCount, got %#v", err)
	}
}
