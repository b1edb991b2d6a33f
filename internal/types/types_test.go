package types

import "testing"

func TestCompatible_Primitives(t *testing.T) {
	if !Compatible(Primitive(Int), Primitive(Int)) {
		t.Fatal("int should be compatible with int")
	}
	if Compatible(Primitive(Int), Primitive(Float)) {
		t.Fatal("int should not be compatible with float")
	}
}

func TestCompatible_Unknown(t *testing.T) {
	if !Compatible(Primitive(Unknown), Primitive(Int)) {
		t.Fatal("Unknown should be compatible with anything")
	}
	if !Compatible(Primitive(String), Primitive(Unknown)) {
		t.Fatal("anything should be compatible with Unknown")
	}
}

func TestCompatible_Vector(t *testing.T) {
	if !Compatible(VectorOf(Primitive(Int)), VectorOf(Primitive(Int))) {
		t.Fatal("Vector(Int) should be compatible with Vector(Int)")
	}
	if Compatible(VectorOf(Primitive(Int)), VectorOf(Primitive(String))) {
		t.Fatal("Vector(Int) should not be compatible with Vector(String)")
	}
}

func TestCompatible_Function(t *testing.T) {
	a := FuncOf([]Type{Primitive(Int)}, Primitive(Bool))
	b := FuncOf([]Type{Primitive(Int)}, Primitive(Bool))
	if !Compatible(a, b) {
		t.Fatal("identical function signatures should be compatible")
	}
	c := FuncOf([]Type{Primitive(Float)}, Primitive(Bool))
	if Compatible(a, c) {
		t.Fatal("mismatched parameter types should not be compatible")
	}
	d := FuncOf([]Type{Primitive(Int), Primitive(Int)}, Primitive(Bool))
	if Compatible(a, d) {
		t.Fatal("mismatched arity should not be compatible")
	}
}

// TestCompatible_Object pins down the one-directional width/depth
// subtyping rule: a is compatible with b iff a's fields
// are a superset of b's, pointwise. The relation does not hold in the
// other direction when a has extra fields.
func TestCompatible_Object(t *testing.T) {
	wide := ObjectOf(map[string]Type{"x": Primitive(Int), "y": Primitive(Int)})
	narrow := ObjectOf(map[string]Type{"x": Primitive(Int)})

	if !Compatible(wide, narrow) {
		t.Fatal("a wider object should satisfy a narrower demand")
	}
	if Compatible(narrow, wide) {
		t.Fatal("a narrower object should not satisfy a wider demand")
	}
}

// TestCompatible_ClassIdentity pins down that Class/Enum compare by
// handle identity, never structurally.
func TestCompatible_ClassIdentity(t *testing.T) {
	a := &ClassHandle{Name: "Foo"}
	b := &ClassHandle{Name: "Foo"}
	if Compatible(ClassOf(a), ClassOf(b)) {
		t.Fatal("two distinct handles with the same name should not be compatible")
	}
	if !Compatible(ClassOf(a), ClassOf(a)) {
		t.Fatal("a handle should be compatible with itself")
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		t    Type
		want string
	}{
		{Primitive(Int), "int"},
		{Primitive(Nothing), "nothing"},
		{VectorOf(Primitive(String)), "[string]"},
	}
	for _, c := range cases {
		if got := c.t.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}
