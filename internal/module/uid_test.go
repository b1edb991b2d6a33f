package module

import "testing"

// TestDeriveUID_Stable pins the cache-identity invariant: equal
// identifiers always map to the same UID within a process.
func TestDeriveUID_Stable(t *testing.T) {
	a := DeriveUID("std/math")
	b := DeriveUID("std/math")
	if a != b {
		t.Fatalf("expected DeriveUID to be stable for repeated calls, got %d and %d", a, b)
	}
}

func TestDeriveUID_DistinctForDistinctIdentifiers(t *testing.T) {
	a := DeriveUID("std/math")
	b := DeriveUID("std/strings")
	if a == b {
		t.Fatalf("expected distinct identifiers to hash to distinct UIDs, both got %d", a)
	}
}
