package module

import "hash/maphash"

// UID is the 64-bit opaque module identifier: derived
// deterministically from a module's user-facing identifier string so
// equal identifiers always collapse to one cached module instance.
type UID uint64

var seed = maphash.MakeSeed()

// DeriveUID hashes identifier into a UID. The seed is fixed per
// process so two calls with the same identifier in the same run
// always agree — all that the cache's identity invariant requires.
func DeriveUID(identifier string) UID {
	var h maphash.Hash
	h.SetSeed(seed)
	h.WriteString(identifier)
	return UID(h.Sum64())
}
