package module

import (
	"fmt"

	"github.com/portal-lang/portal/internal/token"
)

// ErrKind enumerates the Load error family.
type ErrKind int

const (
	ErrModuleNotFound ErrKind = iota
	ErrLoadModuleError
	ErrCircularImport
)

// Error is a Load-family failure: it always names the offending
// module identifier. The loader builds it without a source position,
// so Pos is the zero value.
type Error struct {
	Kind       ErrKind
	Identifier string
	Pos        token.Position
}

// Position implements the shared errors.Positioned interface.
func (e *Error) Position() token.Position { return e.Pos }

func (e *Error) Error() string {
	switch e.Kind {
	case ErrModuleNotFound:
		return fmt.Sprintf("module not found: %q", e.Identifier)
	case ErrLoadModuleError:
		return fmt.Sprintf("failed to load module: %q", e.Identifier)
	case ErrCircularImport:
		return fmt.Sprintf("circular import: %q", e.Identifier)
	}
	return "unknown load error"
}
