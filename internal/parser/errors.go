package parser

import (
	"fmt"

	"github.com/portal-lang/portal/internal/token"
	"github.com/portal-lang/portal/internal/types"
)

// ErrKind enumerates the Parser error family.
type ErrKind int

const (
	ErrUnexpectedToken ErrKind = iota
	ErrUnexpectedEndOfFile
	ErrWrongType
	ErrVarNotFound
	ErrNotCallable
	ErrNotIndexable
	ErrFieldDoesntExist
	ErrInvalidFieldAccess
	ErrInvalidArgCount
	ErrInvalidEnumVariant
	ErrUnexpectedError
)

// Error is one Parser-family failure, reported against the offending
// token's position.
type Error struct {
	Kind     ErrKind
	Pos      token.Position
	Token    string
	Expected types.Type
	Got      types.Type
	Name     string
	Msg      string
}

// Position implements the shared errors.Positioned interface.
func (e *Error) Position() token.Position { return e.Pos }

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUnexpectedToken:
		return fmt.Sprintf("unexpected token %q at %s", e.Token, e.Pos)
	case ErrUnexpectedEndOfFile:
		return fmt.Sprintf("unexpected end of file at %s", e.Pos)
	case ErrWrongType:
		return fmt.Sprintf("wrong type at %s: expected %s, got %s", e.Pos, e.Expected, e.Got)
	case ErrVarNotFound:
		return fmt.Sprintf("variable %q not found at %s", e.Name, e.Pos)
	case ErrNotCallable:
		return fmt.Sprintf("value is not callable at %s", e.Pos)
	case ErrNotIndexable:
		return fmt.Sprintf("value is not indexable at %s", e.Pos)
	case ErrFieldDoesntExist:
		return fmt.Sprintf("field %q doesn't exist at %s", e.Name, e.Pos)
	case ErrInvalidFieldAccess:
		return fmt.Sprintf("invalid field access at %s", e.Pos)
	case ErrInvalidArgCount:
		return fmt.Sprintf("invalid argument count at %s", e.Pos)
	case ErrInvalidEnumVariant:
		return fmt.Sprintf("invalid enum variant %q at %s", e.Name, e.Pos)
	case ErrUnexpectedError:
		return fmt.Sprintf("%s at %s", e.Msg, e.Pos)
	}
	return "unknown parser error"
}
