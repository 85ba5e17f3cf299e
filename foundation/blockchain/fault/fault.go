// Package fault defines the error taxonomy shared by the ledger packages.
// Every failure a caller can act on carries a Kind so the transport layer
// can map it without knowing which package produced it.
package fault

import (
	"errors"
	"fmt"
)

// Kind represents the category of a ledger failure.
type Kind string

// Set of known failure kinds.
const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindChainCorruption Kind = "chain_corruption"
)

// Error wraps a cause with the operation that failed and its kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

// Unwrap returns the underlying cause so errors.Is works on sentinels.
func (e *Error) Unwrap() error {
	return e.Err
}

// =============================================================================

// Validation marks err as a caller recoverable input problem.
func Validation(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// Validationf is Validation with a formatted message.
func Validationf(op string, format string, args ...any) error {
	return Validation(op, fmt.Errorf(format, args...))
}

// NotFound marks err as a reference to an unknown identifier.
func NotFound(op string, err error) error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

// ChainCorruption marks err as the fatal broken chain condition.
func ChainCorruption(op string, err error) error {
	return &Error{Kind: KindChainCorruption, Op: op, Err: err}
}

// =============================================================================

// KindOf returns the kind of the first fault in the chain or the empty
// kind when err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if !errors.As(err, &fe) {
		return ""
	}
	return fe.Kind
}

// Is reports whether err carries the specified kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
