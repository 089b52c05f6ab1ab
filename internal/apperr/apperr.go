// Package apperr defines the error kinds shared across SubSync layers.
//
// Lower layers wrap causes with fmt.Errorf("...: %w", err). The layer that
// knows which kind a failure belongs to wraps it once more with New, so
// callers can branch with errors.Is(err, apperr.ErrNotFound) while the
// original cause stays reachable through errors.Is / errors.As.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds.
var (
	// ErrInitialization means the database engine could not start. Fatal.
	ErrInitialization = errors.New("initialization failed")

	// ErrStorage means a read or write against the blob store failed.
	ErrStorage = errors.New("storage failure")

	// ErrQuota means the blob store ran out of capacity.
	ErrQuota = errors.New("storage quota exceeded")

	// ErrFormat means an import document is structurally invalid.
	ErrFormat = errors.New("invalid document format")

	// ErrNotFound means a lookup by id matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrPersistence means the database engine rejected a statement.
	ErrPersistence = errors.New("persistence failure")
)

// Error attaches a kind and the failing operation to a cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

// New wraps err as kind for operation op. A nil err yields an error that
// only carries the kind.
func New(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// FormatError reports the top-level fields missing from an import document.
type FormatError struct {
	Missing []string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid document format: missing %s", strings.Join(e.Missing, ", "))
}

// Is makes errors.Is(err, ErrFormat) hold for every FormatError.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// Kind returns the first known kind err belongs to, or nil.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInitialization, ErrQuota, ErrFormat, ErrNotFound, ErrStorage, ErrPersistence,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
