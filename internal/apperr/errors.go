// Package apperr defines the error taxonomy shared across the vault engine.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a lookup for a record id that does not exist.
	// Callers treat this as a normal outcome (broken links are expected).
	ErrNotFound = errors.New("not found")

	// ErrInvalidCategory marks a write addressed to a category outside the
	// configured set. Rejected before any disk mutation.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrPersist marks a refusal of the underlying storage medium. It is the
	// only error class that aborts a write; everything else is recovered
	// close to its origin.
	ErrPersist = errors.New("persist failure")

	// ErrCorrupt matches any *CorruptError via errors.Is.
	ErrCorrupt = errors.New("corrupt record")
)

// CorruptError reports a record whose metadata block cannot be parsed.
// It carries the offending path so scans can log and skip the file,
// and so direct readers can distinguish "broken" from "missing".
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt record %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrCorrupt) match any CorruptError.
func (e *CorruptError) Is(target error) bool { return target == ErrCorrupt }

// Corrupt wraps a decode error with the path it came from.
func Corrupt(path string, err error) error {
	return &CorruptError{Path: path, Err: err}
}
