package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the engine. All are checked with errors.Is;
// wrapped variants carry operation context.
var (
	// ErrNodeNotFound is returned when a referenced node does not exist.
	ErrNodeNotFound = errors.New("node not found")
	// ErrEdgeNotFound is returned when a referenced edge does not exist.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrDuplicateEdge is returned when an edge of the same type already
	// exists between an ordered (from, to) pair.
	ErrDuplicateEdge = errors.New("duplicate edge")
	// ErrSelfLoop is returned when an edge would connect a node to itself.
	ErrSelfLoop = errors.New("self loop not allowed")
	// ErrValidation is the errors.Is target for all ValidationError values.
	ErrValidation = errors.New("validation failed")
)

// ValidationError reports bad input rejected before any storage I/O.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError reports a graph store I/O failure. The enclosing transaction
// is rolled back, so state is unchanged when one of these surfaces.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
