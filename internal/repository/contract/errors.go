package contract

import "errors"

var (
	// ErrVersionConflict is returned when an optimistic update matched no row
	// at the expected version.
	ErrVersionConflict = errors.New("stale version")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
)
