package jobs

import "errors"

var (
	// ErrNotFound is returned when no work order exists for an ID.
	ErrNotFound = errors.New("work order not found")
	// ErrDuplicate is returned when inserting a work ID that already exists.
	ErrDuplicate = errors.New("work order already exists")
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the order's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)
