package registry

import "errors"

// Sentinel errors returned by registry operations. Callers should use
// errors.Is to detect them as they may be wrapped with contextual details.
var (
	// ErrNotFound is returned when no instance with the requested id exists.
	ErrNotFound = errors.New("registry: instance not found")

	// ErrAlreadyExists is returned when creating an instance whose id is
	// already taken.
	ErrAlreadyExists = errors.New("registry: instance already exists")

	// ErrCapacityExceeded is returned when the configured maximum instance
	// count is reached.
	ErrCapacityExceeded = errors.New("registry: capacity exceeded")

	// ErrMissingField is returned when a create request lacks a required
	// field.
	ErrMissingField = errors.New("registry: missing required field")

	// ErrMalformedDefinition is returned when a definition cannot be parsed
	// or fails validation.
	ErrMalformedDefinition = errors.New("registry: malformed definition")
)
