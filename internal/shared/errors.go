package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrActorRequired indicates a write was attempted without an acting user.
	ErrActorRequired = errors.New("actor required")
)
