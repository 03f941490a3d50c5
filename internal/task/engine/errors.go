package engine

import "errors"

var (
	// ErrTimeout marks an action that exceeded its task timeout. For retry
	// purposes it is treated identically to an action-returned error.
	ErrTimeout = errors.New("action timed out")

	ErrUnknownAction = errors.New("unknown action kind")
)
