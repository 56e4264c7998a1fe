package store

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrDuplicateEvent marks an event id that was already claimed. Callers
	// treat it as the replay signal, not a failure.
	ErrDuplicateEvent = errors.New("duplicate event id")

	// ErrUnavailable marks an infrastructural store failure. The enclosing
	// transaction left no partial state, so retries are safe.
	ErrUnavailable = errors.New("event store unavailable")
)
