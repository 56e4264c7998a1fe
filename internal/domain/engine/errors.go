package engine

import "errors"

// Sentinel kinds for engine errors. Only ErrUnknownAction and
// ErrUserNotFound are caller errors; ErrStoreUnavailable is retryable
// because the store transaction left no partial state.
var (
	ErrUnknownAction    = errors.New("unknown action kind")
	ErrUserNotFound     = errors.New("user not found")
	ErrStoreUnavailable = errors.New("score store unavailable")
)
