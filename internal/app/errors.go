package engine

import "errors"

// Sentinel kinds for engine errors.
var (
	// ErrInvalidInput marks caller errors (blank identifiers). Never retried.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable marks a transient store failure that survived the retry
	// budget. The gateway surfaces it as retryable; the submission was not
	// applied.
	ErrUnavailable = errors.New("leaderboard temporarily unavailable")

	// ErrNotStarted is returned when operations are invoked before Start.
	ErrNotStarted = errors.New("engine not started")
)
