package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is; specific errors below wrap one of them.
var (
	// ErrNotFound is returned when a session, content or item reference does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCompleted is returned when an answer targets a completed session.
	ErrAlreadyCompleted = errors.New("session already completed")
	// ErrOutOfSequence is returned when an answer does not target the session cursor,
	// including when a concurrent submission advanced the cursor first.
	ErrOutOfSequence = errors.New("answer out of sequence")
	// ErrNotReady is returned when results are requested before completion.
	ErrNotReady = errors.New("session not completed yet")
	// ErrStoreUnavailable indicates the persistence layer timed out or failed.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidArgument rejects malformed input such as a negative XP amount.
	ErrInvalidArgument = errors.New("invalid argument")
)

var (
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrContentNotFound = fmt.Errorf("content %w", ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("question %w", ErrNotFound)
)

// IsDomainError reports whether err belongs to the engine taxonomy rather than
// to a failing store.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrOutOfSequence) ||
		errors.Is(err, ErrNotReady) ||
		errors.Is(err, ErrInvalidArgument)
}
