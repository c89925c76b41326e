package interview

import "errors"

var (
	// ErrSessionNotFound is returned for unknown or tombstoned interview ids.
	ErrSessionNotFound = errors.New("interview session not found")

	// ErrInvalidTransition is returned when an operation is not legal in the
	// session's current state, e.g. a second final while one is in flight, or
	// input after the session ended.
	ErrInvalidTransition = errors.New("invalid interview state transition")

	// ErrConnectionLost marks a dead outbound connection. The orchestrator
	// detaches the connection; the session itself survives.
	ErrConnectionLost = errors.New("interview connection lost")

	// ErrConnectionClosed is returned when sending on an adapter that has
	// already been closed or evicted.
	ErrConnectionClosed = errors.New("interview connection closed")

	// ErrBackendUnavailable is reported by the job layer after retries against
	// the language-model backend are exhausted.
	ErrBackendUnavailable = errors.New("language model backend unavailable")
)
