/*
errors.go - Centralized error taxonomy for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The taxonomy the engine exposes to callers:

    InvalidArgument  - malformed event; caller bug, never retried
    StaleEvent       - streak date ordering violation; terminal no-op
    Storage errors   - retryable with the SAME idempotency token
    AlreadyApplied   - not an error; the idempotent-success path

USAGE:
  if gamify.IsRetryable(err) { retry with the same token }
  if gamify.IsClientError(err) { surface as 4xx, do not retry }
*/
package gamify

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned for malformed events (negative XP,
	// unknown activity kind, missing token). Indicates a caller bug.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStaleEvent is returned when an event's activity date precedes the
	// streak's last credited date. Streaks never move backward.
	ErrStaleEvent = errors.New("stale event")

	// ErrStorageUnavailable is returned when the ledger or state store
	// cannot be reached. Safe to retry with the same token.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConcurrentModification is returned when optimistic locking detects
	// a conflicting write to the user's progress state.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrReservationPending is returned when another in-flight call holds
	// the reservation for the same token. Retry after it settles.
	ErrReservationPending = errors.New("reservation pending for token")

	// ErrNoReservation is returned when Commit or Release is called for a
	// token that was never reserved. Indicates an engine bug.
	ErrNoReservation = errors.New("no reservation held for token")

	// ErrUserNotFound is returned by read paths for unknown users.
	ErrUserNotFound = errors.New("user not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidEventError explains which field of an ActivityEvent was rejected.
type InvalidEventError struct {
	Field  string
	Reason string
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

func (e *InvalidEventError) Unwrap() error { return ErrInvalidArgument }

// StaleEventError carries the dates involved in an ordering violation.
type StaleEventError struct {
	Kind         ActivityKind
	EventDate    TimePoint
	LastCredited TimePoint
}

func (e *StaleEventError) Error() string {
	return fmt.Sprintf("stale event: %s on %s precedes last credited %s",
		e.Kind, e.EventDate, e.LastCredited)
}

func (e *StaleEventError) Unwrap() error { return ErrStaleEvent }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the caller may retry with the same token.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrReservationPending)
}

// IsClientError returns true if the error is due to invalid caller input.
// These are terminal; retrying the same event cannot succeed.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrStaleEvent)
}
