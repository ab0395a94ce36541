/*
ledger.go - Reward ledger contract (the exactly-once guarantee)

PURPOSE:
  The ledger is the durable record of every applied reward, keyed by the
  caller-supplied idempotency token. It is what makes Apply safe to retry:
  a token is rewarded at most once, and replays return the original result.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: Committed entries are never mutated or deleted. Any
     reversal is an explicit audit path outside this engine.
  2. ATOMIC RESERVE: TryReserve for the same token is atomic across
     concurrent callers (unique-constraint insert or conditional put).
  3. REPLAY: A reserve attempt after a commit observes AlreadyApplied and
     the original entry - the caller returns its stored result verbatim.

RESERVATION LIFECYCLE:
  TryReserve -> Reserved      the caller computes and then Commit(entry)
  TryReserve -> AlreadyApplied  idempotent replay, no recomputation
  Release(token)              abort path (StaleEvent, commit failure)

SEE ALSO:
  - store.go: Progress-state persistence and the atomic-commit contract
  - store/memory.go: In-memory implementation
  - store/sqlite: Production implementation
*/
package gamify

import "context"

// ReservationStatus is the outcome of TryReserve.
type ReservationStatus string

const (
	// Reserved means this caller holds the token and must Commit or Release.
	Reserved ReservationStatus = "reserved"

	// AlreadyApplied means the token was committed before; Entry carries
	// the original applied reward.
	AlreadyApplied ReservationStatus = "already_applied"
)

// Reservation is the result of TryReserve.
type Reservation struct {
	Status ReservationStatus
	Entry  *LedgerEntry // set when Status == AlreadyApplied
}

// LedgerStore is the durable reward ledger keyed by idempotency token.
type LedgerStore interface {
	// TryReserve atomically claims a token. Exactly one concurrent caller
	// wins a Reserved result; callers racing an in-flight reservation get
	// ErrReservationPending (retryable).
	TryReserve(ctx context.Context, token string) (Reservation, error)

	// Commit finalizes a reserved token with its applied entry.
	// Returns ErrNoReservation if the token is not held.
	Commit(ctx context.Context, entry LedgerEntry) error

	// Release frees a reserved, uncommitted token (abort path).
	// Releasing an unreserved token is a no-op.
	Release(ctx context.Context, token string) error

	// Get returns the committed entry for a token, or nil if none exists.
	Get(ctx context.Context, token string) (*LedgerEntry, error)

	// Entries returns all committed entries for a user, oldest first.
	Entries(ctx context.Context, userID UserID) ([]LedgerEntry, error)
}
