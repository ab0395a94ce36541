/*
store.go - Persistence interfaces for progress state and atomic commits

PURPOSE:
  Defines the contract a storage layer must satisfy. No database is
  mandated; anything that can do a conditional insert and an atomic
  two-write commit qualifies.

INTERFACES:
  StateStore:  UserProgressState repository with optimistic versioning
  Store:       LedgerStore + StateStore
  TxStore:     Store + WithTx for the atomic persist-and-commit step

ATOMICITY:
  Step 7 of the reward algorithm persists the new progress state and
  commits the ledger entry as ONE unit - both succeed or neither does.
  The Engine therefore requires a TxStore.

CONCURRENCY:
  SaveProgress is a compare-and-swap on Version. The Engine additionally
  serializes same-user calls with a per-user lock, so a CAS failure means
  an external writer touched the row - surfaced as retryable.

IMPLEMENTATIONS:
  - store/memory.go: In-memory (tests, dev)
  - store/sqlite:    SQLite (production path)
*/
package gamify

import "context"

// StateStore persists per-user progress aggregates.
type StateStore interface {
	// GetProgress returns the user's state, or nil if the user has no
	// applied events yet.
	GetProgress(ctx context.Context, userID UserID) (*UserProgressState, error)

	// SaveProgress writes the state if the stored version still equals
	// expectedVersion (0 for a first write). Returns
	// ErrConcurrentModification on a version mismatch.
	SaveProgress(ctx context.Context, state *UserProgressState, expectedVersion int64) error
}

// Store bundles the ledger and state repositories.
type Store interface {
	LedgerStore
	StateStore
}

// TxStore adds atomic multi-write support.
type TxStore interface {
	Store

	// WithTx executes fn against a transactional view. If fn returns an
	// error every write inside it is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
