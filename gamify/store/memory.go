// Package store provides gamify.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/reward-engine/gamify"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type reservationState int

const (
	stateReserved reservationState = iota
	stateCommitted
)

type reservation struct {
	state reservationState
	entry *gamify.LedgerEntry
}

// Memory implements gamify.TxStore in memory. A single mutex guards both
// maps; WithTx simulates a transaction with snapshot + rollback.
type Memory struct {
	mu           sync.RWMutex
	reservations map[string]*reservation
	progress     map[gamify.UserID]*gamify.UserProgressState
	order        []string // committed tokens in commit order
}

func NewMemory() *Memory {
	return &Memory{
		reservations: make(map[string]*reservation),
		progress:     make(map[gamify.UserID]*gamify.UserProgressState),
	}
}

// TryReserve atomically claims a token.
func (m *Memory) TryReserve(_ context.Context, token string) (gamify.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.reservations[token]; ok {
		if r.state == stateCommitted {
			entry := *r.entry
			return gamify.Reservation{Status: gamify.AlreadyApplied, Entry: &entry}, nil
		}
		return gamify.Reservation{}, gamify.ErrReservationPending
	}

	m.reservations[token] = &reservation{state: stateReserved}
	return gamify.Reservation{Status: gamify.Reserved}, nil
}

// Commit finalizes a reserved token.
func (m *Memory) Commit(_ context.Context, entry gamify.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commitLocked(entry)
}

func (m *Memory) commitLocked(entry gamify.LedgerEntry) error {
	r, ok := m.reservations[entry.Token]
	if !ok || r.state != stateReserved {
		return gamify.ErrNoReservation
	}
	e := entry
	r.state = stateCommitted
	r.entry = &e
	m.order = append(m.order, entry.Token)
	return nil
}

// Release frees a reserved, uncommitted token.
func (m *Memory) Release(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.reservations[token]; ok && r.state == stateReserved {
		delete(m.reservations, token)
	}
	return nil
}

// Get returns the committed entry for a token, or nil.
func (m *Memory) Get(_ context.Context, token string) (*gamify.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if r, ok := m.reservations[token]; ok && r.state == stateCommitted {
		entry := *r.entry
		return &entry, nil
	}
	return nil, nil
}

// Entries returns committed entries for a user in commit order.
func (m *Memory) Entries(_ context.Context, userID gamify.UserID) ([]gamify.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []gamify.LedgerEntry
	for _, token := range m.order {
		r := m.reservations[token]
		if r != nil && r.state == stateCommitted && r.entry.UserID == userID {
			entries = append(entries, *r.entry)
		}
	}
	return entries, nil
}

// GetProgress returns a deep copy of the user's state, or nil.
func (m *Memory) GetProgress(_ context.Context, userID gamify.UserID) (*gamify.UserProgressState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.progress[userID]
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

// SaveProgress writes state under an optimistic version check.
func (m *Memory) SaveProgress(_ context.Context, state *gamify.UserProgressState, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveProgressLocked(state, expectedVersion)
}

func (m *Memory) saveProgressLocked(state *gamify.UserProgressState, expectedVersion int64) error {
	existing, ok := m.progress[state.UserID]
	if ok && existing.Version != expectedVersion {
		return gamify.ErrConcurrentModification
	}
	if !ok && expectedVersion != 0 {
		return gamify.ErrConcurrentModification
	}
	m.progress[state.UserID] = state.Clone()
	return nil
}

// =============================================================================
// TRANSACTIONAL SUPPORT
// =============================================================================

// WithTx executes fn atomically: on error the pre-fn state is restored.
func (m *Memory) WithTx(ctx context.Context, fn func(gamify.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	reservations map[string]*reservation
	progress     map[gamify.UserID]*gamify.UserProgressState
	order        []string
}

func (m *Memory) snapshot() memorySnapshot {
	res := make(map[string]*reservation, len(m.reservations))
	for k, v := range m.reservations {
		cp := *v
		res[k] = &cp
	}
	prog := make(map[gamify.UserID]*gamify.UserProgressState, len(m.progress))
	for k, v := range m.progress {
		prog[k] = v.Clone()
	}
	return memorySnapshot{
		reservations: res,
		progress:     prog,
		order:        append([]string{}, m.order...),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.reservations = s.reservations
	m.progress = s.progress
	m.order = s.order
}

// txMemoryView routes writes to the parent while its lock is held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) TryReserve(_ context.Context, token string) (gamify.Reservation, error) {
	if r, ok := tv.parent.reservations[token]; ok {
		if r.state == stateCommitted {
			entry := *r.entry
			return gamify.Reservation{Status: gamify.AlreadyApplied, Entry: &entry}, nil
		}
		return gamify.Reservation{}, gamify.ErrReservationPending
	}
	tv.parent.reservations[token] = &reservation{state: stateReserved}
	return gamify.Reservation{Status: gamify.Reserved}, nil
}

func (tv *txMemoryView) Commit(_ context.Context, entry gamify.LedgerEntry) error {
	return tv.parent.commitLocked(entry)
}

func (tv *txMemoryView) Release(_ context.Context, token string) error {
	if r, ok := tv.parent.reservations[token]; ok && r.state == stateReserved {
		delete(tv.parent.reservations, token)
	}
	return nil
}

func (tv *txMemoryView) Get(_ context.Context, token string) (*gamify.LedgerEntry, error) {
	if r, ok := tv.parent.reservations[token]; ok && r.state == stateCommitted {
		entry := *r.entry
		return &entry, nil
	}
	return nil, nil
}

func (tv *txMemoryView) Entries(ctx context.Context, userID gamify.UserID) ([]gamify.LedgerEntry, error) {
	var entries []gamify.LedgerEntry
	for _, token := range tv.parent.order {
		r := tv.parent.reservations[token]
		if r != nil && r.state == stateCommitted && r.entry.UserID == userID {
			entries = append(entries, *r.entry)
		}
	}
	return entries, nil
}

func (tv *txMemoryView) GetProgress(_ context.Context, userID gamify.UserID) (*gamify.UserProgressState, error) {
	if s, ok := tv.parent.progress[userID]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (tv *txMemoryView) SaveProgress(_ context.Context, state *gamify.UserProgressState, expectedVersion int64) error {
	return tv.parent.saveProgressLocked(state, expectedVersion)
}

// Compile-time interface checks.
var (
	_ gamify.TxStore = (*Memory)(nil)
	_ gamify.Store   = (*txMemoryView)(nil)
)
