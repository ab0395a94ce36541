/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements gamify.TxStore (ledger + progress state + atomic commit) on
  SQLite. The same patterns port to PostgreSQL with minor dialect changes:
  the token reservation is a unique-constraint insert and the progress
  write is a version-guarded update.

KEY TABLES:
  ledger:        One row per idempotency token. A row is born 'reserved'
                 and flips to 'committed' exactly once with its applied
                 deltas and serialized result. Committed rows are never
                 updated or deleted.
  user_progress: The per-user aggregate with an optimistic version column.

EXACTLY-ONCE:
  TryReserve is an INSERT OR IGNORE on the token primary key. The single
  winner proceeds; losers read the row back and see either a committed
  entry (AlreadyApplied) or an in-flight reservation (retryable).

WAL MODE:
  Opened with WAL for concurrent readers and crash recovery. A process
  crash between reserve and commit leaves a 'reserved' row; Release is the
  abort path, and operators can clear stale reservations by age.

SEE ALSO:
  - gamify/ledger.go, gamify/store.go: Interface contracts
  - gamify/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/reward-engine/gamify"
)

// Store implements gamify.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers anyway; a single pooled connection avoids
	// SQLITE_BUSY under write contention and keeps ":memory:" databases
	// from fragmenting across connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Reward ledger, one row per idempotency token.
	-- Committed rows are immutable; corrections happen via an external
	-- audit path, never by editing this table.
	CREATE TABLE IF NOT EXISTS ledger (
		token TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'reserved',
		entry_id TEXT,
		user_id TEXT,
		applied_xp INTEGER,
		applied_coins INTEGER,
		achievements_json TEXT,
		result_json TEXT,
		reserved_at TEXT NOT NULL,
		applied_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_user
		ON ledger(user_id) WHERE status = 'committed';
	CREATE INDEX IF NOT EXISTS idx_ledger_status
		ON ledger(status);

	-- Per-user progress aggregate with optimistic versioning.
	CREATE TABLE IF NOT EXISTS user_progress (
		user_id TEXT PRIMARY KEY,
		total_xp INTEGER NOT NULL DEFAULT 0,
		coins INTEGER NOT NULL DEFAULT 0,
		level INTEGER NOT NULL DEFAULT 1,
		timezone TEXT NOT NULL DEFAULT '',
		streaks_json TEXT NOT NULL DEFAULT '{}',
		unlocked_json TEXT NOT NULL DEFAULT '[]',
		counts_json TEXT NOT NULL DEFAULT '{}',
		version INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	execer
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// =============================================================================
// LEDGER (gamify.LedgerStore interface)
// =============================================================================

// TryReserve atomically claims a token via the primary-key constraint.
func (s *Store) TryReserve(ctx context.Context, token string) (gamify.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tryReserve(ctx, s.db, token)
}

func (s *Store) tryReserve(ctx context.Context, db querier, token string) (gamify.Reservation, error) {
	res, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO ledger (token, status, reserved_at) VALUES (?, 'reserved', ?)`,
		token, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return gamify.Reservation{}, storageErr("reserve token", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return gamify.Reservation{}, storageErr("reserve token", err)
	}
	if affected == 1 {
		return gamify.Reservation{Status: gamify.Reserved}, nil
	}

	// Lost the insert: the token exists. Either committed (replay) or held
	// by an in-flight call.
	entry, status, err := s.getEntry(ctx, db, token)
	if err != nil {
		return gamify.Reservation{}, err
	}
	if status == "committed" {
		return gamify.Reservation{Status: gamify.AlreadyApplied, Entry: entry}, nil
	}
	return gamify.Reservation{}, gamify.ErrReservationPending
}

// Commit finalizes a reserved token. The guarded UPDATE is what makes a
// double commit impossible.
func (s *Store) Commit(ctx context.Context, entry gamify.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, s.db, entry)
}

func (s *Store) commit(ctx context.Context, db execer, entry gamify.LedgerEntry) error {
	achievementsJSON, err := json.Marshal(entry.Achievements)
	if err != nil {
		return fmt.Errorf("marshal achievements: %w", err)
	}
	resultJSON, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		UPDATE ledger
		SET status = 'committed', entry_id = ?, user_id = ?, applied_xp = ?,
		    applied_coins = ?, achievements_json = ?, result_json = ?, applied_at = ?
		WHERE token = ? AND status = 'reserved'`,
		entry.ID, entry.UserID, entry.AppliedXP, entry.AppliedCoins,
		string(achievementsJSON), string(resultJSON),
		entry.AppliedAt.UTC().Format(time.RFC3339Nano),
		entry.Token,
	)
	if err != nil {
		return storageErr("commit entry", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr("commit entry", err)
	}
	if affected == 0 {
		return gamify.ErrNoReservation
	}
	return nil
}

// Release frees a reserved, uncommitted token.
func (s *Store) Release(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.release(ctx, s.db, token)
}

func (s *Store) release(ctx context.Context, db execer, token string) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM ledger WHERE token = ? AND status = 'reserved'`, token)
	if err != nil {
		return storageErr("release token", err)
	}
	return nil
}

// Get returns the committed entry for a token, or nil.
func (s *Store) Get(ctx context.Context, token string) (*gamify.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, status, err := s.getEntry(ctx, s.db, token)
	if err != nil {
		return nil, err
	}
	if status != "committed" {
		return nil, nil
	}
	return entry, nil
}

func (s *Store) getEntry(ctx context.Context, db querier, token string) (*gamify.LedgerEntry, string, error) {
	row := db.QueryRowContext(ctx, `
		SELECT token, status, COALESCE(entry_id, ''), COALESCE(user_id, ''),
		       COALESCE(applied_xp, 0), COALESCE(applied_coins, 0),
		       COALESCE(achievements_json, '[]'), COALESCE(result_json, '{}'),
		       COALESCE(applied_at, '')
		FROM ledger WHERE token = ?`, token)

	entry, status, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return entry, status, nil
}

// Entries returns committed entries for a user, oldest first.
func (s *Store) Entries(ctx context.Context, userID gamify.UserID) ([]gamify.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries(ctx, s.db, userID)
}

func (s *Store) entries(ctx context.Context, db querier, userID gamify.UserID) ([]gamify.LedgerEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT token, status, entry_id, user_id, applied_xp, applied_coins,
		       achievements_json, result_json, applied_at
		FROM ledger
		WHERE user_id = ? AND status = 'committed'
		ORDER BY applied_at ASC, rowid ASC`, userID)
	if err != nil {
		return nil, storageErr("query entries", err)
	}
	defer rows.Close()

	var entries []gamify.LedgerEntry
	for rows.Next() {
		entry, _, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*gamify.LedgerEntry, string, error) {
	var (
		entry            gamify.LedgerEntry
		status           string
		achievementsJSON string
		resultJSON       string
		appliedAt        string
	)

	err := row.Scan(&entry.Token, &status, &entry.ID, &entry.UserID,
		&entry.AppliedXP, &entry.AppliedCoins,
		&achievementsJSON, &resultJSON, &appliedAt)
	if err == sql.ErrNoRows {
		return nil, "", err
	}
	if err != nil {
		return nil, "", storageErr("scan entry", err)
	}

	if achievementsJSON != "" {
		if err := json.Unmarshal([]byte(achievementsJSON), &entry.Achievements); err != nil {
			return nil, "", fmt.Errorf("unmarshal achievements: %w", err)
		}
	}
	if resultJSON != "" {
		if err := json.Unmarshal([]byte(resultJSON), &entry.Result); err != nil {
			return nil, "", fmt.Errorf("unmarshal result: %w", err)
		}
	}
	if appliedAt != "" {
		entry.AppliedAt, _ = time.Parse(time.RFC3339Nano, appliedAt)
	}
	return &entry, status, nil
}

// =============================================================================
// PROGRESS STATE (gamify.StateStore interface)
// =============================================================================

// GetProgress loads a user's aggregate, or nil for unseen users.
func (s *Store) GetProgress(ctx context.Context, userID gamify.UserID) (*gamify.UserProgressState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getProgress(ctx, s.db, userID)
}

func (s *Store) getProgress(ctx context.Context, db querier, userID gamify.UserID) (*gamify.UserProgressState, error) {
	var (
		state        gamify.UserProgressState
		streaksJSON  string
		unlockedJSON string
		countsJSON   string
		updatedAt    string
	)

	err := db.QueryRowContext(ctx, `
		SELECT user_id, total_xp, coins, level, timezone,
		       streaks_json, unlocked_json, counts_json, version, updated_at
		FROM user_progress WHERE user_id = ?`, userID,
	).Scan(&state.UserID, &state.TotalXP, &state.Coins, &state.Level,
		&state.Timezone, &streaksJSON, &unlockedJSON, &countsJSON,
		&state.Version, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("load progress", err)
	}

	if err := json.Unmarshal([]byte(streaksJSON), &state.Streaks); err != nil {
		return nil, fmt.Errorf("unmarshal streaks: %w", err)
	}
	var unlocked []gamify.AchievementID
	if err := json.Unmarshal([]byte(unlockedJSON), &unlocked); err != nil {
		return nil, fmt.Errorf("unmarshal achievements: %w", err)
	}
	state.Unlocked = make(map[gamify.AchievementID]bool, len(unlocked))
	for _, id := range unlocked {
		state.Unlocked[id] = true
	}
	if err := json.Unmarshal([]byte(countsJSON), &state.ActivityCounts); err != nil {
		return nil, fmt.Errorf("unmarshal counts: %w", err)
	}
	if state.Streaks == nil {
		state.Streaks = make(map[gamify.ActivityKind]gamify.StreakRecord)
	}
	if state.ActivityCounts == nil {
		state.ActivityCounts = make(map[gamify.ActivityKind]int64)
	}
	return &state, nil
}

// SaveProgress writes the aggregate under an optimistic version check.
func (s *Store) SaveProgress(ctx context.Context, state *gamify.UserProgressState, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveProgress(ctx, s.db, state, expectedVersion)
}

func (s *Store) saveProgress(ctx context.Context, db execer, state *gamify.UserProgressState, expectedVersion int64) error {
	streaksJSON, err := json.Marshal(state.Streaks)
	if err != nil {
		return fmt.Errorf("marshal streaks: %w", err)
	}
	unlocked := make([]gamify.AchievementID, 0, len(state.Unlocked))
	for id := range state.Unlocked {
		unlocked = append(unlocked, id)
	}
	unlockedJSON, err := json.Marshal(unlocked)
	if err != nil {
		return fmt.Errorf("marshal achievements: %w", err)
	}
	countsJSON, err := json.Marshal(state.ActivityCounts)
	if err != nil {
		return fmt.Errorf("marshal counts: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)

	// First write: a plain insert. The primary key catches races.
	if expectedVersion == 0 {
		_, err := db.ExecContext(ctx, `
			INSERT INTO user_progress
			(user_id, total_xp, coins, level, timezone,
			 streaks_json, unlocked_json, counts_json, version, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			state.UserID, state.TotalXP, state.Coins, state.Level, state.Timezone,
			string(streaksJSON), string(unlockedJSON), string(countsJSON),
			state.Version, now,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return gamify.ErrConcurrentModification
			}
			return storageErr("insert progress", err)
		}
		return nil
	}

	res, err := db.ExecContext(ctx, `
		UPDATE user_progress
		SET total_xp = ?, coins = ?, level = ?, timezone = ?,
		    streaks_json = ?, unlocked_json = ?, counts_json = ?,
		    version = ?, updated_at = ?
		WHERE user_id = ? AND version = ?`,
		state.TotalXP, state.Coins, state.Level, state.Timezone,
		string(streaksJSON), string(unlockedJSON), string(countsJSON),
		state.Version, now,
		state.UserID, expectedVersion,
	)
	if err != nil {
		return storageErr("update progress", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageErr("update progress", err)
	}
	if affected == 0 {
		return gamify.ErrConcurrentModification
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (gamify.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(gamify.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, parent: s}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return storageErr("commit transaction", err)
	}
	return nil
}

type txStore struct {
	tx     *sql.Tx
	parent *Store
}

func (ts *txStore) TryReserve(ctx context.Context, token string) (gamify.Reservation, error) {
	return ts.parent.tryReserve(ctx, ts.tx, token)
}

func (ts *txStore) Commit(ctx context.Context, entry gamify.LedgerEntry) error {
	return ts.parent.commit(ctx, ts.tx, entry)
}

func (ts *txStore) Release(ctx context.Context, token string) error {
	return ts.parent.release(ctx, ts.tx, token)
}

func (ts *txStore) Get(ctx context.Context, token string) (*gamify.LedgerEntry, error) {
	entry, status, err := ts.parent.getEntry(ctx, ts.tx, token)
	if err != nil || status != "committed" {
		return nil, err
	}
	return entry, nil
}

func (ts *txStore) Entries(ctx context.Context, userID gamify.UserID) ([]gamify.LedgerEntry, error) {
	return ts.parent.entries(ctx, ts.tx, userID)
}

func (ts *txStore) GetProgress(ctx context.Context, userID gamify.UserID) (*gamify.UserProgressState, error) {
	return ts.parent.getProgress(ctx, ts.tx, userID)
}

func (ts *txStore) SaveProgress(ctx context.Context, state *gamify.UserProgressState, expectedVersion int64) error {
	return ts.parent.saveProgress(ctx, ts.tx, state, expectedVersion)
}

// =============================================================================
// HELPERS
// =============================================================================

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", gamify.ErrStorageUnavailable, op, err)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Compile-time interface check.
var _ gamify.TxStore = (*Store)(nil)
