/*
engine.go - The reward orchestrator

PURPOSE:
  Receives completed-activity events and turns them into exactly-once
  reward applications. The Engine is the ONLY writer of UserProgressState
  and the ledger; streaks, progression, and achievements are pure helpers
  that return proposed deltas.

ALGORITHM (per Apply call):
  1. Validate the event (InvalidArgument is terminal)
  2. TryReserve the idempotency token; AlreadyApplied replays the stored
     result verbatim - no recomputation, no double reward
  3. Load (or initialize) the user's progress state
  4. Update the streak for the event's activity kind; StaleEvent aborts
     and releases the reservation
  5. Multiplier = streak x weekend x premium, floored once after the
     full product; the streak bonus uses the POST-update streak length
  6. Evaluate achievements against the prospective state; their rewards
     cascade into the same transaction (single pass, no re-triggering)
  7. Persist state + commit ledger entry atomically
  8. Return the RewardResult

CONCURRENCY:
  Same-user calls serialize on a striped per-user mutex; a version CAS on
  SaveProgress backs that up against external writers. Different users
  share nothing and run in parallel.

FAILURE SEMANTICS:
  Nothing between steps 3-7 mutates durable state until the single commit;
  any failure leaves no partial change. Storage failures are retryable
  with the same token. StaleEvent and InvalidArgument are terminal.
*/
package gamify

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const userLockStripes = 128

// EngineConfig carries tunables for the reward engine.
type EngineConfig struct {
	// Bonus controls multiplier stacking. Zero value means defaults.
	Bonus BonusConfig

	// DefaultTimezone is assigned to users on their first event.
	// Empty means UTC.
	DefaultTimezone string

	// Logger receives warnings for malformed events. Nil means no logging.
	Logger *zap.Logger
}

// Engine applies activity events. Safe for concurrent use.
type Engine struct {
	store     TxStore
	evaluator *Evaluator
	bonus     BonusConfig
	defaultTZ string
	logger    *zap.Logger

	locks [userLockStripes]sync.Mutex
}

// NewEngine creates a reward engine over the given store and catalog.
func NewEngine(store TxStore, catalog *Catalog, cfg EngineConfig) *Engine {
	bonus := cfg.Bonus
	if len(bonus.StreakTiers) == 0 && bonus.WeekendBonus.IsZero() && bonus.PremiumBonus.IsZero() {
		bonus = DefaultBonusConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     store,
		evaluator: NewEvaluator(catalog),
		bonus:     bonus,
		defaultTZ: cfg.DefaultTimezone,
		logger:    logger,
	}
}

// Apply processes one activity event and returns the reward outcome.
// Calling Apply twice with the same idempotency token yields identical
// results and changes the user's totals exactly once.
func (e *Engine) Apply(ctx context.Context, event ActivityEvent) (*RewardResult, error) {
	if err := validateEvent(event); err != nil {
		// A malformed event should never reach us from a well-behaved
		// client; log it as a caller bug. Metadata may carry user content
		// and is deliberately left out.
		e.logger.Warn("rejected invalid activity event",
			zap.String("user_id", string(event.UserID)),
			zap.String("activity_kind", string(event.Kind)),
			zap.String("token", event.IdempotencyToken),
			zap.Int64("base_xp", event.BaseXP),
			zap.Int64("base_coins", event.BaseCoins),
			zap.Error(err),
		)
		return nil, err
	}

	// Serialize per user. The read-modify-write below must not interleave
	// across concurrent calls for the same user.
	lock := e.lockFor(event.UserID)
	lock.Lock()
	defer lock.Unlock()

	reservation, err := e.store.TryReserve(ctx, event.IdempotencyToken)
	if err != nil {
		return nil, err
	}
	if reservation.Status == AlreadyApplied {
		result := reservation.Entry.Result
		return &result, nil
	}

	result, entry, err := e.compute(ctx, event)
	if err != nil {
		e.release(ctx, event.IdempotencyToken)
		return nil, err
	}

	if err := e.store.WithTx(ctx, func(s Store) error {
		if err := s.SaveProgress(ctx, entry.state, entry.expectedVersion); err != nil {
			return err
		}
		return s.Commit(ctx, entry.LedgerEntry)
	}); err != nil {
		e.release(ctx, event.IdempotencyToken)
		return nil, err
	}

	return result, nil
}

// pendingEntry bundles the ledger entry with the state write it must be
// committed alongside.
type pendingEntry struct {
	LedgerEntry
	state           *UserProgressState
	expectedVersion int64
}

// compute runs steps 3-6: everything except the durable commit.
func (e *Engine) compute(ctx context.Context, event ActivityEvent) (*RewardResult, *pendingEntry, error) {
	current, err := e.store.GetProgress(ctx, event.UserID)
	if err != nil {
		return nil, nil, err
	}
	if current == nil {
		current = NewUserProgressState(event.UserID)
		current.Timezone = e.defaultTZ
	}

	oldLevel, err := LevelFor(current.TotalXP)
	if err != nil {
		return nil, nil, err
	}

	day := DateOf(event.Timestamp, current.Location())
	newStreak, streakEvent, err := UpdateStreak(current.Streaks[event.Kind], day)
	if err != nil {
		var stale *StaleEventError
		if errors.As(err, &stale) {
			stale.Kind = event.Kind
		}
		return nil, nil, err
	}

	multiplier := e.bonus.Multiplier(newStreak.CurrentLength, day, event.Premium)
	appliedXP := ApplyMultiplier(event.BaseXP, multiplier)
	appliedCoins := ApplyMultiplier(event.BaseCoins, multiplier)

	next := current.Clone()
	next.Streaks[event.Kind] = newStreak
	next.ActivityCounts[event.Kind]++
	next.TotalXP += appliedXP
	next.Coins += appliedCoins
	if next.Level, err = LevelFor(next.TotalXP); err != nil {
		return nil, nil, err
	}

	// Achievements see the prospective state and cascade their rewards into
	// this same transaction. One pass only: an unlock granting XP does not
	// re-run the evaluator within this call.
	unlocked := e.evaluator.Evaluate(next, event, streakEvent)
	for _, a := range unlocked {
		appliedXP += a.RewardXP
		appliedCoins += a.RewardCoins
		next.TotalXP += a.RewardXP
		next.Coins += a.RewardCoins
		next.Unlocked[a.ID] = true
	}
	if next.Level, err = LevelFor(next.TotalXP); err != nil {
		return nil, nil, err
	}

	next.Version = current.Version + 1

	result := RewardResult{
		AppliedXP:    appliedXP,
		AppliedCoins: appliedCoins,
		NewTotalXP:   next.TotalXP,
		NewCoins:     next.Coins,
		NewLevel:     next.Level,
		LeveledUp:    next.Level > oldLevel,
		StreakEvent:  streakEvent,
		StreakLength: newStreak.CurrentLength,
		Multiplier:   multiplier,
		Unlocked:     unlocked,
	}

	ids := make([]AchievementID, 0, len(unlocked))
	for _, a := range unlocked {
		ids = append(ids, a.ID)
	}

	entry := &pendingEntry{
		LedgerEntry: LedgerEntry{
			Token:        event.IdempotencyToken,
			ID:           uuid.NewString(),
			UserID:       event.UserID,
			AppliedXP:    appliedXP,
			AppliedCoins: appliedCoins,
			Achievements: ids,
			Result:       result,
			AppliedAt:    time.Now().UTC(),
		},
		state:           next,
		expectedVersion: current.Version,
	}
	return &result, entry, nil
}

func (e *Engine) release(ctx context.Context, token string) {
	if err := e.store.Release(ctx, token); err != nil {
		e.logger.Warn("failed to release reservation",
			zap.String("token", token), zap.Error(err))
	}
}

func (e *Engine) lockFor(id UserID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &e.locks[h.Sum32()%userLockStripes]
}

// validateEvent enforces the ActivityEvent contract.
func validateEvent(event ActivityEvent) error {
	switch {
	case event.UserID == "":
		return &InvalidEventError{Field: "user_id", Reason: "is required"}
	case event.IdempotencyToken == "":
		return &InvalidEventError{Field: "idempotency_token", Reason: "is required"}
	case !event.Kind.Valid():
		return &InvalidEventError{Field: "activity_kind", Reason: fmt.Sprintf("unknown kind %q", event.Kind)}
	case event.Timestamp.IsZero():
		return &InvalidEventError{Field: "timestamp", Reason: "is required"}
	case event.BaseXP < 0:
		return &InvalidEventError{Field: "base_xp", Reason: "must be non-negative"}
	case event.BaseCoins < 0:
		return &InvalidEventError{Field: "base_coins", Reason: "must be non-negative"}
	}
	return nil
}
