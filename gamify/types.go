/*
Package gamify provides the core gamification engine.

PURPOSE:
  This package converts user activity (logging a meal, finishing a workout,
  completing a task) into experience points, coins, levels, streaks, and
  unlockable achievements. It owns the data model, the reward algorithm,
  and the storage contracts; presentation layers only submit events and
  render results.

KEY CONCEPTS IN THIS FILE (types.go):
  - ActivityEvent: An immutable input event, deduplicated by idempotency token
  - UserProgressState: The per-user aggregate (XP, coins, streaks, unlocks)
  - StreakRecord: Per-activity consecutive-day counter with a grace credit
  - LedgerEntry: The applied-reward record keyed by idempotency token
  - RewardResult: What the caller gets back (deltas, level-up, unlocks)

DESIGN PRINCIPLES:
  1. Exactly-once: Every event carries an idempotency token; the ledger
     guarantees a token is rewarded at most once
  2. Single writer: Only the Engine mutates UserProgressState; streak and
     achievement logic are pure functions returning proposed deltas
  3. Derived level: Level is always recomputed from TotalXP, never trusted
     from storage
  4. Precision: Multiplier stacking uses decimal.Decimal, floored once

SEE ALSO:
  - engine.go: The reward orchestrator
  - streak.go: Streak state machine
  - achievement.go: Rule catalog and evaluator
  - ledger.go, store.go: Persistence contracts
*/
package gamify

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type AchievementID string

// ActivityKind is the closed set of reward-granting activities.
type ActivityKind string

const (
	ActivityMealLog      ActivityKind = "meal_log"
	ActivityWorkout      ActivityKind = "workout"
	ActivityWater        ActivityKind = "water"
	ActivityCheckin      ActivityKind = "checkin"
	ActivityTaskComplete ActivityKind = "task_complete"
	ActivitySocialHelp   ActivityKind = "social_help"
)

// Kinds returns every known activity kind, in a stable order.
func Kinds() []ActivityKind {
	return []ActivityKind{
		ActivityMealLog, ActivityWorkout, ActivityWater,
		ActivityCheckin, ActivityTaskComplete, ActivitySocialHelp,
	}
}

// Valid reports whether k is a known activity kind.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityMealLog, ActivityWorkout, ActivityWater,
		ActivityCheckin, ActivityTaskComplete, ActivitySocialHelp:
		return true
	}
	return false
}

// =============================================================================
// ACTIVITY EVENT - Input, immutable, deduplicated by token
// =============================================================================

// ActivityEvent is a completed real-world activity reported by the caller.
// The caller is responsible for generating a stable IdempotencyToken per
// occurrence and for retrying transient failures with the SAME token.
type ActivityEvent struct {
	UserID           UserID
	Kind             ActivityKind
	Timestamp        time.Time
	IdempotencyToken string
	BaseXP           int64
	BaseCoins        int64

	// Premium marks the user as a premium member at event time.
	// Membership management is out of scope; the engine only applies the bonus.
	Premium bool

	// Metadata is opaque to the engine (e.g., difficulty, source device).
	Metadata map[string]string
}

// =============================================================================
// STREAK RECORD - Per activity kind, calendar-day based
// =============================================================================

// StreakRecord tracks consecutive qualifying days for one activity kind.
// Invariant: CurrentLength <= LongestLength.
type StreakRecord struct {
	CurrentLength int       `json:"current_length"`
	LongestLength int       `json:"longest_length"`
	LastCredited  TimePoint `json:"last_credited"`

	// GraceUsedThisCycle is set when the one allowed missed day was consumed.
	// It clears after GraceRestoreAfter consecutive normal extensions.
	GraceUsedThisCycle   bool `json:"grace_used"`
	ExtensionsSinceGrace int  `json:"extensions_since_grace"`
}

// StreakEvent describes what a streak update did.
type StreakEvent string

const (
	StreakNone      StreakEvent = "none"       // duplicate same-day activity
	StreakStarted   StreakEvent = "started"    // first-ever activity of this kind
	StreakExtended  StreakEvent = "extended"   // consecutive day
	StreakGraceUsed StreakEvent = "grace_used" // one missed day absorbed
	StreakReset     StreakEvent = "reset"      // gap exceeded the grace window
)

// =============================================================================
// USER PROGRESS STATE - The per-user aggregate
// =============================================================================

// UserProgressState is the single per-user aggregate mutated by the Engine.
// Invariants: TotalXP only increases; Level == LevelFor(TotalXP) after every
// applied event; CurrentLength <= LongestLength for every streak.
type UserProgressState struct {
	UserID  UserID
	TotalXP int64
	Coins   int64

	// Level is derived from TotalXP. It is persisted for cheap reads but
	// recomputed on every write; storage is never authoritative for it.
	Level int

	Streaks        map[ActivityKind]StreakRecord
	Unlocked       map[AchievementID]bool
	ActivityCounts map[ActivityKind]int64

	// Timezone is the IANA zone used for calendar-day streak boundaries.
	// Empty means UTC.
	Timezone string

	// Version supports optimistic concurrency on save.
	Version int64
}

// NewUserProgressState returns the zero state for a user not seen before.
func NewUserProgressState(id UserID) *UserProgressState {
	return &UserProgressState{
		UserID:         id,
		Level:          1,
		Streaks:        make(map[ActivityKind]StreakRecord),
		Unlocked:       make(map[AchievementID]bool),
		ActivityCounts: make(map[ActivityKind]int64),
	}
}

// Clone returns a deep copy. The engine mutates a clone and only persists it
// once the ledger commit succeeds.
func (s *UserProgressState) Clone() *UserProgressState {
	c := *s
	c.Streaks = make(map[ActivityKind]StreakRecord, len(s.Streaks))
	for k, v := range s.Streaks {
		c.Streaks[k] = v
	}
	c.Unlocked = make(map[AchievementID]bool, len(s.Unlocked))
	for k, v := range s.Unlocked {
		c.Unlocked[k] = v
	}
	c.ActivityCounts = make(map[ActivityKind]int64, len(s.ActivityCounts))
	for k, v := range s.ActivityCounts {
		c.ActivityCounts[k] = v
	}
	return &c
}

// HasAchievement reports whether the achievement is already unlocked.
func (s *UserProgressState) HasAchievement(id AchievementID) bool {
	return s.Unlocked[id]
}

// Location resolves the user's timezone, falling back to UTC on empty or
// invalid names. Streak day boundaries never fail an event over a bad zone.
func (s *UserProgressState) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// =============================================================================
// ACHIEVEMENT - Static catalog entry (not user data)
// =============================================================================

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// Achievement is a deploy-time catalog entry. Unlock is evaluated per user
// and is final; entries are never mutated at runtime.
type Achievement struct {
	ID          AchievementID `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Rarity      Rarity        `json:"rarity"`
	Rule        UnlockRule    `json:"rule"`
	RewardXP    int64         `json:"reward_xp"`
	RewardCoins int64         `json:"reward_coins"`
}

// =============================================================================
// LEDGER ENTRY - Applied reward, keyed by idempotency token
// =============================================================================

// LedgerEntry records exactly one applied reward. Created once per token,
// never mutated; an explicit audit path outside this engine owns reversals.
type LedgerEntry struct {
	Token        string
	ID           string // engine-generated, for audit references
	UserID       UserID
	AppliedXP    int64
	AppliedCoins int64
	Achievements []AchievementID
	Result       RewardResult
	AppliedAt    time.Time
}

// =============================================================================
// REWARD RESULT - What the caller renders
// =============================================================================

// RewardResult is the outcome of applying one event. Replays of an applied
// token return the original result verbatim.
type RewardResult struct {
	AppliedXP    int64           `json:"applied_xp"`
	AppliedCoins int64           `json:"applied_coins"`
	NewTotalXP   int64           `json:"new_total_xp"`
	NewCoins     int64           `json:"new_coins"`
	NewLevel     int             `json:"new_level"`
	LeveledUp    bool            `json:"leveled_up"`
	StreakEvent  StreakEvent     `json:"streak_event"`
	StreakLength int             `json:"streak_length"`
	Multiplier   decimal.Decimal `json:"multiplier"`
	Unlocked     []Achievement   `json:"unlocked"`
}
