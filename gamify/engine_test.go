package gamify_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/reward-engine/gamify"
	"github.com/warp/reward-engine/gamify/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*gamify.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	engine := gamify.NewEngine(mem, testCatalog(t), gamify.EngineConfig{})
	return engine, mem
}

// monday is a weekday baseline so the weekend bonus stays out of the way.
var monday = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func workoutEvent(token string, ts time.Time, baseXP int64) gamify.ActivityEvent {
	return gamify.ActivityEvent{
		UserID:           "user-1",
		Kind:             gamify.ActivityWorkout,
		Timestamp:        ts,
		IdempotencyToken: token,
		BaseXP:           baseXP,
		BaseCoins:        5,
	}
}

// =============================================================================
// BASIC APPLICATION TESTS
// =============================================================================

func TestEngine_Apply_FirstEvent(t *testing.T) {
	// GIVEN: A user with no history
	// WHEN: Their first workout is applied
	// THEN: Base rewards apply unmodified and a streak starts

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Apply(ctx, workoutEvent("tx-1", monday, 10))
	require.NoError(t, err)

	assert.Equal(t, int64(10+25), result.AppliedXP, "base plus first-workout unlock reward")
	assert.Equal(t, int64(5+10), result.AppliedCoins)
	assert.Equal(t, gamify.StreakStarted, result.StreakEvent)
	assert.Equal(t, 1, result.StreakLength)
	assert.True(t, result.Multiplier.Equal(decimal.NewFromInt(1)))
	require.Len(t, result.Unlocked, 1)
	assert.Equal(t, gamify.AchievementID("first-workout"), result.Unlocked[0].ID)

	state, err := mem.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, int64(35), state.TotalXP)
	assert.Equal(t, int64(15), state.Coins)
	assert.True(t, state.HasAchievement("first-workout"))
	assert.Equal(t, int64(1), state.Version)
}

func TestEngine_Apply_StreakBonusUsesTodaysLength(t *testing.T) {
	// GIVEN: A workout yesterday
	// WHEN: Another workout arrives today (streak length becomes 2)
	// THEN: Today's reward already carries the 2-day tier bonus:
	//       10 base XP * 1.1 = 11

	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, workoutEvent("tx-1", monday, 10))
	require.NoError(t, err)

	result, err := engine.Apply(ctx, workoutEvent("tx-2", monday.AddDate(0, 0, 1), 10))
	require.NoError(t, err)

	assert.Equal(t, gamify.StreakExtended, result.StreakEvent)
	assert.Equal(t, 2, result.StreakLength)
	assert.Equal(t, int64(11), result.AppliedXP)
	assert.True(t, result.Multiplier.Equal(decimal.RequireFromString("1.1")))
}

func TestEngine_Apply_WeekendAndPremiumStack(t *testing.T) {
	// Saturday + premium on a fresh streak: 1 * 1.25 * 1.5 = 1.875.
	// 100 base XP -> 187 (floored once).

	engine, _ := newTestEngine(t)
	saturday := time.Date(2026, time.March, 7, 10, 0, 0, 0, time.UTC)

	event := workoutEvent("tx-1", saturday, 100)
	event.UserID = "user-weekend"
	event.Premium = true

	result, err := engine.Apply(context.Background(), event)
	require.NoError(t, err)

	assert.True(t, result.Multiplier.Equal(decimal.RequireFromString("1.875")), "got %s", result.Multiplier)
	assert.Equal(t, int64(187+25), result.AppliedXP, "floored product plus unlock reward")
}

func TestEngine_Apply_LevelUp(t *testing.T) {
	engine, _ := newTestEngine(t)

	result, err := engine.Apply(context.Background(), workoutEvent("tx-1", monday, 100))
	require.NoError(t, err)

	// 100 base + 25 unlock reward = 125 total XP, past the level-2 threshold.
	assert.True(t, result.LeveledUp)
	assert.Equal(t, 2, result.NewLevel)
	assert.Equal(t, int64(125), result.NewTotalXP)
}

// =============================================================================
// EXACTLY-ONCE TESTS
// =============================================================================

func TestEngine_Apply_ReplayReturnsOriginalResult(t *testing.T) {
	// GIVEN: An event already applied under token tx-1
	// WHEN: The same token is submitted again, even with a different payload
	// THEN: The original result is returned verbatim and totals move once

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Apply(ctx, workoutEvent("tx-1", monday, 10))
	require.NoError(t, err)

	// Retry with a doctored payload: the ledger wins, not the payload.
	retry := workoutEvent("tx-1", monday, 9999)
	second, err := engine.Apply(ctx, retry)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	state, err := mem.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.NewTotalXP, state.TotalXP, "totals unchanged by the replay")
	assert.Equal(t, int64(1), state.Version)

	entries, err := mem.Entries(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEngine_Apply_ConcurrentSameUser_AllCredited(t *testing.T) {
	// GIVEN: 10 concurrent events for one user, distinct tokens, same day
	// THEN: Every event is credited exactly once; no lost updates

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			event := workoutEvent(fmt.Sprintf("tx-%d", i), monday, 10)
			_, errs[i] = engine.Apply(ctx, event)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "event %d", i)
	}

	state, err := mem.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	// 10 XP per event plus the one-time 25 XP unlock reward.
	assert.Equal(t, int64(n*10+25), state.TotalXP)
	assert.Equal(t, int64(n), state.Version)

	entries, err := mem.Entries(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, entries, n)
}

// =============================================================================
// FAILURE SEMANTICS TESTS
// =============================================================================

func TestEngine_Apply_StaleEvent_NoStateChange(t *testing.T) {
	// GIVEN: A streak last credited on Tuesday
	// WHEN: A delayed offline event dated Monday arrives
	// THEN: StaleEvent is returned, nothing changes, and the token is
	//       released for reuse

	engine, mem := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, workoutEvent("tx-1", monday.AddDate(0, 0, 1), 10))
	require.NoError(t, err)
	before, err := mem.GetProgress(ctx, "user-1")
	require.NoError(t, err)

	_, err = engine.Apply(ctx, workoutEvent("tx-2", monday, 10))
	assert.ErrorIs(t, err, gamify.ErrStaleEvent)

	var stale *gamify.StaleEventError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, gamify.ActivityWorkout, stale.Kind)

	after, err := mem.GetProgress(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := mem.Entries(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no ledger entry for the stale event")

	// The reservation was released: tx-2 can carry a valid event now.
	_, err = engine.Apply(ctx, workoutEvent("tx-2", monday.AddDate(0, 0, 2), 10))
	assert.NoError(t, err)
}

func TestEngine_Apply_InvalidEvents_Rejected(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*gamify.ActivityEvent)
	}{
		{"missing user", func(e *gamify.ActivityEvent) { e.UserID = "" }},
		{"missing token", func(e *gamify.ActivityEvent) { e.IdempotencyToken = "" }},
		{"unknown kind", func(e *gamify.ActivityEvent) { e.Kind = "napping" }},
		{"zero timestamp", func(e *gamify.ActivityEvent) { e.Timestamp = time.Time{} }},
		{"negative xp", func(e *gamify.ActivityEvent) { e.BaseXP = -1 }},
		{"negative coins", func(e *gamify.ActivityEvent) { e.BaseCoins = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := workoutEvent("tx-invalid", monday, 10)
			tc.mutate(&event)

			_, err := engine.Apply(ctx, event)
			assert.ErrorIs(t, err, gamify.ErrInvalidArgument)
			assert.True(t, gamify.IsClientError(err))
			assert.False(t, gamify.IsRetryable(err))
		})
	}
}

// =============================================================================
// TIMEZONE TESTS
// =============================================================================

func TestEngine_Apply_DayBoundaryInUserZone(t *testing.T) {
	// GIVEN: A user in America/New_York
	// WHEN: Events arrive at 03:00 UTC and 12:00 UTC on the same UTC day
	// THEN: They fall on different local days, so the streak extends.
	//       Under UTC they would be same-day duplicates.

	mem := store.NewMemory()
	engine := gamify.NewEngine(mem, testCatalog(t), gamify.EngineConfig{
		DefaultTimezone: "America/New_York",
	})
	ctx := context.Background()

	// 03:00 UTC Tuesday = 22:00 Monday in New York.
	_, err := engine.Apply(ctx, workoutEvent("tx-1", time.Date(2026, time.March, 3, 3, 0, 0, 0, time.UTC), 10))
	require.NoError(t, err)

	result, err := engine.Apply(ctx, workoutEvent("tx-2", time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC), 10))
	require.NoError(t, err)

	assert.Equal(t, gamify.StreakExtended, result.StreakEvent)
	assert.Equal(t, 2, result.StreakLength)
}

func TestEngine_Apply_SameLocalDay_NoDoubleExtend(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Apply(ctx, workoutEvent("tx-1", monday, 10))
	require.NoError(t, err)

	result, err := engine.Apply(ctx, workoutEvent("tx-2", monday.Add(4*time.Hour), 10))
	require.NoError(t, err)

	assert.Equal(t, gamify.StreakNone, result.StreakEvent)
	assert.Equal(t, 1, result.StreakLength)
}
