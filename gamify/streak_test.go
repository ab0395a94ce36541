package gamify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/reward-engine/gamify"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func day(d int) gamify.TimePoint {
	// Monday 2026-03-02 plus d days.
	return gamify.NewTimePoint(2026, time.March, 2).AddDays(d)
}

// advance applies a sequence of day offsets and returns the final record.
func advance(t *testing.T, offsets ...int) gamify.StreakRecord {
	t.Helper()
	var rec gamify.StreakRecord
	for _, off := range offsets {
		var err error
		rec, _, err = gamify.UpdateStreak(rec, day(off))
		require.NoError(t, err)
	}
	return rec
}

// =============================================================================
// STATE MACHINE TESTS
// =============================================================================

func TestUpdateStreak_FirstActivity_Starts(t *testing.T) {
	rec, event, err := gamify.UpdateStreak(gamify.StreakRecord{}, day(0))
	require.NoError(t, err)

	assert.Equal(t, gamify.StreakStarted, event)
	assert.Equal(t, 1, rec.CurrentLength)
	assert.Equal(t, 1, rec.LongestLength)
	assert.False(t, rec.GraceUsedThisCycle)
}

func TestUpdateStreak_SameDay_NoOp(t *testing.T) {
	// GIVEN: Activity already credited today
	// WHEN: A second activity arrives the same day
	// THEN: The record is unchanged and the event is None

	rec := advance(t, 0)
	updated, event, err := gamify.UpdateStreak(rec, day(0))
	require.NoError(t, err)

	assert.Equal(t, gamify.StreakNone, event)
	assert.Equal(t, rec, updated)
}

func TestUpdateStreak_NextDay_Extends(t *testing.T) {
	rec := advance(t, 0)
	rec, event, err := gamify.UpdateStreak(rec, day(1))
	require.NoError(t, err)

	assert.Equal(t, gamify.StreakExtended, event)
	assert.Equal(t, 2, rec.CurrentLength)
	assert.Equal(t, 2, rec.LongestLength)
}

func TestUpdateStreak_OneMissedDay_UsesGrace(t *testing.T) {
	// GIVEN: A 2-day streak ending on day 1
	// WHEN: Day 2 is skipped and activity arrives on day 3
	// THEN: The miss is absorbed, today counts, grace is consumed

	rec := advance(t, 0, 1)
	rec, event, err := gamify.UpdateStreak(rec, day(3))
	require.NoError(t, err)

	assert.Equal(t, gamify.StreakGraceUsed, event)
	assert.Equal(t, 3, rec.CurrentLength)
	assert.True(t, rec.GraceUsedThisCycle)
}

func TestUpdateStreak_SecondMiss_SameCycle_Resets(t *testing.T) {
	// GIVEN: Grace already consumed this cycle
	// WHEN: Another single day is missed
	// THEN: The streak resets instead of absorbing the miss

	rec := advance(t, 0, 1, 3) // grace used on day 3
	rec, event, err := gamify.UpdateStreak(rec, day(5))
	require.NoError(t, err)

	assert.Equal(t, gamify.StreakReset, event)
	assert.Equal(t, 1, rec.CurrentLength)
	assert.False(t, rec.GraceUsedThisCycle, "a fresh streak starts with grace available")
}

func TestUpdateStreak_TwoMissedDays_Resets(t *testing.T) {
	// A gap wider than one day is never graced.

	rec := advance(t, 0, 1)
	rec, event, err := gamify.UpdateStreak(rec, day(4))
	require.NoError(t, err)

	assert.Equal(t, gamify.StreakReset, event)
	assert.Equal(t, 1, rec.CurrentLength)
	assert.Equal(t, 2, rec.LongestLength, "longest survives the reset")
}

func TestUpdateStreak_BackwardDate_Stale(t *testing.T) {
	// Streaks never move backward. An out-of-order date is reported as
	// stale so the caller can skip it without corrupting state.

	rec := advance(t, 0, 1)
	before := rec

	_, _, err := gamify.UpdateStreak(rec, day(0))
	require.Error(t, err)
	assert.ErrorIs(t, err, gamify.ErrStaleEvent)

	var stale *gamify.StaleEventError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, day(0), stale.EventDate)
	assert.Equal(t, day(1), stale.LastCredited)
	assert.Equal(t, before, rec, "input record is never mutated")
}

// =============================================================================
// GRACE RESTORATION TESTS
// =============================================================================

func TestUpdateStreak_GraceRestores_AfterSevenExtensions(t *testing.T) {
	// GIVEN: Grace consumed on day 3
	// WHEN: Seven consecutive normal extensions follow (days 4-10)
	// THEN: The grace credit is available again and covers a new miss

	rec := advance(t, 0, 1, 3, 4, 5, 6, 7, 8, 9, 10)
	assert.False(t, rec.GraceUsedThisCycle, "grace should have restored")

	// Skip day 11, activity on day 12: grace covers it again.
	rec, event, err := gamify.UpdateStreak(rec, day(12))
	require.NoError(t, err)
	assert.Equal(t, gamify.StreakGraceUsed, event)
}

func TestUpdateStreak_GraceNotRestored_TooFewExtensions(t *testing.T) {
	// Six extensions after a grace are not enough to restore it.

	rec := advance(t, 0, 1, 3, 4, 5, 6, 7, 8, 9)
	assert.True(t, rec.GraceUsedThisCycle)

	rec, event, err := gamify.UpdateStreak(rec, day(11))
	require.NoError(t, err)
	assert.Equal(t, gamify.StreakReset, event)
	assert.Equal(t, 1, rec.CurrentLength)
}

// =============================================================================
// INVARIANT TESTS
// =============================================================================

func TestUpdateStreak_LongestNeverDecreases(t *testing.T) {
	var rec gamify.StreakRecord
	longest := 0
	offsets := []int{0, 1, 2, 3, 6, 7, 8, 20, 21, 22, 23, 24}
	for _, off := range offsets {
		var err error
		rec, _, err = gamify.UpdateStreak(rec, day(off))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, rec.LongestLength, longest)
		assert.GreaterOrEqual(t, rec.LongestLength, rec.CurrentLength)
		longest = rec.LongestLength
	}
	assert.Equal(t, 5, rec.CurrentLength)
	assert.Equal(t, 5, rec.LongestLength)
}
