/*
streak.go - Consecutive-day streak state machine

PURPOSE:
  Maintains per-user, per-activity streak counters. Dates are compared as
  calendar days in the user's local zone (the engine converts before
  calling in here).

STATE MACHINE (per activity kind):
  same day          -> None       (duplicates never double-extend)
  +1 day            -> Extended
  +2 days, grace ok -> GraceUsed  (one allowed miss, consumed on use)
  anything wider    -> Started (no prior record) / Reset
  earlier date      -> StaleEvent (streaks never move backward)

GRACE RESTORATION:
  The grace credit is consumed on use and restores after GraceRestoreAfter
  consecutive normal extensions. A reset also restores it: a fresh streak
  starts with its grace available.
*/
package gamify

// GraceRestoreAfter is the number of consecutive normal extensions after
// which a consumed grace credit becomes available again.
const GraceRestoreAfter = 7

// UpdateStreak applies one activity day to a streak record.
// Pure: the input record is never mutated. The returned record upholds
// CurrentLength <= LongestLength.
func UpdateStreak(rec StreakRecord, day TimePoint) (StreakRecord, StreakEvent, error) {
	// First-ever activity for this kind.
	if rec.LastCredited.IsZero() {
		rec.CurrentLength = 1
		rec.GraceUsedThisCycle = false
		rec.ExtensionsSinceGrace = 0
		rec.LastCredited = day
		rec.LongestLength = max(rec.LongestLength, rec.CurrentLength)
		return rec, StreakStarted, nil
	}

	if day.Before(rec.LastCredited) {
		return rec, StreakNone, &StaleEventError{
			EventDate:    day,
			LastCredited: rec.LastCredited,
		}
	}

	if day.Equal(rec.LastCredited) {
		return rec, StreakNone, nil
	}

	switch gap := DaysBetween(rec.LastCredited, day); {
	case gap == 1:
		rec.CurrentLength++
		if rec.GraceUsedThisCycle {
			rec.ExtensionsSinceGrace++
			if rec.ExtensionsSinceGrace >= GraceRestoreAfter {
				rec.GraceUsedThisCycle = false
				rec.ExtensionsSinceGrace = 0
			}
		}
		rec.LastCredited = day
		rec.LongestLength = max(rec.LongestLength, rec.CurrentLength)
		return rec, StreakExtended, nil

	case gap == 2 && !rec.GraceUsedThisCycle:
		// The single missed day is absorbed; today still counts.
		rec.CurrentLength++
		rec.GraceUsedThisCycle = true
		rec.ExtensionsSinceGrace = 0
		rec.LastCredited = day
		rec.LongestLength = max(rec.LongestLength, rec.CurrentLength)
		return rec, StreakGraceUsed, nil

	default:
		rec.CurrentLength = 1
		rec.GraceUsedThisCycle = false
		rec.ExtensionsSinceGrace = 0
		rec.LastCredited = day
		rec.LongestLength = max(rec.LongestLength, rec.CurrentLength)
		return rec, StreakReset, nil
	}
}
