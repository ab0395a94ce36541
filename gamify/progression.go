/*
progression.go - XP-to-level mapping

PURPOSE:
  Pure functions mapping cumulative XP to a level and a level to its next
  threshold. The curve is a monotonically increasing step function defined
  by a band table; bands widen at higher levels.

THE CURVE:
  Levels  1-10:   100 XP per level  (0 - 1,000 XP)
  Levels 11-20:   250 XP per level  (    - 3,500 XP)
  Levels 21-30:   500 XP per level  (    - 8,500 XP)
  Levels 31-40: 1,000 XP per level  (    - 18,500 XP)
  Levels 41-50: 2,000 XP per level  (    - 38,500 XP)
  Beyond the table the final growth rate continues: the per-level cost
  doubles every 10 levels, so the function is total for any XP amount.

  A brand-new user (0 XP) is level 1.
*/
package gamify

// levelBand defines the per-level XP cost for a run of levels.
type levelBand struct {
	ToLevel    int
	XPPerLevel int64
}

var levelBands = []levelBand{
	{ToLevel: 10, XPPerLevel: 100},
	{ToLevel: 20, XPPerLevel: 250},
	{ToLevel: 30, XPPerLevel: 500},
	{ToLevel: 40, XPPerLevel: 1000},
	{ToLevel: 50, XPPerLevel: 2000},
}

// xpCostAt returns the XP needed to advance FROM the given level to the next.
// Band ends are inclusive: advancing from level 10 is the last 100 XP step,
// so exactly 1,000 XP reaches level 11.
func xpCostAt(level int) int64 {
	for _, b := range levelBands {
		if level <= b.ToLevel {
			return b.XPPerLevel
		}
	}
	// Past the table: double the final band's rate every 10 levels.
	last := levelBands[len(levelBands)-1]
	cost := last.XPPerLevel
	for boundary := last.ToLevel; level > boundary; boundary += 10 {
		cost *= 2
	}
	return cost
}

// LevelFor returns the level for a cumulative XP total.
// Monotonic non-decreasing in totalXP; negative input is rejected.
func LevelFor(totalXP int64) (int, error) {
	if totalXP < 0 {
		return 0, &InvalidEventError{Field: "total_xp", Reason: "must be non-negative"}
	}

	level := 1
	var cumulative int64
	for {
		cumulative += xpCostAt(level)
		if totalXP < cumulative {
			return level, nil
		}
		level++
	}
}

// XPForNextLevel returns the cumulative XP threshold to reach level+1.
func XPForNextLevel(level int) (int64, error) {
	if level < 1 {
		return 0, &InvalidEventError{Field: "level", Reason: "must be >= 1"}
	}

	var cumulative int64
	for l := 1; l <= level; l++ {
		cumulative += xpCostAt(l)
	}
	return cumulative, nil
}
