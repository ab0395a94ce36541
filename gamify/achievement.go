/*
achievement.go - Unlock rules and the achievement evaluator

PURPOSE:
  A rule engine that inspects user state after each applied event and
  returns newly unlocked achievements. Rules are a CLOSED set of tagged
  variants evaluated by a dispatcher - no open-ended scripting - so
  evaluation stays total and auditable.

RULE VARIANTS:
  xp_at_least                TotalXP >= threshold
  level_at_least             Level >= threshold
  coins_at_least             Coins >= threshold
  streak_at_least            Streaks[activity].CurrentLength >= threshold
  longest_streak_at_least    Streaks[activity].LongestLength >= threshold
  activity_count_at_least    ActivityCounts[activity] >= threshold
  achievement_count_at_least len(Unlocked) >= threshold

EVALUATION CONTRACT:
  - Catalog declaration order; simultaneous unlocks are all returned together
  - Already-unlocked achievements are skipped, never re-rewarded
  - Unlock is final; reversal is an administrative action outside the engine
  - One evaluation pass per applied event: achievement rewards cascade XP
    into the same transaction but do not re-trigger further unlocks
*/
package gamify

import "fmt"

// =============================================================================
// UNLOCK RULES - Closed set of tagged variants
// =============================================================================

type RuleKind string

const (
	RuleXPAtLeast               RuleKind = "xp_at_least"
	RuleLevelAtLeast            RuleKind = "level_at_least"
	RuleCoinsAtLeast            RuleKind = "coins_at_least"
	RuleStreakAtLeast           RuleKind = "streak_at_least"
	RuleLongestStreakAtLeast    RuleKind = "longest_streak_at_least"
	RuleActivityCountAtLeast    RuleKind = "activity_count_at_least"
	RuleAchievementCountAtLeast RuleKind = "achievement_count_at_least"
)

// UnlockRule is one tagged rule variant. Activity is only meaningful for
// the streak and activity-count kinds.
type UnlockRule struct {
	Kind      RuleKind     `json:"kind"`
	Threshold int64        `json:"threshold"`
	Activity  ActivityKind `json:"activity,omitempty"`
}

// Validate rejects unknown kinds, non-positive thresholds, and missing or
// unknown activities on activity-scoped rules.
func (r UnlockRule) Validate() error {
	if r.Threshold <= 0 {
		return fmt.Errorf("rule %s: threshold must be positive, got %d", r.Kind, r.Threshold)
	}
	switch r.Kind {
	case RuleXPAtLeast, RuleLevelAtLeast, RuleCoinsAtLeast, RuleAchievementCountAtLeast:
		return nil
	case RuleStreakAtLeast, RuleLongestStreakAtLeast, RuleActivityCountAtLeast:
		if !r.Activity.Valid() {
			return fmt.Errorf("rule %s: unknown activity %q", r.Kind, r.Activity)
		}
		return nil
	default:
		return fmt.Errorf("unknown rule kind %q", r.Kind)
	}
}

// Satisfied dispatches the rule against a progress state.
func (r UnlockRule) Satisfied(s *UserProgressState) bool {
	switch r.Kind {
	case RuleXPAtLeast:
		return s.TotalXP >= r.Threshold
	case RuleLevelAtLeast:
		return int64(s.Level) >= r.Threshold
	case RuleCoinsAtLeast:
		return s.Coins >= r.Threshold
	case RuleStreakAtLeast:
		return int64(s.Streaks[r.Activity].CurrentLength) >= r.Threshold
	case RuleLongestStreakAtLeast:
		return int64(s.Streaks[r.Activity].LongestLength) >= r.Threshold
	case RuleActivityCountAtLeast:
		return s.ActivityCounts[r.Activity] >= r.Threshold
	case RuleAchievementCountAtLeast:
		return int64(len(s.Unlocked)) >= r.Threshold
	default:
		return false
	}
}

// =============================================================================
// CATALOG - Ordered, validated set of achievements
// =============================================================================

// Catalog is the deploy-time achievement set. Read-only after construction,
// safe to share across goroutines without locking.
type Catalog struct {
	entries []Achievement
	byID    map[AchievementID]Achievement
}

// NewCatalog validates definitions and preserves declaration order.
func NewCatalog(defs []Achievement) (*Catalog, error) {
	c := &Catalog{byID: make(map[AchievementID]Achievement, len(defs))}
	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("achievement %q: missing id", def.Name)
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("achievement %q: duplicate id", def.ID)
		}
		if def.RewardXP < 0 || def.RewardCoins < 0 {
			return nil, fmt.Errorf("achievement %q: negative reward", def.ID)
		}
		if err := def.Rule.Validate(); err != nil {
			return nil, fmt.Errorf("achievement %q: %w", def.ID, err)
		}
		c.entries = append(c.entries, def)
		c.byID[def.ID] = def
	}
	return c, nil
}

// Achievements returns the catalog in declaration order.
func (c *Catalog) Achievements() []Achievement {
	out := make([]Achievement, len(c.entries))
	copy(out, c.entries)
	return out
}

// Get returns a catalog entry and whether it exists.
func (c *Catalog) Get(id AchievementID) (Achievement, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Len returns the number of catalog entries.
func (c *Catalog) Len() int { return len(c.entries) }

// =============================================================================
// EVALUATOR
// =============================================================================

// Evaluator determines newly unlocked achievements for a prospective state.
// Pure: it never writes; the Engine owns persisting unlocks.
type Evaluator struct {
	catalog *Catalog
}

func NewEvaluator(catalog *Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Evaluate returns achievements newly satisfied by the post-update state,
// in catalog order, excluding anything already unlocked. The triggering
// event and streak event are available to future rule variants; the current
// closed set is state-only.
func (e *Evaluator) Evaluate(state *UserProgressState, _ ActivityEvent, _ StreakEvent) []Achievement {
	var unlocked []Achievement
	for _, a := range e.catalog.entries {
		if state.HasAchievement(a.ID) {
			continue
		}
		if a.Rule.Satisfied(state) {
			unlocked = append(unlocked, a)
		}
	}
	return unlocked
}
