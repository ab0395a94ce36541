/*
multiplier.go - Bonus stacking for XP and coin rewards

PURPOSE:
  Computes the multiplier applied to an event's base XP/coins. Bonuses are
  multiplicative and applied in a FIXED order so results are reproducible:

      streak bonus x weekend bonus x premium bonus

  The exact decimal product is taken first and the result is floored to an
  integer ONCE, at the end. 10 base XP at 1.1 streak bonus yields 11.
*/
package gamify

import "github.com/shopspring/decimal"

// StreakTier maps a minimum streak length to a bonus factor.
type StreakTier struct {
	MinLength int
	Factor    decimal.Decimal
}

// BonusConfig holds the tunable bonus factors. All factors default to >= 1;
// the engine never reduces a base reward.
type BonusConfig struct {
	// StreakTiers must be sorted ascending by MinLength; the highest tier
	// at or below the current streak length applies.
	StreakTiers []StreakTier

	WeekendBonus decimal.Decimal
	PremiumBonus decimal.Decimal
}

// DefaultBonusConfig returns the documented bonus table:
// streak 2+ days 1.1x, 7+ 1.25x, 14+ 1.5x, 30+ 2x; weekends 1.25x;
// premium members 1.5x.
func DefaultBonusConfig() BonusConfig {
	return BonusConfig{
		StreakTiers: []StreakTier{
			{MinLength: 2, Factor: decimal.NewFromFloat(1.1)},
			{MinLength: 7, Factor: decimal.NewFromFloat(1.25)},
			{MinLength: 14, Factor: decimal.NewFromFloat(1.5)},
			{MinLength: 30, Factor: decimal.NewFromInt(2)},
		},
		WeekendBonus: decimal.NewFromFloat(1.25),
		PremiumBonus: decimal.NewFromFloat(1.5),
	}
}

// StreakFactor returns the streak bonus for a streak of the given length.
func (c BonusConfig) StreakFactor(length int) decimal.Decimal {
	factor := decimal.NewFromInt(1)
	for _, tier := range c.StreakTiers {
		if length >= tier.MinLength {
			factor = tier.Factor
		}
	}
	return factor
}

// Multiplier returns the full stacked multiplier for an event applied on the
// given local calendar day.
func (c BonusConfig) Multiplier(streakLength int, day TimePoint, premium bool) decimal.Decimal {
	m := c.StreakFactor(streakLength)
	if day.IsWeekend() && !c.WeekendBonus.IsZero() {
		m = m.Mul(c.WeekendBonus)
	}
	if premium && !c.PremiumBonus.IsZero() {
		m = m.Mul(c.PremiumBonus)
	}
	return m
}

// ApplyMultiplier scales a base amount by the multiplier, flooring once.
func ApplyMultiplier(base int64, m decimal.Decimal) int64 {
	return decimal.NewFromInt(base).Mul(m).Floor().IntPart()
}
