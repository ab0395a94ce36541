/*
Package factory provides JSON to Go achievement catalog conversion.

PURPOSE:
  Converts JSON achievement definitions into a validated gamify.Catalog.
  This enables catalog changes without code changes - product can define
  achievements in JSON, and the factory builds the typed rule set.

JSON SCHEMA:
  [
    {
      "id": "week-warrior",
      "name": "Week Warrior",
      "description": "Work out every day for a week",
      "rarity": "rare",
      "rule": {"kind": "streak_at_least", "activity": "workout", "threshold": 7},
      "reward_xp": 200,
      "reward_coins": 50
    }
  ]

KEY FEATURES:
  - Validates rule kinds against the closed variant set
  - Preserves declaration order (evaluation order)
  - Rejects duplicate ids and negative rewards

USAGE:
  catalog, err := NewCatalogFactory().ParseCatalog(jsonString)

  // Or start from the built-in set
  catalog := DefaultCatalog()

SEE ALSO:
  - gamify/achievement.go: Rule variants and the evaluator
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/reward-engine/gamify"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// AchievementJSON is the JSON representation of one catalog entry.
type AchievementJSON struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Rarity      string   `json:"rarity"`
	Rule        RuleJSON `json:"rule"`
	RewardXP    int64    `json:"reward_xp,omitempty"`
	RewardCoins int64    `json:"reward_coins,omitempty"`
}

// RuleJSON is the JSON representation of an unlock rule.
type RuleJSON struct {
	Kind      string `json:"kind"`
	Threshold int64  `json:"threshold"`
	Activity  string `json:"activity,omitempty"`
}

// =============================================================================
// CATALOG FACTORY
// =============================================================================

type CatalogFactory struct{}

func NewCatalogFactory() *CatalogFactory {
	return &CatalogFactory{}
}

// ParseCatalog converts a JSON array of achievement definitions into a
// validated catalog, preserving declaration order.
func (f *CatalogFactory) ParseCatalog(jsonStr string) (*gamify.Catalog, error) {
	var defs []AchievementJSON
	if err := json.Unmarshal([]byte(jsonStr), &defs); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	entries := make([]gamify.Achievement, 0, len(defs))
	for _, d := range defs {
		rarity, err := parseRarity(d.Rarity)
		if err != nil {
			return nil, fmt.Errorf("achievement %q: %w", d.ID, err)
		}
		entries = append(entries, gamify.Achievement{
			ID:          gamify.AchievementID(d.ID),
			Name:        d.Name,
			Description: d.Description,
			Rarity:      rarity,
			Rule: gamify.UnlockRule{
				Kind:      gamify.RuleKind(d.Rule.Kind),
				Threshold: d.Rule.Threshold,
				Activity:  gamify.ActivityKind(d.Rule.Activity),
			},
			RewardXP:    d.RewardXP,
			RewardCoins: d.RewardCoins,
		})
	}

	return gamify.NewCatalog(entries)
}

func parseRarity(s string) (gamify.Rarity, error) {
	switch r := gamify.Rarity(s); r {
	case gamify.RarityCommon, gamify.RarityRare, gamify.RarityEpic, gamify.RarityLegendary:
		return r, nil
	case "":
		return gamify.RarityCommon, nil
	default:
		return "", fmt.Errorf("unknown rarity %q", s)
	}
}
