package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/reward-engine/factory"
	"github.com/warp/reward-engine/gamify"
)

// =============================================================================
// JSON PARSING TESTS
// =============================================================================

func TestParseCatalog_ValidDefinitions(t *testing.T) {
	jsonStr := `[
		{
			"id": "week-warrior",
			"name": "Week Warrior",
			"description": "Work out every day for a week",
			"rarity": "rare",
			"rule": {"kind": "streak_at_least", "activity": "workout", "threshold": 7},
			"reward_xp": 200,
			"reward_coins": 50
		},
		{
			"id": "grinder",
			"name": "Grinder",
			"rarity": "epic",
			"rule": {"kind": "xp_at_least", "threshold": 10000}
		}
	]`

	catalog, err := factory.NewCatalogFactory().ParseCatalog(jsonStr)
	require.NoError(t, err)
	require.Equal(t, 2, catalog.Len())

	a, ok := catalog.Get("week-warrior")
	require.True(t, ok)
	assert.Equal(t, "Week Warrior", a.Name)
	assert.Equal(t, gamify.RarityRare, a.Rarity)
	assert.Equal(t, gamify.RuleStreakAtLeast, a.Rule.Kind)
	assert.Equal(t, gamify.ActivityWorkout, a.Rule.Activity)
	assert.Equal(t, int64(7), a.Rule.Threshold)
	assert.Equal(t, int64(200), a.RewardXP)
	assert.Equal(t, int64(50), a.RewardCoins)

	// Declaration order is evaluation order.
	assert.Equal(t, gamify.AchievementID("week-warrior"), catalog.Achievements()[0].ID)
	assert.Equal(t, gamify.AchievementID("grinder"), catalog.Achievements()[1].ID)
}

func TestParseCatalog_MissingRarity_DefaultsToCommon(t *testing.T) {
	jsonStr := `[{"id": "a", "name": "A", "rule": {"kind": "xp_at_least", "threshold": 1}}]`

	catalog, err := factory.NewCatalogFactory().ParseCatalog(jsonStr)
	require.NoError(t, err)

	a, _ := catalog.Get("a")
	assert.Equal(t, gamify.RarityCommon, a.Rarity)
}

func TestParseCatalog_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		jsonStr string
		errLike string
	}{
		{
			name:    "malformed json",
			jsonStr: `[{`,
			errLike: "invalid catalog JSON",
		},
		{
			name:    "empty catalog",
			jsonStr: `[]`,
			errLike: "empty",
		},
		{
			name:    "unknown rarity",
			jsonStr: `[{"id": "a", "rarity": "mythic", "rule": {"kind": "xp_at_least", "threshold": 1}}]`,
			errLike: "unknown rarity",
		},
		{
			name:    "unknown rule kind",
			jsonStr: `[{"id": "a", "rule": {"kind": "streak_exactly", "threshold": 1}}]`,
			errLike: "unknown rule kind",
		},
		{
			name:    "streak rule without activity",
			jsonStr: `[{"id": "a", "rule": {"kind": "streak_at_least", "threshold": 7}}]`,
			errLike: "unknown activity",
		},
		{
			name:    "duplicate ids",
			jsonStr: `[{"id": "a", "rule": {"kind": "xp_at_least", "threshold": 1}}, {"id": "a", "rule": {"kind": "xp_at_least", "threshold": 2}}]`,
			errLike: "duplicate",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := factory.NewCatalogFactory().ParseCatalog(tc.jsonStr)
			assert.ErrorContains(t, err, tc.errLike)
		})
	}
}

// =============================================================================
// DEFAULT CATALOG TESTS
// =============================================================================

func TestDefaultCatalog_IsValid(t *testing.T) {
	// DefaultCatalog panics on an invalid built-in set; constructing it is
	// itself the validation.

	catalog := factory.DefaultCatalog()
	assert.Greater(t, catalog.Len(), 10)

	// A few anchors product relies on.
	for _, id := range []gamify.AchievementID{"first-workout", "workout-streak-7", "level-10", "collector-10"} {
		_, ok := catalog.Get(id)
		assert.True(t, ok, "missing %s", id)
	}
}

func TestDefaultCatalog_EarlyGameFirst(t *testing.T) {
	// Cheap starter unlocks are declared before grinds so simultaneous
	// unlock batches list them first.

	entries := factory.DefaultCatalog().Achievements()
	assert.Equal(t, gamify.AchievementID("first-task"), entries[0].ID)
}
