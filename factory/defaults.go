package factory

import "github.com/warp/reward-engine/gamify"

// DefaultCatalog returns the built-in achievement set: a spread across
// rarities covering first activities, streak milestones, level and XP
// milestones, and activity-count grinds. Declaration order is evaluation
// order, so cheap early-game unlocks come first.
func DefaultCatalog() *gamify.Catalog {
	catalog, err := gamify.NewCatalog(defaultAchievements())
	if err != nil {
		// The built-in set is validated by tests; a failure here is a
		// programming error, not a runtime condition.
		panic(err)
	}
	return catalog
}

func defaultAchievements() []gamify.Achievement {
	return []gamify.Achievement{
		// Getting started
		{
			ID: "first-task", Name: "Off the Ground", Rarity: gamify.RarityCommon,
			Description: "Complete your first task",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleActivityCountAtLeast, Activity: gamify.ActivityTaskComplete, Threshold: 1},
			RewardXP:    25, RewardCoins: 10,
		},
		{
			ID: "first-meal", Name: "Food Diary", Rarity: gamify.RarityCommon,
			Description: "Log your first meal",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleActivityCountAtLeast, Activity: gamify.ActivityMealLog, Threshold: 1},
			RewardXP:    25, RewardCoins: 10,
		},
		{
			ID: "first-workout", Name: "Warm-Up", Rarity: gamify.RarityCommon,
			Description: "Finish your first workout",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleActivityCountAtLeast, Activity: gamify.ActivityWorkout, Threshold: 1},
			RewardXP:    25, RewardCoins: 10,
		},

		// Streaks
		{
			ID: "workout-streak-7", Name: "Week Warrior", Rarity: gamify.RarityRare,
			Description: "Work out seven days in a row",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleStreakAtLeast, Activity: gamify.ActivityWorkout, Threshold: 7},
			RewardXP:    200, RewardCoins: 50,
		},
		{
			ID: "meal-streak-14", Name: "Steady Tracker", Rarity: gamify.RarityRare,
			Description: "Log meals fourteen days in a row",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleStreakAtLeast, Activity: gamify.ActivityMealLog, Threshold: 14},
			RewardXP:    300, RewardCoins: 75,
		},
		{
			ID: "checkin-streak-30", Name: "Monthly Machine", Rarity: gamify.RarityEpic,
			Description: "Check in thirty days in a row",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleStreakAtLeast, Activity: gamify.ActivityCheckin, Threshold: 30},
			RewardXP:    1000, RewardCoins: 250,
		},
		{
			ID: "workout-best-100", Name: "Centurion", Rarity: gamify.RarityLegendary,
			Description: "Reach a 100-day workout streak",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleLongestStreakAtLeast, Activity: gamify.ActivityWorkout, Threshold: 100},
			RewardXP:    5000, RewardCoins: 1000,
		},

		// Levels and totals
		{
			ID: "level-5", Name: "Getting Serious", Rarity: gamify.RarityCommon,
			Description: "Reach level 5",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleLevelAtLeast, Threshold: 5},
			RewardXP:    50, RewardCoins: 25,
		},
		{
			ID: "level-10", Name: "Rising Star", Rarity: gamify.RarityRare,
			Description: "Reach level 10",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleLevelAtLeast, Threshold: 10},
			RewardXP:    150, RewardCoins: 75,
		},
		{
			ID: "level-25", Name: "Veteran", Rarity: gamify.RarityEpic,
			Description: "Reach level 25",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleLevelAtLeast, Threshold: 25},
			RewardXP:    750, RewardCoins: 300,
		},
		{
			ID: "xp-10000", Name: "Ten Thousand Club", Rarity: gamify.RarityEpic,
			Description: "Accumulate 10,000 XP",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleXPAtLeast, Threshold: 10000},
			RewardXP:    0, RewardCoins: 500,
		},
		{
			ID: "coins-1000", Name: "Full Piggy Bank", Rarity: gamify.RarityRare,
			Description: "Hold 1,000 coins",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleCoinsAtLeast, Threshold: 1000},
			RewardXP:    100, RewardCoins: 0,
		},

		// Grinds
		{
			ID: "meals-100", Name: "Hundred Plates", Rarity: gamify.RarityRare,
			Description: "Log one hundred meals",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleActivityCountAtLeast, Activity: gamify.ActivityMealLog, Threshold: 100},
			RewardXP:    250, RewardCoins: 100,
		},
		{
			ID: "water-50", Name: "Well Hydrated", Rarity: gamify.RarityCommon,
			Description: "Log water fifty times",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleActivityCountAtLeast, Activity: gamify.ActivityWater, Threshold: 50},
			RewardXP:    100, RewardCoins: 40,
		},
		{
			ID: "helper-10", Name: "Good Neighbor", Rarity: gamify.RarityRare,
			Description: "Help other members ten times",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleActivityCountAtLeast, Activity: gamify.ActivitySocialHelp, Threshold: 10},
			RewardXP:    200, RewardCoins: 100,
		},

		// Meta
		{
			ID: "collector-10", Name: "Collector", Rarity: gamify.RarityEpic,
			Description: "Unlock ten achievements",
			Rule:        gamify.UnlockRule{Kind: gamify.RuleAchievementCountAtLeast, Threshold: 10},
			RewardXP:    500, RewardCoins: 250,
		},
	}
}
