package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/reward-engine/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rewards.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_EmptyPath_ReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_MissingFile_ReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("/nonexistent/rewards.toml")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "0.0.0.0"
port = 9090

[database]
path = "/var/lib/rewards.db"

[engine]
weekend_bonus = 1.5
premium_bonus = 2.0
default_timezone = "Europe/Berlin"

[[engine.streak_tiers]]
min_length = 3
factor = 1.2

[logging]
level = "debug"
development = true
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/rewards.db", cfg.Database.Path)
	assert.Equal(t, 1.5, cfg.Engine.WeekendBonus)
	assert.Equal(t, "Europe/Berlin", cfg.Engine.DefaultTimezone)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	require.Len(t, cfg.Engine.StreakTiers, 1)
	assert.Equal(t, 3, cfg.Engine.StreakTiers[0].MinLength)
}

func TestLoad_InvalidPort_Rejected(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 99999
`)
	_, err := config.Load(path)
	assert.ErrorContains(t, err, "invalid server port")
}

func TestLoad_SubUnityBonus_Rejected(t *testing.T) {
	// Bonuses never reduce a base reward; factors below 1 are config bugs.

	path := writeConfig(t, `
[engine]
weekend_bonus = 0.5
`)
	_, err := config.Load(path)
	assert.ErrorContains(t, err, "must be >= 1")
}

func TestBonusConfig_ConvertsAndSortsTiers(t *testing.T) {
	ec := config.EngineConfig{
		WeekendBonus: 1.25,
		PremiumBonus: 1.5,
		StreakTiers: []config.StreakTierEntry{
			{MinLength: 14, Factor: 1.5},
			{MinLength: 2, Factor: 1.1},
		},
	}

	bonus := ec.BonusConfig()
	require.Len(t, bonus.StreakTiers, 2)
	assert.Equal(t, 2, bonus.StreakTiers[0].MinLength, "tiers sorted ascending")
	assert.True(t, bonus.StreakTiers[0].Factor.Equal(decimal.RequireFromString("1.1")))
	assert.True(t, bonus.WeekendBonus.Equal(decimal.RequireFromString("1.25")))
}
