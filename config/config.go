// Package config loads engine and server configuration from TOML.
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/warp/reward-engine/gamify"
)

// Config holds all server configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Engine   EngineConfig   `toml:"engine"`
	Logging  LoggingConfig  `toml:"logging"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// DatabaseConfig controls persistence.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// EngineConfig holds the reward tunables.
type EngineConfig struct {
	WeekendBonus    float64           `toml:"weekend_bonus"`
	PremiumBonus    float64           `toml:"premium_bonus"`
	StreakTiers     []StreakTierEntry `toml:"streak_tiers"`
	DefaultTimezone string            `toml:"default_timezone"`
}

// StreakTierEntry maps a minimum streak length to a bonus factor.
type StreakTierEntry struct {
	MinLength int     `toml:"min_length"`
	Factor    float64 `toml:"factor"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Default returns the shipped configuration: the documented bonus table,
// UTC day boundaries, a local SQLite file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:        "127.0.0.1",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Database: DatabaseConfig{
			Path: "rewards.db",
		},
		Engine: EngineConfig{
			WeekendBonus: 1.25,
			PremiumBonus: 1.5,
			StreakTiers: []StreakTierEntry{
				{MinLength: 2, Factor: 1.1},
				{MinLength: 7, Factor: 1.25},
				{MinLength: 14, Factor: 1.5},
				{MinLength: 30, Factor: 2.0},
			},
			DefaultTimezone: "UTC",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a TOML config file, falling back to defaults when path is
// empty or the file does not exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Engine.WeekendBonus < 1 || c.Engine.PremiumBonus < 1 {
		return fmt.Errorf("bonus factors must be >= 1")
	}
	for _, tier := range c.Engine.StreakTiers {
		if tier.MinLength < 1 || tier.Factor < 1 {
			return fmt.Errorf("invalid streak tier {%d, %v}", tier.MinLength, tier.Factor)
		}
	}
	return nil
}

// BonusConfig converts the TOML tunables into the engine's decimal form,
// sorting tiers ascending so the highest applicable tier wins.
func (c EngineConfig) BonusConfig() gamify.BonusConfig {
	tiers := make([]gamify.StreakTier, 0, len(c.StreakTiers))
	for _, t := range c.StreakTiers {
		tiers = append(tiers, gamify.StreakTier{
			MinLength: t.MinLength,
			Factor:    decimal.NewFromFloat(t.Factor),
		})
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinLength < tiers[j].MinLength })

	return gamify.BonusConfig{
		StreakTiers:  tiers,
		WeekendBonus: decimal.NewFromFloat(c.WeekendBonus),
		PremiumBonus: decimal.NewFromFloat(c.PremiumBonus),
	}
}
