package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"spinroyale/internal/models"
)

const RevealRows = 9

type Rewards struct {
	Jackpot int64 `yaml:"jackpot"`
	Triple  int64 `yaml:"triple"`
	Pair    int64 `yaml:"pair"`
	None    int64 `yaml:"none"`
}

type DailyGrants struct {
	Coins int64 `yaml:"coins"`
	Spins int64 `yaml:"spins"`
}

// GameConfig holds every tunable table the engines read.
type GameConfig struct {
	Symbols            []models.Symbol `yaml:"symbols"`
	JackpotSymbol      models.Symbol   `yaml:"jackpot_symbol"`
	RowMultipliers     []float64       `yaml:"row_multipliers"`
	MaxCrashMultiplier float64         `yaml:"max_crash_multiplier"`
	Rewards            Rewards         `yaml:"rewards"`
	Daily              DailyGrants     `yaml:"daily"`
}

func DefaultGameConfig() *GameConfig {
	return &GameConfig{
		Symbols:            []models.Symbol{"lemon", "heart", "cherry", "seven"},
		JackpotSymbol:      "seven",
		RowMultipliers:     []float64{1.1, 1.15, 1.2, 1.25, 1.3, 1.35, 1.4, 1.45, 1.5},
		MaxCrashMultiplier: 100.0,
		Rewards: Rewards{
			Jackpot: 2000,
			Triple:  1000,
			Pair:    200,
			None:    50,
		},
		Daily: DailyGrants{
			Coins: 1000,
			Spins: 10,
		},
	}
}

// LoadGameConfig reads YAML tables from path over the defaults.
// An empty path returns the defaults unchanged.
func LoadGameConfig(path string) (*GameConfig, error) {
	cfg := DefaultGameConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse game config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *GameConfig) Validate() error {
	if len(c.Symbols) < 2 {
		return errors.New("at least 2 symbols are required")
	}

	seen := make(map[models.Symbol]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if seen[s] {
			return fmt.Errorf("duplicate symbol %q", s)
		}
		seen[s] = true
	}
	if !seen[c.JackpotSymbol] {
		return fmt.Errorf("jackpot symbol %q is not in the alphabet", c.JackpotSymbol)
	}

	if len(c.RowMultipliers) != RevealRows {
		return fmt.Errorf("expected %d row multipliers, got %d", RevealRows, len(c.RowMultipliers))
	}
	for i, m := range c.RowMultipliers {
		if m < 1.0 {
			return fmt.Errorf("row multiplier %d must be at least 1.0, got %v", i, m)
		}
		if i > 0 && m < c.RowMultipliers[i-1] {
			return fmt.Errorf("row multipliers must be ascending: %v after %v", m, c.RowMultipliers[i-1])
		}
	}

	if c.MaxCrashMultiplier < 1.0 {
		return fmt.Errorf("max crash multiplier must be at least 1.0, got %v", c.MaxCrashMultiplier)
	}

	r := c.Rewards
	if r.Jackpot < 0 || r.Triple < 0 || r.Pair < 0 || r.None < 0 {
		return errors.New("rewards must not be negative")
	}
	if c.Daily.Coins < 0 || c.Daily.Spins < 0 {
		return errors.New("daily grants must not be negative")
	}
	return nil
}
