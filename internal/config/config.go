package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Env        string
	RedisURL   string
	RedisPass  string
	RedisDB    int
	GameConfig string
	LogLevel   string
	LogFile    string
}

// Load reads settings from the environment. Callers load .env beforehand via LoadDotEnv.
func Load() (*Config, error) {
	cfg := &Config{
		Env:        getEnv("APP_ENV", "development"),
		RedisURL:   getEnv("REDIS_URL", "localhost:6379"),
		RedisPass:  os.Getenv("REDIS_PASSWORD"),
		GameConfig: os.Getenv("GAME_CONFIG"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    os.Getenv("LOG_FILE"),
	}

	if raw := os.Getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", raw, err)
		}
		cfg.RedisDB = db
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
