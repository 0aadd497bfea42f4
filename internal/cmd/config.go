package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the scoreboard server configuration, loaded from a YAML
// file with environment overrides for deployment knobs.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Session struct {
		ClaimVisibilitySec int `yaml:"claim_visibility_sec"`
		ClaimBackstopSec   int `yaml:"claim_backstop_sec"`
		SweepIntervalSec   int `yaml:"sweep_interval_sec"`
	} `yaml:"session"`

	Store struct {
		Backend      string `yaml:"backend"` // "file" or "postgres"
		FilePath     string `yaml:"file_path"`
		RetentionCap int    `yaml:"retention_cap"`
	} `yaml:"store"`

	NATS struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"nats"`
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.Session.ClaimVisibilitySec = 30
	cfg.Session.ClaimBackstopSec = 45
	cfg.Session.SweepIntervalSec = 10
	cfg.Store.Backend = "file"
	cfg.Store.FilePath = "data/leaderboard.json"
	cfg.Store.RetentionCap = 100
	cfg.NATS.Enabled = false
	cfg.NATS.URL = "nats://localhost:4222"
	return cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment overrides for deployment
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.FilePath = getEnv("LEADERBOARD_FILE", cfg.Store.FilePath)
	cfg.Store.RetentionCap = getEnvAsInt("RETENTION_CAP", cfg.Store.RetentionCap)
	if getEnv("NATS_URL", "") != "" {
		cfg.NATS.Enabled = true
		cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	}

	return cfg, nil
}

func (c *Config) claimVisibility() time.Duration {
	return time.Duration(c.Session.ClaimVisibilitySec) * time.Second
}

func (c *Config) claimBackstop() time.Duration {
	return time.Duration(c.Session.ClaimBackstopSec) * time.Second
}

func (c *Config) sweepInterval() time.Duration {
	return time.Duration(c.Session.SweepIntervalSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
