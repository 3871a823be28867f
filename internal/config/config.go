package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Redis        RedisConfig        `yaml:"redis"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	AMQP         AMQPConfig         `yaml:"amqp"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	Store        StoreConfig        `yaml:"store"`
	Gamification GamificationConfig `yaml:"gamification"`
}

type ServerConfig struct {
	Port string `yaml:"port" env:"PORT"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	// SessionTTL expires idle sessions; empty keeps them.
	SessionTTL string `yaml:"session_ttl" env:"REDIS_SESSION_TTL"`
}

type PostgresConfig struct {
	URL string `yaml:"url" env:"POSTGRES_URL"`
}

type AMQPConfig struct {
	URL     string `yaml:"url" env:"AMQP_URL"`
	Queue   string `yaml:"queue" env:"AMQP_QUEUE"`
	Workers int    `yaml:"workers" env:"AMQP_WORKERS"`
}

type CatalogConfig struct {
	TTL string `yaml:"ttl" env:"CATALOG_TTL"`
}

type StoreConfig struct {
	// Backend selects sessions/profiles storage: memory, redis or postgres.
	// Empty picks postgres, then redis, then memory, depending on what is configured.
	Backend         string `yaml:"backend" env:"STORE_BACKEND"`
	Timeout         string `yaml:"timeout" env:"STORE_TIMEOUT"`
	ReadAttempts    int    `yaml:"read_attempts" env:"STORE_READ_ATTEMPTS"`
	BreakerFailures int    `yaml:"breaker_failures" env:"STORE_BREAKER_FAILURES"`
}

type GamificationConfig struct {
	XPPerCorrectAnswer    int               `yaml:"xp_per_correct_answer" env:"XP_PER_CORRECT_ANSWER"`
	XPPerActivityCreation int               `yaml:"xp_per_activity_creation" env:"XP_PER_ACTIVITY_CREATION"`
	XPPerBudgetSimulation int               `yaml:"xp_per_budget_simulation" env:"XP_PER_BUDGET_SIMULATION"`
	XPPerLevel            int               `yaml:"xp_per_level" env:"XP_PER_LEVEL"`
	MasteryThreshold      float64           `yaml:"mastery_threshold" env:"MASTERY_THRESHOLD"`
	ThemeBadges           map[string]string `yaml:"theme_badges" env:"THEME_BADGES"`
}

// Load reads YAML config from path, then applies environment overrides and defaults.
// A missing file is not an error: the service can be configured from the environment alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Store.ReadAttempts == 0 {
		c.Store.ReadAttempts = 3
	}
	if c.Store.BreakerFailures == 0 {
		c.Store.BreakerFailures = 5
	}
	g := &c.Gamification
	if g.XPPerCorrectAnswer == 0 {
		g.XPPerCorrectAnswer = 20
	}
	if g.XPPerActivityCreation == 0 {
		g.XPPerActivityCreation = 50
	}
	if g.XPPerBudgetSimulation == 0 {
		g.XPPerBudgetSimulation = 30
	}
	if g.XPPerLevel == 0 {
		g.XPPerLevel = 100
	}
	if g.MasteryThreshold == 0 {
		g.MasteryThreshold = 80
	}
}

// Validate rejects values the services cannot run with.
func (c Config) Validate() error {
	g := c.Gamification
	if g.XPPerCorrectAnswer < 0 || g.XPPerActivityCreation < 0 || g.XPPerBudgetSimulation < 0 {
		return fmt.Errorf("gamification: xp amounts must not be negative")
	}
	if g.XPPerLevel <= 0 {
		return fmt.Errorf("gamification: xp_per_level must be positive")
	}
	if g.MasteryThreshold < 0 || g.MasteryThreshold > 100 {
		return fmt.Errorf("gamification: mastery_threshold must be a percentage")
	}
	switch c.Store.Backend {
	case "", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("store: redis backend needs redis.addr")
		}
	case "postgres":
		if c.Postgres.URL == "" {
			return fmt.Errorf("store: postgres backend needs postgres.url")
		}
	default:
		return fmt.Errorf("store: unknown backend %q", c.Store.Backend)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log: unknown format %q", c.Log.Format)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
