package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort     = 2336
	defaultEnv      = "development"
	defaultDSN      = "root:password@tcp(127.0.0.1:3306)/review_core?charset=utf8mb4&parseTime=True&loc=Local"
	defaultRedisURL = "redis://localhost:6379/0"
)

// Load reads the YAML config file and applies defaults.
func Load(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Missing file falls through to defaults + env.
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = defaultEnv
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		if dsn := os.Getenv("REVIEW_CORE_DSN"); dsn != "" {
			cfg.DSN = dsn
		} else {
			cfg.DSN = defaultDSN
		}
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		if url := os.Getenv("REVIEW_CORE_REDIS_URL"); url != "" {
			cfg.RedisURL = url
		} else {
			cfg.RedisURL = defaultRedisURL
		}
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		cfg.JWTSecret = os.Getenv("REVIEW_CORE_JWT_SECRET")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	r := &cfg.Review
	if r.ApproveThreshold <= 0 {
		r.ApproveThreshold = 0.90
	}
	if r.RejectThreshold <= 0 {
		r.RejectThreshold = 0.80
	}
	if r.RequestTimeout <= 0 {
		r.RequestTimeout = 60 * time.Second
	}
	if r.MaxAttempts <= 0 {
		r.MaxAttempts = 3
	}
	if r.RetryBackoff <= 0 {
		r.RetryBackoff = 60 * time.Second
	}
	if len(r.ViolationTypes) == 0 {
		r.ViolationTypes = append(r.ViolationTypes, DefaultViolationTypes...)
	}
}

func validate(cfg *AppConfig) error {
	r := cfg.Review
	if r.ApproveThreshold > 1 || r.RejectThreshold > 1 {
		return fmt.Errorf("review thresholds must be within (0, 1], got approve=%v reject=%v",
			r.ApproveThreshold, r.RejectThreshold)
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "development")
}
