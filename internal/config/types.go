package config

import "time"

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int          `yaml:"port"`
	DSN            string       `yaml:"dsn"` // MySQL DSN
	RedisURL       string       `yaml:"redis_url"`
	Env            string       `yaml:"env"` // "development" | "production"
	JWTSecret      string       `yaml:"jwt_secret"`
	AllowedOrigins []string     `yaml:"allowed_origins"`
	Workers        int          `yaml:"workers"` // task queue worker count
	Review         ReviewConfig `yaml:"review"`
}

// ReviewConfig is the decision policy for the AI review engine. Thresholds
// divide confidence into three bands: auto-approve, auto-reject and the
// indeterminate band that routes to manual review.
type ReviewConfig struct {
	ApproveThreshold float64       `yaml:"approve_threshold"`
	RejectThreshold  float64       `yaml:"reject_threshold"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	MaxAttempts      int           `yaml:"max_attempts"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	ViolationTypes   []string      `yaml:"violation_types"`
}

// DefaultViolationTypes is the built-in violation taxonomy, extendable via
// config. Labels are wire values shared with the admin frontend.
var DefaultViolationTypes = []string{
	"porn",
	"politics",
	"violence",
	"gambling",
	"drugs",
	"abuse",
	"advertising",
	"privacy",
	"illegal",
	"other",
}
