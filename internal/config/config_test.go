package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, 2336, cfg.Port)
	assert.Equal(t, "development", cfg.Env)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 4, cfg.Workers)

	assert.Equal(t, 0.90, cfg.Review.ApproveThreshold)
	assert.Equal(t, 0.80, cfg.Review.RejectThreshold)
	assert.Equal(t, 60*time.Second, cfg.Review.RequestTimeout)
	assert.Equal(t, 3, cfg.Review.MaxAttempts)
	assert.Equal(t, DefaultViolationTypes, cfg.Review.ViolationTypes)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
port: 9000
env: production
workers: 8
review:
  approve_threshold: 0.95
  reject_threshold: 0.70
  max_attempts: 5
  violation_types:
    - porn
    - spam
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 0.95, cfg.Review.ApproveThreshold)
	assert.Equal(t, 0.70, cfg.Review.RejectThreshold)
	assert.Equal(t, 5, cfg.Review.MaxAttempts)
	assert.Equal(t, []string{"porn", "spam"}, cfg.Review.ViolationTypes)
	// Unset fields still get defaults.
	assert.Equal(t, 60*time.Second, cfg.Review.RetryBackoff)
}

func TestLoadRejectsOutOfRangeThresholds(t *testing.T) {
	path := writeConfig(t, "review:\n  approve_threshold: 1.5\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := writeConfig(t, "port: [not a number")

	_, err := Load(path)
	assert.Error(t, err)
}
