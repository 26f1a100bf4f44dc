package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "placeholder-engine/internal/common/errors"
)

// ==========================
// Test Helper Functions
// ==========================

func validConfig() *Config {
	cfg := &Config{}
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Postgres.Database = "placeholder_engine"
	cfg.Database.Postgres.User = "postgres"
	applyDefaults(cfg)
	return cfg
}

// ==========================
// Validation Tests
// ==========================

func TestValidate_WeightSumMustBeOne(t *testing.T) {
	cfg := validConfig()
	cfg.Weights = WeightsConfig{Paragraph: 0.4, Section: 0.2, Document: 0.1, Business: 0.1, Semantic: 0.1}

	err := Validate(cfg)
	require.Error(t, err, "weights summing to 0.9 must fail fast at load time")

	var stdErr *commonerrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, commonerrors.ErrCodeWeightConfigInvalid, stdErr.Code)
}

func TestValidate_WeightSumToleratesFloatNoise(t *testing.T) {
	cfg := validConfig()
	cfg.Weights = WeightsConfig{Paragraph: 0.1, Section: 0.1, Document: 0.1, Business: 0.1, Semantic: 0.6}
	assert.NoError(t, Validate(cfg))
}

func TestValidate_EngineBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Engine.MaxWorkers = -1 }},
		{"zero retry budget", func(c *Config) { c.Engine.MaxRetryAttempts = -1 }},
		{"confidence above one", func(c *Config) { c.Engine.MinIntentConfidence = 1.5 }},
		{"alpha out of range", func(c *Config) { c.Engine.LearningAlpha = 1.0 }},
		{"missing postgres host", func(c *Config) { c.Database.Postgres.Host = "" }},
		{"cache without redis", func(c *Config) {
			c.Engine.CacheEnabled = true
			c.Database.Redis.Address = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

// ==========================
// Defaults Tests
// ==========================

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, 4, cfg.Engine.MaxWorkers)
	assert.Equal(t, 30, cfg.Engine.TimeoutSeconds)
	assert.Equal(t, 120, cfg.Engine.DocumentTimeoutSeconds)
	assert.Equal(t, 3, cfg.Engine.MaxRetryAttempts)
	assert.Equal(t, 5, cfg.Engine.MaxNestingDepth)
	assert.Equal(t, 0.3, cfg.Engine.MinIntentConfidence)
	assert.Equal(t, 0.2, cfg.Engine.LearningAlpha)

	assert.InDelta(t, 1.0, cfg.Weights.Sum(), 1e-9)
	assert.Equal(t, 0.25, cfg.Weights.Paragraph)
	assert.Equal(t, 0.15, cfg.Weights.Semantic)
}

// ==========================
// File Loading Tests
// ==========================

func TestLoadFromFile(t *testing.T) {
	yaml := `
app:
  name: "placeholder-resolver"
  environment: "test"
engine:
  max_workers: 2
  cache_enabled: false
database:
  postgres:
    host: "db.internal"
    database: "engine"
    user: "svc"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "placeholder-resolver", cfg.App.Name)
	assert.Equal(t, 2, cfg.Engine.MaxWorkers)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	// Unset fields pick up defaults.
	assert.Equal(t, 30, cfg.Engine.TimeoutSeconds)
	assert.InDelta(t, 1.0, cfg.Weights.Sum(), 1e-9)
}

func TestLoadFromFile_RejectsBadWeights(t *testing.T) {
	yaml := `
weights:
  paragraph: 0.5
  section: 0.2
  document: 0.1
  business: 0.05
  semantic: 0.05
database:
  postgres:
    host: "db.internal"
    database: "engine"
    user: "svc"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, GetDuration(30))
}
