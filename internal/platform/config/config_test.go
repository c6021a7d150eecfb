package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 80.0, cfg.SimilarityThreshold)
	assert.Equal(t, 30*24*time.Hour, cfg.OriginalRetention)
	assert.Equal(t, 365*24*time.Hour, cfg.DerivedRetention)
	assert.Equal(t, 10.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 2, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Disabled)
	assert.Equal(t, 10*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 2, cfg.Optimizer.Workers)
	assert.Nil(t, cfg.Audit.Brokers)
	assert.Equal(t, "idproof.verification.events", cfg.Audit.Topic)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("IDPROOF_ADDR", ":9090")
	t.Setenv("IDPROOF_API_KEY", "k")
	t.Setenv("IDPROOF_SIMILARITY_THRESHOLD", "90.5")
	t.Setenv("IDPROOF_ORACLE_TIMEOUT", "3s")
	t.Setenv("IDPROOF_RATELIMIT_DISABLED", "true")
	t.Setenv("IDPROOF_AUDIT_BROKERS", "broker-1:9092, broker-2:9092")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, 90.5, cfg.SimilarityThreshold)
	assert.Equal(t, 3*time.Second, cfg.Oracle.Timeout)
	assert.True(t, cfg.RateLimit.Disabled)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.Audit.Brokers)
}

func TestFromEnvClampsOptimizerWorkers(t *testing.T) {
	t.Setenv("IDPROOF_OPTIMIZER_WORKERS", "0")
	assert.Equal(t, 1, FromEnv().Optimizer.Workers)

	t.Setenv("IDPROOF_OPTIMIZER_WORKERS", "-3")
	assert.Equal(t, 1, FromEnv().Optimizer.Workers)

	t.Setenv("IDPROOF_OPTIMIZER_WORKERS", "4")
	assert.Equal(t, 4, FromEnv().Optimizer.Workers)
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("IDPROOF_SIMILARITY_THRESHOLD", "not-a-number")
	t.Setenv("IDPROOF_ORACLE_TIMEOUT", "soon")
	t.Setenv("IDPROOF_RATELIMIT_BURST", "two")

	cfg := FromEnv()

	assert.Equal(t, 80.0, cfg.SimilarityThreshold)
	assert.Equal(t, 10*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 2, cfg.RateLimit.Burst)
}
