package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from its environment. Policy
// numbers (similarity threshold, retention windows) live here rather than in
// pipeline code so tuning them never touches state machine logic.
type Config struct {
	Addr string

	// APIKey guards every /compare-faces* endpoint (X-Api-Key header).
	APIKey string

	// Edge gate: fixed shared credential pair demanded before anything else
	// reaches the gateway. Empty user disables the gate (local development).
	EdgeGateUser         string
	EdgeGatePasswordHash string

	// JWTSigningKey enables the bearer session check when non-empty.
	JWTSigningKey string

	Redis RedisConfig

	Oracle OracleConfig

	// BlobRoot is the local blob store root directory.
	BlobRoot string

	// SimilarityThreshold is the fixed pass/fail policy boundary (0-100).
	SimilarityThreshold float64

	// Retention windows enforced by the blob store's lifecycle sweep.
	OriginalRetention time.Duration
	DerivedRetention  time.Duration
	SweepInterval     time.Duration

	RateLimit RateLimitConfig

	Optimizer OptimizerConfig

	Audit AuditConfig
}

// RedisConfig configures the record store backend. Empty URL means the
// in-memory store is used instead (single-instance / development mode).
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// OracleConfig points at the external face-similarity service.
type OracleConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// RateLimitConfig mirrors the gateway usage plan: sustained rate plus burst.
type RateLimitConfig struct {
	Disabled          bool
	RequestsPerSecond float64
	Burst             int
}

// OptimizerConfig bounds the derived-reference update retry loop.
type OptimizerConfig struct {
	Workers        int
	RefUpdateTries int
	RefUpdateDelay time.Duration
	QueueSize      int
}

// AuditConfig configures the optional Kafka lifecycle-event publisher.
// Empty brokers disables publishing.
type AuditConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Addr:                 envString("IDPROOF_ADDR", ":8080"),
		APIKey:               os.Getenv("IDPROOF_API_KEY"),
		EdgeGateUser:         os.Getenv("IDPROOF_EDGE_USER"),
		EdgeGatePasswordHash: os.Getenv("IDPROOF_EDGE_PASSWORD_HASH"),
		JWTSigningKey:        os.Getenv("IDPROOF_JWT_SIGNING_KEY"),
		Redis: RedisConfig{
			URL:          os.Getenv("IDPROOF_REDIS_URL"),
			PoolSize:     envInt("IDPROOF_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("IDPROOF_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("IDPROOF_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("IDPROOF_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("IDPROOF_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Oracle: OracleConfig{
			URL:     os.Getenv("IDPROOF_ORACLE_URL"),
			APIKey:  os.Getenv("IDPROOF_ORACLE_API_KEY"),
			Timeout: envDuration("IDPROOF_ORACLE_TIMEOUT", 10*time.Second),
		},
		BlobRoot:            envString("IDPROOF_BLOB_ROOT", "./data/blobs"),
		SimilarityThreshold: envFloat("IDPROOF_SIMILARITY_THRESHOLD", 80),
		OriginalRetention:   envDuration("IDPROOF_ORIGINAL_RETENTION", 30*24*time.Hour),
		DerivedRetention:    envDuration("IDPROOF_DERIVED_RETENTION", 365*24*time.Hour),
		SweepInterval:       envDuration("IDPROOF_SWEEP_INTERVAL", time.Hour),
		RateLimit: RateLimitConfig{
			Disabled:          os.Getenv("IDPROOF_RATELIMIT_DISABLED") == "true",
			RequestsPerSecond: envFloat("IDPROOF_RATELIMIT_RPS", 10),
			Burst:             envInt("IDPROOF_RATELIMIT_BURST", 2),
		},
		Optimizer: OptimizerConfig{
			Workers:        envIntAtLeast("IDPROOF_OPTIMIZER_WORKERS", 2, 1),
			RefUpdateTries: envInt("IDPROOF_OPTIMIZER_REF_TRIES", 5),
			RefUpdateDelay: envDuration("IDPROOF_OPTIMIZER_REF_DELAY", 200*time.Millisecond),
			QueueSize:      envInt("IDPROOF_OPTIMIZER_QUEUE", 64),
		},
		Audit: AuditConfig{
			Brokers: envList("IDPROOF_AUDIT_BROKERS"),
			Topic:   envString("IDPROOF_AUDIT_TOPIC", "idproof.verification.events"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envIntAtLeast reads an int, clamped to floor.
func envIntAtLeast(key string, fallback, floor int) int {
	n := envInt(key, fallback)
	if n < floor {
		return floor
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
