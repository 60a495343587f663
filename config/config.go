// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort int
	DBPath   string
	LogLevel string

	LockTimeout    time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration

	// KafkaBrokers empty means ledger events are logged instead of published.
	KafkaBrokers []string
	KafkaTopic   string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	ReconcileInterval time.Duration
}

// Load reads .env when present, then the BANK_* variables. Missing variables
// take their defaults; malformed ones are an error.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:       getEnv("BANK_DB_PATH", "bank.db"),
		LogLevel:     getEnv("BANK_LOG_LEVEL", "info"),
		KafkaBrokers: splitList(getEnv("BANK_KAFKA_BROKERS", "")),
		KafkaTopic:   getEnv("BANK_KAFKA_TOPIC", "ledger-events"),
	}

	var err error
	if cfg.HTTPPort, err = getInt("BANK_HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.LockTimeout, err = getDuration("BANK_LOCK_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = getInt("BANK_MAX_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.RetryBaseDelay, err = getDuration("BANK_RETRY_BASE_DELAY", 10*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.OutboxPollInterval, err = getDuration("BANK_OUTBOX_POLL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.OutboxBatchSize, err = getInt("BANK_OUTBOX_BATCH_SIZE", 50); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = getDuration("BANK_RECONCILE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	return cfg, nil
}

// KafkaEnabled reports whether ledger events go to a broker.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, raw)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration", key, raw)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
