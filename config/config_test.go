package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"BANK_HTTP_PORT", "BANK_DB_PATH", "BANK_LOG_LEVEL", "BANK_LOCK_TIMEOUT",
		"BANK_MAX_RETRIES", "BANK_RETRY_BASE_DELAY", "BANK_KAFKA_BROKERS",
		"BANK_KAFKA_TOPIC", "BANK_OUTBOX_POLL_INTERVAL", "BANK_OUTBOX_BATCH_SIZE",
		"BANK_RECONCILE_INTERVAL",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("BANK_DB_PATH", "bank.db")
	t.Setenv("BANK_LOG_LEVEL", "info")
	t.Setenv("BANK_KAFKA_TOPIC", "ledger-events")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "bank.db", cfg.DBPath)
	assert.Equal(t, 5*time.Second, cfg.LockTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 50, cfg.OutboxBatchSize)
	assert.Equal(t, time.Hour, cfg.ReconcileInterval)
	assert.False(t, cfg.KafkaEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BANK_HTTP_PORT", "9090")
	t.Setenv("BANK_LOCK_TIMEOUT", "250ms")
	t.Setenv("BANK_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("BANK_KAFKA_TOPIC", "ledger")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "ledger", cfg.KafkaTopic)
	assert.True(t, cfg.KafkaEnabled())
}

func TestLoad_MalformedValue(t *testing.T) {
	t.Setenv("BANK_MAX_RETRIES", "three")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BANK_MAX_RETRIES")
}
