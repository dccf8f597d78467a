package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "importer", cfg.AppName)
	assert.Equal(t, "subscriptions", cfg.SubscriptionsQueueName)
	assert.Equal(t, 7, cfg.UsageWindowDays)
	assert.Equal(t, 16, cfg.QueueBatchSize)
	assert.Equal(t, 24*time.Hour, cfg.EnumerationInterval)
	assert.Equal(t, 5*time.Minute, cfg.ProcessTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("USAGE_WINDOW_DAYS", "3")
	t.Setenv("ENUMERATION_INTERVAL", "1h")
	t.Setenv("SUBSCRIPTIONS_QUEUE_NAME", "subs-test")

	cfg := Load()
	assert.Equal(t, 3, cfg.UsageWindowDays)
	assert.Equal(t, time.Hour, cfg.EnumerationInterval)
	assert.Equal(t, "subs-test", cfg.SubscriptionsQueueName)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("QUEUE_BATCH_SIZE", "not-a-number")
	t.Setenv("PROCESS_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, 16, cfg.QueueBatchSize)
	assert.Equal(t, 5*time.Minute, cfg.ProcessTimeout)
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, Config{Environment: "development"}.IsDevelopment())
	assert.True(t, Config{Environment: "Development"}.IsDevelopment())
	assert.False(t, Config{Environment: "production"}.IsDevelopment())
}

func TestProviderCredentialsConfigured(t *testing.T) {
	assert.False(t, ProviderCredentials{}.Configured())
	assert.False(t, ProviderCredentials{TenantID: "t", AppID: "a"}.Configured())
	assert.True(t, ProviderCredentials{TenantID: "t", AppID: "a", AppSecret: "s"}.Configured())
}
