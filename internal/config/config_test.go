package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
}

func TestLoadFailsFastWithoutTelegramCredentials(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissing)

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	_, err = Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissing)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.TelegramBotToken)
	assert.Equal(t, int64(42), cfg.TelegramChatID)
	assert.Equal(t, "tgtg_offers.db", cfg.DatabaseURL)
	assert.Equal(t, "tgtg_credentials.json", cfg.CredentialsFile)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, 15*time.Minute, cfg.PollInterval)
	assert.Equal(t, 7, cfg.RetentionDays)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention())
	assert.False(t, cfg.SendSummary)
}

func TestLoadOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/tgtg")
	t.Setenv("POLL_INTERVAL", "1800")
	t.Setenv("RETENTION_DAYS", "14")
	t.Setenv("SEND_SUMMARY", "true")
	t.Setenv("TGTG_TIMEZONE", "Europe/Amsterdam")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/tgtg", cfg.DatabaseURL)
	assert.Equal(t, 30*time.Minute, cfg.PollInterval)
	assert.Equal(t, 14, cfg.RetentionDays)
	assert.True(t, cfg.SendSummary)
	assert.Equal(t, "Europe/Amsterdam", cfg.Timezone)
}

func TestLoadRejectsBadValues(t *testing.T) {
	setRequiredEnv(t)

	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err := Load()
	assert.Error(t, err)

	setRequiredEnv(t)
	t.Setenv("POLL_INTERVAL", "-5")
	_, err = Load()
	assert.Error(t, err)
}
