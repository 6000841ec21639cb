package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissing marks required configuration that is absent at startup.
// Load fails before any network call is made.
var ErrMissing = errors.New("missing required configuration")

type Config struct {
	TelegramBotToken string
	TelegramChatID   int64
	DatabaseURL      string
	CredentialsFile  string
	Timezone         string
	PollInterval     time.Duration
	RetentionDays    int
	SendSummary      bool
	Debug            bool
}

func Load() (*Config, error) {
	// A .env file is a convenience, not a requirement.
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("%w: TELEGRAM_BOT_TOKEN", ErrMissing)
	}

	chatIDRaw := os.Getenv("TELEGRAM_CHAT_ID")
	if chatIDRaw == "" {
		return nil, fmt.Errorf("%w: TELEGRAM_CHAT_ID", ErrMissing)
	}
	chatID, err := strconv.ParseInt(chatIDRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %v", err)
	}

	pollSeconds, err := strconv.Atoi(getEnvWithDefault("POLL_INTERVAL", "900"))
	if err != nil || pollSeconds <= 0 {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: want a positive number of seconds")
	}

	retentionDays, err := strconv.Atoi(getEnvWithDefault("RETENTION_DAYS", "7"))
	if err != nil || retentionDays <= 0 {
		return nil, fmt.Errorf("invalid RETENTION_DAYS: want a positive number of days")
	}

	sendSummary, err := strconv.ParseBool(getEnvWithDefault("SEND_SUMMARY", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEND_SUMMARY: %v", err)
	}

	debug, err := strconv.ParseBool(getEnvWithDefault("DEBUG", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEBUG: %v", err)
	}

	return &Config{
		TelegramBotToken: token,
		TelegramChatID:   chatID,
		DatabaseURL:      getEnvWithDefault("DATABASE_URL", "tgtg_offers.db"),
		CredentialsFile:  getEnvWithDefault("TGTG_CREDENTIALS_FILE", "tgtg_credentials.json"),
		Timezone:         getEnvWithDefault("TGTG_TIMEZONE", "Europe/Berlin"),
		PollInterval:     time.Duration(pollSeconds) * time.Second,
		RetentionDays:    retentionDays,
		SendSummary:      sendSummary,
		Debug:            debug,
	}, nil
}

// Retention is the record retention window derived from RetentionDays.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

func getEnvWithDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
