package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the bot reads from the environment.
type Config struct {
	TelegramToken    string
	DBType           string // sqlite or postgres
	DBPath           string // sqlite file path
	DatabaseURL      string // postgres DSN
	ContentDir       string // local content module directory
	ContentBaseURL   string // optional HTTP source for content modules
	VaultEndpoint    string
	VaultAccount     string
	AdminUserIDs     string // comma-separated Telegram IDs
	SchedulerEnabled bool
	NotifyStartHour  int
	NotifyEndHour    int
	AnswerDelay      time.Duration // how long correct/incorrect feedback stays up
	Timezone         string
}

// Load reads configuration from a .env file (if present) and environment
// variables, applying defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		TelegramToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		DBType:           envOr("DB_TYPE", "sqlite"),
		DBPath:           envOr("DB_PATH", "data/recoverybot.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		ContentDir:       envOr("CONTENT_DIR", "content"),
		ContentBaseURL:   os.Getenv("CONTENT_BASE_URL"),
		VaultEndpoint:    envOr("VAULT_ENDPOINT", "https://api.hyperliquid.xyz/info"),
		VaultAccount:     os.Getenv("VAULT_ACCOUNT"),
		AdminUserIDs:     os.Getenv("ADMIN_USER_IDS"),
		SchedulerEnabled: envOr("ENABLE_SCHEDULER", "true") != "false",
		NotifyStartHour:  envIntOr("NOTIFICATION_START_HOUR", 8),
		NotifyEndHour:    envIntOr("NOTIFICATION_END_HOUR", 22),
		AnswerDelay:      time.Duration(envIntOr("ANSWER_DELAY_MS", 1500)) * time.Millisecond,
		Timezone:         envOr("TZ_NAME", "Europe/Moscow"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}
