package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/example/factbot/internal/scheduler"
	"github.com/joho/godotenv"
)

// Config holds the daemon's settings, read from the environment with an
// optional .env file.
type Config struct {
	DatabasePath  string
	RemoteBaseURL string
	RemoteAPIKey  string
	Language      string
	Timezone      *time.Location

	SlotTimes []scheduler.SlotTime
	Capacity  int

	TelegramToken  string
	TelegramChatID int64

	SyncInterval time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is honored when present.
func Load() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:  getEnv("DATABASE_PATH", "data/facts.db"),
		RemoteBaseURL: getEnv("CONTENT_API_URL", ""),
		RemoteAPIKey:  getEnv("CONTENT_API_KEY", ""),
		Language:      getEnv("CONTENT_LANGUAGE", "en"),
		Capacity:      getEnvInt("SCHEDULE_CAPACITY", scheduler.DefaultCapacity),
		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		SyncInterval:  time.Duration(getEnvInt("SYNC_INTERVAL_MINUTES", 60)) * time.Minute,
	}

	loc := time.Local
	if tz := os.Getenv("TIMEZONE"); tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE %q: %v", tz, err)
		}
		loc = parsed
	}
	cfg.Timezone = loc

	times, err := parseSlotTimes(getEnv("DELIVERY_TIMES", "09:00"))
	if err != nil {
		return nil, err
	}
	cfg.SlotTimes = times

	if chat := os.Getenv("TELEGRAM_CHAT_ID"); chat != "" {
		id, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %v", chat, err)
		}
		cfg.TelegramChatID = id
	}

	return cfg, nil
}

// parseSlotTimes parses a comma-separated list of HH:MM delivery times.
func parseSlotTimes(value string) ([]scheduler.SlotTime, error) {
	parts := strings.Split(value, ",")
	times := make([]scheduler.SlotTime, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		hhmm := strings.SplitN(part, ":", 2)
		if len(hhmm) != 2 {
			return nil, fmt.Errorf("invalid delivery time %q, expected HH:MM", part)
		}
		hour, err := strconv.Atoi(hhmm[0])
		if err != nil || hour < 0 || hour > 23 {
			return nil, fmt.Errorf("invalid hour in delivery time %q", part)
		}
		minute, err := strconv.Atoi(hhmm[1])
		if err != nil || minute < 0 || minute > 59 {
			return nil, fmt.Errorf("invalid minute in delivery time %q", part)
		}
		times = append(times, scheduler.SlotTime{Hour: hour, Minute: minute})
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("DELIVERY_TIMES must configure at least one time")
	}
	return times, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
