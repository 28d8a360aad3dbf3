package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/factbot/internal/scheduler"
)

func TestParseSlotTimes(t *testing.T) {
	times, err := parseSlotTimes("09:00, 13:30,21:05")
	require.NoError(t, err)
	assert.Equal(t, []scheduler.SlotTime{
		{Hour: 9, Minute: 0},
		{Hour: 13, Minute: 30},
		{Hour: 21, Minute: 5},
	}, times)
}

func TestParseSlotTimes_Invalid(t *testing.T) {
	for _, value := range []string{"", "nine", "25:00", "09:75", "09"} {
		_, err := parseSlotTimes(value)
		assert.Error(t, err, "value %q", value)
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_PATH", "CONTENT_API_URL", "CONTENT_LANGUAGE",
		"SCHEDULE_CAPACITY", "DELIVERY_TIMES", "TIMEZONE", "TELEGRAM_CHAT_ID",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "data/facts.db", cfg.DatabasePath)
	assert.Equal(t, "en", cfg.Language)
	assert.Equal(t, scheduler.DefaultCapacity, cfg.Capacity)
	assert.Equal(t, []scheduler.SlotTime{{Hour: 9, Minute: 0}}, cfg.SlotTimes)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.Error(t, err)
}
