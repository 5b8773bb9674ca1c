package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "tracker-db", cfg.DBName)
	assert.Equal(t, time.Hour, cfg.RoomIdleTimeout)
	assert.Equal(t, 7, cfg.DigestUTCOffsetHrs)
	assert.Equal(t, 5, cfg.RateLimitBurst)
	assert.Equal(t, 2.0, cfg.RateLimitPerSecond)
}

func TestRoomIdleTimeoutZeroDisables(t *testing.T) {
	t.Setenv("ROOM_IDLE_TIMEOUT_SECONDS", "0")

	cfg := Load()
	assert.Equal(t, time.Duration(0), cfg.RoomIdleTimeout, "0 is a valid value meaning the sweeper never starts")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ROOM_IDLE_TIMEOUT_SECONDS", "120")
	t.Setenv("DIGEST_UTC_OFFSET_HOURS", "0")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.RoomIdleTimeout)
	assert.Zero(t, cfg.DigestUTCOffsetHrs)
}
