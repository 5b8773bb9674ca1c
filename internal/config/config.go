// Package config loads process configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all environment-derived settings.
type Config struct {
	Environment string
	Port        string
	LogLevel    string

	MongoURI string
	DBName   string

	RedisURL      string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	RoomIdleTimeout time.Duration

	InitialSetupToken string
	InitialAdminEmail string
	InitialAdminPass  string
	InitialAdminName  string

	DigestUTCOffsetHrs int

	RateLimitBurst     int
	RateLimitPerSecond float64
}

// Load reads Config from the process environment, applying defaults.
func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "3001"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		MongoURI: getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		DBName:   getEnv("DB_NAME", "tracker-db"),

		RedisURL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		JWTSecret: getEnv("JWT_SECRET", "insecure-development-secret-change-me"),

		RoomIdleTimeout: getEnvAsDuration("ROOM_IDLE_TIMEOUT_SECONDS", 3600*time.Second),

		InitialSetupToken: getEnv("INITIAL_SETUP_TOKEN", ""),
		InitialAdminEmail: getEnv("INITIAL_ADMIN_EMAIL", ""),
		InitialAdminPass:  getEnv("INITIAL_ADMIN_PASSWORD", ""),
		InitialAdminName:  getEnv("INITIAL_ADMIN_NICKNAME", ""),

		// Digest schedules are evaluated in Thailand time (UTC+7) unless
		// overridden.
		DigestUTCOffsetHrs: getEnvAsInt("DIGEST_UTC_OFFSET_HOURS", 7),

		RateLimitBurst:     getEnvAsInt("ROOM_CREATE_RATE_BURST", 5),
		RateLimitPerSecond: getEnvAsFloat("ROOM_CREATE_RATE_PER_SECOND", 2.0),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvAsDuration reads a whole-seconds duration. 0 is a valid value:
// an idle timeout of 0 disables the room sweeper entirely.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
