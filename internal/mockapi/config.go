package mockapi

import (
	"os"
	"strconv"
	"time"
)

// Config holds the mock server settings read from the environment.
type Config struct {
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	JWTSecret     string
	JWTExpiration time.Duration

	DBPath string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	LogLevel string
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Port:               getEnv("PORT", "8001"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),

		JWTSecret:     getEnv("JWT_SECRET", "kingchat-development-secret"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 30*24*time.Hour),

		DBPath: getEnv("DB_PATH", "kingchat-mock.db"),

		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
