package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config is the process configuration, read from the environment
type Config struct {
	Port string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	SQLitePath    string

	RedisURI        string // empty disables the profile cache
	ProfileCacheTTL time.Duration

	JWTSecret string
	TokenTTL  time.Duration

	UpstreamTimeout  time.Duration
	ChatHistoryLimit int
	MaxMessageBytes  int64
	SendBuffer       int

	AllowedOrigins string

	LogLevel  string
	LogPretty bool
}

// Load reads the configuration. Malformed numbers and durations fall back
// to their defaults.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "coderoom"),
		SQLitePath:    getEnv("SQLITE_PATH", "./data/coderoom.db"),

		RedisURI:        os.Getenv("REDIS_URI"),
		ProfileCacheTTL: getDuration("PROFILE_CACHE_TTL", 10*time.Minute),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  getDuration("TOKEN_TTL", 168*time.Hour),

		UpstreamTimeout:  getDuration("UPSTREAM_TIMEOUT", 5*time.Second),
		ChatHistoryLimit: getInt("CHAT_HISTORY_LIMIT", 100),
		MaxMessageBytes:  int64(getInt("MAX_MESSAGE_BYTES", 1<<20)),
		SendBuffer:       getInt("SEND_BUFFER", 256),

		AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getBool("LOG_PRETTY", false),
	}
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo store")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.ChatHistoryLimit <= 0 {
		return fmt.Errorf("CHAT_HISTORY_LIMIT must be positive, got %d", c.ChatHistoryLimit)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultVal
}
