package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	EventStore    EventStoreConfig
	Auth          AuthConfig
	Legacy        LegacyConfig
	Notifications NotificationConfig
}

type ServerConfig struct {
	Port           int
	Env            string
	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// EventStoreConfig holds configuration for EventStoreDB, which backs the
// append-only audit journal.
type EventStoreConfig struct {
	// Host is the EventStoreDB server hostname
	Host string
	// Port is the gRPC port (default 2113)
	Port int
	// Insecure disables TLS (for development)
	Insecure bool
	// Username for authentication (optional)
	Username string
	// Password for authentication (optional)
	Password string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// ImpersonationTTL bounds how long an impersonation frame stays active
	// before it expires back to the original identity.
	ImpersonationTTL time.Duration
}

// LegacyConfig holds the connection settings for the previous membership
// software (SQL Server), used by the read-only import adapter.
type LegacyConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func (l LegacyConfig) DSN() string {
	return fmt.Sprintf(
		"server=%s;port=%d;user id=%s;password=%s;database=%s",
		l.Host, l.Port, l.User, l.Password, l.Database,
	)
}

type NotificationConfig struct {
	Workers       int
	BufferSize    int
	RetryAttempts int
	RetryDelay    time.Duration
}

func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:           getEnvInt("SERVER_PORT", 8080),
			Env:            getEnv("ENV", "development"),
			AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:   getEnvInt("RATE_LIMIT_RPS", 20),
			RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 40),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "eglise"),
			Password: getEnv("DB_PASSWORD", "eglise"),
			Database: getEnv("DB_NAME", "eglise"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		EventStore: EventStoreConfig{
			Host:     getEnv("EVENTSTORE_HOST", "localhost"),
			Port:     getEnvInt("EVENTSTORE_PORT", 2113),
			Insecure: getEnvBool("EVENTSTORE_INSECURE", true),
			Username: getEnv("EVENTSTORE_USERNAME", ""),
			Password: getEnv("EVENTSTORE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret:        getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
			TokenTTL:         getEnvDuration("JWT_TOKEN_TTL", 8*time.Hour),
			ImpersonationTTL: getEnvDuration("IMPERSONATION_TTL", 30*time.Minute),
		},
		Legacy: LegacyConfig{
			Enabled:  getEnvBool("LEGACY_IMPORT_ENABLED", false),
			Host:     getEnv("LEGACY_DB_HOST", "localhost"),
			Port:     getEnvInt("LEGACY_DB_PORT", 1433),
			User:     getEnv("LEGACY_DB_USER", "sa"),
			Password: getEnv("LEGACY_DB_PASSWORD", ""),
			Database: getEnv("LEGACY_DB_NAME", "membres"),
		},
		Notifications: NotificationConfig{
			Workers:       getEnvInt("NOTIFICATION_WORKERS", 4),
			BufferSize:    getEnvInt("NOTIFICATION_BUFFER", 1000),
			RetryAttempts: getEnvInt("NOTIFICATION_RETRIES", 3),
			RetryDelay:    getEnvDuration("NOTIFICATION_RETRY_DELAY", 30*time.Second),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range splitAndTrim(value, ",") {
			if v != "" {
				result = append(result, v)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range splitString(s, sep) {
		trimmed := trimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func splitString(s, sep string) []string {
	if s == "" {
		return nil
	}
	var result []string
	start := 0
	for i := 0; i <= len(s)-len(sep); i++ {
		if s[i:i+len(sep)] == sep {
			result = append(result, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	result = append(result, s[start:])
	return result
}

func trimSpace(s string) string {
	start := 0
	end := len(s)
	for start < end && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}
