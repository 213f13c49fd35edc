package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Local cache database configuration
	Database DatabaseConfig

	// Remote booking service configuration
	Remote RemoteConfig

	// Message relay configuration
	Relay RelayConfig

	// Notification dispatcher configuration
	Notify NotifyConfig

	// Reconciliation job configuration
	Reconcile ReconcileConfig

	// JWT configuration
	JWT JWTConfig

	// CORS configuration
	CORS CORSConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds configuration of the local durable cache
type DatabaseConfig struct {
	URL                string // empty keeps the cache in memory
	Driver             string // postgres (lib/pq) or pgx
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RemoteConfig holds the remote booking service endpoint
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RelayConfig holds the outbound message relay endpoint
type RelayConfig struct {
	URL      string
	Username string
	Password string
	Sender   string
}

// NotifyConfig sizes the notification dispatcher
type NotifyConfig struct {
	QueueSize int
	Workers   int
}

// ReconcileConfig holds the reconciliation schedule
type ReconcileConfig struct {
	Schedule string // cron with seconds precision
	Enabled  bool
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret      string
	TokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			Driver:             getEnv("DATABASE_DRIVER", "postgres"),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Remote: RemoteConfig{
			BaseURL: getEnv("REMOTE_API_URL", "http://localhost:5000/api"),
			Timeout: time.Duration(getEnvAsInt("REMOTE_TIMEOUT_MS", 3000)) * time.Millisecond,
		},
		Relay: RelayConfig{
			URL:      getEnv("RELAY_URL", ""),
			Username: getEnv("RELAY_USERNAME", ""),
			Password: getEnv("RELAY_PASSWORD", ""),
			Sender:   getEnv("RELAY_SENDER", "TourExplorer"),
		},
		Notify: NotifyConfig{
			QueueSize: getEnvAsInt("NOTIFY_QUEUE_SIZE", 100),
			Workers:   getEnvAsInt("NOTIFY_WORKERS", 2),
		},
		Reconcile: ReconcileConfig{
			Schedule: getEnv("RECONCILE_SCHEDULE", "0 */5 * * * *"),
			Enabled:  getEnvAsBool("RECONCILE_ENABLED", true),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			TokenExpiry: time.Duration(getEnvAsInt("JWT_TOKEN_EXPIRY_HOURS", 24)) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT_MS must be positive")
	}

	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("invalid database driver: %s (must be 'postgres' or 'pgx')", c.Database.Driver)
	}

	if c.Notify.Workers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be at least 1")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
