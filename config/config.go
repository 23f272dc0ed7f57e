package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Environment string

	// Server configuration
	ServerHost        string
	ServerPort        string
	CORSAllowedOrigin string
	ShutdownTimeout   time.Duration

	// Database configuration
	DBDriver string
	DBDSN    string
	MongoURI string
	MongoDB  string
	// AutoMigrate runs the gormigrate migrations at startup.
	AutoMigrate bool
	// SeedSampleData loads development fixtures into an empty store.
	SeedSampleData bool

	// Session token verification
	JWTSecret    string
	JWTPublicKey string
	JWTIssuer    string

	// Logging configuration
	LogLevel  string
	LogFormat string

	AppName    string
	AppVersion string
}

// Load reads configuration from the environment, seeding it from a .env file
// when one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables without validating it.
func FromEnv() *Config {
	return &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		ServerHost:        getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:        getEnv("PORT", "8080"),
		CORSAllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "*"),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		DBDriver:          getEnv("DB_DRIVER", "postgres"),
		DBDSN:             getEnv("DB_DSN", ""),
		MongoURI:          getEnv("MONGODB_URI", ""),
		MongoDB:           getEnv("MONGODB_DB", ""),
		AutoMigrate:       getEnvBool("DB_AUTO_MIGRATE", true),
		SeedSampleData:    getEnvBool("DB_SEED_SAMPLE_DATA", false),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTPublicKey:      getEnv("JWT_PUBLIC_KEY", ""),
		JWTIssuer:         getEnv("JWT_ISSUER", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		AppName:           "energydesk",
		AppVersion:        getEnv("APP_VERSION", "dev"),
	}
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
		if c.DBDSN == "" {
			return fmt.Errorf("DB_DSN is required for driver %s", c.DBDriver)
		}
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required for driver mongo")
		}
		if c.MongoDB == "" {
			return fmt.Errorf("MONGODB_DB is required for driver mongo")
		}
	default:
		return fmt.Errorf("invalid DB_DRIVER: %q (must be postgres/sqlite/mongo)", c.DBDriver)
	}

	if c.JWTSecret == "" && c.JWTPublicKey == "" {
		return fmt.Errorf("one of JWT_SECRET or JWT_PUBLIC_KEY is required")
	}

	if c.SeedSampleData && c.IsProduction() {
		return fmt.Errorf("DB_SEED_SAMPLE_DATA must not be enabled in production")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", c.LogLevel)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return c.ServerHost + ":" + c.ServerPort
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return defaultVal
		}
		return b
	}
	return defaultVal
}
