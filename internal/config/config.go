package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dixonq/domain/dixon"
	"dixonq/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Classifier ClassifierConfig
	Streams    StreamsConfig
	Server     ServerConfig
	Database   DatabaseConfig
}

// ClassifierConfig holds the defaults applied to every new stream
type ClassifierConfig struct {
	WindowSize int
	Confidence dixon.ConfidenceLevel
	Policy     dixon.WindowPolicy
}

// StreamsConfig bounds the stream registry
type StreamsConfig struct {
	MaxStreams int // 0 means unbounded
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the optional evaluation ledger connection.
// An empty URL disables the ledger.
type DatabaseConfig struct {
	URL    string
	Driver string
}

// Enabled reports whether an evaluation ledger is configured
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// Default window size used when DIXON_WINDOW_SIZE is unset
const DefaultWindowSize = 8

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	classifierConfig, err := loadClassifierConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load classifier configuration")
	}
	config.Classifier = *classifierConfig

	config.Streams = StreamsConfig{
		MaxStreams: getEnvIntOrDefault("DIXON_MAX_STREAMS", 0),
	}
	config.Server = *loadServerConfig()
	config.Database = *loadDatabaseConfig()

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadClassifierConfig() (*ClassifierConfig, error) {
	windowSize := DefaultWindowSize
	if value := os.Getenv("DIXON_WINDOW_SIZE"); value != "" {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, errors.ConfigInvalid(fmt.Sprintf("DIXON_WINDOW_SIZE %q is not an integer", value))
		}
		windowSize = n
	}

	level, err := dixon.ParseConfidenceLevel(getEnvOrDefault("DIXON_CONFIDENCE", "95"))
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	policy, err := dixon.ParseWindowPolicy(getEnvOrDefault("DIXON_WINDOW_POLICY", string(dixon.PolicyBatch)))
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	return &ClassifierConfig{
		WindowSize: windowSize,
		Confidence: level,
		Policy:     policy,
	}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:    getEnvOrDefault("DATABASE_URL", ""),
		Driver: getEnvOrDefault("DATABASE_DRIVER", "postgres"),
	}
}

func validateConfig(config *Config) error {
	if config.Classifier.WindowSize < dixon.MinSampleSize || config.Classifier.WindowSize > dixon.MaxSampleSize {
		return errors.ConfigInvalid(fmt.Sprintf("window size %d must be within %d..%d",
			config.Classifier.WindowSize, dixon.MinSampleSize, dixon.MaxSampleSize))
	}
	if config.Streams.MaxStreams < 0 {
		return errors.ConfigInvalid("DIXON_MAX_STREAMS cannot be negative")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	switch config.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unsupported DATABASE_DRIVER %q", config.Database.Driver))
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
