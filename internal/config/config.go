package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// GitLab
	GitLabToken string
	GitLabURL   string

	// Search
	TargetBranch  string
	SearchWorkers int

	// Storage
	StorageType string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string

	// Logging
	LogFile  string
	LogLevel string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		GitLabToken:   getEnv("GITLAB_TOKEN", ""),
		GitLabURL:     getEnv("GITLAB_URL", "https://gitlab.com"),
		TargetBranch:  getEnv("TARGET_BRANCH", "master"),
		SearchWorkers: getEnvInt("SEARCH_WORKERS", 3),
		StorageType:   getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:    getEnv("SQLITE_PATH", "./glsearch.db"),
		PostgresURL:   getEnv("POSTGRES_URL", ""),
		APIPort:       getEnv("API_PORT", "8080"),
		APIHost:       getEnv("API_HOST", "localhost"),
		APIEndpoint:   getEnv("API_ENDPOINT", "http://localhost:8080"),
		LogFile:       getEnv("LOG_FILE", "./glsearch.log"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GitLabToken == "" {
		return &ConfigError{Field: "GITLAB_TOKEN", Message: "GitLab token is required"}
	}
	if c.GitLabURL == "" {
		return &ConfigError{Field: "GITLAB_URL", Message: "GitLab base URL is required"}
	}
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
