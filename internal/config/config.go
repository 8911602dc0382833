package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/kadavilrahul/github-repo-sync/internal/domain"
)

// Config holds the application configuration
type Config struct {
	// GitHub (source host)
	GitHubUsername string
	GitHubToken    string

	// GitLab (secondary host)
	GitLabHost     string
	GitLabUsername string
	GitLabToken    string

	// Paths
	BackupRoot string
	ScratchDir string
	StatePath  string
	LockPath   string
	LogPath    string

	// Run
	Parallel int

	// Run history storage
	StorageType string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string

	// API Server
	APIPort string
	APIHost string

	// CLI
	APIEndpoint string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		GitHubUsername: getEnv("GITHUB_USERNAME", ""),
		GitHubToken:    getEnv("GITHUB_TOKEN", ""),
		GitLabHost:     getEnv("GITLAB_HOST", "https://gitlab.com"),
		GitLabUsername: getEnv("GITLAB_USERNAME", ""),
		GitLabToken:    getEnv("GITLAB_TOKEN", ""),
		BackupRoot:     getEnv("BACKUP_ROOT", "./backups"),
		ScratchDir:     getEnv("SCRATCH_DIR", "./.repo-sync-scratch"),
		StatePath:      getEnv("STATE_PATH", "./.repo-sync-state"),
		LockPath:       getEnv("LOCK_PATH", "./.repo-sync.lock"),
		LogPath:        getEnv("LOG_PATH", ""),
		Parallel:       getEnvInt("PARALLEL", 1),
		StorageType:    getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:     getEnv("SQLITE_PATH", "./repo-sync.db"),
		PostgresURL:    getEnv("POSTGRES_URL", ""),
		APIPort:        getEnv("API_PORT", "8080"),
		APIHost:        getEnv("API_HOST", "localhost"),
		APIEndpoint:    getEnv("API_ENDPOINT", "http://localhost:8080"),
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// Validate validates the configuration common to every command
func (c *Config) Validate() error {
	if c.GitHubUsername == "" {
		return &ConfigError{Field: "GITHUB_USERNAME", Message: "GitHub username is required"}
	}
	if c.GitHubToken == "" {
		return &ConfigError{Field: "GITHUB_TOKEN", Message: "GitHub token is required"}
	}
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	if c.Parallel < 1 || c.Parallel > 10 {
		return &ConfigError{Field: "PARALLEL", Message: "must be between 1 and 10"}
	}
	return nil
}

// ValidateForMode validates the configuration needed by a given sync mode
func (c *Config) ValidateForMode(mode domain.SyncMode) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if mode.IncludesMirror() {
		if c.GitLabUsername == "" {
			return &ConfigError{Field: "GITLAB_USERNAME", Message: "GitLab username is required for mirror sync"}
		}
		if c.GitLabToken == "" {
			return &ConfigError{Field: "GITLAB_TOKEN", Message: "GitLab token is required for mirror sync"}
		}
	}
	if mode.IncludesBackup() && c.BackupRoot == "" {
		return &ConfigError{Field: "BACKUP_ROOT", Message: "backup root directory is required for local backup"}
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
