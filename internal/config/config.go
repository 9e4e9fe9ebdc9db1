package config

import "context"

// Package config provides configuration management for dynasty-ai.
//
// Responsibilities:
//   - Load configuration from YAML files and environment variables
//   - Validate configuration on startup
//   - Provide runtime access to all configuration
//   - Support configuration reloading via file watch
//   - Manage sensitive data (API keys)
//   - Establish reasonable defaults
//
// Configuration Sources (priority order, high to low):
//   1. Environment variables (DYNASTY_* prefix)
//   2. YAML config file (default: /etc/dynasty-ai/config.yaml)
//   3. Built-in defaults (lowest priority)
//
// Config struct contains all configuration fields
type Config struct {
	// Server configuration
	Server struct {
		Host string
		Port int
		// AllowedOrigins is a list of origins permitted to open WebSocket
		// connections. Use ["*"] to allow any origin (development only).
		AllowedOrigins []string
	}

	// LLM provider configuration
	LLM struct {
		Provider       string // openai | stub
		APIKey         string
		SimpleModel    string
		ComplexModel   string
		BaseURL        string
		MaxRetries     int
		TimeoutSeconds int
		Configured     bool // derived during validation
	}

	// Cache configuration
	Cache struct {
		Enabled    bool
		TTLSeconds int
		Capacity   int
	}

	// Router configuration
	Router struct {
		MatchThreshold float64
	}

	// Retrieval configuration
	Retrieval struct {
		CorpusPath string
		CharBudget int
	}

	// Synthesis configuration
	Synthesis struct {
		TierThreshold   float64
		MaxOutputTokens int
	}

	// Database configuration
	Database struct {
		SQLitePath string
	}

	// Usage configuration
	Usage struct {
		Persist bool
	}

	// Logging configuration
	Logging struct {
		Level      string
		Format     string
		FilePath   string
		MaxSizeMB  int
		MaxBackups int
		MaxAgeDays int
	}
}

// ConfigManager defines the interface for configuration access.
type ConfigManager interface {
	// Load loads configuration from all sources.
	Load(ctx context.Context) error

	// Get returns the current configuration.
	Get(ctx context.Context) *Config

	// Validate validates configuration is correct and complete.
	Validate(ctx context.Context) error

	// Watch watches for configuration changes and reloads (if supported).
	Watch(ctx context.Context) <-chan Config

	// Reload reloads configuration from sources.
	Reload(ctx context.Context) error
}

// NewConfigManager creates a new configuration manager.
func NewConfigManager(configPath string) (ConfigManager, error) {
	mgr := &viperConfigManager{
		configPath: configPath,
		config:     DefaultConfig(),
		watchChan:  make(chan Config, 1),
	}
	return mgr, nil
}

// NewConfigManagerWithDefaults creates a config manager with default config path.
func NewConfigManagerWithDefaults() (ConfigManager, error) {
	return NewConfigManager("/etc/dynasty-ai/config.yaml")
}
