package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// viperConfigManager implements ConfigManager using Viper.
type viperConfigManager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
	watchChan  chan Config
}

// Load loads configuration from all sources.
func (m *viperConfigManager) Load(ctx context.Context) error {
	m.viper = viper.New()

	m.viper.SetConfigFile(m.configPath)
	m.viper.SetConfigType("yaml")

	m.viper.SetEnvPrefix("DYNASTY")
	m.viper.AutomaticEnv()
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	m.setDefaults()

	// Config file is optional: defaults + env vars are enough to run.
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// use defaults
		} else if os.IsNotExist(err) {
			// use defaults
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// Get returns the current configuration.
func (m *viperConfigManager) Get(ctx context.Context) *Config {
	return m.config
}

// Validate validates configuration is correct and complete.
func (m *viperConfigManager) Validate(ctx context.Context) error {
	errs := m.config.Validate()
	if len(errs) > 0 {
		var errMsgs []string
		for _, err := range errs {
			errMsgs = append(errMsgs, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errMsgs, "\n  - "))
	}
	return nil
}

// Watch watches for configuration changes and reloads.
func (m *viperConfigManager) Watch(ctx context.Context) <-chan Config {
	m.viper.WatchConfig()
	m.viper.OnConfigChange(func(e fsnotify.Event) {
		if err := m.unmarshalConfig(); err != nil {
			return
		}
		select {
		case m.watchChan <- *m.config:
		default:
			// Channel full, skip this update
		}
	})

	return m.watchChan
}

// Reload reloads configuration from sources.
func (m *viperConfigManager) Reload(ctx context.Context) error {
	if err := m.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := m.unmarshalConfig(); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.applyEnvOverrides()

	return nil
}

// setDefaults sets default values in viper.
func (m *viperConfigManager) setDefaults() {
	defaults := DefaultConfig()

	// Server defaults
	m.viper.SetDefault("server.host", defaults.Server.Host)
	m.viper.SetDefault("server.port", defaults.Server.Port)
	m.viper.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)

	// LLM defaults
	m.viper.SetDefault("llm.provider", defaults.LLM.Provider)
	m.viper.SetDefault("llm.simple_model", defaults.LLM.SimpleModel)
	m.viper.SetDefault("llm.complex_model", defaults.LLM.ComplexModel)
	m.viper.SetDefault("llm.base_url", defaults.LLM.BaseURL)
	m.viper.SetDefault("llm.max_retries", defaults.LLM.MaxRetries)
	m.viper.SetDefault("llm.timeout_seconds", defaults.LLM.TimeoutSeconds)

	// Cache defaults
	m.viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	m.viper.SetDefault("cache.ttl_seconds", defaults.Cache.TTLSeconds)
	m.viper.SetDefault("cache.capacity", defaults.Cache.Capacity)

	// Router defaults
	m.viper.SetDefault("router.match_threshold", defaults.Router.MatchThreshold)

	// Retrieval defaults
	m.viper.SetDefault("retrieval.corpus_path", defaults.Retrieval.CorpusPath)
	m.viper.SetDefault("retrieval.char_budget", defaults.Retrieval.CharBudget)

	// Synthesis defaults
	m.viper.SetDefault("synthesis.tier_threshold", defaults.Synthesis.TierThreshold)
	m.viper.SetDefault("synthesis.max_output_tokens", defaults.Synthesis.MaxOutputTokens)

	// Database defaults
	m.viper.SetDefault("database.sqlite_path", defaults.Database.SQLitePath)

	// Usage defaults
	m.viper.SetDefault("usage.persist", defaults.Usage.Persist)

	// Logging defaults
	m.viper.SetDefault("logging.level", defaults.Logging.Level)
	m.viper.SetDefault("logging.format", defaults.Logging.Format)
	m.viper.SetDefault("logging.file_path", defaults.Logging.FilePath)
	m.viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	m.viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	m.viper.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
}

// unmarshalConfig unmarshals viper config into Config struct.
func (m *viperConfigManager) unmarshalConfig() error {
	cfg := &Config{}

	// Server
	cfg.Server.Host = m.viper.GetString("server.host")
	cfg.Server.Port = m.viper.GetInt("server.port")
	cfg.Server.AllowedOrigins = m.viper.GetStringSlice("server.allowed_origins")

	// LLM
	cfg.LLM.Provider = m.viper.GetString("llm.provider")
	cfg.LLM.APIKey = m.viper.GetString("llm.api_key")
	cfg.LLM.SimpleModel = m.viper.GetString("llm.simple_model")
	cfg.LLM.ComplexModel = m.viper.GetString("llm.complex_model")
	cfg.LLM.BaseURL = m.viper.GetString("llm.base_url")
	cfg.LLM.MaxRetries = m.viper.GetInt("llm.max_retries")
	cfg.LLM.TimeoutSeconds = m.viper.GetInt("llm.timeout_seconds")

	// Cache
	cfg.Cache.Enabled = m.viper.GetBool("cache.enabled")
	cfg.Cache.TTLSeconds = m.viper.GetInt("cache.ttl_seconds")
	cfg.Cache.Capacity = m.viper.GetInt("cache.capacity")

	// Router
	cfg.Router.MatchThreshold = m.viper.GetFloat64("router.match_threshold")

	// Retrieval
	cfg.Retrieval.CorpusPath = m.viper.GetString("retrieval.corpus_path")
	cfg.Retrieval.CharBudget = m.viper.GetInt("retrieval.char_budget")

	// Synthesis
	cfg.Synthesis.TierThreshold = m.viper.GetFloat64("synthesis.tier_threshold")
	cfg.Synthesis.MaxOutputTokens = m.viper.GetInt("synthesis.max_output_tokens")

	// Database
	cfg.Database.SQLitePath = m.viper.GetString("database.sqlite_path")

	// Usage
	cfg.Usage.Persist = m.viper.GetBool("usage.persist")

	// Logging
	cfg.Logging.Level = m.viper.GetString("logging.level")
	cfg.Logging.Format = m.viper.GetString("logging.format")
	cfg.Logging.FilePath = m.viper.GetString("logging.file_path")
	cfg.Logging.MaxSizeMB = m.viper.GetInt("logging.max_size_mb")
	cfg.Logging.MaxBackups = m.viper.GetInt("logging.max_backups")
	cfg.Logging.MaxAgeDays = m.viper.GetInt("logging.max_age_days")

	m.config = cfg
	return nil
}

// applyEnvOverrides applies environment variable overrides for sensitive data.
func (m *viperConfigManager) applyEnvOverrides() {
	// OpenAI API key from environment
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		m.config.LLM.APIKey = apiKey
	}

	// Port from environment - only override if explicitly set
	if portEnv := os.Getenv("DYNASTY_SERVER_PORT"); portEnv != "" {
		m.config.Server.Port = m.viper.GetInt("server.port")
	}
}
