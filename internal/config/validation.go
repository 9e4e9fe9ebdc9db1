package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns validation errors.
func (c *Config) Validate() []error {
	var errs []error

	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", c.Server.Port),
		})
	}

	// Validate LLM configuration
	validProviders := map[string]bool{
		"openai": true,
		"stub":   true,
	}
	if !validProviders[c.LLM.Provider] {
		errs = append(errs, &ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: openai, stub", c.LLM.Provider),
		})
	}

	switch c.LLM.Provider {
	case "openai":
		// Missing credentials are not fatal: the engine runs in degraded
		// mode (pattern + retrieval answers only) and synthesis returns
		// its unavailable text.
		hasKey := c.LLM.APIKey != "" || os.Getenv("OPENAI_API_KEY") != ""
		c.LLM.Configured = hasKey

		if hasKey {
			if c.LLM.SimpleModel == "" {
				errs = append(errs, &ValidationError{
					Field:   "llm.simple_model",
					Message: "simple_model is required",
				})
			}
			if c.LLM.ComplexModel == "" {
				errs = append(errs, &ValidationError{
					Field:   "llm.complex_model",
					Message: "complex_model is required",
				})
			}
		}
	case "stub":
		c.LLM.Configured = true
	}

	if c.LLM.MaxRetries < 1 {
		errs = append(errs, &ValidationError{
			Field:   "llm.max_retries",
			Message: fmt.Sprintf("max_retries must be at least 1, got %d", c.LLM.MaxRetries),
		})
	}
	if c.LLM.TimeoutSeconds < 1 {
		errs = append(errs, &ValidationError{
			Field:   "llm.timeout_seconds",
			Message: fmt.Sprintf("timeout must be at least 1 second, got %d", c.LLM.TimeoutSeconds),
		})
	}

	// Validate cache configuration
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, &ValidationError{
			Field:   "cache.ttl_seconds",
			Message: fmt.Sprintf("ttl_seconds cannot be negative, got %d", c.Cache.TTLSeconds),
		})
	}
	if c.Cache.Capacity < 1 {
		errs = append(errs, &ValidationError{
			Field:   "cache.capacity",
			Message: fmt.Sprintf("capacity must be at least 1, got %d", c.Cache.Capacity),
		})
	}

	// Validate router configuration
	if c.Router.MatchThreshold < 0 || c.Router.MatchThreshold > 1 {
		errs = append(errs, &ValidationError{
			Field:   "router.match_threshold",
			Message: fmt.Sprintf("match_threshold must be between 0 and 1, got %.2f", c.Router.MatchThreshold),
		})
	}

	// Validate retrieval configuration
	if c.Retrieval.CorpusPath == "" {
		errs = append(errs, &ValidationError{
			Field:   "retrieval.corpus_path",
			Message: "corpus_path is required",
		})
	}
	if c.Retrieval.CharBudget < 1 {
		errs = append(errs, &ValidationError{
			Field:   "retrieval.char_budget",
			Message: fmt.Sprintf("char_budget must be at least 1, got %d", c.Retrieval.CharBudget),
		})
	}

	// Validate synthesis configuration
	if c.Synthesis.TierThreshold < 0 || c.Synthesis.TierThreshold > 1 {
		errs = append(errs, &ValidationError{
			Field:   "synthesis.tier_threshold",
			Message: fmt.Sprintf("tier_threshold must be between 0 and 1, got %.2f", c.Synthesis.TierThreshold),
		})
	}
	if c.Synthesis.MaxOutputTokens < 1 {
		errs = append(errs, &ValidationError{
			Field:   "synthesis.max_output_tokens",
			Message: fmt.Sprintf("max_output_tokens must be at least 1, got %d", c.Synthesis.MaxOutputTokens),
		})
	}

	// Validate database configuration
	if c.Database.SQLitePath == "" {
		errs = append(errs, &ValidationError{
			Field:   "database.sqlite_path",
			Message: "sqlite_path is required",
		})
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level),
		})
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, &ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format '%s', must be one of: json, text", c.Logging.Format),
		})
	}

	return errs
}
