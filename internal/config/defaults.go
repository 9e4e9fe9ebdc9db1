package config

// DefaultConfig returns a configuration with all default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Server defaults
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8084
	cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}

	// LLM defaults
	cfg.LLM.Provider = "openai"
	cfg.LLM.SimpleModel = "gpt-4o-mini"
	cfg.LLM.ComplexModel = "gpt-4o"
	cfg.LLM.MaxRetries = 3
	cfg.LLM.TimeoutSeconds = 60

	// Cache defaults
	cfg.Cache.Enabled = true
	cfg.Cache.TTLSeconds = 3600
	cfg.Cache.Capacity = 500

	// Router defaults
	cfg.Router.MatchThreshold = 0.9

	// Retrieval defaults
	cfg.Retrieval.CorpusPath = "data/command_guide.md"
	cfg.Retrieval.CharBudget = 1500

	// Synthesis defaults
	cfg.Synthesis.TierThreshold = 0.5
	cfg.Synthesis.MaxOutputTokens = 512

	// Database defaults
	cfg.Database.SQLitePath = "/var/lib/dynasty-ai/dynasty-ai.db"

	// Usage defaults
	cfg.Usage.Persist = true

	// Logging defaults
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	cfg.Logging.FilePath = ""
	cfg.Logging.MaxSizeMB = 50
	cfg.Logging.MaxBackups = 3
	cfg.Logging.MaxAgeDays = 28

	return cfg
}
