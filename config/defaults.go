package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "openai/gpt-4o-mini"
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = 3
	}
	if cfg.Search.Country == "" {
		cfg.Search.Country = "us"
	}
	if cfg.Search.Language == "" {
		cfg.Search.Language = "en"
	}
	if cfg.Pipeline.QueriesPerRound == 0 {
		cfg.Pipeline.QueriesPerRound = 10
	}
	if cfg.Pipeline.Pass1Threshold == 0 {
		cfg.Pipeline.Pass1Threshold = 60
	}
	if cfg.Pipeline.Pass2Threshold == 0 {
		cfg.Pipeline.Pass2Threshold = 60
	}
	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = 3
	}
	if cfg.Pipeline.SampleSize == 0 {
		cfg.Pipeline.SampleSize = 5
	}
	if cfg.Pipeline.MaxResultsPerQuery == 0 {
		cfg.Pipeline.MaxResultsPerQuery = 30
	}
	if cfg.Pipeline.MaxRounds == 0 {
		cfg.Pipeline.MaxRounds = 1
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.Store.RedisAddr == "" {
		cfg.Store.RedisAddr = "localhost:6379"
	}
	if cfg.Store.SQLitePath == "" {
		cfg.Store.SQLitePath = "queryagent.db"
	}
}
