// Package config provides YAML configuration loading for the query agent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for a query agent deployment.
type Config struct {
	Debug    bool           `yaml:"debug"`
	LLM      LLMConfig      `yaml:"llm"`
	Search   SearchConfig   `yaml:"search"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
}

// LLMConfig holds LLM backend settings. The API key is usually supplied via
// the OPENROUTER_API_KEY environment variable rather than the file.
type LLMConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	MaxAttempts int    `yaml:"max_attempts"`
}

// SearchConfig holds search backend settings.
type SearchConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Country  string `yaml:"country"`
	Language string `yaml:"language"`
}

// PipelineConfig holds pipeline tuning. Zero values fall back to the
// pipeline package defaults.
type PipelineConfig struct {
	QueriesPerRound    int     `yaml:"queries_per_round"`
	Pass1Threshold     float64 `yaml:"pass1_threshold"`
	Pass2Threshold     float64 `yaml:"pass2_threshold"`
	Concurrency        int     `yaml:"concurrency"`
	SampleSize         int     `yaml:"sample_size"`
	MaxResultsPerQuery int     `yaml:"max_results_per_query"`
	MaxRounds          int     `yaml:"max_rounds"`
}

// StoreConfig selects and configures the session store backend.
type StoreConfig struct {
	// Backend is one of "memory", "redis", "sqlite", "postgres".
	Backend     string `yaml:"backend"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisDB     int    `yaml:"redis_db"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Load reads and parses the config file at path, applies defaults and
// environment overrides, and expands relative paths against the config
// file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Store.SQLitePath = expandPath(cfg.Store.SQLitePath, configDir)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with defaults and environment overrides applied,
// for running without a config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "memory", "redis", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}
	if c.Pipeline.Pass1Threshold < 0 || c.Pipeline.Pass1Threshold > 100 {
		return fmt.Errorf("pass1_threshold %.2f out of range [0,100]", c.Pipeline.Pass1Threshold)
	}
	if c.Pipeline.Pass2Threshold < 0 || c.Pipeline.Pass2Threshold > 100 {
		return fmt.Errorf("pass2_threshold %.2f out of range [0,100]", c.Pipeline.Pass2Threshold)
	}
	return nil
}

// applyEnv overrides secrets and endpoints from the environment. Env always
// wins over the file so keys can stay out of version control.
func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("QUERYAGENT_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("QUERYAGENT_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("QUERYAGENT_SEARCH_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv("QUERYAGENT_SEARCH_BASE_URL"); v != "" {
		cfg.Search.BaseURL = v
	}
	if v := os.Getenv("QUERYAGENT_REDIS_ADDR"); v != "" {
		cfg.Store.RedisAddr = v
	}
	if v := os.Getenv("QUERYAGENT_POSTGRES_DSN"); v != "" {
		cfg.Store.PostgresDSN = v
	}
}

// expandPath resolves ~ and makes relative paths absolute against baseDir.
func expandPath(path, baseDir string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) {
		return filepath.Join(baseDir, path)
	}
	return path
}
