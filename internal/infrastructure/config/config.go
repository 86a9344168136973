// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the directory name for hindsight-core configuration.
	DefaultConfigDir = ".hindsight-core"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
)

// Config holds all configuration for hindsight-core.
type Config struct {
	LLM         LLMConfig         `mapstructure:"llm"`
	Embedder    EmbedderConfig    `mapstructure:"embedder"`
	Store       StoreConfig       `mapstructure:"store"`
	Retain      RetainConfig      `mapstructure:"retain"`
	TaskBackend string            `mapstructure:"task_backend"`
	Analyzer    string            `mapstructure:"query_analyzer"`
}

// LLMConfig holds configuration for the fact-extraction LLM provider.
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
}

// StoreConfig holds configuration for the SQLite-backed store.
type StoreConfig struct {
	Path        string `mapstructure:"path"`
	PoolSize    int    `mapstructure:"pool_size"`
	BusyTimeout int    `mapstructure:"busy_timeout_ms"`
}

// RetainConfig holds the thresholds the retain pipeline applies uniformly
// across banks. These are process-wide, not per-bank: the spec's bank
// profile only carries name/description/background.
type RetainConfig struct {
	TimeWindowHours    float64 `mapstructure:"time_window_hours"`
	SemanticFloor      float64 `mapstructure:"semantic_floor"`
	SemanticTopK       int     `mapstructure:"semantic_top_k"`
	MaxExtractionChars int     `mapstructure:"max_extraction_chars"`
	MaxBulkChars       int     `mapstructure:"max_bulk_chars"`
	ExtractionRetries  int     `mapstructure:"extraction_retries"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Store: StoreConfig{
			Path:        "hindsight.db",
			PoolSize:    4,
			BusyTimeout: 5000,
		},
		Retain: RetainConfig{
			TimeWindowHours:    24,
			SemanticFloor:      0.75,
			SemanticTopK:       5,
			MaxExtractionChars: 3000,
			MaxBulkChars:       120000,
			ExtractionRetries:  2,
		},
		TaskBackend: "inmemory",
		Analyzer:    "heuristic",
	}
}

// Load loads configuration from the .hindsight-core directory under basePath.
func Load(basePath string) (*Config, error) {
	configPath := filepath.Join(basePath, DefaultConfigDir)
	configFile := filepath.Join(configPath, DefaultConfigFile)

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'hindsight-core init' first)", configFile)
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")

	setDefaults(v)
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyEnvOverrides()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("embedder.provider", d.Embedder.Provider)
	v.SetDefault("embedder.model", d.Embedder.Model)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("store.pool_size", d.Store.PoolSize)
	v.SetDefault("store.busy_timeout_ms", d.Store.BusyTimeout)
	v.SetDefault("retain.time_window_hours", d.Retain.TimeWindowHours)
	v.SetDefault("retain.semantic_floor", d.Retain.SemanticFloor)
	v.SetDefault("retain.semantic_top_k", d.Retain.SemanticTopK)
	v.SetDefault("retain.max_extraction_chars", d.Retain.MaxExtractionChars)
	v.SetDefault("retain.max_bulk_chars", d.Retain.MaxBulkChars)
	v.SetDefault("retain.extraction_retries", d.Retain.ExtractionRetries)
	v.SetDefault("task_backend", d.TaskBackend)
	v.SetDefault("query_analyzer", d.Analyzer)
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("llm.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("embedder.api_key", "OPENAI_API_KEY")
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
}

// ConfigDir returns the path to the .hindsight-core config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}
