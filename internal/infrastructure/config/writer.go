package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigYAML is the default configuration content written by init.
const DefaultConfigYAML = `# hindsight-core configuration

llm:
  provider: openai
  model: gpt-4o-mini
  # api_key: your-api-key (or set OPENAI_API_KEY env var)

embedder:
  provider: openai
  model: text-embedding-3-small
  # api_key: your-api-key (or set OPENAI_API_KEY env var)

store:
  path: hindsight.db
  pool_size: 4
  busy_timeout_ms: 5000

retain:
  time_window_hours: 24
  semantic_floor: 0.75
  semantic_top_k: 5
  max_extraction_chars: 3000
  max_bulk_chars: 120000
  extraction_retries: 2

task_backend: inmemory
query_analyzer: heuristic
`

// WriteDefault creates the config directory and writes a default config file.
func WriteDefault(basePath string) error {
	configDir := filepath.Join(basePath, DefaultConfigDir)
	configFile := filepath.Join(configDir, DefaultConfigFile)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Exists checks whether a config file exists in the given path.
func Exists(basePath string) bool {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
	_, err := os.Stat(configFile)
	return err == nil
}
