package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProfilesFile is the bank-profiles file name inside the config directory.
const ProfilesFile = "banks.yaml"

// BankProfile seeds a bank's profile at lazy creation: the name is the
// owner agent's self-reference used in extraction prompts.
type BankProfile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Background  string `yaml:"background,omitempty"`
}

// ProfilesConfig maps bank ids to their profiles.
type ProfilesConfig struct {
	Banks map[string]BankProfile `yaml:"banks,omitempty"`
}

// LoadProfiles reads the bank-profiles file. A missing file is not an
// error; it yields an empty config.
func LoadProfiles(basePath string) (*ProfilesConfig, error) {
	path := filepath.Join(basePath, DefaultConfigDir, ProfilesFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &ProfilesConfig{Banks: map[string]BankProfile{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading profiles file: %w", err)
	}

	var cfg ProfilesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing profiles file: %w", err)
	}
	if cfg.Banks == nil {
		cfg.Banks = map[string]BankProfile{}
	}
	return &cfg, nil
}

// SaveProfiles writes the bank-profiles file, creating the config
// directory if needed.
func SaveProfiles(basePath string, cfg *ProfilesConfig) error {
	dir := filepath.Join(basePath, DefaultConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling profiles: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ProfilesFile), data, 0644); err != nil {
		return fmt.Errorf("writing profiles file: %w", err)
	}
	return nil
}

// Get returns the profile for a bank, if one is configured.
func (c *ProfilesConfig) Get(bankID string) (BankProfile, bool) {
	p, ok := c.Banks[bankID]
	return p, ok
}
