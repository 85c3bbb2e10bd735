package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the ubjson CLI configuration.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	// StorePath is the pebble directory used by the store commands.
	StorePath string `yaml:"store_path"`
	// RedundantClose makes decoders accept an end marker after counted containers.
	RedundantClose bool `yaml:"redundant_close"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "console",
		StorePath: filepath.Join(baseDir(), "store"),
	}
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".ubjson")
	}
	return filepath.Join(home, ".ubjson")
}

// DefaultPath returns the default config file path: ~/.ubjson/config.yaml
func DefaultPath() string {
	return filepath.Join(baseDir(), "config.yaml")
}

// Load reads the configuration from the given YAML file path. Keys missing from
// the file keep their defaults; a missing file yields Default with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
