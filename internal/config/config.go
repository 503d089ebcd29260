// Package config resolves the waypoint configuration root and loads config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileEnv names an alternate config file inside the root
const FileEnv = "WAYPOINT_CONFIG"

// Config represents the main configuration structure
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	History HistoryConfig `yaml:"history"`
	Lock    LockConfig    `yaml:"lock"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Type  string      `yaml:"type"` // "file", "redis" or "memory"
	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"` //#nosec G117 -- Password field is intentional for Redis auth config
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level string      `yaml:"level"`
	Audit AuditConfig `yaml:"audit"`
}

// AuditConfig contains audit logging settings
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Output  string `yaml:"output"` // "stdout", "stderr" or a file path relative to the root
	Format  string `yaml:"format"`
}

// MetricsConfig contains Prometheus textfile settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Textfile string `yaml:"textfile"`
}

// HistoryConfig holds the default context sizes for `hist`
type HistoryConfig struct {
	Before int `yaml:"before"`
	After  int `yaml:"after"`
}

// LockConfig controls the advisory lock around each invocation
type LockConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Type: "file",
			Redis: RedisConfig{
				Address: "localhost:6379",
				DB:      0,
				Prefix:  "waypoint:",
			},
		},
		Logging: LoggingConfig{
			Level: "warn",
			Audit: AuditConfig{
				Enabled: false,
				Level:   "standard",
				Output:  "audit.log",
				Format:  "json",
			},
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
		History: HistoryConfig{
			Before: 5,
			After:  5,
		},
		Lock: LockConfig{
			Enabled: true,
		},
	}
}

// Load loads the configuration for the given paths. $WAYPOINT_CONFIG may name
// another file inside the root; a missing file yields the defaults.
func Load(paths *Paths) (*Config, error) {
	cfg := DefaultConfig()

	configPath := paths.Config
	if override := os.Getenv(FileEnv); override != "" {
		sanitized, err := sanitizeConfigPath(override, paths.Root)
		if err != nil {
			return nil, err
		}
		configPath = sanitized
	}

	data, err := os.ReadFile(configPath) //#nosec G304 -- config path is sanitized above
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// Validate checks values that yaml decoding cannot
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	if c.History.Before < 0 || c.History.After < 0 {
		return fmt.Errorf("history window sizes must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		return fmt.Errorf("metrics enabled without a textfile path")
	}
	return nil
}

// ResolveFile makes a path from the config file absolute, relative to root
func ResolveFile(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// sanitizeConfigPath resolves path against baseDir and rejects anything that
// escapes it
func sanitizeConfigPath(path, baseDir string) (string, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory: %w", err)
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(absBase, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(absBase, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %q is outside %s", path, absBase)
	}
	return candidate, nil
}
