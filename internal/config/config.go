// Package config provides configuration management for voodoo.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (VOODOO_*)
// 3. Project config (.voodoo/config.yaml in cwd, or VOODOO_CONFIG)
// 4. Home config (~/.voodoo/config.yaml)
// 5. Defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Store backends
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Config holds all voodoo configuration.
type Config struct {
	// DataDir holds the pattern store (default: ~/.voodoo).
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// Workers bounds concurrent plugin analyses in batch mode.
	Workers int `yaml:"workers" json:"workers"`

	// CatalogFile replaces the embedded effect catalog when set.
	CatalogFile string `yaml:"catalog_file" json:"catalog_file"`

	// ResearchFile is an optional YAML data set of known plugin parameters.
	ResearchFile string `yaml:"research_file" json:"research_file"`

	Store    StoreConfig    `yaml:"store" json:"store"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Probe    ProbeConfig    `yaml:"probe" json:"probe"`
	Classify ClassifyConfig `yaml:"classify" json:"classify"`
}

// StoreConfig selects the pattern store persister.
type StoreConfig struct {
	// Backend is "sqlite" (default) or "json".
	Backend string `yaml:"backend" json:"backend"`

	// File is the store file name inside DataDir. Defaults per backend.
	File string `yaml:"file" json:"file"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
}

// ProbeConfig holds prober settings.
type ProbeConfig struct {
	// Ladder overrides the empirical range probe values.
	Ladder []float64 `yaml:"ladder" json:"ladder"`
}

// ClassifyConfig holds classifier settings.
type ClassifyConfig struct {
	// Threshold is the core-parameter match fraction for signature matching.
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		DataDir: filepath.Join(homeDir, ".voodoo"),
		Workers: 4,
		Store: StoreConfig{
			Backend: BackendSQLite,
		},
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 3740,
		},
		Classify: ClassifyConfig{
			Threshold: 0.70,
		},
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, err := loadFromPath(homeConfigPath())
	if err != nil {
		return nil, err
	}
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, err := loadFromPath(projectConfigPath())
	if err != nil {
		return nil, err
	}
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later and obscurely
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendJSON:
	default:
		return fmt.Errorf("unknown store backend %q (want %s or %s)", c.Store.Backend, BackendSQLite, BackendJSON)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Classify.Threshold <= 0 || c.Classify.Threshold > 1 {
		return fmt.Errorf("classify.threshold must be in (0, 1], got %g", c.Classify.Threshold)
	}
	return nil
}

// StorePath is the pattern store file for the configured backend
func (c *Config) StorePath() string {
	name := c.Store.File
	if name == "" {
		switch c.Store.Backend {
		case BackendJSON:
			name = "learned_patterns.json"
		default:
			name = "patterns.db"
		}
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".voodoo", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("VOODOO_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".voodoo", "config.yaml")
}

// loadFromPath loads config from a YAML file. A missing file is not an error.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("VOODOO_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("VOODOO_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("VOODOO_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("VOODOO_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("VOODOO_RESEARCH_FILE"); v != "" {
		cfg.ResearchFile = v
	}
	if v := os.Getenv("VOODOO_CATALOG_FILE"); v != "" {
		cfg.CatalogFile = v
	}
	if v := os.Getenv("VOODOO_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("VOODOO_SERVER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	return cfg
}

// merge merges src into dst, with src taking precedence for non-zero values.
func merge(dst, src *Config) *Config {
	if src.DataDir != "" {
		dst.DataDir = src.DataDir
	}
	if src.Workers != 0 {
		dst.Workers = src.Workers
	}
	if src.CatalogFile != "" {
		dst.CatalogFile = src.CatalogFile
	}
	if src.ResearchFile != "" {
		dst.ResearchFile = src.ResearchFile
	}
	if src.Store.Backend != "" {
		dst.Store.Backend = src.Store.Backend
	}
	if src.Store.File != "" {
		dst.Store.File = src.Store.File
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Server.Host != "" {
		dst.Server.Host = src.Server.Host
	}
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if len(src.Probe.Ladder) > 0 {
		dst.Probe.Ladder = append([]float64(nil), src.Probe.Ladder...)
	}
	if src.Classify.Threshold != 0 {
		dst.Classify.Threshold = src.Classify.Threshold
	}
	return dst
}
