package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how graph commands render their results
type OutputFormat string

const (
	FormatJSON OutputFormat = "json"
	FormatDOT  OutputFormat = "dot"
	FormatText OutputFormat = "text"
)

// Config holds all configuration for go-flow-graph
type Config struct {
	// Format is the default output format for graph commands
	Format OutputFormat `yaml:"format" env:"GFG_FORMAT"`

	// LinkCalls controls whether call sites are wired to function
	// subgraphs after a build
	LinkCalls bool `yaml:"link_calls" env:"GFG_LINK_CALLS"`

	// IncludeSentinels keeps the start and stop nodes in exported records
	IncludeSentinels bool `yaml:"include_sentinels" env:"GFG_INCLUDE_SENTINELS"`

	// CacheDir is where built graph snapshots are persisted
	CacheDir string `yaml:"cache_dir" env:"GFG_CACHE_DIR"`

	// CacheMaxEntries and CacheMaxBytes bound the in-memory snapshot
	// cache; zero means unbounded
	CacheMaxEntries int `yaml:"cache_max_entries" env:"GFG_CACHE_MAX_ENTRIES"`
	CacheMaxBytes   int `yaml:"cache_max_bytes" env:"GFG_CACHE_MAX_BYTES"`

	// Workers caps concurrent file builds during project scans
	Workers int `yaml:"workers" env:"GFG_WORKERS"`

	// WatchDebounceMs is how long watch mode waits after the last file
	// change before rebuilding
	WatchDebounceMs int `yaml:"watch_debounce_ms" env:"GFG_WATCH_DEBOUNCE_MS"`

	// Logging
	Verbose bool `yaml:"verbose" env:"GFG_VERBOSE"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Format:           FormatJSON,
		LinkCalls:        true,
		IncludeSentinels: false,
		CacheDir:         defaultCacheDir(),
		CacheMaxEntries:  256,
		CacheMaxBytes:    64 << 20,
		Workers:          4,
		WatchDebounceMs:  500,
		Verbose:          false,
	}
}

// defaultCacheDir returns the default snapshot cache directory (~/.gfg/cache)
func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gfg/cache"
	}
	return filepath.Join(home, ".gfg", "cache")
}

// GlobalConfigPath returns the global config file path (~/.gfg/config.yaml)
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gfg/config.yaml"
	}
	return filepath.Join(home, ".gfg", "config.yaml")
}

// ProjectConfigPath returns the project-level config file path (./.gfg/config.yaml)
func ProjectConfigPath() string {
	return ".gfg/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.gfg/config.yaml)
// 3. Global config (~/.gfg/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// 1. Load global config (~/.gfg/config.yaml)
	globalConfigPath := GlobalConfigPath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	// 2. Load project-level config (./.gfg/config.yaml) - overrides global
	projectConfigPath := ProjectConfigPath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	// 3. Override with environment variables
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GFG_FORMAT"); v != "" {
		cfg.Format = OutputFormat(v)
	}
	if v := os.Getenv("GFG_LINK_CALLS"); v != "" {
		cfg.LinkCalls = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("GFG_INCLUDE_SENTINELS"); v != "" {
		cfg.IncludeSentinels = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("GFG_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("GFG_CACHE_MAX_ENTRIES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheMaxEntries = i
		}
	}
	if v := os.Getenv("GFG_CACHE_MAX_BYTES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.CacheMaxBytes = i
		}
	}
	if v := os.Getenv("GFG_WORKERS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.Workers = i
		}
	}
	if v := os.Getenv("GFG_WATCH_DEBOUNCE_MS"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.WatchDebounceMs = i
		}
	}
	if v := os.Getenv("GFG_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
}

// Validate checks that the configuration has valid required fields
func (c *Config) Validate() error {
	switch c.Format {
	case FormatJSON, FormatDOT, FormatText:
		// Valid
	default:
		return fmt.Errorf("invalid format: %s (must be 'json', 'dot' or 'text')", c.Format)
	}

	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir must not be empty")
	}
	if c.CacheMaxEntries < 0 {
		return fmt.Errorf("cache_max_entries must be non-negative")
	}
	if c.CacheMaxBytes < 0 {
		return fmt.Errorf("cache_max_bytes must be non-negative")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.WatchDebounceMs < 0 {
		return fmt.Errorf("watch_debounce_ms must be non-negative")
	}

	return nil
}

// parseInt attempts to parse a string as int
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
