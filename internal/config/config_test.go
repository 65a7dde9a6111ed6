package config

import (
	"os"
	"path/filepath"
	"testing"
)

var gfgEnvVars = []string{
	"GFG_FORMAT",
	"GFG_LINK_CALLS",
	"GFG_INCLUDE_SENTINELS",
	"GFG_CACHE_DIR",
	"GFG_CACHE_MAX_ENTRIES",
	"GFG_CACHE_MAX_BYTES",
	"GFG_WORKERS",
	"GFG_WATCH_DEBOUNCE_MS",
	"GFG_VERBOSE",
}

func clearEnv() {
	for _, k := range gfgEnvVars {
		os.Unsetenv(k)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Format", cfg.Format, FormatJSON},
		{"LinkCalls", cfg.LinkCalls, true},
		{"IncludeSentinels", cfg.IncludeSentinels, false},
		{"CacheMaxEntries", cfg.CacheMaxEntries, 256},
		{"CacheMaxBytes", cfg.CacheMaxBytes, 64 << 20},
		{"Workers", cfg.Workers, 4},
		{"WatchDebounceMs", cfg.WatchDebounceMs, 500},
		{"Verbose", cfg.Verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("DefaultConfig().%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	if cfg.CacheDir == "" {
		t.Error("DefaultConfig().CacheDir is empty")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig() does not validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := func(mutate func(*Config)) *Config {
		cfg := DefaultConfig()
		mutate(cfg)
		return cfg
	}

	tests := []struct {
		name        string
		cfg         *Config
		wantErr     bool
		errContains string
	}{
		{
			name:    "valid dot format",
			cfg:     valid(func(c *Config) { c.Format = FormatDOT }),
			wantErr: false,
		},
		{
			name:    "valid text format",
			cfg:     valid(func(c *Config) { c.Format = FormatText }),
			wantErr: false,
		},
		{
			name:        "invalid format",
			cfg:         valid(func(c *Config) { c.Format = "xml" }),
			wantErr:     true,
			errContains: "invalid format",
		},
		{
			name:        "empty cache dir",
			cfg:         valid(func(c *Config) { c.CacheDir = "" }),
			wantErr:     true,
			errContains: "cache_dir must not be empty",
		},
		{
			name:        "negative cache entries",
			cfg:         valid(func(c *Config) { c.CacheMaxEntries = -1 }),
			wantErr:     true,
			errContains: "cache_max_entries must be non-negative",
		},
		{
			name:        "negative cache bytes",
			cfg:         valid(func(c *Config) { c.CacheMaxBytes = -1 }),
			wantErr:     true,
			errContains: "cache_max_bytes must be non-negative",
		},
		{
			name:        "zero workers",
			cfg:         valid(func(c *Config) { c.Workers = 0 }),
			wantErr:     true,
			errContains: "workers must be positive",
		},
		{
			name:        "negative debounce",
			cfg:         valid(func(c *Config) { c.WatchDebounceMs = -10 }),
			wantErr:     true,
			errContains: "watch_debounce_ms must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error containing %q, got nil", tt.errContains)
				} else if !contains(err.Error(), tt.errContains) {
					t.Errorf("Error = %q, should contain %q", err.Error(), tt.errContains)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		envVars     map[string]string
		checkCfg    func(*testing.T, *Config)
		wantErr     bool
		errContains string
	}{
		{
			name: "load valid config from file",
			configYAML: `
format: dot
link_calls: false
include_sentinels: true
cache_dir: /tmp/gfg-cache
cache_max_entries: 32
cache_max_bytes: 1048576
workers: 8
watch_debounce_ms: 250
verbose: true
`,
			checkCfg: func(t *testing.T, cfg *Config) {
				if cfg.Format != FormatDOT {
					t.Errorf("Format = %v, want %v", cfg.Format, FormatDOT)
				}
				if cfg.LinkCalls {
					t.Error("LinkCalls = true, want false")
				}
				if !cfg.IncludeSentinels {
					t.Error("IncludeSentinels = false, want true")
				}
				if cfg.CacheDir != "/tmp/gfg-cache" {
					t.Errorf("CacheDir = %v, want /tmp/gfg-cache", cfg.CacheDir)
				}
				if cfg.CacheMaxEntries != 32 {
					t.Errorf("CacheMaxEntries = %v, want 32", cfg.CacheMaxEntries)
				}
				if cfg.CacheMaxBytes != 1048576 {
					t.Errorf("CacheMaxBytes = %v, want 1048576", cfg.CacheMaxBytes)
				}
				if cfg.Workers != 8 {
					t.Errorf("Workers = %v, want 8", cfg.Workers)
				}
				if cfg.WatchDebounceMs != 250 {
					t.Errorf("WatchDebounceMs = %v, want 250", cfg.WatchDebounceMs)
				}
				if !cfg.Verbose {
					t.Error("Verbose = false, want true")
				}
			},
			wantErr: false,
		},
		{
			name: "partial config keeps defaults",
			configYAML: `
format: text
`,
			checkCfg: func(t *testing.T, cfg *Config) {
				if cfg.Format != FormatText {
					t.Errorf("Format = %v, want %v", cfg.Format, FormatText)
				}
				if cfg.Workers != 4 {
					t.Errorf("Workers = %v, want 4 (default)", cfg.Workers)
				}
				if cfg.WatchDebounceMs != 500 {
					t.Errorf("WatchDebounceMs = %v, want 500 (default)", cfg.WatchDebounceMs)
				}
			},
			wantErr: false,
		},
		{
			name: "env var overrides file values",
			configYAML: `
format: dot
workers: 2
`,
			envVars: map[string]string{
				"GFG_FORMAT":  "json",
				"GFG_WORKERS": "16",
			},
			checkCfg: func(t *testing.T, cfg *Config) {
				if cfg.Format != FormatJSON {
					t.Errorf("Format = %v, want %v (from env)", cfg.Format, FormatJSON)
				}
				if cfg.Workers != 16 {
					t.Errorf("Workers = %v, want 16 (from env)", cfg.Workers)
				}
			},
			wantErr: false,
		},
		{
			name: "invalid yaml",
			configYAML: `
format: dot
  invalid: indent
`,
			wantErr:     true,
			errContains: "failed to parse",
		},
		{
			name: "invalid format in file",
			configYAML: `
format: svg
`,
			wantErr:     true,
			errContains: "invalid format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}

			cfg, err := LoadFromFile(configPath)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error containing %q, got nil", tt.errContains)
				} else if !contains(err.Error(), tt.errContains) {
					t.Errorf("Error = %q, should contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if tt.checkCfg != nil {
				tt.checkCfg(t, cfg)
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	clearEnv()
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing config file, got nil")
	}
	if !contains(err.Error(), "failed to read") {
		t.Errorf("Error = %q, should contain %q", err.Error(), "failed to read")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(*testing.T, *Config)
	}{
		{
			name: "override format",
			envVars: map[string]string{
				"GFG_FORMAT": "dot",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Format != FormatDOT {
					t.Errorf("Format = %v, want %v", cfg.Format, FormatDOT)
				}
			},
		},
		{
			name: "disable call linking",
			envVars: map[string]string{
				"GFG_LINK_CALLS": "false",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.LinkCalls {
					t.Error("LinkCalls = true, want false")
				}
			},
		},
		{
			name: "enable sentinels with 1",
			envVars: map[string]string{
				"GFG_INCLUDE_SENTINELS": "1",
			},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.IncludeSentinels {
					t.Error("IncludeSentinels = false, want true (from '1')")
				}
			},
		},
		{
			name: "override cache dir",
			envVars: map[string]string{
				"GFG_CACHE_DIR": "/tmp/alt-cache",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.CacheDir != "/tmp/alt-cache" {
					t.Errorf("CacheDir = %v, want /tmp/alt-cache", cfg.CacheDir)
				}
			},
		},
		{
			name: "override numeric values",
			envVars: map[string]string{
				"GFG_CACHE_MAX_ENTRIES": "512",
				"GFG_CACHE_MAX_BYTES":   "2048",
				"GFG_WORKERS":           "12",
				"GFG_WATCH_DEBOUNCE_MS": "100",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.CacheMaxEntries != 512 {
					t.Errorf("CacheMaxEntries = %v, want 512", cfg.CacheMaxEntries)
				}
				if cfg.CacheMaxBytes != 2048 {
					t.Errorf("CacheMaxBytes = %v, want 2048", cfg.CacheMaxBytes)
				}
				if cfg.Workers != 12 {
					t.Errorf("Workers = %v, want 12", cfg.Workers)
				}
				if cfg.WatchDebounceMs != 100 {
					t.Errorf("WatchDebounceMs = %v, want 100", cfg.WatchDebounceMs)
				}
			},
		},
		{
			name: "override verbose with yes",
			envVars: map[string]string{
				"GFG_VERBOSE": "yes",
			},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.Verbose {
					t.Error("Verbose = false, want true (from 'yes')")
				}
			},
		},
		{
			name: "invalid int ignored",
			envVars: map[string]string{
				"GFG_WORKERS": "not-an-int",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Workers != 4 {
					t.Errorf("Workers = %v, want 4 (default)", cfg.Workers)
				}
			},
		},
		{
			name: "negative values ignored",
			envVars: map[string]string{
				"GFG_WATCH_DEBOUNCE_MS": "-100",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.WatchDebounceMs != 500 {
					t.Errorf("WatchDebounceMs = %v, want 500 (default)", cfg.WatchDebounceMs)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv()
			defer clearEnv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg := DefaultConfig()
			applyEnvOverrides(cfg)

			tt.check(t, cfg)
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"0", 0},
		{"100", 100},
		{"512", 512},
		{"invalid", 0},
		{"", 0},
		{"abc123", 0},
		{"10.5", 10}, // Will parse 10 from 10.5
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseInt(tt.input)
			if result != tt.expected {
				t.Errorf("parseInt(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestConfigSave(t *testing.T) {
	clearEnv()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Format = FormatDOT
	cfg.LinkCalls = false
	cfg.CacheDir = "/tmp/gfg-test-cache"
	cfg.Workers = 2

	err := cfg.Save(configPath)
	if err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}

	loadedCfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if loadedCfg.Format != cfg.Format {
		t.Errorf("Format mismatch: got %s, want %s", loadedCfg.Format, cfg.Format)
	}
	if loadedCfg.LinkCalls != cfg.LinkCalls {
		t.Errorf("LinkCalls mismatch: got %v, want %v", loadedCfg.LinkCalls, cfg.LinkCalls)
	}
	if loadedCfg.CacheDir != cfg.CacheDir {
		t.Errorf("CacheDir mismatch: got %s, want %s", loadedCfg.CacheDir, cfg.CacheDir)
	}
	if loadedCfg.Workers != cfg.Workers {
		t.Errorf("Workers mismatch: got %d, want %d", loadedCfg.Workers, cfg.Workers)
	}
}

func TestConfigSaveCreatesParentDirs(t *testing.T) {
	clearEnv()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "dirs", "config.yaml")

	cfg := DefaultConfig()

	err := cfg.Save(configPath)
	if err != nil {
		t.Fatalf("Save() failed to create parent dirs: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}
}

// Helper functions

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > 0 && containsAt(s, substr))
}

func containsAt(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
