// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for talker.
//
// Configuration lives in TOML at ~/.talker/config.toml, with sensible
// defaults and environment variable overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/talkerhq/talker-tui/internal/secrets"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete talker configuration.
type Config struct {
	Version string `toml:"version"`

	// UserID identifies this user against the remote store. Generated on
	// first run.
	UserID string `toml:"user_id"`

	Store  StoreConfig  `toml:"store"`
	Gemini GeminiConfig `toml:"gemini"`
	Search SearchConfig `toml:"search"`
	Reveal RevealConfig `toml:"reveal"`
	UI     UIConfig     `toml:"ui"`
	Log    LogConfig    `toml:"log"`
}

// StoreConfig selects and configures the durable store.
type StoreConfig struct {
	// Backend is one of "supabase", "sqlite", "memory".
	Backend string `toml:"backend"`
	// SupabaseURL is the project base URL (https://<ref>.supabase.co).
	SupabaseURL string `toml:"supabase_url"`
	// SupabaseKey is the anon API key. Encrypted at rest when a secrets
	// keeper is configured.
	SupabaseKey string `toml:"supabase_key"`
	// SQLitePath overrides the default local database path.
	SQLitePath string `toml:"sqlite_path"`
}

// GeminiConfig configures the generation gateway.
type GeminiConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
	// RequestsPerMinute caps generation calls.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// SearchConfig configures the serper.dev web-search gateway. An empty key
// disables search-augmented prompts.
type SearchConfig struct {
	APIKey string `toml:"api_key"`
}

// RevealConfig tunes the streaming reveal.
type RevealConfig struct {
	// TickMs is the per-character interval in milliseconds.
	TickMs int `toml:"tick_ms"`
}

// UIConfig contains display settings.
type UIConfig struct {
	Theme string `toml:"theme"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`
	// Path overrides the default log file location.
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Store: StoreConfig{
			Backend: "sqlite",
		},
		Gemini: GeminiConfig{
			Model:             "gemini-1.5-flash",
			RequestsPerMinute: 30,
		},
		Reveal: RevealConfig{
			TickMs: 15,
		},
		UI: UIConfig{
			Theme: "dark",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// RevealInterval returns the reveal tick as a duration.
func (c *Config) RevealInterval() time.Duration {
	return time.Duration(c.Reveal.TickMs) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the talker configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".talker"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the config file, applies env overrides, and validates. A
// missing file yields defaults.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides:
//   - TALKER_STORE: overrides store.backend
//   - TALKER_SUPABASE_URL: overrides store.supabase_url
//   - TALKER_SUPABASE_KEY: overrides store.supabase_key
//   - TALKER_GEMINI_KEY: overrides gemini.api_key
//   - TALKER_GEMINI_MODEL: overrides gemini.model
//   - TALKER_SEARCH_KEY: overrides search.api_key
//   - TALKER_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("TALKER_STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("TALKER_SUPABASE_URL"); v != "" {
		c.Store.SupabaseURL = v
	}
	if v := os.Getenv("TALKER_SUPABASE_KEY"); v != "" {
		c.Store.SupabaseKey = v
	}
	if v := os.Getenv("TALKER_GEMINI_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("TALKER_GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
	if v := os.Getenv("TALKER_SEARCH_KEY"); v != "" {
		c.Search.APIKey = v
	}
	if v := os.Getenv("TALKER_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// SetDefaults fills zero values that decoding may have cleared.
func (c *Config) SetDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-1.5-flash"
	}
	if c.Gemini.RequestsPerMinute <= 0 {
		c.Gemini.RequestsPerMinute = 30
	}
	if c.Reveal.TickMs <= 0 {
		c.Reveal.TickMs = 15
	}
	if c.UI.Theme == "" {
		c.UI.Theme = "dark"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "supabase", "sqlite", "memory":
	default:
		return ValidationError{Field: "store.backend", Message: fmt.Sprintf("unknown backend %q", c.Store.Backend)}
	}

	if c.Store.Backend == "supabase" {
		if c.Store.SupabaseURL == "" {
			return ValidationError{Field: "store.supabase_url", Message: "required for the supabase backend"}
		}
		u, err := url.Parse(c.Store.SupabaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ValidationError{Field: "store.supabase_url", Message: "must be an absolute URL"}
		}
	}

	if c.Reveal.TickMs > 1000 {
		return ValidationError{Field: "reveal.tick_ms", Message: "must be at most 1000"}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ValidationError{Field: "log.level", Message: fmt.Sprintf("unknown level %q", c.Log.Level)}
	}

	return nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the configuration as TOML with owner-only permissions;
// the file holds API keys.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# talker configuration file")
	fmt.Fprintln(file, "# Generated by talker - edit with care")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// SECRET FIELDS
// =============================================================================

// EncryptSecrets encrypts the API key fields in place before saving.
func (c *Config) EncryptSecrets(k *secrets.Keeper) error {
	var err error
	if c.Store.SupabaseKey, err = k.EncryptField(c.Store.SupabaseKey); err != nil {
		return err
	}
	if c.Gemini.APIKey, err = k.EncryptField(c.Gemini.APIKey); err != nil {
		return err
	}
	if c.Search.APIKey, err = k.EncryptField(c.Search.APIKey); err != nil {
		return err
	}
	return nil
}

// DecryptSecrets decrypts the API key fields in place after loading.
func (c *Config) DecryptSecrets(k *secrets.Keeper) error {
	var err error
	if c.Store.SupabaseKey, err = k.DecryptField(c.Store.SupabaseKey); err != nil {
		return err
	}
	if c.Gemini.APIKey, err = k.DecryptField(c.Gemini.APIKey); err != nil {
		return err
	}
	if c.Search.APIKey, err = k.DecryptField(c.Search.APIKey); err != nil {
		return err
	}
	return nil
}
