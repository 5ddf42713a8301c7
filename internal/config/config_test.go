// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talkerhq/talker-tui/internal/secrets"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Backend = %q, want sqlite", cfg.Store.Backend)
	}
	if cfg.Reveal.TickMs != 15 {
		t.Errorf("TickMs = %d, want 15", cfg.Reveal.TickMs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFromPath_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("Backend = %q, want default", cfg.Store.Backend)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.UserID = "user-42"
	cfg.Store.Backend = "supabase"
	cfg.Store.SupabaseURL = "https://example.supabase.co"
	cfg.Store.SupabaseKey = "anon-key"
	cfg.Gemini.APIKey = "gem-key"
	cfg.Reveal.TickMs = 25

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.UserID != "user-42" || loaded.Store.SupabaseKey != "anon-key" || loaded.Reveal.TickMs != 25 {
		t.Errorf("loaded = %+v, want saved values", loaded)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TALKER_STORE", "memory")
	t.Setenv("TALKER_GEMINI_KEY", "env-key")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("Backend = %q, want env override", cfg.Store.Backend)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.Gemini.APIKey)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }, "store.backend"},
		{"supabase without url", func(c *Config) { c.Store.Backend = "supabase" }, "store.supabase_url"},
		{"relative supabase url", func(c *Config) {
			c.Store.Backend = "supabase"
			c.Store.SupabaseURL = "example.supabase.co"
		}, "store.supabase_url"},
		{"tick too slow", func(c *Config) { c.Reveal.TickMs = 5000 }, "reveal.tick_ms"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate should fail")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("err = %v, want field %s", err, tc.wantErr)
			}
		})
	}
}

func TestSecretsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	keeper, err := secrets.Open("passphrase", filepath.Join(dir, "salt"))
	if err != nil {
		t.Fatalf("secrets.Open: %v", err)
	}

	cfg := Default()
	cfg.Gemini.APIKey = "gem-key"
	cfg.Store.SupabaseKey = "anon-key"

	if err := cfg.EncryptSecrets(keeper); err != nil {
		t.Fatalf("EncryptSecrets: %v", err)
	}
	if cfg.Gemini.APIKey == "gem-key" {
		t.Error("APIKey not encrypted")
	}
	if !secrets.IsEncrypted(cfg.Gemini.APIKey) {
		t.Errorf("APIKey = %q, missing prefix", cfg.Gemini.APIKey)
	}

	if err := cfg.DecryptSecrets(keeper); err != nil {
		t.Fatalf("DecryptSecrets: %v", err)
	}
	if cfg.Gemini.APIKey != "gem-key" || cfg.Store.SupabaseKey != "anon-key" {
		t.Errorf("decrypted = %q/%q, want originals", cfg.Gemini.APIKey, cfg.Store.SupabaseKey)
	}
}
