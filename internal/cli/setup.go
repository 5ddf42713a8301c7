// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/talkerhq/talker-tui/internal/config"
	"github.com/talkerhq/talker-tui/internal/secrets"
)

// =============================================================================
// FIRST-RUN SETUP WIZARD
// =============================================================================

// UnlockSecrets prompts for the passphrase and decrypts encrypted API
// keys in place. A config with plaintext keys passes through untouched.
func UnlockSecrets(cfg *config.Config, cfgPath string) error {
	encrypted := secrets.IsEncrypted(cfg.Gemini.APIKey) ||
		secrets.IsEncrypted(cfg.Search.APIKey) ||
		secrets.IsEncrypted(cfg.Store.SupabaseKey)
	if !encrypted {
		return nil
	}
	if !IsTTY() {
		return fmt.Errorf("config holds encrypted keys but stdin is not a terminal")
	}

	passphrase := promptSecure("Passphrase to unlock API keys (hidden)")
	saltPath := filepath.Join(filepath.Dir(cfgPath), "salt")
	keeper, err := secrets.Open(passphrase, saltPath)
	if err != nil {
		return fmt.Errorf("open secret keeper: %w", err)
	}
	if err := cfg.DecryptSecrets(keeper); err != nil {
		return fmt.Errorf("decrypt secrets: %w", err)
	}
	return nil
}

// RunSetup walks through API key and storage configuration and writes the
// config file. Existing values become the prompts' defaults.
func RunSetup(cfgPath string) error {
	if !IsTTY() {
		return fmt.Errorf("setup requires an interactive terminal")
	}

	if cfgPath == "" {
		var err error
		cfgPath, err = config.Path()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg, err := config.LoadFromPath(cfgPath)
	if err != nil {
		fmt.Printf("Existing config could not be read (%v), starting fresh.\n", err)
		cfg = config.Default()
	}

	fmt.Println("talker setup")
	fmt.Println("------------")
	fmt.Println()

	if cfg.UserID == "" {
		cfg.UserID = uuid.NewString()
		fmt.Printf("Generated user id: %s\n\n", cfg.UserID)
	}

	// Storage backend
	backend := promptString("Storage backend (sqlite/supabase)", cfg.Store.Backend)
	cfg.Store.Backend = backend
	switch backend {
	case "supabase":
		cfg.Store.SupabaseURL = promptString("Supabase URL", cfg.Store.SupabaseURL)
		if key := promptSecure("Supabase anon key (hidden)"); key != "" {
			cfg.Store.SupabaseKey = key
		}
	case "sqlite":
		cfg.Store.SQLitePath = promptString("SQLite path", cfg.Store.SQLitePath)
	}

	// Gemini
	if key := promptSecure("Gemini API key (hidden, empty keeps current)"); key != "" {
		cfg.Gemini.APIKey = key
	}
	cfg.Gemini.Model = promptString("Gemini model", cfg.Gemini.Model)

	// Serper (optional)
	if promptYesNo("Enable web search (requires a serper.dev key)?", cfg.Search.APIKey != "") {
		if key := promptSecure("Serper API key (hidden, empty keeps current)"); key != "" {
			cfg.Search.APIKey = key
		}
	}

	// Optional at-rest encryption of the stored keys
	if promptYesNo("Encrypt API keys in the config file?", false) {
		passphrase := promptSecure("Passphrase (hidden)")
		if passphrase != "" {
			saltPath := filepath.Join(filepath.Dir(cfgPath), "salt")
			keeper, err := secrets.Open(passphrase, saltPath)
			if err != nil {
				return fmt.Errorf("open secret keeper: %w", err)
			}
			if err := cfg.EncryptSecrets(keeper); err != nil {
				return fmt.Errorf("encrypt secrets: %w", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	if err := cfg.SaveTo(cfgPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("\nConfiguration written to %s\n", cfgPath)
	return nil
}
