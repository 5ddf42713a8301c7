// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package secrets encrypts API keys at rest in the config file with
// AES-256-GCM and a PBKDF2-derived key, so a copied config does not leak
// credentials.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/talkerhq/talker-tui/internal/util"
)

// EncryptedPrefix marks a config value as encrypted
// (format: ENC:base64(nonce|ciphertext|tag)).
const EncryptedPrefix = "ENC:"

// nonceSize is the AES-GCM nonce size (96 bits).
const nonceSize = 12

// keySize is the AES-256 key size.
const keySize = 32

// saltSize is the key-derivation salt size.
const saltSize = 32

// pbkdf2Iterations follows the OWASP 2023 recommendation for
// PBKDF2-SHA-256.
const pbkdf2Iterations = 600000

var (
	// ErrInvalidCiphertext indicates the value is not a well-formed
	// encrypted field.
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")
	// ErrDecryptionFailed indicates a wrong key or tampered data.
	ErrDecryptionFailed = errors.New("decryption failed: authentication tag mismatch")
)

// ZeroBytes zeros key material to keep it out of crash dumps.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// IsEncrypted reports whether a config value carries the encrypted
// marker.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, EncryptedPrefix)
}

// =============================================================================
// KEEPER
// =============================================================================

// Keeper encrypts and decrypts individual config fields.
type Keeper struct {
	aead cipher.AEAD
}

// Open derives the field-encryption key from the passphrase and the salt
// stored at saltPath, creating the salt on first use.
func Open(passphrase, saltPath string) (*Keeper, error) {
	salt, err := loadOrCreateSalt(saltPath)
	if err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, keySize, sha256.New)
	defer ZeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Keeper{aead: aead}, nil
}

// EncryptField encrypts a config value. Already-encrypted values pass
// through unchanged, so re-saving a config never double-encrypts.
func (k *Keeper) EncryptField(value string) (string, error) {
	if value == "" || IsEncrypted(value) {
		return value, nil
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := k.aead.Seal(nonce, nonce, []byte(value), nil)
	return EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptField decrypts a config value. Plaintext values pass through
// unchanged for configs written before encryption was enabled.
func (k *Keeper) DecryptField(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, EncryptedPrefix))
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) < nonceSize {
		return "", ErrInvalidCiphertext
	}

	plain, err := k.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plain), nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == saltSize {
		return salt, nil
	}

	salt = make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	if err := util.AtomicWriteFile(path, salt, 0600); err != nil {
		return nil, err
	}
	return salt, nil
}
