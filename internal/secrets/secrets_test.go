// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package secrets

import (
	"errors"
	"path/filepath"
	"testing"
)

func openKeeper(t *testing.T, passphrase, dir string) *Keeper {
	t.Helper()
	k, err := Open(passphrase, filepath.Join(dir, "salt"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return k
}

func TestEncryptDecryptField(t *testing.T) {
	k := openKeeper(t, "passphrase", t.TempDir())

	enc, err := k.EncryptField("sk-secret-key")
	if err != nil {
		t.Fatalf("EncryptField: %v", err)
	}
	if !IsEncrypted(enc) {
		t.Fatalf("encrypted value %q missing prefix", enc)
	}
	if enc == "sk-secret-key" {
		t.Fatal("value not encrypted")
	}

	dec, err := k.DecryptField(enc)
	if err != nil {
		t.Fatalf("DecryptField: %v", err)
	}
	if dec != "sk-secret-key" {
		t.Errorf("decrypted = %q, want original", dec)
	}
}

func TestEncryptField_AlreadyEncryptedPassesThrough(t *testing.T) {
	k := openKeeper(t, "passphrase", t.TempDir())

	enc, err := k.EncryptField("value")
	if err != nil {
		t.Fatalf("EncryptField: %v", err)
	}
	again, err := k.EncryptField(enc)
	if err != nil {
		t.Fatalf("EncryptField twice: %v", err)
	}
	if again != enc {
		t.Error("already-encrypted value was re-encrypted")
	}
}

func TestEncryptField_EmptyPassesThrough(t *testing.T) {
	k := openKeeper(t, "passphrase", t.TempDir())

	enc, err := k.EncryptField("")
	if err != nil || enc != "" {
		t.Errorf("EncryptField(\"\") = %q, %v", enc, err)
	}
}

func TestDecryptField_PlaintextPassesThrough(t *testing.T) {
	k := openKeeper(t, "passphrase", t.TempDir())

	dec, err := k.DecryptField("plain-old-value")
	if err != nil || dec != "plain-old-value" {
		t.Errorf("DecryptField(plaintext) = %q, %v", dec, err)
	}
}

func TestDecryptField_WrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	k1 := openKeeper(t, "right", dir)
	k2 := openKeeper(t, "wrong", dir)

	enc, err := k1.EncryptField("secret")
	if err != nil {
		t.Fatalf("EncryptField: %v", err)
	}
	if _, err := k2.DecryptField(enc); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("err = %v, want ErrDecryptionFailed", err)
	}
}

func TestDecryptField_Garbage(t *testing.T) {
	k := openKeeper(t, "passphrase", t.TempDir())

	if _, err := k.DecryptField("ENC:!!!not-base64!!!"); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("err = %v, want ErrInvalidCiphertext", err)
	}
	if _, err := k.DecryptField("ENC:QQ=="); !errors.Is(err, ErrInvalidCiphertext) {
		t.Errorf("short ciphertext err = %v, want ErrInvalidCiphertext", err)
	}
}

func TestOpen_SaltPersistsAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	k1 := openKeeper(t, "passphrase", dir)
	enc, err := k1.EncryptField("secret")
	if err != nil {
		t.Fatalf("EncryptField: %v", err)
	}

	// Same passphrase and salt file: a fresh keeper can decrypt.
	k2 := openKeeper(t, "passphrase", dir)
	dec, err := k2.DecryptField(enc)
	if err != nil || dec != "secret" {
		t.Errorf("DecryptField across sessions = %q, %v", dec, err)
	}
}
