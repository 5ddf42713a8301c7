// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// TestInit_EmptyPathUsesDefaultSink verifies that a config with no log
// path still yields a working file logger instead of a Nop one, since
// best-effort write failures are only ever reported through this sink.
func TestInit_EmptyPathUsesDefaultSink(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	log := Init("", "info")
	require.NotEqual(t, zerolog.Disabled, log.GetLevel())

	log.Info().Str("component", "sync").Msg("remote write failed")

	data, err := os.ReadFile(filepath.Join(home, ".talker", "talker.log"))
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "remote write failed"))
}

// TestInit_ExplicitPathAndLevel covers the configured case.
func TestInit_ExplicitPathAndLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talker.log")

	log := Init(path, "debug")
	require.Equal(t, zerolog.DebugLevel, log.GetLevel())

	log.Debug().Msg("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), "hello"))
}

// TestInit_UnknownLevelFallsBackToInfo pins the parse fallback.
func TestInit_UnknownLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talker.log")

	log := Init(path, "shouty")
	require.Equal(t, zerolog.InfoLevel, log.GetLevel())
}
