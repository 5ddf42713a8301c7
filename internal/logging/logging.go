// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
//
// The TUI owns stdout, so logs always go to a file under the data
// directory (~/.talker/talker.log). Best-effort remote writes log their
// failures here instead of surfacing them to the user.
package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger zerolog.Logger
	once         sync.Once
)

// Get returns the global logger, initializing a file-backed logger under
// the default data directory on first use.
func Get() zerolog.Logger {
	once.Do(func() {
		globalLogger = newFileLogger(defaultLogPath(), zerolog.InfoLevel)
	})
	return globalLogger
}

// Init configures the global logger with an explicit path and level.
// An empty path selects the default log file, so a config that never set
// Log.Path still gets a working sink. Level parsing is case-insensitive;
// unknown levels fall back to info.
func Init(path, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if path == "" {
		path = defaultLogPath()
	}
	once.Do(func() {})
	globalLogger = newFileLogger(path, lvl)
	return globalLogger
}

// For returns a component-scoped logger.
func For(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

func newFileLogger(path string, lvl zerolog.Level) zerolog.Logger {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		// No writable data dir: keep the logger but drop output.
		return zerolog.Nop()
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop()
	}
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(f).With().Timestamp().Logger().Level(lvl)
}

func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "talker.log")
	}
	return filepath.Join(home, ".talker", "talker.log")
}
