// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"
)

// =============================================================================
// ARGUMENT PARSING TESTS
// =============================================================================

func TestParseDefaultIsTUI(t *testing.T) {
	cmd, _ := parse(nil)
	if cmd != CmdTUI {
		t.Errorf("parse() = %v, want CmdTUI", cmd)
	}
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want Command
	}{
		{"chat", []string{"chat"}, CmdChat},
		{"repl alias", []string{"repl"}, CmdChat},
		{"ask", []string{"ask", "what", "is", "go"}, CmdAsk},
		{"view", []string{"view", "aB3x"}, CmdView},
		{"export", []string{"export", "out.md"}, CmdExport},
		{"serve", []string{"serve"}, CmdServe},
		{"setup", []string{"setup"}, CmdSetup},
		{"init alias", []string{"init"}, CmdSetup},
		{"version", []string{"version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd, _ := parse(tc.argv)
			if cmd != tc.want {
				t.Errorf("parse(%v) = %v, want %v", tc.argv, cmd, tc.want)
			}
		})
	}
}

func TestParseAskJoinsQuery(t *testing.T) {
	_, args := parse([]string{"ask", "what", "is", "go"})
	if args.Query != "what is go" {
		t.Errorf("Query = %q, want %q", args.Query, "what is go")
	}
}

func TestParseBareTextIsAsk(t *testing.T) {
	cmd, args := parse([]string{"explain", "channels"})
	if cmd != CmdAsk {
		t.Errorf("parse() = %v, want CmdAsk", cmd)
	}
	if args.Query != "explain channels" {
		t.Errorf("Query = %q, want %q", args.Query, "explain channels")
	}
}

func TestParseViewToken(t *testing.T) {
	_, args := parse([]string{"view", "Zz9a"})
	if args.Token != "Zz9a" {
		t.Errorf("Token = %q, want %q", args.Token, "Zz9a")
	}
}

func TestParseGlobalFlags(t *testing.T) {
	cmd, args := parse([]string{"-w", "--config", "/tmp/talker.toml", "ask", "hi"})

	if cmd != CmdAsk {
		t.Errorf("parse() = %v, want CmdAsk", cmd)
	}
	if !args.WebSearch {
		t.Error("WebSearch should be set by -w")
	}
	if args.ConfigPath != "/tmp/talker.toml" {
		t.Errorf("ConfigPath = %q, want %q", args.ConfigPath, "/tmp/talker.toml")
	}
}

func TestParseServePort(t *testing.T) {
	_, args := parse([]string{"serve", "--port", "9090"})
	if args.Port != 9090 {
		t.Errorf("Port = %d, want 9090", args.Port)
	}
}

func TestParseExportFile(t *testing.T) {
	_, args := parse([]string{"export", "notes.md"})
	if args.File != "notes.md" {
		t.Errorf("File = %q, want %q", args.File, "notes.md")
	}
}
