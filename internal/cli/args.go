// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides argument parsing and the headless command
// handlers for talker.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdAsk
	CmdView
	CmdExport
	CmdServe
	CmdSetup
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Verbose    bool
	WebSearch  bool

	// Command-specific
	Query string // ask
	Token string // view
	File  string // export destination
	Port  int    // serve

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `talker - conversational AI for the terminal

Talker is a chat client with conversation history, shared links, and
optional web-search-augmented answers.

Usage:
  talker                     Start TUI (default)
  talker chat                Interactive chat in the terminal (no TUI)
  talker ask "question"      Ask a single question and exit
  talker view TOKEN          Print a shared conversation by its token
  talker export [FILE]       Export the active conversation as Markdown
  talker serve [--port N]    Serve shared conversations over HTTP
  talker setup               First-run setup wizard
  talker version             Show version
  talker help                Show this help

Flags:
  -c, --config PATH   Use an alternate config file
  -w, --web           Enable web-search-augmented answers (ask)
  -v, --verbose       Verbose logging
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("talker %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	return parse(os.Args[1:])
}

func parse(argv []string) (Command, Args) {
	rest, args := parseGlobalFlags(argv)

	if len(rest) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(rest[0])
	rest = rest[1:]
	args.Raw = rest

	switch cmd {
	case "chat", "repl":
		return CmdChat, args
	case "ask":
		if len(rest) > 0 {
			args.Query = strings.Join(rest, " ")
		}
		return CmdAsk, args
	case "view":
		if len(rest) > 0 {
			args.Token = rest[0]
		}
		return CmdView, args
	case "export":
		if len(rest) > 0 {
			args.File = rest[0]
		}
		return CmdExport, args
	case "serve":
		for i := 0; i < len(rest); i++ {
			if (rest[i] == "--port" || rest[i] == "-p") && i+1 < len(rest) {
				if port, err := strconv.Atoi(rest[i+1]); err == nil {
					args.Port = port
				}
				i++
			}
		}
		return CmdServe, args
	case "setup", "init":
		return CmdSetup, args
	case "version", "--version", "-V":
		return CmdVersion, args
	case "help", "--help", "-h":
		return CmdHelp, args
	default:
		// Bare text is treated as an ask query.
		args.Query = strings.Join(append([]string{cmd}, rest...), " ")
		return CmdAsk, args
	}
}

// parseGlobalFlags strips global flags from the argument list.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var rest []string

	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "-c", "--config":
			if i+1 < len(argv) {
				i++
				args.ConfigPath = argv[i]
			}
		case "-w", "--web":
			args.WebSearch = true
		case "-v", "--verbose":
			args.Verbose = true
		default:
			rest = append(rest, argv[i])
		}
	}
	return rest, args
}
