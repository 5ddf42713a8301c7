// talker TUI - a terminal chat client with conversation history,
// shared links, and web-search-augmented answers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/talkerhq/talker-tui/internal/cli"
	"github.com/talkerhq/talker-tui/internal/config"
	"github.com/talkerhq/talker-tui/internal/gateway"
	"github.com/talkerhq/talker-tui/internal/gateway/gemini"
	"github.com/talkerhq/talker-tui/internal/gateway/serper"
	"github.com/talkerhq/talker-tui/internal/localstate"
	"github.com/talkerhq/talker-tui/internal/logging"
	"github.com/talkerhq/talker-tui/internal/pipeline"
	"github.com/talkerhq/talker-tui/internal/server"
	"github.com/talkerhq/talker-tui/internal/share"
	"github.com/talkerhq/talker-tui/internal/store"
	"github.com/talkerhq/talker-tui/internal/store/sqlite"
	"github.com/talkerhq/talker-tui/internal/store/supabase"
	syncengine "github.com/talkerhq/talker-tui/internal/sync"
	"github.com/talkerhq/talker-tui/internal/ui/chat"
	"github.com/talkerhq/talker-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	case cli.CmdSetup:
		if err := cli.RunSetup(args.ConfigPath); err != nil {
			fail(err)
		}
	default:
		runWithApp(cmd, args)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// runWithApp builds the service graph, runs the command, and tears the
// graph down in reverse order.
func runWithApp(cmd cli.Command, args cli.Args) {
	app, cleanup, err := buildApp(args)
	if err != nil {
		fail(err)
	}
	defer cleanup()

	switch cmd {
	case cli.CmdTUI:
		err = runTUI(app, args)
	case cli.CmdChat:
		err = cli.RunChat(app, args.WebSearch)
	case cli.CmdAsk:
		err = cli.RunAsk(app, args.Query, args.WebSearch)
	case cli.CmdView:
		err = cli.RunView(app, args.Token)
	case cli.CmdExport:
		err = cli.RunExport(app, args.File)
	case cli.CmdServe:
		err = runServe(app, args)
	}
	if err != nil {
		cleanup()
		fail(err)
	}
}

// buildApp wires config, logging, store, sync engine, gateways, pipeline,
// and share manager. The returned cleanup flushes pending remote writes.
func buildApp(args cli.Args) (*cli.App, func(), error) {
	if err := config.EnsureDir(); err != nil {
		return nil, nil, fmt.Errorf("create config dir: %w", err)
	}

	cfgPath := args.ConfigPath
	if cfgPath == "" {
		var err error
		cfgPath, err = config.Path()
		if err != nil {
			return nil, nil, fmt.Errorf("resolve config path: %w", err)
		}
	}

	cfg, err := config.LoadFromPath(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logLevel := cfg.Log.Level
	if args.Verbose {
		logLevel = "debug"
	}
	log := logging.Init(cfg.Log.Path, logLevel)

	// First run: mint a user id and persist it.
	if cfg.UserID == "" {
		cfg.UserID = uuid.NewString()
		if err := cfg.SaveTo(cfgPath); err != nil {
			log.Warn().Err(err).Msg("could not persist generated user id")
		}
	}

	if err := cli.UnlockSecrets(cfg, cfgPath); err != nil {
		return nil, nil, err
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	local, err := localstate.Open(localstate.DefaultPath())
	if err != nil {
		log.Warn().Err(err).Msg("local state unavailable, starting clean")
	}

	engine := syncengine.NewEngine(st, cfg.UserID)
	if local != nil {
		engine.SetActiveConversationID(local.ActiveConversation())
	}

	gen := gemini.NewClient(&gemini.ClientConfig{
		APIKey:            cfg.Gemini.APIKey,
		Model:             cfg.Gemini.Model,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
	})

	var searcher gateway.Searcher
	if cfg.Search.APIKey != "" {
		searcher = serper.NewClient(&serper.ClientConfig{APIKey: cfg.Search.APIKey})
	}

	pipe := pipeline.New(engine, gen, searcher, cfg.UserID)
	shares := share.NewManager(st, engine, cfg.UserID)

	app := &cli.App{
		Cfg:    cfg,
		Engine: engine,
		Pipe:   pipe,
		Shares: shares,
		Local:  local,
	}
	cleanup := func() {
		pipe.Wait()
		engine.Flush()
		engine.Close()
		if closeStore != nil {
			closeStore()
		}
	}
	return app, cleanup, nil
}

// openStore selects the configured storage backend.
func openStore(cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case "supabase":
		return supabase.New(supabase.Config{
			URL:    cfg.Store.SupabaseURL,
			APIKey: cfg.Store.SupabaseKey,
		}), nil, nil
	case "memory":
		return store.NewMemory(), nil, nil
	default: // "sqlite"
		path := cfg.Store.SQLitePath
		if path == "" {
			path = sqlite.DefaultPath()
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, func() { db.Close() }, nil
	}
}

// runServe exposes shared conversations over HTTP until interrupted.
func runServe(app *cli.App, args cli.Args) error {
	srv := server.New(app.Shares, server.Config{Port: args.Port})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// runTUI starts the Bubble Tea program and a config watcher that applies
// safe changes (log level) while it runs.
func runTUI(app *cli.App, args cli.Args) error {
	theme := styles.NewTheme()
	m := chat.New(chat.Options{
		Theme:          theme,
		Engine:         app.Engine,
		Pipeline:       app.Pipe,
		Shares:         app.Shares,
		LocalState:     app.Local,
		RevealInterval: app.Cfg.RevealInterval(),
	})

	cfgPath := args.ConfigPath
	if cfgPath == "" {
		if p, err := config.Path(); err == nil {
			cfgPath = p
		}
	}
	if cfgPath != "" {
		if watcher, err := config.NewWatcher(cfgPath, func(next *config.Config) {
			logging.Init(next.Log.Path, next.Log.Level)
		}); err == nil {
			if err := watcher.Watch(); err == nil {
				defer watcher.Close()
			}
		}
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
