// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/talkerhq/talker-tui/internal/config"
	"github.com/talkerhq/talker-tui/internal/localstate"
	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/pipeline"
	"github.com/talkerhq/talker-tui/internal/share"
	"github.com/talkerhq/talker-tui/internal/sync"
)

// App bundles the wired services the headless commands run against.
type App struct {
	Cfg    *config.Config
	Engine *sync.Engine
	Pipe   *pipeline.Pipeline
	Shares *share.Manager
	Local  *localstate.Store
}

// =============================================================================
// ASK
// =============================================================================

// RunAsk runs a single turn and prints the answer.
func RunAsk(app *App, query string, webSearch bool) error {
	query = strings.TrimSpace(query)
	if query == "" {
		return fmt.Errorf("ask requires a question")
	}

	turn, err := app.Pipe.Send(context.Background(), query, webSearch)
	if err != nil {
		return err
	}
	// No reveal in headless mode; mark the response seen right away.
	app.Pipe.CompleteReveal(turn.ConversationID, turn.Assistant.ID)

	displayResponse(turn.Assistant.Content)
	app.Pipe.Wait()
	return nil
}

// =============================================================================
// VIEW SHARED CONVERSATION
// =============================================================================

// RunView resolves a shared link token and prints the conversation.
func RunView(app *App, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("view requires a share token")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	link, err := app.Shares.Validate(ctx, token)
	if err != nil {
		return err
	}
	msgs, err := app.Shares.MessagesForToken(ctx, token)
	if err != nil {
		return err
	}

	fmt.Printf("%s (shared %s)\n\n", link.ClickableName, link.DisplayDate())
	for _, msg := range msgs {
		fmt.Printf("%s:\n", msg.Sender.DisplayName())
		displayResponse(msg.Content)
		fmt.Println()
	}
	return nil
}

// =============================================================================
// EXPORT
// =============================================================================

// RunExport writes the active conversation as Markdown to the given file,
// or to stdout when file is empty.
func RunExport(app *App, file string) error {
	id := app.Engine.ActiveConversationID()
	if id == 0 {
		return fmt.Errorf("no active conversation to export")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := app.Engine.LoadMessages(ctx, id); err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}

	conv := app.Engine.ConversationByID(id)
	md := model.ExportMarkdown(conv, app.Engine.Messages(id))

	if file == "" {
		fmt.Print(md)
		return nil
	}
	if err := os.WriteFile(file, []byte(md), 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("Exported to %s\n", file)
	return nil
}
