// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/talkerhq/talker-tui/internal/config"
	"github.com/talkerhq/talker-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Teal).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Violet).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// replInput wraps liner with persistent history.
type replInput struct {
	line        *liner.State
	historyFile string
}

func newReplInput() *replInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &replInput{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}

	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (in *replInput) Read(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

func (in *replInput) Close() {
	if err := config.EnsureDir(); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	in.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

const replHelp = `Commands:
  /new            Start a new conversation
  /list           List conversations
  /open N         Open conversation number N from /list
  /share          Create or show the shared link for this conversation
  /web            Toggle web-search-augmented answers
  /export [FILE]  Export this conversation as Markdown
  /delete         Delete the current conversation
  /help           Show this help
  /quit           Exit`

// RunChat runs the interactive terminal chat loop.
func RunChat(app *App, webSearch bool) error {
	in := newReplInput()
	defer in.Close()

	fmt.Println(welcomeStyle.Render("talker chat"))
	fmt.Println(infoStyle.Render("Type a message, /help for commands, /quit to exit."))
	fmt.Println()

	for {
		input, err := in.Read(promptStyle.Render("> "))
		if err != nil {
			// Ctrl+C aborts the line, Ctrl+D ends the session.
			if err == liner.ErrPromptAborted {
				continue
			}
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, toggled := handleReplCommand(app, input, webSearch)
			if quit {
				break
			}
			webSearch = toggled
			continue
		}

		turn, err := app.Pipe.Send(context.Background(), input, webSearch)
		if err != nil {
			fmt.Println(errorStyle.Render("error: " + err.Error()))
			continue
		}
		app.Pipe.CompleteReveal(turn.ConversationID, turn.Assistant.ID)
		displayResponse(turn.Assistant.Content)
	}

	app.Pipe.Wait()
	return nil
}

// handleReplCommand executes a slash command. Returns (quit, webSearch).
func handleReplCommand(app *App, input string, webSearch bool) (bool, bool) {
	parts := strings.Fields(input)
	cmd := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	args := parts[1:]

	switch cmd {
	case "quit", "q", "exit":
		return true, webSearch

	case "help", "h", "?":
		fmt.Println(replHelp)

	case "new", "n":
		app.Engine.SetActiveConversationID(0)
		if app.Local != nil {
			app.Local.SetActiveConversation(0)
		}
		fmt.Println(infoStyle.Render("Started a new conversation."))

	case "list", "ls":
		printConversationList(app)

	case "open", "o":
		if len(args) == 0 {
			fmt.Println(errorStyle.Render("usage: /open N"))
			break
		}
		openConversation(app, args[0])

	case "web", "w":
		webSearch = !webSearch
		if webSearch {
			fmt.Println(infoStyle.Render("Web search enabled."))
		} else {
			fmt.Println(infoStyle.Render("Web search disabled."))
		}

	case "share", "s":
		id := app.Engine.ActiveConversationID()
		if id == 0 {
			fmt.Println(errorStyle.Render("Nothing to share yet."))
			break
		}
		link, err := app.Shares.Issue(id)
		if err != nil {
			fmt.Println(errorStyle.Render("share failed: " + err.Error()))
			break
		}
		fmt.Println(infoStyle.Render("Share token: ") + link.LinkIDToken)

	case "export", "e":
		file := ""
		if len(args) > 0 {
			file = args[0]
		}
		if err := RunExport(app, file); err != nil {
			fmt.Println(errorStyle.Render("export failed: " + err.Error()))
		}

	case "delete", "rm":
		id := app.Engine.ActiveConversationID()
		if id == 0 {
			fmt.Println(errorStyle.Render("No active conversation."))
			break
		}
		app.Engine.DeleteConversation(id)
		if app.Local != nil {
			app.Local.SetActiveConversation(0)
		}
		fmt.Println(infoStyle.Render("Conversation deleted."))

	default:
		fmt.Println(errorStyle.Render("Unknown command, /help for a list."))
	}
	return false, webSearch
}

// printConversationList shows conversations numbered for /open.
func printConversationList(app *App) {
	convs := app.Engine.Conversations()
	if len(convs) == 0 {
		fmt.Println(infoStyle.Render("No conversations yet."))
		return
	}

	activeID := app.Engine.ActiveConversationID()
	for i, conv := range convs {
		marker := "  "
		if conv.ConversationID == activeID {
			marker = "* "
		}
		fmt.Printf("%s%2d. %s\n", marker, i+1, conv.DisplayTitle())
	}
}

// openConversation switches to conversation number n from the list.
func openConversation(app *App, arg string) {
	n, err := strconv.Atoi(arg)
	convs := app.Engine.Conversations()
	if err != nil || n < 1 || n > len(convs) {
		fmt.Println(errorStyle.Render("No such conversation."))
		return
	}

	conv := convs[n-1]
	app.Engine.SetActiveConversationID(conv.ConversationID)
	if app.Local != nil {
		app.Local.SetActiveConversation(conv.ConversationID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	msgs, err := app.Engine.LoadMessages(ctx, conv.ConversationID)
	if err != nil {
		fmt.Println(errorStyle.Render("fetch failed: " + err.Error()))
		return
	}

	fmt.Println(welcomeStyle.Render(conv.DisplayTitle()))
	for _, msg := range msgs {
		fmt.Printf("%s:\n", msg.Sender.DisplayName())
		displayResponse(msg.Content)
		fmt.Println()
	}
}
