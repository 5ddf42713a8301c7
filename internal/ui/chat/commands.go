// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/talkerhq/talker-tui/internal/pipeline"
	"github.com/talkerhq/talker-tui/internal/share"
	"github.com/talkerhq/talker-tui/internal/sync"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

const loadTimeout = 30 * time.Second

// LoadDataCmd fetches conversations and shared links from the store and,
// when a conversation is active, its messages.
func LoadDataCmd(engine *sync.Engine) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		if err := engine.LoadConversations(ctx); err != nil {
			return DataLoadedMsg{Err: err}
		}
		if err := engine.LoadSharedLinks(ctx); err != nil {
			return DataLoadedMsg{Err: err}
		}
		if id := engine.ActiveConversationID(); id != 0 {
			if _, err := engine.LoadMessages(ctx, id); err != nil {
				return DataLoadedMsg{Err: err}
			}
		}
		return DataLoadedMsg{}
	}
}

// SendTurnCmd runs one pipeline turn. The user message and placeholder
// appear in the engine before the generation round-trip resolves, so the
// view picks them up on the next spinner tick.
func SendTurnCmd(pipe *pipeline.Pipeline, userText string, webSearch bool) tea.Cmd {
	return func() tea.Msg {
		turn, err := pipe.Send(context.Background(), userText, webSearch)
		return TurnDoneMsg{Turn: turn, Err: err}
	}
}

// OpenConversationCmd fetches and arranges messages for a conversation.
func OpenConversationCmd(engine *sync.Engine, conversationID int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		_, err := engine.LoadMessages(ctx, conversationID)
		return ConversationOpenedMsg{ConversationID: conversationID, Err: err}
	}
}

// IssueShareCmd issues (or returns the existing) shared link for a
// conversation.
func IssueShareCmd(shares *share.Manager, conversationID int64) tea.Cmd {
	return func() tea.Msg {
		link, err := shares.Issue(conversationID)
		return ShareIssuedMsg{Link: link, Err: err}
	}
}
