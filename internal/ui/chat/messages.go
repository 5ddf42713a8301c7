// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
package chat

import (
	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/pipeline"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// DataLoadedMsg reports the result of the initial remote fetch.
type DataLoadedMsg struct {
	Err error
}

// TurnDoneMsg reports the outcome of one pipeline turn.
type TurnDoneMsg struct {
	Turn *pipeline.Turn
	Err  error
}

// ConversationOpenedMsg reports that messages for a conversation were
// fetched and arranged.
type ConversationOpenedMsg struct {
	ConversationID int64
	Err            error
}

// ShareIssuedMsg reports the result of issuing a shared link.
type ShareIssuedMsg struct {
	Link *model.SharedLink
	Err  error
}

// StatusMsg sets a transient status line message.
type StatusMsg struct {
	Text string
}
