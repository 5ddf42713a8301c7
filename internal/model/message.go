// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages
// and shared links, together with their identity and ordering rules.
package model

import (
	"math/rand"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderAssistant:
		return "TalKer"
	default:
		return string(s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
//
// Messages are append-only: after creation the only permitted in-place
// edits are the one-time content fill of an assistant placeholder and the
// one-way IsNew true->false transition that ends its streaming reveal.
type Message struct {
	// Identity
	ID             int64     `json:"message_id"`
	ConversationID int64     `json:"conversation_id"`
	Sender         Sender    `json:"sender"`
	CreatedAt      time.Time `json:"created_at"`

	// Content
	Content string `json:"content"`

	// IsNew is true only for an assistant message that has not yet
	// completed its character-by-character reveal. Write-once-false.
	IsNew bool `json:"is_new"`
}

// NewUserMessage creates a user message with a generated ID.
func NewUserMessage(conversationID int64, content string) *Message {
	return &Message{
		ID:             NewID(),
		ConversationID: conversationID,
		Sender:         SenderUser,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
}

// NewPlaceholderMessage creates the empty assistant message that is
// appended immediately after a user message, before any network call.
// Its content is filled in place once generation resolves.
func NewPlaceholderMessage(conversationID int64) *Message {
	return &Message{
		ID:             NewID(),
		ConversationID: conversationID,
		Sender:         SenderAssistant,
		Content:        "",
		IsNew:          true,
		CreatedAt:      time.Now().UTC(),
	}
}

// IsPlaceholder returns true while the assistant content has not landed.
func (m *Message) IsPlaceholder() bool {
	return m.Sender == SenderAssistant && m.Content == ""
}

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := strings.ReplaceAll(m.Content, "\n", " ")
	content = strings.ReplaceAll(content, "\r", "")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// IDENTITY
// =============================================================================

// NewID generates a 64-bit identifier by concatenating the current Unix
// millisecond timestamp with a 4-digit random suffix. IDs are monotonically
// increasing with high probability without a central sequence; two IDs
// generated within the same millisecond collide with probability ~1/9000,
// which is accepted.
func NewID() int64 {
	suffix := int64(1000 + rand.Intn(9000))
	return time.Now().UnixMilli()*10_000 + suffix
}

// IDTime extracts the creation timestamp embedded in an identifier.
func IDTime(id int64) time.Time {
	return time.UnixMilli(id / 10_000).UTC()
}

// =============================================================================
// FETCH ORDERING
// =============================================================================

// ArrangeFetched reorders a fetched message set deterministically: sort
// ascending by creation timestamp, then interleave by strictly alternating
// between the user-sent and assistant-sent subsequences (earliest remaining
// user message first, then earliest remaining assistant message, repeating).
//
// This assumes conversations strictly alternate sender turns. A conversation
// holding two consecutive same-sender messages (for example after a partial
// failure) has its chronological order silently altered by this step; that
// behavior is preserved on purpose and is covered by tests. Applying
// ArrangeFetched to its own output reproduces the same sequence.
func ArrangeFetched(msgs []*Message) []*Message {
	sorted := make([]*Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var userMsgs, assistantMsgs []*Message
	for _, m := range sorted {
		if m.Sender == SenderUser {
			userMsgs = append(userMsgs, m)
		} else {
			assistantMsgs = append(assistantMsgs, m)
		}
	}

	arranged := make([]*Message, 0, len(sorted))
	for len(userMsgs) > 0 || len(assistantMsgs) > 0 {
		if len(userMsgs) > 0 {
			arranged = append(arranged, userMsgs[0])
			userMsgs = userMsgs[1:]
		}
		if len(assistantMsgs) > 0 {
			arranged = append(arranged, assistantMsgs[0])
			assistantMsgs = assistantMsgs[1:]
		}
	}
	return arranged
}
