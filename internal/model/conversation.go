// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation groups the messages of one chat thread. It is created when a
// user sends their first message with no active conversation; the title is
// derived asynchronously from that first message.
type Conversation struct {
	ConversationID int64     `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewConversation creates a conversation owned by userID.
func NewConversation(userID, title string) *Conversation {
	return &Conversation{
		ConversationID: NewID(),
		UserID:         userID,
		Title:          title,
		CreatedAt:      time.Now().UTC(),
	}
}

// DisplayTitle returns the title or a default for untitled conversations.
func (c *Conversation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New conversation"
}

// FallbackTitle derives a title from the first user message when the title
// generation call fails. Rune-based truncation for Unicode safety.
func FallbackTitle(userText string) string {
	title := strings.ReplaceAll(userText, "\n", " ")
	title = strings.TrimSpace(strings.ReplaceAll(title, "\r", ""))
	runes := []rune(title)
	if len(runes) > 50 {
		title = string(runes[:47]) + "..."
	}
	if title == "" {
		return "New conversation"
	}
	return title
}

// =============================================================================
// TRANSCRIPT EXPORT
// =============================================================================

// ExportMarkdown renders a conversation transcript as Markdown.
func ExportMarkdown(conv *Conversation, msgs []*Message) string {
	var sb strings.Builder
	sb.WriteString("# " + conv.DisplayTitle() + "\n\n")
	sb.WriteString("Created: " + conv.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range msgs {
		sb.WriteString("**" + msg.Sender.DisplayName() + "**:\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// =============================================================================
// TIME GROUPING
// =============================================================================

// Bucket names for conversation grouping. Buckets beyond the last thirty
// days use a calendar month key like "January 2006".
const (
	BucketToday          = "today"
	BucketYesterday      = "yesterday"
	BucketPrevious7Days  = "previous7Days"
	BucketPrevious30Days = "previous30Days"
)

// GroupByTime buckets conversations by creation time relative to the UTC
// day boundary of now. A conversation with a zero creation timestamp is
// dropped from every bucket rather than surfaced as an error.
func GroupByTime(convs []*Conversation, now time.Time) map[string][]*Conversation {
	grouped := map[string][]*Conversation{
		BucketToday:          {},
		BucketYesterday:      {},
		BucketPrevious7Days:  {},
		BucketPrevious30Days: {},
	}

	nowUTC := now.UTC()
	todayStart := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC)

	for _, convo := range convs {
		if convo.CreatedAt.IsZero() {
			continue
		}
		createdAt := convo.CreatedAt.UTC()
		if createdAt.After(nowUTC) {
			// Clock skew: treat future timestamps as today.
			grouped[BucketToday] = append(grouped[BucketToday], convo)
			continue
		}

		daysAgo := int(todayStart.Sub(time.Date(createdAt.Year(), createdAt.Month(), createdAt.Day(), 0, 0, 0, 0, time.UTC)).Hours() / 24)
		switch {
		case daysAgo <= 0:
			grouped[BucketToday] = append(grouped[BucketToday], convo)
		case daysAgo == 1:
			grouped[BucketYesterday] = append(grouped[BucketYesterday], convo)
		case daysAgo < 7:
			grouped[BucketPrevious7Days] = append(grouped[BucketPrevious7Days], convo)
		case daysAgo < 30:
			grouped[BucketPrevious30Days] = append(grouped[BucketPrevious30Days], convo)
		default:
			monthKey := createdAt.Format("January 2006")
			grouped[monthKey] = append(grouped[monthKey], convo)
		}
	}
	return grouped
}
