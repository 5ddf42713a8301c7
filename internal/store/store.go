// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store defines the durable-store interface the sync engine writes
// through, plus the sentinel errors shared by its implementations.
//
// Every call is an independent request/response with no transactional
// composition: callers own ordering and must tolerate partial failure.
package store

import (
	"context"

	"github.com/talkerhq/talker-tui/internal/model"
)

// Store is the remote persistence adapter consumed by the synchronizer.
//
// The local model is a denormalized, eventually consistent mirror of these
// rows: it may run ahead of the store (optimistic writes not yet confirmed)
// or behind it (rows not yet fetched).
type Store interface {
	// Conversations
	InsertConversation(ctx context.Context, conv *model.Conversation) error
	UpdateConversationTitle(ctx context.Context, conversationID int64, title string) error
	DeleteConversation(ctx context.Context, conversationID int64) error
	DeleteAllConversations(ctx context.Context, userID string) error
	ListConversationsForUser(ctx context.Context, userID string) ([]*model.Conversation, error)

	// Messages
	InsertMessage(ctx context.Context, msg *model.Message) error
	UpdateMessage(ctx context.Context, msg *model.Message) error
	ListMessagesForConversation(ctx context.Context, conversationID int64) ([]*model.Message, error)

	// Shared links
	InsertSharedLink(ctx context.Context, link *model.SharedLink) error
	DeleteSharedLink(ctx context.Context, token string) error
	DeleteAllSharedLinks(ctx context.Context, userID string) error
	ListSharedLinksForUser(ctx context.Context, userID string) ([]*model.SharedLink, error)
	FindSharedLinkByToken(ctx context.Context, token string) (*model.SharedLink, error)
}

// =============================================================================
// ERRORS
// =============================================================================

// StoreError is a store-level error comparable with errors.Is.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = &StoreError{Message: "record not found"}
