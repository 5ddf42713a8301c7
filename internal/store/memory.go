// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"sync"

	"github.com/talkerhq/talker-tui/internal/model"
)

// =============================================================================
// IN-MEMORY STORE
// =============================================================================

// Memory is an in-process Store used by tests and by offline mode. Rows do
// not survive the process.
type Memory struct {
	mu            sync.Mutex
	conversations map[int64]*model.Conversation
	messages      map[int64][]*model.Message // keyed by conversation id
	links         map[string]*model.SharedLink

	// FailNext forces the next write to fail with the given error; tests
	// use it to exercise the fire-and-forget policy.
	FailNext error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		conversations: make(map[int64]*model.Conversation),
		messages:      make(map[int64][]*model.Message),
		links:         make(map[string]*model.SharedLink),
	}
}

func (m *Memory) failNextLocked() error {
	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return err
	}
	return nil
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func (m *Memory) InsertConversation(ctx context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextLocked(); err != nil {
		return err
	}
	cp := *conv
	m.conversations[conv.ConversationID] = &cp
	return nil
}

func (m *Memory) UpdateConversationTitle(ctx context.Context, conversationID int64, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextLocked(); err != nil {
		return err
	}
	conv, ok := m.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	conv.Title = title
	return nil
}

func (m *Memory) DeleteConversation(ctx context.Context, conversationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextLocked(); err != nil {
		return err
	}
	delete(m.conversations, conversationID)
	delete(m.messages, conversationID)
	return nil
}

func (m *Memory) DeleteAllConversations(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextLocked(); err != nil {
		return err
	}
	for id, conv := range m.conversations {
		if conv.UserID == userID {
			delete(m.conversations, id)
			delete(m.messages, id)
		}
	}
	return nil
}

func (m *Memory) ListConversationsForUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Conversation
	for _, conv := range m.conversations {
		if conv.UserID == userID {
			cp := *conv
			out = append(out, &cp)
		}
	}
	return out, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

func (m *Memory) InsertMessage(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextLocked(); err != nil {
		return err
	}
	cp := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &cp)
	return nil
}

func (m *Memory) UpdateMessage(ctx context.Context, msg *model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextLocked(); err != nil {
		return err
	}
	for _, stored := range m.messages[msg.ConversationID] {
		if stored.ID == msg.ID {
			stored.Content = msg.Content
			stored.IsNew = msg.IsNew
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) ListMessagesForConversation(ctx context.Context, conversationID int64) ([]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[conversationID]
	out := make([]*model.Message, 0, len(msgs))
	for _, msg := range msgs {
		cp := *msg
		out = append(out, &cp)
	}
	return out, nil
}

// =============================================================================
// SHARED LINKS
// =============================================================================

func (m *Memory) InsertSharedLink(ctx context.Context, link *model.SharedLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextLocked(); err != nil {
		return err
	}
	cp := *link
	m.links[link.LinkIDToken] = &cp
	return nil
}

func (m *Memory) DeleteSharedLink(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextLocked(); err != nil {
		return err
	}
	delete(m.links, token)
	return nil
}

func (m *Memory) DeleteAllSharedLinks(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNextLocked(); err != nil {
		return err
	}
	for token, link := range m.links {
		if link.UserID == userID {
			delete(m.links, token)
		}
	}
	return nil
}

func (m *Memory) ListSharedLinksForUser(ctx context.Context, userID string) ([]*model.SharedLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.SharedLink
	for _, link := range m.links {
		if link.UserID == userID {
			cp := *link
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) FindSharedLinkByToken(ctx context.Context, token string) (*model.SharedLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[token]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *link
	return &cp, nil
}
