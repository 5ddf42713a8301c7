// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/talkerhq/talker-tui/internal/model"
)

func TestMemoryConversationRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	conv := model.NewConversation("user-1", "first chat")
	if err := m.InsertConversation(ctx, conv); err != nil {
		t.Fatalf("InsertConversation: %v", err)
	}

	convs, err := m.ListConversationsForUser(ctx, "user-1")
	if err != nil || len(convs) != 1 {
		t.Fatalf("ListConversationsForUser: %v, n=%d", err, len(convs))
	}
	if convs[0].Title != "first chat" {
		t.Errorf("title: %q", convs[0].Title)
	}

	if err := m.UpdateConversationTitle(ctx, conv.ConversationID, "renamed"); err != nil {
		t.Fatalf("UpdateConversationTitle: %v", err)
	}
	convs, _ = m.ListConversationsForUser(ctx, "user-1")
	if convs[0].Title != "renamed" {
		t.Errorf("rename did not stick: %q", convs[0].Title)
	}

	if err := m.UpdateConversationTitle(ctx, 999, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown conversation, got %v", err)
	}
}

func TestMemoryMessageUpdateClearsIsNew(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	msg := model.NewPlaceholderMessage(7)
	if err := m.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}

	msg.Content = "answer"
	msg.IsNew = false
	if err := m.UpdateMessage(ctx, msg); err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}

	msgs, _ := m.ListMessagesForConversation(ctx, 7)
	if len(msgs) != 1 || msgs[0].Content != "answer" || msgs[0].IsNew {
		t.Errorf("unexpected stored message: %+v", msgs[0])
	}
}

func TestMemorySharedLinkLookup(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	link := &model.SharedLink{LinkIDToken: "aB3x", UserID: "user-1", ConversationID: 7}
	if err := m.InsertSharedLink(ctx, link); err != nil {
		t.Fatalf("InsertSharedLink: %v", err)
	}

	found, err := m.FindSharedLinkByToken(ctx, "aB3x")
	if err != nil || found.ConversationID != 7 {
		t.Fatalf("FindSharedLinkByToken: %v, %+v", err, found)
	}

	if _, err := m.FindSharedLinkByToken(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := m.DeleteAllSharedLinks(ctx, "user-1"); err != nil {
		t.Fatalf("DeleteAllSharedLinks: %v", err)
	}
	if _, err := m.FindSharedLinkByToken(ctx, "aB3x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("link survived bulk delete: %v", err)
	}
}

func TestMemoryFailNext(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("boom")
	m.FailNext = boom

	if err := m.InsertMessage(ctx, model.NewUserMessage(1, "hi")); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	// Failure is one-shot.
	if err := m.InsertMessage(ctx, model.NewUserMessage(1, "hi")); err != nil {
		t.Fatalf("second insert should succeed: %v", err)
	}
}
