// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "talker.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteConversationLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	conv := model.NewConversation("user-1", "sqlite chat")
	if err := db.InsertConversation(ctx, conv); err != nil {
		t.Fatalf("InsertConversation: %v", err)
	}

	convs, err := db.ListConversationsForUser(ctx, "user-1")
	if err != nil || len(convs) != 1 {
		t.Fatalf("ListConversationsForUser: %v, n=%d", err, len(convs))
	}
	if convs[0].CreatedAt.IsZero() {
		t.Error("created_at did not round-trip")
	}

	if err := db.UpdateConversationTitle(ctx, conv.ConversationID, "renamed"); err != nil {
		t.Fatalf("UpdateConversationTitle: %v", err)
	}
	if err := db.UpdateConversationTitle(ctx, 12345, "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := db.DeleteConversation(ctx, conv.ConversationID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	convs, _ = db.ListConversationsForUser(ctx, "user-1")
	if len(convs) != 0 {
		t.Errorf("conversation survived delete")
	}
}

func TestSQLiteMessagesOrderedByCreation(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	base := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	for i, content := range []string{"first", "second", "third"} {
		msg := &model.Message{
			ID:             model.NewID(),
			ConversationID: 9,
			Sender:         model.SenderUser,
			Content:        content,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		if err := db.InsertMessage(ctx, msg); err != nil {
			t.Fatalf("InsertMessage: %v", err)
		}
	}

	msgs, err := db.ListMessagesForConversation(ctx, 9)
	if err != nil || len(msgs) != 3 {
		t.Fatalf("ListMessagesForConversation: %v, n=%d", err, len(msgs))
	}
	if msgs[0].Content != "first" || msgs[2].Content != "third" {
		t.Errorf("rows out of order: %v", []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})
	}
}

func TestSQLiteSharedLinks(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	link := &model.SharedLink{
		LinkIDToken:    "Zz9a",
		UserID:         "user-1",
		ConversationID: 9,
		ClickableName:  "sqlite chat",
		SharedDate:     time.Now().UTC(),
	}
	if err := db.InsertSharedLink(ctx, link); err != nil {
		t.Fatalf("InsertSharedLink: %v", err)
	}

	found, err := db.FindSharedLinkByToken(ctx, "Zz9a")
	if err != nil || found.ClickableName != "sqlite chat" {
		t.Fatalf("FindSharedLinkByToken: %v, %+v", err, found)
	}

	if _, err := db.FindSharedLinkByToken(ctx, "aaaa"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Deleting an unknown token is a no-op, not an error.
	if err := db.DeleteSharedLink(ctx, "aaaa"); err != nil {
		t.Errorf("DeleteSharedLink unknown token: %v", err)
	}
}
