// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sqlite implements the durable store on a local SQLite database
// for single-user offline use. The schema mirrors the Supabase tables so a
// later sync against the remote store stays row-compatible.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	conversation_id INTEGER PRIMARY KEY,
	user_id         TEXT NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	message_id      INTEGER PRIMARY KEY,
	conversation_id INTEGER NOT NULL,
	sender          TEXT NOT NULL,
	content         TEXT NOT NULL DEFAULT '',
	is_new          INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
CREATE TABLE IF NOT EXISTS shared_links (
	link_id_token   TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	conversation_id INTEGER NOT NULL,
	clickable_name  TEXT NOT NULL DEFAULT '',
	shared_date     TEXT NOT NULL
);
`

// =============================================================================
// SQLITE STORE
// =============================================================================

// DB is a Store backed by a local SQLite file.
type DB struct {
	db *sql.DB
}

// DefaultPath returns the default database location (~/.talker/talker.db).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "talker.db")
	}
	return filepath.Join(home, ".talker", "talker.db")
}

// Open opens (and if needed creates) the database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY under the dispatch worker.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the underlying database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// Malformed timestamps surface as zero times and are dropped
		// from derived views rather than erroring.
		return time.Time{}
	}
	return t
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func (d *DB) InsertConversation(ctx context.Context, conv *model.Conversation) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, user_id, title, created_at) VALUES (?, ?, ?, ?)`,
		conv.ConversationID, conv.UserID, conv.Title, fmtTime(conv.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (d *DB) UpdateConversationTitle(ctx context.Context, conversationID int64, title string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE conversations SET title = ? WHERE conversation_id = ?`, title, conversationID)
	if err != nil {
		return fmt.Errorf("update conversation title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) DeleteConversation(ctx context.Context, conversationID int64) error {
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("delete conversation messages: %w", err)
	}
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (d *DB) DeleteAllConversations(ctx context.Context, userID string) error {
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM messages WHERE conversation_id IN
		   (SELECT conversation_id FROM conversations WHERE user_id = ?)`, userID); err != nil {
		return fmt.Errorf("delete all messages: %w", err)
	}
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete all conversations: %w", err)
	}
	return nil
}

func (d *DB) ListConversationsForUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT conversation_id, user_id, title, created_at
		   FROM conversations WHERE user_id = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []*model.Conversation
	for rows.Next() {
		var conv model.Conversation
		var createdAt string
		if err := rows.Scan(&conv.ConversationID, &conv.UserID, &conv.Title, &createdAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conv.CreatedAt = parseTime(createdAt)
		convs = append(convs, &conv)
	}
	return convs, rows.Err()
}

// =============================================================================
// MESSAGES
// =============================================================================

func (d *DB) InsertMessage(ctx context.Context, msg *model.Message) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, sender, content, is_new, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.ConversationID, string(msg.Sender), msg.Content, msg.IsNew, fmtTime(msg.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (d *DB) UpdateMessage(ctx context.Context, msg *model.Message) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE messages SET content = ?, is_new = ? WHERE message_id = ?`,
		msg.Content, msg.IsNew, msg.ID)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) ListMessagesForConversation(ctx context.Context, conversationID int64) ([]*model.Message, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, sender, content, is_new, created_at
		   FROM messages WHERE conversation_id = ? ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*model.Message
	for rows.Next() {
		var msg model.Message
		var sender, createdAt string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &sender, &msg.Content, &msg.IsNew, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Sender = model.Sender(sender)
		msg.CreatedAt = parseTime(createdAt)
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

// =============================================================================
// SHARED LINKS
// =============================================================================

func (d *DB) InsertSharedLink(ctx context.Context, link *model.SharedLink) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO shared_links (link_id_token, user_id, conversation_id, clickable_name, shared_date)
		 VALUES (?, ?, ?, ?, ?)`,
		link.LinkIDToken, link.UserID, link.ConversationID, link.ClickableName, fmtTime(link.SharedDate))
	if err != nil {
		return fmt.Errorf("insert shared link: %w", err)
	}
	return nil
}

func (d *DB) DeleteSharedLink(ctx context.Context, token string) error {
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM shared_links WHERE link_id_token = ?`, token); err != nil {
		return fmt.Errorf("delete shared link: %w", err)
	}
	return nil
}

func (d *DB) DeleteAllSharedLinks(ctx context.Context, userID string) error {
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM shared_links WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete all shared links: %w", err)
	}
	return nil
}

func (d *DB) ListSharedLinksForUser(ctx context.Context, userID string) ([]*model.SharedLink, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT link_id_token, user_id, conversation_id, clickable_name, shared_date
		   FROM shared_links WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared links: %w", err)
	}
	defer rows.Close()

	var links []*model.SharedLink
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

func (d *DB) FindSharedLinkByToken(ctx context.Context, token string) (*model.SharedLink, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT link_id_token, user_id, conversation_id, clickable_name, shared_date
		   FROM shared_links WHERE link_id_token = ?`, token)

	var link model.SharedLink
	var sharedDate string
	err := row.Scan(&link.LinkIDToken, &link.UserID, &link.ConversationID, &link.ClickableName, &sharedDate)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find shared link: %w", err)
	}
	link.SharedDate = parseTime(sharedDate)
	return &link, nil
}

func scanLink(rows *sql.Rows) (*model.SharedLink, error) {
	var link model.SharedLink
	var sharedDate string
	if err := rows.Scan(&link.LinkIDToken, &link.UserID, &link.ConversationID, &link.ClickableName, &sharedDate); err != nil {
		return nil, fmt.Errorf("scan shared link: %w", err)
	}
	link.SharedDate = parseTime(sharedDate)
	return &link, nil
}

// Ensure interface compliance.
var _ store.Store = (*DB)(nil)
