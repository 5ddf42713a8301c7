// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package supabase implements the durable store against a Supabase
// (PostgREST-style) REST endpoint. Tables: conversations, messages,
// shared_links. Each call is one HTTP round trip; there is no transactional
// composition across calls.
package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/talkerhq/talker-tui/internal/logging"
	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/store"
)

// =============================================================================
// CLIENT
// =============================================================================

// Config holds the connection settings for a Supabase project.
type Config struct {
	// URL is the project base URL, e.g. https://xyz.supabase.co
	URL string
	// APIKey is the anon or service key sent as apikey + bearer token.
	APIKey string
	// Timeout for each round trip (default: 15s).
	Timeout time.Duration
}

// Client is a Store backed by the Supabase REST API.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

// New creates a Supabase-backed store.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http: resty.New().
			SetBaseURL(cfg.URL+"/rest/v1").
			SetHeader("Content-Type", "application/json").
			SetHeader("apikey", cfg.APIKey).
			SetHeader("Authorization", "Bearer "+cfg.APIKey).
			SetTimeout(timeout),
		log: logging.For("supabase"),
	}
}

// restErr converts a non-2xx response into an error, mapping 404/empty
// lookups to store.ErrNotFound where that is meaningful.
func restErr(op string, resp *resty.Response) error {
	if resp.StatusCode() == http.StatusNotFound {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: supabase returned %s: %s", op, resp.Status(), resp.String())
}

func eq(v int64) string {
	return "eq." + strconv.FormatInt(v, 10)
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

func (c *Client) InsertConversation(ctx context.Context, conv *model.Conversation) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody([]*model.Conversation{conv}).
		Post("/conversations")
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	if resp.IsError() {
		return restErr("insert conversation", resp)
	}
	return nil
}

func (c *Client) UpdateConversationTitle(ctx context.Context, conversationID int64, title string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("conversation_id", eq(conversationID)).
		SetBody(map[string]string{"title": title}).
		Patch("/conversations")
	if err != nil {
		return fmt.Errorf("update conversation title: %w", err)
	}
	if resp.IsError() {
		return restErr("update conversation title", resp)
	}
	return nil
}

func (c *Client) DeleteConversation(ctx context.Context, conversationID int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("conversation_id", eq(conversationID)).
		Delete("/conversations")
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	if resp.IsError() {
		return restErr("delete conversation", resp)
	}
	// Messages cascade server-side; issue the delete anyway in case the
	// schema was provisioned without the foreign key.
	if _, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("conversation_id", eq(conversationID)).
		Delete("/messages"); err != nil {
		c.log.Warn().Err(err).Int64("conversation_id", conversationID).
			Msg("message cleanup after conversation delete failed")
	}
	return nil
}

func (c *Client) DeleteAllConversations(ctx context.Context, userID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", "eq."+userID).
		Delete("/conversations")
	if err != nil {
		return fmt.Errorf("delete all conversations: %w", err)
	}
	if resp.IsError() {
		return restErr("delete all conversations", resp)
	}
	return nil
}

func (c *Client) ListConversationsForUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	var convs []*model.Conversation
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", "eq."+userID).
		SetQueryParam("order", "created_at.asc").
		SetResult(&convs).
		Get("/conversations")
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if resp.IsError() {
		return nil, restErr("list conversations", resp)
	}
	return convs, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

func (c *Client) InsertMessage(ctx context.Context, msg *model.Message) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody([]*model.Message{msg}).
		Post("/messages")
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	if resp.IsError() {
		return restErr("insert message", resp)
	}
	return nil
}

func (c *Client) UpdateMessage(ctx context.Context, msg *model.Message) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("message_id", eq(msg.ID)).
		SetBody(map[string]any{"content": msg.Content, "is_new": msg.IsNew}).
		Patch("/messages")
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if resp.IsError() {
		return restErr("update message", resp)
	}
	return nil
}

func (c *Client) ListMessagesForConversation(ctx context.Context, conversationID int64) ([]*model.Message, error) {
	var msgs []*model.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("conversation_id", eq(conversationID)).
		SetQueryParam("order", "created_at.asc").
		SetResult(&msgs).
		Get("/messages")
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if resp.IsError() {
		return nil, restErr("list messages", resp)
	}
	return msgs, nil
}

// =============================================================================
// SHARED LINKS
// =============================================================================

func (c *Client) InsertSharedLink(ctx context.Context, link *model.SharedLink) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody([]*model.SharedLink{link}).
		Post("/shared_links")
	if err != nil {
		return fmt.Errorf("insert shared link: %w", err)
	}
	if resp.IsError() {
		return restErr("insert shared link", resp)
	}
	return nil
}

func (c *Client) DeleteSharedLink(ctx context.Context, token string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("link_id_token", "eq."+token).
		Delete("/shared_links")
	if err != nil {
		return fmt.Errorf("delete shared link: %w", err)
	}
	if resp.IsError() {
		return restErr("delete shared link", resp)
	}
	return nil
}

func (c *Client) DeleteAllSharedLinks(ctx context.Context, userID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", "eq."+userID).
		Delete("/shared_links")
	if err != nil {
		return fmt.Errorf("delete all shared links: %w", err)
	}
	if resp.IsError() {
		return restErr("delete all shared links", resp)
	}
	return nil
}

func (c *Client) ListSharedLinksForUser(ctx context.Context, userID string) ([]*model.SharedLink, error) {
	var links []*model.SharedLink
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", "eq."+userID).
		SetResult(&links).
		Get("/shared_links")
	if err != nil {
		return nil, fmt.Errorf("list shared links: %w", err)
	}
	if resp.IsError() {
		return nil, restErr("list shared links", resp)
	}
	return links, nil
}

func (c *Client) FindSharedLinkByToken(ctx context.Context, token string) (*model.SharedLink, error) {
	var links []*model.SharedLink
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("link_id_token", "eq."+token).
		SetResult(&links).
		Get("/shared_links")
	if err != nil {
		return nil, fmt.Errorf("find shared link: %w", err)
	}
	if resp.IsError() {
		return nil, restErr("find shared link", resp)
	}
	if len(links) == 0 {
		return nil, store.ErrNotFound
	}
	return links[0], nil
}

// Ensure interface compliance.
var _ store.Store = (*Client)(nil)
