// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package share issues, validates, and revokes shareable conversation
// tokens.
//
// A token is a 4-character alphanumeric capability: anyone holding it can
// read the conversation's messages through the public read path, with no
// other authentication. Revocation deletes the row; there is no expiry.
package share

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/rs/zerolog"

	"github.com/talkerhq/talker-tui/internal/logging"
	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/store"
	"github.com/talkerhq/talker-tui/internal/sync"
)

// tokenAlphabet is the character set tokens are drawn from.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// tokenLength is the fixed token size.
const tokenLength = 4

// ErrLinkNotFound is returned for unknown tokens and for tokens whose
// conversation no longer exists. Callers cannot tell the two apart.
var ErrLinkNotFound = errors.New("shared link not found")

// =============================================================================
// MANAGER
// =============================================================================

// Manager owns the shared-link lifecycle for one user.
type Manager struct {
	store  store.Store
	engine *sync.Engine
	userID string
	log    zerolog.Logger
}

// NewManager creates a shared-link manager.
func NewManager(st store.Store, engine *sync.Engine, userID string) *Manager {
	return &Manager{
		store:  st,
		engine: engine,
		userID: userID,
		log:    logging.For("share"),
	}
}

// Issue creates a shared link for the conversation, or returns the
// existing one: a conversation has at most one live link, and issuing
// twice is a no-op. The link is visible locally before the store insert
// resolves.
func (m *Manager) Issue(conversationID int64) (*model.SharedLink, error) {
	if existing := m.engine.SharedLinkForConversation(conversationID); existing != nil {
		return existing, nil
	}

	conv := m.engine.ConversationByID(conversationID)
	if conv == nil {
		return nil, ErrLinkNotFound
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	link := &model.SharedLink{
		LinkIDToken:    token,
		UserID:         m.userID,
		ConversationID: conversationID,
		ClickableName:  conv.DisplayTitle(),
		SharedDate:     time.Now(),
	}
	m.engine.AddSharedLink(link)

	m.log.Info().Str("token", token).Int64("conversation", conversationID).Msg("shared link issued")
	return link, nil
}

// Validate resolves a token to its link. Unknown tokens and tokens whose
// conversation was deleted out from under them both surface as
// ErrLinkNotFound; the dangling case is logged louder because it means a
// delete left an orphaned row behind.
func (m *Manager) Validate(ctx context.Context, token string) (*model.SharedLink, error) {
	link, err := m.store.FindSharedLinkByToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		m.log.Info().Str("token", token).Msg("shared link token not found")
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}

	if !m.conversationExists(ctx, link) {
		m.log.Warn().Str("token", token).Int64("conversation", link.ConversationID).Msg("shared link points at deleted conversation")
		return nil, ErrLinkNotFound
	}
	return link, nil
}

// MessagesForToken is the public read path: it returns the shared
// conversation's messages in display order, but only after the token
// validates.
func (m *Manager) MessagesForToken(ctx context.Context, token string) ([]*model.Message, error) {
	link, err := m.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	msgs, err := m.store.ListMessagesForConversation(ctx, link.ConversationID)
	if err != nil {
		return nil, err
	}
	return model.ArrangeFetched(msgs), nil
}

// Revoke deletes the link. Revoking an unknown token is a no-op.
func (m *Manager) Revoke(token string) {
	m.engine.RemoveSharedLink(token)
}

// RevokeAll deletes every link the user has issued.
func (m *Manager) RevokeAll() {
	m.engine.RemoveAllSharedLinks()
}

func (m *Manager) conversationExists(ctx context.Context, link *model.SharedLink) bool {
	convs, err := m.store.ListConversationsForUser(ctx, link.UserID)
	if err != nil {
		// Cannot verify; let the link stand rather than lock the
		// holder out on a transient error.
		return true
	}
	for _, c := range convs {
		if c.ConversationID == link.ConversationID {
			return true
		}
	}
	return false
}

// generateToken draws a fixed-length token from the alphanumeric
// alphabet using crypto/rand.
func generateToken() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	out := make([]byte, tokenLength)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tokenAlphabet[n.Int64()]
	}
	return string(out), nil
}
