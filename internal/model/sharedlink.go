// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "time"

// =============================================================================
// SHARED LINK TYPE
// =============================================================================

// SharedLink grants unauthenticated read access to one conversation via a
// short opaque token. At most one live link exists per conversation;
// issuing a second returns the existing one.
type SharedLink struct {
	// LinkIDToken is the 4-character base62 share token.
	LinkIDToken    string    `json:"link_id_token"`
	UserID         string    `json:"user_id"`
	ConversationID int64     `json:"conversation_id"`
	// ClickableName snapshots the conversation title at share time; later
	// renames do not propagate to the link.
	ClickableName string    `json:"clickable_name"`
	SharedDate    time.Time `json:"shared_date"`
}

// DisplayDate formats the share date for listing, e.g. "January 02, 2006".
func (l *SharedLink) DisplayDate() string {
	return l.SharedDate.Format("January 02, 2006")
}
