// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package localstate persists the small client-local state that survives
// restarts: the active-conversation pointer and the first-run marker.
//
// The pointer is intentionally cleared on the first-ever run so a fresh
// session never auto-resumes a stale conversation.
package localstate

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/talkerhq/talker-tui/internal/util"
)

// =============================================================================
// STATE FILE
// =============================================================================

type state struct {
	// ActiveConversationID is 0 when no conversation is active.
	ActiveConversationID int64 `json:"active_conversation_id"`
	// SetupComplete marks that first-run setup finished.
	SetupComplete bool `json:"setup_complete"`
	// Seen marks that the client has run at least once.
	Seen bool `json:"seen"`
}

// Store reads and writes the local state file.
type Store struct {
	path string
	st   state
}

// DefaultPath returns ~/.talker/state.json.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "talker-state.json")
	}
	return filepath.Join(home, ".talker", "state.json")
}

// Open loads the state file, creating it on first run. On the first-ever
// run the active-conversation pointer starts cleared regardless of file
// content.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// First-ever run: persist an empty state with no pointer.
			s.st = state{Seen: true}
			return s, s.save()
		}
		return nil, err
	}

	if err := json.Unmarshal(data, &s.st); err != nil {
		// A corrupt state file is replaced, not fatal.
		s.st = state{Seen: true}
		return s, s.save()
	}

	if !s.st.Seen {
		s.st.Seen = true
		s.st.ActiveConversationID = 0
		return s, s.save()
	}
	return s, nil
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.st, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(s.path, data, 0o644)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ActiveConversation returns the persisted pointer, 0 if none.
func (s *Store) ActiveConversation() int64 {
	return s.st.ActiveConversationID
}

// SetActiveConversation persists the pointer. Passing 0 clears it.
func (s *Store) SetActiveConversation(id int64) error {
	s.st.ActiveConversationID = id
	return s.save()
}

// SetupComplete reports whether first-run setup finished.
func (s *Store) SetupComplete() bool {
	return s.st.SetupComplete
}

// MarkSetupComplete records that first-run setup finished.
func (s *Store) MarkSetupComplete() error {
	s.st.SetupComplete = true
	return s.save()
}
