// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sync keeps the in-memory conversation model and the durable
// store eventually consistent.
//
// Every mutation applies to the local model first and returns immediately;
// the matching store write is dispatched in the background. Creates flow
// through a single FIFO worker so rows reach the store in the order the
// user produced them. Failed remote writes are logged and the local state
// is kept: the model is the source of truth for the current session.
package sync

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/talkerhq/talker-tui/internal/logging"
	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/store"
)

// =============================================================================
// ENGINE
// =============================================================================

// defaultWriteTimeout bounds each background store write.
const defaultWriteTimeout = 30 * time.Second

// queueSize is the dispatch queue capacity. Enqueueing blocks once the
// backlog reaches this size, which throttles a runaway producer instead
// of dropping writes.
const queueSize = 256

type job struct {
	op      string
	run     func(ctx context.Context) error
	barrier chan struct{}
}

// Engine is the optimistic synchronizer. Safe for concurrent use.
type Engine struct {
	store        store.Store
	log          zerolog.Logger
	userID       string
	writeTimeout time.Duration

	mu            sync.RWMutex
	conversations []*model.Conversation
	messages      map[int64][]*model.Message
	links         []*model.SharedLink
	activeID      int64

	jobs   chan job
	done   chan struct{}
	closed bool
}

// NewEngine creates a synchronizer for the given user and starts its
// dispatch worker.
func NewEngine(st store.Store, userID string) *Engine {
	e := &Engine{
		store:        st,
		log:          logging.For("sync"),
		userID:       userID,
		writeTimeout: defaultWriteTimeout,
		messages:     make(map[int64][]*model.Message),
		jobs:         make(chan job, queueSize),
		done:         make(chan struct{}),
	}
	go e.dispatchLoop()
	return e
}

// Close drains the dispatch queue and stops the worker. Mutations after
// Close apply locally but are no longer persisted.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	close(e.jobs)
	<-e.done
}

// Flush blocks until every write enqueued before the call has been
// attempted.
func (e *Engine) Flush() {
	barrier := make(chan struct{})
	if !e.enqueue(job{op: "flush", barrier: barrier}) {
		return
	}
	<-barrier
}

// enqueue submits a job while holding the read lock, so Close cannot
// close the channel out from under a pending send.
func (e *Engine) enqueue(j job) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.log.Warn().Str("op", j.op).Msg("engine closed, dropping remote write")
		return false
	}
	e.jobs <- j
	return true
}

// dispatchLoop is the single worker that applies queued writes in FIFO
// order. A failure never stops the loop or touches local state.
func (e *Engine) dispatchLoop() {
	defer close(e.done)

	for j := range e.jobs {
		if j.barrier != nil {
			close(j.barrier)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), e.writeTimeout)
		err := j.run(ctx)
		cancel()

		if err != nil {
			e.log.Warn().Err(err).Str("op", j.op).Msg("remote write failed, keeping local state")
		}
	}
}

// =============================================================================
// HYDRATION
// =============================================================================

// LoadConversations replaces the local conversation list with the user's
// rows from the store, newest first.
func (e *Engine) LoadConversations(ctx context.Context) error {
	convs, err := e.store.ListConversationsForUser(ctx, e.userID)
	if err != nil {
		return err
	}

	// Newest first for sidebar display.
	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].CreatedAt.After(convs[j].CreatedAt)
	})

	e.mu.Lock()
	e.conversations = convs
	e.mu.Unlock()
	return nil
}

// LoadMessages fetches a conversation's messages, normalizes their order
// for display, and replaces the local copy.
func (e *Engine) LoadMessages(ctx context.Context, conversationID int64) ([]*model.Message, error) {
	msgs, err := e.store.ListMessagesForConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs = model.ArrangeFetched(msgs)

	e.mu.Lock()
	e.messages[conversationID] = msgs
	e.mu.Unlock()
	return e.Messages(conversationID), nil
}

// LoadSharedLinks replaces the local shared-link list with the user's rows.
func (e *Engine) LoadSharedLinks(ctx context.Context) error {
	links, err := e.store.ListSharedLinksForUser(ctx, e.userID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.links = links
	e.mu.Unlock()
	return nil
}

// =============================================================================
// READ ACCESSORS
// =============================================================================

// Conversations returns a snapshot of the conversation list, newest first.
// Snapshots copy the structs themselves: the engine keeps mutating its own
// copies (fills, renames, seen flags) while readers render theirs.
func (e *Engine) Conversations() []*model.Conversation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*model.Conversation, len(e.conversations))
	for i, c := range e.conversations {
		cc := *c
		out[i] = &cc
	}
	return out
}

// ConversationByID returns a copy of the conversation, or nil.
func (e *Engine) ConversationByID(id int64) *model.Conversation {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, c := range e.conversations {
		if c.ConversationID == id {
			cc := *c
			return &cc
		}
	}
	return nil
}

// Messages returns a snapshot of a conversation's messages in display
// order.
func (e *Engine) Messages(conversationID int64) []*model.Message {
	e.mu.RLock()
	defer e.mu.RUnlock()

	msgs := e.messages[conversationID]
	out := make([]*model.Message, len(msgs))
	for i, m := range msgs {
		mc := *m
		out[i] = &mc
	}
	return out
}

// SharedLinks returns a snapshot of the user's shared links.
func (e *Engine) SharedLinks() []*model.SharedLink {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*model.SharedLink, len(e.links))
	for i, l := range e.links {
		lc := *l
		out[i] = &lc
	}
	return out
}

// ActiveConversationID returns the selected conversation id, or 0 when no
// conversation is selected.
func (e *Engine) ActiveConversationID() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.activeID
}

// SetActiveConversationID selects a conversation. Zero clears the
// selection.
func (e *Engine) SetActiveConversationID(id int64) {
	e.mu.Lock()
	e.activeID = id
	e.mu.Unlock()
}

// =============================================================================
// CONVERSATION MUTATIONS
// =============================================================================

// AddConversation inserts the conversation at the top of the local list
// and queues the store insert. The insert is ordered before any of the
// conversation's message inserts queued afterwards.
func (e *Engine) AddConversation(conv *model.Conversation) {
	e.mu.Lock()
	e.conversations = append([]*model.Conversation{conv}, e.conversations...)
	e.mu.Unlock()

	snapshot := *conv
	e.enqueue(job{op: "insert conversation", run: func(ctx context.Context) error {
		return e.store.InsertConversation(ctx, &snapshot)
	}})
}

// RenameConversation sets the title locally and queues the store update.
// A failed update is logged, never rolled back.
func (e *Engine) RenameConversation(id int64, title string) {
	e.mu.Lock()
	for _, c := range e.conversations {
		if c.ConversationID == id {
			c.Title = title
			break
		}
	}
	e.mu.Unlock()

	e.enqueue(job{op: "rename conversation", run: func(ctx context.Context) error {
		return e.store.UpdateConversationTitle(ctx, id, title)
	}})
}

// DeleteConversation removes the conversation, its messages, and its
// shared links locally, clears the selection if it pointed here, and
// queues the store delete.
func (e *Engine) DeleteConversation(id int64) {
	e.mu.Lock()
	kept := e.conversations[:0]
	for _, c := range e.conversations {
		if c.ConversationID != id {
			kept = append(kept, c)
		}
	}
	e.conversations = kept
	delete(e.messages, id)

	keptLinks := e.links[:0]
	for _, l := range e.links {
		if l.ConversationID != id {
			keptLinks = append(keptLinks, l)
		}
	}
	e.links = keptLinks

	if e.activeID == id {
		e.activeID = 0
	}
	e.mu.Unlock()

	e.enqueue(job{op: "delete conversation", run: func(ctx context.Context) error {
		return e.store.DeleteConversation(ctx, id)
	}})
}

// DeleteAllConversations clears every conversation locally and queues a
// bulk store delete.
func (e *Engine) DeleteAllConversations() {
	e.mu.Lock()
	e.conversations = nil
	e.messages = make(map[int64][]*model.Message)
	e.activeID = 0
	e.mu.Unlock()

	e.enqueue(job{op: "delete all conversations", run: func(ctx context.Context) error {
		return e.store.DeleteAllConversations(ctx, e.userID)
	}})
}

// =============================================================================
// MESSAGE MUTATIONS
// =============================================================================

// AddMessage appends the message locally and queues the store insert.
// Successive calls preserve send order all the way to the store.
func (e *Engine) AddMessage(msg *model.Message) {
	e.addLocal(msg)

	snapshot := *msg
	e.enqueue(job{op: "insert message", run: func(ctx context.Context) error {
		return e.store.InsertMessage(ctx, &snapshot)
	}})
}

// AddLocalMessage appends the message locally without persisting it.
// Placeholders enter the model this way and are persisted only once
// filled.
func (e *Engine) AddLocalMessage(msg *model.Message) {
	e.addLocal(msg)
}

func (e *Engine) addLocal(msg *model.Message) {
	e.mu.Lock()
	e.messages[msg.ConversationID] = append(e.messages[msg.ConversationID], msg)
	e.mu.Unlock()
}

// FillMessage replaces a message's content locally.
func (e *Engine) FillMessage(conversationID, messageID int64, content string) {
	e.mu.Lock()
	for _, m := range e.messages[conversationID] {
		if m.ID == messageID {
			m.Content = content
			break
		}
	}
	e.mu.Unlock()
}

// PersistMessage queues a store insert of the message's current local
// state.
func (e *Engine) PersistMessage(conversationID, messageID int64) {
	snapshot, ok := e.messageSnapshot(conversationID, messageID)
	if !ok {
		return
	}

	e.enqueue(job{op: "insert message", run: func(ctx context.Context) error {
		return e.store.InsertMessage(ctx, &snapshot)
	}})
}

// MarkMessageSeen clears a message's new flag locally and queues the
// store update, so the message animates at most once across sessions.
func (e *Engine) MarkMessageSeen(conversationID, messageID int64) {
	e.mu.Lock()
	for _, m := range e.messages[conversationID] {
		if m.ID == messageID {
			m.IsNew = false
			break
		}
	}
	e.mu.Unlock()

	snapshot, ok := e.messageSnapshot(conversationID, messageID)
	if !ok {
		return
	}

	e.enqueue(job{op: "update message", run: func(ctx context.Context) error {
		return e.store.UpdateMessage(ctx, &snapshot)
	}})
}

func (e *Engine) messageSnapshot(conversationID, messageID int64) (model.Message, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, m := range e.messages[conversationID] {
		if m.ID == messageID {
			return *m, true
		}
	}
	return model.Message{}, false
}

// =============================================================================
// SHARED LINK MUTATIONS
// =============================================================================

// ApplySharedLink adds an already persisted link to the local model.
func (e *Engine) ApplySharedLink(link *model.SharedLink) {
	e.mu.Lock()
	e.links = append(e.links, link)
	e.mu.Unlock()
}

// AddSharedLink adds the link locally and queues the store insert.
func (e *Engine) AddSharedLink(link *model.SharedLink) {
	e.ApplySharedLink(link)

	snapshot := *link
	e.enqueue(job{op: "insert shared link", run: func(ctx context.Context) error {
		return e.store.InsertSharedLink(ctx, &snapshot)
	}})
}

// SharedLinkForConversation returns the existing link for a conversation,
// or nil.
func (e *Engine) SharedLinkForConversation(conversationID int64) *model.SharedLink {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, l := range e.links {
		if l.ConversationID == conversationID {
			return l
		}
	}
	return nil
}

// RemoveSharedLink drops the link locally and queues the store delete.
// Unknown tokens are a no-op.
func (e *Engine) RemoveSharedLink(token string) {
	e.mu.Lock()
	kept := e.links[:0]
	for _, l := range e.links {
		if l.LinkIDToken != token {
			kept = append(kept, l)
		}
	}
	e.links = kept
	e.mu.Unlock()

	e.enqueue(job{op: "delete shared link", run: func(ctx context.Context) error {
		return e.store.DeleteSharedLink(ctx, token)
	}})
}

// RemoveAllSharedLinks clears every link locally and queues a bulk store
// delete.
func (e *Engine) RemoveAllSharedLinks() {
	e.mu.Lock()
	e.links = nil
	e.mu.Unlock()

	e.enqueue(job{op: "delete all shared links", run: func(ctx context.Context) error {
		return e.store.DeleteAllSharedLinks(ctx, e.userID)
	}})
}
