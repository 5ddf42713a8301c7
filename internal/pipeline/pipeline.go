// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline turns a submitted user message into a resolved
// assistant turn: placeholder lifecycle, prompt building, generation,
// fallback content, and conversation bootstrap with title derivation.
package pipeline

import (
	"context"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/talkerhq/talker-tui/internal/gateway"
	"github.com/talkerhq/talker-tui/internal/logging"
	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/sync"
)

// Fallback is shown in place of assistant content when generation fails
// or produces no text. The store only ever sees final content, never an
// error.
const Fallback = "Oops, something went wrong. Please try again or try with a different Prompt"

// noResults is the sentinel used when a search returns nothing usable.
const noResults = "No relevant search results found."

// searchInstruction is the fixed suffix appended to extracted search
// results when building a search-augmented prompt.
const searchInstruction = "Using only the search results above, write a clear and concise answer to the question below.\n\nQuestion: "

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline resolves assistant turns against the synchronizer. Safe for
// concurrent use; each Send call is an independent turn.
type Pipeline struct {
	engine    *sync.Engine
	generator gateway.Generator
	searcher  gateway.Searcher
	userID    string
	log       zerolog.Logger

	wg gosync.WaitGroup
}

// New creates a pipeline. The searcher may be nil when web search is not
// configured; search-augmented turns then fall back to direct prompts.
func New(engine *sync.Engine, generator gateway.Generator, searcher gateway.Searcher, userID string) *Pipeline {
	return &Pipeline{
		engine:    engine,
		generator: generator,
		searcher:  searcher,
		userID:    userID,
		log:       logging.For("pipeline"),
	}
}

// Turn is the outcome of one Send call.
type Turn struct {
	ConversationID int64
	// NewConversation is set when this turn bootstrapped a conversation.
	NewConversation *model.Conversation
	UserMessage     *model.Message
	// Assistant is the filled placeholder. IsNew stays true until the
	// reveal completes and CompleteReveal is called.
	Assistant *model.Message
}

// Send runs one user turn to completion: the user message and an empty
// placeholder enter the model immediately, then the placeholder is filled
// with generated content or the fallback, persisted, and returned.
//
// The first turn of a session bootstraps a conversation before any
// network round-trip resolves; its title derivation races independently
// and never delays the turn.
func (p *Pipeline) Send(ctx context.Context, userText string, webSearch bool) (*Turn, error) {
	turn := &Turn{ConversationID: p.engine.ActiveConversationID()}

	if turn.ConversationID == 0 {
		conv := p.bootstrapConversation(userText)
		turn.ConversationID = conv.ConversationID
		turn.NewConversation = conv
	}

	// Local-first: both messages are visible before the first network
	// call is issued.
	userMsg := model.NewUserMessage(turn.ConversationID, userText)
	p.engine.AddMessage(userMsg)
	turn.UserMessage = userMsg

	placeholder := model.NewPlaceholderMessage(turn.ConversationID)
	p.engine.AddLocalMessage(placeholder)
	turn.Assistant = placeholder

	prompt := p.buildPrompt(ctx, userText, webSearch)

	content, err := p.generator.Generate(ctx, prompt)
	if err != nil || content == "" {
		p.log.Warn().Err(err).Int64("conversation", turn.ConversationID).Msg("generation failed, using fallback content")
		content = Fallback
	}

	p.engine.FillMessage(turn.ConversationID, placeholder.ID, content)
	p.engine.PersistMessage(turn.ConversationID, placeholder.ID)

	// The turn carries its own copy of the filled message so later engine
	// mutations (marking it seen) never touch a struct the caller holds.
	filled := *placeholder
	filled.Content = content
	turn.Assistant = &filled

	return turn, nil
}

// CompleteReveal marks the assistant message as seen once its reveal has
// finished, locally and in the store. Messages marked seen never animate
// again.
func (p *Pipeline) CompleteReveal(conversationID, messageID int64) {
	p.engine.MarkMessageSeen(conversationID, messageID)
}

// Wait blocks until in-flight title derivations finish.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// bootstrapConversation creates and activates a conversation for a first
// turn. It starts with a preview of the user's text as its title; a
// dedicated summarization call races in the background and renames the
// conversation when it wins.
func (p *Pipeline) bootstrapConversation(userText string) *model.Conversation {
	conv := model.NewConversation(p.userID, model.FallbackTitle(userText))
	p.engine.AddConversation(conv)
	p.engine.SetActiveConversationID(conv.ConversationID)

	// Copy before the rename goroutine can touch the engine's struct.
	out := *conv

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.deriveTitle(out.ConversationID, userText)
	}()

	return &out
}

func (p *Pipeline) deriveTitle(conversationID int64, userText string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	title, err := p.generator.SummarizeTitle(ctx, norm.NFC.String(userText))
	if err != nil {
		p.log.Warn().Err(err).Int64("conversation", conversationID).Msg("title derivation failed, keeping preview title")
		return
	}
	p.engine.RenameConversation(conversationID, title)
}

// =============================================================================
// PROMPT BUILDING
// =============================================================================

// buildPrompt returns the raw user text, or a search-augmented prompt
// when web search is requested. A failed search degrades to the direct
// prompt rather than failing the turn.
func (p *Pipeline) buildPrompt(ctx context.Context, userText string, webSearch bool) string {
	if !webSearch || p.searcher == nil {
		return userText
	}

	results, err := p.searcher.Search(ctx, userText)
	if err != nil {
		p.log.Warn().Err(err).Msg("web search failed, falling back to direct prompt")
		return userText
	}

	return ExtractSearchData(results) + "\n\n" + searchInstruction + userText
}

// ExtractSearchData flattens structured search results into prompt text:
// the knowledge-panel block when present, then one bullet per organic
// hit, or a no-results sentinel when both are empty. Sections join with
// blank lines.
func ExtractSearchData(results *gateway.SearchResults) string {
	var parts []string

	if results != nil && results.KnowledgeGraph != nil {
		kg := results.KnowledgeGraph
		if kg.Title != "" {
			parts = append(parts, "**"+kg.Title+"**")
		}
		if kg.Type != "" {
			parts = append(parts, "**Type**: "+kg.Type)
		}
		keys := make([]string, 0, len(kg.Attributes))
		for k := range kg.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, "- **"+k+"**: "+kg.Attributes[k])
		}
	}

	if results != nil {
		for _, hit := range results.Organic {
			parts = append(parts, "- **"+hit.Title+"**: "+hit.Snippet)
		}
	}

	if len(parts) == 0 {
		return noResults
	}
	return strings.Join(parts, "\n\n")
}
