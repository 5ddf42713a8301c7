// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talkerhq/talker-tui/internal/gateway"
	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/store"
	"github.com/talkerhq/talker-tui/internal/sync"
)

const testUser = "user-1"

// fakeGenerator scripts Generate and SummarizeTitle results.
type fakeGenerator struct {
	response string
	genErr   error
	title    string
	titleErr error

	lastPrompt string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.genErr
}

func (f *fakeGenerator) SummarizeTitle(ctx context.Context, userText string) (string, error) {
	return f.title, f.titleErr
}

// fakeSearcher returns a scripted result set.
type fakeSearcher struct {
	results *gateway.SearchResults
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (*gateway.SearchResults, error) {
	return f.results, f.err
}

func newTestPipeline(t *testing.T, gen *fakeGenerator, search *fakeSearcher) (*Pipeline, *sync.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	engine := sync.NewEngine(mem, testUser)
	t.Cleanup(engine.Close)

	var searcher gateway.Searcher
	if search != nil {
		searcher = search
	}
	p := New(engine, gen, searcher, testUser)
	return p, engine, mem
}

// =============================================================================
// SEND TESTS
// =============================================================================

// TestSend_FirstTurn walks the canonical first-turn scenario: user says
// hello with no active conversation, and every row lands.
func TestSend_FirstTurn(t *testing.T) {
	gen := &fakeGenerator{response: "Hi! How can I help?", title: "Friendly Greeting"}
	p, engine, mem := newTestPipeline(t, gen, nil)

	turn, err := p.Send(context.Background(), "hello", false)
	require.NoError(t, err)
	require.NotNil(t, turn.NewConversation)
	require.Equal(t, turn.NewConversation.ConversationID, turn.ConversationID)
	require.Equal(t, turn.ConversationID, engine.ActiveConversationID())

	msgs := engine.Messages(turn.ConversationID)
	require.Len(t, msgs, 2)
	require.Equal(t, model.SenderUser, msgs[0].Sender)
	require.Equal(t, "hello", msgs[0].Content)
	require.Equal(t, model.SenderAssistant, msgs[1].Sender)
	require.Equal(t, "Hi! How can I help?", msgs[1].Content)
	require.True(t, msgs[1].IsNew)

	p.Wait()
	engine.Flush()

	stored, err := mem.ListMessagesForConversation(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	conv := engine.ConversationByID(turn.ConversationID)
	require.Equal(t, "Friendly Greeting", conv.Title)
}

func TestSend_ExistingConversation(t *testing.T) {
	gen := &fakeGenerator{response: "answer"}
	p, engine, _ := newTestPipeline(t, gen, nil)

	conv := model.NewConversation(testUser, "ongoing")
	engine.AddConversation(conv)
	engine.SetActiveConversationID(conv.ConversationID)

	turn, err := p.Send(context.Background(), "follow-up", false)
	require.NoError(t, err)
	require.Nil(t, turn.NewConversation)
	require.Equal(t, conv.ConversationID, turn.ConversationID)
	require.Len(t, engine.Messages(conv.ConversationID), 2)
}

// TestSend_GenerationFailureFillsFallback verifies the exact fallback
// string replaces the placeholder and is what gets persisted.
func TestSend_GenerationFailureFillsFallback(t *testing.T) {
	gen := &fakeGenerator{genErr: errors.New("api down"), title: "t"}
	p, engine, mem := newTestPipeline(t, gen, nil)

	turn, err := p.Send(context.Background(), "hello", false)
	require.NoError(t, err)

	msgs := engine.Messages(turn.ConversationID)
	require.Equal(t, "Oops, something went wrong. Please try again or try with a different Prompt", msgs[1].Content)

	p.Wait()
	engine.Flush()
	stored, err := mem.ListMessagesForConversation(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	require.Equal(t, Fallback, stored[1].Content)
}

// TestSend_EmptyResponseFillsFallback covers the success response whose
// text field is missing: an explicit failure, not empty content.
func TestSend_EmptyResponseFillsFallback(t *testing.T) {
	gen := &fakeGenerator{response: "", title: "t"}
	p, engine, _ := newTestPipeline(t, gen, nil)

	turn, err := p.Send(context.Background(), "hello", false)
	require.NoError(t, err)
	require.Equal(t, Fallback, engine.Messages(turn.ConversationID)[1].Content)
}

func TestSend_TitleFailureKeepsPreviewTitle(t *testing.T) {
	gen := &fakeGenerator{response: "ok", titleErr: errors.New("no title")}
	p, engine, _ := newTestPipeline(t, gen, nil)

	longText := "this opening message is long enough that the preview title gets truncated somewhere"
	turn, err := p.Send(context.Background(), longText, false)
	require.NoError(t, err)
	p.Wait()

	conv := engine.ConversationByID(turn.ConversationID)
	require.Equal(t, model.FallbackTitle(longText), conv.Title)
}

func TestCompleteReveal_ClearsIsNew(t *testing.T) {
	gen := &fakeGenerator{response: "revealed", title: "t"}
	p, engine, mem := newTestPipeline(t, gen, nil)

	turn, err := p.Send(context.Background(), "hello", false)
	require.NoError(t, err)

	p.CompleteReveal(turn.ConversationID, turn.Assistant.ID)
	p.Wait()
	engine.Flush()

	require.False(t, engine.Messages(turn.ConversationID)[1].IsNew)
	stored, err := mem.ListMessagesForConversation(context.Background(), turn.ConversationID)
	require.NoError(t, err)
	require.False(t, stored[1].IsNew)
}

// =============================================================================
// SEARCH-AUGMENTED PROMPT TESTS
// =============================================================================

func TestSend_SearchAugmentedPrompt(t *testing.T) {
	gen := &fakeGenerator{response: "answer", title: "t"}
	search := &fakeSearcher{results: &gateway.SearchResults{
		Organic: []gateway.OrganicResult{{Title: "Go", Snippet: "a language"}},
	}}
	p, _, _ := newTestPipeline(t, gen, search)

	_, err := p.Send(context.Background(), "what is go", true)
	require.NoError(t, err)

	require.Contains(t, gen.lastPrompt, "- **Go**: a language")
	require.Contains(t, gen.lastPrompt, searchInstruction)
	require.Contains(t, gen.lastPrompt, "what is go")
}

// TestSend_SearchFailureDegradesToDirect verifies a failed search never
// fails the turn.
func TestSend_SearchFailureDegradesToDirect(t *testing.T) {
	gen := &fakeGenerator{response: "answer", title: "t"}
	search := &fakeSearcher{err: errors.New("search down")}
	p, _, _ := newTestPipeline(t, gen, search)

	_, err := p.Send(context.Background(), "what is go", true)
	require.NoError(t, err)
	require.Equal(t, "what is go", gen.lastPrompt)
}

// =============================================================================
// EXTRACTION TESTS
// =============================================================================

func TestExtractSearchData(t *testing.T) {
	tests := []struct {
		name    string
		results *gateway.SearchResults
		want    string
	}{
		{
			name: "knowledge graph with attributes",
			results: &gateway.SearchResults{KnowledgeGraph: &gateway.KnowledgeGraph{
				Title:      "Ada Lovelace",
				Type:       "Mathematician",
				Attributes: map[string]string{"Born": "1815", "Died": "1852"},
			}},
			want: "**Ada Lovelace**\n\n**Type**: Mathematician\n\n- **Born**: 1815\n\n- **Died**: 1852",
		},
		{
			name: "organic only",
			results: &gateway.SearchResults{Organic: []gateway.OrganicResult{
				{Title: "First", Snippet: "one"},
				{Title: "Second", Snippet: "two"},
			}},
			want: "- **First**: one\n\n- **Second**: two",
		},
		{
			name:    "empty",
			results: &gateway.SearchResults{},
			want:    "No relevant search results found.",
		},
		{
			name:    "nil",
			results: nil,
			want:    "No relevant search results found.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ExtractSearchData(tc.results))
		})
	}
}
