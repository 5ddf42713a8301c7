// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway defines the interfaces for the external text-generation
// and web-search services the response pipeline calls into.
//
// Calls are not cancelable once issued beyond their context: a slow or
// hung call blocks only its own placeholder's resolution, never the
// sending of further messages.
package gateway

import "context"

// Generator produces assistant text.
type Generator interface {
	// Generate returns the model's response for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// SummarizeTitle derives a short conversation title from the user's
	// first message via a dedicated generation call.
	SummarizeTitle(ctx context.Context, userText string) (string, error)
}

// Searcher runs a web search and returns structured results.
type Searcher interface {
	Search(ctx context.Context, query string) (*SearchResults, error)
}

// =============================================================================
// SEARCH RESULT TYPES
// =============================================================================

// SearchResults is the structured result set returned by the search
// gateway. Either section may be empty.
type SearchResults struct {
	KnowledgeGraph *KnowledgeGraph `json:"knowledgeGraph,omitempty"`
	Organic        []OrganicResult `json:"organic,omitempty"`
}

// KnowledgeGraph is the knowledge-panel block of a search response.
type KnowledgeGraph struct {
	Title      string            `json:"title,omitempty"`
	Type       string            `json:"type,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// OrganicResult is one ranked search hit.
type OrganicResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link,omitempty"`
}

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes gateway errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeRateLimited
	ErrTypeInvalidResponse
	// ErrTypeEmptyResult marks a success response whose expected result
	// field was missing. Treated as an explicit failure, never passed
	// through as empty content.
	ErrTypeEmptyResult
)

// ClientError represents an error from a gateway client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrEmptyResult = &ClientError{Type: ErrTypeEmptyResult, Message: "response missing generated text"}
)
