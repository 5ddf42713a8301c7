// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini provides the HTTP client for the Google Generative
// Language API, used for both assistant responses and conversation title
// derivation.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/talkerhq/talker-tui/internal/gateway"
)

// titlePrompt is the instruction wrapped around the user's first message
// when deriving a conversation title.
const titlePrompt = "Summarize the following message into a short conversation title of at most six words. Reply with the title only, no quotes:\n\n"

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Gemini client.
type ClientConfig struct {
	// BaseURL of the Generative Language API.
	BaseURL string

	// APIKey authenticates every request.
	APIKey string

	// Model to invoke (default: "gemini-1.5-flash").
	Model string

	// Timeout for each request (default: 60s).
	Timeout time.Duration

	// RequestsPerMinute caps the request rate (default: 30).
	RequestsPerMinute int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		BaseURL:           "https://generativelanguage.googleapis.com/v1beta",
		APIKey:            apiKey,
		Model:             "gemini-1.5-flash",
		Timeout:           60 * time.Second,
		RequestsPerMinute: 30,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client calls the Generative Language API. Safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a Gemini client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 30
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.RequestsPerMinute),
	}
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// =============================================================================
// GENERATION
// =============================================================================

// Generate returns the model's response text for the prompt. A success
// response missing the expected text field is reported as
// gateway.ErrEmptyResult, never passed through as empty content.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.generateContent(ctx, prompt)
}

// SummarizeTitle derives a short conversation title from the user's text.
func (c *Client) SummarizeTitle(ctx context.Context, userText string) (string, error) {
	title, err := c.generateContent(ctx, titlePrompt+userText)
	if err != nil {
		return "", err
	}
	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), `"`))
	if title == "" {
		return "", gateway.ErrEmptyResult
	}
	return title, nil
}

func (c *Client) generateContent(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &gateway.ClientError{Type: gateway.ErrTypeRateLimited, Message: "rate limiter wait aborted", Cause: err}
	}

	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &gateway.ClientError{Type: gateway.ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	endpoint := c.config.BaseURL + "/models/" + url.PathEscape(c.config.Model) + ":generateContent?key=" + url.QueryEscape(c.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &gateway.ClientError{Type: gateway.ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", gateway.ErrTimeout
		}
		return "", &gateway.ClientError{Type: gateway.ErrTypeConnection, Message: "generation request failed", Cause: err}
	}
	defer resp.Body.Close()

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &gateway.ClientError{Type: gateway.ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &gateway.ClientError{Type: gateway.ErrTypeRateLimited, Message: "generation API rate limited"}
	}
	if resp.StatusCode != http.StatusOK {
		msg := "generation request failed: " + resp.Status
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return "", &gateway.ClientError{Type: gateway.ErrTypeInvalidResponse, Message: msg}
	}

	// A 200 with no candidate text is an explicit failure, distinct from
	// a transport error.
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", gateway.ErrEmptyResult
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if text == "" {
		return "", gateway.ErrEmptyResult
	}
	return text, nil
}

// Ensure interface compliance.
var _ gateway.Generator = (*Client)(nil)
