// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package serper provides the web-search client backing search-augmented
// prompts.
package serper

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/talkerhq/talker-tui/internal/gateway"
	"github.com/talkerhq/talker-tui/internal/logging"
)

// ClientConfig holds configuration options for the serper.dev client.
type ClientConfig struct {
	// BaseURL of the search API (default: "https://google.serper.dev").
	BaseURL string

	// APIKey sent in the X-API-KEY header.
	APIKey string

	// Timeout per request (default: 15s).
	Timeout time.Duration

	// RequestsPerMinute caps the request rate (default: 60).
	RequestsPerMinute int
}

// DefaultConfig returns the default client configuration.
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		BaseURL:           "https://google.serper.dev",
		APIKey:            apiKey,
		Timeout:           15 * time.Second,
		RequestsPerMinute: 60,
	}
}

// Client queries serper.dev. Safe for concurrent use.
type Client struct {
	rest    *resty.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a serper.dev search client.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://google.serper.dev"
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 60
	}

	rest := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetHeader("X-API-KEY", config.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		rest:    rest,
		limiter: rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), config.RequestsPerMinute),
		log:     logging.For("serper"),
	}
}

// Search runs a web search for the query.
func (c *Client) Search(ctx context.Context, query string) (*gateway.SearchResults, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &gateway.ClientError{Type: gateway.ErrTypeRateLimited, Message: "rate limiter wait aborted", Cause: err}
	}

	var results gateway.SearchResults
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"q": query}).
		SetResult(&results).
		Post("/search")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, gateway.ErrTimeout
		}
		return nil, &gateway.ClientError{Type: gateway.ErrTypeConnection, Message: "search request failed", Cause: err}
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, &gateway.ClientError{Type: gateway.ErrTypeRateLimited, Message: "search API rate limited"}
	case resp.IsError():
		c.log.Warn().Int("status", resp.StatusCode()).Str("query", query).Msg("search request rejected")
		return nil, &gateway.ClientError{Type: gateway.ErrTypeInvalidResponse, Message: "search request failed: " + resp.Status()}
	}

	return &results, nil
}

// Ensure interface compliance.
var _ gateway.Searcher = (*Client)(nil)
