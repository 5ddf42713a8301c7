// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/talkerhq/talker-tui/internal/gateway"
)

func testClient(serverURL string) *Client {
	cfg := DefaultConfig("test-key")
	cfg.BaseURL = serverURL
	cfg.RequestsPerMinute = 10000
	return NewClient(cfg)
}

// =============================================================================
// GENERATE TESTS
// =============================================================================

func TestGenerate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if !strings.Contains(r.URL.Path, "gemini-1.5-flash") {
			t.Errorf("path %q missing model", r.URL.Path)
		}
		if key := r.URL.Query().Get("key"); key != "test-key" {
			t.Errorf("key = %q, want 'test-key'", key)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"there"}]}}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	got, err := client.Generate(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Hello there" {
		t.Errorf("Generate = %q, want 'Hello there'", got)
	}
}

func TestGenerate_EmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Generate(context.Background(), "hi")
	if !errors.Is(err, gateway.ErrEmptyResult) {
		t.Errorf("err = %v, want ErrEmptyResult", err)
	}
}

func TestGenerate_EmptyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":""}]}}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Generate(context.Background(), "hi")
	if !errors.Is(err, gateway.ErrEmptyResult) {
		t.Errorf("err = %v, want ErrEmptyResult", err)
	}
}

func TestGenerate_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Generate(context.Background(), "hi")

	var clientErr *gateway.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("err = %v, want *ClientError", err)
	}
	if clientErr.Type != gateway.ErrTypeRateLimited {
		t.Errorf("Type = %v, want ErrTypeRateLimited", clientErr.Type)
	}
}

func TestGenerate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.Generate(context.Background(), "hi")

	var clientErr *gateway.ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("err = %v, want *ClientError", err)
	}
	if clientErr.Type != gateway.ErrTypeInvalidResponse {
		t.Errorf("Type = %v, want ErrTypeInvalidResponse", clientErr.Type)
	}
	if !strings.Contains(clientErr.Message, "API key not valid") {
		t.Errorf("Message = %q, want API error message passed through", clientErr.Message)
	}
}

func TestGenerate_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, "hi")
	if !errors.Is(err, gateway.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

// =============================================================================
// TITLE SUMMARIZATION TESTS
// =============================================================================

func TestSummarizeTitle_TrimsQuotes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  \"Trip Planning Help\"\n"}]}}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	title, err := client.SummarizeTitle(context.Background(), "help me plan a trip")
	if err != nil {
		t.Fatalf("SummarizeTitle: %v", err)
	}
	if title != "Trip Planning Help" {
		t.Errorf("title = %q, want 'Trip Planning Help'", title)
	}
}

func TestSummarizeTitle_WhitespaceOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  \n  "}]}}]}`))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.SummarizeTitle(context.Background(), "hi")
	if !errors.Is(err, gateway.ErrEmptyResult) {
		t.Errorf("err = %v, want ErrEmptyResult", err)
	}
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestNewClient_FillsDefaults(t *testing.T) {
	client := NewClient(&ClientConfig{APIKey: "k"})

	if client.config.BaseURL == "" {
		t.Error("BaseURL default not filled")
	}
	if client.config.Model != "gemini-1.5-flash" {
		t.Errorf("Model = %q, want default", client.config.Model)
	}
	if client.config.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", client.config.Timeout)
	}
	if client.config.RequestsPerMinute != 30 {
		t.Errorf("RequestsPerMinute = %d, want 30", client.config.RequestsPerMinute)
	}
}
