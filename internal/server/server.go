// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes shared conversations over HTTP.
//
// Endpoints:
//   - GET /share/{token} - shared conversation (HTML, or JSON with Accept)
//   - GET /health        - health check
//
// Shared links are read-only: the server never accepts writes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/talkerhq/talker-tui/internal/logging"
	"github.com/talkerhq/talker-tui/internal/share"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default listen port.
	DefaultPort = 8787

	// lookupTimeout bounds each store round trip.
	lookupTimeout = 15 * time.Second

	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
)

// ============================================================================
// SERVER
// ============================================================================

// Config holds server settings.
type Config struct {
	Port int
	// RateLimit is the allowed requests per minute per IP (default: 100).
	RateLimit int
}

// Server serves shared conversations by token.
type Server struct {
	shares  *share.Manager
	limiter *RateLimiter
	httpSrv *http.Server
	log     zerolog.Logger
}

// New creates a server backed by the given share manager.
func New(shares *share.Manager, cfg Config) *Server {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	limit := cfg.RateLimit
	if limit == 0 {
		limit = 100
	}

	s := &Server{
		shares:  shares,
		limiter: NewRateLimiter(limit, time.Minute),
		log:     logging.For("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/share/", s.handleShare)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      LoggingMiddleware(s.log)(RateLimitMiddleware(s.limiter)(mux)),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.httpSrv.Addr).Msg("share server listening")
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// sharedView is the JSON shape of a shared conversation.
type sharedView struct {
	Title      string          `json:"title"`
	SharedDate string          `json:"shared_date"`
	Messages   []sharedMessage `json:"messages"`
}

type sharedMessage struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	token := strings.TrimPrefix(r.URL.Path, "/share/")
	if token == "" || strings.Contains(token, "/") {
		http.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), lookupTimeout)
	defer cancel()

	link, err := s.shares.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, share.ErrLinkNotFound) {
			http.NotFound(w, r)
			return
		}
		s.log.Error().Err(err).Str("token", token).Msg("share lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	msgs, err := s.shares.MessagesForToken(ctx, token)
	if err != nil {
		s.log.Error().Err(err).Str("token", token).Msg("message fetch failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	view := sharedView{
		Title:      link.ClickableName,
		SharedDate: link.DisplayDate(),
	}
	for _, msg := range msgs {
		view.Messages = append(view.Messages, sharedMessage{
			Sender:  msg.Sender.DisplayName(),
			Content: msg.Content,
		})
	}

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(view)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := shareTemplate.Execute(w, view); err != nil {
		s.log.Error().Err(err).Msg("template render failed")
	}
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json")
}

// ============================================================================
// HTML TEMPLATE
// ============================================================================

var shareTemplate = template.Must(template.New("share").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
h1 { font-size: 1.4rem; }
.shared { color: #666; font-size: 0.85rem; margin-bottom: 2rem; }
.msg { margin-bottom: 1.5rem; }
.sender { font-weight: bold; margin-bottom: 0.25rem; }
.content { white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="shared">Shared {{.SharedDate}}</div>
{{range .Messages}}
<div class="msg">
<div class="sender">{{.Sender}}</div>
<div class="content">{{.Content}}</div>
</div>
{{end}}
</body>
</html>
`))
