// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal drives the character-by-character reveal of newly
// generated assistant messages.
//
// Content is first segmented into text and fenced-code chunks so the
// renderer can highlight code spans while they are still being revealed.
// A Revealer owns the cursor for one message: each tick reveals exactly
// one rune. An interrupted reveal is never resumed; the message simply
// renders in full from then on.
package reveal

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// CHUNKS
// =============================================================================

// ChunkKind distinguishes prose from fenced code.
type ChunkKind int

const (
	ChunkText ChunkKind = iota
	ChunkCode
)

// Chunk is one typed span of message content. For code chunks, Content
// excludes the fence lines, Language carries the fence's info string
// trimmed for lexer lookup (empty means plaintext), and Info keeps the
// info string exactly as written so Join can restore the fence
// byte-for-byte.
type Chunk struct {
	Kind     ChunkKind
	Content  string
	Language string
	Info     string
}

// Split segments content into ordered text and code chunks on ``` fences.
// An opening fence with no matching close is treated as text. Join
// reverses Split exactly.
func Split(content string) []Chunk {
	var chunks []Chunk
	rest := content

	for rest != "" {
		open := strings.Index(rest, "```")
		if open < 0 {
			chunks = append(chunks, Chunk{Kind: ChunkText, Content: rest})
			break
		}

		nl := strings.Index(rest[open:], "\n")
		if nl < 0 {
			// Fence with no body.
			chunks = append(chunks, Chunk{Kind: ChunkText, Content: rest})
			break
		}
		bodyStart := open + nl + 1

		closeIdx := strings.Index(rest[bodyStart:], "```")
		if closeIdx < 0 {
			// Unterminated fence stays prose.
			chunks = append(chunks, Chunk{Kind: ChunkText, Content: rest})
			break
		}

		if open > 0 {
			chunks = append(chunks, Chunk{Kind: ChunkText, Content: rest[:open]})
		}
		info := rest[open+3 : open+nl]
		chunks = append(chunks, Chunk{
			Kind:     ChunkCode,
			Content:  rest[bodyStart : bodyStart+closeIdx],
			Language: strings.TrimSpace(info),
			Info:     info,
		})
		rest = rest[bodyStart+closeIdx+3:]
	}

	return chunks
}

// Join reassembles chunks into the original message content, restoring
// code fences.
func Join(chunks []Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		if c.Kind == ChunkCode {
			sb.WriteString("```")
			sb.WriteString(c.Info)
			sb.WriteString("\n")
			sb.WriteString(c.Content)
			sb.WriteString("```")
			continue
		}
		sb.WriteString(c.Content)
	}
	return sb.String()
}

// =============================================================================
// REVEALER
// =============================================================================

// DefaultInterval is the per-character reveal rate.
const DefaultInterval = 15 * time.Millisecond

// TickMsg advances a reveal by one rune. Carries the send time so stale
// ticks from a stopped reveal can be told apart in debug logs.
type TickMsg struct {
	Time time.Time
}

// Revealer reveals one message. It is driven from the single Bubble Tea
// update loop and is not safe for concurrent use.
type Revealer struct {
	chunks   []Chunk
	runes    [][]rune
	chunk    int
	offset   int
	interval time.Duration

	stopped  bool
	finished bool
	onDone   func()

	followArmed bool
}

// New creates a revealer for the given content. onDone fires exactly once
// when the last rune is revealed; it does not fire for stopped reveals.
func New(content string, interval time.Duration, onDone func()) *Revealer {
	if interval <= 0 {
		interval = DefaultInterval
	}

	chunks := Split(content)
	runes := make([][]rune, len(chunks))
	for i, c := range chunks {
		runes[i] = []rune(c.Content)
	}

	return &Revealer{
		chunks:   chunks,
		runes:    runes,
		interval: interval,
		onDone:   onDone,
	}
}

// TickCmd schedules the next reveal tick.
func (r *Revealer) TickCmd() tea.Cmd {
	return tea.Tick(r.interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// Tick reveals the next rune. Returns true while the reveal should keep
// ticking; false once finished or stopped.
func (r *Revealer) Tick() bool {
	if r.stopped || r.finished {
		return false
	}

	// Skip exhausted chunks, including empty ones.
	for r.chunk < len(r.runes) && r.offset >= len(r.runes[r.chunk]) {
		r.chunk++
		r.offset = 0
	}

	if r.chunk >= len(r.runes) {
		r.finish()
		return false
	}

	r.offset++
	if r.chunk == len(r.runes)-1 && r.offset >= len(r.runes[r.chunk]) {
		r.finish()
		return false
	}
	return true
}

func (r *Revealer) finish() {
	r.finished = true
	if r.onDone != nil {
		r.onDone()
		r.onDone = nil
	}
}

// Done reports whether every rune has been revealed.
func (r *Revealer) Done() bool {
	return r.finished
}

// Stop abandons the reveal. The timer must not be rescheduled after Stop;
// a stopped reveal never resumes and never fires onDone.
func (r *Revealer) Stop() {
	r.stopped = true
	r.onDone = nil
}

// Stopped reports whether the reveal was abandoned.
func (r *Revealer) Stopped() bool {
	return r.stopped
}

// Visible returns the revealed prefix of the message with code fences
// restored, ready for rendering. Once finished or stopped it returns the
// full content.
func (r *Revealer) Visible() string {
	if r.finished || r.stopped {
		return Join(r.chunks)
	}

	var sb strings.Builder
	for i := 0; i < len(r.chunks) && i <= r.chunk; i++ {
		c := r.chunks[i]
		visible := c.Content
		if i == r.chunk {
			end := r.offset
			if end > len(r.runes[i]) {
				end = len(r.runes[i])
			}
			visible = string(r.runes[i][:end])
		}

		if c.Kind == ChunkCode {
			sb.WriteString("```")
			sb.WriteString(c.Info)
			sb.WriteString("\n")
			sb.WriteString(visible)
			if i < r.chunk {
				sb.WriteString("```")
			}
			continue
		}
		sb.WriteString(visible)
	}
	return sb.String()
}

// VisibleChunks returns the revealed prefix as typed chunks, for
// renderers that highlight code spans directly.
func (r *Revealer) VisibleChunks() []Chunk {
	if r.finished || r.stopped {
		return r.chunks
	}

	var out []Chunk
	for i := 0; i < len(r.chunks) && i <= r.chunk; i++ {
		c := r.chunks[i]
		if i == r.chunk {
			end := r.offset
			if end > len(r.runes[i]) {
				end = len(r.runes[i])
			}
			c.Content = string(r.runes[i][:end])
		}
		out = append(out, c)
	}
	return out
}

// =============================================================================
// AUTO-FOLLOW
// =============================================================================

// ArmFollow arms viewport auto-follow. Called once when the reveal
// starts, with whether the viewport sat near the bottom at that moment.
func (r *Revealer) ArmFollow(nearBottom bool) {
	r.followArmed = nearBottom
}

// SuspendFollow disarms auto-follow for the remainder of this message.
// The user scrolling away must win over the animation; the next new
// message re-arms on its own reveal.
func (r *Revealer) SuspendFollow() {
	r.followArmed = false
}

// FollowArmed reports whether the viewport should track the reveal.
func (r *Revealer) FollowArmed() bool {
	return r.followArmed
}
