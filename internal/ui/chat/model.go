// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/talkerhq/talker-tui/internal/localstate"
	"github.com/talkerhq/talker-tui/internal/logging"
	"github.com/talkerhq/talker-tui/internal/pipeline"
	"github.com/talkerhq/talker-tui/internal/reveal"
	"github.com/talkerhq/talker-tui/internal/share"
	"github.com/talkerhq/talker-tui/internal/sync"
	"github.com/talkerhq/talker-tui/internal/ui/components"
	"github.com/talkerhq/talker-tui/internal/ui/styles"
)

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateThinking               // Waiting on a response
	StateRevealing              // Revealing a fresh response
)

// Focus marks which pane receives key input.
type Focus int

const (
	FocusInput   Focus = iota // Text input focused
	FocusSidebar              // Conversation list focused
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State
	focus Focus

	theme *styles.Theme
	log   zerolog.Logger

	width  int
	height int

	// Domain services
	engine     *sync.Engine
	pipe       *pipeline.Pipeline
	shares     *share.Manager
	localState *localstate.Store

	// UI components
	viewport    viewport.Model
	input       textinput.Model
	spinner     components.Spinner
	shareBanner components.ShareBanner
	keyMap      KeyMap

	// Reveal state for the in-flight assistant message
	revealer       *reveal.Revealer
	revealConvID   int64
	revealMsgID    int64
	revealInterval time.Duration

	// Sidebar state
	sidebarVisible bool
	sidebarIndex   int

	webSearch bool
	statusMsg string
	lastErr   error
}

// Options configures a chat model.
type Options struct {
	Theme          *styles.Theme
	Engine         *sync.Engine
	Pipeline       *pipeline.Pipeline
	Shares         *share.Manager
	LocalState     *localstate.Store
	RevealInterval time.Duration
}

// New creates a chat model wired to the given services.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Send a message..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	interval := opts.RevealInterval
	if interval <= 0 {
		interval = reveal.DefaultInterval
	}

	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	return Model{
		state:          StateReady,
		focus:          FocusInput,
		theme:          theme,
		log:            logging.For("chat"),
		engine:         opts.Engine,
		pipe:           opts.Pipeline,
		shares:         opts.Shares,
		localState:     opts.LocalState,
		viewport:       vp,
		input:          ti,
		spinner:        components.NewSpinner(),
		keyMap:         DefaultKeyMap(),
		revealInterval: interval,
		sidebarVisible: true,
	}
}

// Init starts the cursor blink and the initial data load.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.engine != nil {
		cmds = append(cmds, LoadDataCmd(m.engine))
	}
	return tea.Batch(cmds...)
}

// WebSearch reports whether search-augmented prompting is enabled.
func (m Model) WebSearch() bool {
	return m.webSearch
}

// Revealing reports whether a reveal is currently in progress.
func (m Model) Revealing() bool {
	return m.revealer != nil && !m.revealer.Done() && !m.revealer.Stopped()
}

// finishReveal finalizes an active reveal: the full content becomes
// visible and the message is marked seen. Every teardown path (switch,
// delete, quit, skip) goes through here.
func (m *Model) finishReveal() {
	if m.revealer == nil {
		return
	}
	if !m.revealer.Done() {
		m.revealer.Stop()
		if m.pipe != nil {
			m.pipe.CompleteReveal(m.revealConvID, m.revealMsgID)
		}
	}
	m.revealer = nil
	m.revealConvID = 0
	m.revealMsgID = 0
	if m.state == StateRevealing {
		m.state = StateReady
	}
}

// setActiveConversation switches the engine's active pointer and persists
// it for the next session.
func (m *Model) setActiveConversation(id int64) {
	m.engine.SetActiveConversationID(id)
	if m.localState != nil {
		if err := m.localState.SetActiveConversation(id); err != nil {
			m.log.Warn().Err(err).Msg("failed to persist active conversation")
		}
	}
}
