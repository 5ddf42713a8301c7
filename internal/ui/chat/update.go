// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/reveal"
	"github.com/talkerhq/talker-tui/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case reveal.TickMsg:
		return m.handleRevealTick()

	case components.ShareBannerExpiredMsg:
		m.shareBanner.Hide()
		return m, nil

	case DataLoadedMsg:
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Msg("initial load failed, starting from local state")
			m.statusMsg = "offline: could not reach store"
		}
		m.clampSidebarIndex()
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case TurnDoneMsg:
		return m.handleTurnDone(msg)

	case ConversationOpenedMsg:
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Int64("conversation_id", msg.ConversationID).
				Msg("failed to fetch conversation messages")
			m.statusMsg = "could not fetch messages"
		}
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case ShareIssuedMsg:
		if msg.Err != nil {
			m.log.Warn().Err(msg.Err).Msg("share failed")
			m.statusMsg = "could not create shared link"
			return m, nil
		}
		return m, m.shareBanner.Show(msg.Link.LinkIDToken)

	case StatusMsg:
		m.statusMsg = msg.Text
		return m, nil
	}

	// Spinner frames and cursor blink flow through the components.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.finishReveal()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.ToggleSidebar):
		if m.focus == FocusInput {
			m.focus = FocusSidebar
			m.input.Blur()
			m.clampSidebarIndex()
		} else {
			m.focus = FocusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.NewChat):
		m.finishReveal()
		m.setActiveConversation(0)
		m.focus = FocusInput
		m.input.Focus()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keyMap.Share):
		id := m.engine.ActiveConversationID()
		if id == 0 {
			m.statusMsg = "nothing to share yet"
			return m, nil
		}
		return m, IssueShareCmd(m.shares, id)

	case key.Matches(msg, m.keyMap.WebSearch):
		m.webSearch = !m.webSearch
		return m, nil

	case key.Matches(msg, m.keyMap.DeleteChat):
		return m.handleDeleteChat()

	case key.Matches(msg, m.keyMap.SkipReveal):
		if m.Revealing() {
			m.finishReveal()
			m.refreshViewport()
			m.viewport.GotoBottom()
			return m, nil
		}
		if m.focus == FocusSidebar {
			m.focus = FocusInput
			m.input.Focus()
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		if m.focus == FocusSidebar {
			if m.sidebarIndex > 0 {
				m.sidebarIndex--
			}
			return m, nil
		}
		if m.Revealing() {
			m.revealer.SuspendFollow()
		}
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		if m.focus == FocusSidebar {
			if m.sidebarIndex < len(m.sidebarEntries())-1 {
				m.sidebarIndex++
			}
			return m, nil
		}
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		if m.Revealing() {
			m.revealer.SuspendFollow()
		}
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		if m.focus == FocusSidebar {
			return m.handleOpenSelected()
		}
		return m.handleSubmit()
	}

	if m.focus == FocusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleSubmit starts a pipeline turn for the typed message.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	if m.state != StateReady {
		return m, nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	m.input.Reset()
	m.statusMsg = ""
	m.state = StateThinking
	m.spinner.SetMessage("Thinking")

	return m, tea.Batch(
		m.spinner.Start(),
		SendTurnCmd(m.pipe, text, m.webSearch),
	)
}

// handleOpenSelected switches to the conversation under the sidebar cursor.
func (m Model) handleOpenSelected() (tea.Model, tea.Cmd) {
	entries := m.sidebarEntries()
	if m.sidebarIndex < 0 || m.sidebarIndex >= len(entries) {
		return m, nil
	}
	selected := entries[m.sidebarIndex]
	if selected.ConversationID == m.engine.ActiveConversationID() {
		m.focus = FocusInput
		m.input.Focus()
		return m, nil
	}

	m.finishReveal()
	m.setActiveConversation(selected.ConversationID)
	m.focus = FocusInput
	m.input.Focus()
	m.refreshViewport()
	return m, OpenConversationCmd(m.engine, selected.ConversationID)
}

// handleDeleteChat removes the selected (sidebar focus) or active
// conversation, its messages, and its shared links.
func (m Model) handleDeleteChat() (tea.Model, tea.Cmd) {
	var id int64
	if m.focus == FocusSidebar {
		entries := m.sidebarEntries()
		if m.sidebarIndex < 0 || m.sidebarIndex >= len(entries) {
			return m, nil
		}
		id = entries[m.sidebarIndex].ConversationID
	} else {
		id = m.engine.ActiveConversationID()
	}
	if id == 0 {
		return m, nil
	}

	if m.revealConvID == id {
		m.finishReveal()
	}
	m.engine.DeleteConversation(id)
	if m.localState != nil {
		if err := m.localState.SetActiveConversation(m.engine.ActiveConversationID()); err != nil {
			m.log.Warn().Err(err).Msg("failed to persist active conversation")
		}
	}
	m.clampSidebarIndex()
	m.refreshViewport()
	m.statusMsg = "conversation deleted"
	return m, nil
}

// =============================================================================
// TURN AND REVEAL HANDLING
// =============================================================================

// handleTurnDone wires the filled assistant message into a revealer.
func (m Model) handleTurnDone(msg TurnDoneMsg) (tea.Model, tea.Cmd) {
	m.spinner.Stop()
	m.state = StateReady
	m.clampSidebarIndex()

	if msg.Err != nil {
		m.log.Error().Err(msg.Err).Msg("turn failed")
		m.statusMsg = "something went wrong"
		m.refreshViewport()
		return m, nil
	}

	turn := msg.Turn
	if turn.Assistant == nil || turn.Assistant.Content == "" {
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil
	}

	convID := turn.ConversationID
	msgID := turn.Assistant.ID
	pipe := m.pipe
	m.revealer = reveal.New(turn.Assistant.Content, m.revealInterval, func() {
		pipe.CompleteReveal(convID, msgID)
	})
	m.revealConvID = convID
	m.revealMsgID = msgID
	m.state = StateRevealing

	// Follow is decided once per message, from where the viewport sat when
	// the answer arrived. A later SuspendFollow sticks until the next turn.
	m.revealer.ArmFollow(m.viewport.AtBottom())
	m.refreshViewport()
	if m.revealer.FollowArmed() {
		m.viewport.GotoBottom()
	}
	return m, m.revealer.TickCmd()
}

// handleRevealTick advances the reveal by one rune.
func (m Model) handleRevealTick() (tea.Model, tea.Cmd) {
	if m.revealer == nil || m.revealer.Stopped() {
		return m, nil
	}

	m.revealer.Tick()
	m.refreshViewport()
	if m.revealer.FollowArmed() {
		m.viewport.GotoBottom()
	}

	if m.revealer.Done() {
		m.revealer = nil
		m.revealConvID = 0
		m.revealMsgID = 0
		m.state = StateReady
		return m, nil
	}
	return m, m.revealer.TickCmd()
}

// =============================================================================
// LAYOUT
// =============================================================================

// handleResize recomputes component dimensions.
func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	chatWidth := m.chatWidth()
	// Header, input area, and status bar are fixed-height chrome.
	viewportHeight := m.height - chromeHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}
	m.viewport.Width = chatWidth
	m.viewport.Height = viewportHeight
	m.input.Width = chatWidth - 4
	m.refreshViewport()
	return m
}

// chatWidth is the width of the message column, excluding the sidebar.
func (m Model) chatWidth() int {
	w := m.width
	if m.sidebarVisible {
		w -= sidebarWidth
	}
	if w < 20 {
		w = 20
	}
	return w
}

// sidebarEntries flattens the grouped conversation list into display order.
func (m Model) sidebarEntries() []*model.Conversation {
	convs := m.engine.Conversations()
	grouped := model.GroupByTime(convs, timeNow())

	var entries []*model.Conversation
	for _, bucket := range sidebarBuckets {
		entries = append(entries, grouped[bucket.key]...)
	}
	return entries
}

func (m *Model) clampSidebarIndex() {
	n := len(m.sidebarEntries())
	if m.sidebarIndex >= n {
		m.sidebarIndex = n - 1
	}
	if m.sidebarIndex < 0 {
		m.sidebarIndex = 0
	}
}
