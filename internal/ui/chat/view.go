// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/talkerhq/talker-tui/internal/model"
	"github.com/talkerhq/talker-tui/internal/reveal"
	"github.com/talkerhq/talker-tui/internal/ui/components"
)

// Fixed-height chrome around the viewport: header (1), spinner/banner
// line (1), input (3), status bar (1).
const chromeHeight = 6

const sidebarWidth = 28

// timeNow is swapped in tests to pin conversation grouping.
var timeNow = time.Now

// sidebarBuckets fixes the display order of conversation groups.
var sidebarBuckets = []struct {
	key   string
	label string
}{
	{model.BucketToday, "Today"},
	{model.BucketYesterday, "Yesterday"},
	{model.BucketPrevious7Days, "Previous 7 days"},
	{model.BucketPrevious30Days, "Previous 30 days"},
}

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the complete chat screen.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	overlay := m.renderOverlayLine()
	input := m.renderInput()
	status := m.renderStatusBar()

	column := lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		m.viewport.View(),
		overlay,
		input,
		status,
	)

	if !m.sidebarVisible {
		return column
	}

	sidebar := m.renderSidebar()
	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, column)
}

// =============================================================================
// CHROME
// =============================================================================

func (m Model) renderHeader() string {
	title := "New chat"
	if conv := m.engine.ConversationByID(m.engine.ActiveConversationID()); conv != nil {
		title = conv.DisplayTitle()
	}

	left := m.theme.HeaderTitle.Render("TalKer") + "  " + title

	var right string
	if m.webSearch {
		right = m.theme.ShortcutKey.Render("[web]")
	}

	gap := m.chatWidth() - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.chatWidth()).
		Render(left + strings.Repeat(" ", gap) + right)
}

// renderOverlayLine holds the spinner while thinking or the share banner
// after issuing a link.
func (m Model) renderOverlayLine() string {
	switch {
	case m.spinner.IsActive():
		return m.spinner.View(m.theme)
	case m.shareBanner.Visible():
		return m.shareBanner.View(m.theme)
	default:
		return components.ScrollIndicator(m.theme, m.viewport.AtTop(), m.viewport.AtBottom())
	}
}

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.chatWidth() - 2).Render(m.input.View())
}

func (m Model) renderStatusBar() string {
	if m.statusMsg != "" {
		return m.theme.StatusBar.Width(m.chatWidth()).Render(m.statusMsg)
	}

	shortcuts := []string{
		m.theme.ShortcutKey.Render("Tab") + m.theme.ShortcutDesc.Render(" sidebar"),
		m.theme.ShortcutKey.Render("C-n") + m.theme.ShortcutDesc.Render(" new"),
		m.theme.ShortcutKey.Render("C-s") + m.theme.ShortcutDesc.Render(" share"),
		m.theme.ShortcutKey.Render("C-w") + m.theme.ShortcutDesc.Render(" web"),
		m.theme.ShortcutKey.Render("C-c") + m.theme.ShortcutDesc.Render(" quit"),
	}
	return m.theme.StatusBar.Width(m.chatWidth()).
		Render(strings.Join(shortcuts, "  "))
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar() string {
	var b strings.Builder
	entries := m.sidebarEntries()
	activeID := m.engine.ActiveConversationID()

	idx := 0
	grouped := model.GroupByTime(m.engine.Conversations(), timeNow())
	for _, bucket := range sidebarBuckets {
		convs := grouped[bucket.key]
		if len(convs) == 0 {
			continue
		}
		b.WriteString(m.theme.GroupHeader.Render(bucket.label))
		b.WriteString("\n")
		for range convs {
			conv := entries[idx]
			style := m.theme.ConversationItem
			cursor := "  "
			if conv.ConversationID == activeID {
				style = m.theme.ConversationActive
			}
			if m.focus == FocusSidebar && idx == m.sidebarIndex {
				cursor = "> "
			}
			b.WriteString(style.Render(cursor + truncate(conv.DisplayTitle(), sidebarWidth-4)))
			b.WriteString("\n")
			idx++
		}
	}
	if idx == 0 {
		b.WriteString(m.theme.ConversationPreview.Render("No conversations yet"))
	}

	height := m.height
	if height < 1 {
		height = 1
	}
	return m.theme.Sidebar.Width(sidebarWidth).Height(height).Render(b.String())
}

// =============================================================================
// MESSAGES
// =============================================================================

// refreshViewport rebuilds the viewport content from the engine's local
// state and the active revealer.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
}

func (m Model) renderMessages() string {
	activeID := m.engine.ActiveConversationID()
	if activeID == 0 {
		return m.theme.ConversationPreview.Render("Start a new conversation below.")
	}

	msgs := m.engine.Messages(activeID)
	width := m.chatWidth() - 2

	var parts []string
	for _, msg := range msgs {
		if msg.IsPlaceholder() {
			// Pending placeholder; the spinner line covers it.
			continue
		}
		parts = append(parts, m.renderMessage(msg, width))
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) renderMessage(msg *model.Message, width int) string {
	label := m.theme.SenderLabel.Render(msg.Sender.DisplayName())

	var body string
	if m.revealer != nil && msg.ID == m.revealMsgID {
		body = components.RenderChunks(m.revealer.VisibleChunks(), m.theme, width)
		body += m.theme.RevealCursor.Render("_")
	} else {
		body = components.RenderChunks(reveal.Split(msg.Content), m.theme, width)
	}

	bubble := m.theme.AssistantBubble
	if msg.Sender == model.SenderUser {
		bubble = m.theme.UserBubble
	}
	return label + "\n" + bubble.MaxWidth(width).Render(body)
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max || max < 4 {
		return s
	}
	return string(runes[:max-3]) + "..."
}
