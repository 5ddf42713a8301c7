// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/talkerhq/talker-tui/internal/ui/styles"
)

// =============================================================================
// SHARE BANNER
// =============================================================================

// ShareBannerDuration is how long the confirmation banner stays visible.
const ShareBannerDuration = 5 * time.Second

// ShareBannerExpiredMsg signals that the banner should be hidden.
type ShareBannerExpiredMsg struct{}

// ShareBanner shows the token of a freshly issued shared link.
type ShareBanner struct {
	token   string
	visible bool
}

// Show displays the banner for the given token and schedules its expiry.
func (b *ShareBanner) Show(token string) tea.Cmd {
	b.token = token
	b.visible = true
	return tea.Tick(ShareBannerDuration, func(time.Time) tea.Msg {
		return ShareBannerExpiredMsg{}
	})
}

// Hide removes the banner.
func (b *ShareBanner) Hide() {
	b.visible = false
}

// Visible reports whether the banner is currently shown.
func (b *ShareBanner) Visible() bool {
	return b.visible
}

// View renders the banner line, or an empty string when hidden.
func (b ShareBanner) View(theme *styles.Theme) string {
	if !b.visible {
		return ""
	}
	return theme.ShareBanner.Render(
		"Link shared: " + theme.ShareToken.Render(b.token) + " (copied token)")
}

// =============================================================================
// SCROLL INDICATOR
// =============================================================================

// ScrollIndicator renders a hint when older or newer content is off-screen.
func ScrollIndicator(theme *styles.Theme, atTop, atBottom bool) string {
	switch {
	case atTop && atBottom:
		return ""
	case atBottom:
		return theme.ShortcutDesc.Render("^ older messages")
	case atTop:
		return theme.ShortcutDesc.Render("v newer messages")
	default:
		return theme.ShortcutDesc.Render("^ v more")
	}
}
