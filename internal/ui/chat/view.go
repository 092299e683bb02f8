// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/qachat/internal/util"
)

// View renders the chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatus(),
		m.theme.Help.Render(m.help.View(m.keys)),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// SECTIONS
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("qachat")

	var badge string
	switch {
	case m.loading:
		badge = m.theme.Help.Render("connecting...")
	case m.user != "":
		badge = m.theme.UserBadge.Render(m.user)
	case m.requireLogin || m.unauthenticated:
		badge = m.theme.LoginBadge.Render("LOGIN")
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(badge)
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Render(title + strings.Repeat(" ", gap) + badge)
}

func (m Model) renderInput() string {
	style := m.theme.InputBorder
	if !m.canSubmit() {
		style = m.theme.InputDisabled
	}
	return style.Width(m.width - inputChrome).Render(m.input.View())
}

func (m Model) renderStatus() string {
	var parts []string

	if m.ctl.Stream() {
		parts = append(parts, m.theme.StreamOn.Render("stream on"))
	} else {
		parts = append(parts, m.theme.StreamOff.Render("stream off"))
	}

	switch {
	case m.loading:
		parts = append(parts, m.spinner.View()+" Loading session...")
	case m.loggingOut:
		parts = append(parts, m.spinner.View()+" Logging out...")
	case m.ctl.Busy():
		parts = append(parts, m.spinner.View()+" Answering...")
	}

	switch {
	case m.confirmLogout:
		parts = append(parts, m.theme.Confirm.Render(m.status))
	case m.lastErr != nil:
		parts = append(parts, m.theme.Error.Render("Error: "+util.Preview(m.lastErr.Error(), 120)))
	case m.unauthenticated && m.loginURL != "":
		parts = append(parts, m.theme.Warning.Render("Log in:")+" "+m.theme.Link.Render(m.loginURL))
	case m.status != "" && !m.loggingOut:
		parts = append(parts, m.status)
	}

	line := strings.Join(parts, "  ")
	return m.theme.StatusBar.Render(util.TruncateWidth(line, max(m.width, 20)))
}
