// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	UserBadge   lipgloss.Style
	LoginBadge  lipgloss.Style

	// ==========================================================================
	// CONVERSATION STYLES
	// ==========================================================================

	QuestionLabel lipgloss.Style
	Question      lipgloss.Style
	AnswerLabel   lipgloss.Style
	Answer        lipgloss.Style
	CodeBlock     lipgloss.Style
	Separator     lipgloss.Style
	EmptyState    lipgloss.Style

	// ==========================================================================
	// INPUT / STATUS STYLES
	// ==========================================================================

	InputBorder   lipgloss.Style
	InputDisabled lipgloss.Style
	StatusBar     lipgloss.Style
	StreamOn      lipgloss.Style
	StreamOff     lipgloss.Style
	Spinner       lipgloss.Style
	Help          lipgloss.Style

	// ==========================================================================
	// FEEDBACK STYLES
	// ==========================================================================

	Error   lipgloss.Style
	Warning lipgloss.Style
	Confirm lipgloss.Style
	Link    lipgloss.Style
}

// ApplyTheme pins lipgloss to a light or dark background.
// "auto" leaves terminal detection in charge.
func ApplyTheme(name string) {
	switch name {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}
}

// NewTheme applies name and builds all styles.
func NewTheme(name string) *Theme {
	ApplyTheme(name)

	isDark := lipgloss.HasDarkBackground()
	if name == "auto" || name == "" {
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.UserBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Emerald).
		Padding(0, 1)
	t.LoginBadge = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Amber).
		Bold(true).
		Padding(0, 1)

	t.QuestionLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.Question = lipgloss.NewStyle().
		Foreground(QuestionFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(QuestionBorder).
		PaddingLeft(1)
	t.AnswerLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)
	t.Answer = lipgloss.NewStyle().
		Foreground(AnswerFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AnswerBorder).
		PaddingLeft(1)
	t.CodeBlock = lipgloss.NewStyle().
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(Overlay).
		PaddingLeft(1)
	t.Separator = lipgloss.NewStyle().
		Foreground(Overlay)
	t.EmptyState = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.InputBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Cyan)
	t.InputDisabled = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(TextMuted)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StreamOn = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)
	t.StreamOff = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple)
	t.Help = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Error = lipgloss.NewStyle().
		Foreground(ErrorHighContrast).
		Bold(true)
	t.Warning = lipgloss.NewStyle().
		Foreground(WarningHighContrast)
	t.Confirm = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Rose).
		Bold(true).
		Padding(0, 1)
	t.Link = lipgloss.NewStyle().
		Foreground(LinkColor).
		Underline(true)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// ContentWidth returns the usable width inside the conversation borders.
func (t *Theme) ContentWidth() int {
	w := t.Width - 4
	if w < 20 {
		w = 20
	}
	return w
}
