// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for qachat.

# Color System (colors.go)

  - Cyan - questions, brand
  - Purple - answers, selections
  - Emerald - logged-in badge, streaming indicator
  - Amber - login required, warnings
  - Rose - errors, logout confirmation

Every color is a lipgloss.AdaptiveColor; ApplyTheme pins light or dark
when the user overrides detection.

# Theme (theme.go)

Theme bundles the lipgloss styles used by the TUI and the REPL:

	theme := styles.NewTheme("auto")
	fmt.Println(theme.QuestionLabel.Render("Q:"), question)
*/
package styles
