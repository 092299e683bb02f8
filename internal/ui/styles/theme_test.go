// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestNewTheme_PinnedBackground(t *testing.T) {
	prev := lipgloss.HasDarkBackground()
	defer lipgloss.SetHasDarkBackground(prev)

	if th := NewTheme("dark"); !th.IsDark {
		t.Error("dark theme should report IsDark")
	}
	if th := NewTheme("light"); th.IsDark {
		t.Error("light theme should not report IsDark")
	}
}

func TestTheme_ContentWidth(t *testing.T) {
	th := NewTheme("dark")

	th.SetSize(100, 40)
	if got := th.ContentWidth(); got != 96 {
		t.Errorf("ContentWidth() = %d, want 96", got)
	}

	th.SetSize(10, 5)
	if got := th.ContentWidth(); got != 20 {
		t.Errorf("ContentWidth() narrow = %d, want 20", got)
	}
}
