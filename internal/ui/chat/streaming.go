// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/qachat/internal/model"
	"github.com/jeranaias/qachat/internal/ui/styles"
)

// =============================================================================
// FRAME THROTTLE
// =============================================================================

// renderInterval caps viewport rebuilds at ~30fps while answers stream.
const renderInterval = 33 * time.Millisecond

// renderTick schedules the next throttled refresh.
func renderTick() tea.Cmd {
	return tea.Tick(renderInterval, func(time.Time) tea.Msg {
		return renderTickMsg{}
	})
}

// =============================================================================
// RENDER CACHE
// =============================================================================

// renderCache keeps the rendered text of every pair except the newest.
// Only the newest answer grows, so streaming re-renders one pair per frame.
type renderCache struct {
	highlight bool

	width  int
	count  int
	first  model.PairID
	last   model.PairID
	prefix string
}

// render returns the conversation text for pairs at width.
func (rc *renderCache) render(theme *styles.Theme, pairs []model.QAPair, width int, pending bool) string {
	if len(pairs) == 0 {
		rc.reset()
		return theme.EmptyState.Render("No conversation yet. Ask a question below.")
	}

	older := pairs[:len(pairs)-1]
	if !rc.valid(older, width) {
		var b strings.Builder
		for _, p := range older {
			b.WriteString(renderPair(theme, p, width, false, rc.highlight))
			b.WriteString("\n")
		}
		rc.prefix = b.String()
		rc.width = width
		rc.count = len(older)
		if len(older) > 0 {
			rc.first = older[0].ID
			rc.last = older[len(older)-1].ID
		}
	}

	return rc.prefix + renderPair(theme, pairs[len(pairs)-1], width, pending, rc.highlight)
}

// reset drops the cached prefix. The highlight setting is kept.
func (rc *renderCache) reset() {
	*rc = renderCache{highlight: rc.highlight}
}

func (rc *renderCache) valid(older []model.QAPair, width int) bool {
	if rc.width != width || rc.count != len(older) {
		return false
	}
	if len(older) == 0 {
		return true
	}
	return rc.first == older[0].ID && rc.last == older[len(older)-1].ID
}

// renderPair renders one question and its answer. Code fences are
// highlighted once the answer is complete.
func renderPair(theme *styles.Theme, p model.QAPair, width int, pending, highlight bool) string {
	inner := width - 2
	if inner < 10 {
		inner = 10
	}

	q := theme.QuestionLabel.Render("Q:") + "\n" +
		theme.Question.Width(inner).Render(p.Question)

	answer := p.Answer
	if answer == "" && pending {
		answer = "..."
	}
	body := theme.Answer.Width(inner).Render(answer)
	if highlight && !pending {
		body = renderAnswerBody(theme, answer, inner)
	}
	a := theme.AnswerLabel.Render("A:") + "\n" + body

	return q + "\n" + a + "\n"
}
