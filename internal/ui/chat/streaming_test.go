// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/qachat/internal/model"
	"github.com/jeranaias/qachat/internal/ui/styles"
)

func TestRenderCache_EmptyHistoryDropsPrefix(t *testing.T) {
	theme := styles.NewTheme("dark")
	rc := &renderCache{}

	old := []model.QAPair{
		{ID: 1, Question: "first-old-question", Answer: "a1"},
		{ID: 2, Question: "second-old-question", Answer: "a2"},
		{ID: 3, Question: "third-old-question", Answer: "a3"},
	}
	out := rc.render(theme, old, 60, false)
	require.Contains(t, out, "first-old-question")

	out = rc.render(theme, nil, 60, false)
	require.NotContains(t, out, "old-question")

	out = rc.render(theme, []model.QAPair{{ID: 4, Question: "fresh"}}, 60, true)
	require.Contains(t, out, "fresh")
	require.NotContains(t, out, "first-old-question")
	require.NotContains(t, out, "second-old-question")
}

func TestRenderCache_ReusesPrefixWhileStreaming(t *testing.T) {
	theme := styles.NewTheme("dark")
	rc := &renderCache{}

	pairs := []model.QAPair{
		{ID: 1, Question: "q1", Answer: "a1"},
		{ID: 2, Question: "q2", Answer: "par"},
	}
	rc.render(theme, pairs, 60, true)
	prefix := rc.prefix
	require.Contains(t, prefix, "q1")

	pairs[1].Answer = "partial"
	out := rc.render(theme, pairs, 60, true)
	require.Equal(t, prefix, rc.prefix)
	require.Contains(t, out, "partial")

	// A replaced history with new IDs rebuilds the prefix.
	replaced := []model.QAPair{
		{ID: 5, Question: "other", Answer: "x"},
		{ID: 6, Question: "latest", Answer: "y"},
	}
	out = rc.render(theme, replaced, 60, false)
	require.NotContains(t, out, "q1")
	require.Contains(t, out, "other")
}
