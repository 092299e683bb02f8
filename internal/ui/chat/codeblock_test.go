// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/qachat/internal/model"
	"github.com/jeranaias/qachat/internal/ui/styles"
)

func TestSplitFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []segment
	}{
		{
			name: "plain",
			in:   "just text",
			want: []segment{{text: "just text"}},
		},
		{
			name: "code between prose",
			in:   "Try this:\n```go\nfmt.Println(1)\n```\nDone.",
			want: []segment{
				{text: "Try this:"},
				{code: true, language: "go", text: "fmt.Println(1)"},
				{text: "Done."},
			},
		},
		{
			name: "unclosed fence",
			in:   "```sh\nls -la",
			want: []segment{{code: true, language: "sh", text: "ls -la"}},
		},
		{
			name: "empty block",
			in:   "```\n```",
			want: []segment{{code: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, splitFences(tt.in))
		})
	}
}

func TestHighlightCodeKeepsSource(t *testing.T) {
	out := highlightCode("package main", "go")
	require.Contains(t, out, "package")
	require.Contains(t, out, "main")

	out = highlightCode("some words", "no-such-language")
	require.Contains(t, out, "some words")
}

func TestRenderPairHighlightsCompletedAnswers(t *testing.T) {
	theme := styles.NewTheme("dark")
	theme.SetSize(80, 24)
	p := model.QAPair{ID: 1, Question: "how?", Answer: "Run:\n```sh\necho hi\n```"}

	done := renderPair(theme, p, 80, false, true)
	require.NotContains(t, done, "```")
	require.Contains(t, done, "echo")

	streaming := renderPair(theme, p, 80, true, true)
	require.Contains(t, streaming, "```")

	plain := renderPair(theme, p, 80, false, false)
	require.True(t, strings.Contains(plain, "```"))
}
