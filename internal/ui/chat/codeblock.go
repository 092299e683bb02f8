// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/qachat/internal/ui/styles"
)

// =============================================================================
// FENCED CODE SEGMENTS
// =============================================================================

// segment is a run of answer text, either prose or one fenced code block.
type segment struct {
	code     bool
	language string
	text     string
}

// splitFences splits text on ``` fences. An unclosed fence runs to the end.
func splitFences(text string) []segment {
	var (
		segs   []segment
		cur    []string
		inCode bool
		lang   string
	)

	flush := func() {
		if len(cur) == 0 && !inCode {
			return
		}
		segs = append(segs, segment{code: inCode, language: lang, text: strings.Join(cur, "\n")})
		cur = nil
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			flush()
			if inCode {
				inCode, lang = false, ""
			} else {
				inCode = true
				lang = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
			}
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return segs
}

// =============================================================================
// ANSWER RENDERING
// =============================================================================

// renderAnswerBody renders prose wrapped to inner and code blocks highlighted
// and unwrapped.
func renderAnswerBody(theme *styles.Theme, answer string, inner int) string {
	segs := splitFences(answer)
	if len(segs) == 0 {
		return theme.Answer.Width(inner).Render(answer)
	}

	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if !s.code {
			parts = append(parts, theme.Answer.Width(inner).Render(s.text))
			continue
		}
		code := strings.TrimRight(s.text, "\n")
		parts = append(parts, theme.CodeBlock.Render(highlightCode(code, s.language)))
	}
	return strings.Join(parts, "\n")
}

// highlightCode applies terminal syntax highlighting. Returns code unchanged
// on failure.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
