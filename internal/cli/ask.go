// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single question command for qachat.
//
// Command: ask
// Short:   Ask one question and print the answer
//
// Examples:
//   qachat ask "What is a vector store?"
//   echo "Summarise the docs" | qachat ask -
//   qachat ask --no-stream --raw "List three options"

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// MaxQuestionSize caps questions read from stdin (64KB).
const MaxQuestionSize = 64 * 1024

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

var (
	markdownOnce     sync.Once
	markdownRenderer *glamour.TermRenderer
)

// renderMarkdown renders content for the terminal. Returns content unchanged
// if the renderer cannot be built or fails.
func renderMarkdown(content string) string {
	markdownOnce.Do(func() {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(GetTerminalWidth()-4),
		)
		if err == nil {
			markdownRenderer = r
		}
	})
	if markdownRenderer == nil {
		return content
	}

	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayAnswer prints a whole answer, as markdown when w is a terminal.
func displayAnswer(w io.Writer, answer string, markdown bool) {
	if markdown && w == io.Writer(os.Stdout) && IsStdoutTTY() {
		fmt.Fprint(w, renderMarkdown(answer))
		return
	}
	fmt.Fprint(w, answer)
	if !strings.HasSuffix(answer, "\n") {
		fmt.Fprintln(w)
	}
}

// =============================================================================
// ASK COMMAND
// =============================================================================

func newAskCommand(opts *globalOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask one question and print the answer",
		Long: `Ask sends one question and prints the answer.

Use "-" (or pipe text with no arguments) to read the question from stdin.
Streamed answers are printed as they arrive; whole answers are rendered
as markdown on a terminal unless --raw is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := readQuestion(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			return runAsk(cmd, a, question, !raw && a.cfg.UI.Markdown)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the answer without markdown rendering")
	return cmd
}

// readQuestion joins args, or reads stdin for "-" or piped input.
func readQuestion(in io.Reader, args []string) (string, error) {
	fromStdin := len(args) == 1 && args[0] == "-"
	if len(args) == 0 {
		if isTerminal(in) {
			return "", newUsageError("no question given")
		}
		fromStdin = true
	}

	var question string
	if fromStdin {
		data, err := io.ReadAll(io.LimitReader(in, MaxQuestionSize+1))
		if err != nil {
			return "", errors.Wrap(err, "read question")
		}
		if len(data) > MaxQuestionSize {
			return "", newUsageError("question exceeds %d bytes", MaxQuestionSize)
		}
		question = string(data)
	} else {
		question = strings.Join(args, " ")
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return "", newUsageError("question is empty")
	}
	return question, nil
}

// runAsk submits question through the controller and prints the answer.
func runAsk(cmd *cobra.Command, a *app, question string, markdown bool) error {
	out := cmd.OutOrStdout()
	stream := a.ctl.Stream()

	wrote := false
	err := a.ctl.Submit(cmd.Context(), question, func(fragment string) {
		if stream {
			fmt.Fprint(out, fragment)
			wrote = true
		}
	})
	if err != nil {
		if wrote {
			fmt.Fprintln(out)
		}
		return NewCommandError("ask", "", a.unauthenticated(err))
	}

	if stream {
		fmt.Fprintln(out)
		return nil
	}
	last, _ := a.store.Last()
	displayAnswer(out, last.Answer, markdown)
	return nil
}
