// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive line-mode chat for qachat.
//
// Command: chat
// Short:   Start an interactive chat session in line mode
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /clear, /c          Clear the local conversation view
//   /history [n]        Show the last n pairs
//   /stream [on|off]    Show or switch streaming
//   /logout             Log out and exit
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel the current answer
//   Ctrl+D              Exit chat

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/qachat/internal/api"
	"github.com/jeranaias/qachat/internal/config"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	c := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads input history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		if _, err := c.line.ReadHistory(f); err != nil {
			log.Debug().Err(err).Msg("could not read input history")
		}
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists input history with 0600 permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := c.line.WriteHistory(f); err != nil {
		log.Debug().Err(err).Msg("could not save input history")
	}
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// chatSession holds the state of one REPL run.
type chatSession struct {
	app   *app
	in    lineReader
	out   io.Writer
	user  string
	quiet bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// setCancel records the cancel function of the answer in flight.
func (s *chatSession) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// interrupt cancels the answer in flight. Reports whether one was running.
func (s *chatSession) interrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	s.cancel = nil
	return true
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

func newChatCommand(opts *globalOptions) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session in line mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}

			var in lineReader
			if isTerminal(cmd.InOrStdin()) {
				in = NewChatCLI()
			} else {
				in = newPlainReader(cmd.InOrStdin())
			}
			defer in.Close()

			// Ctrl+C cancels the answer in flight, not the session.
			ctx := context.WithoutCancel(cmd.Context())
			s := &chatSession{app: a, in: in, out: cmd.OutOrStdout(), quiet: quiet}
			return s.run(ctx)
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "minimal output")
	return cmd
}

// run bootstraps the session and loops until the user exits.
func (s *chatSession) run(ctx context.Context) error {
	if err := s.bootstrap(ctx); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()
	go func() {
		for range sigChan {
			if s.interrupt() {
				fmt.Fprintln(s.out, "\n"+WarningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := s.in.ReadInput(PromptStyle.Render("qachat> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D or EOF end the session.
			fmt.Fprintln(s.out)
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := s.handleSlashCommand(ctx, input)
			if err != nil {
				fmt.Fprintf(s.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := s.processMessage(ctx, input); err != nil {
			fmt.Fprintf(s.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
			if errors.Is(err, errLoginRequired) {
				return nil
			}
		}
	}
}

var errLoginRequired = errors.New("login required")

// bootstrap loads the user and history and prints the welcome banner.
func (s *chatSession) bootstrap(ctx context.Context) error {
	res, err := s.app.loader.Load(ctx, s.app.store)
	if res == nil {
		return err
	}

	s.user = res.Username()
	switch {
	case res.Unauthenticated && s.app.cfg.Server.RequireLogin:
		return &loginError{err: errors.Wrap(api.ErrUnauthenticated, "session rejected"), url: res.LoginURL}
	case res.Unauthenticated:
		fmt.Fprintf(s.out, "Not logged in. Log in at %s\n", LinkStyle.Render(res.LoginURL))
	case err != nil:
		fmt.Fprintf(s.out, "%s %v\n", WarningStyle.Render("[Warning]"), err)
	}

	if !s.quiet {
		s.printWelcome()
	}
	return nil
}

func (s *chatSession) printWelcome() {
	fmt.Fprintln(s.out, TitleStyle.Render("qachat")+" "+DimStyle.Render(s.app.client.BaseURL()))
	if s.user != "" {
		fmt.Fprintf(s.out, "%s %s\n", RenderLabel("User"), ValueStyle.Render(s.user))
	}
	fmt.Fprintf(s.out, "%s %d pairs\n", RenderLabel("History"), s.app.store.Len())
	fmt.Fprintf(s.out, "%s %s\n", RenderLabel("Streaming"), onOff(s.app.ctl.Stream()))
	fmt.Fprintln(s.out, DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Fprintln(s.out)
}

// processMessage submits one question and prints its answer.
func (s *chatSession) processMessage(ctx context.Context, question string) error {
	if s.app.cfg.Server.RequireLogin && s.user == "" {
		return errLoginRequired
	}

	ctx, cancel := context.WithCancel(ctx)
	s.setCancel(cancel)
	defer s.interrupt()

	stream := s.app.ctl.Stream()
	wrote := false
	err := s.app.ctl.Submit(ctx, question, func(fragment string) {
		if stream {
			fmt.Fprint(s.out, fragment)
			wrote = true
		}
	})
	if stream && wrote {
		fmt.Fprintln(s.out)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if api.IsUnauthenticated(err) {
			s.user = ""
		}
		return s.app.unauthenticated(err)
	}

	if !stream {
		last, _ := s.app.store.Last()
		displayAnswer(s.out, last.Answer, s.app.cfg.UI.Markdown)
	}
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs a REPL command. Returns false to end the session.
func (s *chatSession) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	fields := strings.Fields(input)
	name := strings.ToLower(fields[0])
	args := fields[1:]

	switch name {
	case "/help", "/h", "/?":
		s.printHelp()

	case "/clear", "/c":
		if s.app.store.IsEmpty() {
			fmt.Fprintln(s.out, DimStyle.Render("Nothing to clear."))
			break
		}
		s.app.store.Reset()
		fmt.Fprintln(s.out, DimStyle.Render("Conversation cleared."))

	case "/history":
		n := 10
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return true, errors.Errorf("invalid count %q", args[0])
			}
			n = v
		}
		printPairs(s.out, s.app.store.Pairs(), n, GetTerminalWidth()-10)

	case "/stream":
		if len(args) > 0 {
			switch strings.ToLower(args[0]) {
			case "on", "true", "1":
				s.app.ctl.SetStream(true)
			case "off", "false", "0":
				s.app.ctl.SetStream(false)
			default:
				return true, errors.Errorf("usage: /stream [on|off]")
			}
		} else {
			s.app.ctl.SetStream(!s.app.ctl.Stream())
		}
		fmt.Fprintf(s.out, "Streaming %s\n", onOff(s.app.ctl.Stream()))

	case "/logout":
		if s.user == "" {
			fmt.Fprintf(s.out, "Not logged in. Log in at %s\n", LinkStyle.Render(s.app.client.LoginURL("")))
			return true, nil
		}
		answer, err := s.in.ReadInput(fmt.Sprintf("Log out %s? [y/N] ", s.user))
		if err != nil || !isYes(answer) {
			return true, nil
		}
		if err := s.app.client.Logout(ctx); err != nil {
			return true, errors.Wrap(err, "logout failed")
		}
		fmt.Fprintf(s.out, "Logged out. Log in again at %s\n", LinkStyle.Render(s.app.client.LoginURL("")))
		return false, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, errors.Errorf("unknown command %s (try /help)", name)
	}
	return true, nil
}

func (s *chatSession) printHelp() {
	rows := [][2]string{
		{"/help", "show this help"},
		{"/clear", "clear the local conversation view"},
		{"/history [n]", "show the last n pairs"},
		{"/stream [on|off]", "show or switch streaming"},
		{"/logout", "log out and exit"},
		{"/quit", "exit"},
	}
	for _, r := range rows {
		fmt.Fprintf(s.out, "  %-18s %s\n", r[0], DimStyle.Render(r[1]))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func onOff(b bool) string {
	if b {
		return SuccessStyle.Render("on")
	}
	return WarningStyle.Render("off")
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

// plainReader reads lines from a non-terminal input.
type plainReader struct {
	scanner *bufio.Scanner
}

func newPlainReader(r io.Reader) *plainReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxQuestionSize)
	return &plainReader{scanner: sc}
}

func (p *plainReader) ReadInput(prompt string) (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

func (p *plainReader) Close() {}
