// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	chatctl "github.com/jeranaias/qachat/internal/chat"
	"github.com/jeranaias/qachat/internal/model"
	"github.com/jeranaias/qachat/internal/session"
	"github.com/jeranaias/qachat/internal/ui/styles"
)

// Sender delivers messages to the running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Auth is the part of the API client the view needs for logout.
type Auth interface {
	Logout(ctx context.Context) error
	LoginURL(returnTo string) string
}

// Options configures a chat Model.
type Options struct {
	Controller   *chatctl.Controller
	Loader       *session.Loader
	Auth         Auth
	Theme        *styles.Theme
	RequireLogin bool

	// HighlightCode enables syntax highlighting of fenced code in answers.
	HighlightCode bool
}

// runtime is shared by every copy of the Model.
type runtime struct {
	sender    Sender
	bootstrap *cancelManager
	submit    *cancelManager
	logout    *cancelManager
	cache     *renderCache
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	theme *styles.Theme
	keys  KeyMap
	help  help.Model

	store        *model.ConversationStore
	ctl          *chatctl.Controller
	loader       *session.Loader
	auth         Auth
	requireLogin bool

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	width  int
	height int
	ready  bool

	// Session
	loading         bool
	loadGen         uint64
	reloadPending   bool
	user            string
	unauthenticated bool
	loginURL        string

	// Transient UI state
	confirmLogout bool
	loggingOut    bool
	status        string
	lastErr       error

	dirty       bool
	tickPending bool
	quitting    bool

	rt *runtime
}

// New creates a chat model. SetProgram must be called before the program runs.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Enter your question here..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = theme.Spinner

	return Model{
		theme:        theme,
		keys:         keys,
		help:         help.New(),
		store:        opts.Controller.Store(),
		ctl:          opts.Controller,
		loader:       opts.Loader,
		auth:         opts.Auth,
		requireLogin: opts.RequireLogin,
		viewport:     viewport.New(80, 20),
		input:        ta,
		spinner:      sp,
		loading:      opts.Loader != nil,
		dirty:        true,
		rt: &runtime{
			bootstrap: newCancelManager(),
			submit:    newCancelManager(),
			logout:    newCancelManager(),
			cache:     &renderCache{highlight: opts.HighlightCode},
		},
	}
}

// SetProgram records the program that receives streamed fragments.
func (m Model) SetProgram(s Sender) {
	m.rt.sender = s
}

// Init starts the bootstrap.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.loadSession())
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// Loading reports whether the bootstrap is still running.
func (m Model) Loading() bool { return m.loading }

// User returns the logged-in username, or "".
func (m Model) User() string { return m.user }

// LoginURL returns the login page when the session is unauthenticated.
func (m Model) LoginURL() string { return m.loginURL }

// Unauthenticated reports whether the server rejected the session.
func (m Model) Unauthenticated() bool { return m.unauthenticated }

// Busy reports whether an answer is in flight.
func (m Model) Busy() bool { return m.ctl.Busy() }

// canSubmit reports whether a new question may be sent.
func (m Model) canSubmit() bool {
	if m.loading || m.loggingOut || m.ctl.Busy() {
		return false
	}
	if m.requireLogin && m.user == "" {
		return false
	}
	return true
}
