// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/qachat/internal/api"
	"github.com/jeranaias/qachat/internal/model"
)

// Fixed layout rows: header, status, help, input borders.
const (
	headerHeight = 1
	statusHeight = 1
	helpHeight   = 1
	inputChrome  = 2
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// loadSession starts the bootstrap. The result is applied in Update.
func (m Model) loadSession() tea.Cmd {
	if m.loader == nil {
		return nil
	}
	ctx := m.rt.bootstrap.context()
	loader := m.loader
	gen := m.loadGen
	return func() tea.Msg {
		res, err := loader.Fetch(ctx)
		return SessionLoadedMsg{Result: res, Err: err, gen: gen}
	}
}

// askCmd runs the network part of a submission. Fragments are sent through
// the program from this goroutine; the final message is returned.
func (m Model) askCmd(id model.PairID, question string) tea.Cmd {
	ctx := m.rt.submit.context()
	ctl := m.ctl
	stream := ctl.Stream()
	rt := m.rt
	return func() tea.Msg {
		err := ctl.Fetch(ctx, question, stream, func(fragment string) {
			if rt.sender != nil {
				rt.sender.Send(FragmentMsg{PairID: id, Text: fragment})
			}
		})
		return AnswerDoneMsg{PairID: id, Err: err}
	}
}

// logoutCmd ends the server session.
func (m Model) logoutCmd() tea.Cmd {
	if m.auth == nil {
		return func() tea.Msg { return LogoutDoneMsg{} }
	}
	ctx := m.rt.logout.context()
	auth := m.auth
	return func() tea.Msg {
		return LogoutDoneMsg{Err: auth.Logout(ctx)}
	}
}

// markDirty schedules a throttled viewport refresh.
func (m Model) markDirty() (Model, tea.Cmd) {
	m.dirty = true
	if m.tickPending {
		return m, nil
	}
	m.tickPending = true
	return m, renderTick()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionLoadedMsg:
		return m.handleSessionLoaded(msg)

	case SessionChangedMsg:
		return m.handleSessionChanged()

	case FragmentMsg:
		m.ctl.Apply(msg.Text)
		return m.markDirty()

	case AnswerDoneMsg:
		return m.handleAnswerDone(msg)

	case LogoutDoneMsg:
		return m.handleLogoutDone(msg)

	case renderTickMsg:
		m.tickPending = false
		if m.dirty {
			m = m.refreshViewport()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	cmds = append(cmds, cmd)
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m.quit()
	}

	if m.confirmLogout {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirmLogout = false
			m.loggingOut = true
			m.status = "Logging out..."
			return m, m.logoutCmd()
		case key.Matches(msg, m.keys.Deny):
			m.confirmLogout = false
			m.status = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Cancel):
		if m.rt.submit.active() {
			m.rt.submit.cancel()
			m.status = "Stopped."
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleStream):
		m.ctl.SetStream(!m.ctl.Stream())
		return m, nil

	case key.Matches(msg, m.keys.Logout):
		return m.startLogout()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m = m.resize(m.width, m.height)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// quit cancels outstanding work so late results are discarded.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.rt.bootstrap.cancel()
	m.rt.submit.cancel()
	m.rt.logout.cancel()
	return m, tea.Quit
}

// submit sends the question box contents.
func (m Model) submit() (tea.Model, tea.Cmd) {
	question := strings.TrimSpace(m.input.Value())
	if question == "" || !m.canSubmit() {
		if m.requireLogin && m.user == "" && !m.loading {
			m.status = "Log in first."
		}
		return m, nil
	}

	id, err := m.ctl.Begin(question)
	if err != nil {
		m.lastErr = err
		return m, nil
	}

	m.input.Reset()
	m.lastErr = nil
	m.status = ""
	m.viewport.GotoBottom()

	m, tick := m.markDirty()
	return m, tea.Batch(tick, m.askCmd(id, question), m.spinner.Tick)
}

func (m Model) startLogout() (tea.Model, tea.Cmd) {
	if m.user == "" {
		if m.auth != nil {
			m.loginURL = m.auth.LoginURL("")
			m.status = "Open the login page: " + m.loginURL
		}
		return m, nil
	}
	m.confirmLogout = true
	m.status = "Confirm logout of " + m.user + "? (y/n)"
	return m, nil
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleSessionLoaded(msg SessionLoadedMsg) (tea.Model, tea.Cmd) {
	if m.quitting || msg.gen != m.loadGen || errors.Is(msg.Err, context.Canceled) {
		return m, nil
	}
	m.loading = false
	m.status = ""
	m.rt.bootstrap.cancel()

	if msg.Err != nil {
		m.lastErr = msg.Err
		return m, nil
	}

	res := msg.Result
	res.Apply(m.store)
	m.user = res.Username()
	m.unauthenticated = res.Unauthenticated
	m.loginURL = res.LoginURL

	switch {
	case res.Unauthenticated:
		m.status = "Not logged in. Open: " + res.LoginURL
	case res.HistoryErr != nil:
		m.lastErr = errors.Wrap(res.HistoryErr, "could not load history")
	}

	m.viewport.GotoBottom()
	return m.markDirty()
}

func (m Model) handleAnswerDone(msg AnswerDoneMsg) (tea.Model, tea.Cmd) {
	err := m.ctl.Finish(msg.Err)
	m.rt.submit.cancel()

	switch {
	case err == nil:
	case errors.Is(err, api.ErrUnauthenticated):
		m.user = ""
		m.unauthenticated = true
		if m.auth != nil {
			m.loginURL = m.auth.LoginURL("")
		}
		m.status = "Session expired. Open: " + m.loginURL
	default:
		m.lastErr = err
	}

	if m.reloadPending {
		var reload, tick tea.Cmd
		m, reload = m.reloadSession()
		m, tick = m.markDirty()
		return m, tea.Batch(reload, tick)
	}
	return m.markDirty()
}

// handleSessionChanged reloads the session, or defers the reload until the
// answer in flight is done.
func (m Model) handleSessionChanged() (tea.Model, tea.Cmd) {
	if m.quitting || m.loader == nil {
		return m, nil
	}
	if m.ctl.Busy() {
		m.reloadPending = true
		return m, nil
	}
	return m.reloadSession()
}

// reloadSession starts a new bootstrap. Results of earlier loads are dropped.
func (m Model) reloadSession() (Model, tea.Cmd) {
	m.reloadPending = false
	m.loadGen++
	m.loading = true
	m.lastErr = nil
	m.status = "Session changed, reloading..."
	return m, tea.Batch(m.loadSession(), m.spinner.Tick)
}

func (m Model) handleLogoutDone(msg LogoutDoneMsg) (tea.Model, tea.Cmd) {
	m.loggingOut = false
	m.rt.logout.cancel()
	if m.quitting || errors.Is(msg.Err, context.Canceled) {
		return m, nil
	}
	if msg.Err != nil {
		log.Error().Err(msg.Err).Msg("logout failed")
		m.lastErr = errors.Wrap(msg.Err, "logout failed")
		m.status = ""
		return m, nil
	}

	m.user = ""
	m.unauthenticated = true
	if m.auth != nil {
		m.loginURL = m.auth.LoginURL("")
	}
	m.status = "Logged out. Log in again: " + m.loginURL
	return m, nil
}

// =============================================================================
// LAYOUT
// =============================================================================

func (m Model) resize(width, height int) Model {
	m.width, m.height = width, height
	m.theme.SetSize(width, height)
	m.help.Width = width

	m.input.SetWidth(width - inputChrome)
	helpRows := helpHeight
	if m.help.ShowAll {
		helpRows = 0
		for _, col := range m.keys.FullHelp() {
			helpRows = max(helpRows, len(col))
		}
	}

	vh := height - headerHeight - statusHeight - helpRows - m.input.Height() - inputChrome
	if vh < 3 {
		vh = 3
	}
	m.viewport.Width = width
	m.viewport.Height = vh
	m.ready = true
	return m.refreshViewport()
}

// refreshViewport rebuilds the conversation text, following the bottom if
// the user had not scrolled away.
func (m Model) refreshViewport() Model {
	atBottom := m.viewport.AtBottom()
	pending := m.ctl.Busy()
	content := m.rt.cache.render(m.theme, m.store.Pairs(), m.theme.ContentWidth(), pending)
	m.viewport.SetContent(content)
	if atBottom || pending {
		m.viewport.GotoBottom()
	}
	m.dirty = false
	return m
}
