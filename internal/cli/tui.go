// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat command.

package cli

import (
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/qachat/internal/config"
	"github.com/jeranaias/qachat/internal/logging"
	chatui "github.com/jeranaias/qachat/internal/ui/chat"
	"github.com/jeranaias/qachat/internal/ui/styles"
)

func newTUICommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Start the full-screen chat (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
}

// runTUI owns the terminal until the user quits. Logs go to the log file
// so they do not corrupt the screen.
func runTUI(cmd *cobra.Command, opts *globalOptions) error {
	if err := RequiresTTY("run the chat view"); err != nil {
		return err
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}

	logPath, err := a.cfg.LogPath()
	if err != nil {
		return err
	}
	closer, err := logging.SetupFile(a.cfg.Log.Level, logPath)
	if err != nil {
		logging.Disable()
	} else {
		defer closer.Close()
	}
	log.Info().Str("server", a.client.BaseURL()).Msg("starting chat view")

	m := chatui.New(chatui.Options{
		Controller:   a.ctl,
		Loader:       a.loader,
		Auth:         a.client,
		Theme:        styles.NewTheme(a.cfg.UI.Theme),
		RequireLogin: a.cfg.Server.RequireLogin,

		HighlightCode: a.cfg.UI.Markdown,
	})

	progOpts := []tea.ProgramOption{tea.WithContext(cmd.Context())}
	if a.cfg.UI.AltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, progOpts...)
	m.SetProgram(p)

	if opts.session == "" && os.Getenv(config.EnvSession) == "" {
		if stop := watchSessionCookie(a, p); stop != nil {
			defer stop()
		}
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "chat view")
	}
	return nil
}

// watchSessionCookie reloads the session when another qachat process saves a
// new cookie, e.g. "qachat login --cookie". Returns nil if the config
// directory cannot be watched.
func watchSessionCookie(a *app, p *tea.Program) func() {
	path, err := config.ConfigPathTOML()
	if err != nil {
		return nil
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return nil
	}

	current := a.cfg.Server.SessionCookie
	w, err := config.NewWatcher(path, config.DefaultWatchDebounce, func(cfg *config.Config) {
		cookie := cfg.Server.SessionCookie
		if cookie == "" || cookie == current {
			return
		}
		current = cookie
		log.Info().Msg("session cookie changed on disk")
		a.client.WithSessionCookie("", cookie)
		p.Send(chatui.SessionChangedMsg{})
	})
	if err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
		return nil
	}
	if err := w.Watch(); err != nil {
		log.Warn().Err(err).Msg("config watcher unavailable")
		_ = w.Close()
		return nil
	}
	return func() { _ = w.Close() }
}
