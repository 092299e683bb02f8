// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the process-wide zerolog logger.
//
// CLI commands log human-readable lines to stderr. The TUI owns the
// terminal, so while it runs logs go to a JSON file instead.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// nopCloser is returned when there is nothing to close.
type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// parseLevel maps a level name to a zerolog level, defaulting to info.
func parseLevel(level string) zerolog.Level {
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// SetupConsole routes logs to w (normally stderr) through a ConsoleWriter.
func SetupConsole(level string, w io.Writer) {
	zerolog.SetGlobalLevel(parseLevel(level))
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.Kitchen,
		NoColor:    os.Getenv("NO_COLOR") != "",
	}).With().Timestamp().Logger()
}

// SetupFile routes JSON logs to path, creating parent directories.
// The returned closer must be closed on exit.
func SetupFile(level, path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nopCloser{}, errors.Wrap(err, "failed to create log directory")
	}

	// SECURITY: logs may contain questions; owner read/write only
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nopCloser{}, errors.Wrap(err, "failed to open log file")
	}

	zerolog.SetGlobalLevel(parseLevel(level))
	log.Logger = zerolog.New(f).With().Timestamp().Logger()
	return f, nil
}

// Disable silences all logging.
func Disable() {
	log.Logger = zerolog.Nop()
}
