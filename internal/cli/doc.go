// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the qachat command tree.
//
// # Commands
//
//   - (none), tui: full-screen chat
//   - chat: line-mode chat with input history
//   - ask: single question
//   - history: conversation stored on the server
//   - whoami, login, logout: session management
//   - config: show, get, set, keys, init, path
//
// Every command builds its collaborators from the config file, environment
// and persistent flags, in that order of increasing precedence.
//
// Errors are returned to Execute, which prints them once and maps them to
// an exit code (see ExitCode).
package cli
