// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session performs the initial load of a chat session.
//
// The current user and the stored history are requested concurrently and
// awaited together. A failed user lookup never prevents the history from
// being applied. A cancelled load applies nothing.
//
// # Usage
//
// Synchronous callers (CLI):
//
//	res, err := session.NewLoader(client, cfg.Server.RequireLogin).Load(ctx, store)
//
// The TUI fetches off the update loop and applies on it:
//
//	res, err := loader.Fetch(ctx)   // in a tea.Cmd
//	res.Apply(store)                // in Update
package session
