// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the Bubble Tea chat view.
//
// The view shows the conversation, a question box, the streaming toggle
// and the logged-in user. All ConversationStore mutation happens in Update;
// network work runs in commands that report back through the program:
//
//	m := chat.New(chat.Options{...})
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	m.SetProgram(p)
//	_, err := p.Run()
//
// Answer fragments are sent one message per fragment from a single
// goroutine, so they reach Update in arrival order.
//
// # Key Bindings
//
//   - Enter: submit the question
//   - Ctrl+J: newline in the question
//   - Ctrl+S: toggle streaming
//   - Ctrl+O: logout (asks for confirmation)
//   - Esc: stop the current answer
//   - Ctrl+C: quit
package chat
