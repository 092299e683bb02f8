// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/qachat/internal/model"
	"github.com/jeranaias/qachat/internal/session"
)

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionLoadedMsg delivers the bootstrap result. Err is the context error
// when the bootstrap was cancelled; Result is nil then.
type SessionLoadedMsg struct {
	Result *session.Result
	Err    error

	gen uint64
}

// SessionChangedMsg asks the view to load the session again, for example
// after the saved cookie changed on disk.
type SessionChangedMsg struct{}

// LogoutDoneMsg reports the outcome of a logout request.
type LogoutDoneMsg struct {
	Err error
}

// =============================================================================
// SUBMISSION MESSAGES
// =============================================================================

// FragmentMsg delivers a piece of the answer for PairID.
type FragmentMsg struct {
	PairID model.PairID
	Text   string
}

// AnswerDoneMsg signals that the submission for PairID ended.
type AnswerDoneMsg struct {
	PairID model.PairID
	Err    error
}

// renderTickMsg triggers a throttled viewport refresh.
type renderTickMsg struct{}
