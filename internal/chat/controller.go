// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives question submission against a ConversationStore.
//
// A submission is split in three steps so that a UI can keep every store
// mutation on its own update loop:
//
//	id, err := ctl.Begin(question)                 // appends the question
//	err = ctl.Fetch(ctx, question, stream, emit)   // network only
//	ctl.Apply(fragment)                            // for each emitted fragment
//	err = ctl.Finish(err)                          // clears the busy flag
//
// Submit composes the steps for synchronous callers.
package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/qachat/internal/api"
	"github.com/jeranaias/qachat/internal/model"
)

// Error variables for rejected submissions.
var (
	// ErrEmptyQuestion indicates the question was blank after trimming.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrBusy indicates another submission is still in flight.
	ErrBusy = errors.New("a question is already being answered")
)

// Asker is the Chat API as used by the controller.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
	AskStream(ctx context.Context, question string, fn api.FragmentFunc) error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller allows at most one submission in flight.
type Controller struct {
	mu      sync.Mutex
	store   *model.ConversationStore
	asker   Asker
	stream  bool
	busy    bool
	current model.PairID
}

// NewController creates a controller writing to store.
func NewController(store *model.ConversationStore, asker Asker, stream bool) *Controller {
	return &Controller{store: store, asker: asker, stream: stream}
}

// Store returns the conversation store.
func (c *Controller) Store() *model.ConversationStore {
	return c.store
}

// Busy reports whether a submission is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Stream reports whether new submissions request streaming.
func (c *Controller) Stream() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream
}

// SetStream sets the streaming preference for later submissions.
func (c *Controller) SetStream(stream bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stream = stream
}

// Begin validates question, appends it with an empty answer and marks the
// controller busy.
func (c *Controller) Begin(question string) (model.PairID, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return 0, ErrEmptyQuestion
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return 0, ErrBusy
	}
	c.busy = true
	c.current = c.store.AppendQuestion(q)
	return c.current, nil
}

// Fetch sends question and calls emit for each piece of the answer in
// arrival order. It never touches the store.
func (c *Controller) Fetch(ctx context.Context, question string, stream bool, emit func(fragment string)) error {
	q := strings.TrimSpace(question)
	if stream {
		return c.asker.AskStream(ctx, q, func(fragment string) error {
			emit(fragment)
			return nil
		})
	}

	answer, err := c.asker.Ask(ctx, q)
	if err != nil {
		return err
	}
	if answer != "" {
		emit(answer)
	}
	return nil
}

// Apply appends fragment to the answer of the submission in flight.
// Fragments arriving after the history was replaced are dropped.
func (c *Controller) Apply(fragment string) {
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()

	if _, ok := c.store.Get(current); !ok {
		return
	}
	c.store.AppendToLastAnswer(fragment)
}

// Finish ends the submission in flight. Cancellation is not an error.
// ErrUnauthenticated is returned as is so the caller can send the user to
// the login page. Other failures are logged and returned; the pair keeps
// whatever answer it had.
func (c *Controller) Finish(err error) error {
	c.mu.Lock()
	c.busy = false
	id := c.current
	c.mu.Unlock()

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		log.Debug().Int64("pair", int64(id)).Msg("submission cancelled")
		return nil
	case api.IsUnauthenticated(err):
		return api.ErrUnauthenticated
	default:
		log.Error().Err(err).Int64("pair", int64(id)).Msg("submission failed")
		return err
	}
}

// Submit runs a whole submission synchronously. onFragment, when non-nil,
// sees each fragment after it was applied.
func (c *Controller) Submit(ctx context.Context, question string, onFragment func(string)) error {
	if _, err := c.Begin(question); err != nil {
		return err
	}

	err := c.Fetch(ctx, question, c.Stream(), func(fragment string) {
		c.Apply(fragment)
		if onFragment != nil {
			onFragment(fragment)
		}
	})
	return c.Finish(err)
}
