// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/qachat/internal/api"
	"github.com/jeranaias/qachat/internal/model"
)

// Provider is the subset of the API client used during bootstrap.
type Provider interface {
	CurrentUser(ctx context.Context) (*api.User, error)
	History(ctx context.Context) ([]model.QA, error)
	LoginURL(returnTo string) string
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of a bootstrap.
type Result struct {
	// User is nil when login is not required or the lookup failed.
	User *api.User
	// UserErr is the user lookup failure, if any.
	UserErr error

	// Unauthenticated is set when the server rejected the session.
	Unauthenticated bool
	// LoginURL is where the user should log in when Unauthenticated.
	LoginURL string

	// History holds the fetched pairs when HistoryLoaded is true.
	History       []model.QA
	HistoryLoaded bool
	// HistoryErr is the history fetch failure, if any.
	HistoryErr error
}

// Apply replaces the store contents with the fetched history.
// It does nothing when the history fetch failed.
func (r *Result) Apply(store *model.ConversationStore) {
	if r == nil || !r.HistoryLoaded {
		return
	}
	store.ReplaceAll(r.History)
}

// Username returns the user's name, or "" when unknown.
func (r *Result) Username() string {
	if r == nil || r.User == nil {
		return ""
	}
	return r.User.Username
}

// =============================================================================
// LOADER
// =============================================================================

// Loader fetches the user and history for a new session.
type Loader struct {
	provider     Provider
	requireLogin bool
}

// NewLoader creates a loader. When requireLogin is false /users/me is not
// requested.
func NewLoader(p Provider, requireLogin bool) *Loader {
	return &Loader{provider: p, requireLogin: requireLogin}
}

// Fetch requests user and history concurrently and waits for both.
// The only error returned is the context's: a cancelled fetch yields no
// result. Request failures are reported in the Result.
func (l *Loader) Fetch(ctx context.Context) (*Result, error) {
	res := &Result{}

	// No errgroup.WithContext: one request failing must not cancel the other.
	var g errgroup.Group

	if l.requireLogin {
		g.Go(func() error {
			user, err := l.provider.CurrentUser(ctx)
			if err != nil {
				res.UserErr = err
				return nil
			}
			res.User = user
			return nil
		})
	}

	g.Go(func() error {
		pairs, err := l.provider.History(ctx)
		if err != nil {
			res.HistoryErr = err
			return nil
		}
		res.History = pairs
		res.HistoryLoaded = true
		return nil
	})

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if api.IsUnauthenticated(res.UserErr) || api.IsUnauthenticated(res.HistoryErr) {
		res.Unauthenticated = true
		res.LoginURL = l.provider.LoginURL("")
	}

	if res.UserErr != nil && !api.IsUnauthenticated(res.UserErr) {
		log.Warn().Err(res.UserErr).Msg("user lookup failed")
	}
	if res.HistoryErr != nil {
		log.Warn().Err(res.HistoryErr).Msg("history fetch failed")
	}
	return res, nil
}

// Load fetches and applies the history to store.
// It returns the context error when cancelled, and the history error when
// the history could not be fetched; res is non-nil in the latter case.
func (l *Loader) Load(ctx context.Context, store *model.ConversationStore) (*Result, error) {
	res, err := l.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if res.HistoryErr != nil {
		return res, errors.Wrap(res.HistoryErr, "failed to load history")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Apply(store)
	return res, nil
}
