// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/jeranaias/qachat/internal/model"
)

// =============================================================================
// SESSION PROVIDER
// =============================================================================

// User is the authenticated user as reported by /users/me.
type User struct {
	Username string `json:"username"`
}

// CurrentUser fetches the logged-in user.
// Returns ErrUnauthenticated when the session is missing or expired.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/users/me")
	if err != nil {
		return nil, err
	}

	var u User
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, errors.Wrap(err, "failed to parse user")
	}
	return &u, nil
}

// History fetches the stored conversation, oldest first.
func (c *Client) History(ctx context.Context) ([]model.QA, error) {
	body, err := c.doWithRetry(ctx, http.MethodGet, "/ai/chat/history")
	if err != nil {
		return nil, err
	}

	var pairs []model.QA
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, errors.Wrap(err, "failed to parse history")
	}
	return pairs, nil
}

// Logout ends the server session and forgets the local session cookie.
func (c *Client) Logout(ctx context.Context) error {
	if _, err := c.doWithRetry(ctx, http.MethodGet, "/logout"); err != nil {
		return err
	}
	c.jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:   c.cookieName,
		Path:   "/",
		MaxAge: -1,
	}})
	return nil
}

// LoginURL returns the browser login page, asking the server to send the
// user back to returnTo afterwards.
func (c *Client) LoginURL(returnTo string) string {
	u := c.endpoint("/login")
	if returnTo == "" {
		return u
	}
	return u + "?url=" + url.QueryEscape(returnTo)
}
