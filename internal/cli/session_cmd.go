// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Session commands for qachat.
//
// Commands:
//   qachat history [--limit N] [--full] [--json]   Show stored history
//   qachat whoami                                  Show the logged-in user
//   qachat login [--cookie VALUE]                  Show the login page or save a cookie
//   qachat logout                                  End the server session

package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jeranaias/qachat/internal/api"
	"github.com/jeranaias/qachat/internal/config"
	"github.com/jeranaias/qachat/internal/model"
	"github.com/jeranaias/qachat/internal/util"
)

// =============================================================================
// HISTORY
// =============================================================================

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var (
		limit  int
		full   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the conversation history stored on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return newUsageError("--limit must not be negative")
			}
			a, err := newApp(opts)
			if err != nil {
				return err
			}

			pairs, err := a.client.History(cmd.Context())
			if err != nil {
				return NewCommandError("history", "fetch", a.unauthenticated(err))
			}
			a.store.ReplaceAll(pairs)

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, tail(a.store.Pairs(), limit))
			}
			width := GetTerminalWidth() - 10
			if full {
				width = 0
			}
			printPairs(out, a.store.Pairs(), limit, width)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show only the last N pairs (0 for all)")
	cmd.Flags().BoolVar(&full, "full", false, "print whole questions and answers")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

// tail returns the last n pairs, or all of them when n <= 0.
func tail(pairs []model.QAPair, n int) []model.QAPair {
	if n <= 0 || n >= len(pairs) {
		return pairs
	}
	return pairs[len(pairs)-n:]
}

// printPairs prints the last n pairs. A positive width truncates each
// question and answer to a one-line preview.
func printPairs(w io.Writer, pairs []model.QAPair, n, width int) {
	pairs = tail(pairs, n)
	if len(pairs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No conversation yet."))
		return
	}

	for i, p := range pairs {
		q, ans := p.Question, p.Answer
		if width > 0 {
			q = util.Preview(q, max(width, 20))
			ans = util.Preview(ans, max(width, 20))
		}
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n", QuestionStyle.Render("Q:"), q)
		fmt.Fprintf(w, "%s %s\n", AnswerStyle.Render("A:"), ans)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// WHOAMI
// =============================================================================

func newWhoamiCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			user, err := a.client.CurrentUser(cmd.Context())
			if err != nil {
				return NewCommandError("whoami", "", a.unauthenticated(err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), user.Username)
			return nil
		},
	}
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

func newLoginCommand(opts *globalOptions) *cobra.Command {
	var (
		cookie   string
		returnTo string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Show the login page, or save a session cookie",
		Long: `Login prints the server's login page. Log in with a browser, then
save the session cookie with --cookie so qachat can use it.

The cookie is verified against the server before it is saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if cookie == "" {
				fmt.Fprintf(out, "Log in at %s\n", LinkStyle.Render(a.client.LoginURL(returnTo)))
				fmt.Fprintln(out, DimStyle.Render("Then run: qachat login --cookie <value>"))
				return nil
			}

			a.client.WithSessionCookie(a.cfg.Server.SessionCookieName, cookie)
			user, err := a.client.CurrentUser(cmd.Context())
			if err != nil {
				return NewCommandError("login", "verify", a.unauthenticated(err))
			}

			if err := updateConfigFile(func(c *config.Config) error {
				c.Server.SessionCookie = cookie
				return nil
			}); err != nil {
				return NewCommandError("login", "save", err)
			}
			fmt.Fprintf(out, "%s logged in as %s\n", SuccessStyle.Render("OK"), user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&cookie, "cookie", "", "session cookie value to verify and save")
	cmd.Flags().StringVar(&returnTo, "return-to", "", "page the server should return to after login")
	return cmd
}

func newLogoutCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the server session and forget the saved cookie",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			if err := a.client.Logout(cmd.Context()); err != nil && !api.IsUnauthenticated(err) {
				return NewCommandError("logout", "", err)
			}

			if a.cfg.Server.SessionCookie != "" {
				if err := updateConfigFile(func(c *config.Config) error {
					c.Server.SessionCookie = ""
					return nil
				}); err != nil {
					return NewCommandError("logout", "save", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out. Log in again at %s\n",
				LinkStyle.Render(a.client.LoginURL("")))
			return nil
		},
	}
}
