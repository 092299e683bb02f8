// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command and shared wiring for qachat.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/qachat/internal/api"
	chatctl "github.com/jeranaias/qachat/internal/chat"
	"github.com/jeranaias/qachat/internal/config"
	"github.com/jeranaias/qachat/internal/logging"
	"github.com/jeranaias/qachat/internal/model"
	"github.com/jeranaias/qachat/internal/session"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	serverURL  string
	session    string
	logLevel   string
	noStream   bool
	verbose    bool
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the qachat command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "qachat",
		Short: "Terminal chat client for a question/answer server",
		Long: `qachat talks to a question/answer server.

Without a subcommand it starts the full-screen chat. The conversation
history is loaded from the server for the logged-in user, and answers
stream in as they are generated.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.configPath != "" {
				if err := os.Setenv(config.EnvConfig, opts.configPath); err != nil {
					return errors.Wrap(err, "set config path")
				}
			}
			level := opts.logLevel
			if level == "" {
				level = os.Getenv(config.EnvLogLevel)
			}
			if opts.verbose {
				level = "debug"
			}
			if level == "" {
				level = "warn"
			}
			logging.SetupConsole(level, cmd.ErrOrStderr())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default ~/.qachat/config.toml)")
	flags.StringVar(&opts.serverURL, "server", "", "server base URL (overrides config)")
	flags.StringVar(&opts.session, "session", "", "session cookie value (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&opts.noStream, "no-stream", false, "request whole answers instead of streaming")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose logging")

	root.AddCommand(
		newTUICommand(opts),
		newChatCommand(opts),
		newAskCommand(opts),
		newHistoryCommand(opts),
		newWhoamiCommand(opts),
		newLoginCommand(opts),
		newLogoutCommand(opts),
		newConfigCommand(opts),
	)
	return root
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		printError(root.ErrOrStderr(), err, loginURLFor(err))
		return ExitCode(err)
	}
	return ExitSuccess
}

// loginURLFor extracts the login URL attached to an unauthenticated error.
func loginURLFor(err error) string {
	var le *loginError
	if errors.As(err, &le) {
		return le.url
	}
	return ""
}

// loginError carries the login URL with an unauthenticated failure.
type loginError struct {
	err error
	url string
}

func (e *loginError) Error() string { return e.err.Error() }
func (e *loginError) Unwrap() error { return e.err }
func (e *loginError) Cause() error  { return e.err }

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// app holds the collaborators every command builds from config.
type app struct {
	cfg    *config.Config
	client *api.Client
	store  *model.ConversationStore
	ctl    *chatctl.Controller
	loader *session.Loader
}

// loadConfig reads the config file and applies flag overrides.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	changed := false
	if o.serverURL != "" {
		cfg.Server.URL = o.serverURL
		changed = true
	}
	if o.session != "" {
		cfg.Server.SessionCookie = o.session
		changed = true
	}
	if o.noStream {
		cfg.Chat.Stream = false
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		changed = true
	}
	if changed {
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, errors.Wrap(err, "invalid flags")
		}
	}
	return cfg, nil
}

// newApp builds the API client, store, controller and loader.
func newApp(o *globalOptions) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	client, err := api.NewClientFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	store := model.NewConversationStore(cfg.Chat.MaxHistory)
	log.Debug().
		Str("server", client.BaseURL()).
		Bool("stream", cfg.Chat.Stream).
		Bool("session", client.HasSession()).
		Msg("client configured")

	return &app{
		cfg:    cfg,
		client: client,
		store:  store,
		ctl:    chatctl.NewController(store, client, cfg.Chat.Stream),
		loader: session.NewLoader(client, cfg.Server.RequireLogin),
	}, nil
}

// unauthenticated attaches the login URL to an unauthenticated error.
func (a *app) unauthenticated(err error) error {
	if !api.IsUnauthenticated(err) {
		return err
	}
	return &loginError{err: err, url: a.client.LoginURL("")}
}
