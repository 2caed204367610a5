// ABOUTME: cobra command tree: shell, login, register, logout, whoami, feed, mine, post, delete
// ABOUTME: Each command builds the app, places the guard on a route, and runs one operation

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/bookfeed/internal/api"
	"github.com/2389/bookfeed/internal/app"
	"github.com/2389/bookfeed/internal/config"
	"github.com/2389/bookfeed/internal/feed"
	"github.com/2389/bookfeed/internal/guard"
	"github.com/2389/bookfeed/internal/mutation"
	"github.com/2389/bookfeed/internal/store"
)

// errReported means the failure was already shown to the user as a notice.
var errReported = errors.New("reported")

var errNotLoggedIn = errors.New("not logged in, run 'bookfeed login' first")

type cli struct {
	configPath string
	logLevel   string

	out    io.Writer
	prompt *prompter
	nav    *cliNavigator
	app    *app.App
}

func newRootCmd(in *os.File, out io.Writer) *cobra.Command {
	c := &cli{
		out:    out,
		prompt: newPrompter(in, out),
		nav:    &cliNavigator{out: out},
	}

	root := &cobra.Command{
		Use:                "bookfeed",
		Short:              "Share and browse book recommendations",
		Version:            version,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  c.setup,
		PersistentPostRunE: c.teardown,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runShell(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $BOOKFEED_CONFIG or ~/.config/bookfeed/config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		c.shellCmd(),
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.feedCmd(),
		c.mineCmd(),
		c.postCmd(),
		c.deleteCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	path := c.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	logger := setupLogger(cfg.Logging, os.Stderr)
	logger.Debug("config loaded", "path", path, "base_url", cfg.API.BaseURL)

	return c.build(cfg, nil, logger)
}

// build assembles the app around the CLI's navigator, notices, and prompts.
// A nil creds opens the configured credential store.
func (c *cli) build(cfg *config.Config, creds store.CredentialStore, logger *slog.Logger) error {
	a, err := app.New(cfg, app.Options{
		Navigator: c.nav,
		Notifier:  mutation.NotifierFunc(func(n mutation.Notice) { renderNotice(c.out, n) }),
		Confirmer: c.prompt,
		Store:     creds,
	}, logger)
	if err != nil {
		return err
	}
	c.nav.follow(a.Guard)
	c.app = a
	return nil
}

func (c *cli) teardown(*cobra.Command, []string) error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

// start places the guard on path and restores the persisted session.
func (c *cli) start(ctx context.Context, path string) {
	c.app.Guard.SetPath(path)
	c.app.Start(ctx)
}

// requireLogin starts on the main zone and fails if the guard sends us to
// the auth zone.
func (c *cli) requireLogin(ctx context.Context) error {
	c.start(ctx, guard.MainPath)
	if c.nav.Path() == guard.AuthPath {
		return errNotLoggedIn
	}
	return nil
}

func (c *cli) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runShell(cmd.Context())
		},
	}
}

func (c *cli) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c.start(ctx, guard.AuthPath+"/login")
			return c.doLogin(ctx, email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (c *cli) doLogin(ctx context.Context, email string) error {
	var err error
	if email == "" {
		if email, err = c.prompt.line("Email: "); err != nil {
			return err
		}
	}
	password, err := c.prompt.password("Password: ")
	if err != nil {
		return err
	}
	if err := c.app.Session.Login(ctx, email, password); err != nil {
		return err
	}
	okColor.Fprint(c.out, "✓ ")
	fmt.Fprintf(c.out, "welcome back, %s\n", c.app.Session.Snapshot().User.Username)
	return nil
}

func (c *cli) registerCmd() *cobra.Command {
	var username, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c.start(ctx, guard.AuthPath+"/signup")
			return c.doRegister(ctx, username, email)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (c *cli) doRegister(ctx context.Context, username, email string) error {
	var err error
	if username == "" {
		if username, err = c.prompt.line("Username: "); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = c.prompt.line("Email: "); err != nil {
			return err
		}
	}
	password, err := c.prompt.password("Password: ")
	if err != nil {
		return err
	}
	if err := c.app.Session.Register(ctx, username, email, password); err != nil {
		return err
	}
	okColor.Fprint(c.out, "✓ ")
	fmt.Fprintf(c.out, "account created, welcome %s\n", username)
	return nil
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c.start(ctx, guard.MainPath)
			c.app.Session.Logout(ctx)
			fmt.Fprintln(c.out, "logged out")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.start(cmd.Context(), guard.MainPath)
			renderProfile(c.out, c.app.Session.Snapshot().User)
			return nil
		},
	}
}

func (c *cli) feedCmd() *cobra.Command {
	var pages int
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show the latest recommendations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := c.requireLogin(ctx); err != nil {
				return err
			}
			if err := c.reportFetch(c.app.Feed.Load(ctx)); err != nil {
				return err
			}
			for i := 1; i < pages; i++ {
				started, err := c.app.Feed.LoadMore(ctx)
				if err := c.reportFetch(err); err != nil {
					return err
				}
				if !started {
					break
				}
			}
			s := c.app.Feed.Snapshot()
			renderBooks(c.out, s.Items, nil)
			renderFeedFooter(c.out, s)
			return nil
		},
	}
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

// reportFetch shows a feed failure as a short notice. A reply overtaken by
// a newer fetch is not a failure.
func (c *cli) reportFetch(err error) error {
	if err == nil || errors.Is(err, feed.ErrSuperseded) {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	renderNotice(c.out, mutation.Notice{Level: mutation.LevelFailure, Message: api.UserMessage(err, api.MessageFetchBooks)})
	return errReported
}

func (c *cli) mineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "Show your own recommendations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := c.requireLogin(ctx); err != nil {
				return err
			}
			return c.showShelf(ctx, false)
		},
	}
}

func (c *cli) showShelf(ctx context.Context, refresh bool) error {
	load := c.app.Shelf.Load
	if refresh {
		load = c.app.Shelf.Refresh
	}
	if err := load(ctx); err != nil {
		renderNotice(c.out, mutation.Notice{Level: mutation.LevelFailure, Message: c.app.Shelf.Snapshot().Notice})
		return errReported
	}
	renderProfile(c.out, c.app.Session.Snapshot().User)
	fmt.Fprintln(c.out)
	renderBooks(c.out, c.app.Shelf.Snapshot().Items, c.app.Mutations.IsPending)
	return nil
}

func (c *cli) postCmd() *cobra.Command {
	var draft mutation.Draft
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Share a new recommendation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := c.requireLogin(ctx); err != nil {
				return err
			}
			if _, err := c.app.Mutations.CreateBook(ctx, draft); err != nil {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "book title")
	cmd.Flags().StringVar(&draft.Caption, "caption", "", "what you thought of it")
	cmd.Flags().IntVar(&draft.Rating, "rating", 0, "rating from 1 to 5")
	cmd.Flags().StringVar(&draft.ImagePath, "image", "", "path to a cover image")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete one of your recommendations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.requireLogin(ctx); err != nil {
				return err
			}
			return c.doDelete(ctx, strings.TrimSpace(args[0]), yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func (c *cli) doDelete(ctx context.Context, id string, skipConfirm bool) error {
	var err error
	if skipConfirm {
		err = c.app.Mutations.DeleteBook(ctx, id)
	} else {
		_, err = c.app.Mutations.RequestDelete(ctx, id)
	}
	switch {
	case errors.Is(err, mutation.ErrAlreadyPending):
		return err
	case err != nil:
		return errReported
	}
	return nil
}
