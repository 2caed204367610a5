// ABOUTME: Interactive REPL over the client: browse, paginate, post, and delete
// ABOUTME: Mirrors the app screens; the route guard decides which commands make sense

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/bookfeed/internal/feed"
	"github.com/2389/bookfeed/internal/guard"
	"github.com/2389/bookfeed/internal/mutation"
)

const shellHelp = `Commands:
  feed            show the first page of the feed
  more            load the next page
  refresh         reload the feed from the top
  mine            show your recommendations
  post            share a new recommendation
  delete <id>     delete one of your recommendations
  whoami          show the logged-in user
  login           log in
  register        create an account
  logout          log out
  help            show this help
  exit            leave the shell`

func (c *cli) runShell(ctx context.Context) error {
	c.nav.setVerbose(true)
	c.start(ctx, guard.MainPath)

	color.New(color.FgCyan, color.Bold).Fprintln(c.out, "bookfeed "+version)
	if u := c.app.Session.Snapshot().User; u != nil {
		fmt.Fprintf(c.out, "logged in as %s\n", u.Username)
	} else {
		fmt.Fprintln(c.out, "not logged in, type 'login' or 'register'")
	}
	fmt.Fprintln(c.out, "type 'help' for commands")

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := c.prompt.line("\n> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			return nil
		}
		if err != nil {
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			return nil
		}
		if err := c.shellCommand(ctx, fields[0], fields[1:]); err != nil && !errors.Is(err, errReported) {
			failColor.Fprint(c.out, "✗ ")
			fmt.Fprintln(c.out, err)
		}
	}
}

func (c *cli) shellCommand(ctx context.Context, name string, args []string) error {
	switch name {
	case "help":
		fmt.Fprintln(c.out, shellHelp)
		return nil
	case "login":
		return c.doLogin(ctx, "")
	case "register":
		return c.doRegister(ctx, "", "")
	case "whoami":
		renderProfile(c.out, c.app.Session.Snapshot().User)
		return nil
	}

	if !c.app.Session.Snapshot().Authenticated() {
		return errors.New("log in first")
	}

	switch name {
	case "logout":
		c.app.Session.Logout(ctx)
		fmt.Fprintln(c.out, "logged out")
		return nil
	case "feed":
		if err := c.reportFetch(c.app.Feed.Load(ctx)); err != nil {
			return err
		}
		c.showFeed()
		return nil
	case "refresh":
		if err := c.reportFetch(c.app.Feed.Refresh(ctx)); err != nil {
			return err
		}
		c.showFeed()
		return nil
	case "more":
		before := len(c.app.Feed.Snapshot().Items)
		started, err := c.app.Feed.LoadMore(ctx)
		if errors.Is(err, feed.ErrSuperseded) {
			return nil
		}
		if err := c.reportFetch(err); err != nil {
			return err
		}
		if !started {
			mutedColor.Fprintln(c.out, "nothing more to load")
			return nil
		}
		s := c.app.Feed.Snapshot()
		renderBooks(c.out, s.Items[min(before, len(s.Items)):], nil)
		renderFeedFooter(c.out, s)
		return nil
	case "mine":
		return c.showShelf(ctx, true)
	case "post":
		return c.shellPost(ctx)
	case "delete":
		if len(args) != 1 {
			return errors.New("usage: delete <id>")
		}
		return c.doDelete(ctx, args[0], false)
	}
	return fmt.Errorf("unknown command %q, type 'help'", name)
}

func (c *cli) showFeed() {
	s := c.app.Feed.Snapshot()
	renderBooks(c.out, s.Items, c.app.Mutations.IsPending)
	renderFeedFooter(c.out, s)
}

func (c *cli) shellPost(ctx context.Context) error {
	var d mutation.Draft
	var err error
	if d.Title, err = c.prompt.line("Title: "); err != nil {
		return err
	}
	rating, err := c.prompt.line(fmt.Sprintf("Rating (1-%d): ", feed.MaxRating))
	if err != nil {
		return err
	}
	d.Rating, _ = strconv.Atoi(rating)
	if d.ImagePath, err = c.prompt.line("Cover image path: "); err != nil {
		return err
	}
	if d.Caption, err = c.prompt.line("Caption: "); err != nil {
		return err
	}

	if _, err := c.app.Mutations.CreateBook(ctx, d); err != nil {
		return errReported
	}
	return nil
}
