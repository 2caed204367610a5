// ABOUTME: Terminal rendering of books, profiles, and notices
// ABOUTME: Uses fatih/color for emphasis and the feed formatting helpers

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/bookfeed/internal/api"
	"github.com/2389/bookfeed/internal/feed"
	"github.com/2389/bookfeed/internal/mutation"
)

var (
	titleColor  = color.New(color.FgHiWhite, color.Bold)
	starColor   = color.New(color.FgYellow)
	mutedColor  = color.New(color.FgHiBlack)
	okColor     = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed)
	accentColor = color.New(color.FgCyan)
)

func renderBook(w io.Writer, b api.Book, pending bool) {
	titleColor.Fprint(w, b.Title)
	if pending {
		mutedColor.Fprint(w, "  (deleting...)")
	}
	fmt.Fprintln(w)

	starColor.Fprint(w, "  "+feed.RatingStars(b.Rating))
	mutedColor.Fprintf(w, "  %s", b.ID)
	fmt.Fprintln(w)

	if b.Caption != "" {
		fmt.Fprintf(w, "  %s\n", b.Caption)
	}

	var meta []string
	if b.OwnerUsername != "" {
		meta = append(meta, "by "+b.OwnerUsername)
	}
	if d := feed.FormatPublishDate(b.CreatedAt); d != "" {
		meta = append(meta, "shared "+d)
	}
	if len(meta) > 0 {
		mutedColor.Fprintf(w, "  %s\n", strings.Join(meta, " · "))
	}
}

func renderBooks(w io.Writer, books []api.Book, pending func(id string) bool) {
	if len(books) == 0 {
		mutedColor.Fprintln(w, "no recommendations yet")
		return
	}
	for i, b := range books {
		if i > 0 {
			fmt.Fprintln(w)
		}
		renderBook(w, b, pending != nil && pending(b.ID))
	}
}

func renderFeedFooter(w io.Writer, s feed.State) {
	if s.HasMore {
		mutedColor.Fprintf(w, "\npage %d, type 'more' for older books\n", s.CurrentPage)
		return
	}
	mutedColor.Fprintln(w, "\nyou've reached the end")
}

func renderProfile(w io.Writer, u *api.UserRecord) {
	if u == nil {
		mutedColor.Fprintln(w, "not logged in")
		return
	}
	accentColor.Fprint(w, u.Username)
	fmt.Fprintf(w, " <%s>", u.Email)
	if since := feed.FormatMemberSince(u.CreatedAt); since != "" {
		mutedColor.Fprintf(w, "  member since %s", since)
	}
	fmt.Fprintln(w)
}

func renderNotice(w io.Writer, n mutation.Notice) {
	if n.Level == mutation.LevelFailure {
		failColor.Fprint(w, "✗ ")
	} else {
		okColor.Fprint(w, "✓ ")
	}
	fmt.Fprintln(w, n.Message)
}
