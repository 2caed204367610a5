// ABOUTME: Terminal input helpers: line prompts, hidden password entry, confirmation
// ABOUTME: Also provides the CLI navigator that records where the route guard sent us

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/2389/bookfeed/internal/guard"
)

type prompter struct {
	in  *bufio.Reader
	out io.Writer
	fd  int
}

func newPrompter(in *os.File, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out, fd: int(in.Fd())}
}

// line prints label and reads one trimmed line.
func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", err
	}
	return strings.TrimSpace(s), nil
}

// password reads a masked password when stdin is a terminal.
func (p *prompter) password(label string) (string, error) {
	if !term.IsTerminal(p.fd) {
		return p.line(label)
	}
	fmt.Fprint(p.out, label)
	b, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Confirm asks a yes/no question; anything but y/yes declines.
func (p *prompter) Confirm(_ context.Context, question string) (bool, error) {
	answer, err := p.line(question + " [y/N] ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// cliNavigator stands in for a router: it remembers the current path,
// reports it back to the guard as the new location, and in the interactive
// shell announces zone changes.
type cliNavigator struct {
	mu      sync.Mutex
	path    string
	out     io.Writer
	verbose bool
	guard   *guard.Guard
}

func (n *cliNavigator) Replace(path string) {
	n.mu.Lock()
	n.path = path
	verbose := n.verbose
	g := n.guard
	n.mu.Unlock()

	if verbose {
		mutedColor.Fprintf(n.out, "→ %s\n", path)
	}
	if g != nil {
		g.SetPath(path)
	}
}

// follow makes g track every path this navigator moves to.
func (n *cliNavigator) follow(g *guard.Guard) {
	n.mu.Lock()
	n.guard = g
	n.mu.Unlock()
}

func (n *cliNavigator) Path() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *cliNavigator) setVerbose(v bool) {
	n.mu.Lock()
	n.verbose = v
	n.mu.Unlock()
}
