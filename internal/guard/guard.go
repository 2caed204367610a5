// ABOUTME: Route guard that keeps navigation in the zone matching the session
// ABOUTME: Pure DecideRedirect plus a Guard adapter that drives a Navigator on state changes

package guard

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/2389/bookfeed/internal/session"
)

// Route zones. A path is inside a zone when its first segment is the zone.
const (
	AuthZone = "(auth)"
	MainZone = "(tabs)"

	AuthPath = "/" + AuthZone
	MainPath = "/" + MainZone
)

// State is the guard's view of where the user belongs.
type State int

const (
	StateUnknown State = iota
	StateUnauthenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Redirect is a replace-navigation command.
type Redirect struct {
	Path string
}

// DecideRedirect returns the redirect required for the given inputs, if any.
// Nothing is decided while navigation is not ready or the path is unresolved.
func DecideRedirect(snap session.Snapshot, navReady bool, segments []string) (Redirect, bool) {
	if !navReady || len(segments) == 0 || segments[0] == "" {
		return Redirect{}, false
	}

	inAuthZone := segments[0] == AuthZone
	signedIn := snap.Authenticated()

	switch {
	case !signedIn && !inAuthZone:
		return Redirect{Path: AuthPath}, true
	case signedIn && inAuthZone:
		return Redirect{Path: MainPath}, true
	}
	return Redirect{}, false
}

// SplitPath turns "/(auth)/signup" into ["(auth)", "signup"].
func SplitPath(path string) []string {
	var segments []string
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// Navigator performs replace-navigation.
type Navigator interface {
	Replace(path string)
}

// SessionSource is the read-only view of the session store the guard needs.
type SessionSource interface {
	Snapshot() session.Snapshot
	Subscribe(fn func(session.Snapshot)) (unsubscribe func())
}

// Guard re-evaluates DecideRedirect whenever navigation readiness, the
// session, or the current path changes.
type Guard struct {
	mu       sync.Mutex
	nav      Navigator
	navReady bool
	segments []string
	snap     session.Snapshot

	// lastKey identifies the inputs of the last issued redirect so an
	// unchanged re-evaluation does not issue it again.
	lastKey string

	logger *slog.Logger
}

// New creates a guard driving nav. Pass nil logger for default.
func New(nav Navigator, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		nav:    nav,
		logger: logger.With("component", "guard"),
	}
}

// Attach follows src and returns a function that stops following it.
func (g *Guard) Attach(src SessionSource) (detach func()) {
	unsub := src.Subscribe(g.OnSession)
	g.OnSession(src.Snapshot())
	return unsub
}

// OnSession records a new session snapshot. A snapshot older than the one
// already held is ignored.
func (g *Guard) OnSession(snap session.Snapshot) {
	g.mu.Lock()
	if snap.Seq < g.snap.Seq {
		g.mu.Unlock()
		return
	}
	g.snap = snap
	g.mu.Unlock()
	g.evaluate()
}

// SetNavigationReady records whether the navigation layer can accept commands.
func (g *Guard) SetNavigationReady(ready bool) {
	g.mu.Lock()
	g.navReady = ready
	g.mu.Unlock()
	g.evaluate()
}

// SetPath records the current screen path.
func (g *Guard) SetPath(path string) {
	g.mu.Lock()
	g.segments = SplitPath(path)
	g.mu.Unlock()
	g.evaluate()
}

// State reports the guard's current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.navReady {
		return StateUnknown
	}
	if g.snap.Authenticated() {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

func (g *Guard) evaluate() {
	g.mu.Lock()
	redirect, ok := DecideRedirect(g.snap, g.navReady, g.segments)
	if !ok {
		g.lastKey = ""
		g.mu.Unlock()
		return
	}
	key := redirect.Path + "|" + strings.Join(g.segments, "/")
	if key == g.lastKey {
		g.mu.Unlock()
		return
	}
	g.lastKey = key
	g.mu.Unlock()

	g.logger.Debug("redirecting", "to", redirect.Path)
	g.nav.Replace(redirect.Path)
}
