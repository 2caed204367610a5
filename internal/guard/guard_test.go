// ABOUTME: Tests for the route guard decision function and adapter
// ABOUTME: Covers suspension, both redirect directions, idempotence, and session-driven re-evaluation

package guard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/bookfeed/internal/api"
	"github.com/2389/bookfeed/internal/notify"
	"github.com/2389/bookfeed/internal/session"
)

var (
	signedIn  = session.Snapshot{User: &api.UserRecord{ID: "u1"}, Token: "tok"}
	signedOut = session.Snapshot{}
)

// recordingNavigator records Replace calls and can follow them by updating
// the guard's path, like a real router would.
type recordingNavigator struct {
	mu     sync.Mutex
	calls  []string
	follow *Guard
}

func (n *recordingNavigator) Replace(path string) {
	n.mu.Lock()
	n.calls = append(n.calls, path)
	n.mu.Unlock()
	if n.follow != nil {
		n.follow.SetPath(path)
	}
}

func (n *recordingNavigator) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

// fakeSource is a minimal SessionSource.
type fakeSource struct {
	snap session.Snapshot
	hub  *notify.Hub[session.Snapshot]
}

func newFakeSource(snap session.Snapshot) *fakeSource {
	return &fakeSource{snap: snap, hub: notify.NewHub[session.Snapshot](nil)}
}

func (f *fakeSource) Snapshot() session.Snapshot { return f.snap }

func (f *fakeSource) Subscribe(fn func(session.Snapshot)) func() { return f.hub.Subscribe(fn) }

func (f *fakeSource) Set(snap session.Snapshot) {
	f.snap = snap
	f.hub.Publish(snap)
}

func TestDecideRedirect(t *testing.T) {
	partial := session.Snapshot{Token: "tok"}

	tests := []struct {
		name     string
		snap     session.Snapshot
		navReady bool
		path     string
		want     string
	}{
		{"nav not ready", signedOut, false, "/(tabs)", ""},
		{"empty path", signedOut, true, "", ""},
		{"signed out in main", signedOut, true, "/(tabs)", AuthPath},
		{"signed out at root", signedOut, true, "/index", AuthPath},
		{"signed out in auth", signedOut, true, "/(auth)/signup", ""},
		{"signed in in auth", signedIn, true, "/(auth)", MainPath},
		{"signed in in main", signedIn, true, "/(tabs)/profile", ""},
		{"partial session counts as signed out", partial, true, "/(tabs)", AuthPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecideRedirect(tt.snap, tt.navReady, SplitPath(tt.path))
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Path)
		})
	}
}

func TestSplitPath(t *testing.T) {
	assert.Equal(t, []string{"(auth)", "signup"}, SplitPath("/(auth)/signup"))
	assert.Nil(t, SplitPath("/"))
	assert.Nil(t, SplitPath(""))
}

func TestGuard_SuspendedUntilReady(t *testing.T) {
	nav := &recordingNavigator{}
	g := New(nav, nil)
	g.OnSession(signedOut)
	g.SetPath("/(tabs)")

	assert.Empty(t, nav.Calls())
	assert.Equal(t, StateUnknown, g.State())

	g.SetNavigationReady(true)
	assert.Equal(t, []string{AuthPath}, nav.Calls())
	assert.Equal(t, StateUnauthenticated, g.State())
}

func TestGuard_IdempotentWithUnchangedInputs(t *testing.T) {
	nav := &recordingNavigator{}
	g := New(nav, nil)
	g.SetNavigationReady(true)
	g.SetPath("/(tabs)")
	g.OnSession(signedOut)
	g.OnSession(signedOut)
	g.SetNavigationReady(true)

	assert.Equal(t, []string{AuthPath}, nav.Calls())
}

func TestGuard_FollowsSessionChanges(t *testing.T) {
	nav := &recordingNavigator{}
	g := New(nav, nil)
	nav.follow = g

	src := newFakeSource(signedOut)
	detach := g.Attach(src)
	defer detach()

	g.SetNavigationReady(true)
	g.SetPath("/(tabs)")
	assert.Equal(t, []string{AuthPath}, nav.Calls())

	src.Set(signedIn)
	assert.Equal(t, []string{AuthPath, MainPath}, nav.Calls())
	assert.Equal(t, StateAuthenticated, g.State())

	src.Set(signedOut)
	assert.Equal(t, []string{AuthPath, MainPath, AuthPath}, nav.Calls())
}

func TestGuard_LoadingSnapshotDoesNotRedirect(t *testing.T) {
	nav := &recordingNavigator{}
	g := New(nav, nil)
	nav.follow = g
	g.SetNavigationReady(true)
	g.SetPath("/(auth)")

	g.OnSession(session.Snapshot{IsLoading: true})
	assert.Empty(t, nav.Calls())
}

func TestGuard_Detach(t *testing.T) {
	nav := &recordingNavigator{}
	g := New(nav, nil)
	g.SetNavigationReady(true)
	g.SetPath("/(auth)")

	src := newFakeSource(signedOut)
	detach := g.Attach(src)
	detach()

	src.Set(signedIn)
	assert.Empty(t, nav.Calls())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unknown", StateUnknown.String())
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
}

func TestGuard_IgnoresOlderSnapshot(t *testing.T) {
	nav := &recordingNavigator{}
	g := New(nav, nil)
	nav.follow = g
	g.SetNavigationReady(true)
	g.SetPath("/(auth)")

	newer := signedIn
	newer.Seq = 3
	older := signedOut
	older.Seq = 2

	g.OnSession(newer)
	g.OnSession(older)

	assert.Equal(t, StateAuthenticated, g.State())
	assert.Equal(t, []string{MainPath}, nav.Calls())
}
