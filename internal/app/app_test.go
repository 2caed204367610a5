// ABOUTME: End-to-end tests of the assembled client against the fake backend
// ABOUTME: Exercises startup restore, guard redirects, feed loading, deletes, and logout

package app

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/bookfeed/internal/api/apitest"
	"github.com/2389/bookfeed/internal/config"
	"github.com/2389/bookfeed/internal/guard"
	"github.com/2389/bookfeed/internal/mutation"
	"github.com/2389/bookfeed/internal/store"
)

type followingNavigator struct {
	mu    sync.Mutex
	paths []string
	guard *guard.Guard
}

func (n *followingNavigator) Replace(path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	g := n.guard
	n.mu.Unlock()
	if g != nil {
		g.SetPath(path)
	}
}

func (n *followingNavigator) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.paths) == 0 {
		return ""
	}
	return n.paths[len(n.paths)-1]
}

func testConfig(srv *apitest.Server) *config.Config {
	cfg := config.Default()
	cfg.API.BaseURL = srv.URL
	cfg.Database.Path = ":memory:"
	return cfg
}

func newTestApp(t *testing.T, srv *apitest.Server, creds store.CredentialStore) (*App, *followingNavigator, *[]mutation.Notice) {
	t.Helper()
	nav := &followingNavigator{}
	var notices []mutation.Notice
	a, err := New(testConfig(srv), Options{
		Navigator: nav,
		Notifier:  mutation.NotifierFunc(func(n mutation.Notice) { notices = append(notices, n) }),
		Store:     creds,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	nav.mu.Lock()
	nav.guard = a.Guard
	nav.mu.Unlock()
	return a, nav, &notices
}

func TestApp_SignedOutStartRedirectsToAuth(t *testing.T) {
	srv := apitest.New(t)
	a, nav, _ := newTestApp(t, srv, store.NewMockStore())
	a.Guard.SetPath(guard.MainPath)

	a.Start(context.Background())

	assert.Equal(t, guard.AuthPath, nav.last())
	assert.Equal(t, guard.StateUnauthenticated, a.Guard.State())
}

func TestApp_LoginFeedDeleteLogout(t *testing.T) {
	srv := apitest.New(t)
	userID := srv.AddAccount("reader", "reader@example.com", "secret1")
	srv.AddBooks(
		apitest.Book{ID: "b1", Title: "Dune", Rating: 5, OwnerID: userID, CreatedAt: time.Now()},
		apitest.Book{ID: "b2", Title: "Emma", Rating: 4, OwnerID: userID, CreatedAt: time.Now()},
		apitest.Book{ID: "b3", Title: "Kim", Rating: 3, OwnerID: userID, CreatedAt: time.Now()},
	)
	creds := store.NewMockStore()
	a, nav, notices := newTestApp(t, srv, creds)
	ctx := context.Background()

	a.Guard.SetPath(guard.AuthPath + "/login")
	a.Start(ctx)
	assert.Empty(t, nav.last())

	require.NoError(t, a.Session.Login(ctx, "reader@example.com", "secret1"))
	assert.Equal(t, guard.MainPath, nav.last())
	assert.Equal(t, 2, creds.Len())

	require.NoError(t, a.Feed.Load(ctx))
	assert.Equal(t, []string{"b1", "b2"}, a.Feed.Snapshot().IDs())
	started, err := a.Feed.LoadMore(ctx)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, []string{"b1", "b2", "b3"}, a.Feed.Snapshot().IDs())

	require.NoError(t, a.Mutations.DeleteBook(ctx, "b2"))
	assert.Equal(t, []string{"b1", "b3"}, a.Feed.Snapshot().IDs())
	require.Len(t, *notices, 1)
	assert.Equal(t, mutation.LevelSuccess, (*notices)[0].Level)

	a.Session.Logout(ctx)
	assert.Equal(t, guard.AuthPath, nav.last())
	assert.Equal(t, 0, creds.Len())
	assert.Empty(t, a.Feed.Snapshot().Items)
}

func TestApp_RestoresPersistedSession(t *testing.T) {
	srv := apitest.New(t)
	srv.AddAccount("reader", "reader@example.com", "secret1")
	dbPath := filepath.Join(t.TempDir(), "creds.db")

	first, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	a, _, _ := newTestApp(t, srv, first)
	require.NoError(t, a.Session.Login(context.Background(), "reader@example.com", "secret1"))
	require.NoError(t, first.Close())

	cfg := testConfig(srv)
	cfg.Database.Path = dbPath
	nav := &followingNavigator{}
	restarted, err := New(cfg, Options{Navigator: nav}, nil)
	require.NoError(t, err)
	defer restarted.Close()
	nav.guard = restarted.Guard

	restarted.Guard.SetPath(guard.AuthPath)
	restarted.Start(context.Background())

	snap := restarted.Session.Snapshot()
	require.True(t, snap.Authenticated())
	assert.Equal(t, "reader", snap.User.Username)
	assert.False(t, snap.ExpiresAt.IsZero())
	assert.Equal(t, guard.MainPath, nav.last())
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(nil, Options{}, nil)
	assert.Error(t, err)
}

func TestNew_BadDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Database.Driver = "postgres"
	cfg.Database.Path = ":memory:"

	_, err := New(cfg, Options{}, nil)
	assert.Error(t, err)
}
