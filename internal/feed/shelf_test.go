// ABOUTME: Tests for the user's own book shelf
// ABOUTME: Uses the fake backend to check ownership filtering, failure handling, and local edits

package feed

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/bookfeed/internal/api"
	"github.com/2389/bookfeed/internal/api/apitest"
)

func newTestShelf(t *testing.T) (*Shelf, *apitest.Server, string) {
	t.Helper()
	srv := apitest.New(t)
	userID := srv.AddAccount("reader", "reader@example.com", "secret1")
	client := api.NewClient(api.ClientConfig{BaseURL: srv.URL})
	shelf := NewShelf(client, staticToken(srv.Login(t, "reader@example.com")), nil)
	return shelf, srv, userID
}

func owned(id, owner string) apitest.Book {
	return apitest.Book{ID: id, Title: "title " + id, Rating: 4, OwnerID: owner, CreatedAt: time.Now()}
}

func TestShelf_LoadOnlyOwnBooks(t *testing.T) {
	shelf, srv, userID := newTestShelf(t)
	srv.AddBooks(owned("a", userID), owned("b", "someone-else"), owned("c", userID))

	require.NoError(t, shelf.Load(context.Background()))

	s := shelf.Snapshot()
	assert.Equal(t, []string{"a", "c"}, State{Items: s.Items}.IDs())
	assert.False(t, s.IsLoading)
	assert.Equal(t, 1, srv.CountRequests("GET /books/user"))
}

func TestShelf_RefreshReplaces(t *testing.T) {
	shelf, srv, userID := newTestShelf(t)
	srv.AddBooks(owned("a", userID))
	ctx := context.Background()
	require.NoError(t, shelf.Load(ctx))

	srv.AddBooks(owned("b", userID))
	require.NoError(t, shelf.Refresh(ctx))

	s := shelf.Snapshot()
	assert.Len(t, s.Items, 2)
	assert.False(t, s.IsRefreshing)
}

func TestShelf_FailureKeepsItems(t *testing.T) {
	shelf, srv, userID := newTestShelf(t)
	srv.AddBooks(owned("a", userID))
	ctx := context.Background()
	require.NoError(t, shelf.Load(ctx))

	srv.FailNext("GET /books/user", http.StatusInternalServerError, "")
	err := shelf.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, api.MessageFetchUserBook, err.Error())

	s := shelf.Snapshot()
	assert.Len(t, s.Items, 1)
	assert.False(t, s.IsRefreshing)
	assert.Equal(t, MessageShelfLoad, s.Notice)

	require.NoError(t, shelf.Refresh(ctx))
	assert.Empty(t, shelf.Snapshot().Notice)
}

func TestShelf_RefreshingFlagVisibleWhileFetching(t *testing.T) {
	shelf, srv, _ := newTestShelf(t)
	gate := srv.Hold("GET /books/user")

	done := make(chan error, 1)
	go func() { done <- shelf.Refresh(context.Background()) }()

	select {
	case <-gate.Arrived():
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the backend")
	}
	assert.True(t, shelf.Snapshot().IsRefreshing)
	assert.False(t, shelf.Snapshot().IsLoading)

	gate.Release()
	require.NoError(t, <-done)
	assert.False(t, shelf.Snapshot().IsRefreshing)
}

func TestShelf_RemoveAndPrepend(t *testing.T) {
	shelf, srv, userID := newTestShelf(t)
	srv.AddBooks(owned("a", userID), owned("b", userID))
	require.NoError(t, shelf.Load(context.Background()))

	var published []ShelfState
	unsub := shelf.Subscribe(func(s ShelfState) { published = append(published, s) })
	defer unsub()

	assert.True(t, shelf.Remove("a"))
	assert.False(t, shelf.Remove("missing"))
	shelf.Prepend(api.Book{ID: "new"})
	shelf.Prepend(api.Book{ID: "b"})

	assert.Equal(t, []string{"new", "b"}, State{Items: shelf.Snapshot().Items}.IDs())
	assert.Len(t, published, 2)
}

func TestShelf_Reset(t *testing.T) {
	shelf, srv, userID := newTestShelf(t)
	srv.AddBooks(owned("a", userID))
	require.NoError(t, shelf.Load(context.Background()))

	shelf.Reset()
	assert.Empty(t, shelf.Snapshot().Items)
}
