// ABOUTME: Tests for the feed paginator and merge policy
// ABOUTME: Covers replace vs merge, stale-wins, pagination flags, load-more guard, and superseded responses

package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/bookfeed/internal/api"
	"github.com/2389/bookfeed/internal/api/apitest"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

// scriptedAPI hands each ListBooks call to the test, which replies when it
// chooses. This lets tests control completion order.
type scriptedAPI struct {
	calls chan *pendingCall
}

type pendingCall struct {
	page  int
	limit int
	token string
	reply chan reply
}

type reply struct {
	page *api.BooksPage
	err  error
}

func newScriptedAPI() *scriptedAPI {
	return &scriptedAPI{calls: make(chan *pendingCall, 16)}
}

func (s *scriptedAPI) ListBooks(ctx context.Context, token string, page, limit int) (*api.BooksPage, error) {
	c := &pendingCall{page: page, limit: limit, token: token, reply: make(chan reply, 1)}
	s.calls <- c
	select {
	case r := <-c.reply:
		return r.page, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *scriptedAPI) ListUserBooks(ctx context.Context, token string) ([]api.Book, error) {
	return nil, errors.New("not scripted")
}

func (s *scriptedAPI) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ListBooks call")
		return nil
	}
}

func (c *pendingCall) respond(totalPages int, books ...api.Book) {
	c.reply <- reply{page: &api.BooksPage{Books: books, TotalPages: totalPages, CurrentPage: c.page}}
}

func (c *pendingCall) fail(err error) {
	c.reply <- reply{err: err}
}

func book(id string) api.Book {
	return api.Book{ID: id, Title: "title " + id}
}

func fixture(id string) apitest.Book {
	return apitest.Book{ID: id, Title: "title " + id, Rating: 3, CreatedAt: time.Now()}
}

func newServerPaginator(t *testing.T) (*Paginator, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	client := api.NewClient(api.ClientConfig{BaseURL: srv.URL})
	token := staticToken(srv.IssueToken("u1", time.Hour))
	return NewPaginator(client, token, 2, nil), srv
}

func TestPaginator_InitialState(t *testing.T) {
	p := NewPaginator(newScriptedAPI(), staticToken("t"), 0, nil)
	s := p.Snapshot()

	assert.Empty(t, s.Items)
	assert.Equal(t, 1, s.CurrentPage)
	assert.True(t, s.HasMore)
	assert.Equal(t, DefaultPageSize, p.PageSize())
}

func TestPaginator_ScenarioFirstPage(t *testing.T) {
	p, srv := newServerPaginator(t)
	srv.SetPage(1, []apitest.Book{fixture("1"), fixture("2")}, 3)

	require.NoError(t, p.Load(context.Background()))

	s := p.Snapshot()
	assert.Equal(t, []string{"1", "2"}, s.IDs())
	assert.Equal(t, 1, s.CurrentPage)
	assert.True(t, s.HasMore)
	assert.False(t, s.IsLoading)
	assert.Contains(t, srv.Requests(), "GET /books?limit=2&page=1")
}

func TestPaginator_ScenarioLoadMoreStaleWins(t *testing.T) {
	p, srv := newServerPaginator(t)
	ctx := context.Background()

	first := fixture("2")
	first.Title = "page one title"
	srv.SetPage(1, []apitest.Book{fixture("1"), first}, 3)
	require.NoError(t, p.Load(ctx))

	fresher := fixture("2")
	fresher.Title = "page two title"
	srv.SetPage(2, []apitest.Book{fresher, fixture("3")}, 3)

	started, err := p.LoadMore(ctx)
	require.NoError(t, err)
	require.True(t, started)

	s := p.Snapshot()
	assert.Equal(t, []string{"1", "2", "3"}, s.IDs())
	assert.Len(t, s.Items, 3)
	assert.Equal(t, "page one title", s.Items[1].Title)
	assert.Equal(t, 2, s.CurrentPage)
	assert.True(t, s.HasMore)
	assert.False(t, s.IsLoadingMore)
}

func TestPaginator_ScenarioRefreshReplaces(t *testing.T) {
	p, srv := newServerPaginator(t)
	ctx := context.Background()

	srv.SetPage(1, []apitest.Book{fixture("1"), fixture("2")}, 3)
	require.NoError(t, p.Load(ctx))
	srv.SetPage(2, []apitest.Book{fixture("2"), fixture("3")}, 3)
	_, err := p.LoadMore(ctx)
	require.NoError(t, err)

	srv.SetPage(1, []apitest.Book{fixture("5")}, 1)
	require.NoError(t, p.Refresh(ctx))

	s := p.Snapshot()
	assert.Equal(t, []string{"5"}, s.IDs())
	assert.False(t, s.HasMore)
	assert.Equal(t, 1, s.CurrentPage)
	assert.False(t, s.IsRefreshing)
}

func TestPaginator_LoadMoreStopsWhenExhausted(t *testing.T) {
	p, srv := newServerPaginator(t)
	ctx := context.Background()
	srv.SetPage(1, []apitest.Book{fixture("1")}, 1)
	require.NoError(t, p.Load(ctx))

	started, err := p.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 1, srv.CountRequests("GET /books"))
}

func TestPaginator_FailureKeepsListAndClearsFlags(t *testing.T) {
	p, srv := newServerPaginator(t)
	ctx := context.Background()
	srv.SetPage(1, []apitest.Book{fixture("1"), fixture("2")}, 3)
	require.NoError(t, p.Load(ctx))

	srv.FailNext("GET /books", http.StatusInternalServerError, "database down")
	err := p.Refresh(ctx)
	require.Error(t, err)
	assert.Equal(t, "database down", err.Error())

	s := p.Snapshot()
	assert.Equal(t, []string{"1", "2"}, s.IDs())
	assert.False(t, s.IsRefreshing)
	assert.False(t, s.IsLoading)
	assert.True(t, s.HasMore)
}

func TestPaginator_HasMoreTracksTotalPages(t *testing.T) {
	fake := newScriptedAPI()
	p := NewPaginator(fake, staticToken("t"), 2, nil)
	ctx := context.Background()

	for page := 1; page <= 3; page++ {
		errCh := make(chan error, 1)
		go func() { errCh <- p.FetchPage(ctx, page, false) }()
		fake.next(t).respond(3, book(fmt.Sprint(page)))
		require.NoError(t, <-errCh)

		s := p.Snapshot()
		assert.Equal(t, page, s.CurrentPage)
		assert.Equal(t, page < 3, s.HasMore)
	}
}

func TestPaginator_LoadingFlags(t *testing.T) {
	fake := newScriptedAPI()
	p := NewPaginator(fake, staticToken("tok"), 2, nil)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Load(ctx) }()
	c := fake.next(t)
	assert.Equal(t, "tok", c.token)
	assert.Equal(t, 2, c.limit)
	assert.True(t, p.Snapshot().IsLoading)
	assert.False(t, p.Snapshot().IsRefreshing)
	c.respond(5, book("a"), book("b"))
	require.NoError(t, <-errCh)

	go func() { errCh <- p.Refresh(ctx) }()
	c = fake.next(t)
	assert.True(t, p.Snapshot().IsRefreshing)
	assert.False(t, p.Snapshot().IsLoading)
	c.respond(5, book("a"), book("b"))
	require.NoError(t, <-errCh)

	go func() {
		_, err := p.LoadMore(ctx)
		errCh <- err
	}()
	c = fake.next(t)
	assert.Equal(t, 2, c.page)
	s := p.Snapshot()
	assert.True(t, s.IsLoadingMore)
	assert.False(t, s.IsLoading)
	assert.False(t, s.IsRefreshing)
	c.respond(5, book("c"))
	require.NoError(t, <-errCh)
	assert.False(t, p.Snapshot().IsLoadingMore)
}

func TestPaginator_LoadMoreGuardIdempotent(t *testing.T) {
	fake := newScriptedAPI()
	p := NewPaginator(fake, staticToken("t"), 2, nil)
	ctx := context.Background()

	// Blocked while the first page is loading
	errCh := make(chan error, 1)
	go func() { errCh <- p.Load(ctx) }()
	first := fake.next(t)
	for i := 0; i < 5; i++ {
		started, err := p.LoadMore(ctx)
		require.NoError(t, err)
		assert.False(t, started)
	}
	first.respond(4, book("1"), book("2"))
	require.NoError(t, <-errCh)

	// Only one background load-more at a time
	go func() {
		_, err := p.LoadMore(ctx)
		errCh <- err
	}()
	more := fake.next(t)
	for i := 0; i < 5; i++ {
		started, err := p.LoadMore(ctx)
		require.NoError(t, err)
		assert.False(t, started)
	}
	more.respond(4, book("3"))
	require.NoError(t, <-errCh)

	select {
	case extra := <-fake.calls:
		t.Fatalf("unexpected extra fetch for page %d", extra.page)
	default:
	}
	assert.Equal(t, []string{"1", "2", "3"}, p.Snapshot().IDs())
}

func TestPaginator_LoadMoreBlockedDuringRefresh(t *testing.T) {
	fake := newScriptedAPI()
	p := NewPaginator(fake, staticToken("t"), 2, nil)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Refresh(ctx) }()
	c := fake.next(t)

	started, err := p.LoadMore(ctx)
	require.NoError(t, err)
	assert.False(t, started)

	c.respond(2, book("1"))
	require.NoError(t, <-errCh)
}

func TestPaginator_RefreshSupersedesInFlightLoadMore(t *testing.T) {
	for _, loadMoreFirst := range []bool{true, false} {
		t.Run(fmt.Sprintf("load_more_completes_first=%v", loadMoreFirst), func(t *testing.T) {
			fake := newScriptedAPI()
			p := NewPaginator(fake, staticToken("t"), 2, nil)
			ctx := context.Background()

			errCh := make(chan error, 1)
			go func() { errCh <- p.Load(ctx) }()
			fake.next(t).respond(3, book("1"), book("2"))
			require.NoError(t, <-errCh)

			moreErr := make(chan error, 1)
			go func() {
				_, err := p.LoadMore(ctx)
				moreErr <- err
			}()
			more := fake.next(t)

			refreshErr := make(chan error, 1)
			go func() { refreshErr <- p.Refresh(ctx) }()
			refresh := fake.next(t)
			require.Equal(t, 1, refresh.page)

			if loadMoreFirst {
				more.respond(3, book("2"), book("3"))
				assert.ErrorIs(t, <-moreErr, ErrSuperseded)
				refresh.respond(1, book("9"))
				require.NoError(t, <-refreshErr)
			} else {
				refresh.respond(1, book("9"))
				require.NoError(t, <-refreshErr)
				more.respond(3, book("2"), book("3"))
				assert.ErrorIs(t, <-moreErr, ErrSuperseded)
			}

			s := p.Snapshot()
			assert.Equal(t, []string{"9"}, s.IDs())
			assert.False(t, s.HasMore)
			assert.Equal(t, 1, s.CurrentPage)
			assert.False(t, s.IsLoadingMore)
			assert.False(t, s.IsRefreshing)
		})
	}
}

func TestPaginator_CanceledContext(t *testing.T) {
	fake := newScriptedAPI()
	p := NewPaginator(fake, staticToken("t"), 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Load(ctx) }()
	fake.next(t)
	cancel()

	assert.ErrorIs(t, <-errCh, context.Canceled)
	s := p.Snapshot()
	assert.Empty(t, s.Items)
	assert.False(t, s.IsLoading)
}

func TestPaginator_InvalidPage(t *testing.T) {
	p := NewPaginator(newScriptedAPI(), staticToken("t"), 2, nil)
	assert.Error(t, p.FetchPage(context.Background(), 0, false))
}

func TestPaginator_RemoveAndPrepend(t *testing.T) {
	fake := newScriptedAPI()
	p := NewPaginator(fake, staticToken("t"), 2, nil)
	ctx := context.Background()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Load(ctx) }()
	fake.next(t).respond(1, book("1"), book("2"), book("3"))
	require.NoError(t, <-errCh)

	assert.True(t, p.Remove("2"))
	assert.False(t, p.Remove("2"))
	assert.Equal(t, []string{"1", "3"}, p.Snapshot().IDs())

	p.Prepend(book("0"))
	p.Prepend(book("1"))
	assert.Equal(t, []string{"0", "1", "3"}, p.Snapshot().IDs())
}

func TestPaginator_NotifiesSubscribers(t *testing.T) {
	fake := newScriptedAPI()
	p := NewPaginator(fake, staticToken("t"), 2, nil)

	var states []State
	unsub := p.Subscribe(func(s State) { states = append(states, s) })
	defer unsub()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Load(context.Background()) }()
	fake.next(t).respond(1, book("1"))
	require.NoError(t, <-errCh)

	require.Len(t, states, 2)
	assert.True(t, states[0].IsLoading)
	assert.False(t, states[1].IsLoading)
	assert.Equal(t, []string{"1"}, states[1].IDs())
}

func TestPaginator_SnapshotIsACopy(t *testing.T) {
	fake := newScriptedAPI()
	p := NewPaginator(fake, staticToken("t"), 2, nil)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Load(context.Background()) }()
	fake.next(t).respond(1, book("1"))
	require.NoError(t, <-errCh)

	s := p.Snapshot()
	s.Items[0].Title = "changed"
	assert.Equal(t, "title 1", p.Snapshot().Items[0].Title)
}

func TestMerge(t *testing.T) {
	existing := []api.Book{{ID: "1", Title: "old"}, {ID: "2"}}
	incoming := []api.Book{{ID: "2", Title: "new"}, {ID: "3"}, {ID: "3"}}

	merged := Merge(existing, incoming)

	assert.Equal(t, []string{"1", "2", "3"}, State{Items: merged}.IDs())
	assert.Equal(t, "", merged[1].Title)
	assert.Empty(t, Merge(nil, nil))
}

func TestPaginator_ResetDiscardsInFlight(t *testing.T) {
	fake := newScriptedAPI()
	p := NewPaginator(fake, staticToken("t"), 2, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- p.Load(context.Background()) }()
	c := fake.next(t)

	p.Reset()
	c.respond(3, book("1"))
	assert.ErrorIs(t, <-errCh, ErrSuperseded)

	s := p.Snapshot()
	assert.Empty(t, s.Items)
	assert.False(t, s.IsLoading)
	assert.True(t, s.HasMore)
}

func TestPaginator_PublishedSeqIncreases(t *testing.T) {
	fake := newScriptedAPI()
	p := NewPaginator(fake, staticToken("t"), 2, nil)

	var seqs []uint64
	unsub := p.Subscribe(func(s State) { seqs = append(seqs, s.Seq) })
	defer unsub()

	errCh := make(chan error, 1)
	go func() { errCh <- p.Load(context.Background()) }()
	fake.next(t).respond(1, book("1"), book("2"))
	require.NoError(t, <-errCh)
	p.Remove("1")
	p.Prepend(book("0"))

	require.Len(t, seqs, 4)
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}
	assert.Equal(t, seqs[len(seqs)-1], p.Snapshot().Seq)
}
