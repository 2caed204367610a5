// ABOUTME: Paginated feed engine: fetches pages, merges with stale-wins dedup, tracks cursor
// ABOUTME: Generation numbers discard responses superseded by a newer fetch

package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/2389/bookfeed/internal/api"
	"github.com/2389/bookfeed/internal/notify"
)

// DefaultPageSize is the number of books requested per page.
const DefaultPageSize = 2

// ErrSuperseded is returned when a newer fetch was issued before this one
// completed; its response is discarded.
var ErrSuperseded = errors.New("fetch superseded by a newer request")

// BooksAPI is the subset of the backend client used by the feed.
type BooksAPI interface {
	ListBooks(ctx context.Context, token string, page, limit int) (*api.BooksPage, error)
	ListUserBooks(ctx context.Context, token string) ([]api.Book, error)
}

// TokenSource supplies the current bearer token.
type TokenSource interface {
	Token() string
}

// State is an immutable view of the feed.
type State struct {
	Items        []api.Book
	CurrentPage  int
	HasMore      bool
	IsLoading    bool // first page loading
	IsRefreshing bool // pull-to-refresh in progress
	// IsLoadingMore is set while a background page (>1) is loading.
	IsLoadingMore bool
	// Seq increases with every published transition. Subscribers may see
	// states out of order and should ignore one older than the last seen.
	Seq uint64
}

// IDs returns the ids of Items in order.
func (s State) IDs() []string {
	ids := make([]string, len(s.Items))
	for i, b := range s.Items {
		ids[i] = b.ID
	}
	return ids
}

// Paginator owns the feed list.
type Paginator struct {
	mu    sync.Mutex
	state State

	seq           uint64 // last published state
	gen           uint64 // last issued fetch generation
	loadingGen    uint64
	refreshingGen uint64
	moreGen       uint64

	api      BooksAPI
	tokens   TokenSource
	pageSize int
	hub      *notify.Hub[State]
	logger   *slog.Logger
}

// NewPaginator creates an empty feed. pageSize < 1 uses DefaultPageSize.
// Pass nil logger for default.
func NewPaginator(booksAPI BooksAPI, tokens TokenSource, pageSize int, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	logger = logger.With("component", "feed")
	return &Paginator{
		state: State{
			CurrentPage: 1,
			HasMore:     true,
		},
		api:      booksAPI,
		tokens:   tokens,
		pageSize: pageSize,
		hub:      notify.NewHub[State](logger),
		logger:   logger,
	}
}

// PageSize returns the number of books requested per page.
func (p *Paginator) PageSize() int { return p.pageSize }

// Snapshot returns the current feed state.
func (p *Paginator) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Paginator) snapshotLocked() State {
	s := p.state
	s.Items = append([]api.Book(nil), p.state.Items...)
	s.Seq = p.seq
	return s
}

// Subscribe registers fn to be called after every feed transition.
func (p *Paginator) Subscribe(fn func(State)) (unsubscribe func()) {
	return p.hub.Subscribe(fn)
}

// publishLocked snapshots the state and returns a func that publishes it
// once the caller has released the lock.
func (p *Paginator) publishLocked() func() {
	p.seq++
	snap := p.snapshotLocked()
	return func() { p.hub.Publish(snap) }
}

// Load fetches the first page.
func (p *Paginator) Load(ctx context.Context) error {
	return p.FetchPage(ctx, 1, false)
}

// Refresh refetches the first page and replaces the list.
func (p *Paginator) Refresh(ctx context.Context) error {
	return p.FetchPage(ctx, 1, true)
}

// LoadMore fetches the next page unless there are no more pages or a load
// or refresh is already in progress. It reports whether a fetch was started.
func (p *Paginator) LoadMore(ctx context.Context) (bool, error) {
	p.mu.Lock()
	s := p.state
	if !s.HasMore || s.IsLoading || s.IsRefreshing || s.IsLoadingMore {
		p.mu.Unlock()
		return false, nil
	}
	gen, publish := p.beginLocked(s.CurrentPage+1, false)
	p.mu.Unlock()
	publish()

	return true, p.finish(ctx, gen, s.CurrentPage+1, false)
}

// FetchPage loads page n. A refresh or page 1 replaces the list; later
// pages are merged into it.
func (p *Paginator) FetchPage(ctx context.Context, page int, isRefresh bool) error {
	if page < 1 {
		return fmt.Errorf("invalid page %d", page)
	}

	p.mu.Lock()
	gen, publish := p.beginLocked(page, isRefresh)
	p.mu.Unlock()
	publish()

	return p.finish(ctx, gen, page, isRefresh)
}

// beginLocked issues a generation and sets the loading flag for this fetch.
func (p *Paginator) beginLocked(page int, isRefresh bool) (uint64, func()) {
	p.gen++
	gen := p.gen
	switch {
	case isRefresh:
		p.refreshingGen = gen
		p.state.IsRefreshing = true
	case page == 1:
		p.loadingGen = gen
		p.state.IsLoading = true
	default:
		p.moreGen = gen
		p.state.IsLoadingMore = true
	}
	return gen, p.publishLocked()
}

// endLocked clears the flag set by fetch gen, unless a newer fetch of the
// same kind has taken it over.
func (p *Paginator) endLocked(gen uint64, page int, isRefresh bool) {
	switch {
	case isRefresh:
		if p.refreshingGen == gen {
			p.state.IsRefreshing = false
		}
	case page == 1:
		if p.loadingGen == gen {
			p.state.IsLoading = false
		}
	default:
		if p.moreGen == gen {
			p.state.IsLoadingMore = false
		}
	}
}

func (p *Paginator) finish(ctx context.Context, gen uint64, page int, isRefresh bool) error {
	resp, err := p.api.ListBooks(ctx, p.tokens.Token(), page, p.pageSize)

	p.mu.Lock()
	p.endLocked(gen, page, isRefresh)

	if err != nil {
		publish := p.publishLocked()
		p.mu.Unlock()
		publish()
		p.logger.Warn("fetching books failed", "page", page, "refresh", isRefresh, "error", err)
		return err
	}

	if gen != p.gen {
		latest := p.gen
		publish := p.publishLocked()
		p.mu.Unlock()
		publish()
		p.logger.Debug("discarding superseded page", "page", page, "generation", gen, "latest", latest)
		return ErrSuperseded
	}

	if isRefresh || page == 1 {
		p.state.Items = append([]api.Book(nil), resp.Books...)
	} else {
		p.state.Items = Merge(p.state.Items, resp.Books)
	}
	p.state.HasMore = page < resp.TotalPages
	p.state.CurrentPage = page

	publish := p.publishLocked()
	count := len(p.state.Items)
	p.mu.Unlock()
	publish()

	p.logger.Debug("page applied", "page", page, "total_pages", resp.TotalPages, "items", count)
	return nil
}

// Reset empties the feed and discards every in-flight response, as when
// the signed-in user changes.
func (p *Paginator) Reset() {
	p.mu.Lock()
	p.gen++
	p.loadingGen, p.refreshingGen, p.moreGen = 0, 0, 0
	p.state = State{CurrentPage: 1, HasMore: true}
	publish := p.publishLocked()
	p.mu.Unlock()
	publish()
}

// Remove deletes the book with id from the list. It reports whether a book
// was removed.
func (p *Paginator) Remove(id string) bool {
	p.mu.Lock()
	items, removed := without(p.state.Items, id)
	if !removed {
		p.mu.Unlock()
		return false
	}
	p.state.Items = items
	publish := p.publishLocked()
	p.mu.Unlock()
	publish()
	return true
}

// Prepend inserts book at the front unless its id is already listed.
func (p *Paginator) Prepend(book api.Book) {
	p.mu.Lock()
	if contains(p.state.Items, book.ID) {
		p.mu.Unlock()
		return
	}
	p.state.Items = append([]api.Book{book}, p.state.Items...)
	publish := p.publishLocked()
	p.mu.Unlock()
	publish()
}

// Merge appends incoming to existing and drops repeated ids. When an id
// appears in both, the existing book is kept and the incoming copy ignored.
func Merge(existing, incoming []api.Book) []api.Book {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]api.Book, 0, len(existing)+len(incoming))
	for _, list := range [][]api.Book{existing, incoming} {
		for _, b := range list {
			if _, dup := seen[b.ID]; dup {
				continue
			}
			seen[b.ID] = struct{}{}
			out = append(out, b)
		}
	}
	return out
}

func without(items []api.Book, id string) ([]api.Book, bool) {
	for i, b := range items {
		if b.ID == id {
			out := make([]api.Book, 0, len(items)-1)
			out = append(out, items[:i]...)
			return append(out, items[i+1:]...), true
		}
	}
	return items, false
}

func contains(items []api.Book, id string) bool {
	for _, b := range items {
		if b.ID == id {
			return true
		}
	}
	return false
}
