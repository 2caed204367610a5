// ABOUTME: The signed-in user's own books, fetched as one unpaginated list
// ABOUTME: Supports load, refresh, and local removal after a successful delete

package feed

import (
	"context"
	"log/slog"
	"sync"

	"github.com/2389/bookfeed/internal/api"
	"github.com/2389/bookfeed/internal/notify"
)

// MessageShelfLoad is shown when the user's books cannot be fetched.
const MessageShelfLoad = "unable to load your books, try refreshing"

// ShelfState is an immutable view of the user's books.
type ShelfState struct {
	Items        []api.Book
	IsLoading    bool
	IsRefreshing bool
	// Notice is MessageShelfLoad after a failed fetch and empty otherwise.
	Notice string
	// Seq increases with every published transition.
	Seq uint64
}

// Shelf owns the list of books posted by the signed-in user.
type Shelf struct {
	mu    sync.Mutex
	state ShelfState
	gen   uint64
	seq   uint64

	api    BooksAPI
	tokens TokenSource
	hub    *notify.Hub[ShelfState]
	logger *slog.Logger
}

// NewShelf creates an empty shelf. Pass nil logger for default.
func NewShelf(booksAPI BooksAPI, tokens TokenSource, logger *slog.Logger) *Shelf {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "shelf")
	return &Shelf{
		api:    booksAPI,
		tokens: tokens,
		hub:    notify.NewHub[ShelfState](logger),
		logger: logger,
	}
}

// Snapshot returns the current shelf state.
func (s *Shelf) Snapshot() ShelfState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Shelf) snapshotLocked() ShelfState {
	st := s.state
	st.Items = append([]api.Book(nil), s.state.Items...)
	st.Seq = s.seq
	return st
}

// Subscribe registers fn to be called after every shelf transition.
func (s *Shelf) Subscribe(fn func(ShelfState)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// Load fetches the user's books, showing the loading state.
func (s *Shelf) Load(ctx context.Context) error {
	return s.fetch(ctx, false)
}

// Refresh refetches the user's books, showing the refreshing state.
func (s *Shelf) Refresh(ctx context.Context) error {
	return s.fetch(ctx, true)
}

func (s *Shelf) set(fn func()) {
	s.mu.Lock()
	fn()
	s.seq++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.Publish(snap)
}

func (s *Shelf) fetch(ctx context.Context, refresh bool) error {
	var gen uint64
	s.set(func() {
		s.gen++
		gen = s.gen
		if refresh {
			s.state.IsRefreshing = true
		} else {
			s.state.IsLoading = true
		}
	})

	books, err := s.api.ListUserBooks(ctx, s.tokens.Token())

	var superseded bool
	s.set(func() {
		latest := gen == s.gen
		if latest {
			s.state.IsLoading = false
			s.state.IsRefreshing = false
		}
		if err != nil {
			if latest {
				s.state.Notice = MessageShelfLoad
			}
			return
		}
		if !latest {
			superseded = true
			return
		}
		s.state.Items = append([]api.Book(nil), books...)
		s.state.Notice = ""
	})

	if err != nil {
		s.logger.Warn("fetching user books failed", "error", err)
		return err
	}
	if superseded {
		return ErrSuperseded
	}
	return nil
}

// Reset empties the shelf and discards every in-flight response.
func (s *Shelf) Reset() {
	s.set(func() {
		s.gen++
		s.state = ShelfState{}
	})
}

// Remove deletes the book with id from the shelf.
func (s *Shelf) Remove(id string) bool {
	var removed bool
	s.mu.Lock()
	s.state.Items, removed = without(s.state.Items, id)
	if !removed {
		s.mu.Unlock()
		return false
	}
	s.seq++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.Publish(snap)
	return true
}

// Prepend inserts book at the front unless its id is already listed.
func (s *Shelf) Prepend(book api.Book) {
	s.mu.Lock()
	if contains(s.state.Items, book.ID) {
		s.mu.Unlock()
		return
	}
	s.state.Items = append([]api.Book{book}, s.state.Items...)
	s.seq++
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.hub.Publish(snap)
}
