// ABOUTME: Mutation coordinator: confirm-then-delete and create with local reconciliation
// ABOUTME: Tracks in-flight deletions in an inflight.Set and reports outcomes as notices

package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/bookfeed/internal/api"
	"github.com/2389/bookfeed/internal/inflight"
	"github.com/2389/bookfeed/internal/notify"
)

// Sentinel errors.
var (
	ErrAlreadyPending = errors.New("deletion already in progress for this book")
	ErrInvalidInput   = errors.New("invalid input")
)

// User-facing notice text.
const (
	MessageDeleted         = "the book was deleted"
	MessagePosted          = "your recommendation has been posted"
	MessageConfirmDelete   = "are you sure you want to delete this book?"
	MessageFillAllFields   = "please fill in all fields"
	MessageImageTooLarge   = "choose a smaller image (under 10MB)"
	MessageImageUnreadable = "unable to read the selected image"
)

// DefaultPendingTTL bounds how long a deletion can stay pending.
const DefaultPendingTTL = 2 * time.Minute

// maxPending caps the number of tracked in-flight deletions.
const maxPending = 256

// Level classifies a notice.
type Level int

const (
	LevelSuccess Level = iota
	LevelFailure
)

func (l Level) String() string {
	if l == LevelFailure {
		return "failure"
	}
	return "success"
}

// Notice is a short outcome message for the user.
type Notice struct {
	Level   Level
	Message string
}

// Notifier displays notices to the user.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

// Confirmer asks the user to confirm a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// ListOwner is a local list of books that mutations reconcile.
// feed.Paginator and feed.Shelf both satisfy it.
type ListOwner interface {
	Remove(id string) bool
	Prepend(book api.Book)
}

// BooksAPI is the subset of the backend client used for mutations.
type BooksAPI interface {
	CreateBook(ctx context.Context, token string, req api.CreateBookRequest) (*api.Book, error)
	DeleteBook(ctx context.Context, token, id string) (string, error)
}

// TokenSource supplies the current bearer token.
type TokenSource interface {
	Token() string
}

// Config configures a Coordinator.
type Config struct {
	API       BooksAPI
	Tokens    TokenSource
	Notifier  Notifier  // nil discards notices
	Confirmer Confirmer // nil confirms every request

	// Lists receive local removals on delete and new books on create.
	Lists      []ListOwner
	PendingTTL time.Duration
	Logger     *slog.Logger
}

// Coordinator performs deletions and creations against the backend.
type Coordinator struct {
	api       BooksAPI
	tokens    TokenSource
	notifier  Notifier
	confirmer Confirmer
	lists     []ListOwner
	pending   *inflight.Set
	hub       *notify.Hub[[]string]
	logger    *slog.Logger
}

// New creates a Coordinator. Call Close to stop its background expiry.
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "mutation")

	ttl := cfg.PendingTTL
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = NotifierFunc(func(Notice) {})
	}

	return &Coordinator{
		api:       cfg.API,
		tokens:    cfg.Tokens,
		notifier:  notifier,
		confirmer: cfg.Confirmer,
		lists:     cfg.Lists,
		pending:   inflight.New(ttl, maxPending),
		hub:       notify.NewHub[[]string](logger),
		logger:    logger,
	}
}

// Close stops the pending-set expiry goroutine.
func (c *Coordinator) Close() {
	c.pending.Close()
}

// Pending returns the ids with a deletion in flight, sorted.
func (c *Coordinator) Pending() []string {
	return c.pending.Keys()
}

// IsPending reports whether id has a deletion in flight.
func (c *Coordinator) IsPending(id string) bool {
	return c.pending.Has(id)
}

// Subscribe registers fn to receive the pending ids whenever they change.
func (c *Coordinator) Subscribe(fn func(pending []string)) (unsubscribe func()) {
	return c.hub.Subscribe(fn)
}

// RequestDelete asks for confirmation and deletes id if the user agrees.
// It reports whether a deletion was attempted.
func (c *Coordinator) RequestDelete(ctx context.Context, id string) (bool, error) {
	if c.confirmer != nil {
		ok, err := c.confirmer.Confirm(ctx, MessageConfirmDelete)
		if err != nil {
			return false, fmt.Errorf("confirm delete: %w", err)
		}
		if !ok {
			c.logger.Debug("delete canceled by user", "book_id", id)
			return false, nil
		}
	}
	return true, c.DeleteBook(ctx, id)
}

// DeleteBook deletes id on the server and, on success, removes it from
// every local list. The local lists are untouched on failure.
func (c *Coordinator) DeleteBook(ctx context.Context, id string) error {
	if !c.pending.Claim(id) {
		return ErrAlreadyPending
	}
	c.hub.Publish(c.pending.Keys())
	defer func() {
		c.pending.Release(id)
		c.hub.Publish(c.pending.Keys())
	}()

	msg, err := c.api.DeleteBook(ctx, c.tokens.Token(), id)
	if err != nil {
		c.logger.Warn("delete failed", "book_id", id, "error", err)
		c.notifier.Notify(Notice{Level: LevelFailure, Message: api.UserMessage(err, api.MessageDeleteBook)})
		return err
	}

	removed := 0
	for _, l := range c.lists {
		if l.Remove(id) {
			removed++
		}
	}
	c.logger.Info("book deleted", "book_id", id, "lists_updated", removed, "server_message", msg)
	c.notifier.Notify(Notice{Level: LevelSuccess, Message: MessageDeleted})
	return nil
}

// CreateBook validates draft, uploads it, and prepends the created book to
// every local list.
func (c *Coordinator) CreateBook(ctx context.Context, draft Draft) (*api.Book, error) {
	req, err := draft.Request()
	if err != nil {
		c.notifier.Notify(Notice{Level: LevelFailure, Message: noticeFor(err)})
		return nil, err
	}

	book, err := c.api.CreateBook(ctx, c.tokens.Token(), req)
	if err != nil {
		c.logger.Warn("create failed", "title", draft.Title, "error", err)
		c.notifier.Notify(Notice{Level: LevelFailure, Message: api.UserMessage(err, api.MessageCreateBook)})
		return nil, err
	}

	for _, l := range c.lists {
		l.Prepend(*book)
	}
	c.logger.Info("book created", "book_id", book.ID, "title", book.Title)
	c.notifier.Notify(Notice{Level: LevelSuccess, Message: MessagePosted})
	return book, nil
}

func noticeFor(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return api.MessageGeneric
}
