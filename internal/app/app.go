// ABOUTME: Service object graph for the bookfeed client, built once at startup
// ABOUTME: Wires config, credential store, API client, session, guard, feed, shelf, and mutations

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/2389/bookfeed/internal/api"
	"github.com/2389/bookfeed/internal/config"
	"github.com/2389/bookfeed/internal/feed"
	"github.com/2389/bookfeed/internal/guard"
	"github.com/2389/bookfeed/internal/mutation"
	"github.com/2389/bookfeed/internal/session"
	"github.com/2389/bookfeed/internal/store"
)

// Options supplies the outer-surface collaborators. Zero values are valid.
type Options struct {
	Navigator guard.Navigator
	Notifier  mutation.Notifier
	Confirmer mutation.Confirmer

	// Store overrides the configured SQLite credential store. The App does
	// not close a store it did not open.
	Store      store.CredentialStore
	HTTPClient *http.Client
}

// App owns every component of the client. Construct it once and pass it to
// consumers.
type App struct {
	Config    *config.Config
	API       *api.Client
	Session   *session.Store
	Guard     *guard.Guard
	Feed      *feed.Paginator
	Shelf     *feed.Shelf
	Mutations *mutation.Coordinator

	creds     store.CredentialStore
	ownsStore bool
	unsub     []func()
	logger    *slog.Logger

	mu        sync.Mutex
	lastToken string
	lastSeq   uint64
}

type discardNavigator struct{}

func (discardNavigator) Replace(string) {}

// New builds the component graph from cfg.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	creds := opts.Store
	owns := false
	if creds == nil {
		s, err := store.OpenSQLiteStore(cfg.Database.Driver, cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("opening credential store: %w", err)
		}
		creds = s
		owns = true
	}

	client := api.NewClient(api.ClientConfig{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.RequestTimeout,
		HTTPClient: opts.HTTPClient,
		Logger:     logger,
	})

	sess := session.New(client, creds, logger)
	paginator := feed.NewPaginator(client, sess, cfg.Feed.PageSize, logger)
	shelf := feed.NewShelf(client, sess, logger)
	mutations := mutation.New(mutation.Config{
		API:        client,
		Tokens:     sess,
		Notifier:   opts.Notifier,
		Confirmer:  opts.Confirmer,
		Lists:      []mutation.ListOwner{paginator, shelf},
		PendingTTL: cfg.Mutation.PendingTTL,
		Logger:     logger,
	})

	nav := opts.Navigator
	if nav == nil {
		nav = discardNavigator{}
	}
	g := guard.New(nav, logger)

	a := &App{
		Config:    cfg,
		API:       client,
		Session:   sess,
		Guard:     g,
		Feed:      paginator,
		Shelf:     shelf,
		Mutations: mutations,
		creds:     creds,
		ownsStore: owns,
		logger:    logger.With("component", "app"),
	}
	a.unsub = append(a.unsub, g.Attach(sess), sess.Subscribe(a.onSession))
	return a, nil
}

// onSession drops the lists when the token behind them changes.
func (a *App) onSession(snap session.Snapshot) {
	a.mu.Lock()
	if snap.Seq < a.lastSeq {
		a.mu.Unlock()
		return
	}
	a.lastSeq = snap.Seq
	changed := snap.Token != a.lastToken
	hadToken := a.lastToken != ""
	a.lastToken = snap.Token
	a.mu.Unlock()

	if changed && hadToken {
		a.logger.Debug("session changed, clearing lists")
		a.Feed.Reset()
		a.Shelf.Reset()
	}
}

// Start restores any persisted session and then lets the guard navigate.
func (a *App) Start(ctx context.Context) {
	a.Session.CheckAuth(ctx)
	a.Guard.SetNavigationReady(true)
	snap := a.Session.Snapshot()
	a.logger.Info("client started", "authenticated", snap.Authenticated(), "guard", a.Guard.State().String())
}

// Close detaches observers, stops background work, and closes the
// credential store if the App opened it.
func (a *App) Close() error {
	for _, unsub := range a.unsub {
		unsub()
	}
	a.Mutations.Close()
	if a.ownsStore {
		if err := a.creds.Close(); err != nil {
			return fmt.Errorf("closing credential store: %w", err)
		}
	}
	return nil
}
