// ABOUTME: Session store owning the authenticated identity and bearer token
// ABOUTME: Implements register/login/logout/checkAuth with durable persistence and change notification

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/bookfeed/internal/api"
	"github.com/2389/bookfeed/internal/notify"
	"github.com/2389/bookfeed/internal/store"
)

// ErrMissingField is returned when a required credential is blank. No
// request is sent in that case.
var ErrMissingField = errors.New("missing required field")

// MessageMissingFields is shown for ErrMissingField.
const MessageMissingFields = "please fill in all fields"

// AuthAPI is the subset of the backend client used for authentication.
type AuthAPI interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
}

// Error is a failed register or login. Error() is the short user-facing
// message; Unwrap exposes the underlying cause.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Err }

// Snapshot is an immutable view of the session.
type Snapshot struct {
	User      *api.UserRecord
	Token     string
	IsLoading bool
	// ExpiresAt is read from the token's exp claim; zero when unknown.
	ExpiresAt time.Time
	// Seq increases with every transition. Subscribers may receive
	// snapshots out of order and should ignore one older than the last seen.
	Seq uint64
}

// Authenticated reports whether both user and token are present.
func (s Snapshot) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Store owns the in-memory session. Construct one per process and pass it
// to the components that need the token.
type Store struct {
	mu      sync.RWMutex
	user    *api.UserRecord
	token   string
	expires time.Time
	pending int // register/login calls in progress
	seq     uint64

	api    AuthAPI
	creds  store.CredentialStore
	hub    *notify.Hub[Snapshot]
	logger *slog.Logger
}

// New creates a session store. Pass nil logger for default.
func New(authAPI AuthAPI, creds store.CredentialStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session")
	return &Store{
		api:    authAPI,
		creds:  creds,
		hub:    notify.NewHub[Snapshot](logger),
		logger: logger,
	}
}

// Snapshot returns the current session state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Token:     s.token,
		IsLoading: s.pending > 0,
		ExpiresAt: s.expires,
		Seq:       s.seq,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// Token returns the current bearer token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Subscribe registers fn to be called after every session transition.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

// update applies fn under the lock and then notifies subscribers.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	s.seq++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.hub.Publish(snap)
}

// Register creates an account and starts a session with it.
func (s *Store) Register(ctx context.Context, username, email, password string) error {
	if err := requireFields(username, email, password); err != nil {
		return err
	}
	return s.authenticate(ctx, "register", func() (*api.AuthResponse, error) {
		return s.api.Register(ctx, api.RegisterRequest{Username: username, Email: email, Password: password})
	})
}

// Login starts a session for existing credentials.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if err := requireFields(email, password); err != nil {
		return err
	}
	return s.authenticate(ctx, "login", func() (*api.AuthResponse, error) {
		return s.api.Login(ctx, api.LoginRequest{Email: email, Password: password})
	})
}

func requireFields(values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return &Error{Message: MessageMissingFields, Err: ErrMissingField}
		}
	}
	return nil
}

func (s *Store) authenticate(ctx context.Context, op string, call func() (*api.AuthResponse, error)) error {
	s.update(func() { s.pending++ })

	resp, err := call()
	if err != nil {
		s.update(func() { s.pending-- })
		s.logger.Warn(op+" failed", "error", err)
		return &Error{Message: api.UserMessage(err, api.MessageGeneric), Err: err}
	}

	s.persist(ctx, resp)

	user := *resp.User
	expires := tokenExpiry(resp.Token)
	s.update(func() {
		s.pending--
		s.user = &user
		s.token = resp.Token
		s.expires = expires
	})

	s.logger.Info(op+" succeeded", "user_id", user.ID, "username", user.Username)
	return nil
}

// persist writes the session durably. Failures are logged only; the
// in-memory session still takes effect.
func (s *Store) persist(ctx context.Context, resp *api.AuthResponse) {
	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		s.logger.Error("encoding user for storage", "error", err)
		return
	}
	if err := s.creds.SaveSession(ctx, resp.Token, string(userJSON)); err != nil {
		s.logger.Error("persisting session", "error", err)
	}
}

// Logout clears the persisted and in-memory session. Storage failures are
// logged and otherwise ignored.
func (s *Store) Logout(ctx context.Context) {
	if err := s.creds.ClearSession(ctx); err != nil {
		s.logger.Warn("clearing persisted session", "error", err)
	}

	s.update(func() {
		s.user = nil
		s.token = ""
		s.expires = time.Time{}
	})

	s.logger.Info("logged out")
}

// CheckAuth restores the session from durable storage at startup. The token
// and user are read independently and applied as found, so a store holding
// only one of them yields a partial session. Read or parse failures are
// logged and treated as no session.
func (s *Store) CheckAuth(ctx context.Context) {
	token, user, err := s.loadPersisted(ctx)
	if err != nil {
		s.logger.Warn("restoring session", "error", err)
		token, user = "", nil
	}

	switch {
	case token != "" && user == nil:
		s.logger.Warn("persisted token has no matching user")
	case token == "" && user != nil:
		s.logger.Warn("persisted user has no matching token")
	}

	expires := tokenExpiry(token)
	if !expires.IsZero() && time.Now().After(expires) {
		s.logger.Warn("persisted token is expired", "expired_at", expires)
	}

	s.update(func() {
		s.user = user
		s.token = token
		s.expires = expires
	})

	s.logger.Debug("session restored", "authenticated", user != nil && token != "")
}

func (s *Store) loadPersisted(ctx context.Context) (string, *api.UserRecord, error) {
	token, err := s.creds.Get(ctx, store.KeyToken)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", nil, fmt.Errorf("reading token: %w", err)
	}

	userJSON, err := s.creds.Get(ctx, store.KeyUser)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", nil, fmt.Errorf("reading user: %w", err)
	}
	if userJSON == "" {
		return token, nil, nil
	}

	var user api.UserRecord
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return "", nil, fmt.Errorf("parsing user: %w", err)
	}
	return token, &user, nil
}
