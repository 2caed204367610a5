// ABOUTME: CredentialStore interface and well-known keys for bookfeed persistence
// ABOUTME: Durable key/value storage that survives process restarts

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// Well-known credential keys. Both are written together on auth success and
// cleared together on logout.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// CredentialStore defines the durable key/value operations used by the
// session layer.
type CredentialStore interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set creates or replaces the value stored under key.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// SaveSession writes the token and serialized user in one transaction.
	SaveSession(ctx context.Context, token, userJSON string) error
	// ClearSession removes both session keys in one transaction.
	ClearSession(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
