// Package store provides the durable credential store for bookfeed.
//
// # Architecture
//
// CredentialStore is a small key/value interface. SQLiteStore implements it on
// a single credentials table; MockStore implements it in memory for tests.
//
// Two keys matter to the session layer:
//
//   - token: the raw bearer token
//   - user: the JSON-serialized user record
//
// SaveSession and ClearSession touch both keys inside one transaction.
//
// # SQLite Drivers
//
// The pure Go driver (modernc.org/sqlite, name "sqlite") is the default.
// The cgo driver (github.com/mattn/go-sqlite3, name "sqlite3") can be chosen
// with OpenSQLiteStore.
//
// Database file locations:
//
//   - Default: ~/.local/share/bookfeed/credentials.db
//   - Testing: :memory: or a t.TempDir() path
//
// # Error Handling
//
// Get returns ErrNotFound when a key is absent. All methods accept
// context.Context for cancellation support.
package store
