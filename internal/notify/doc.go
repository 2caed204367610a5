// Package notify provides a small generic observer hub used by the session
// store, feed paginator, and mutation coordinator to announce state changes.
package notify
