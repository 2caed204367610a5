// Package app constructs the bookfeed client once at startup. Consumers
// receive the *App (or one of its components) instead of reaching for
// global state.
package app
