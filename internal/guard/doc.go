// Package guard keeps the user in the route zone that matches their session.
//
// The guard has three states: unknown until the navigation layer reports
// ready, then unauthenticated or authenticated depending on whether the
// session has both a user and a token.
//
// DecideRedirect is the pure decision:
//
//   - navigation not ready, or path unresolved: nothing
//   - signed out and outside (auth): replace to /(auth)
//   - signed in and inside (auth): replace to /(tabs)
//
// Guard feeds DecideRedirect from a session store subscription plus
// SetNavigationReady and SetPath, and calls a Navigator with the result.
package guard
