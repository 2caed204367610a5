// Package session owns the client's authentication state.
//
// # Overview
//
// Store holds the current user and bearer token, persists them through a
// store.CredentialStore, and notifies subscribers after every transition.
// It is constructed once at startup and shared by reference.
//
//   - Register / Login: POST credentials, persist token and user together,
//     update the session. Failures leave the session untouched and return
//     an *Error whose message is safe to show.
//   - Logout: clear persisted keys and reset the session.
//   - CheckAuth: restore from storage; never fails outward.
//
// IsLoading is true while any Register or Login call is in progress.
//
// # Usage
//
//	s := session.New(apiClient, credStore, logger)
//	s.CheckAuth(ctx)
//	if err := s.Login(ctx, email, password); err != nil {
//		fmt.Println(err) // short user-facing message
//	}
package session
