// ABOUTME: Error types for backend API calls
// ABOUTME: Carries HTTP status plus the server's user-facing message, with generic fallbacks

package api

import (
	"errors"
	"net/http"
)

// ErrNetwork wraps transport failures (DNS, connection reset, timeouts).
var ErrNetwork = errors.New("network error")

// ErrMalformedResponse is returned when a 2xx body cannot be decoded or lacks
// required fields.
var ErrMalformedResponse = errors.New("malformed response")

// Fallback messages used when the server does not supply one.
const (
	MessageGeneric       = "something went wrong"
	MessageFetchBooks    = "failed to fetch books"
	MessageFetchUserBook = "failed to fetch your books"
	MessageCreateBook    = "failed to share the book"
	MessageDeleteBook    = "failed to delete the recommendation"
	MessageNetwork       = "network unavailable, please try again"
)

// Error is a non-2xx response from the backend.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

// Error returns the user-facing message.
func (e *Error) Error() string {
	return e.Message
}

// IsAuthFailure reports whether err is a 401 or 403 response.
func IsAuthFailure(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// UserMessage converts any error into a short message suitable for display.
// Server messages pass through; transport and decoding failures become
// generic text; fallback is used for everything else.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrNetwork) {
		return MessageNetwork
	}
	if fallback == "" {
		return MessageGeneric
	}
	return fallback
}
