// Package api is the HTTP client for the book-recommendation backend.
//
// # Endpoints
//
//   - POST /auth/register  {username, email, password} -> {token, user}
//   - POST /auth/login     {email, password}           -> {token, user}
//   - GET  /books?page=P&limit=N (Bearer)              -> {books, totalPages, currentPage}
//   - GET  /books/user (Bearer)                        -> [book]
//   - POST /books (Bearer) {title, caption, rating, image} -> book
//   - DELETE /books/:id (Bearer)                       -> {message}
//
// # Errors
//
// Any non-2xx response becomes *Error whose Error() is the server's
// "message" field, or an operation-specific fallback when the body has none.
// Transport failures wrap ErrNetwork. UserMessage turns any of these into a
// short string for display.
//
// # Usage
//
//	c := api.NewClient(api.ClientConfig{BaseURL: "https://host/api", Timeout: 30 * time.Second})
//	page, err := c.ListBooks(ctx, token, 1, 2)
package api
