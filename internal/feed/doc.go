// Package feed implements the paginated recommendation feed and the
// signed-in user's shelf.
//
// # Paginator
//
// FetchPage(page, isRefresh) requests page with the session token. A refresh
// or page 1 replaces the list wholesale; later pages are merged with Merge,
// which keeps the first occurrence of every id, so a book already listed
// keeps its old field values when a later page repeats it.
//
// After each successful fetch HasMore is page < totalPages and CurrentPage
// is page. LoadMore requests CurrentPage+1 only when HasMore is true and no
// load, refresh, or load-more is in progress.
//
// Every fetch takes a generation number. A response is applied only if no
// newer fetch was issued meanwhile; otherwise FetchPage returns
// ErrSuperseded and the list is untouched.
//
// # Shelf
//
// Shelf holds the books owned by the signed-in user (GET /books/user). It is
// fetched whole and shares the same remove semantics as the paginator.
package feed
