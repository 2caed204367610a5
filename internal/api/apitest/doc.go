// Package apitest provides an in-memory fake of the book-recommendation
// backend for tests.
//
//	srv := apitest.New(t)
//	srv.AddAccount("ada", "ada@example.com", "secret1")
//	srv.SetPage(1, []apitest.Book{{ID: "1"}, {ID: "2"}}, 3)
//	client := api.NewClient(api.ClientConfig{BaseURL: srv.URL})
//
// FailNext injects a one-shot error response and Hold blocks a route until
// released, which lets tests interleave concurrent requests deterministically.
package apitest
