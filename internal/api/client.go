// ABOUTME: HTTP client for the book-recommendation REST backend
// ABOUTME: JSON over HTTPS with bearer auth; converts non-2xx bodies into *Error

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration // zero means no client-side timeout
	HTTPClient *http.Client  // optional; overrides Timeout when set
	Logger     *slog.Logger
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a Client for the given base URL (e.g. "https://host/api").
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		logger:  logger.With("component", "api"),
	}
}

// Register creates an account and returns the issued token and user.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", req)
}

// Login exchanges credentials for a token and user.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", req)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, path, "", body, &resp, MessageGeneric); err != nil {
		return nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return nil, fmt.Errorf("%s: %w: token and user are required", path, ErrMalformedResponse)
	}
	return &resp, nil
}

// ListBooks fetches one page of the public feed.
func (c *Client) ListBooks(ctx context.Context, token string, page, limit int) (*BooksPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var resp BooksPage
	if err := c.do(ctx, http.MethodGet, "/books?"+q.Encode(), token, nil, &resp, MessageFetchBooks); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListUserBooks fetches every book owned by the authenticated user.
func (c *Client) ListUserBooks(ctx context.Context, token string) ([]Book, error) {
	var books []Book
	if err := c.do(ctx, http.MethodGet, "/books/user", token, nil, &books, MessageFetchUserBook); err != nil {
		return nil, err
	}
	return books, nil
}

// CreateBook publishes a new recommendation.
func (c *Client) CreateBook(ctx context.Context, token string, req CreateBookRequest) (*Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodPost, "/books", token, req, &book, MessageCreateBook); err != nil {
		return nil, err
	}
	return &book, nil
}

// DeleteBook removes a recommendation and returns the server's message.
func (c *Client) DeleteBook(ctx context.Context, token, id string) (string, error) {
	var resp messageResponse
	path := "/books/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodDelete, path, token, nil, &resp, MessageDeleteBook); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// do performs a request and decodes a 2xx JSON body into out. Non-2xx
// responses become *Error using the body's "message" or fallback.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any, fallback string) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return fmt.Errorf("%s %s: %w: %w", method, path, ErrNetwork, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, method+" "+path, fallback)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", method, path, ErrMalformedResponse, err)
	}
	return nil
}

func decodeError(resp *http.Response, op, fallback string) error {
	apiErr := &Error{
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    fallback,
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}
	var msg messageResponse
	if json.Unmarshal(data, &msg) == nil && msg.Message != "" {
		apiErr.Message = msg.Message
	}
	return apiErr
}
