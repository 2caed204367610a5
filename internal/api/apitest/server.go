// ABOUTME: In-memory fake of the book-recommendation backend for tests
// ABOUTME: Serves the REST endpoints over httptest with JWT bearer auth and failure/hold hooks

package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Book is a book held by the fake backend.
type Book struct {
	ID           string
	Title        string
	Caption      string
	Rating       int
	Image        string
	OwnerID      string
	OwnerName    string
	OwnerProfile string
	CreatedAt    time.Time
}

func (b Book) wire() map[string]any {
	return map[string]any{
		"_id":     b.ID,
		"title":   b.Title,
		"caption": b.Caption,
		"rating":  b.Rating,
		"image":   b.Image,
		"user": map[string]any{
			"_id":          b.OwnerID,
			"username":     b.OwnerName,
			"profileImage": b.OwnerProfile,
		},
		"createdAt": b.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Page is an explicit response for GET /books?page=N.
type Page struct {
	Books      []Book
	TotalPages int
}

type account struct {
	ID        string
	Username  string
	Email     string
	Password  string
	CreatedAt time.Time
}

func (a *account) wire() map[string]any {
	return map[string]any{
		"id":           a.ID,
		"username":     a.Username,
		"email":        a.Email,
		"profileImage": "https://api.dicebear.com/7.x/avataaars/svg?seed=" + a.Username,
		"createdAt":    a.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type failure struct {
	status  int
	message string
}

// Gate holds matching requests until Release is called.
type Gate struct {
	arrived chan struct{}
	release chan struct{}
	once    sync.Once
}

// Arrived receives once per request that reached the gate.
func (g *Gate) Arrived() <-chan struct{} { return g.arrived }

// Release lets every held and future request through.
func (g *Gate) Release() { g.once.Do(func() { close(g.release) }) }

// Server is a fake backend. Routes are keyed as "METHOD /path".
type Server struct {
	URL    string
	secret []byte

	mu       sync.Mutex
	accounts map[string]*account // keyed by email
	books    []Book              // newest first
	pages    map[int]Page
	failures map[string]failure
	gates    map[string]*Gate
	requests []string
}

// New starts a fake backend that is shut down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		secret:   []byte("test-secret"),
		accounts: make(map[string]*account),
		pages:    make(map[int]Page),
		failures: make(map[string]failure),
		gates:    make(map[string]*Gate),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /books", s.requireAuth(s.handleListBooks))
	mux.HandleFunc("GET /books/user", s.requireAuth(s.handleUserBooks))
	mux.HandleFunc("POST /books", s.requireAuth(s.handleCreateBook))
	mux.HandleFunc("DELETE /books/{id}", s.requireAuth(s.handleDeleteBook))

	srv := httptest.NewServer(s.intercept(mux))
	t.Cleanup(func() {
		s.mu.Lock()
		for _, g := range s.gates {
			g.Release()
		}
		s.mu.Unlock()
		srv.Close()
	})
	s.URL = srv.URL
	return s
}

// AddAccount creates a user and returns its id.
func (s *Server) AddAccount(username, email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := &account{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		Password:  password,
		CreatedAt: time.Now(),
	}
	s.accounts[email] = a
	return a.ID
}

// AddBooks appends books to the backend's collection (newest first order).
func (s *Server) AddBooks(books ...Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = append(s.books, books...)
}

// SetPage makes GET /books?page=n return exactly the given books.
func (s *Server) SetPage(n int, books []Book, totalPages int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[n] = Page{Books: books, TotalPages: totalPages}
}

// FailNext makes the next request to route fail with status and message.
// An empty message produces a body without a "message" field.
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// Hold blocks requests to route until the returned gate is released.
func (s *Server) Hold(route string) *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := &Gate{
		arrived: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
	s.gates[route] = g
	return g
}

// Requests returns every request seen as "METHOD /path?query".
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// CountRequests returns how many requests hit route ("METHOD /path").
func (s *Server) CountRequests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r == route || strings.HasPrefix(r, route+"?") {
			n++
		}
	}
	return n
}

// BookIDs returns the ids currently stored.
func (s *Server) BookIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.books))
	for i, b := range s.books {
		ids[i] = b.ID
	}
	return ids
}

// IssueToken signs a token for userID, like the real backend does.
func (s *Server) IssueToken(userID string, expiresIn time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": userID,
		"sub":    userID,
		"iat":    now.Unix(),
		"exp":    now.Add(expiresIn).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("signing token: %v", err))
	}
	return signed
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path

		s.mu.Lock()
		entry := route
		if r.URL.RawQuery != "" {
			entry += "?" + r.URL.RawQuery
		}
		s.requests = append(s.requests, entry)
		f, failing := s.failures[route]
		if failing {
			delete(s.failures, route)
		}
		gate := s.gates[route]
		s.mu.Unlock()

		if gate != nil {
			select {
			case gate.arrived <- struct{}{}:
			default:
			}
			select {
			case <-gate.release:
			case <-r.Context().Done():
				return
			}
		}

		if failing {
			if f.message == "" {
				writeJSON(w, f.status, map[string]any{})
			} else {
				writeMessage(w, f.status, f.message)
			}
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next func(w http.ResponseWriter, r *http.Request, userID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" {
			writeMessage(w, http.StatusUnauthorized, "No authentication token, access denied")
			return
		}
		token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			writeMessage(w, http.StatusUnauthorized, "Token is not valid")
			return
		}
		claims, _ := token.Claims.(jwt.MapClaims)
		sub, _ := claims["sub"].(string)
		next(w, r, sub)
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if len(req.Password) < 6 {
		writeMessage(w, http.StatusBadRequest, "Password should be at least 6 characters long")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		writeMessage(w, http.StatusBadRequest, "Email already exists")
		return
	}
	a := &account{
		ID:        uuid.New().String(),
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		CreatedAt: time.Now(),
	}
	s.accounts[req.Email] = a
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"token": s.IssueToken(a.ID, 15*24*time.Hour),
		"user":  a.wire(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	s.mu.Lock()
	a, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || a.Password != req.Password {
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": s.IssueToken(a.ID, 15*24*time.Hour),
		"user":  a.wire(),
	})
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request, _ string) {
	page := atoiDefault(r.URL.Query().Get("page"), 1)
	limit := atoiDefault(r.URL.Query().Get("limit"), 2)

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pages[page]; ok {
		writeJSON(w, http.StatusOK, pageBody(p.Books, page, p.TotalPages, len(p.Books)))
		return
	}

	total := len(s.books)
	totalPages := (total + limit - 1) / limit
	start := (page - 1) * limit
	end := min(start+limit, total)
	var books []Book
	if start < total {
		books = s.books[start:end]
	}
	writeJSON(w, http.StatusOK, pageBody(books, page, totalPages, total))
}

func pageBody(books []Book, page, totalPages, totalBooks int) map[string]any {
	wire := make([]map[string]any, len(books))
	for i, b := range books {
		wire[i] = b.wire()
	}
	return map[string]any{
		"books":       wire,
		"currentPage": page,
		"totalBooks":  totalBooks,
		"totalPages":  totalPages,
	}
}

func (s *Server) handleUserBooks(w http.ResponseWriter, _ *http.Request, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wire := []map[string]any{}
	for _, b := range s.books {
		if b.OwnerID == userID {
			wire = append(wire, b.wire())
		}
	}
	writeJSON(w, http.StatusOK, wire)
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request, userID string) {
	var req struct {
		Title   string `json:"title"`
		Caption string `json:"caption"`
		Rating  int    `json:"rating"`
		Image   string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Title == "" || req.Caption == "" || req.Rating == 0 || req.Image == "" {
		writeMessage(w, http.StatusBadRequest, "Please provide all fields")
		return
	}
	if !strings.HasPrefix(req.Image, "data:") {
		writeMessage(w, http.StatusBadRequest, "Image must be a data URL")
		return
	}

	s.mu.Lock()
	owner := s.accountByID(userID)
	b := Book{
		ID:        uuid.New().String(),
		Title:     req.Title,
		Caption:   req.Caption,
		Rating:    req.Rating,
		Image:     "https://res.cloudinary.example/" + uuid.New().String() + ".jpg",
		OwnerID:   userID,
		CreatedAt: time.Now(),
	}
	if owner != nil {
		b.OwnerName = owner.Username
	}
	s.books = append([]Book{b}, s.books...)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, b.wire())
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request, userID string) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, b := range s.books {
		if b.ID != id {
			continue
		}
		if b.OwnerID != userID {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		s.books = append(s.books[:i], s.books[i+1:]...)
		writeMessage(w, http.StatusOK, "Book deleted successfully")
		return
	}
	writeMessage(w, http.StatusNotFound, "Book not found")
}

func (s *Server) accountByID(id string) *account {
	for _, a := range s.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Login returns a token for an existing account, failing the test otherwise.
func (s *Server) Login(t testing.TB, email string) string {
	t.Helper()
	s.mu.Lock()
	a, ok := s.accounts[email]
	s.mu.Unlock()
	if !ok {
		t.Fatalf("apitest: no account %q", email)
	}
	return s.IssueToken(a.ID, time.Hour)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
