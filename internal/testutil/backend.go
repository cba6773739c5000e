package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"tasktrack/internal/service"
	"tasktrack/internal/token"
)

// Backend is an in-process HTTP server speaking the task API's envelope
// protocol. Tokens it issues are unsigned but carry real claims.
type Backend struct {
	URL string

	mu       sync.Mutex
	users    map[string]backendUser // email -> user
	tasks    []service.Task
	nextID   int
	requests []RecordedRequest

	// Fail forces a status for a route key such as "POST /todos".
	Fail map[string]int

	// TokenTTL is the lifetime of issued tokens. Defaults to one hour.
	TokenTTL time.Duration
}

type backendUser struct {
	user     service.User
	password string
}

// RecordedRequest is one request seen by the Backend.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	Body          string
}

// NewBackend starts a Backend that is shut down when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		users:    make(map[string]backendUser),
		Fail:     make(map[string]int),
		TokenTTL: time.Hour,
	}

	srv := httptest.NewServer(b.routes())
	t.Cleanup(srv.Close)
	b.URL = srv.URL
	return b
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record)

	r.Post("/auth/register", b.handleRegister)
	r.Post("/auth/login", b.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(b.bearer)
		r.Get("/todos", b.handleList)
		r.Post("/todos", b.handleCreate)
		r.Patch("/todos/{id}", b.handleUpdate)
		r.Delete("/todos/{id}", b.handleDelete)
	})
	return r
}

// AddUser registers an account directly.
func (b *Backend) AddUser(id, email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[email] = backendUser{user: service.User{ID: id, Email: email}, password: password}
}

// AddTask seeds a task.
func (b *Backend) AddTask(task service.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = append(b.tasks, task)
}

// Tasks returns a copy of the stored tasks.
func (b *Backend) Tasks() []service.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]service.Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Requests returns the requests seen so far.
func (b *Backend) Requests() []RecordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RecordedRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// IssueToken returns a credential for user that expires after ttl.
func (b *Backend) IssueToken(user service.User, ttl time.Duration) string {
	now := time.Now()
	tok, err := token.Encode(token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: user.Email,
	})
	if err != nil {
		panic(err)
	}
	return tok
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = readAll(r)
		}
		b.mu.Lock()
		b.requests = append(b.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			Body:          string(body),
		})
		status := b.Fail[r.Method+" "+routeKey(r.URL.Path)]
		b.mu.Unlock()

		if status != 0 {
			writeEnvelopeError(w, status, http.StatusText(status))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) bearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || raw == "" {
			writeEnvelopeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		claims, err := token.DecodeClaimsUnsafe(raw)
		if err != nil || claims.Expired(time.Now()) {
			writeEnvelopeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), claims.Subject)))
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if err := decodeBody(r, &req); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	if _, exists := b.users[req.Email]; exists {
		b.mu.Unlock()
		writeEnvelopeError(w, http.StatusConflict, "email already registered")
		return
	}
	b.nextID++
	user := service.User{ID: "user-" + strconv.Itoa(b.nextID), Email: req.Email}
	b.users[req.Email] = backendUser{user: user, password: req.Password}
	ttl := b.TokenTTL
	b.mu.Unlock()

	writeEnvelope(w, http.StatusCreated, service.AuthResponse{User: user, Token: b.IssueToken(user, ttl)})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.Credentials
	if err := decodeBody(r, &req); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	u, ok := b.users[req.Email]
	ttl := b.TokenTTL
	b.mu.Unlock()
	if !ok || u.password != req.Password {
		writeEnvelopeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeEnvelope(w, http.StatusOK, service.AuthResponse{User: u.user, Token: b.IssueToken(u.user, ttl)})
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	b.mu.Lock()
	out := []service.Task{}
	for _, t := range b.tasks {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	b.mu.Unlock()

	writeEnvelope(w, http.StatusOK, out)
}

type createBody struct {
	Title     string            `json:"title"`
	Completed bool              `json:"completed"`
	Location  *service.Location `json:"location"`
	PhotoURI  string            `json:"photoUri"`
}

func (b *Backend) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createBody
	if err := decodeBody(r, &req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeEnvelopeError(w, http.StatusBadRequest, "title is required")
		return
	}

	now := time.Now().UTC()
	b.mu.Lock()
	b.nextID++
	task := service.Task{
		ID:        strconv.Itoa(b.nextID),
		UserID:    userIDFrom(r.Context()),
		Title:     req.Title,
		Completed: req.Completed,
		Location:  req.Location,
		PhotoURI:  req.PhotoURI,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.tasks = append(b.tasks, task)
	b.mu.Unlock()

	writeEnvelope(w, http.StatusCreated, task)
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.UpdateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeEnvelopeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			req.Apply(&b.tasks[i])
			b.tasks[i].UpdatedAt = time.Now().UTC()
			writeEnvelope(w, http.StatusOK, b.tasks[i])
			return
		}
	}
	writeEnvelopeError(w, http.StatusNotFound, "task not found")
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks = append(b.tasks[:i], b.tasks[i+1:]...)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
	}
	writeEnvelopeError(w, http.StatusNotFound, "task not found")
}

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func writeEnvelopeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": msg})
}

// routeKey collapses /todos/<id> to /todos/{id}.
func routeKey(path string) string {
	if rest, ok := strings.CutPrefix(path, "/todos/"); ok && rest != "" {
		return "/todos/{id}"
	}
	return path
}

// readAll drains the request body and puts it back for the next handler.
func readAll(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, err
}

func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

type ctxKey struct{}

func withUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
