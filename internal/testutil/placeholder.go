package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
)

// PlaceholderTodo is a record of the public demo-data API.
type PlaceholderTodo struct {
	UserID    int    `json:"userId"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Placeholder serves GET /todos?_limit=N from a fixed list.
type Placeholder struct {
	URL   string
	Todos []PlaceholderTodo

	hits atomic.Int64
}

// NewPlaceholder starts a Placeholder holding n numbered todos.
func NewPlaceholder(t *testing.T, n int) *Placeholder {
	t.Helper()

	p := &Placeholder{}
	for i := 1; i <= n; i++ {
		p.Todos = append(p.Todos, PlaceholderTodo{
			UserID:    1,
			ID:        i,
			Title:     "remote todo " + strconv.Itoa(i),
			Completed: i%2 == 0,
		})
	}

	r := chi.NewRouter()
	r.Get("/todos", func(w http.ResponseWriter, r *http.Request) {
		p.hits.Add(1)
		todos := p.Todos
		if limit, err := strconv.Atoi(r.URL.Query().Get("_limit")); err == nil && limit >= 0 && limit < len(todos) {
			todos = todos[:limit]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(todos)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	p.URL = srv.URL
	return p
}

// Hits returns how many list requests were served.
func (p *Placeholder) Hits() int { return int(p.hits.Load()) }
