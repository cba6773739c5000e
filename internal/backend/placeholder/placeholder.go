// Package placeholder reads demo todos from a public JSON testing API. It is
// unauthenticated and its writes are accepted but never stored.
package placeholder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"tasktrack/internal/apierror"
	"tasktrack/internal/service"
	"tasktrack/internal/tasksync"
	"tasktrack/internal/transport"
)

// DefaultURL is the public demo-data API.
const DefaultURL = "https://jsonplaceholder.typicode.com"

type todo struct {
	UserID    int    `json:"userId"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Client implements tasksync.Remote. The transport must not carry the
// session credential.
type Client struct {
	tr *transport.Client
}

var _ tasksync.Remote = (*Client)(nil)

// New returns a client over tr.
func New(tr *transport.Client) *Client {
	return &Client{tr: tr}
}

// ListTodos implements tasksync.Remote using the _limit query parameter.
func (c *Client) ListTodos(ctx context.Context, limit int) ([]tasksync.RemoteTodo, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("_limit", strconv.Itoa(limit))
	}
	raw, err := c.tr.Call(ctx, "/todos", transport.Request{Method: http.MethodGet, Query: q})
	if err != nil {
		return nil, err
	}

	var todos []todo
	if err := json.Unmarshal(raw, &todos); err != nil {
		return nil, &apierror.Error{Kind: apierror.MalformedResponse, Op: "GET /todos", Body: string(raw), Err: err}
	}

	out := make([]tasksync.RemoteTodo, 0, len(todos))
	for _, t := range todos {
		out = append(out, tasksync.RemoteTodo{
			ID:        idString(t.ID),
			UserID:    idString(t.UserID),
			Title:     t.Title,
			Completed: t.Completed,
		})
	}
	return out, nil
}

// CreateTodo implements tasksync.Remote.
func (c *Client) CreateTodo(ctx context.Context, task service.Task) (string, error) {
	raw, err := c.tr.Call(ctx, "/todos", transport.Request{
		Method: http.MethodPost,
		Body: map[string]any{
			"title":     task.Title,
			"completed": task.Completed,
			"userId":    task.UserID,
		},
	})
	if err != nil {
		return "", err
	}

	var created todo
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("decode created todo: %w", err)
	}
	return idString(created.ID), nil
}

// UpdateTodo implements tasksync.Remote.
func (c *Client) UpdateTodo(ctx context.Context, remoteID string, req service.UpdateTaskRequest) error {
	_, err := c.tr.Call(ctx, "/todos/"+url.PathEscape(remoteID), transport.Request{
		Method: http.MethodPatch,
		Body:   req,
	})
	return err
}

// DeleteTodo implements tasksync.Remote.
func (c *Client) DeleteTodo(ctx context.Context, remoteID string) error {
	_, err := c.tr.Call(ctx, "/todos/"+url.PathEscape(remoteID), transport.Request{Method: http.MethodDelete})
	return err
}

func idString(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
