// Package googletasks implements tasksync.Remote over the Google Tasks API.
// Only the user's default list is used.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"tasktrack/internal/apierror"
	"tasktrack/internal/config"
	"tasktrack/internal/service"
	"tasktrack/internal/tasksync"
)

const (
	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Client implements tasksync.Remote using Google Tasks API.
type Client struct {
	svc    *tasks.Service
	listID string
}

var _ tasksync.Remote = (*Client)(nil)

// OAuthConfig loads the OAuth client credentials from the config dir.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.OAuthClientFile, err)
	}
	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.OAuthClientFile, err)
	}
	return oauthConfig, nil
}

// New creates a client from the linked account.
// Requires oauth_client.json and google_token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	oauthConfig, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}

	tokenData, err := os.ReadFile(cfg.GoogleTokenPath())
	if err != nil {
		return nil, fmt.Errorf("google account not linked (run: tasktrack link-google): %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.GoogleTokenFile, err)
	}

	// Refreshes automatically.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))
	return NewWithHTTPClient(ctx, httpClient)
}

// NewWithHTTPClient creates a client with a custom HTTP client. Extra options
// (such as option.WithEndpoint) are passed to the tasks service.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &Client{svc: svc, listID: DefaultListID}, nil
}

// ListTodos returns up to limit tasks from the default list, completed ones
// included.
func (c *Client) ListTodos(ctx context.Context, limit int) ([]tasksync.RemoteTodo, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	call := c.svc.Tasks.List(c.listID).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Context(ctx)
	if limit > 0 {
		call = call.MaxResults(int64(limit))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, wrapError("list", err)
	}

	var result []tasksync.RemoteTodo
	for _, task := range resp.Items {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, tasksync.RemoteTodo{
			ID:        task.Id,
			Title:     task.Title,
			Completed: task.Status == statusCompleted,
		})
	}
	return result, nil
}

// CreateTodo inserts task into the default list.
func (c *Client) CreateTodo(ctx context.Context, task service.Task) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(c.listID, &tasks.Task{
		Title:  task.Title,
		Notes:  task.Description,
		Status: status(task.Completed),
	}).Context(ctx).Do()
	if err != nil {
		return "", wrapError("insert", err)
	}
	return created.Id, nil
}

// UpdateTodo patches the task. Location and photo have no Google Tasks
// counterpart and are ignored.
func (c *Client) UpdateTodo(ctx context.Context, remoteID string, req service.UpdateTaskRequest) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	patch := &tasks.Task{}
	if req.Title != nil {
		patch.Title = *req.Title
	}
	if req.Description != nil {
		patch.Notes = *req.Description
		if patch.Notes == "" {
			patch.ForceSendFields = append(patch.ForceSendFields, "Notes")
		}
	}
	if req.Completed != nil {
		patch.Status = status(*req.Completed)
		if !*req.Completed {
			patch.NullFields = append(patch.NullFields, "Completed")
		}
	}

	if _, err := c.svc.Tasks.Patch(c.listID, remoteID, patch).Context(ctx).Do(); err != nil {
		return wrapError("patch", err)
	}
	return nil
}

// DeleteTodo deletes a task.
func (c *Client) DeleteTodo(ctx context.Context, remoteID string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(c.listID, remoteID).Context(ctx).Do(); err != nil {
		return wrapError("delete", err)
	}
	return nil
}

func status(completed bool) string {
	if completed {
		return statusCompleted
	}
	return statusNeedsAction
}

// wrapError classifies API errors the same way the REST transport does.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	op = "googletasks " + op

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &apierror.Error{
			Kind:    apierror.HTTPStatus,
			Op:      op,
			Status:  gerr.Code,
			Message: gerr.Message,
			Body:    gerr.Body,
			Err:     err,
		}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &apierror.Error{Kind: apierror.Timeout, Op: op, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &apierror.Error{Kind: apierror.Network, Op: op, Err: err}
}
