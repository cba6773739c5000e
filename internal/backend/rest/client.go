// Package rest implements service.Service against the task backend's JSON
// API. Every response arrives in a {success, data, error} envelope.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"tasktrack/internal/service"
	"tasktrack/internal/token"
	"tasktrack/internal/transport"
)

const (
	registerPath = "/auth/register"
	loginPath    = "/auth/login"
	todosPath    = "/todos"
)

// Client implements service.Service over HTTP.
type Client struct {
	tr     *transport.Client
	tokens oauth2.TokenSource
	now    func() time.Time
}

// New creates a client. tokens is the same credential source the transport
// borrows from; ValidateToken decodes it locally.
func New(tr *transport.Client, tokens oauth2.TokenSource) *Client {
	return &Client{tr: tr, tokens: tokens, now: time.Now}
}

// SetClock replaces the clock used for expiry checks.
func (c *Client) SetClock(now func() time.Time) { c.now = now }

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login implements service.Service.
func (c *Client) Login(ctx context.Context, email, password string) (service.AuthResponse, error) {
	if err := service.ValidateCredentials(email, password, false); err != nil {
		return service.AuthResponse{}, err
	}
	return c.authenticate(ctx, loginPath, email, password)
}

// Register implements service.Service.
func (c *Client) Register(ctx context.Context, email, password string) (service.AuthResponse, error) {
	if err := service.ValidateCredentials(email, password, true); err != nil {
		return service.AuthResponse{}, err
	}
	return c.authenticate(ctx, registerPath, email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (service.AuthResponse, error) {
	raw, err := c.tr.Call(ctx, path, transport.Request{
		Method: http.MethodPost,
		Body:   credentialsBody{Email: email, Password: password},
	})
	if err != nil {
		return service.AuthResponse{}, err
	}

	auth, err := service.Unwrap[service.AuthResponse](raw)
	if err != nil {
		return service.AuthResponse{}, err
	}
	if auth.Token == "" || auth.User.ID == "" {
		return service.AuthResponse{}, service.ErrInvalidStructure
	}
	return auth, nil
}

// Logout implements service.Service. The backend is stateless, so there is
// nothing to tell it.
func (c *Client) Logout(ctx context.Context) error {
	return nil
}

// ValidateToken implements service.Service by decoding the stored credential.
// No request is made.
func (c *Client) ValidateToken(ctx context.Context) (bool, error) {
	if c.tokens == nil {
		return false, nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return false, fmt.Errorf("read credential: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return false, nil
	}
	return token.Valid(tok.AccessToken, c.now()), nil
}

// GetTasks implements service.Service.
func (c *Client) GetTasks(ctx context.Context) ([]service.Task, error) {
	raw, err := c.tr.Call(ctx, todosPath, transport.Request{Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	return service.Unwrap[[]service.Task](raw)
}

type createBody struct {
	Title     string            `json:"title"`
	Completed bool              `json:"completed"`
	Location  *service.Location `json:"location,omitempty"`
	PhotoURI  string            `json:"photoUri,omitempty"`
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, req service.CreateTaskRequest) (service.Task, error) {
	req, err := service.ValidateCreate(req)
	if err != nil {
		return service.Task{}, err
	}

	raw, err := c.tr.Call(ctx, todosPath, transport.Request{
		Method: http.MethodPost,
		Body: createBody{
			Title:     req.Title,
			Completed: false,
			Location:  req.Loc(),
			PhotoURI:  req.PhotoURI,
		},
	})
	if err != nil {
		return service.Task{}, err
	}
	return service.Unwrap[service.Task](raw)
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, id string, req service.UpdateTaskRequest) (service.Task, error) {
	if err := service.ValidateUpdate(id, req); err != nil {
		return service.Task{}, err
	}

	raw, err := c.tr.Call(ctx, taskPath(id), transport.Request{
		Method: http.MethodPatch,
		Body:   req,
	})
	if err != nil {
		return service.Task{}, err
	}
	return service.Unwrap[service.Task](raw)
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := service.ValidateID(id); err != nil {
		return err
	}

	raw, err := c.tr.Call(ctx, taskPath(id), transport.Request{Method: http.MethodDelete})
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	res, err := service.DecodeResult[struct{}](raw, false)
	if err != nil {
		return err
	}
	_, err = res.Unwrap()
	return err
}

func taskPath(id string) string {
	return todosPath + "/" + url.PathEscape(id)
}
