// Package service defines the backend-agnostic interface for auth and task operations.
package service

import "context"

// Service is the API service layer. The real backend and the offline mock
// implement it identically so the session can swap them transparently.
type Service interface {
	// Login authenticates with email and password.
	Login(ctx context.Context, email, password string) (AuthResponse, error)

	// Register creates an account and signs it in.
	Register(ctx context.Context, email, password string) (AuthResponse, error)

	// Logout ends the session on the backend, if it tracks sessions at all.
	Logout(ctx context.Context) error

	// ValidateToken reports whether the stored credential is still usable.
	// false means explicit rejection; an error means validation could not run.
	ValidateToken(ctx context.Context) (bool, error)

	// GetTasks returns every task of the signed-in user.
	GetTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns the stored record.
	CreateTask(ctx context.Context, req CreateTaskRequest) (Task, error)

	// UpdateTask applies a partial update and returns the stored record.
	UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id string) error
}
