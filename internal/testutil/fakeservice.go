// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"tasktrack/internal/service"
)

// ErrNotFound is returned when a task is not found.
var ErrNotFound = errors.New("not found")

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.RWMutex
	tasks  []service.Task
	nextID int
	calls  []string

	// User and Token are returned by Login and Register.
	User  service.User
	Token string

	// Valid is the answer of ValidateToken.
	Valid bool

	// Error injection for testing
	LoginErr      error
	RegisterErr   error
	LogoutErr     error
	ValidateErr   error
	GetTasksErr   error
	CreateTaskErr error
	UpdateTaskErr error
	DeleteTaskErr error
}

// NewFakeService creates a FakeService with a default user and no tasks.
func NewFakeService() *FakeService {
	return &FakeService{
		User:  service.User{ID: "u1", Email: "a@b.com"},
		Token: "header.payload.signature",
		Valid: true,
	}
}

// AddTask adds a task.
func (f *FakeService) AddTask(id, title string, completed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	f.tasks = append(f.tasks, service.Task{
		ID:        id,
		UserID:    f.User.ID,
		Title:     title,
		Completed: completed,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Tasks returns a copy of the stored tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Calls returns the names of the operations invoked so far.
func (f *FakeService) Calls() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *FakeService) record(op string) {
	f.calls = append(f.calls, op)
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, email, password string) (service.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Login")
	if f.LoginErr != nil {
		return service.AuthResponse{}, f.LoginErr
	}
	user := f.User
	user.Email = email
	return service.AuthResponse{User: user, Token: f.Token}, nil
}

// Register implements service.Service.
func (f *FakeService) Register(ctx context.Context, email, password string) (service.AuthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Register")
	if f.RegisterErr != nil {
		return service.AuthResponse{}, f.RegisterErr
	}
	user := f.User
	user.Email = email
	return service.AuthResponse{User: user, Token: f.Token}, nil
}

// Logout implements service.Service.
func (f *FakeService) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Logout")
	return f.LogoutErr
}

// ValidateToken implements service.Service.
func (f *FakeService) ValidateToken(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ValidateToken")
	if f.ValidateErr != nil {
		return false, f.ValidateErr
	}
	return f.Valid, nil
}

// GetTasks implements service.Service.
func (f *FakeService) GetTasks(ctx context.Context) ([]service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetTasks")
	if f.GetTasksErr != nil {
		return nil, f.GetTasksErr
	}
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out, nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, req service.CreateTaskRequest) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateTask")
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}

	f.nextID++
	now := time.Now().UTC()
	task := service.Task{
		ID:          "srv-" + strconv.Itoa(f.nextID),
		UserID:      f.User.ID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Loc(),
		PhotoURI:    req.PhotoURI,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tasks = append(f.tasks, task)
	return task, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, req service.UpdateTaskRequest) (service.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("UpdateTask")
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}

	for i := range f.tasks {
		if f.tasks[i].ID == id {
			req.Apply(&f.tasks[i])
			f.tasks[i].UpdatedAt = time.Now().UTC()
			return f.tasks[i], nil
		}
	}
	return service.Task{}, ErrNotFound
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteTask")
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}

	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}
