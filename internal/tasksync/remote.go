package tasksync

import (
	"context"

	"tasktrack/internal/service"
)

// RemoteTodo is a task as a remote source reports it.
type RemoteTodo struct {
	ID        string
	UserID    string
	Title     string
	Completed bool
}

// Remote is a store the engine reconciles against.
type Remote interface {
	// ListTodos returns at most limit records.
	ListTodos(ctx context.Context, limit int) ([]RemoteTodo, error)

	// CreateTodo stores task and returns the id the remote assigned.
	CreateTodo(ctx context.Context, task service.Task) (string, error)

	// UpdateTodo applies a partial update to the record with remoteID.
	UpdateTodo(ctx context.Context, remoteID string, req service.UpdateTaskRequest) error

	// DeleteTodo removes the record with remoteID.
	DeleteTodo(ctx context.Context, remoteID string) error
}

// ServiceRemote adapts the API service layer to Remote. active is consulted
// on every call so a variant switch is picked up immediately.
type ServiceRemote struct {
	active func() service.Service
}

// NewServiceRemote returns a Remote over whichever service active returns.
func NewServiceRemote(active func() service.Service) *ServiceRemote {
	return &ServiceRemote{active: active}
}

func (r *ServiceRemote) ListTodos(ctx context.Context, limit int) ([]RemoteTodo, error) {
	tasks, err := r.active().GetTasks(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}

	out := make([]RemoteTodo, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, RemoteTodo{
			ID:        t.ID,
			UserID:    t.UserID,
			Title:     t.Title,
			Completed: t.Completed,
		})
	}
	return out, nil
}

func (r *ServiceRemote) CreateTodo(ctx context.Context, task service.Task) (string, error) {
	req := service.CreateTaskRequest{
		Title:       task.Title,
		Description: task.Description,
		PhotoURI:    task.PhotoURI,
	}
	if task.Location != nil {
		lat, lon := task.Location.Latitude, task.Location.Longitude
		req.Latitude, req.Longitude = &lat, &lon
	}

	created, err := r.active().CreateTask(ctx, req)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (r *ServiceRemote) UpdateTodo(ctx context.Context, remoteID string, req service.UpdateTaskRequest) error {
	_, err := r.active().UpdateTask(ctx, remoteID, req)
	return err
}

func (r *ServiceRemote) DeleteTodo(ctx context.Context, remoteID string) error {
	return r.active().DeleteTask(ctx, remoteID)
}
