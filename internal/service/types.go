// Package service defines the backend-agnostic interface for auth and task operations.
package service

import "time"

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Location is a geographic coordinate attached to a task.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Task represents a single task item.
type Task struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	Location    *Location `json:"location,omitempty"`
	PhotoURI    string    `json:"photoUri,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Synced reports whether the last local mutation was acknowledged remotely.
	Synced bool `json:"synced,omitempty"`

	// RemoteID is the id the remote store assigned when a local create was acknowledged.
	RemoteID string `json:"remoteId,omitempty"`
}

// AuthResponse is returned by login and register.
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Credentials is the login and register input.
type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateTaskRequest is the input for creating a task.
type CreateTaskRequest struct {
	Title       string   `validate:"required"`
	Description string   `validate:"omitempty"`
	Latitude    *float64 `validate:"omitempty,latitude"`
	Longitude   *float64 `validate:"omitempty,longitude"`
	PhotoURI    string
}

// UpdateTaskRequest is a partial update; nil fields are left untouched.
type UpdateTaskRequest struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1"`
	Description *string   `json:"description,omitempty"`
	Completed   *bool     `json:"completed,omitempty"`
	Location    *Location `json:"location,omitempty"`
	PhotoURI    *string   `json:"photoUri,omitempty"`
}

// Empty reports whether the update changes nothing.
func (r UpdateTaskRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Completed == nil &&
		r.Location == nil && r.PhotoURI == nil
}

// Apply copies the set fields of r onto t.
func (r UpdateTaskRequest) Apply(t *Task) {
	if r.Title != nil {
		t.Title = *r.Title
	}
	if r.Description != nil {
		t.Description = *r.Description
	}
	if r.Completed != nil {
		t.Completed = *r.Completed
	}
	if r.Location != nil {
		loc := *r.Location
		t.Location = &loc
	}
	if r.PhotoURI != nil {
		t.PhotoURI = *r.PhotoURI
	}
}

// Loc returns the request's coordinates, or nil when neither is set. A
// missing coordinate of a pair defaults to 0.
func (r CreateTaskRequest) Loc() *Location {
	if r.Latitude == nil && r.Longitude == nil {
		return nil
	}
	var loc Location
	if r.Latitude != nil {
		loc.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		loc.Longitude = *r.Longitude
	}
	return &loc
}
