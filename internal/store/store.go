package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a task or profile does not exist
var ErrNotFound = errors.New("not found")

// Task is the subset of a task record the pipeline needs
type Task struct {
	ID          string
	Title       string
	ProjectName string
	Status      string
	AssignerID  string
	AssigneeID  string
	UpdatedAt   time.Time
}

// Profile is a user profile reachable through the entity store
type Profile struct {
	ID    string
	Email string
	Name  string
}

// EntityStore is the read-only boundary to the application's data store.
// The pipeline never writes through it.
type EntityStore interface {
	GetTask(ctx context.Context, id string) (Task, error)
	GetProfiles(ctx context.Context, ids []string) ([]Profile, error)
}
