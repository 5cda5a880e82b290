package task

import "context"

// Filter narrows ListByAssignee. Zero fields match everything.
type Filter struct {
	Status      Status
	ProjectType string
	Title       string
}

type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// GetOwned returns NotFound unless the task is assigned to employeeID.
	GetOwned(ctx context.Context, id, employeeID string) (*Task, error)
	ListByAssignee(ctx context.Context, employeeID string, f Filter) ([]*Task, error)
	// ListByIDs returns the tasks that exist among ids, oldest first.
	ListByIDs(ctx context.Context, ids []string) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}
