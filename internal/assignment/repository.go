package assignment

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a *Assignment) error
	// Find returns the assignment of taskID to employeeID.
	Find(ctx context.Context, taskID, employeeID string) (*Assignment, error)
	Update(ctx context.Context, a *Assignment) error
	// ListByEmployee returns the employee's assignments with AssignedAt at or
	// after since, oldest first. A zero since returns all of them.
	ListByEmployee(ctx context.Context, employeeID string, since time.Time) ([]*Assignment, error)
	// ListByTasks returns the employee's assignments for taskIDs, oldest first.
	ListByTasks(ctx context.Context, employeeID string, taskIDs []string) ([]*Assignment, error)
}
