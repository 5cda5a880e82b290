package activitylog

import "context"

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	// ListByEmail returns the newest entries first.
	ListByEmail(ctx context.Context, email string, limit int) ([]*Entry, error)
}
