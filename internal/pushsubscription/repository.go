package pushsubscription

import "context"

type Repository interface {
	// Save inserts the subscription or replaces the keys and owner of an
	// existing one with the same endpoint.
	Save(ctx context.Context, s *Subscription) error
	ListByEmployee(ctx context.Context, employeeID string) ([]*Subscription, error)
	Delete(ctx context.Context, id string) error
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}
