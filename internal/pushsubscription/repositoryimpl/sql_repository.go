package repositoryimpl

import (
	"context"

	"github.com/kazz187/taskdesk/internal/database"
	"github.com/kazz187/taskdesk/internal/pushsubscription"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type SQLRepository struct {
	db *database.DB
}

var _ pushsubscription.Repository = (*SQLRepository)(nil)

func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Save is idempotent per endpoint: a browser re-registering keeps one row.
func (r *SQLRepository) Save(ctx context.Context, s *pushsubscription.Subscription) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.Conn(ctx)
		if _, err := q.ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, s.Endpoint); err != nil {
			return cerr.WrapStorageWriteError("push subscription", err)
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO push_subscriptions (id, employee_id, endpoint, p256dh_key, auth_key, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			s.ID, s.EmployeeID, s.Endpoint, s.P256dhKey, s.AuthKey, database.Timestamp(s.CreatedAt),
		)
		if err != nil {
			return cerr.WrapStorageWriteError("push subscription", err)
		}
		return nil
	})
}

func (r *SQLRepository) ListByEmployee(ctx context.Context, employeeID string) ([]*pushsubscription.Subscription, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT id, employee_id, endpoint, p256dh_key, auth_key, created_at FROM push_subscriptions
		WHERE employee_id = $1 ORDER BY created_at, id`, employeeID)
	if err != nil {
		return nil, cerr.WrapStorageReadError("push subscriptions", err)
	}
	defer rows.Close()

	var list []*pushsubscription.Subscription
	for rows.Next() {
		var s pushsubscription.Subscription
		if err := rows.Scan(&s.ID, &s.EmployeeID, &s.Endpoint, &s.P256dhKey, &s.AuthKey, &s.CreatedAt); err != nil {
			return nil, cerr.WrapStorageReadError("push subscriptions", err)
		}
		s.CreatedAt = s.CreatedAt.UTC()
		list = append(list, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.WrapStorageReadError("push subscriptions", err)
	}
	return list, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM push_subscriptions WHERE id = $1`, id); err != nil {
		return cerr.WrapStorageDeleteError("push subscription", err)
	}
	return nil
}

func (r *SQLRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	if _, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint); err != nil {
		return cerr.WrapStorageDeleteError("push subscription", err)
	}
	return nil
}
