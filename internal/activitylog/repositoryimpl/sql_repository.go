package repositoryimpl

import (
	"context"

	"github.com/kazz187/taskdesk/internal/activitylog"
	"github.com/kazz187/taskdesk/internal/database"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type SQLRepository struct {
	db *database.DB
}

var _ activitylog.Repository = (*SQLRepository)(nil)

func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, e *activitylog.Entry) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`INSERT INTO activity_logs (id, employee_email, action, description, logged_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.EmployeeEmail, e.Action, e.Description, database.Timestamp(e.Timestamp),
	)
	if err != nil {
		return cerr.WrapStorageWriteError("activity log", err)
	}
	return nil
}

func (r *SQLRepository) ListByEmail(ctx context.Context, email string, limit int) ([]*activitylog.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT id, employee_email, action, description, logged_at FROM activity_logs
		WHERE employee_email = $1 ORDER BY logged_at DESC, id DESC LIMIT $2`, email, limit)
	if err != nil {
		return nil, cerr.WrapStorageReadError("activity logs", err)
	}
	defer rows.Close()

	list := []*activitylog.Entry{}
	for rows.Next() {
		var e activitylog.Entry
		if err := rows.Scan(&e.ID, &e.EmployeeEmail, &e.Action, &e.Description, &e.Timestamp); err != nil {
			return nil, cerr.WrapStorageReadError("activity logs", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.WrapStorageReadError("activity logs", err)
	}
	return list, nil
}
