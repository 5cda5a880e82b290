package repositoryimpl

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

	"github.com/kazz187/taskdesk/internal/assignment"
	"github.com/kazz187/taskdesk/internal/database"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type SQLRepository struct {
	db        *database.DB
	batchSize int
}

var _ assignment.Repository = (*SQLRepository)(nil)

func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db, batchSize: database.MaxInListSize}
}

const assignmentColumns = `id, assigned_task_id, employee_id, created_at, assigned_at, start_at, completed_at, priority`

func (r *SQLRepository) Create(ctx context.Context, a *assignment.Assignment) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`INSERT INTO assignments (`+assignmentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TaskID, a.EmployeeID, database.Timestamp(a.CreatedAt), database.Timestamp(a.AssignedAt),
		database.NullTimestamp(a.StartAt), database.NullTimestamp(a.CompletedAt), string(a.Priority),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return cerr.NewError(cerr.AlreadyExists, "task is already assigned to this employee", err)
		}
		return cerr.WrapStorageWriteError("assignment", err)
	}
	return nil
}

func (r *SQLRepository) Find(ctx context.Context, taskID, employeeID string) (*assignment.Assignment, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE assigned_task_id = $1 AND employee_id = $2`,
		taskID, employeeID)
	a, err := scan(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("assignment", err)
	}
	return a, nil
}

func (r *SQLRepository) Update(ctx context.Context, a *assignment.Assignment) error {
	res, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE assignments SET start_at = $1, completed_at = $2, priority = $3 WHERE id = $4`,
		database.NullTimestamp(a.StartAt), database.NullTimestamp(a.CompletedAt), string(a.Priority), a.ID,
	)
	if err != nil {
		return cerr.WrapStorageWriteError("assignment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return cerr.WrapStorageWriteError("assignment", err)
	}
	if n == 0 {
		return cerr.NewError(cerr.NotFound, "assignment not found", nil)
	}
	return nil
}

func (r *SQLRepository) ListByEmployee(ctx context.Context, employeeID string, since time.Time) ([]*assignment.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE employee_id = $1`
	args := []any{employeeID}
	if !since.IsZero() {
		query += ` AND assigned_at >= $2`
		args = append(args, database.Timestamp(since))
	}
	query += ` ORDER BY assigned_at, id`
	return r.list(ctx, query, args...)
}

func (r *SQLRepository) ListByTasks(ctx context.Context, employeeID string, taskIDs []string) ([]*assignment.Assignment, error) {
	list := []*assignment.Assignment{}
	for batch := range slices.Chunk(taskIDs, r.batchSize) {
		in, args := database.InList(2, batch)
		query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE employee_id = $1 AND assigned_task_id IN (` + in + `)`
		part, err := r.list(ctx, query, append([]any{employeeID}, args...)...)
		if err != nil {
			return nil, err
		}
		list = append(list, part...)
	}
	slices.SortStableFunc(list, func(a, b *assignment.Assignment) int {
		if c := a.AssignedAt.Compare(b.AssignedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return list, nil
}

func (r *SQLRepository) list(ctx context.Context, query string, args ...any) ([]*assignment.Assignment, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerr.WrapStorageReadError("assignments", err)
	}
	defer rows.Close()

	list := []*assignment.Assignment{}
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("assignments", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.WrapStorageReadError("assignments", err)
	}
	return list, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*assignment.Assignment, error) {
	var (
		a           assignment.Assignment
		startAt     sql.NullTime
		completedAt sql.NullTime
		priority    string
	)
	if err := s.Scan(&a.ID, &a.TaskID, &a.EmployeeID, &a.CreatedAt, &a.AssignedAt,
		&startAt, &completedAt, &priority); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	a.AssignedAt = a.AssignedAt.UTC()
	a.StartAt = database.TimePtr(startAt)
	a.CompletedAt = database.TimePtr(completedAt)
	a.Priority = assignment.Priority(priority)
	return &a, nil
}
