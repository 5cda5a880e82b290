package repositoryimpl

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kazz187/taskdesk/internal/database"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type SQLRepository struct {
	db        *database.DB
	batchSize int
}

var _ task.Repository = (*SQLRepository)(nil)

func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db, batchSize: database.MaxInListSize}
}

const taskColumns = `id, title, description, project_type, status, due_date, attachments, assignee_id, created_at, updated_at`

func (r *SQLRepository) Create(ctx context.Context, t *task.Task) error {
	attachments, err := encodeAttachments(t.Attachments)
	if err != nil {
		return err
	}
	_, err = r.db.Conn(ctx).ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Title, t.Description, t.ProjectType, string(t.Status),
		database.NullTimestamp(t.DueDate), attachments, database.NullString(t.AssigneeID),
		database.Timestamp(t.CreatedAt), database.Timestamp(t.UpdatedAt),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return cerr.NewError(cerr.AlreadyExists, "task already exists", err)
		}
		return cerr.WrapStorageWriteError("task", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scan(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("task", err)
	}
	return t, nil
}

func (r *SQLRepository) GetOwned(ctx context.Context, id, employeeID string) (*task.Task, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND assignee_id = $2`, id, employeeID)
	t, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cerr.NewError(cerr.NotFound, "task not found or not assigned to you", err)
		}
		return nil, cerr.WrapStorageReadError("task", err)
	}
	return t, nil
}

func (r *SQLRepository) ListByAssignee(ctx context.Context, employeeID string, f task.Filter) ([]*task.Task, error) {
	var (
		conds = []string{"assignee_id = $1"}
		args  = []any{employeeID}
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.ProjectType != "" {
		add("project_type = $%d", f.ProjectType)
	}
	if f.Title != "" {
		add("title = $%d", f.Title)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at, id`
	return r.list(ctx, query, args...)
}

func (r *SQLRepository) ListByIDs(ctx context.Context, ids []string) ([]*task.Task, error) {
	list := []*task.Task{}
	for batch := range slices.Chunk(ids, r.batchSize) {
		in, args := database.InList(1, batch)
		part, err := r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id IN (`+in+`)`, args...)
		if err != nil {
			return nil, err
		}
		list = append(list, part...)
	}
	slices.SortStableFunc(list, func(a, b *task.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return list, nil
}

func (r *SQLRepository) list(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	defer rows.Close()

	list := []*task.Task{}
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("tasks", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.WrapStorageReadError("tasks", err)
	}
	return list, nil
}

func (r *SQLRepository) Update(ctx context.Context, t *task.Task) error {
	attachments, err := encodeAttachments(t.Attachments)
	if err != nil {
		return err
	}
	res, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE tasks SET title = $1, description = $2, project_type = $3, status = $4, due_date = $5,
			attachments = $6, assignee_id = $7, updated_at = $8
		WHERE id = $9`,
		t.Title, t.Description, t.ProjectType, string(t.Status), database.NullTimestamp(t.DueDate),
		attachments, database.NullString(t.AssigneeID), database.Timestamp(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return cerr.WrapStorageWriteError("task", err)
	}
	return requireAffected(res, "task")
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.Conn(ctx).ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return cerr.WrapStorageDeleteError("task", err)
	}
	return requireAffected(res, "task")
}

func requireAffected(res sql.Result, target string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return cerr.WrapStorageWriteError(target, err)
	}
	if n == 0 {
		return cerr.NewError(cerr.NotFound, target+" not found", nil)
	}
	return nil
}

func encodeAttachments(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return "", cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal attachments: %w", err))
	}
	return string(data), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*task.Task, error) {
	var (
		t           task.Task
		status      string
		dueDate     sql.NullTime
		attachments string
		assigneeID  sql.NullString
	)
	if err := s.Scan(&t.ID, &t.Title, &t.Description, &t.ProjectType, &status, &dueDate,
		&attachments, &assigneeID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	t.DueDate = database.TimePtr(dueDate)
	t.AssigneeID = assigneeID.String
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	t.Attachments = []string{}
	if attachments != "" {
		if err := json.Unmarshal([]byte(attachments), &t.Attachments); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attachments of task %s: %w", t.ID, err)
		}
	}
	return &t, nil
}
