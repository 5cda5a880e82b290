package repositoryimpl

import (
	"context"
	"fmt"

	"github.com/kazz187/taskdesk/internal/database"
	"github.com/kazz187/taskdesk/internal/employee"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type SQLRepository struct {
	db *database.DB
}

var _ employee.Repository = (*SQLRepository)(nil)

func NewSQLRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const employeeColumns = `id, name, email, job_title, role, created_at`

func (r *SQLRepository) Create(ctx context.Context, e *employee.Employee) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`INSERT INTO employees (`+employeeColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Name, e.Email, e.JobTitle, string(e.Role), database.Timestamp(e.CreatedAt),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return cerr.NewError(cerr.AlreadyExists, fmt.Sprintf("employee %s already exists", e.Email), err)
		}
		return cerr.WrapStorageWriteError("employee", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (*employee.Employee, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
	e, err := scan(row)
	if err != nil {
		return nil, cerr.WrapStorageReadError("employee", err)
	}
	return e, nil
}

func (r *SQLRepository) List(ctx context.Context) ([]*employee.Employee, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT `+employeeColumns+` FROM employees ORDER BY name, id`)
	if err != nil {
		return nil, cerr.WrapStorageReadError("employees", err)
	}
	defer rows.Close()

	var list []*employee.Employee
	for rows.Next() {
		e, err := scan(rows)
		if err != nil {
			return nil, cerr.WrapStorageReadError("employees", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.WrapStorageReadError("employees", err)
	}
	return list, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*employee.Employee, error) {
	var (
		e    employee.Employee
		role string
	)
	if err := s.Scan(&e.ID, &e.Name, &e.Email, &e.JobTitle, &role, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Role = employee.Role(role)
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
