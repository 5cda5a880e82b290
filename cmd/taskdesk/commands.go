package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	assignmentrepo "github.com/kazz187/taskdesk/internal/assignment/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/auth"
	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/database"
	"github.com/kazz187/taskdesk/internal/employee"
	employeerepo "github.com/kazz187/taskdesk/internal/employee/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/report"
	taskrepo "github.com/kazz187/taskdesk/internal/task/repositoryimpl"
)

func runMigrate(w io.Writer, db *database.DB) error {
	if err := db.Migrate(); err != nil {
		return err
	}
	return runMigrateStatus(w, db)
}

func runMigrateStatus(w io.Writer, db *database.DB) error {
	st, err := db.MigrationStatus()
	if err != nil {
		return err
	}
	return yaml.NewEncoder(w).Encode(map[string]any{
		"driver":          db.Driver(),
		"current_version": st.CurrentVersion,
		"latest_version":  st.LatestVersion,
		"dirty":           st.Dirty,
		"pending":         st.Pending,
	})
}

type seedDocument struct {
	Employees []*employee.Employee `yaml:"employees"`
}

// loadSeed reads and validates a seed file. Missing IDs are generated and
// a missing role defaults to employee.
func loadSeed(path string, now time.Time) ([]*employee.Employee, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var f seedDocument
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	if len(f.Employees) == 0 {
		return nil, errors.New("seed file lists no employees")
	}
	for i, e := range f.Employees {
		e.Name = strings.TrimSpace(e.Name)
		e.Email = strings.ToLower(strings.TrimSpace(e.Email))
		if e.Name == "" || e.Email == "" {
			return nil, fmt.Errorf("employee #%d: name and email are required", i+1)
		}
		if e.ID == "" {
			e.ID = ulid.Make().String()
		}
		if e.Role == "" {
			e.Role = employee.RoleEmployee
		}
		if !e.Role.Valid() {
			return nil, fmt.Errorf("employee %s: invalid role %q", e.Email, e.Role)
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
	}
	return f.Employees, nil
}

func runSeed(ctx context.Context, w io.Writer, db *database.DB, path string, now time.Time) error {
	list, err := loadSeed(path, now)
	if err != nil {
		return err
	}
	repo := employeerepo.NewSQLRepository(db)
	err = db.WithTx(ctx, func(ctx context.Context) error {
		for _, e := range list {
			if err := repo.Create(ctx, e); err != nil {
				return fmt.Errorf("employee %s: %w", e.Email, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "seeded %d employee(s)\n", len(list))
	return err
}

func runReport(ctx context.Context, w io.Writer, db *database.DB, env *config.Env, employeeID, bucket string) error {
	loc, err := env.ReportEnv.Location()
	if err != nil {
		return err
	}
	engine := report.New(taskrepo.NewSQLRepository(db), assignmentrepo.NewSQLRepository(db), loc)

	var counts []report.BucketCount
	if bucket == "six-months" {
		counts, err = engine.CountsLastSixMonths(ctx, employeeID)
	} else {
		counts, err = engine.CountsByBucket(ctx, employeeID, report.Bucket(bucket))
	}
	if err != nil {
		return err
	}
	summary, err := engine.Summary(ctx, employeeID)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(struct {
		Employee string               `yaml:"employee"`
		Bucket   string               `yaml:"bucket"`
		Summary  *report.Summary      `yaml:"summary"`
		Counts   []report.BucketCount `yaml:"counts"`
	}{employeeID, bucket, summary, counts})
}

func runToken(w io.Writer, env *config.Env, employeeID, role string, ttl time.Duration) error {
	if !env.IsLocal() {
		return errors.New("token minting is only available with TASKDESK_ENV=local")
	}
	token, err := auth.NewVerifier(env.JWTSecret).Issue(employeeID, employee.Role(role), ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
