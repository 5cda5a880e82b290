package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

//go:embed migrations/sqlite3/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// DB is a *sql.DB that knows its driver and hands out the transaction bound
// to a context when there is one.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the database. For sqlite3 the parent directory of a file
// DSN is created first.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite:
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if driver == DriverPostgres {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}
	return &DB{DB: sqlDB, driver: driver}, nil
}

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

func (d *DB) Driver() string {
	return d.driver
}

// MigrationStatus holds information about database migration state.
type MigrationStatus struct {
	CurrentVersion uint
	LatestVersion  uint
	Dirty          bool
	Pending        bool
}

// Migrate applies every pending migration. The migrator is not closed since
// closing it would close the shared *sql.DB.
func (d *DB) Migrate() error {
	m, err := d.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (d *DB) MigrationStatus() (*MigrationStatus, error) {
	m, err := d.migrator()
	if err != nil {
		return nil, err
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, fmt.Errorf("failed to read migration version: %w", err)
	}

	src, err := d.source()
	if err != nil {
		return nil, err
	}
	defer src.Close()
	var latest uint
	if v, err := src.First(); err == nil {
		latest = v
		for {
			next, err := src.Next(latest)
			if err != nil {
				break
			}
			latest = next
		}
	}
	return &MigrationStatus{
		CurrentVersion: version,
		LatestVersion:  latest,
		Dirty:          dirty,
		Pending:        version < latest,
	}, nil
}

func (d *DB) source() (source.Driver, error) {
	sub := "migrations/" + d.driver
	if _, err := fs.Stat(migrationsFS, sub); err != nil {
		return nil, fmt.Errorf("no migrations for driver %s: %w", d.driver, err)
	}
	src, err := iofs.New(migrationsFS, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return src, nil
}

func (d *DB) migrator() (*migrate.Migrate, error) {
	var (
		driver migratedb.Driver
		err    error
	)
	switch d.driver {
	case DriverSQLite:
		driver, err = sqlite3.WithInstance(d.DB, &sqlite3.Config{})
	case DriverPostgres:
		driver, err = postgres.WithInstance(d.DB, &postgres.Config{})
	default:
		err = fmt.Errorf("unsupported database driver %q", d.driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}
	src, err := d.source()
	if err != nil {
		return nil, err
	}
	return migrate.NewWithInstance("iofs", src, d.driver, driver)
}
