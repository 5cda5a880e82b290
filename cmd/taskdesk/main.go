package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/database"
)

var (
	app = kingpin.New("taskdesk", "Administration tool for the TaskDesk backend")

	migrateCmd       = app.Command("migrate", "Manage the database schema")
	migrateUpCmd     = migrateCmd.Command("up", "Apply pending migrations").Default()
	migrateStatusCmd = migrateCmd.Command("status", "Show the migration version")

	seedCmd  = app.Command("seed", "Insert employees from a YAML file")
	seedFile = seedCmd.Flag("file", "YAML file listing employees").Short('f').Required().ExistingFile()

	reportCmd      = app.Command("report", "Print an employee's assignment counts as YAML")
	reportEmployee = reportCmd.Flag("employee", "Employee ID").Required().String()
	reportBucket   = reportCmd.Flag("bucket", "Bucket size").Default("week").Enum("week", "month", "six-months")

	tokenCmd      = app.Command("token", "Mint a development bearer token (local env only)")
	tokenEmployee = tokenCmd.Flag("employee", "Employee ID").Required().String()
	tokenRole     = tokenCmd.Flag("role", "Role claim").Default("employee").Enum("employee", "manager")
	tokenTTL      = tokenCmd.Flag("ttl", "Token lifetime").Default("24h").Duration()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	env, err := config.LoadEnv()
	if err != nil {
		app.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case tokenCmd.FullCommand():
		err = runToken(os.Stdout, env, *tokenEmployee, *tokenRole, *tokenTTL)
	default:
		err = withDB(ctx, env, func(db *database.DB) error {
			switch command {
			case migrateUpCmd.FullCommand():
				return runMigrate(os.Stdout, db)
			case migrateStatusCmd.FullCommand():
				return runMigrateStatus(os.Stdout, db)
			case seedCmd.FullCommand():
				return runSeed(ctx, os.Stdout, db, *seedFile, time.Now())
			case reportCmd.FullCommand():
				return runReport(ctx, os.Stdout, db, env, *reportEmployee, *reportBucket)
			default:
				return fmt.Errorf("unknown command %q", command)
			}
		})
	}
	if err != nil {
		app.Fatalf("%v", err)
	}
}

func withDB(ctx context.Context, env *config.Env, fn func(db *database.DB) error) error {
	db, err := database.Open(ctx, env.DatabaseEnv.Driver, env.DatabaseEnv.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}
