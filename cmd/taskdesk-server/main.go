package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	server "github.com/kazz187/taskdesk/internal"
	"github.com/kazz187/taskdesk/internal/activitylog"
	activitylogrepo "github.com/kazz187/taskdesk/internal/activitylog/repositoryimpl"
	assignmentrepo "github.com/kazz187/taskdesk/internal/assignment/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/auth"
	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/database"
	"github.com/kazz187/taskdesk/internal/employee"
	employeerepo "github.com/kazz187/taskdesk/internal/employee/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/lifecycle"
	"github.com/kazz187/taskdesk/internal/notification"
	"github.com/kazz187/taskdesk/internal/orchestrator"
	pushsubrepo "github.com/kazz187/taskdesk/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/report"
	taskrepo "github.com/kazz187/taskdesk/internal/task/repositoryimpl"
	"github.com/kazz187/taskdesk/pkg/clog"
	"github.com/kazz187/taskdesk/pkg/storage"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}
	setupLogger(env)

	if err := run(env); err != nil {
		slog.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(env *config.Env) {
	level := env.SlogLevel()
	var handler slog.Handler
	if env.IsLocal() {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))
}

func newStorage(ctx context.Context, env *config.StorageEnv) (storage.Storage, error) {
	switch env.Type {
	case "s3":
		return storage.NewS3Storage(ctx, env.S3Bucket, env.S3Prefix, env.S3Region, env.S3Endpoint)
	default:
		return storage.NewLocalStorage(env.BaseDir)
	}
}

func run(env *config.Env) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	loc, err := env.ReportEnv.Location()
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, env.DatabaseEnv.Driver, env.DatabaseEnv.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	blobs, err := newStorage(ctx, &env.StorageEnv)
	if err != nil {
		return err
	}

	bus := eventbus.New()
	defer bus.Close()

	// Repositories
	employeeRepo := employeerepo.NewSQLRepository(db)
	taskRepo := taskrepo.NewSQLRepository(db)
	assignmentRepo := assignmentrepo.NewSQLRepository(db)
	activityRepo := activitylogrepo.NewSQLRepository(db)
	pushSubRepo := pushsubrepo.NewSQLRepository(db)
	recorder := activitylog.NewRecorder(activityRepo)

	// Engines
	lifecycleEngine := lifecycle.NewEngine(db, taskRepo, assignmentRepo, employeeRepo, blobs, recorder, bus, env.PublicURL)
	orch := orchestrator.New(db, taskRepo, assignmentRepo, employeeRepo, recorder, bus)
	reportEngine := report.New(taskRepo, assignmentRepo, loc)

	// Notifications
	mailer := notification.NewSMTPMailer(&env.MailEnv)
	pusher := notification.NewPushSender(&env.VAPIDEnv, pushSubRepo)
	dispatcher := notification.NewDispatcher(bus, taskRepo, employeeRepo, mailer, pusher, loc)

	srv := server.NewServer(
		env,
		auth.NewVerifier(env.JWTSecret),
		report.NewServer(reportEngine),
		lifecycle.NewServer(lifecycleEngine),
		orchestrator.NewServer(orch),
		employee.NewServer(employeeRepo),
		activitylog.NewServer(activityRepo, employeeRepo),
		notification.NewServer(&env.VAPIDEnv, pushSubRepo),
	)

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		if err := dispatcher.Start(ctx); err != nil {
			slog.Error("notification dispatcher error", "error", err)
		}
	})
	wg.Go(func() {
		if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			cancel()
		}
	})

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	wg.Wait()
	return nil
}
