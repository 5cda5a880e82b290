package internal

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kazz187/taskdesk/internal/activitylog"
	"github.com/kazz187/taskdesk/internal/auth"
	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/employee"
	"github.com/kazz187/taskdesk/internal/lifecycle"
	"github.com/kazz187/taskdesk/internal/notification"
	"github.com/kazz187/taskdesk/internal/orchestrator"
	"github.com/kazz187/taskdesk/internal/report"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/clog"
)

type Server struct {
	mu                 sync.Mutex
	server             *http.Server
	closed             bool
	env                *config.Env
	verifier           *auth.Verifier
	reportServer       *report.Server
	lifecycleServer    *lifecycle.Server
	orchestratorServer *orchestrator.Server
	employeeServer     *employee.Server
	activityLogServer  *activitylog.Server
	notificationServer *notification.Server
}

func NewServer(
	env *config.Env,
	verifier *auth.Verifier,
	reportServer *report.Server,
	lifecycleServer *lifecycle.Server,
	orchestratorServer *orchestrator.Server,
	employeeServer *employee.Server,
	activityLogServer *activitylog.Server,
	notificationServer *notification.Server,
) *Server {
	return &Server{
		env:                env,
		verifier:           verifier,
		reportServer:       reportServer,
		lifecycleServer:    lifecycleServer,
		orchestratorServer: orchestratorServer,
		employeeServer:     employeeServer,
		activityLogServer:  activityLogServer,
		notificationServer: notificationServer,
	}
}

// Handler builds the full route tree without CORS or h2c.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", health)
	r.Route("/api", func(r chi.Router) {
		r.Use(
			middleware.RequestID,
			clog.SlogChiMiddleware(),
			cerr.NewConvertErrorChiMiddleware(),
			s.verifier.Middleware(),
		)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "method not allowed", nil)
		})

		r.Route("/employee", func(r chi.Router) {
			s.reportServer.Mount(r)
			s.lifecycleServer.Mount(r)
			s.activityLogServer.Mount(r)
			s.notificationServer.MountEmployee(r)
		})
		r.Route("/push", s.notificationServer.MountPush)
		r.Route("/manager", func(r chi.Router) {
			r.Use(auth.RequireRole(employee.RoleManager))
			s.orchestratorServer.Mount(r)
			s.employeeServer.Mount(r)
		})
	})
	return r
}

// ListenAndServe serves until Shutdown. ctx becomes the base context of
// every request.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.server = &http.Server{
		Addr: addr,
		Handler: h2c.NewHandler(cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
		}).Handler(s.Handler()), &http2.Server{}),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}
	hs := s.server
	s.mu.Unlock()
	return hs.ListenAndServe()
}

// Shutdown stops a running server. Called before ListenAndServe, it makes
// the later call return http.ErrServerClosed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
