package activitylog

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/internal/auth"
	"github.com/kazz187/taskdesk/internal/employee"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Server struct {
	repo      Repository
	employees employee.Repository
}

func NewServer(repo Repository, employees employee.Repository) *Server {
	return &Server{
		repo:      repo,
		employees: employees,
	}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/activity-logs", s.ListActivityLogs)
}

// ListActivityLogs returns the caller's own entries, newest first. The
// optional limit query parameter caps the result.
func (s *Server) ListActivityLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "limit must be a positive integer", err)
			return
		}
		limit = n
	}
	emp, err := s.employees.Get(ctx, auth.EmployeeID(ctx))
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	entries, err := s.repo.ListByEmail(ctx, emp.Email, limit)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if entries == nil {
		entries = []*Entry{}
	}
	cerr.SetJSONResponse(ctx, entries)
}
