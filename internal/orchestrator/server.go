package orchestrator

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/internal/auth"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/clog"
)

type Server struct {
	orchestrator *Orchestrator
}

func NewServer(orchestrator *Orchestrator) *Server {
	return &Server{orchestrator: orchestrator}
}

func (s *Server) Mount(r chi.Router) {
	r.Post("/tasks", s.CreateTask)
	r.Delete("/tasks/{taskID}", s.DeleteTask)
}

func (s *Server) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	t, err := s.orchestrator.CreateAndAssign(ctx, auth.EmployeeID(ctx), in)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	clog.AddAttribute(ctx, "task_id", t.ID)
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, t)
}

func (s *Server) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := chi.URLParam(r, "taskID")
	clog.AddAttribute(ctx, "task_id", taskID)
	if err := s.orchestrator.DeleteTask(ctx, auth.EmployeeID(ctx), taskID); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]string{"message": "Task deleted successfully"})
}
