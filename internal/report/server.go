package report

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/internal/auth"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Server struct {
	engine *Engine
}

func NewServer(engine *Engine) *Server {
	return &Server{engine: engine}
}

func (s *Server) Mount(r chi.Router) {
	r.Get("/tasks/assigned", s.AssignedTasks)
	r.Get("/tasks/pending", s.tasksByStatus(task.StatusPending))
	r.Get("/tasks/in-progress", s.tasksByStatus(task.StatusInProgress))
	r.Get("/tasks/completed", s.tasksByStatus(task.StatusCompleted))
	r.Get("/tasks/in-progress/details", s.InProgressDetails)
	r.Get("/tasks/overdue", s.OverdueTasks)
	r.Get("/tasks/summary", s.Summary)
	r.Get("/tasks/counts/weekly", s.counts(BucketWeek))
	r.Get("/tasks/counts/monthly", s.counts(BucketMonth))
	r.Get("/tasks/counts/six-months", s.SixMonthCounts)
	r.Post("/tasks/filter", s.Filter)
	r.Post("/tasks/search", s.Search)
}

// respond is the common tail of every read handler.
func respond[T any](r *http.Request, v T, err error) {
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	cerr.SetJSONResponse(r.Context(), v)
}

func (s *Server) AssignedTasks(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.AssignedTasks(r.Context(), auth.EmployeeID(r.Context()))
	respond(r, res, err)
}

func (s *Server) tasksByStatus(status task.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.engine.TasksByStatus(r.Context(), auth.EmployeeID(r.Context()), status)
		respond(r, res, err)
	}
}

func (s *Server) InProgressDetails(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.InProgressDetails(r.Context(), auth.EmployeeID(r.Context()))
	respond(r, res, err)
}

func (s *Server) OverdueTasks(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.OverdueTasks(r.Context(), auth.EmployeeID(r.Context()))
	respond(r, res, err)
}

func (s *Server) Summary(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Summary(r.Context(), auth.EmployeeID(r.Context()))
	respond(r, res, err)
}

func (s *Server) counts(bucket Bucket) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := s.engine.CountsByBucket(r.Context(), auth.EmployeeID(r.Context()), bucket)
		respond(r, res, err)
	}
}

func (s *Server) SixMonthCounts(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.CountsLastSixMonths(r.Context(), auth.EmployeeID(r.Context()))
	respond(r, res, err)
}

type filterRequest struct {
	ProjectType string `json:"projectType"`
}

func (s *Server) Filter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "invalid request body", err)
		return
	}
	res, err := s.engine.FilterByProjectType(r.Context(), auth.EmployeeID(r.Context()), req.ProjectType)
	respond(r, res, err)
}

type searchRequest struct {
	Title string `json:"title"`
}

func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(r.Context(), cerr.InvalidArgument, "invalid request body", err)
		return
	}
	res, err := s.engine.SearchByTitle(r.Context(), auth.EmployeeID(r.Context()), req.Title)
	respond(r, res, err)
}
