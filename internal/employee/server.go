package employee

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/pkg/cerr"
)

type Server struct {
	repo Repository
}

func NewServer(repo Repository) *Server {
	return &Server{repo: repo}
}

// Mount registers the manager directory routes.
func (s *Server) Mount(r chi.Router) {
	r.Get("/employees", s.ListEmployees)
}

func (s *Server) ListEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := s.repo.List(r.Context())
	if err != nil {
		cerr.SetJSONError(r.Context(), err)
		return
	}
	if list == nil {
		list = []*Employee{}
	}
	cerr.SetJSONResponse(r.Context(), list)
}
