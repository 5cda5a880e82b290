package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kazz187/taskdesk/internal/auth"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/clog"
)

const (
	maxUploadBody   = MaxFiles*MaxFileSize + 1<<20
	multipartMemory = 32 << 20
)

type Server struct {
	engine *Engine
}

func NewServer(engine *Engine) *Server {
	return &Server{engine: engine}
}

// Mount registers the employee task mutation routes.
func (s *Server) Mount(r chi.Router) {
	r.Post("/tasks/{taskID}/status", s.UpdateStatus)
	r.Post("/tasks/{taskID}/attachments", s.UploadAttachments)
	r.Get("/tasks/{taskID}/attachments/{name}", s.DownloadAttachment)
}

type updateStatusRequest struct {
	Status task.Status `json:"status"`
}

func (s *Server) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	taskID := chi.URLParam(r, "taskID")
	clog.AddAttribute(ctx, "task_id", taskID)
	res, err := s.engine.Transition(ctx, auth.EmployeeID(ctx), taskID, req.Status)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, res)
}

func (s *Server) UploadAttachments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := chi.URLParam(r, "taskID")
	clog.AddAttribute(ctx, "task_id", taskID)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "upload too large", err)
			return
		}
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid multipart form", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	files := make([]File, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "failed to read upload", err)
			return
		}
		data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
		_ = f.Close()
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "failed to read upload", err)
			return
		}
		files = append(files, File{
			Name:        h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	res, err := s.engine.AttachFiles(ctx, auth.EmployeeID(ctx), taskID, files)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, res)
}

func (s *Server) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	taskID := chi.URLParam(r, "taskID")
	name := chi.URLParam(r, "name")
	clog.AddAttributes(ctx, map[string]any{"task_id": taskID, "attachment": name})

	att, err := s.engine.OpenAttachment(ctx, auth.EmployeeID(ctx), taskID, name)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	defer att.Body.Close()

	cerr.SetStreamed(ctx)
	w.Header().Set("Content-Type", att.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": att.Name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, att.Body); err != nil {
		cerr.SetJSONError(ctx, fmt.Errorf("failed to stream attachment: %w", err))
	}
}
