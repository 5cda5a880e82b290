package lifecycle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/kazz187/taskdesk/internal/activitylog"
	"github.com/kazz187/taskdesk/internal/task"
	"github.com/kazz187/taskdesk/pkg/cerr"
)

const (
	MaxFiles       = 5
	MaxFileSize    = 10 << 20
	attachmentsDir = "attachments"
	maxNameLength  = 100
)

var allowedContentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// File is one uploaded file held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type AttachedFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type AttachResult struct {
	Message string         `json:"message"`
	Files   []AttachedFile `json:"files"`
	Task    *task.Task     `json:"task"`
}

// AttachFiles stores the files and appends their blob names to the task.
// Only tasks in progress or completed accept attachments.
func (e *Engine) AttachFiles(ctx context.Context, employeeID, taskID string, files []File) (*AttachResult, error) {
	if err := validateFiles(files); err != nil {
		return nil, err
	}
	t, err := e.tasks.GetOwned(ctx, taskID, employeeID)
	if err != nil {
		return nil, err
	}
	if !t.Status.AcceptsAttachments() {
		return nil, cerr.NewError(cerr.FailedPrecondition, "files can only be attached to tasks in progress or completed", nil)
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		name := ulid.Make().String() + "-" + sanitizeFileName(f.Name)
		if err := e.blobs.Write(ctx, blobPath(name), f.Data); err != nil {
			e.removeBlobs(ctx, names)
			return nil, cerr.WrapStorageWriteError("attachment", err)
		}
		names = append(names, name)
	}

	var updated *task.Task
	err = e.tx.WithTx(ctx, func(ctx context.Context) error {
		t, err := e.tasks.GetOwned(ctx, taskID, employeeID)
		if err != nil {
			return err
		}
		if !t.Status.AcceptsAttachments() {
			return cerr.NewError(cerr.FailedPrecondition, "files can only be attached to tasks in progress or completed", nil)
		}
		t.Attachments = append(t.Attachments, names...)
		t.UpdatedAt = e.now()
		if err := e.tasks.Update(ctx, t); err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		e.removeBlobs(ctx, names)
		return nil, err
	}

	e.record(ctx, employeeID, activitylog.ActionUploadAttachment,
		fmt.Sprintf("Uploaded %d file(s) to task ID %s.", len(names), taskID))

	attached := make([]AttachedFile, 0, len(names))
	for _, name := range names {
		attached = append(attached, AttachedFile{Name: name, URL: e.attachmentURL(taskID, name)})
	}
	return &AttachResult{
		Message: "Files uploaded successfully",
		Files:   attached,
		Task:    updated,
	}, nil
}

func validateFiles(files []File) error {
	if len(files) == 0 {
		return cerr.NewError(cerr.InvalidArgument, "no files uploaded", nil)
	}
	if len(files) > MaxFiles {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("at most %d files can be uploaded at once", MaxFiles), nil)
	}
	for _, f := range files {
		if len(f.Data) > MaxFileSize {
			return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("%s exceeds the 10MB limit", f.Name), nil)
		}
		if !allowedContentTypes[contentType(f)] {
			return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("%s: only JPEG, PNG and PDF files are allowed", f.Name), nil)
		}
	}
	return nil
}

// contentType trusts the declared type and falls back to sniffing when the
// client sent none.
func contentType(f File) string {
	ct := f.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(f.Data)
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return ""
	}
	return mediaType
}

func sanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	s := strings.TrimLeft(b.String(), ".")
	if len(s) > maxNameLength {
		s = s[len(s)-maxNameLength:]
	}
	if s == "" {
		return "file"
	}
	return s
}

func blobPath(name string) string {
	return path.Join(attachmentsDir, name)
}

func (e *Engine) attachmentURL(taskID, name string) string {
	return fmt.Sprintf("%s/api/employee/tasks/%s/attachments/%s",
		strings.TrimSuffix(e.publicURL, "/"), url.PathEscape(taskID), url.PathEscape(name))
}

func (e *Engine) removeBlobs(ctx context.Context, names []string) {
	for _, name := range names {
		if err := e.blobs.Delete(context.WithoutCancel(ctx), blobPath(name)); err != nil {
			slog.WarnContext(ctx, "failed to remove orphaned attachment", "name", name, "error", err)
		}
	}
}

type Attachment struct {
	Name        string
	ContentType string
	Body        io.ReadCloser
}

// OpenAttachment streams an attachment recorded on a task owned by
// employeeID. The caller closes Body.
func (e *Engine) OpenAttachment(ctx context.Context, employeeID, taskID, name string) (*Attachment, error) {
	t, err := e.tasks.GetOwned(ctx, taskID, employeeID)
	if err != nil {
		return nil, err
	}
	if !t.HasAttachment(name) {
		return nil, cerr.NewError(cerr.NotFound, "attachment not found", nil)
	}
	body, err := e.blobs.Open(ctx, blobPath(name))
	if err != nil {
		return nil, cerr.WrapStorageReadError("attachment", err)
	}
	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Attachment{Name: name, ContentType: ct, Body: body}, nil
}
