package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/activitylog"
	activitylogrepo "github.com/kazz187/taskdesk/internal/activitylog/repositoryimpl"
	assignmentrepo "github.com/kazz187/taskdesk/internal/assignment/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/auth"
	"github.com/kazz187/taskdesk/internal/config"
	"github.com/kazz187/taskdesk/internal/database/databasetest"
	"github.com/kazz187/taskdesk/internal/employee"
	employeerepo "github.com/kazz187/taskdesk/internal/employee/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/lifecycle"
	"github.com/kazz187/taskdesk/internal/notification"
	"github.com/kazz187/taskdesk/internal/orchestrator"
	pushrepo "github.com/kazz187/taskdesk/internal/pushsubscription/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/report"
	taskrepo "github.com/kazz187/taskdesk/internal/task/repositoryimpl"
	"github.com/kazz187/taskdesk/pkg/storage"
)

const publicURL = "http://localhost:3100"

type testServer struct {
	*httptest.Server
	verifier *auth.Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	db := databasetest.New(t)
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	bus := eventbus.New()
	t.Cleanup(func() { _ = bus.Close() })

	env := &config.Env{
		BaseEnv:  config.BaseEnv{Env: "test", JWTSecret: "test-secret", PublicURL: publicURL},
		VAPIDEnv: config.VAPIDEnv{VAPIDPublicKey: "vapid-public"},
	}

	employees := employeerepo.NewSQLRepository(db)
	tasks := taskrepo.NewSQLRepository(db)
	assignments := assignmentrepo.NewSQLRepository(db)
	activityRepo := activitylogrepo.NewSQLRepository(db)
	pushSubs := pushrepo.NewSQLRepository(db)
	recorder := activitylog.NewRecorder(activityRepo)

	for _, e := range []*employee.Employee{
		{ID: "boss", Name: "Boss", Email: "boss@example.com", Role: employee.RoleManager},
		{ID: "alice", Name: "Alice", Email: "alice@example.com", Role: employee.RoleEmployee},
	} {
		e.CreatedAt = time.Now()
		require.NoError(t, employees.Create(ctx, e))
	}

	verifier := auth.NewVerifier(env.JWTSecret)
	srv := NewServer(
		env,
		verifier,
		report.NewServer(report.New(tasks, assignments, time.UTC)),
		lifecycle.NewServer(lifecycle.NewEngine(db, tasks, assignments, employees, blobs, recorder, bus, publicURL)),
		orchestrator.NewServer(orchestrator.New(db, tasks, assignments, employees, recorder, bus)),
		employee.NewServer(employees),
		activitylog.NewServer(activityRepo, employees),
		notification.NewServer(&env.VAPIDEnv, pushSubs),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, verifier: verifier}
}

func (s *testServer) token(t *testing.T, id string, role employee.Role) string {
	t.Helper()
	tok, err := s.verifier.Issue(id, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, token, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *testServer) doJSON(t *testing.T, token, method, path string, in, out any) int {
	t.Helper()
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	resp := s.do(t, token, method, path, "application/json", body)
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, "", http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Auth(t *testing.T) {
	s := newTestServer(t)

	var e errorBody
	status := s.doJSON(t, "", http.MethodGet, "/api/employee/tasks/assigned", nil, &e)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", e.Code)

	status = s.doJSON(t, "garbage", http.MethodGet, "/api/employee/tasks/assigned", nil, &e)
	assert.Equal(t, http.StatusUnauthorized, status)

	status = s.doJSON(t, s.token(t, "alice", employee.RoleEmployee), http.MethodPost, "/api/manager/tasks",
		map[string]string{"title": "x", "assigneeId": "alice"}, &e)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "permission_denied", e.Code)

	status = s.doJSON(t, s.token(t, "alice", employee.RoleEmployee), http.MethodGet, "/api/nowhere", nil, &e)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", e.Code)
}

type taskBody struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	Attachments []string `json:"attachments"`
}

func TestServer_TaskFlow(t *testing.T) {
	s := newTestServer(t)
	boss := s.token(t, "boss", employee.RoleManager)
	alice := s.token(t, "alice", employee.RoleEmployee)

	var staff []employee.Employee
	require.Equal(t, http.StatusOK, s.doJSON(t, boss, http.MethodGet, "/api/manager/employees", nil, &staff))
	assert.Len(t, staff, 2)

	var created taskBody
	status := s.doJSON(t, boss, http.MethodPost, "/api/manager/tasks", map[string]any{
		"title":       "Write report",
		"description": "Q3 numbers",
		"projectType": "finance",
		"priority":    "high",
		"dueDate":     time.Now().Add(-time.Hour).UTC().Format(time.RFC3339),
		"assigneeId":  "alice",
	}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "pending", created.Status)

	var assigned []taskBody
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodGet, "/api/employee/tasks/assigned", nil, &assigned))
	require.Len(t, assigned, 1)
	assert.Equal(t, created.ID, assigned[0].ID)

	var overdue []taskBody
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodGet, "/api/employee/tasks/overdue", nil, &overdue))
	assert.Len(t, overdue, 1)

	// attachments are refused until work has started
	resp := s.upload(t, alice, created.ID, "shot.png", pngBytes)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	var transition struct {
		Message   string `json:"message"`
		NewStatus string `json:"newStatus"`
	}
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodPost, "/api/employee/tasks/"+created.ID+"/status",
		map[string]string{"status": "in_progress"}, &transition))
	assert.Equal(t, "Task status updated successfully", transition.Message)
	assert.Equal(t, "in_progress", transition.NewStatus)

	var e errorBody
	assert.Equal(t, http.StatusBadRequest, s.doJSON(t, alice, http.MethodPost, "/api/employee/tasks/"+created.ID+"/status",
		map[string]string{"status": "archived"}, &e))
	assert.Equal(t, http.StatusNotFound, s.doJSON(t, s.token(t, "boss", employee.RoleEmployee), http.MethodPost,
		"/api/employee/tasks/"+created.ID+"/status", map[string]string{"status": "completed"}, &e))

	resp = s.upload(t, alice, created.ID, "shot.png", pngBytes)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var uploaded struct {
		Message string `json:"message"`
		Files   []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	assert.Equal(t, "Files uploaded successfully", uploaded.Message)
	require.Len(t, uploaded.Files, 1)
	require.True(t, strings.HasPrefix(uploaded.Files[0].URL, publicURL+"/api/employee/tasks/"+created.ID+"/attachments/"))

	resp = s.do(t, alice, http.MethodGet, strings.TrimPrefix(uploaded.Files[0].URL, publicURL), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)

	var details []struct {
		ID       string `json:"id"`
		Priority string `json:"priority"`
	}
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodGet, "/api/employee/tasks/in-progress/details", nil, &details))
	require.Len(t, details, 1)
	assert.Equal(t, "high", details[0].Priority)

	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodPost, "/api/employee/tasks/"+created.ID+"/status",
		map[string]string{"status": "completed"}, &transition))

	var completed []struct {
		ID          string     `json:"id"`
		StartAt     *time.Time `json:"startAt"`
		CompletedAt *time.Time `json:"completedAt"`
	}
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodGet, "/api/employee/tasks/completed", nil, &completed))
	require.Len(t, completed, 1)
	assert.NotNil(t, completed[0].StartAt)
	assert.NotNil(t, completed[0].CompletedAt)

	var summary report.Summary
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodGet, "/api/employee/tasks/summary", nil, &summary))
	assert.Equal(t, report.Summary{Total: 1, Completed: 1}, summary)

	var weekly []report.BucketCount
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodGet, "/api/employee/tasks/counts/weekly", nil, &weekly))
	require.Len(t, weekly, 1)
	assert.Equal(t, 1, weekly[0].Count)

	var found taskBody
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodPost, "/api/employee/tasks/search",
		map[string]string{"title": "Write report"}, &found))
	assert.Equal(t, created.ID, found.ID)

	var filtered []taskBody
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodPost, "/api/employee/tasks/filter",
		map[string]string{"projectType": "finance"}, &filtered))
	assert.Len(t, filtered, 1)

	var logs []activitylog.Entry
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodGet, "/api/employee/activity-logs", nil, &logs))
	actions := make([]string, 0, len(logs))
	for _, l := range logs {
		actions = append(actions, l.Action)
	}
	assert.ElementsMatch(t, []string{
		activitylog.ActionUpdateTaskStatus,
		activitylog.ActionUploadAttachment,
		activitylog.ActionUpdateTaskStatus,
	}, actions)
}

func TestServer_DeleteTask(t *testing.T) {
	s := newTestServer(t)
	boss := s.token(t, "boss", employee.RoleManager)
	alice := s.token(t, "alice", employee.RoleEmployee)

	var created taskBody
	require.Equal(t, http.StatusCreated, s.doJSON(t, boss, http.MethodPost, "/api/manager/tasks",
		map[string]any{"title": "Obsolete", "assigneeId": "alice"}, &created))

	var e errorBody
	assert.Equal(t, http.StatusForbidden, s.doJSON(t, alice, http.MethodDelete, "/api/manager/tasks/"+created.ID, nil, &e))
	assert.Equal(t, "permission_denied", e.Code)

	var msg map[string]string
	require.Equal(t, http.StatusOK, s.doJSON(t, boss, http.MethodDelete, "/api/manager/tasks/"+created.ID, nil, &msg))
	assert.Equal(t, "Task deleted successfully", msg["message"])

	var assigned []taskBody
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodGet, "/api/employee/tasks/assigned", nil, &assigned))
	assert.Empty(t, assigned)

	assert.Equal(t, http.StatusNotFound, s.doJSON(t, boss, http.MethodDelete, "/api/manager/tasks/"+created.ID, nil, &e))
	assert.Equal(t, "not_found", e.Code)
}

func TestServer_PushSubscriptions(t *testing.T) {
	s := newTestServer(t)
	alice := s.token(t, "alice", employee.RoleEmployee)

	var key map[string]string
	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodGet, "/api/push/vapid-public-key", nil, &key))
	assert.Equal(t, "vapid-public", key["publicKey"])

	var e errorBody
	assert.Equal(t, http.StatusBadRequest, s.doJSON(t, alice, http.MethodPost, "/api/employee/push-subscriptions",
		map[string]string{"endpoint": "https://push.example/1"}, &e))

	var sub struct {
		EmployeeID string `json:"employeeId"`
		Endpoint   string `json:"endpoint"`
	}
	require.Equal(t, http.StatusCreated, s.doJSON(t, alice, http.MethodPost, "/api/employee/push-subscriptions", map[string]any{
		"endpoint": "https://push.example/1",
		"keys":     map[string]string{"p256dh": "p", "auth": "a"},
	}, &sub))
	assert.Equal(t, "alice", sub.EmployeeID)

	require.Equal(t, http.StatusOK, s.doJSON(t, alice, http.MethodDelete, "/api/employee/push-subscriptions",
		map[string]string{"endpoint": "https://push.example/1"}, nil))
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func (s *testServer) upload(t *testing.T, token, taskID, name string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return s.do(t, token, http.MethodPost, "/api/employee/tasks/"+taskID+"/attachments", w.FormDataContentType(), &buf)
}
