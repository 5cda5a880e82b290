package lifecycle

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/assignment"
	assignmentrepo "github.com/kazz187/taskdesk/internal/assignment/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/database/databasetest"
	"github.com/kazz187/taskdesk/internal/employee"
	employeerepo "github.com/kazz187/taskdesk/internal/employee/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/eventbus"
	"github.com/kazz187/taskdesk/internal/task"
	taskrepo "github.com/kazz187/taskdesk/internal/task/repositoryimpl"
	"github.com/kazz187/taskdesk/pkg/cerr"
	"github.com/kazz187/taskdesk/pkg/storage"
)

type recordedActivity struct {
	email, action, description string
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedActivity
}

func (f *fakeRecorder) Record(_ context.Context, email, action, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recordedActivity{email, action, description})
}

type publishedEvent struct {
	eventType  eventbus.Type
	resourceID string
	metadata   map[string]string
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) PublishNew(_ context.Context, eventType eventbus.Type, resourceID, _ string, metadata map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{eventType, resourceID, metadata})
}

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time {
	return c.t
}

func (c *clock) advance(d time.Duration) time.Time {
	c.t = c.t.Add(d)
	return c.t
}

type fixture struct {
	engine      *Engine
	tasks       *taskrepo.SQLRepository
	assignments *assignmentrepo.SQLRepository
	blobs       *storage.LocalStorage
	recorder    *fakeRecorder
	publisher   *fakePublisher
	clock       *clock
}

// setup creates alice and bob plus task t1 assigned to alice with an
// assignment row and task t2 assigned to alice without one.
func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := databasetest.New(t)
	employees := employeerepo.NewSQLRepository(db)
	tasks := taskrepo.NewSQLRepository(db)
	assignments := assignmentrepo.NewSQLRepository(db)
	blobs, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	created := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, employees.Create(ctx, &employee.Employee{
			ID: id, Name: id, Email: id + "@example.com", Role: employee.RoleEmployee, CreatedAt: created,
		}))
	}
	for _, id := range []string{"t1", "t2"} {
		require.NoError(t, tasks.Create(ctx, &task.Task{
			ID: id, Title: "Task " + id, Status: task.StatusPending, AssigneeID: "alice",
			CreatedAt: created, UpdatedAt: created,
		}))
	}
	require.NoError(t, assignments.Create(ctx, &assignment.Assignment{
		ID: "a1", TaskID: "t1", EmployeeID: "alice", CreatedAt: created, AssignedAt: created,
		Priority: assignment.PriorityMedium,
	}))

	f := &fixture{
		tasks:       tasks,
		assignments: assignments,
		blobs:       blobs,
		recorder:    &fakeRecorder{},
		publisher:   &fakePublisher{},
		clock:       &clock{t: created},
	}
	f.engine = NewEngine(db, tasks, assignments, employees, blobs, f.recorder, f.publisher, "http://localhost:3100/")
	f.engine.now = f.clock.now
	return f
}

func (f *fixture) transition(t *testing.T, status task.Status) *TransitionResult {
	t.Helper()
	res, err := f.engine.Transition(context.Background(), "alice", "t1", status)
	require.NoError(t, err)
	return res
}

func (f *fixture) assignment(t *testing.T) *assignment.Assignment {
	t.Helper()
	a, err := f.assignments.Find(context.Background(), "t1", "alice")
	require.NoError(t, err)
	return a
}

func TestTransition_FullLifecycle(t *testing.T) {
	f := setup(t)

	startedAt := f.clock.advance(time.Hour)
	res := f.transition(t, task.StatusInProgress)
	assert.Equal(t, task.StatusInProgress, res.NewStatus)
	assert.Equal(t, "Task status updated successfully", res.Message)
	assert.True(t, startedAt.Equal(res.Task.UpdatedAt))

	a := f.assignment(t)
	require.NotNil(t, a.StartAt)
	assert.True(t, startedAt.Equal(*a.StartAt))
	assert.Nil(t, a.CompletedAt)

	completedAt := f.clock.advance(2 * time.Hour)
	f.transition(t, task.StatusCompleted)

	a = f.assignment(t)
	require.NotNil(t, a.CompletedAt)
	assert.True(t, completedAt.Equal(*a.CompletedAt))
	assert.False(t, a.CompletedAt.Before(*a.StartAt))

	got, err := f.tasks.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, got.Status)
	assert.True(t, completedAt.Equal(got.UpdatedAt))

	require.Len(t, f.recorder.entries, 2)
	assert.Equal(t, recordedActivity{
		email:       "alice@example.com",
		action:      "update_task_status",
		description: "Task ID t1 status changed to completed.",
	}, f.recorder.entries[1])

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, eventbus.TaskStatusChanged, f.publisher.events[0].eventType)
	assert.Equal(t, "t1", f.publisher.events[0].resourceID)
	assert.Equal(t, "in_progress", f.publisher.events[0].metadata["status"])
}

func TestTransition_StampOnce(t *testing.T) {
	f := setup(t)

	firstStart := f.clock.advance(time.Hour)
	f.transition(t, task.StatusInProgress)
	f.clock.advance(time.Hour)
	f.transition(t, task.StatusPending)
	f.clock.advance(time.Hour)
	f.transition(t, task.StatusInProgress)

	a := f.assignment(t)
	require.NotNil(t, a.StartAt)
	assert.True(t, firstStart.Equal(*a.StartAt))

	firstDone := f.clock.advance(time.Hour)
	f.transition(t, task.StatusCompleted)
	f.clock.advance(time.Hour)
	f.transition(t, task.StatusInProgress)
	f.clock.advance(time.Hour)
	f.transition(t, task.StatusCompleted)

	a = f.assignment(t)
	assert.True(t, firstStart.Equal(*a.StartAt))
	require.NotNil(t, a.CompletedAt)
	assert.True(t, firstDone.Equal(*a.CompletedAt))
}

func TestTransition_SameStatusOnlyRefreshesUpdatedAt(t *testing.T) {
	f := setup(t)

	f.clock.advance(time.Minute)
	f.transition(t, task.StatusInProgress)
	before := f.assignment(t)

	later := f.clock.advance(time.Hour)
	res := f.transition(t, task.StatusInProgress)
	assert.True(t, later.Equal(res.Task.UpdatedAt))

	after := f.assignment(t)
	assert.Equal(t, before.StartAt, after.StartAt)
	assert.Nil(t, after.CompletedAt)
}

func TestTransition_PendingDoesNotStamp(t *testing.T) {
	f := setup(t)
	f.clock.advance(time.Minute)
	f.transition(t, task.StatusPending)

	a := f.assignment(t)
	assert.Nil(t, a.StartAt)
	assert.Nil(t, a.CompletedAt)
}

func TestTransition_Errors(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	tests := []struct {
		name       string
		employeeID string
		taskID     string
		status     task.Status
		code       cerr.Code
	}{
		{name: "not owned", employeeID: "bob", taskID: "t1", status: task.StatusInProgress, code: cerr.NotFound},
		{name: "missing task", employeeID: "alice", taskID: "nope", status: task.StatusInProgress, code: cerr.NotFound},
		{name: "invalid status", employeeID: "alice", taskID: "t1", status: "done", code: cerr.InvalidArgument},
		{name: "not owned and invalid status", employeeID: "bob", taskID: "t1", status: "done", code: cerr.NotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Transition(ctx, tt.employeeID, tt.taskID, tt.status)
			require.Error(t, err)
			assert.Equal(t, tt.code, cerr.CodeOf(err))
		})
	}

	got, err := f.tasks.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusPending, got.Status)
	assert.Empty(t, f.recorder.entries)
	assert.Empty(t, f.publisher.events)
}

func TestTransition_MissingAssignmentTolerated(t *testing.T) {
	f := setup(t)
	res, err := f.engine.Transition(context.Background(), "alice", "t2", task.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, res.Task.Status)
}

func pdf(name string) File {
	return File{Name: name, ContentType: "application/pdf", Data: []byte("%PDF-1.4 " + name)}
}

func TestAttachFiles(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	t.Run("pending task rejected", func(t *testing.T) {
		_, err := f.engine.AttachFiles(ctx, "alice", "t1", []File{pdf("a.pdf")})
		assert.Equal(t, cerr.FailedPrecondition, cerr.CodeOf(err))
	})

	f.transition(t, task.StatusInProgress)

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name  string
			files []File
		}{
			{name: "none", files: nil},
			{name: "too many", files: []File{pdf("1"), pdf("2"), pdf("3"), pdf("4"), pdf("5"), pdf("6")}},
			{name: "too large", files: []File{{Name: "big.pdf", ContentType: "application/pdf", Data: make([]byte, MaxFileSize+1)}}},
			{name: "wrong type", files: []File{{Name: "a.txt", ContentType: "text/plain", Data: []byte("hi")}}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.engine.AttachFiles(ctx, "alice", "t1", tt.files)
				assert.Equal(t, cerr.InvalidArgument, cerr.CodeOf(err))
			})
		}
	})

	t.Run("not owned", func(t *testing.T) {
		_, err := f.engine.AttachFiles(ctx, "bob", "t1", []File{pdf("a.pdf")})
		assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))
	})

	t.Run("appends in order", func(t *testing.T) {
		png := File{Name: "../photo 1.png", ContentType: "image/png", Data: []byte("\x89PNG")}
		res, err := f.engine.AttachFiles(ctx, "alice", "t1", []File{pdf("spec.pdf"), png})
		require.NoError(t, err)
		require.Len(t, res.Files, 2)
		assert.True(t, strings.HasSuffix(res.Files[0].Name, "-spec.pdf"))
		assert.True(t, strings.HasSuffix(res.Files[1].Name, "-photo_1.png"))
		assert.Equal(t, "http://localhost:3100/api/employee/tasks/t1/attachments/"+res.Files[0].Name, res.Files[0].URL)

		res2, err := f.engine.AttachFiles(ctx, "alice", "t1", []File{pdf("later.pdf")})
		require.NoError(t, err)

		got, err := f.tasks.Get(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, []string{res.Files[0].Name, res.Files[1].Name, res2.Files[0].Name}, got.Attachments)

		data, err := f.blobs.Read(ctx, "attachments/"+res.Files[0].Name)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 spec.pdf", string(data))

		last := f.recorder.entries[len(f.recorder.entries)-1]
		assert.Equal(t, "upload_attachment", last.action)
	})

	t.Run("sniffs missing content type", func(t *testing.T) {
		res, err := f.engine.AttachFiles(ctx, "alice", "t1", []File{{Name: "scan", Data: []byte("%PDF-1.7\n...")}})
		require.NoError(t, err)
		assert.Len(t, res.Files, 1)
	})
}

func TestOpenAttachment(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.transition(t, task.StatusCompleted)
	res, err := f.engine.AttachFiles(ctx, "alice", "t1", []File{pdf("report.pdf")})
	require.NoError(t, err)
	name := res.Files[0].Name

	att, err := f.engine.OpenAttachment(ctx, "alice", "t1", name)
	require.NoError(t, err)
	defer att.Body.Close()
	data, err := io.ReadAll(att.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Equal(t, "application/pdf", att.ContentType)

	_, err = f.engine.OpenAttachment(ctx, "alice", "t1", "unknown.pdf")
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))

	_, err = f.engine.OpenAttachment(ctx, "bob", "t1", name)
	assert.Equal(t, cerr.NotFound, cerr.CodeOf(err))
}

func TestSanitizeFileName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\a b.png`: "a_b.png",
		"..":                  "file",
		"":                    "file",
		"résumé.pdf":          "r_sum_.pdf",
		".hidden":             "hidden",
		strings.Repeat("x", 150) + ".pdf": strings.Repeat("x", 96) + ".pdf",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFileName(in), in)
	}
}
