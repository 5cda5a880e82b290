package activitylog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepository struct {
	entries []*Entry
	err     error
}

func (s *stubRepository) Create(_ context.Context, e *Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *stubRepository) ListByEmail(context.Context, string, int) ([]*Entry, error) {
	return s.entries, nil
}

func TestRecorder_Record(t *testing.T) {
	repo := &stubRepository{}
	r := NewRecorder(repo)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Record(context.Background(), "ann@example.com", ActionUpdateTaskStatus, "Task ID t1 status changed to completed.")

	require.Len(t, repo.entries, 1)
	e := repo.entries[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "ann@example.com", e.EmployeeEmail)
	assert.Equal(t, ActionUpdateTaskStatus, e.Action)
	assert.Equal(t, now, e.Timestamp)
}

func TestRecorder_SwallowsErrors(t *testing.T) {
	r := NewRecorder(&stubRepository{err: errors.New("db down")})
	assert.NotPanics(t, func() {
		r.Record(context.Background(), "ann@example.com", ActionAssignTask, "x")
	})
}
