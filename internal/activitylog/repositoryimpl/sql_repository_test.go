package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/activitylog"
	"github.com/kazz187/taskdesk/internal/database/databasetest"
)

func TestSQLRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(databasetest.New(t))
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, e := range []*activitylog.Entry{
		{ID: "l1", EmployeeEmail: "ann@example.com", Action: activitylog.ActionAssignTask, Description: "first", Timestamp: base},
		{ID: "l2", EmployeeEmail: "ann@example.com", Action: activitylog.ActionUpdateTaskStatus, Description: "second", Timestamp: base.Add(time.Minute)},
		{ID: "l3", EmployeeEmail: "bob@example.com", Action: activitylog.ActionAssignTask, Description: "other", Timestamp: base},
	} {
		require.NoError(t, repo.Create(ctx, e), "entry %d", i)
	}

	list, err := repo.ListByEmail(ctx, "ann@example.com", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "second", list[0].Description)
	assert.Equal(t, "first", list[1].Description)

	limited, err := repo.ListByEmail(ctx, "ann@example.com", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "l2", limited[0].ID)
}
