package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdesk/internal/database/databasetest"
	"github.com/kazz187/taskdesk/internal/employee"
	employeerepo "github.com/kazz187/taskdesk/internal/employee/repositoryimpl"
	"github.com/kazz187/taskdesk/internal/pushsubscription"
)

func TestSQLRepository(t *testing.T) {
	ctx := context.Background()
	db := databasetest.New(t)
	employees := employeerepo.NewSQLRepository(db)
	for _, id := range []string{"alice", "bob"} {
		require.NoError(t, employees.Create(ctx, &employee.Employee{
			ID: id, Name: id, Email: id + "@example.com", Role: employee.RoleEmployee, CreatedAt: time.Now(),
		}))
	}
	repo := NewSQLRepository(db)

	require.NoError(t, repo.Save(ctx, &pushsubscription.Subscription{
		ID: "s1", EmployeeID: "alice", Endpoint: "https://push.example/1", P256dhKey: "p", AuthKey: "a", CreatedAt: time.Now(),
	}))
	require.NoError(t, repo.Save(ctx, &pushsubscription.Subscription{
		ID: "s2", EmployeeID: "alice", Endpoint: "https://push.example/2", P256dhKey: "p", AuthKey: "a", CreatedAt: time.Now(),
	}))

	subs, err := repo.ListByEmployee(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, subs, 2)

	t.Run("re-register moves endpoint", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, &pushsubscription.Subscription{
			ID: "s3", EmployeeID: "bob", Endpoint: "https://push.example/1", P256dhKey: "p2", AuthKey: "a2", CreatedAt: time.Now(),
		}))
		alice, err := repo.ListByEmployee(ctx, "alice")
		require.NoError(t, err)
		require.Len(t, alice, 1)
		assert.Equal(t, "s2", alice[0].ID)

		bob, err := repo.ListByEmployee(ctx, "bob")
		require.NoError(t, err)
		require.Len(t, bob, 1)
		assert.Equal(t, "p2", bob[0].P256dhKey)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "s2"))
		require.NoError(t, repo.DeleteByEndpoint(ctx, "https://push.example/1"))
		for _, id := range []string{"alice", "bob"} {
			subs, err := repo.ListByEmployee(ctx, id)
			require.NoError(t, err)
			assert.Empty(t, subs)
		}
	})
}
