package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramakit/drama/common/models"
)

func TestTaskUpsertCreatesAndUpdates(t *testing.T) {
	store := NewMemoryTaskStore()
	ctx := context.Background()

	now := time.Now()
	err := store.CreateOrUpdateFromID(ctx, "t0", Fields{
		"name":       "First",
		"parent":     "wf-1",
		"module":     "test.First",
		"status":     models.TaskStatusPending,
		"created_at": now,
	})
	require.NoError(t, err)

	row, err := store.FindOne(ctx, "t0")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "First", row.Name)
	assert.Equal(t, models.TaskStatusPending, row.Status)

	// A partial update leaves other fields untouched.
	err = store.CreateOrUpdateFromID(ctx, "t0", Fields{
		"status":     models.TaskStatusRunning,
		"updated_at": time.Now(),
	})
	require.NoError(t, err)

	row, err = store.FindOne(ctx, "t0")
	require.NoError(t, err)
	assert.Equal(t, "First", row.Name)
	assert.Equal(t, "wf-1", row.Parent)
	assert.Equal(t, models.TaskStatusRunning, row.Status)
	require.NotNil(t, row.UpdatedAt)
}

func TestTaskFindByParent(t *testing.T) {
	store := NewMemoryTaskStore()
	ctx := context.Background()

	require.NoError(t, store.CreateOrUpdateFromID(ctx, "t0", Fields{"name": "A", "parent": "wf-1"}))
	require.NoError(t, store.CreateOrUpdateFromID(ctx, "t1", Fields{"name": "B", "parent": "wf-1"}))
	require.NoError(t, store.CreateOrUpdateFromID(ctx, "t2", Fields{"name": "C", "parent": "wf-2"}))

	tasks, err := store.Find(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	byName, err := store.FindByName(ctx, "wf-2", "C")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, "t2", byName.ID)
}

func TestFindOneMissingReturnsNil(t *testing.T) {
	store := NewMemoryTaskStore()

	row, err := store.FindOne(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestWorkflowUpsert(t *testing.T) {
	store := NewMemoryWorkflowStore()
	ctx := context.Background()

	err := store.CreateOrUpdateFromID(ctx, "wf-1", Fields{
		"status":   models.WorkflowStatusPending,
		"metadata": map[string]any{"author": "alice"},
	})
	require.NoError(t, err)

	err = store.CreateOrUpdateFromID(ctx, "wf-1", Fields{"is_revoked": true})
	require.NoError(t, err)

	wf, err := store.FindOne(ctx, "wf-1")
	require.NoError(t, err)
	require.NotNil(t, wf)
	assert.True(t, wf.IsRevoked)
	assert.Equal(t, models.WorkflowStatusPending, wf.Status)
	assert.Equal(t, "alice", wf.Metadata["author"])
}
