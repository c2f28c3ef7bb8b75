package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramakit/drama/common/bus"
	"github.com/dramakit/drama/common/logger"
	"github.com/dramakit/drama/common/metrics"
	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/process"
	"github.com/dramakit/drama/common/queue"
	"github.com/dramakit/drama/common/registry"
	"github.com/dramakit/drama/common/state"
	"github.com/dramakit/drama/common/storage"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []*queue.Job
}

func (q *fakeQueue) Enqueue(ctx context.Context, job *queue.Job) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	q.jobs = append(q.jobs, job)
	return job.ID, nil
}

func (q *fakeQueue) Requeue(ctx context.Context, job *queue.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Close() error { return nil }

func newTestActor(t *testing.T) (*Actor, *fakeQueue) {
	t.Helper()
	fq := &fakeQueue{}
	return &Actor{
		Tasks:      state.NewMemoryTaskStore(),
		Workflows:  state.NewMemoryWorkflowStore(),
		Queue:      fq,
		Bus:        bus.NewMemory(),
		NewStorage: storage.NewLocal(t.TempDir()),
		Registry:   registry.New(),
		Log:        logger.Discard(),
		Metrics:    metrics.Noop(),
	}, fq
}

func seedWorkflow(t *testing.T, a *Actor, workflowID string) {
	t.Helper()
	err := a.Workflows.CreateOrUpdateFromID(context.Background(), workflowID, state.Fields{
		"status": models.WorkflowStatusPending,
	})
	require.NoError(t, err)
}

func seedTask(t *testing.T, a *Actor, id, name, parent string, status models.TaskStatus) {
	t.Helper()
	err := a.Tasks.CreateOrUpdateFromID(context.Background(), id, state.Fields{
		"name":   name,
		"parent": parent,
		"status": status,
	})
	require.NoError(t, err)
}

func TestAggregateStatus(t *testing.T) {
	tasksWith := func(statuses ...models.TaskStatus) []models.Task {
		out := make([]models.Task, len(statuses))
		for i, s := range statuses {
			out[i] = models.Task{Name: fmt.Sprintf("t%d", i), Status: s}
		}
		return out
	}

	cases := []struct {
		name      string
		isRevoked bool
		statuses  []models.TaskStatus
		want      models.WorkflowStatus
	}{
		{"revoked wins", true, []models.TaskStatus{models.TaskStatusDone, models.TaskStatusRunning}, models.WorkflowStatusRevoked},
		{"all done", false, []models.TaskStatus{models.TaskStatusDone, models.TaskStatusDone}, models.WorkflowStatusDone},
		{"any failed", false, []models.TaskStatus{models.TaskStatusDone, models.TaskStatusFailed}, models.WorkflowStatusFailed},
		{"all pending", false, []models.TaskStatus{models.TaskStatusPending, models.TaskStatusPending}, models.WorkflowStatusPending},
		{"some pending no failure", false, []models.TaskStatus{models.TaskStatusDone, models.TaskStatusPending}, models.WorkflowStatusPending},
		{"running no failure", false, []models.TaskStatus{models.TaskStatusDone, models.TaskStatusRunning}, models.WorkflowStatusRunning},
		{"unknown fallback", false, []models.TaskStatus{models.TaskStatusDone, models.TaskStatusUnknown}, models.WorkflowStatusUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AggregateStatus(tc.isRevoked, tasksWith(tc.statuses...)))
		})
	}
}

func TestHandleDefersWhenUpstreamPending(t *testing.T) {
	a, fq := newTestActor(t)
	ctx := context.Background()

	seedWorkflow(t, a, "wf-1")
	seedTask(t, a, "t0", "First", "wf-1", models.TaskStatusPending)
	seedTask(t, a, "t1", "Second", "wf-1", models.TaskStatusPending)

	job := &queue.Job{
		ID:         "t1",
		Queue:      "default",
		WorkflowID: "wf-1",
		Task: models.Task{
			Name:   "Second",
			Module: "test.Second",
			Inputs: map[string]string{"in": "First.Data"},
		},
	}

	_, err := a.Handle(ctx, job)
	assert.ErrorIs(t, err, queue.ErrDeferred)

	// Requeue preserved the job id.
	require.Len(t, fq.jobs, 1)
	assert.Equal(t, "t1", fq.jobs[0].ID)
}

func TestHandleExecutesComponentAndReportsResult(t *testing.T) {
	a, _ := newTestActor(t)
	ctx := context.Background()

	seedWorkflow(t, a, "wf-2")
	seedTask(t, a, "t0", "First", "wf-2", models.TaskStatusPending)

	executed := false
	a.Registry.MustRegister(&registry.Component{
		Name: "test.First",
		Execute: func(ctx context.Context, pcs *process.Process, params map[string]any) (*models.TaskResult, error) {
			executed = true
			assert.Equal(t, "wf-2", pcs.Parent)
			return &models.TaskResult{Message: "done"}, nil
		},
	})

	job := &queue.Job{
		ID:         "t0",
		Queue:      "default",
		WorkflowID: "wf-2",
		Task: models.Task{
			Name:     "First",
			Module:   "test.First",
			Options:  models.DefaultTaskOptions(),
			Metadata: map[string]any{"author": "alice"},
		},
	}

	result, err := a.Handle(ctx, job)
	require.NoError(t, err)
	assert.True(t, executed)
	assert.Contains(t, result, `"done"`)
	assert.Contains(t, result, `"log"`)

	// The RUNNING transition was persisted before execution finished the row.
	row, err := a.Tasks.FindOne(ctx, "t0")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, row.Status)
}

func TestHandleUnknownModule(t *testing.T) {
	a, _ := newTestActor(t)
	ctx := context.Background()

	seedWorkflow(t, a, "wf-3")
	seedTask(t, a, "t0", "First", "wf-3", models.TaskStatusPending)

	job := &queue.Job{
		ID:         "t0",
		WorkflowID: "wf-3",
		Task: models.Task{
			Name:    "First",
			Module:  "test.Missing",
			Options: models.DefaultTaskOptions(),
		},
	}

	_, err := a.Handle(ctx, job)
	assert.ErrorIs(t, err, registry.ErrComponentNotFound)
}

func TestCallbacksPersistTerminalStates(t *testing.T) {
	a, _ := newTestActor(t)
	ctx := context.Background()

	seedWorkflow(t, a, "wf-4")
	seedTask(t, a, "t0", "First", "wf-4", models.TaskStatusRunning)
	seedTask(t, a, "t1", "Second", "wf-4", models.TaskStatusRunning)

	a.OnSuccess(ctx, &queue.Job{ID: "t0", WorkflowID: "wf-4"}, `{"message":"ok"}`)

	row, err := a.Tasks.FindOne(ctx, "t0")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusDone, row.Status)
	require.NotNil(t, row.Result)
	assert.Equal(t, "ok", row.Result.Message)

	a.OnFailure(ctx, &queue.Job{ID: "t1", WorkflowID: "wf-4"}, errors.New("boom"))

	row, err = a.Tasks.FindOne(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, row.Status)
	assert.Equal(t, "boom", row.Result.Message)

	// One failed task fails the whole workflow.
	wf, err := a.Workflows.FindOne(ctx, "wf-4")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusFailed, wf.Status)
}

func TestRevokedWorkflowStaysRevoked(t *testing.T) {
	a, _ := newTestActor(t)
	ctx := context.Background()

	require.NoError(t, a.Workflows.CreateOrUpdateFromID(ctx, "wf-5", state.Fields{
		"is_revoked": true,
	}))
	seedTask(t, a, "t0", "First", "wf-5", models.TaskStatusDone)

	require.NoError(t, a.SetWorkflowRunState(ctx, "wf-5"))

	wf, err := a.Workflows.FindOne(ctx, "wf-5")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusRevoked, wf.Status)
}
