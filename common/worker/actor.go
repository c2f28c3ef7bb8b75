// Package worker executes queued tasks: it resolves the component behind the
// task module, builds the process context, runs it, and records the outcome.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dramakit/drama/common/bus"
	"github.com/dramakit/drama/common/logger"
	"github.com/dramakit/drama/common/metrics"
	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/process"
	"github.com/dramakit/drama/common/queue"
	"github.com/dramakit/drama/common/registry"
	"github.com/dramakit/drama/common/secrets"
	"github.com/dramakit/drama/common/state"
	"github.com/dramakit/drama/common/storage"
)

// Actor wires the collaborators a task execution needs.
type Actor struct {
	Tasks      state.TaskStore
	Workflows  state.WorkflowStore
	Queue      queue.Queue
	Bus        bus.Bus
	NewStorage storage.Factory
	Registry   *registry.Registry
	SecretsKey string
	Log        *logger.Logger
	Metrics    *metrics.Metrics
}

// Handle runs one job. It is the queue.Handler of the worker runner.
// Returning queue.ErrDeferred means the job was requeued behind a pending
// dependency and no callback should fire.
func (a *Actor) Handle(ctx context.Context, job *queue.Job) (string, error) {
	task := job.Task
	log := a.Log.WithWorkflow(job.WorkflowID).WithTask(task.Name)
	log.Info("processing task", "task_id", job.ID)

	deferred, err := a.waitingOnUpstream(ctx, job)
	if err != nil {
		return "", err
	}
	if deferred {
		log.Debug("upstream still pending, requeueing", "task_id", job.ID)
		if err := a.Queue.Requeue(ctx, job); err != nil {
			return "", err
		}
		return "", queue.ErrDeferred
	}

	unsealed, err := a.unsealSecrets(task.Secrets)
	if err != nil {
		return "", err
	}

	// The bucket is the workflow author, so all of an author's workflows
	// share one namespace; the folder nests workflow then task.
	author := "anonymous"
	if v, ok := task.Metadata["author"].(string); ok && v != "" {
		author = v
	}
	dfs, err := a.NewStorage(author, job.WorkflowID, task.Name)
	if err != nil {
		return "", err
	}

	pcs, err := process.New(ctx, process.Options{
		Name:    task.Name,
		Module:  task.Module,
		Parent:  job.WorkflowID,
		Params:  task.Params,
		Inputs:  task.Inputs,
		Secrets: unsealed,
		Storage: dfs,
		Bus:     a.Bus,
		Log:     a.Log,
	})
	if err != nil {
		return "", err
	}

	pcs.Debug(fmt.Sprintf("running task %s with name %s", job.ID, task.Name))

	component, err := a.Registry.Lookup(task.Module)
	if err != nil {
		pcs.Error(err.Error())
		pcs.Close(ctx, task.Options.OnFailForceInterruption, false)
		return "", err
	}

	if err := a.setRunning(ctx, job); err != nil {
		return "", err
	}

	result, err := component.Execute(ctx, pcs, task.Params)
	if err != nil {
		pcs.Error("unexpected error raised by component:")
		pcs.Error(err.Error())
		pcs.Close(ctx, task.Options.OnFailForceInterruption, task.Options.OnFailRemoveLocalDir)
		return "", err
	}
	if result == nil {
		result = &models.TaskResult{}
	}

	logRemote, err := pcs.Close(ctx, false, false)
	if err != nil {
		return "", err
	}
	pcs.Info(fmt.Sprintf("task %s successfully executed", job.ID))
	result.Log = &logRemote

	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("worker: encode result: %w", err)
	}
	return string(encoded), nil
}

// waitingOnUpstream reports whether any upstream task row is still PENDING.
func (a *Actor) waitingOnUpstream(ctx context.Context, job *queue.Job) (bool, error) {
	upstream := job.Task.UpstreamTasks()
	if len(upstream) == 0 {
		return false, nil
	}

	tasks, err := a.Tasks.Find(ctx, job.WorkflowID)
	if err != nil {
		return false, err
	}
	if len(tasks) == 0 {
		return false, fmt.Errorf("worker: tasks for workflow %q not found", job.WorkflowID)
	}

	byName := make(map[string]models.TaskStatus, len(tasks))
	for _, t := range tasks {
		byName[t.Name] = t.Status
	}
	for _, name := range upstream {
		if byName[name] == models.TaskStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (a *Actor) unsealSecrets(sealed []models.TaskSecret) ([]secrets.Unsealed, error) {
	var out []secrets.Unsealed
	for _, s := range sealed {
		u, err := secrets.Unseal(s.Token, s.Secret, a.SecretsKey)
		if err != nil {
			return nil, fmt.Errorf("worker: unseal secret %s: %w", s.Token, err)
		}
		out = append(out, u)
	}
	return out, nil
}

func (a *Actor) setRunning(ctx context.Context, job *queue.Job) error {
	err := a.Tasks.CreateOrUpdateFromID(ctx, job.ID, state.Fields{
		"status":     models.TaskStatusRunning,
		"updated_at": time.Now(),
	})
	if err != nil {
		return err
	}
	return a.SetWorkflowRunState(ctx, job.WorkflowID)
}

// OnSuccess is the queue success callback: stores the result and DONE status.
func (a *Actor) OnSuccess(ctx context.Context, job *queue.Job, resultJSON string) {
	var result models.TaskResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		a.Log.Error("decode task result failed", "task_id", job.ID, "error", err)
		result = models.TaskResult{Message: resultJSON}
	}

	err := a.Tasks.CreateOrUpdateFromID(ctx, job.ID, state.Fields{
		"status":     models.TaskStatusDone,
		"updated_at": time.Now(),
		"result":     &result,
	})
	if err != nil {
		a.Log.Error("store task result failed", "task_id", job.ID, "error", err)
		return
	}
	a.Metrics.TasksProcessed.WithLabelValues(string(models.TaskStatusDone)).Inc()

	if err := a.SetWorkflowRunState(ctx, job.WorkflowID); err != nil {
		a.Log.Error("update workflow state failed", "workflow_id", job.WorkflowID, "error", err)
	}
}

// OnFailure is the queue failure callback: stores the error and FAILED status.
func (a *Actor) OnFailure(ctx context.Context, job *queue.Job, cause error) {
	err := a.Tasks.CreateOrUpdateFromID(ctx, job.ID, state.Fields{
		"status":     models.TaskStatusFailed,
		"updated_at": time.Now(),
		"result":     &models.TaskResult{Message: cause.Error()},
	})
	if err != nil {
		a.Log.Error("store task failure failed", "task_id", job.ID, "error", err)
		return
	}
	a.Metrics.TasksProcessed.WithLabelValues(string(models.TaskStatusFailed)).Inc()

	if err := a.SetWorkflowRunState(ctx, job.WorkflowID); err != nil {
		a.Log.Error("update workflow state failed", "workflow_id", job.WorkflowID, "error", err)
	}
}

// SetWorkflowRunState derives the workflow status from its task statuses.
func (a *Actor) SetWorkflowRunState(ctx context.Context, workflowID string) error {
	workflow, err := a.Workflows.FindOne(ctx, workflowID)
	if err != nil {
		return err
	}
	if workflow == nil {
		return fmt.Errorf("worker: workflow %q not found", workflowID)
	}

	tasks, err := a.Tasks.Find(ctx, workflowID)
	if err != nil {
		return err
	}

	status := AggregateStatus(workflow.IsRevoked, tasks)
	return a.Workflows.CreateOrUpdateFromID(ctx, workflowID, state.Fields{
		"status":     status,
		"updated_at": time.Now(),
	})
}

// AggregateStatus folds task statuses into a workflow status. A revoked
// workflow is REVOKED regardless of its tasks.
func AggregateStatus(isRevoked bool, tasks []models.Task) models.WorkflowStatus {
	all := func(want models.TaskStatus) bool {
		for _, t := range tasks {
			if t.Status != want {
				return false
			}
		}
		return true
	}
	any := func(want models.TaskStatus) bool {
		for _, t := range tasks {
			if t.Status == want {
				return true
			}
		}
		return false
	}

	switch {
	case isRevoked:
		return models.WorkflowStatusRevoked
	case all(models.TaskStatusDone):
		return models.WorkflowStatusDone
	case any(models.TaskStatusFailed):
		return models.WorkflowStatusFailed
	case all(models.TaskStatusPending):
		return models.WorkflowStatusPending
	case any(models.TaskStatusPending):
		return models.WorkflowStatusPending
	case any(models.TaskStatusRunning):
		return models.WorkflowStatusRunning
	default:
		return models.WorkflowStatusUnknown
	}
}
