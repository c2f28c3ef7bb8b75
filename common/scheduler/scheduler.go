// Package scheduler accepts workflow submissions: it validates the DAG,
// persists it, orders the tasks, and enqueues them for workers.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dramakit/drama/common/config"
	"github.com/dramakit/drama/common/logger"
	"github.com/dramakit/drama/common/metrics"
	"github.com/dramakit/drama/common/models"
	"github.com/dramakit/drama/common/queue"
	"github.com/dramakit/drama/common/state"
)

// RevokeModule is the built-in component a revoke enqueues. It broadcasts the
// interruption signal on the workflow topic.
const RevokeModule = "core.utils.RevokeExecution"

// Scheduler turns workflow submissions into queued tasks.
type Scheduler struct {
	Tasks     state.TaskStore
	Workflows state.WorkflowStore
	Queue     queue.Queue
	Defaults  config.ActorOpts
	Log       *logger.Logger
	Metrics   *metrics.Metrics
}

// Run validates and persists the workflow, then enqueues its tasks in
// topological order. Workflow metadata is merged into every task's metadata.
func (s *Scheduler) Run(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	order, err := SortedTasks(workflow)
	if err != nil {
		return nil, err
	}

	err = s.Workflows.CreateOrUpdateFromID(ctx, workflow.ID, state.Fields{
		"labels":     workflow.Labels,
		"metadata":   workflow.Metadata,
		"created_at": time.Now(),
		"status":     models.WorkflowStatusPending,
	})
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*models.Task, len(workflow.Tasks))
	for i := range workflow.Tasks {
		task := &workflow.Tasks[i]
		if task.Metadata == nil {
			task.Metadata = map[string]any{}
		}
		for k, v := range workflow.Metadata {
			task.Metadata[k] = v
		}
		byName[task.Name] = task
	}

	for _, name := range order {
		if _, err := s.Enqueue(ctx, byName[name], workflow.ID); err != nil {
			return nil, err
		}
	}

	s.Metrics.WorkflowsSubmitted.Inc()
	s.Log.Info("workflow submitted", "workflow_id", workflow.ID, "tasks", len(order))

	return s.Workflows.FindOne(ctx, workflow.ID)
}

// Revoke cancels a running workflow. The flag is monotonic: once revoked a
// workflow stays revoked. A RevokeExecution task is enqueued to interrupt the
// tasks still polling the workflow topic.
func (s *Scheduler) Revoke(ctx context.Context, workflowID string) (*models.Workflow, error) {
	s.Log.Debug("revoking workflow", "workflow_id", workflowID)

	err := s.Workflows.CreateOrUpdateFromID(ctx, workflowID, state.Fields{
		"updated_at": time.Now(),
		"is_revoked": true,
	})
	if err != nil {
		return nil, err
	}

	revoke := models.Task{
		Name:    "RevokeExecution",
		Module:  RevokeModule,
		Params:  map[string]any{"workflow_id": workflowID},
		Options: models.DefaultTaskOptions(),
	}
	if _, err := s.Enqueue(ctx, &revoke, workflowID); err != nil {
		return nil, err
	}

	s.Metrics.WorkflowsRevoked.Inc()

	return s.Workflows.FindOne(ctx, workflowID)
}

// Status returns the workflow with its task rows populated, or nil when the
// workflow id is unknown.
func (s *Scheduler) Status(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := s.Workflows.FindOne(ctx, workflowID)
	if err != nil || workflow == nil {
		return workflow, err
	}
	tasks, err := s.Tasks.Find(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	workflow.Tasks = tasks
	return workflow, nil
}

// Enqueue pushes one task onto its queue and persists the PENDING row under
// the queue-assigned task id.
func (s *Scheduler) Enqueue(ctx context.Context, task *models.Task, workflowID string) (string, error) {
	queueName := task.Options.QueueName
	if queueName == "" {
		queueName = s.Defaults.QueueName
	}

	taskID, err := s.Queue.Enqueue(ctx, &queue.Job{
		Queue:      queueName,
		WorkflowID: workflowID,
		Task:       *task,
	})
	if err != nil {
		return "", err
	}

	err = s.Tasks.CreateOrUpdateFromID(ctx, taskID, state.Fields{
		"name":       task.Name,
		"parent":     workflowID,
		"module":     task.Module,
		"params":     task.Params,
		"inputs":     task.Inputs,
		"labels":     task.Labels,
		"secrets":    task.Secrets,
		"options":    task.Options,
		"metadata":   task.Metadata,
		"status":     models.TaskStatusPending,
		"created_at": time.Now(),
	})
	if err != nil {
		return "", err
	}

	s.Metrics.TasksEnqueued.Inc()
	return taskID, nil
}

// SortedTasks returns the task names in execution order: every task after all
// tasks it consumes from. The order is deterministic; ties break by position
// in the submitted task list. Cycles and tasks unreachable from a source make
// the order incomplete and are rejected as a validation error.
func SortedTasks(workflow *models.Workflow) ([]string, error) {
	graph := make(map[string][]string)
	var sources []string

	for i := range workflow.Tasks {
		task := &workflow.Tasks[i]
		if len(task.Inputs) == 0 {
			sources = append(sources, task.Name)
			continue
		}
		for _, ref := range sortedInputRefs(task.Inputs) {
			upstream, _, _ := strings.Cut(ref, ".")
			graph[upstream] = append(graph[upstream], task.Name)
		}
	}

	order := topologicalSort(graph, sources)

	if len(order) != len(workflow.Tasks) {
		return nil, &models.ValidationError{
			Msg: fmt.Sprintf("workflow is not a DAG: %d of %d tasks could not be ordered",
				len(workflow.Tasks)-len(order), len(workflow.Tasks)),
		}
	}

	position := make(map[string]int, len(order))
	for i, name := range order {
		position[name] = i
	}
	for i := range workflow.Tasks {
		task := &workflow.Tasks[i]
		for _, upstream := range task.UpstreamTasks() {
			if position[upstream] > position[task.Name] {
				return nil, &models.ValidationError{
					Msg: "workflow is not a DAG: task " + task.Name + " is cyclically dependent on " + upstream,
				}
			}
		}
	}
	return order, nil
}

// sortedInputRefs returns a task's input references in deterministic order.
func sortedInputRefs(inputs map[string]string) []string {
	refs := make([]string, 0, len(inputs))
	for _, ref := range inputs {
		refs = append(refs, ref)
	}
	for i := 1; i < len(refs); i++ {
		for j := i; j > 0 && refs[j] < refs[j-1]; j-- {
			refs[j], refs[j-1] = refs[j-1], refs[j]
		}
	}
	return refs
}

// topologicalSort is an iterative DFS: nodes are popped LIFO, finished chains
// drain from the stack once the next node is not a child of the stack top.
func topologicalSort(graph map[string][]string, start []string) []string {
	seen := make(map[string]struct{})
	var stack, order []string

	q := append([]string(nil), start...)
	for len(q) > 0 {
		v := q[len(q)-1]
		q = q[:len(q)-1]

		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		q = append(q, graph[v]...)

		for len(stack) > 0 && !contains(graph[stack[len(stack)-1]], v) {
			order = append(order, stack[len(stack)-1])
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, v)
	}

	result := stack
	for i := len(order) - 1; i >= 0; i-- {
		result = append(result, order[i])
	}
	return result
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
