package models

import (
	"strings"
	"time"
)

// WorkflowStatus is the aggregate state of a workflow, derived from its tasks.
type WorkflowStatus string

const (
	WorkflowStatusUnknown WorkflowStatus = "UNKNOWN"
	WorkflowStatusPending WorkflowStatus = "PENDING"
	WorkflowStatusRevoked WorkflowStatus = "REVOKED"
	WorkflowStatusRunning WorkflowStatus = "RUNNING"
	WorkflowStatusFailed  WorkflowStatus = "FAILED"
	WorkflowStatusDone    WorkflowStatus = "DONE"
)

// ValidationError reports a workflow or task schema invariant broken at ingress.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Msg
}

// Workflow is a DAG of tasks executed as one logical job.
type Workflow struct {
	ID        string         `json:"id" bson:"id"`
	Tasks     []Task         `json:"tasks,omitempty" bson:"tasks,omitempty"`
	Labels    []string       `json:"labels,omitempty" bson:"labels,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Status    WorkflowStatus `json:"status,omitempty" bson:"status,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty" bson:"created_at,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
	IsRevoked bool           `json:"is_revoked" bson:"is_revoked"`
}

// Author returns the workflow author from metadata, defaulting to "anonymous".
func (w *Workflow) Author() string {
	if w.Metadata != nil {
		if author, ok := w.Metadata["author"].(string); ok && author != "" {
			return author
		}
	}
	return "anonymous"
}

// Validate enforces the workflow invariants: per-task rules, unique task
// names, and every input reference resolving to another task in the workflow.
func (w *Workflow) Validate() error {
	names := make(map[string]struct{}, len(w.Tasks))
	for i := range w.Tasks {
		task := &w.Tasks[i]
		if err := task.Validate(); err != nil {
			return err
		}
		if _, dup := names[task.Name]; dup {
			return &ValidationError{Msg: "found duplicated task names in workflow: " + task.Name}
		}
		names[task.Name] = struct{}{}
	}
	for i := range w.Tasks {
		task := &w.Tasks[i]
		for local, ref := range task.Inputs {
			upstream, _, _ := strings.Cut(ref, ".")
			if _, ok := names[upstream]; !ok {
				return &ValidationError{
					Msg: "task " + task.Name + " input " + local + " references unknown task " + upstream,
				}
			}
			if upstream == task.Name {
				return &ValidationError{Msg: "task " + task.Name + " must not consume its own output"}
			}
		}
	}
	return nil
}
