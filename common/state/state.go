// Package state persists workflow and task rows in a document store.
package state

import (
	"context"

	"github.com/dramakit/drama/common/models"
)

// Fields is a partial update applied with set-semantics: named fields are
// replaced, everything else on the row is untouched.
type Fields map[string]any

// TaskStore holds one row per task, keyed by the task id assigned at enqueue.
type TaskStore interface {
	// Find returns every task belonging to a workflow.
	Find(ctx context.Context, parent string) ([]models.Task, error)

	// FindOne returns the task with the given id, or nil when absent.
	FindOne(ctx context.Context, id string) (*models.Task, error)

	// FindByName returns a workflow's task by task name, or nil when absent.
	FindByName(ctx context.Context, parent, name string) (*models.Task, error)

	// CreateOrUpdateFromID upserts the row with the given id.
	CreateOrUpdateFromID(ctx context.Context, id string, fields Fields) error
}

// WorkflowStore holds one row per workflow, keyed by workflow id.
type WorkflowStore interface {
	FindOne(ctx context.Context, id string) (*models.Workflow, error)
	CreateOrUpdateFromID(ctx context.Context, id string, fields Fields) error
}
