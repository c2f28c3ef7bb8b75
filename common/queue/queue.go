// Package queue is the durable job queue the scheduler feeds and workers
// drain. Jobs ride Redis streams, one stream per queue name, consumed through
// a consumer group so a crashed worker's jobs are redelivered.
package queue

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dramakit/drama/common/models"
)

// ErrDeferred is returned by a handler that requeued its job and wants
// neither the success nor the failure callback to fire.
var ErrDeferred = errors.New("queue: job deferred")

// Job is one task execution request.
type Job struct {
	// ID is assigned at first enqueue and doubles as the task id. Requeues
	// keep it.
	ID         string      `json:"id"`
	Queue      string      `json:"queue"`
	WorkflowID string      `json:"workflow_id"`
	Task       models.Task `json:"task"`
	Retries    int         `json:"retries"`
}

// Handler executes a job and returns its serialized result.
type Handler func(ctx context.Context, job *Job) (string, error)

// Queue enqueues jobs for workers.
type Queue interface {
	// Enqueue pushes the job onto its queue. A job without an ID gets one;
	// the assigned id is returned.
	Enqueue(ctx context.Context, job *Job) (string, error)

	// Requeue pushes the job back preserving its ID.
	Requeue(ctx context.Context, job *Job) error

	Close() error
}

func ensureID(job *Job) string {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	return job.ID
}
