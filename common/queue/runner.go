package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dramakit/drama/common/config"
	"github.com/dramakit/drama/common/logger"
)

// Callbacks fire after a job finished for good. A deferred job (handler
// returned ErrDeferred) fires neither.
type Callbacks struct {
	OnSuccess func(ctx context.Context, job *Job, result string)
	OnFailure func(ctx context.Context, job *Job, err error)
}

// Runner drains one queue with a Redis consumer group and a fixed number of
// worker goroutines.
type Runner struct {
	client    *redis.Client
	queue     *RedisQueue
	opts      config.ActorOpts
	handler   Handler
	callbacks Callbacks
	log       *logger.Logger

	group    string
	consumer string
	workers  int
}

func NewRunner(client *redis.Client, opts config.ActorOpts, workers int, handler Handler, callbacks Callbacks, log *logger.Logger) *Runner {
	host, _ := os.Hostname()
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		client:    client,
		queue:     NewRedis(client),
		opts:      opts,
		handler:   handler,
		callbacks: callbacks,
		log:       log,
		group:     "drama-workers",
		consumer:  fmt.Sprintf("%s-%d", host, time.Now().Unix()),
		workers:   workers,
	}
}

// Start blocks consuming jobs until the context is cancelled.
func (r *Runner) Start(ctx context.Context) error {
	stream := StreamKey(r.opts.QueueName)

	err := r.client.XGroupCreateMkStream(ctx, stream, r.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("queue: create consumer group: %w", err)
	}

	r.log.Info("queue runner started", "stream", stream, "group", r.group, "workers", r.workers)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r.consume(ctx, stream, fmt.Sprintf("%s-%d", r.consumer, id))
		}(i)
	}
	wg.Wait()
	return nil
}

func (r *Runner) consume(ctx context.Context, stream, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    r.group,
			Consumer: consumer,
			Streams:  []string{stream, ">"},
			Count:    1,
			Block:    5 * time.Second,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.log.Error("queue read failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				r.handleMessage(ctx, stream, msg)
			}
		}
	}
}

func (r *Runner) handleMessage(ctx context.Context, stream string, msg redis.XMessage) {
	defer func() {
		if err := r.client.XAck(ctx, stream, r.group, msg.ID).Err(); err != nil {
			r.log.Error("queue ack failed", "message_id", msg.ID, "error", err)
		}
	}()

	raw, ok := msg.Values["job"].(string)
	if !ok {
		r.log.Error("queue message missing job payload", "message_id", msg.ID)
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		r.log.Error("queue message unmarshal failed", "message_id", msg.ID, "error", err)
		return
	}

	result, err := r.run(ctx, &job)
	if err == nil {
		if r.callbacks.OnSuccess != nil {
			r.callbacks.OnSuccess(ctx, &job, result)
		}
		return
	}
	if errors.Is(err, ErrDeferred) {
		return
	}

	if job.Retries < r.opts.MaxRetries {
		job.Retries++
		r.log.Warn("job failed, retrying", "job_id", job.ID, "retry", job.Retries, "error", err)
		if reqErr := r.queue.Requeue(ctx, &job); reqErr == nil {
			return
		}
		r.log.Error("job requeue failed", "job_id", job.ID)
	}

	if r.callbacks.OnFailure != nil {
		r.callbacks.OnFailure(ctx, &job, err)
	}
}

// run executes the handler under the per-job time limit.
func (r *Runner) run(ctx context.Context, job *Job) (result string, err error) {
	jobCtx := ctx
	if r.opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, time.Duration(r.opts.TimeLimit)*time.Millisecond)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("queue: job %s panicked: %v", job.ID, p)
		}
	}()

	return r.handler(jobCtx, job)
}
