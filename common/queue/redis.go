package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const streamPrefix = "drama:queue:"

// RedisQueue implements Queue on Redis streams.
type RedisQueue struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

// StreamKey returns the Redis stream a queue name maps to.
func StreamKey(queueName string) string {
	return streamPrefix + queueName
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *Job) (string, error) {
	ensureID(job)
	if err := q.add(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *RedisQueue) Requeue(ctx context.Context, job *Job) error {
	if job.ID == "" {
		return fmt.Errorf("queue: requeue without id")
	}
	return q.add(ctx, job)
}

func (q *RedisQueue) add(ctx context.Context, job *Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job: %w", err)
	}

	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey(job.Queue),
		Values: map[string]any{"job": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", job.ID, err)
	}
	return nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
