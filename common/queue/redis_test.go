package queue

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dramakit/drama/common/models"
)

func newTestQueue(t *testing.T) (*RedisQueue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client), client
}

func TestEnqueueAssignsID(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	job := &Job{
		Queue:      "default",
		WorkflowID: "wf-1",
		Task:       models.Task{Name: "First", Module: "test.First"},
	}

	id, err := q.Enqueue(ctx, job)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, job.ID)

	messages, err := client.XRange(ctx, StreamKey("default"), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)

	var stored Job
	require.NoError(t, json.Unmarshal([]byte(messages[0].Values["job"].(string)), &stored))
	assert.Equal(t, id, stored.ID)
	assert.Equal(t, "First", stored.Task.Name)
}

func TestEnqueueKeepsExistingID(t *testing.T) {
	q, _ := newTestQueue(t)

	job := &Job{ID: "fixed-id", Queue: "default"}
	id, err := q.Enqueue(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)
}

func TestRequeuePreservesID(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	job := &Job{Queue: "default", Task: models.Task{Name: "First"}}
	id, err := q.Enqueue(ctx, job)
	require.NoError(t, err)

	job.Retries = 1
	require.NoError(t, q.Requeue(ctx, job))

	messages, err := client.XRange(ctx, StreamKey("default"), "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 2)

	var second Job
	require.NoError(t, json.Unmarshal([]byte(messages[1].Values["job"].(string)), &second))
	assert.Equal(t, id, second.ID)
	assert.Equal(t, 1, second.Retries)
}

func TestRequeueWithoutIDFails(t *testing.T) {
	q, _ := newTestQueue(t)
	assert.Error(t, q.Requeue(context.Background(), &Job{Queue: "default"}))
}

func TestQueuesAreIsolated(t *testing.T) {
	q, client := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, &Job{Queue: "default"})
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, &Job{Queue: "gpu"})
	require.NoError(t, err)

	n, err := client.XLen(ctx, StreamKey("default")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = client.XLen(ctx, StreamKey("gpu")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
