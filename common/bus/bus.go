// Package bus abstracts the per-workflow streaming channel tasks use to
// exchange data blocks and control signals. Topics are workflow ids, record
// keys are producing task names, and ordering is guaranteed per key.
package bus

import "context"

// Record is a single keyed message on a workflow topic.
type Record struct {
	Key   []byte
	Value []byte
}

// Producer appends records to one topic.
type Producer interface {
	Send(ctx context.Context, key, value []byte) error
	Close() error
}

// Consumer reads one topic from the earliest offset. Poll returns nil when no
// record arrives within the timeout.
type Consumer interface {
	Poll(ctx context.Context) (*Record, error)
	Close() error
}

// Bus creates producers and consumers for workflow topics.
type Bus interface {
	Producer(topic string) (Producer, error)
	Consumer(topic, group string) (Consumer, error)
}
