package bus

import (
	"context"
	"sync"
	"time"
)

// MemoryBus is an in-process Bus used by tests and single-node runs. Topics
// grow unboundedly; consumers track their own cursors.
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string][]Record
}

func NewMemory() *MemoryBus {
	return &MemoryBus{topics: make(map[string][]Record)}
}

func (b *MemoryBus) Producer(topic string) (Producer, error) {
	return &memoryProducer{bus: b, topic: topic}, nil
}

func (b *MemoryBus) Consumer(topic, group string) (Consumer, error) {
	return &memoryConsumer{bus: b, topic: topic}, nil
}

func (b *MemoryBus) append(topic string, rec Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics[topic] = append(b.topics[topic], rec)
}

func (b *MemoryBus) at(topic string, cursor int) (*Record, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	records := b.topics[topic]
	if cursor >= len(records) {
		return nil, false
	}
	rec := records[cursor]
	return &rec, true
}

type memoryProducer struct {
	bus   *MemoryBus
	topic string
}

func (p *memoryProducer) Send(ctx context.Context, key, value []byte) error {
	p.bus.append(p.topic, Record{Key: append([]byte(nil), key...), Value: append([]byte(nil), value...)})
	return nil
}

func (p *memoryProducer) Close() error { return nil }

type memoryConsumer struct {
	bus    *MemoryBus
	topic  string
	cursor int
}

func (c *memoryConsumer) Poll(ctx context.Context) (*Record, error) {
	deadline := time.Now().Add(50 * time.Millisecond)
	for {
		if rec, ok := c.bus.at(c.topic, c.cursor); ok {
			c.cursor++
			return rec, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (c *memoryConsumer) Close() error { return nil }
