package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaBus implements Bus on Apache Kafka.
type KafkaBus struct {
	broker      string
	pollTimeout time.Duration
}

// NewKafka returns a bus against a single broker address.
func NewKafka(broker string) *KafkaBus {
	return &KafkaBus{broker: broker, pollTimeout: 5 * time.Second}
}

func (b *KafkaBus) Producer(topic string) (Producer, error) {
	w := &kafka.Writer{
		Addr:  kafka.TCP(b.broker),
		Topic: topic,
		// Hash keeps every record of one producing task on one partition, so
		// per-key ordering holds.
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &kafkaProducer{writer: w}, nil
}

func (b *KafkaBus) Consumer(topic, group string) (Consumer, error) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{b.broker},
		Topic:       topic,
		GroupID:     group,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &kafkaConsumer{reader: r, timeout: b.pollTimeout}, nil
}

type kafkaProducer struct {
	writer *kafka.Writer
}

func (p *kafkaProducer) Send(ctx context.Context, key, value []byte) error {
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value}); err != nil {
		return fmt.Errorf("bus: write to %s: %w", p.writer.Topic, err)
	}
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

type kafkaConsumer struct {
	reader  *kafka.Reader
	timeout time.Duration
}

func (c *kafkaConsumer) Poll(ctx context.Context) (*Record, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.reader.ReadMessage(pollCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("bus: read: %w", err)
	}
	return &Record{Key: msg.Key, Value: msg.Value}, nil
}

func (c *kafkaConsumer) Close() error {
	return c.reader.Close()
}
