package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// publishTimeout bounds a publish once it is detached from the request.
const publishTimeout = 2 * time.Second

// Kafka exports events to a single topic keyed by event topic, so all
// events of one community or post land on the same partition in order.
//
// Why async? Events are emitted after the change has committed. A slow or
// unreachable broker must not hold the HTTP response until the request
// deadline, so the writer batches in the background and delivery failures
// are logged by the completion callback.
type Kafka struct {
	writer messageWriter
}

func NewKafka(cfg KafkaConfig, logger *zap.Logger) *Kafka {
	return &Kafka{writer: &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion:   completion(logger),
	}}
}

func completion(logger *zap.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		if err != nil {
			logger.Warn("failed to deliver events to kafka", zap.Int("messages", len(msgs)), zap.Error(err))
		}
	}
}

// Publish never waits on the caller's deadline: the write runs on a
// detached context with its own short timeout.
func (k *Kafka) Publish(ctx context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Topic),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}
	return nil
}

func (k *Kafka) Close() error {
	if k == nil || k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
