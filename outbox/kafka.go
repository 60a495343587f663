package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Message is one ledger event on its way to the broker.
type Message struct {
	Key     string
	Type    string
	Payload []byte
}

type Publisher interface {
	Publish(ctx context.Context, msgs ...Message) error
	Close() error
}

// KafkaPublisher writes ledger events synchronously so the dispatcher only
// marks rows that the broker acknowledged.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		Logger:       kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Debug(fmt.Sprintf(msg, args...)) }),
		ErrorLogger:  kafka.LoggerFunc(func(msg string, args ...interface{}) { logger.Error(fmt.Sprintf(msg, args...)) }),
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// Publish keys every message by account so events of one account keep their
// order within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, kafka.Message{
			Key:   []byte(m.Key),
			Value: m.Payload,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(m.Type)},
			},
		})
	}

	produceCtx, cancel := context.WithTimeout(ctx, p.writer.WriteTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(produceCtx, out...); err != nil {
		return fmt.Errorf("failed to produce %d messages to Kafka: %w", len(out), err)
	}
	p.logger.Debug("Ledger events produced to Kafka",
		zap.String("topic", p.writer.Topic),
		zap.Int("count", len(out)))
	return nil
}

func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	p.logger.Info("Kafka producer closed")
	return nil
}

// LogPublisher stands in for Kafka when no brokers are configured. Events are
// logged and then marked published.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, msgs ...Message) error {
	for _, m := range msgs {
		p.Logger.Info("ledger event",
			zap.String("event_type", m.Type),
			zap.String("key", m.Key),
			zap.ByteString("payload", m.Payload))
	}
	return nil
}

func (LogPublisher) Close() error { return nil }
