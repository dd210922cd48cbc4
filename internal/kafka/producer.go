//go:generate mockgen -source ./producer.go -destination=./mocks/producer.go -package=mock_kafka
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/realtime"
)

type Producer interface {
	SendMessage(ctx context.Context, topic string, key []byte, value []byte) error
	Close() error
}

type KafkaProducer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaProducer writes to any topic named per message. Messages with the
// same key land on the same partition.
func NewKafkaProducer(brokers []string, logger *zap.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 10 * time.Millisecond,
		},
		logger: logger,
	}
}

func (p *KafkaProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

func (p *KafkaProducer) Close() error {
	p.logger.Info("Closing Kafka producer")
	return p.writer.Close()
}

// LoopbackProducer hands change events straight to an in-process sink.
// Used when no brokers are configured.
type LoopbackProducer struct {
	sink   EventSink
	logger *zap.Logger
}

func NewLoopbackProducer(sink EventSink, logger *zap.Logger) *LoopbackProducer {
	return &LoopbackProducer{sink: sink, logger: logger}
}

func (p *LoopbackProducer) SendMessage(ctx context.Context, topic string, key []byte, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var ev realtime.ChangeEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return fmt.Errorf("failed to decode change event: %w", err)
	}
	p.logger.Debug("Change event",
		zap.String("topic", topic),
		zap.ByteString("key", key),
		zap.String("table", string(ev.Table)))
	p.sink.Publish(ev)
	return nil
}

func (p *LoopbackProducer) Close() error {
	return nil
}
