package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/realtime"
)

type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type EventSink interface {
	Publish(ev realtime.ChangeEvent)
}

// Consumer reads change events from Kafka and hands them to a sink.
type Consumer struct {
	reader       MessageReader
	sink         EventSink
	logger       *zap.Logger
	retryBackoff time.Duration
}

func NewReader(cfg ConsumerConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        time.Second,
	})
}

func NewConsumer(reader MessageReader, sink EventSink, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:       reader,
		sink:         sink,
		logger:       logger,
		retryBackoff: 5 * time.Second,
	}
}

// Run consumes until ctx is cancelled and then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Error("Failed to close Kafka reader", zap.Error(err))
		}
	}()

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Change consumer stopping")
				return nil
			}
			c.logger.Error("Failed to read change event", zap.Error(err))
			select {
			case <-time.After(c.retryBackoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		var ev realtime.ChangeEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.logger.Warn("Skipping malformed change event",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
			continue
		}
		c.sink.Publish(ev)
	}
}
