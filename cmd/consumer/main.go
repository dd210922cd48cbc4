package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/config"
	"github.com/kambaexpress/backoffice/internal/kafka"
	"github.com/kambaexpress/backoffice/internal/logger"
	"github.com/kambaexpress/backoffice/internal/realtime"
)

// logSink prints every change event that passes the filter.
type logSink struct {
	filter realtime.Filter
	logger *zap.Logger
}

func (s logSink) Publish(ev realtime.ChangeEvent) {
	if !s.filter.Match(ev) {
		return
	}
	s.logger.Info("Change event",
		zap.String("id", ev.ID),
		zap.String("table", string(ev.Table)),
		zap.String("type", string(ev.Type)),
		zap.String("record_id", ev.RecordID),
		zap.String("order_id", ev.OrderID),
		zap.Time("occurred_at", ev.OccurredAt),
		zap.ByteString("payload", ev.Payload))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	config.LoadEnv()
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.New("info").Fatal("Failed to load config", zap.Error(err))
	}
	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("KAFKA_BROKERS is not set")
	}

	filter := realtime.Filter{
		OrderID:       os.Getenv("WATCH_ORDER_ID"),
		CustomerEmail: os.Getenv("WATCH_CUSTOMER_EMAIL"),
	}
	if v := os.Getenv("WATCH_TABLES"); v != "" {
		for _, t := range strings.Split(v, ",") {
			filter.Tables = append(filter.Tables, realtime.Table(strings.TrimSpace(t)))
		}
	}

	// A separate group so tailing never steals partitions from the service.
	reader := kafka.NewReader(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID + "-tail",
		Topic:   cfg.Kafka.Topic,
	})

	log.Info("Tailing change events",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic))

	if err := kafka.NewConsumer(reader, logSink{filter: filter, logger: log}, log).Run(ctx); err != nil {
		log.Error("Consumer stopped with error", zap.Error(err))
	}
}
