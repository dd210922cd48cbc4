package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kambaexpress/backoffice/internal/cache"
	"github.com/kambaexpress/backoffice/internal/config"
	"github.com/kambaexpress/backoffice/internal/db"
	"github.com/kambaexpress/backoffice/internal/kafka"
	"github.com/kambaexpress/backoffice/internal/logger"
	"github.com/kambaexpress/backoffice/internal/realtime"
	"github.com/kambaexpress/backoffice/internal/repository/postgresql"
	"github.com/kambaexpress/backoffice/internal/server"
	"github.com/kambaexpress/backoffice/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	envFile := config.LoadEnv()
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.New("info").Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()
	if envFile != "" {
		log.Info("Loaded environment file", zap.String("path", envFile))
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration", zap.Error(err))
	}
	loc, _ := cfg.Location()

	dbPool, err := db.NewDb(ctx, cfg.DB)
	if err != nil {
		log.Fatal("Database init error", zap.Error(err))
	}
	defer dbPool.Close()

	userRepo := postgresql.NewUserRepo(dbPool)
	if err := storage.EnsureAdmin(ctx, userRepo, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, log); err != nil {
		log.Fatal("Failed to provision staff account", zap.Error(err))
	}

	outboxRepo := postgresql.NewOutboxTaskRepo()
	stg := storage.NewPostgresStorage(dbPool, storage.Repositories{
		Orders:  postgresql.NewOrderRepo(dbPool),
		History: postgresql.NewHistoryRepo(dbPool),
		Reviews: postgresql.NewReviewRepo(dbPool),
		Outbox:  outboxRepo,
	}, cfg.Kafka.Topic, log.Named("storage"))

	broker := realtime.NewBroker(0, log.Named("realtime"))
	defer broker.Close()

	orderCache := cache.NewOrderCache(stg, log.Named("cache"))

	var producer kafka.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = kafka.NewKafkaProducer(cfg.Kafka.Brokers, log.Named("kafka"))
	} else {
		log.Warn("No Kafka brokers configured, change events stay in process")
		producer = kafka.NewLoopbackProducer(broker, log.Named("kafka"))
	}
	publisher := kafka.NewPublisher(dbPool, outboxRepo, producer, cfg.Kafka.Publisher, log.Named("outbox"))
	defer publisher.Shutdown()

	srv := server.New(stg, userRepo, orderCache, dbPool, server.Config{
		Port:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		JWTSecret:       []byte(cfg.Auth.JWTSecret),
		Estimator:       cfg.Estimator,
		Location:        loc,
	}, log.Named("http"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return publisher.Run(gctx) })
	g.Go(func() error { return orderCache.Watch(gctx, broker) })
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := kafka.NewConsumer(kafka.NewReader(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   cfg.Kafka.Topic,
		}), broker, log.Named("consumer"))
		g.Go(func() error { return consumer.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		log.Error("Service stopped with error", zap.Error(err))
		return
	}
	log.Info("Service gracefully stopped")
}
