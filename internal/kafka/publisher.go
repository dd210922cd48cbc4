package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/db"
	"github.com/kambaexpress/backoffice/internal/metrics"
	"github.com/kambaexpress/backoffice/internal/repository"
	"github.com/kambaexpress/backoffice/internal/storage"
)

type PublisherConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	MaxAttempts  int           `yaml:"max_attempts"`
	// LeaseTimeout is how long a task may stay PROCESSING before another
	// poll reclaims it.
	LeaseTimeout time.Duration `yaml:"lease_timeout"`
}

const (
	defaultLeaseTimeout = time.Minute
	releaseTimeout      = 5 * time.Second
)

var errShutdown = errors.New("publisher shutdown during batch processing")

// Publisher drains the outbox into the producer.
type Publisher struct {
	db             db.DB
	repo           storage.OutboxTaskRepository
	producer       Producer
	config         PublisherConfig
	logger         *zap.Logger
	wg             sync.WaitGroup
	shutdownSignal chan struct{}
	stopOnce       sync.Once
	timeNow        func() time.Time
}

func NewPublisher(db db.DB, repo storage.OutboxTaskRepository, producer Producer, config PublisherConfig, logger *zap.Logger) *Publisher {
	if config.LeaseTimeout <= 0 {
		config.LeaseTimeout = defaultLeaseTimeout
	}
	return &Publisher{
		db:             db,
		repo:           repo,
		producer:       producer,
		config:         config,
		logger:         logger,
		shutdownSignal: make(chan struct{}),
		timeNow:        func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled or Shutdown is called.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("Starting outbox publisher",
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Int("batch_size", p.config.BatchSize))
	p.wg.Add(1)
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil && !errors.Is(err, errShutdown) && ctx.Err() == nil {
				p.logger.Error("Outbox publisher failed to process batch", zap.Error(err))
			}
		case <-p.shutdownSignal:
			p.logger.Info("Outbox publisher received shutdown signal, stopping")
			return nil
		case <-ctx.Done():
			p.logger.Info("Outbox publisher context cancelled, stopping")
			return nil
		}
	}
}

// Shutdown stops Run, waits for the current batch and closes the producer.
func (p *Publisher) Shutdown() {
	p.stopOnce.Do(func() {
		close(p.shutdownSignal)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			p.logger.Info("Outbox publisher shutdown complete")
		case <-shutdownCtx.Done():
			p.logger.Warn("Outbox publisher shutdown timed out")
		}

		if err := p.producer.Close(); err != nil {
			p.logger.Error("Failed to close producer", zap.Error(err))
		}
	})
}

func (p *Publisher) processBatch(ctx context.Context) error {
	var tasks []*repository.OutboxTask
	staleBefore := p.timeNow().Add(-p.config.LeaseTimeout)
	err := db.WithTx(ctx, p.db, func(tx db.Tx) error {
		var err error
		tasks, err = p.repo.GetProcessableTasksTx(ctx, tx, p.config.BatchSize, p.config.MaxAttempts, staleBefore)
		if err != nil {
			return fmt.Errorf("failed to get processable tasks: %w", err)
		}
		for _, task := range tasks {
			err := p.repo.UpdateTaskStatusTx(ctx, tx, task.ID, repository.TaskStatusProcessing, task.Attempts, nil, nil)
			if err != nil {
				return fmt.Errorf("failed to mark task %s as PROCESSING: %w", task.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	p.logger.Debug("Fetched outbox tasks", zap.Int("count", len(tasks)))

	for i, task := range tasks {
		select {
		case <-p.shutdownSignal:
			p.logger.Info("Shutdown during batch, releasing unsent tasks", zap.Int("count", len(tasks)-i))
			p.releaseTasks(ctx, tasks[i:])
			return errShutdown
		case <-ctx.Done():
			p.releaseTasks(ctx, tasks[i:])
			return ctx.Err()
		default:
		}

		if err := p.processSingleTask(ctx, task); err != nil {
			p.logger.Error("Failed to process outbox task", zap.Stringer("task_id", task.ID), zap.Error(err))
		}
	}
	return nil
}

func (p *Publisher) processSingleTask(ctx context.Context, task *repository.OutboxTask) error {
	key := []byte(task.MessageKey)
	if len(key) == 0 {
		key = []byte(task.ID.String())
	}

	err := p.producer.SendMessage(ctx, task.Topic, key, task.Payload)
	if err != nil && ctx.Err() != nil {
		p.releaseTasks(ctx, []*repository.OutboxTask{task})
		return err
	}

	// Status writes must land even if ctx is cancelled after the send.
	storeCtx := context.WithoutCancel(ctx)
	if err != nil {
		metrics.OutboxPublishedTotal.WithLabelValues("failed").Inc()
		newAttempts := task.Attempts + 1
		errMsg := err.Error()

		if newAttempts >= p.config.MaxAttempts {
			p.logger.Error("Outbox task reached max attempts, giving up",
				zap.Stringer("task_id", task.ID),
				zap.Int("attempts", newAttempts))
		}

		updateErr := p.repo.UpdateTaskStatus(storeCtx, p.db, task.ID, repository.TaskStatusFailed, newAttempts, &errMsg, nil)
		if updateErr != nil {
			return fmt.Errorf("failed to update task status after send failure: %w (send error: %v)", updateErr, err)
		}
		return err
	}

	metrics.OutboxPublishedTotal.WithLabelValues("done").Inc()
	now := p.timeNow()
	if err := p.repo.UpdateTaskStatus(storeCtx, p.db, task.ID, repository.TaskStatusDone, task.Attempts, nil, &now); err != nil {
		return fmt.Errorf("failed to update task status after successful send: %w", err)
	}
	return nil
}

// releaseTasks hands claimed but unsent tasks back to the next poll. It
// ignores cancellation of ctx; tasks it fails to release are reclaimed once
// their lease expires.
func (p *Publisher) releaseTasks(ctx context.Context, tasks []*repository.OutboxTask) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	for _, task := range tasks {
		status := task.Status
		if status == "" || status == repository.TaskStatusProcessing {
			status = repository.TaskStatusCreated
		}
		if err := p.repo.UpdateTaskStatus(ctx, p.db, task.ID, status, task.Attempts, task.LastError, nil); err != nil {
			p.logger.Warn("Failed to release outbox task, waiting for lease expiry",
				zap.Stringer("task_id", task.ID), zap.Error(err))
		}
	}
}
