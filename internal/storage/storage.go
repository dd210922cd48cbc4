package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/db"
	"github.com/kambaexpress/backoffice/internal/metrics"
	"github.com/kambaexpress/backoffice/internal/order"
	"github.com/kambaexpress/backoffice/internal/realtime"
	"github.com/kambaexpress/backoffice/internal/repository"
)

const DefaultRecentHistoryLimit = 20

type Repositories struct {
	Orders  OrderRepository
	History HistoryRepository
	Reviews ReviewRepository
	Outbox  OutboxTaskRepository
}

// PostgresStorage runs the order operations. Each write is one transaction
// covering the row, its history entry and the outbox change events.
type PostgresStorage struct {
	db          db.DB
	orderRepo   OrderRepository
	historyRepo HistoryRepository
	reviewRepo  ReviewRepository
	outboxRepo  OutboxTaskRepository
	topic       string
	logger      *zap.Logger

	timeNow func() time.Time
	newID   func() string
}

func NewPostgresStorage(database db.DB, repos Repositories, topic string, logger *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:          database,
		orderRepo:   repos.Orders,
		historyRepo: repos.History,
		reviewRepo:  repos.Reviews,
		outboxRepo:  repos.Outbox,
		topic:       topic,
		logger:      logger,
		timeNow:     func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}

func (s *PostgresStorage) CreateOrder(ctx context.Context, draft order.Draft) (*order.Order, error) {
	now := s.timeNow()
	o, entry, err := order.New(s.newID(), draft, now)
	if err != nil {
		return nil, err
	}

	err = db.WithTx(ctx, s.db, func(tx db.Tx) error {
		row := toRepoOrder(o)
		if err := s.orderRepo.CreateTx(ctx, tx, row); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		o.OrderNumber = row.OrderNumber

		if err := s.enqueue(ctx, tx, realtime.TableOrders, realtime.EventInsert, o.ID, o, o); err != nil {
			return err
		}
		return s.appendHistory(ctx, tx, &entry, o)
	})
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("create_order").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	metrics.OrdersCreatedTotal.Inc()
	metrics.StatusTransitionsTotal.WithLabelValues(string(o.Status)).Inc()
	s.logger.Info("Order created",
		zap.String("order_id", o.ID),
		zap.Int64("order_number", o.OrderNumber),
		zap.Float64("total_kwanza", o.TotalKwanza))
	return o, nil
}

func (s *PostgresStorage) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	row, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return fromRepoOrder(row), nil
}

// GetCustomerOrder answers not found for orders owned by someone else.
func (s *PostgresStorage) GetCustomerOrder(ctx context.Context, id, email string) (*order.Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.CustomerEmail != order.NormalizeEmail(email) {
		return nil, order.ErrNotFound
	}
	return o, nil
}

// ListOrders returns orders newest first. An empty email lists everything.
func (s *PostgresStorage) ListOrders(ctx context.Context, email string) ([]order.Order, error) {
	rows, err := s.orderRepo.List(ctx, repository.OrderFilter{CustomerEmail: order.NormalizeEmail(email)})
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders := make([]order.Order, 0, len(rows))
	for _, row := range rows {
		orders = append(orders, *fromRepoOrder(row))
	}
	return orders, nil
}

func (s *PostgresStorage) UpdateOrder(ctx context.Context, id string, u order.Update) (*order.Order, error) {
	var (
		updated *order.Order
		entry   *order.HistoryEntry
	)
	err := db.WithTx(ctx, s.db, func(tx db.Tx) error {
		row, err := s.orderRepo.GetByIDTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repository.ErrObjectNotFound) {
				return order.ErrNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}

		o := fromRepoOrder(row)
		entry, err = order.Apply(o, u, s.timeNow())
		if err != nil {
			return err
		}

		if err := s.orderRepo.UpdateTx(ctx, tx, toRepoOrder(o)); err != nil {
			if errors.Is(err, repository.ErrObjectNotFound) {
				return order.ErrNotFound
			}
			return fmt.Errorf("failed to update order: %w", err)
		}
		if err := s.enqueue(ctx, tx, realtime.TableOrders, realtime.EventUpdate, o.ID, o, o); err != nil {
			return err
		}
		if entry != nil {
			if err := s.appendHistory(ctx, tx, entry, o); err != nil {
				return err
			}
		}
		updated = o
		return nil
	})
	if err != nil {
		if !order.IsValidation(err) && !errors.Is(err, order.ErrNotFound) {
			metrics.OperationErrorsTotal.WithLabelValues("update_order").Inc()
		}
		return nil, err
	}

	if entry != nil {
		s.recordTransition(entry)
	}
	return updated, nil
}

func (s *PostgresStorage) recordTransition(entry *order.HistoryEntry) {
	metrics.StatusTransitionsTotal.WithLabelValues(string(entry.NewStatus)).Inc()
	if entry.OldStatus == nil || order.IsForward(*entry.OldStatus, entry.NewStatus) {
		s.logger.Info("Order status changed",
			zap.String("order_id", entry.OrderID),
			zap.Stringp("from", (*string)(entry.OldStatus)),
			zap.String("to", string(entry.NewStatus)))
		return
	}
	metrics.StatusRegressionsTotal.Inc()
	s.logger.Warn("Order status moved backwards",
		zap.String("order_id", entry.OrderID),
		zap.String("from", string(*entry.OldStatus)),
		zap.String("to", string(entry.NewStatus)))
}

// GetOrderHistory returns the ledger oldest first.
func (s *PostgresStorage) GetOrderHistory(ctx context.Context, orderID string) ([]order.HistoryEntry, error) {
	if _, err := s.GetOrder(ctx, orderID); err != nil {
		return nil, err
	}
	rows, err := s.historyRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}
	return convertHistory(rows), nil
}

// ListRecentHistory returns the latest status changes across all orders.
func (s *PostgresStorage) ListRecentHistory(ctx context.Context, limit int) ([]order.HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentHistoryLimit
	}
	rows, err := s.historyRepo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent history: %w", err)
	}
	return convertHistory(rows), nil
}

func convertHistory(rows []*repository.HistoryEntry) []order.HistoryEntry {
	entries := make([]order.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, fromRepoHistory(row))
	}
	return entries
}

// SubmitReview records the customer's review of a delivered order they own.
func (s *PostgresStorage) SubmitReview(ctx context.Context, orderID, email string, rating int, comment string) (*order.Review, error) {
	var review *order.Review
	err := db.WithTx(ctx, s.db, func(tx db.Tx) error {
		row, err := s.orderRepo.GetByIDTx(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, repository.ErrObjectNotFound) {
				return order.ErrNotFound
			}
			return fmt.Errorf("failed to lock order: %w", err)
		}
		o := fromRepoOrder(row)
		if o.CustomerEmail != order.NormalizeEmail(email) {
			return order.ErrNotFound
		}

		review, err = order.NewReview(s.newID(), o, rating, comment, s.timeNow())
		if err != nil {
			return err
		}
		if err := s.reviewRepo.CreateTx(ctx, tx, toRepoReview(review)); err != nil {
			if errors.Is(err, repository.ErrDuplicateKey) {
				return order.ErrDuplicateReview
			}
			return fmt.Errorf("failed to insert review: %w", err)
		}
		return s.enqueue(ctx, tx, realtime.TableReviews, realtime.EventInsert, review.ID, o, review)
	})
	if err != nil {
		return nil, err
	}

	metrics.ReviewsSubmittedTotal.Inc()
	s.logger.Info("Review submitted",
		zap.String("order_id", orderID),
		zap.Int("rating", rating))
	return review, nil
}

func (s *PostgresStorage) GetReview(ctx context.Context, orderID string) (*order.Review, error) {
	row, err := s.reviewRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, order.ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return fromRepoReview(row), nil
}

// ListReviews returns every review newest first with its order details.
func (s *PostgresStorage) ListReviews(ctx context.Context) ([]order.ReviewDetail, error) {
	rows, err := s.reviewRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	reviews := make([]order.ReviewDetail, 0, len(rows))
	for _, row := range rows {
		reviews = append(reviews, fromRepoReviewDetail(row))
	}
	return reviews, nil
}

func (s *PostgresStorage) appendHistory(ctx context.Context, tx db.Tx, entry *order.HistoryEntry, o *order.Order) error {
	row := toRepoHistory(entry)
	if err := s.historyRepo.CreateTx(ctx, tx, row); err != nil {
		return fmt.Errorf("failed to add order history entry: %w", err)
	}
	entry.ID = row.ID
	return s.enqueue(ctx, tx, realtime.TableHistory, realtime.EventInsert, fmt.Sprint(row.ID), o, entry)
}

func (s *PostgresStorage) enqueue(ctx context.Context, tx db.Tx, table realtime.Table, typ realtime.EventType, recordID string, o *order.Order, record any) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", table, err)
	}
	event := realtime.ChangeEvent{
		ID:            s.newID(),
		Table:         table,
		Type:          typ,
		RecordID:      recordID,
		OrderID:       o.ID,
		CustomerEmail: o.CustomerEmail,
		OccurredAt:    s.timeNow(),
		Payload:       payload,
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	task := &repository.OutboxTask{
		Payload:    body,
		Topic:      s.topic,
		MessageKey: o.ID,
	}
	if err := s.outboxRepo.CreateTx(ctx, tx, task); err != nil {
		return fmt.Errorf("failed to enqueue %s event: %w", table, err)
	}
	return nil
}
