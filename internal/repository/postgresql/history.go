package postgresql

import (
	"context"

	"github.com/kambaexpress/backoffice/internal/db"
	"github.com/kambaexpress/backoffice/internal/repository"
	"github.com/kambaexpress/backoffice/internal/storage"
)

type HistoryRepo struct {
	db db.DB
}

func NewHistoryRepo(db db.DB) storage.HistoryRepository {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) CreateTx(ctx context.Context, tx db.Tx, entry *repository.HistoryEntry) error {
	return tx.Get(ctx, &entry.ID, `
        INSERT INTO order_history (
            order_id, old_status, new_status, changed_at
        ) VALUES ($1, $2, $3, $4)
        RETURNING id
    `, entry.OrderID, entry.OldStatus, entry.NewStatus, entry.ChangedAt)
}

// GetByOrderID returns the ledger of one order, oldest first.
func (r *HistoryRepo) GetByOrderID(ctx context.Context, orderID string) ([]*repository.HistoryEntry, error) {
	var entries []*repository.HistoryEntry
	err := r.db.Select(ctx, &entries, `
        SELECT id, order_id, old_status, new_status, changed_at
        FROM order_history
        WHERE order_id = $1
        ORDER BY changed_at ASC, id ASC
    `, orderID)
	return entries, err
}

// ListRecent returns the latest entries across all orders, newest first.
func (r *HistoryRepo) ListRecent(ctx context.Context, limit int) ([]*repository.HistoryEntry, error) {
	var entries []*repository.HistoryEntry
	err := r.db.Select(ctx, &entries, `
        SELECT id, order_id, old_status, new_status, changed_at
        FROM order_history
        ORDER BY changed_at DESC, id DESC
        LIMIT $1
    `, limit)
	return entries, err
}
