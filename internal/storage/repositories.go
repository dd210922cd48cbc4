//go:generate mockgen -source ./repositories.go -destination=./mocks/repositories.go -package=mock_storage
//go:generate mockgen -source ./outbox.go -destination=./mocks/outbox.go -package=mock_storage
package storage

import (
	"context"

	"github.com/kambaexpress/backoffice/internal/db"
	"github.com/kambaexpress/backoffice/internal/repository"
)

type OrderRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, order *repository.Order) error
	GetByID(ctx context.Context, id string) (*repository.Order, error)
	GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.Order, error)
	UpdateTx(ctx context.Context, tx db.Tx, order *repository.Order) error
	List(ctx context.Context, filter repository.OrderFilter) ([]*repository.Order, error)
}

type HistoryRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, entry *repository.HistoryEntry) error
	GetByOrderID(ctx context.Context, orderID string) ([]*repository.HistoryEntry, error)
	ListRecent(ctx context.Context, limit int) ([]*repository.HistoryEntry, error)
}

type ReviewRepository interface {
	CreateTx(ctx context.Context, tx db.Tx, review *repository.Review) error
	GetByOrderID(ctx context.Context, orderID string) (*repository.Review, error)
	List(ctx context.Context) ([]*repository.ReviewDetail, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, username, password string) error
	Exists(ctx context.Context, username string) (bool, error)
	ValidateUser(ctx context.Context, username, password string) (bool, error)
}
