package postgresql

import (
	"context"
	"fmt"

	"github.com/kambaexpress/backoffice/internal/db"
	"github.com/kambaexpress/backoffice/internal/repository"
	"github.com/kambaexpress/backoffice/internal/storage"
)

const orderColumns = `id, order_number, customer_name, customer_email, customer_phone,
            product_name, product_url, price_usd, exchange_rate, service_fee_percentage,
            total_kwanza, status, tracking_number, notes, created_at, updated_at`

type OrderRepo struct {
	db db.DB
}

func NewOrderRepo(db db.DB) storage.OrderRepository {
	return &OrderRepo{db: db}
}

// CreateTx inserts the order and fills in the order number assigned by the sequence.
func (r *OrderRepo) CreateTx(ctx context.Context, tx db.Tx, order *repository.Order) error {
	return tx.Get(ctx, &order.OrderNumber, `
        INSERT INTO orders (
            id, customer_name, customer_email, customer_phone, product_name, product_url,
            price_usd, exchange_rate, service_fee_percentage, total_kwanza, status,
            tracking_number, notes, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
        RETURNING order_number
    `, order.ID, order.CustomerName, order.CustomerEmail, order.CustomerPhone, order.ProductName, order.ProductURL,
		order.PriceUSD, order.ExchangeRate, order.ServiceFeePercentage, order.TotalKwanza, order.Status,
		order.TrackingNumber, order.Notes, order.CreatedAt, order.UpdatedAt)
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*repository.Order, error) {
	var order repository.Order
	err := r.db.Get(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepo) GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.Order, error) {
	var order repository.Order
	err := tx.Get(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &order, nil
}

// UpdateTx writes the mutable fields. Pricing and customer data are a snapshot
// taken at creation and are not touched here.
func (r *OrderRepo) UpdateTx(ctx context.Context, tx db.Tx, order *repository.Order) error {
	tag, err := tx.Exec(ctx, `
        UPDATE orders
        SET
            status = $1,
            tracking_number = $2,
            notes = $3,
            updated_at = $4
        WHERE id = $5
    `, order.Status, order.TrackingNumber, order.Notes, order.UpdatedAt, order.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

// List returns orders newest first, optionally only those of one customer.
func (r *OrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]*repository.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders"
	var args []interface{}

	if filter.CustomerEmail != "" {
		query += " WHERE customer_email = $1"
		args = append(args, filter.CustomerEmail)
	}

	query += " ORDER BY created_at DESC"

	var orders []*repository.Order
	if err := r.db.Select(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
