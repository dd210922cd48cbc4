package repository

import (
	"errors"
	"time"
)

var (
	ErrObjectNotFound = errors.New("not found")
	ErrDuplicateKey   = errors.New("duplicate key")
)

type Order struct {
	ID                   string    `db:"id"`
	OrderNumber          int64     `db:"order_number"`
	CustomerName         string    `db:"customer_name"`
	CustomerEmail        string    `db:"customer_email"`
	CustomerPhone        *string   `db:"customer_phone"`
	ProductName          string    `db:"product_name"`
	ProductURL           string    `db:"product_url"`
	PriceUSD             float64   `db:"price_usd"`
	ExchangeRate         float64   `db:"exchange_rate"`
	ServiceFeePercentage float64   `db:"service_fee_percentage"`
	TotalKwanza          float64   `db:"total_kwanza"`
	Status               string    `db:"status"`
	TrackingNumber       *string   `db:"tracking_number"`
	Notes                *string   `db:"notes"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

type HistoryEntry struct {
	ID        int64     `db:"id"`
	OrderID   string    `db:"order_id"`
	OldStatus *string   `db:"old_status"`
	NewStatus string    `db:"new_status"`
	ChangedAt time.Time `db:"changed_at"`
}

type Review struct {
	ID        string    `db:"id"`
	OrderID   string    `db:"order_id"`
	Rating    int       `db:"rating"`
	Comment   *string   `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ReviewDetail is a review joined with the order it rates.
type ReviewDetail struct {
	ID            string    `db:"id"`
	OrderID       string    `db:"order_id"`
	Rating        int       `db:"rating"`
	Comment       *string   `db:"comment"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
	OrderNumber   int64     `db:"order_number"`
	CustomerName  string    `db:"customer_name"`
	CustomerEmail string    `db:"customer_email"`
	ProductName   string    `db:"product_name"`
}

type OrderFilter struct {
	CustomerEmail string
}
