// Package order holds the order lifecycle: the status machine, pricing,
// reviews and the timeline projection used by customer views.
package order

import (
	"net/mail"
	"net/url"
	"strings"
	"time"
)

type Order struct {
	ID                   string    `json:"id"`
	OrderNumber          int64     `json:"order_number"`
	CustomerName         string    `json:"customer_name"`
	CustomerEmail        string    `json:"customer_email"`
	CustomerPhone        *string   `json:"customer_phone,omitempty"`
	ProductName          string    `json:"product_name"`
	ProductURL           string    `json:"product_url"`
	PriceUSD             float64   `json:"price_usd"`
	ExchangeRate         float64   `json:"exchange_rate"`
	ServiceFeePercentage float64   `json:"service_fee_percentage"`
	TotalKwanza          float64   `json:"total_kwanza"`
	Status               Status    `json:"status"`
	TrackingNumber       *string   `json:"tracking_number,omitempty"`
	Notes                *string   `json:"notes,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type HistoryEntry struct {
	ID        int64     `json:"id,omitempty"`
	OrderID   string    `json:"order_id"`
	OldStatus *Status   `json:"old_status"`
	NewStatus Status    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

// Draft is what staff fill in when registering an order.
// Zero exchange rate or fee fall back to the defaults.
type Draft struct {
	CustomerName         string  `json:"customer_name"`
	CustomerEmail        string  `json:"customer_email"`
	CustomerPhone        *string `json:"customer_phone"`
	ProductName          string  `json:"product_name"`
	ProductURL           string  `json:"product_url"`
	PriceUSD             float64 `json:"price_usd"`
	ExchangeRate         float64 `json:"exchange_rate"`
	ServiceFeePercentage float64 `json:"service_fee_percentage"`
	Notes                *string `json:"notes"`
}

// Update carries the mutable fields of an order. Nil fields are left alone.
type Update struct {
	Status         *Status `json:"status"`
	TrackingNumber *string `json:"tracking_number"`
	Notes          *string `json:"notes"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.CustomerName) == "" {
		return &ValidationError{Field: "customer_name", Reason: "is required"}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(d.CustomerEmail)); err != nil {
		return &ValidationError{Field: "customer_email", Reason: "is not a valid address"}
	}
	if strings.TrimSpace(d.ProductName) == "" {
		return &ValidationError{Field: "product_name", Reason: "is required"}
	}
	u, err := url.Parse(strings.TrimSpace(d.ProductURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "product_url", Reason: "must be an http(s) link"}
	}
	return nil
}

// New builds a priced order in pending_payment together with its first
// history entry.
func New(id string, d Draft, now time.Time) (*Order, HistoryEntry, error) {
	if err := d.Validate(); err != nil {
		return nil, HistoryEntry{}, err
	}

	rate := d.ExchangeRate
	if rate == 0 {
		rate = DefaultExchangeRate
	}
	fee := d.ServiceFeePercentage
	if fee == 0 {
		fee = DefaultFeePercentage
	}

	price, rate, fee, quote, err := snapshotPricing(d.PriceUSD, rate, fee)
	if err != nil {
		return nil, HistoryEntry{}, err
	}

	o := &Order{
		ID:                   id,
		CustomerName:         strings.TrimSpace(d.CustomerName),
		CustomerEmail:        NormalizeEmail(d.CustomerEmail),
		CustomerPhone:        trimmed(d.CustomerPhone),
		ProductName:          strings.TrimSpace(d.ProductName),
		ProductURL:           strings.TrimSpace(d.ProductURL),
		PriceUSD:             price,
		ExchangeRate:         rate,
		ServiceFeePercentage: fee,
		TotalKwanza:          quote.Total,
		Status:               StatusPendingPayment,
		Notes:                trimmed(d.Notes),
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	return o, HistoryEntry{
		OrderID:   id,
		NewStatus: StatusPendingPayment,
		ChangedAt: now,
	}, nil
}

// Transition moves o to next. Any recognized status is reachable from any
// other, including out of cancelled. Returns nil when the status is unchanged.
func Transition(o *Order, next Status, at time.Time) (*HistoryEntry, error) {
	if !next.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status " + string(next)}
	}
	if o.Status == next {
		return nil, nil
	}

	old := o.Status
	o.Status = next
	o.UpdatedAt = at

	return &HistoryEntry{
		OrderID:   o.ID,
		OldStatus: &old,
		NewStatus: next,
		ChangedAt: at,
	}, nil
}

// Apply writes u onto o and returns the history entry for a status change, if any.
func Apply(o *Order, u Update, at time.Time) (*HistoryEntry, error) {
	var entry *HistoryEntry
	if u.Status != nil {
		e, err := Transition(o, *u.Status, at)
		if err != nil {
			return nil, err
		}
		entry = e
	}
	if u.TrackingNumber != nil {
		o.TrackingNumber = trimmed(u.TrackingNumber)
	}
	if u.Notes != nil {
		o.Notes = trimmed(u.Notes)
	}
	o.UpdatedAt = at
	return entry, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
