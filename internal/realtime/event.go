// Package realtime fans change events out to in-process subscribers.
//
// Events reach the broker from the Kafka change consumer; readers such as the
// order snapshot cache subscribe with a Filter and refresh their views when a
// matching event arrives. There is no ordering guarantee across tables.
package realtime

import (
	"encoding/json"
	"time"
)

type Table string

const (
	TableOrders  Table = "orders"
	TableHistory Table = "order_history"
	TableReviews Table = "reviews"
)

type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

type ChangeEvent struct {
	ID            string          `json:"id"`
	Table         Table           `json:"table"`
	Type          EventType       `json:"type"`
	RecordID      string          `json:"record_id"`
	OrderID       string          `json:"order_id"`
	CustomerEmail string          `json:"customer_email,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// Filter selects events. Empty fields match everything.
type Filter struct {
	Tables        []Table
	Types         []EventType
	OrderID       string
	CustomerEmail string
}

func (f Filter) Match(ev ChangeEvent) bool {
	if len(f.Tables) > 0 && !contains(f.Tables, ev.Table) {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, ev.Type) {
		return false
	}
	if f.OrderID != "" && f.OrderID != ev.OrderID {
		return false
	}
	if f.CustomerEmail != "" && f.CustomerEmail != ev.CustomerEmail {
		return false
	}
	return true
}

func contains[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
