package order

import (
	"strconv"
	"strings"
)

// Filter narrows the staff order list. Zero values match everything.
type Filter struct {
	Status Status
	// Query matches the order number, customer name or email and product
	// name, ignoring case.
	Query string
}

func (f Filter) Match(o Order) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	q := normalizeQuery(f.Query)
	if q == "" {
		return true
	}
	return strings.Contains(strconv.FormatInt(o.OrderNumber, 10), q) ||
		containsFold(o.CustomerName, q) ||
		containsFold(o.CustomerEmail, q) ||
		containsFold(o.ProductName, q)
}

func (f Filter) Apply(orders []Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		if f.Match(o) {
			out = append(out, o)
		}
	}
	return out
}

// ReviewFilter narrows the staff review list. A zero Rating matches any.
type ReviewFilter struct {
	Rating int
	// Query matches the order number, customer name, product name or the
	// comment, ignoring case.
	Query string
}

func (f ReviewFilter) Validate() error {
	if f.Rating != 0 && (f.Rating < MinRating || f.Rating > MaxRating) {
		return &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	return nil
}

func (f ReviewFilter) Match(r ReviewDetail) bool {
	if f.Rating != 0 && r.Rating != f.Rating {
		return false
	}
	q := normalizeQuery(f.Query)
	if q == "" {
		return true
	}
	return strings.Contains(strconv.FormatInt(r.Order.OrderNumber, 10), q) ||
		containsFold(r.Order.CustomerName, q) ||
		containsFold(r.Order.ProductName, q) ||
		(r.Comment != nil && containsFold(*r.Comment, q))
}

func (f ReviewFilter) Apply(reviews []ReviewDetail) []ReviewDetail {
	out := make([]ReviewDetail, 0, len(reviews))
	for _, r := range reviews {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// normalizeQuery lowercases q and drops a leading "#" so "#12" finds order 12.
func normalizeQuery(q string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(q)), "#")
}

func containsFold(s, lowerQ string) bool {
	return strings.Contains(strings.ToLower(s), lowerQ)
}
