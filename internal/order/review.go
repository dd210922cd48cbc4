package order

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500
)

type Review struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewedOrder is the part of an order shown next to its review.
type ReviewedOrder struct {
	OrderNumber   int64  `json:"order_number"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	ProductName   string `json:"product_name"`
}

// ReviewDetail is a review as staff list it.
type ReviewDetail struct {
	Review
	Order ReviewedOrder `json:"order"`
}

var ratingLabels = map[int]string{
	1: "Muito ruim",
	2: "Ruim",
	3: "Regular",
	4: "Bom",
	5: "Excelente",
}

// RatingLabel is the display name of a star rating, empty when out of range.
func RatingLabel(rating int) string {
	return ratingLabels[rating]
}

// NewReview checks the rating and comment and that the order was delivered.
func NewReview(id string, o *Order, rating int, comment string, now time.Time) (*Review, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		return nil, &ValidationError{Field: "comment", Reason: "must be at most 500 characters"}
	}
	if o.Status != StatusDelivered {
		return nil, ErrNotDelivered
	}

	r := &Review{
		ID:        id,
		OrderID:   o.ID,
		Rating:    rating,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if comment != "" {
		r.Comment = &comment
	}
	return r, nil
}
