package order

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("order not found")
	ErrDuplicateReview = errors.New("order already has a review")
	ErrNotDelivered    = errors.New("order is not delivered yet")
	ErrReviewNotFound  = errors.New("review not found")
)

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
