package postgresql

import (
	"context"

	"github.com/kambaexpress/backoffice/internal/db"
	"github.com/kambaexpress/backoffice/internal/repository"
	"github.com/kambaexpress/backoffice/internal/storage"
)

type ReviewRepo struct {
	db db.DB
}

func NewReviewRepo(db db.DB) storage.ReviewRepository {
	return &ReviewRepo{db: db}
}

// CreateTx relies on the unique index on reviews.order_id; a second review
// for the same order comes back as repository.ErrDuplicateKey.
func (r *ReviewRepo) CreateTx(ctx context.Context, tx db.Tx, review *repository.Review) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO reviews (
            id, order_id, rating, comment, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6)
    `, review.ID, review.OrderID, review.Rating, review.Comment, review.CreatedAt, review.UpdatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateKey
	}
	return err
}

func (r *ReviewRepo) GetByOrderID(ctx context.Context, orderID string) (*repository.Review, error) {
	var review repository.Review
	err := r.db.Get(ctx, &review, `
        SELECT id, order_id, rating, comment, created_at, updated_at
        FROM reviews
        WHERE order_id = $1
    `, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &review, nil
}

// List returns every review newest first, with the order it belongs to.
func (r *ReviewRepo) List(ctx context.Context) ([]*repository.ReviewDetail, error) {
	var reviews []*repository.ReviewDetail
	err := r.db.Select(ctx, &reviews, `
        SELECT r.id, r.order_id, r.rating, r.comment, r.created_at, r.updated_at,
               o.order_number, o.customer_name, o.customer_email, o.product_name
        FROM reviews r
        JOIN orders o ON o.id = r.order_id
        ORDER BY r.created_at DESC
    `)
	return reviews, err
}
