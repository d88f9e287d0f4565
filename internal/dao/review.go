package dao

import (
	"context"
	"fmt"

	"github.com/SigNoz/ecommerce-rest-api/internal/db"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
)

const (
	reviewsByProductQuery = "SELECT * FROM reviews WHERE product_id = ? ORDER BY created_at DESC, review_id DESC"
	insertReviewQuery     = "INSERT INTO reviews (product_id, user_id, rating, title, comment, is_verified_purchase) VALUES (?, ?, ?, ?, ?, ?)"
	hasPurchasedQuery     = "SELECT COUNT(*) AS purchases FROM order_items oi JOIN orders o ON oi.order_id = o.order_id WHERE o.user_id = ? AND oi.product_id = ? AND o.order_status <> 'CANCELLED'"
	averageRatingQuery    = "SELECT AVG(rating) AS average, COUNT(*) AS total FROM reviews WHERE product_id = ?"
)

// ReviewDAO persists product reviews.
type ReviewDAO struct {
	db *db.DB
}

func NewReviewDAO(database *db.DB) *ReviewDAO {
	return &ReviewDAO{db: database}
}

func mapReview(r *db.Row) (models.Review, error) {
	rv := models.Review{
		ID:                 r.Int32("review_id"),
		ProductID:          r.Int32("product_id"),
		UserID:             r.Int32("user_id"),
		Rating:             r.Int("rating"),
		Title:              r.String("title"),
		Comment:            r.String("comment"),
		CreatedAt:          models.NewTimestamp(r.Time("created_at")),
		IsVerifiedPurchase: r.Bool("is_verified_purchase"),
	}
	return rv, r.Err()
}

func (d *ReviewDAO) Create(ctx context.Context, rv models.Review) (int32, error) {
	if err := models.ValidateRating(rv.Rating); err != nil {
		return 0, err
	}
	id, err := db.ExecuteInsert(ctx, d.db, insertReviewQuery,
		rv.ProductID, rv.UserID, rv.Rating, rv.Title, rv.Comment, rv.IsVerifiedPurchase)
	if err != nil {
		return 0, fmt.Errorf("create review: %w", err)
	}
	return id, nil
}

// FindByProduct returns a product's reviews, newest first.
func (d *ReviewDAO) FindByProduct(ctx context.Context, productID int32) ([]models.Review, error) {
	return db.QueryMany(ctx, d.db, reviewsByProductQuery, mapReview, productID)
}

// HasPurchased reports whether the user has a non-cancelled order containing the product.
func (d *ReviewDAO) HasPurchased(ctx context.Context, userID, productID int32) (bool, error) {
	count, _, err := db.QueryOne(ctx, d.db, hasPurchasedQuery, func(r *db.Row) (int64, error) {
		return r.Int64("purchases"), r.Err()
	}, userID, productID)
	return count > 0, err
}

// AverageRating returns the mean rating rounded to two places; zero when
// the product has no reviews.
func (d *ReviewDAO) AverageRating(ctx context.Context, productID int32) (models.RatingSummary, error) {
	summary, _, err := db.QueryOne(ctx, d.db, averageRatingQuery, func(r *db.Row) (models.RatingSummary, error) {
		return models.RatingSummary{
			Average: r.Decimal("average").Round(2),
			Count:   r.Int("total"),
		}, r.Err()
	}, productID)
	summary.ProductID = productID
	return summary, err
}
