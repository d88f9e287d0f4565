package services

import (
	"context"
	"fmt"
	"log"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/metrics"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ReviewService records product reviews.
type ReviewService struct {
	reviews  ReviewStore
	products ProductStore
	metrics  *metrics.AppMetrics
}

func NewReviewService(reviews ReviewStore, products ProductStore, m *metrics.AppMetrics) *ReviewService {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &ReviewService{reviews: reviews, products: products, metrics: m}
}

func (s *ReviewService) requireProduct(ctx context.Context, productID int32) error {
	_, found, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}
	if !found {
		return apperrors.NotFound("Product not found")
	}
	return nil
}

// AddReview stores a review by userID. It is marked as a verified purchase
// when the user has a live order containing the product.
func (s *ReviewService) AddReview(ctx context.Context, userID, productID int32, rating int, title, comment string) (int32, error) {
	r, err := models.NewReview(productID, userID, rating, title, comment)
	if err != nil {
		return 0, err
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return 0, err
	}
	if r.IsVerifiedPurchase, err = s.reviews.HasPurchased(ctx, userID, productID); err != nil {
		return 0, fmt.Errorf("failed to check purchases: %w", err)
	}

	id, err := s.reviews.Create(ctx, r)
	if err != nil {
		return 0, err
	}
	s.metrics.ReviewsCreated.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Int("rating", rating),
		attribute.Bool("verified_purchase", r.IsVerifiedPurchase),
	})...))
	log.Printf("[REVIEW] Review created: review_id=%d, product_id=%d, rating=%d", id, productID, rating)
	return id, nil
}

// ListReviews returns a product's reviews, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, productID int32) ([]models.Review, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.reviews.FindByProduct(ctx, productID)
}

// RatingSummary returns the average rating and review count of a product.
func (s *ReviewService) RatingSummary(ctx context.Context, productID int32) (models.RatingSummary, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return models.RatingSummary{}, err
	}
	return s.reviews.AverageRating(ctx, productID)
}
