package services

import (
	"context"
	"testing"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddReviewMarksVerifiedPurchases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.seedUser(t, "buyer")
	browser := f.seedUser(t, "browser")
	laptop := f.seedProduct(t, "Laptop", "999.99", 5)

	_, err := f.orders.PlaceOrder(ctx, buyer, placeRequest(OrderLine{ProductID: laptop, Quantity: 1}))
	require.NoError(t, err)

	_, err = f.reviews.AddReview(ctx, buyer, laptop, 5, "Great", "Fast and quiet")
	require.NoError(t, err)
	_, err = f.reviews.AddReview(ctx, browser, laptop, 4, "Nice", "Looks good in the shop")
	require.NoError(t, err)

	reviews, err := f.reviews.ListReviews(ctx, laptop)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	verified := map[int32]bool{}
	for _, r := range reviews {
		verified[r.UserID] = r.IsVerifiedPurchase
	}
	assert.True(t, verified[buyer])
	assert.False(t, verified[browser])

	summary, err := f.reviews.RatingSummary(ctx, laptop)
	require.NoError(t, err)
	assert.Equal(t, laptop, summary.ProductID)
	assert.Equal(t, 2, summary.Count)
	assert.True(t, summary.Average.Equal(decimal.RequireFromString("4.5")), summary.Average.String())
}

func TestCancelledOrderIsNotAPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	buyer := f.seedUser(t, "buyer")
	laptop := f.seedProduct(t, "Laptop", "999.99", 5)

	o, err := f.orders.PlaceOrder(ctx, buyer, placeRequest(OrderLine{ProductID: laptop, Quantity: 1}))
	require.NoError(t, err)
	_, err = f.orders.CancelOrder(ctx, o.ID)
	require.NoError(t, err)

	_, err = f.reviews.AddReview(ctx, buyer, laptop, 2, "Changed my mind", "")
	require.NoError(t, err)
	reviews, err := f.reviews.ListReviews(ctx, laptop)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.False(t, reviews[0].IsVerifiedPurchase)
}

func TestAddReviewValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t, "critic")
	laptop := f.seedProduct(t, "Laptop", "999.99", 0)

	_, err := f.reviews.AddReview(ctx, user, laptop, 6, "Too good", "")
	assert.True(t, apperrors.IsInvariant(err))
	assert.Equal(t, "Rating must be between 1 and 5", apperrors.PublicMessage(err))

	_, err = f.reviews.AddReview(ctx, user, 404, 3, "Missing", "")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.reviews.ListReviews(ctx, 404)
	assert.True(t, apperrors.IsNotFound(err))

	summary, err := f.reviews.RatingSummary(ctx, laptop)
	require.NoError(t, err)
	assert.Zero(t, summary.Count)
	assert.True(t, summary.Average.IsZero())
}
