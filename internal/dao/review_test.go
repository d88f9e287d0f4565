package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewDAOCreate(t *testing.T) {
	database, mock := newMock(t)
	reviews := NewReviewDAO(database)
	ctx := context.Background()

	rv, err := models.NewReview(7, 3, 5, "Great", "Fast laptop")
	require.NoError(t, err)
	rv.IsVerifiedPurchase = true

	mock.ExpectExec(insertReviewQuery).WithArgs(int32(7), int32(3), 5, "Great", "Fast laptop", true).
		WillReturnResult(sqlmock.NewResult(12, 1))

	id, err := reviews.Create(ctx, rv)
	require.NoError(t, err)
	assert.Equal(t, int32(12), id)

	rv.Rating = 6
	_, err = reviews.Create(ctx, rv)
	assert.True(t, apperrors.IsInvariant(err))
}

func TestReviewDAOFindByProduct(t *testing.T) {
	database, mock := newMock(t)
	mock.ExpectQuery(reviewsByProductQuery).WithArgs(int32(7)).
		WillReturnRows(sqlmock.NewRows([]string{"review_id", "product_id", "user_id", "rating", "title", "comment", "created_at", "is_verified_purchase"}).
			AddRow(int64(12), int64(7), int64(3), int64(4), "Good", nil, created, int64(1)))

	list, err := NewReviewDAO(database).FindByProduct(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsVerifiedPurchase)
	assert.True(t, list[0].IsPositive())
	assert.Equal(t, "★★★★☆", list[0].Stars())
}

func TestReviewDAOHasPurchased(t *testing.T) {
	database, mock := newMock(t)
	reviews := NewReviewDAO(database)

	mock.ExpectQuery(hasPurchasedQuery).WithArgs(int32(3), int32(7)).
		WillReturnRows(sqlmock.NewRows([]string{"purchases"}).AddRow(int64(2)))
	mock.ExpectQuery(hasPurchasedQuery).WithArgs(int32(4), int32(7)).
		WillReturnRows(sqlmock.NewRows([]string{"purchases"}).AddRow(int64(0)))

	ok, err := reviews.HasPurchased(context.Background(), 3, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = reviews.HasPurchased(context.Background(), 4, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReviewDAOAverageRating(t *testing.T) {
	database, mock := newMock(t)
	reviews := NewReviewDAO(database)

	mock.ExpectQuery(averageRatingQuery).WithArgs(int32(7)).
		WillReturnRows(sqlmock.NewRows([]string{"average", "total"}).AddRow([]byte("4.3333"), int64(3)))
	mock.ExpectQuery(averageRatingQuery).WithArgs(int32(8)).
		WillReturnRows(sqlmock.NewRows([]string{"average", "total"}).AddRow(nil, int64(0)))

	summary, err := reviews.AverageRating(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "4.33", summary.Average.String())
	assert.Equal(t, 3, summary.Count)

	summary, err = reviews.AverageRating(context.Background(), 8)
	require.NoError(t, err)
	assert.True(t, summary.Average.IsZero())
	assert.Equal(t, 0, summary.Count)
}
