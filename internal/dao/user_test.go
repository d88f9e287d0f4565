package dao

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var userColumns = []string{"user_id", "username", "email", "password_hash", "first_name", "last_name",
	"phone", "address", "user_type", "created_at", "updated_at", "is_active"}

func userRows(hash string) *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).
		AddRow(int64(3), "alice", "alice@example.com", hash, "Alice", "Smith", nil, "1 Main St", "CUSTOMER", created, updated, true)
}

func TestUserDAOFindByUsername(t *testing.T) {
	database, mock := newMock(t)
	users := NewUserDAO(database)

	mock.ExpectQuery(userByUsernameQuery).WithArgs("alice").WillReturnRows(userRows("x"))
	mock.ExpectQuery(userByUsernameQuery).WithArgs("bob").WillReturnRows(sqlmock.NewRows(userColumns))

	u, found, err := users.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int32(3), u.ID)
	assert.Equal(t, "Alice Smith", u.FullName())
	assert.Equal(t, "", u.Phone)
	assert.Equal(t, models.UserTypeCustomer, u.UserType)
	assert.Equal(t, created, u.CreatedAt.Time)
	assert.True(t, u.IsActive)

	_, found, err = users.FindByUsername(context.Background(), "bob")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUserDAOCreateHashesPassword(t *testing.T) {
	database, mock := newMock(t)
	users := NewUserDAO(database)

	mock.ExpectExec(insertUserQuery).
		WithArgs("alice", "alice@example.com", bcryptOf("s3cret"), "Alice", "Smith", "", "", "CUSTOMER", true).
		WillReturnResult(sqlmock.NewResult(11, 1))

	id, err := users.Create(context.Background(), models.User{
		Username:  "alice",
		Email:     "alice@example.com",
		FirstName: "Alice",
		LastName:  "Smith",
		IsActive:  true,
	}, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, int32(11), id)
}

func TestUserDAOAuthenticate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	database, mock := newMock(t)
	users := NewUserDAO(database)
	ctx := context.Background()

	mock.ExpectQuery(activeUserQuery).WithArgs("alice").WillReturnRows(userRows(string(hash)))
	mock.ExpectQuery(activeUserQuery).WithArgs("alice").WillReturnRows(userRows(string(hash)))
	mock.ExpectQuery(activeUserQuery).WithArgs("ghost").WillReturnRows(sqlmock.NewRows(userColumns))

	u, ok, err := users.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", u.Username)

	_, ok, err = users.Authenticate(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = users.Authenticate(ctx, "ghost", "s3cret")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUserDAOUpdateAndDelete(t *testing.T) {
	database, mock := newMock(t)
	users := NewUserDAO(database)
	ctx := context.Background()

	mock.ExpectExec(updateUserQuery).
		WithArgs("alice", "new@example.com", "Alice", "Smith", "", "", "ADMIN", true, sqlmock.AnyArg(), int32(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteUserQuery).WithArgs(int32(99)).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := users.Update(ctx, models.User{
		ID: 3, Username: "alice", Email: "new@example.com", FirstName: "Alice", LastName: "Smith",
		UserType: models.UserTypeAdmin, IsActive: true,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = users.Delete(ctx, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}
