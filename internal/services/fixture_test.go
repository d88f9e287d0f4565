package services

import (
	"context"
	"testing"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/cache"
	"github.com/SigNoz/ecommerce-rest-api/internal/memstore"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/SigNoz/ecommerce-rest-api/pkg/jwt"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store      *memstore.Store
	cache      *cache.MemoryCache
	tokens     *jwt.Service
	users      *UserService
	auth       *AuthService
	products   *ProductService
	categories *CategoryService
	orders     *OrderService
	reviews    *ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New().WithHashCost(bcrypt.MinCost)
	c := cache.NewMemoryCache(time.Minute)
	tokens := jwt.NewService("test-secret", time.Hour, "test")
	users := NewUserService(store.Users(), nil)
	return &fixture{
		store:      store,
		cache:      c,
		tokens:     tokens,
		users:      users,
		auth:       NewAuthService(users, tokens, nil),
		products:   NewProductService(store.Products(), store.Inventory(), c, nil),
		categories: NewCategoryService(store.Categories(), c),
		orders:     NewOrderService(store.Orders(), store.Products(), c, nil),
		reviews:    NewReviewService(store.Reviews(), store.Products(), nil),
	}
}

func newUser(username string) models.User {
	return models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: "Jane",
		LastName:  "Doe",
		IsActive:  true,
	}
}

func (f *fixture) seedUser(t *testing.T, username string) int32 {
	t.Helper()
	id, err := f.users.RegisterUser(context.Background(), newUser(username), "secret123")
	require.NoError(t, err)
	return id
}

// seedProduct creates an active product and restocks it when stock > 0.
func (f *fixture) seedProduct(t *testing.T, name, price string, stock int, categories ...models.Category) int32 {
	t.Helper()
	ctx := context.Background()
	id, err := f.products.CreateProduct(ctx, models.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		SKU:        name + "-sku",
		IsActive:   true,
		Categories: categories,
	})
	require.NoError(t, err)
	if stock > 0 {
		_, err = f.products.Restock(ctx, id, stock)
		require.NoError(t, err)
	}
	return id
}

func (f *fixture) stock(t *testing.T, productID int32) models.Inventory {
	t.Helper()
	inv, err := f.products.GetProductInventory(context.Background(), productID)
	require.NoError(t, err)
	return inv
}
