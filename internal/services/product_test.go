package services

import (
	"context"
	"testing"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProductReadsThroughCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seedProduct(t, "Laptop", "999.99", 5)

	p, err := f.products.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", p.Name)
	assert.Equal(t, 5, p.AvailableForSale)
	assert.Equal(t, 1, f.cache.Len())

	// A write that bypasses the service leaves the cached copy in place.
	stale := p
	stale.Name = "Laptop Pro"
	_, err = f.store.Products().Update(ctx, stale)
	require.NoError(t, err)
	p, err = f.products.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Laptop", p.Name)

	stale.Name = "Laptop Max"
	updated, err := f.products.UpdateProduct(ctx, stale)
	require.NoError(t, err)
	assert.Equal(t, "Laptop Max", updated.Name)

	_, err = f.products.GetProduct(ctx, 999)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, "Product not found", apperrors.PublicMessage(err))
}

func TestListProductsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	electronicsID, err := f.categories.CreateCategory(ctx, models.Category{Name: "Electronics"})
	require.NoError(t, err)
	electronics := models.Category{ID: electronicsID}

	f.seedProduct(t, "Laptop", "999.99", 0, electronics)
	f.seedProduct(t, "Mouse", "19.99", 0, electronics)
	f.seedProduct(t, "Desk Lamp", "35.00", 0)

	all, err := f.products.ListProducts(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byName, err := f.products.ListProducts(ctx, ProductFilter{Name: " lap"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Laptop", byName[0].Name)
	require.Len(t, byName[0].Categories, 1)
	assert.Equal(t, "Electronics", byName[0].Categories[0].Name)

	byCategory, err := f.products.ListProducts(ctx, ProductFilter{CategoryID: &electronicsID})
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	low, high := decimal.RequireFromString("20"), decimal.RequireFromString("1000")
	byPrice, err := f.products.ListProducts(ctx, ProductFilter{MinPrice: &low, MaxPrice: &high})
	require.NoError(t, err)
	require.Len(t, byPrice, 2)
	assert.Equal(t, "Desk Lamp", byPrice[0].Name)

	onlyMax, err := f.products.ListProducts(ctx, ProductFilter{MaxPrice: &low})
	require.NoError(t, err)
	require.Len(t, onlyMax, 1)
	assert.Equal(t, "Mouse", onlyMax[0].Name)

	negative := decimal.RequireFromString("-1")
	_, err = f.products.ListProducts(ctx, ProductFilter{MinPrice: &negative})
	assert.Equal(t, "Minimum price cannot be negative", apperrors.PublicMessage(err))

	_, err = f.products.ListProducts(ctx, ProductFilter{MinPrice: &high, MaxPrice: &low})
	assert.Equal(t, "Minimum price cannot exceed maximum price", apperrors.PublicMessage(err))
}

func TestCreateProductValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.products.CreateProduct(ctx, models.Product{Name: " ", Price: decimal.NewFromInt(1)})
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.products.CreateProduct(ctx, models.Product{Name: "Widget", Price: decimal.NewFromInt(-1)})
	assert.True(t, apperrors.IsInvariant(err))

	_, err = f.products.CreateProduct(ctx, models.Product{Name: "Widget", Price: decimal.RequireFromString("100000000")})
	assert.Equal(t, "Price is too large", apperrors.PublicMessage(err))

	_, err = f.products.CreateProduct(ctx, models.Product{
		Name:       "Widget",
		Price:      decimal.NewFromInt(1),
		Categories: []models.Category{{ID: 404}},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seedProduct(t, "Laptop", "999.99", 0)

	_, err := f.products.GetProduct(ctx, id)
	require.NoError(t, err)
	require.NoError(t, f.products.DeleteProduct(ctx, id))
	assert.Equal(t, 0, f.cache.Len())

	assert.True(t, apperrors.IsNotFound(f.products.DeleteProduct(ctx, id)))
	_, err = f.products.GetProductInventory(ctx, id)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRestock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.seedProduct(t, "Laptop", "999.99", 0)

	inv, err := f.products.Restock(ctx, id, 25)
	require.NoError(t, err)
	assert.Equal(t, 25, inv.QuantityAvailable)
	assert.Equal(t, models.DefaultReorderLevel, inv.ReorderLevel)

	_, err = f.products.Restock(ctx, id, 0)
	assert.Equal(t, "Restock quantity must be positive", apperrors.PublicMessage(err))

	_, err = f.products.Restock(ctx, 999, 5)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestStockMonitor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "Empty", "1.00", 0)
	f.seedProduct(t, "Plenty", "1.00", 50)

	monitor := NewStockMonitor(f.products, 0)
	assert.Equal(t, 1, monitor.Check(ctx))

	low, err := f.products.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, 0, low[0].QuantityAvailable)

	// A zero interval disables the loop.
	monitor.Run(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		NewStockMonitor(f.products, 5*time.Millisecond).Run(runCtx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
