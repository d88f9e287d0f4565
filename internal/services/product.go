package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/cache"
	"github.com/SigNoz/ecommerce-rest-api/internal/metrics"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// maxPrice is the largest value a DECIMAL(10,2) price column holds.
var maxPrice = decimal.RequireFromString("99999999.99")

// ProductFilter selects products for a listing. The first set field wins:
// name, then category, then the price bounds; an empty filter lists all
// active products.
type ProductFilter struct {
	Name       string
	CategoryID *int32
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

// ProductService handles product-related operations
type ProductService struct {
	products  ProductStore
	inventory InventoryStore
	cache     cache.ProductCache
	metrics   *metrics.AppMetrics
}

// NewProductService creates a new product service
func NewProductService(products ProductStore, inventory InventoryStore, c cache.ProductCache, m *metrics.AppMetrics) *ProductService {
	if c == nil {
		c = cache.NewMemoryCache(cache.DefaultTTL)
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &ProductService{
		products:  products,
		inventory: inventory,
		cache:     c,
		metrics:   m,
	}
}

// ListProducts returns the active products matching f.
func (s *ProductService) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, error) {
	switch {
	case strings.TrimSpace(f.Name) != "":
		return s.products.FindByName(ctx, strings.TrimSpace(f.Name))
	case f.CategoryID != nil:
		return s.products.FindByCategory(ctx, *f.CategoryID)
	case f.MinPrice != nil || f.MaxPrice != nil:
		low, high := decimal.Zero, maxPrice
		if f.MinPrice != nil {
			low = *f.MinPrice
		}
		if f.MaxPrice != nil {
			high = *f.MaxPrice
		}
		if low.IsNegative() {
			return nil, apperrors.Validation("Minimum price cannot be negative")
		}
		if low.GreaterThan(high) {
			return nil, apperrors.Validation("Minimum price cannot exceed maximum price")
		}
		return s.products.FindByPriceRange(ctx, low, high)
	default:
		return s.products.FindAllActive(ctx)
	}
}

// GetProduct returns a product by ID, reading through the cache.
func (s *ProductService) GetProduct(ctx context.Context, id int32) (models.Product, error) {
	if cached, ok := s.cache.Get(ctx, id); ok {
		s.metrics.RecordCache(ctx, s.cache.Backend(), true)
		s.recordView(ctx, cached, "hit")
		return cached, nil
	}
	s.metrics.RecordCache(ctx, s.cache.Backend(), false)

	p, found, err := s.products.FindByID(ctx, id)
	if err != nil {
		return models.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	if !found {
		return models.Product{}, apperrors.NotFound("Product not found")
	}

	s.cache.Set(ctx, p)
	s.recordView(ctx, p, "miss")
	return p, nil
}

func (s *ProductService) recordView(ctx context.Context, p models.Product, cacheResult string) {
	category := "uncategorized"
	if len(p.Categories) > 0 {
		category = p.Categories[0].Name
	}
	s.metrics.ProductsViewed.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Int64("product_id", int64(p.ID)),
		attribute.String("product_category", category),
		attribute.String("cache", cacheResult),
	})...))
}

func validateProduct(p models.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperrors.Validation("Product name is required")
	}
	if p.Price.IsNegative() {
		return apperrors.Invariant("Price cannot be negative")
	}
	if p.Price.GreaterThan(maxPrice) {
		return apperrors.Validation("Price is too large")
	}
	if p.Weight.IsNegative() {
		return apperrors.Invariant("Weight cannot be negative")
	}
	return nil
}

// CreateProduct stores p with an empty inventory row and returns the new id.
func (s *ProductService) CreateProduct(ctx context.Context, p models.Product) (int32, error) {
	if err := validateProduct(p); err != nil {
		return 0, err
	}
	id, err := s.products.Create(ctx, p)
	if err != nil {
		return 0, err
	}
	log.Printf("[CATALOG] Product created: product_id=%d, sku=%s", id, p.SKU)
	return id, nil
}

// UpdateProduct stores p and returns the product as now persisted.
func (s *ProductService) UpdateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	if err := validateProduct(p); err != nil {
		return models.Product{}, err
	}
	found, err := s.products.Update(ctx, p)
	if err != nil {
		return models.Product{}, err
	}
	if !found {
		return models.Product{}, apperrors.NotFound("Product not found")
	}
	s.cache.Invalidate(ctx, p.ID)
	return s.GetProduct(ctx, p.ID)
}

// DeleteProduct removes the product with its inventory and category links.
func (s *ProductService) DeleteProduct(ctx context.Context, id int32) error {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NotFound("Product not found")
	}
	s.cache.Invalidate(ctx, id)
	log.Printf("[CATALOG] Product deleted: product_id=%d", id)
	return nil
}

// GetProductInventory returns inventory level for a product
func (s *ProductService) GetProductInventory(ctx context.Context, productID int32) (models.Inventory, error) {
	inv, found, err := s.inventory.FindByProductID(ctx, productID)
	if err != nil {
		return models.Inventory{}, fmt.Errorf("failed to get inventory: %w", err)
	}
	if !found {
		return models.Inventory{}, apperrors.NotFound("Product not found")
	}
	s.recordStock(ctx, inv)
	return inv, nil
}

// Restock adds quantity units to a product's stock.
func (s *ProductService) Restock(ctx context.Context, productID int32, quantity int) (models.Inventory, error) {
	if quantity <= 0 {
		return models.Inventory{}, apperrors.Invariant("Restock quantity must be positive")
	}
	found, err := s.inventory.Increase(ctx, productID, quantity)
	if err != nil {
		return models.Inventory{}, err
	}
	if !found {
		return models.Inventory{}, apperrors.NotFound("Product not found")
	}
	s.cache.Invalidate(ctx, productID)
	log.Printf("[INVENTORY] Restocked: product_id=%d, quantity=%d", productID, quantity)
	return s.GetProductInventory(ctx, productID)
}

// LowStock lists inventory rows at or below their reorder level.
func (s *ProductService) LowStock(ctx context.Context) ([]models.Inventory, error) {
	rows, err := s.inventory.FindBelowReorder(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock: %w", err)
	}
	for _, inv := range rows {
		s.recordStock(ctx, inv)
	}
	return rows, nil
}

func (s *ProductService) recordStock(ctx context.Context, inv models.Inventory) {
	s.metrics.InventoryLevel.Record(ctx, int64(inv.AvailableForSale()), metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.Int64("product_id", int64(inv.ProductID)),
		attribute.Bool("below_reorder", inv.BelowReorder()),
	})...))
}
