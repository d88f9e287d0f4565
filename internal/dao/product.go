package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/db"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/shopspring/decimal"
)

const productSelect = "SELECT p.*, i.quantity_available, i.reserved_quantity FROM products p"

const (
	productByIDQuery         = productSelect + " LEFT JOIN inventory i ON p.product_id = i.product_id WHERE p.product_id = ?"
	activeProductsQuery      = productSelect + " LEFT JOIN inventory i ON p.product_id = i.product_id WHERE p.is_active = TRUE ORDER BY p.created_at DESC"
	productsByNameQuery      = productSelect + " LEFT JOIN inventory i ON p.product_id = i.product_id WHERE LOWER(p.name) LIKE LOWER(?) AND p.is_active = TRUE ORDER BY p.name"
	productsByCategoryQuery  = productSelect + " JOIN products_categories pc ON p.product_id = pc.product_id LEFT JOIN inventory i ON p.product_id = i.product_id WHERE pc.category_id = ? AND p.is_active = TRUE ORDER BY p.name"
	productsByPriceQuery     = productSelect + " LEFT JOIN inventory i ON p.product_id = i.product_id WHERE p.price >= ? AND p.price <= ? AND p.is_active = TRUE ORDER BY p.price"
	insertProductQuery       = "INSERT INTO products (name, description, price, sku, weight, dimensions, brand, is_active) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	updateProductQuery       = "UPDATE products SET name = ?, description = ?, price = ?, sku = ?, weight = ?, dimensions = ?, brand = ?, is_active = ?, updated_at = ? WHERE product_id = ?"
	deleteProductQuery       = "DELETE FROM products WHERE product_id = ?"
	insertProductStockQuery  = "INSERT INTO inventory (product_id, quantity_available, reserved_quantity, reorder_level) VALUES (?, 0, 0, ?)"
	deleteProductStockQuery  = "DELETE FROM inventory WHERE product_id = ?"
	insertProductLinkQuery   = "INSERT INTO products_categories (product_id, category_id) VALUES (?, ?)"
	deleteProductLinksQuery  = "DELETE FROM products_categories WHERE product_id = ?"
	categoriesOfProductQuery = "SELECT c.* FROM categories c JOIN products_categories pc ON c.category_id = pc.category_id WHERE pc.product_id = ? ORDER BY c.name"
	categoriesOfProductsSQL  = "SELECT pc.product_id AS owner_id, c.* FROM categories c JOIN products_categories pc ON c.category_id = pc.category_id WHERE pc.product_id IN (%s) ORDER BY c.name"
)

// ProductDAO persists products together with their inventory row and
// category links. Every read loads the product's categories.
type ProductDAO struct {
	db  *db.DB
	now func() time.Time
}

func NewProductDAO(database *db.DB) *ProductDAO {
	return &ProductDAO{db: database, now: time.Now}
}

func mapProduct(r *db.Row) (models.Product, error) {
	p := models.Product{
		ID:          r.Int32("product_id"),
		Name:        r.String("name"),
		Description: r.String("description"),
		Price:       r.Decimal("price"),
		SKU:         r.String("sku"),
		Weight:      r.Decimal("weight"),
		Dimensions:  r.String("dimensions"),
		Brand:       r.String("brand"),
		CreatedAt:   models.NewTimestamp(r.Time("created_at")),
		UpdatedAt:   models.NewTimestamp(r.Time("updated_at")),
		IsActive:    r.Bool("is_active"),
		Categories:  []models.Category{},
	}
	if r.Has("quantity_available") {
		p.AvailableForSale = max(0, r.Int("quantity_available")-r.Int("reserved_quantity"))
	}
	return p, r.Err()
}

type ownedCategory struct {
	owner    int32
	category models.Category
}

func mapOwnedCategory(r *db.Row) (ownedCategory, error) {
	c, err := mapCategory(r)
	return ownedCategory{owner: r.Int32("owner_id"), category: c}, err
}

func (d *ProductDAO) FindByID(ctx context.Context, id int32) (models.Product, bool, error) {
	p, found, err := db.QueryOne(ctx, d.db, productByIDQuery, mapProduct, id)
	if err != nil || !found {
		return p, found, err
	}
	if p.Categories, err = d.CategoriesForProduct(ctx, id); err != nil {
		return models.Product{}, false, err
	}
	return p, true, nil
}

// FindAllActive returns active products, newest first.
func (d *ProductDAO) FindAllActive(ctx context.Context) ([]models.Product, error) {
	return d.findMany(ctx, activeProductsQuery)
}

// FindByName matches name case-insensitively anywhere in active product names.
func (d *ProductDAO) FindByName(ctx context.Context, name string) ([]models.Product, error) {
	return d.findMany(ctx, productsByNameQuery, containsPattern(name))
}

func (d *ProductDAO) FindByCategory(ctx context.Context, categoryID int32) ([]models.Product, error) {
	return d.findMany(ctx, productsByCategoryQuery, categoryID)
}

// FindByPriceRange returns active products priced within [low, high].
func (d *ProductDAO) FindByPriceRange(ctx context.Context, low, high decimal.Decimal) ([]models.Product, error) {
	return d.findMany(ctx, productsByPriceQuery, low, high)
}

func (d *ProductDAO) findMany(ctx context.Context, query string, args ...any) ([]models.Product, error) {
	products, err := db.QueryMany(ctx, d.db, query, mapProduct, args...)
	if err != nil || len(products) == 0 {
		return products, err
	}
	if err := d.loadCategories(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// loadCategories fills in the categories of every product with one query.
func (d *ProductDAO) loadCategories(ctx context.Context, products []models.Product) error {
	ids := make([]int32, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	query := fmt.Sprintf(categoriesOfProductsSQL, placeholders(len(ids)))
	links, err := db.QueryMany(ctx, d.db, query, mapOwnedCategory, int32Args(ids)...)
	if err != nil {
		return err
	}
	byProduct := make(map[int32][]models.Category, len(products))
	for _, link := range links {
		byProduct[link.owner] = append(byProduct[link.owner], link.category)
	}
	for i := range products {
		if cats, ok := byProduct[products[i].ID]; ok {
			products[i].Categories = cats
		}
	}
	return nil
}

// CategoriesForProduct returns the categories linked to a product.
func (d *ProductDAO) CategoriesForProduct(ctx context.Context, productID int32) ([]models.Category, error) {
	return db.QueryMany(ctx, d.db, categoriesOfProductQuery, mapCategory, productID)
}

// Create inserts the product, an empty inventory row and its category links
// in one transaction, returning the new id.
func (d *ProductDAO) Create(ctx context.Context, p models.Product) (int32, error) {
	if p.Price.IsNegative() {
		return 0, apperrors.Invariant("Price cannot be negative")
	}
	var id int32
	err := d.db.WithTx(ctx, func(tx *db.Tx) error {
		var err error
		id, err = db.ExecuteInsert(ctx, tx, insertProductQuery,
			p.Name, p.Description, p.Price, p.SKU, p.Weight, p.Dimensions, p.Brand, p.IsActive)
		if err != nil {
			return err
		}
		if _, err := db.ExecuteUpdate(ctx, tx, insertProductStockQuery, id, models.DefaultReorderLevel); err != nil {
			return err
		}
		return linkCategories(ctx, tx, id, p.CategoryIDs())
	})
	if err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

// Update writes the product columns. When p.Categories is non-nil the
// category links are replaced with it. False when no row has p.ID.
func (d *ProductDAO) Update(ctx context.Context, p models.Product) (bool, error) {
	if p.Price.IsNegative() {
		return false, apperrors.Invariant("Price cannot be negative")
	}
	var found bool
	err := d.db.WithTx(ctx, func(tx *db.Tx) error {
		affected, err := db.ExecuteUpdate(ctx, tx, updateProductQuery,
			p.Name, p.Description, p.Price, p.SKU, p.Weight, p.Dimensions, p.Brand, p.IsActive, d.now(), p.ID)
		if err != nil || affected == 0 {
			return err
		}
		found = true
		if p.Categories == nil {
			return nil
		}
		if _, err := db.ExecuteUpdate(ctx, tx, deleteProductLinksQuery, p.ID); err != nil {
			return err
		}
		return linkCategories(ctx, tx, p.ID, p.CategoryIDs())
	})
	if err != nil {
		return false, fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return found, nil
}

// Delete removes the category links, the inventory row and the product.
func (d *ProductDAO) Delete(ctx context.Context, id int32) (bool, error) {
	var affected int64
	err := d.db.WithTx(ctx, func(tx *db.Tx) error {
		if _, err := db.ExecuteUpdate(ctx, tx, deleteProductLinksQuery, id); err != nil {
			return err
		}
		if _, err := db.ExecuteUpdate(ctx, tx, deleteProductStockQuery, id); err != nil {
			return err
		}
		var err error
		affected, err = db.ExecuteUpdate(ctx, tx, deleteProductQuery, id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete product %d: %w", id, err)
	}
	return affected > 0, nil
}

func linkCategories(ctx context.Context, s db.Session, productID int32, categoryIDs []int32) error {
	seen := make(map[int32]bool, len(categoryIDs))
	for _, categoryID := range categoryIDs {
		if seen[categoryID] {
			continue
		}
		seen[categoryID] = true
		if _, err := db.ExecuteUpdate(ctx, s, insertProductLinkQuery, productID, categoryID); err != nil {
			return err
		}
	}
	return nil
}
