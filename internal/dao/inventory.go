package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/db"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
)

const (
	inventoryByProductQuery = "SELECT * FROM inventory WHERE product_id = ?"
	belowReorderQuery       = "SELECT * FROM inventory WHERE quantity_available - reserved_quantity <= reorder_level ORDER BY product_id"
	updateInventoryQuery    = "UPDATE inventory SET quantity_available = ?, reserved_quantity = ?, reorder_level = ?, last_updated = ? WHERE product_id = ?"
	increaseStockQuery      = "UPDATE inventory SET quantity_available = quantity_available + ?, last_updated = ? WHERE product_id = ?"
	reserveStockQuery       = "UPDATE inventory SET reserved_quantity = reserved_quantity + ?, last_updated = ? WHERE product_id = ? AND quantity_available - reserved_quantity >= ?"
	releaseStockQuery       = "UPDATE inventory SET reserved_quantity = GREATEST(reserved_quantity - ?, 0), last_updated = ? WHERE product_id = ?"
	fulfilStockQuery        = "UPDATE inventory SET quantity_available = quantity_available - ?, reserved_quantity = reserved_quantity - ?, last_updated = ? WHERE product_id = ? AND reserved_quantity >= ?"
)

// InventoryDAO persists stock levels. Reservation statements are
// conditional, so concurrent orders cannot oversell a product.
type InventoryDAO struct {
	db  *db.DB
	now func() time.Time
}

func NewInventoryDAO(database *db.DB) *InventoryDAO {
	return &InventoryDAO{db: database, now: time.Now}
}

func mapInventory(r *db.Row) (models.Inventory, error) {
	inv := models.Inventory{
		ID:                r.Int32("inventory_id"),
		ProductID:         r.Int32("product_id"),
		QuantityAvailable: r.Int("quantity_available"),
		ReservedQuantity:  r.Int("reserved_quantity"),
		ReorderLevel:      r.Int("reorder_level"),
		LastUpdated:       models.NewTimestamp(r.Time("last_updated")),
	}
	return inv, r.Err()
}

func (d *InventoryDAO) FindByProductID(ctx context.Context, productID int32) (models.Inventory, bool, error) {
	return db.QueryOne(ctx, d.db, inventoryByProductQuery, mapInventory, productID)
}

// FindBelowReorder lists rows whose stock for sale is at or under the reorder level.
func (d *InventoryDAO) FindBelowReorder(ctx context.Context) ([]models.Inventory, error) {
	return db.QueryMany(ctx, d.db, belowReorderQuery, mapInventory)
}

// Update writes all counters of inv after checking its invariants.
func (d *InventoryDAO) Update(ctx context.Context, inv models.Inventory) (bool, error) {
	if inv.QuantityAvailable < 0 || inv.ReservedQuantity < 0 || inv.ReorderLevel < 0 {
		return false, apperrors.Invariant("Inventory quantities cannot be negative")
	}
	if inv.ReservedQuantity > inv.QuantityAvailable {
		return false, apperrors.Invariant("Reserved quantity cannot exceed quantity available")
	}
	affected, err := db.ExecuteUpdate(ctx, d.db, updateInventoryQuery,
		inv.QuantityAvailable, inv.ReservedQuantity, inv.ReorderLevel, d.now(), inv.ProductID)
	if err != nil {
		return false, fmt.Errorf("update inventory of product %d: %w", inv.ProductID, err)
	}
	return affected > 0, nil
}

// Increase adds n units to the product's stock.
func (d *InventoryDAO) Increase(ctx context.Context, productID int32, n int) (bool, error) {
	if n < 0 {
		return false, apperrors.Invariant("Amount to increase cannot be negative")
	}
	affected, err := db.ExecuteUpdate(ctx, d.db, increaseStockQuery, n, d.now(), productID)
	if err != nil {
		return false, fmt.Errorf("increase stock of product %d: %w", productID, err)
	}
	return affected > 0, nil
}

// Reserve holds n units when at least n are available for sale. It
// returns false, changing nothing, otherwise.
func (d *InventoryDAO) Reserve(ctx context.Context, s db.Session, productID int32, n int) (bool, error) {
	if n <= 0 {
		return false, apperrors.Invariant("Reservation quantity must be positive")
	}
	affected, err := db.ExecuteUpdate(ctx, s, reserveStockQuery, n, d.now(), productID, n)
	if err != nil {
		return false, fmt.Errorf("reserve stock of product %d: %w", productID, err)
	}
	return affected > 0, nil
}

// Release returns n reserved units; the reserved count never drops below zero.
func (d *InventoryDAO) Release(ctx context.Context, s db.Session, productID int32, n int) error {
	if n <= 0 {
		return apperrors.Invariant("Release quantity must be positive")
	}
	if _, err := db.ExecuteUpdate(ctx, s, releaseStockQuery, n, d.now(), productID); err != nil {
		return fmt.Errorf("release stock of product %d: %w", productID, err)
	}
	return nil
}

// Fulfil ships n reserved units: they leave both the stock and the reservation.
func (d *InventoryDAO) Fulfil(ctx context.Context, s db.Session, productID int32, n int) (bool, error) {
	if n <= 0 {
		return false, apperrors.Invariant("Fulfilment quantity must be positive")
	}
	affected, err := db.ExecuteUpdate(ctx, s, fulfilStockQuery, n, n, d.now(), productID, n)
	if err != nil {
		return false, fmt.Errorf("fulfil stock of product %d: %w", productID, err)
	}
	return affected > 0, nil
}
