package models

import "github.com/SigNoz/ecommerce-rest-api/internal/apperrors"

// DefaultReorderLevel is assigned to the inventory row created with a product.
const DefaultReorderLevel = 10

// Inventory tracks stock for a single product.
// Invariant: 0 <= ReservedQuantity <= QuantityAvailable.
type Inventory struct {
	ID                int32     `json:"inventoryId"`
	ProductID         int32     `json:"productId"`
	QuantityAvailable int       `json:"quantityAvailable"`
	ReservedQuantity  int       `json:"reservedQuantity"`
	ReorderLevel      int       `json:"reorderLevel"`
	LastUpdated       Timestamp `json:"lastUpdated"`
}

// NewInventory clamps negative inputs to zero and reserved to available.
func NewInventory(id, productID int32, available, reserved, reorderLevel int, lastUpdated Timestamp) Inventory {
	available = max(available, 0)
	reserved = min(max(reserved, 0), available)
	if lastUpdated.IsZero() {
		lastUpdated = Now()
	}
	return Inventory{
		ID:                id,
		ProductID:         productID,
		QuantityAvailable: available,
		ReservedQuantity:  reserved,
		ReorderLevel:      max(reorderLevel, 0),
		LastUpdated:       lastUpdated,
	}
}

// AvailableForSale is stock not held by reservations.
func (i Inventory) AvailableForSale() int {
	return max(0, i.QuantityAvailable-i.ReservedQuantity)
}

func (i Inventory) BelowReorder() bool {
	return i.AvailableForSale() <= i.ReorderLevel
}

func (i *Inventory) SetQuantityAvailable(n int) error {
	if n < 0 {
		return apperrors.Invariant("Quantity available cannot be negative")
	}
	if n < i.ReservedQuantity {
		return apperrors.Invariant("Quantity available cannot be less than reserved quantity")
	}
	i.QuantityAvailable = n
	return nil
}

func (i *Inventory) SetReservedQuantity(n int) error {
	if n < 0 {
		return apperrors.Invariant("Reserved quantity cannot be negative")
	}
	if n > i.QuantityAvailable {
		return apperrors.Invariant("Reserved quantity cannot exceed quantity available")
	}
	i.ReservedQuantity = n
	return nil
}

func (i *Inventory) SetReorderLevel(n int) error {
	if n < 0 {
		return apperrors.Invariant("Reorder level cannot be negative")
	}
	i.ReorderLevel = n
	return nil
}

// Increase adds n units of stock.
func (i *Inventory) Increase(n int) error {
	if n < 0 {
		return apperrors.Invariant("Amount to increase cannot be negative")
	}
	i.QuantityAvailable += n
	return nil
}

// Reserve holds n units for an order. It returns false, without changing
// anything, when fewer than n units are available for sale.
func (i *Inventory) Reserve(n int) (bool, error) {
	if n <= 0 {
		return false, apperrors.Invariant("Reservation quantity must be positive")
	}
	if i.AvailableForSale() < n {
		return false, nil
	}
	i.ReservedQuantity += n
	return true, nil
}

// Release returns n reserved units, never dropping below zero.
func (i *Inventory) Release(n int) error {
	if n <= 0 {
		return apperrors.Invariant("Release quantity must be positive")
	}
	i.ReservedQuantity = max(0, i.ReservedQuantity-n)
	return nil
}
