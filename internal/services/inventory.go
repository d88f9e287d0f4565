package services

import (
	"context"
	"log"
	"time"
)

// StockMonitor periodically refreshes the inventory gauge for products at
// or below their reorder level and logs them.
type StockMonitor struct {
	products *ProductService
	interval time.Duration
}

func NewStockMonitor(products *ProductService, interval time.Duration) *StockMonitor {
	return &StockMonitor{products: products, interval: interval}
}

// Run checks stock every interval until ctx is cancelled.
func (m *StockMonitor) Run(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Check runs one low-stock pass and returns the number of products found.
func (m *StockMonitor) Check(ctx context.Context) int {
	low, err := m.products.LowStock(ctx)
	if err != nil {
		log.Printf("[INVENTORY] Low stock check failed: %v", err)
		return 0
	}
	for _, inv := range low {
		log.Printf("[INVENTORY] Low stock: product_id=%d, available=%d, reorder_level=%d",
			inv.ProductID, inv.AvailableForSale(), inv.ReorderLevel)
	}
	return len(low)
}
