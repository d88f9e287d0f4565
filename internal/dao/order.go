package dao

import (
	"context"
	"fmt"
	"log"
	"slices"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/db"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
)

const (
	orderByIDQuery       = "SELECT * FROM orders WHERE order_id = ?"
	ordersByUserQuery    = "SELECT * FROM orders WHERE user_id = ? ORDER BY order_date DESC, order_id DESC"
	orderItemsQuery      = "SELECT * FROM order_items WHERE order_id = ? ORDER BY order_item_id"
	orderItemsOfSQL      = "SELECT * FROM order_items WHERE order_id IN (%s) ORDER BY order_item_id"
	insertOrderQuery     = "INSERT INTO orders (user_id, order_status, total_amount, shipping_address, billing_address, payment_method, order_date, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	insertOrderItemQuery = "INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES (?, ?, ?, ?)"
	updateOrderQuery     = "UPDATE orders SET order_status = ?, shipped_date = ?, delivered_date = ? WHERE order_id = ? AND order_status = ?"
)

// OrderDAO persists orders and their items. Stock reservations move with
// the order: placed orders reserve, cancelled ones release and delivered
// ones consume.
type OrderDAO struct {
	db        *db.DB
	inventory *InventoryDAO
}

func NewOrderDAO(database *db.DB, inventory *InventoryDAO) *OrderDAO {
	return &OrderDAO{db: database, inventory: inventory}
}

func mapOrder(r *db.Row) (models.Order, error) {
	o := models.Order{
		ID:              r.Int32("order_id"),
		UserID:          r.Int32("user_id"),
		Status:          models.OrderStatus(r.String("order_status")),
		TotalAmount:     r.Decimal("total_amount"),
		ShippingAddress: r.String("shipping_address"),
		BillingAddress:  r.String("billing_address"),
		PaymentMethod:   r.String("payment_method"),
		OrderDate:       models.NewTimestamp(r.Time("order_date")),
		Notes:           r.String("notes"),
		Items:           []models.OrderItem{},
	}
	if t := r.NullTime("shipped_date"); t != nil {
		ts := models.NewTimestamp(*t)
		o.ShippedDate = &ts
	}
	if t := r.NullTime("delivered_date"); t != nil {
		ts := models.NewTimestamp(*t)
		o.DeliveredDate = &ts
	}
	return o, r.Err()
}

func mapOrderItem(r *db.Row) (models.OrderItem, error) {
	item := models.OrderItem{
		ID:        r.Int32("order_item_id"),
		OrderID:   r.Int32("order_id"),
		ProductID: r.Int32("product_id"),
		Quantity:  r.Int("quantity"),
		UnitPrice: r.Decimal("unit_price"),
	}
	item.TotalPrice = item.UnitPrice.Mul(decimalFromInt(item.Quantity))
	return item, r.Err()
}

// Create reserves stock for every item, then inserts the order and its
// items, all in one transaction. A product without enough stock rolls
// the whole order back with an invariant error.
func (d *OrderDAO) Create(ctx context.Context, o models.Order) (int32, error) {
	if len(o.Items) == 0 {
		return 0, apperrors.Validation("Order must contain at least one item")
	}

	// Lock inventory rows in a stable order so concurrent orders cannot deadlock.
	reservations := slices.Clone(o.Items)
	slices.SortStableFunc(reservations, func(a, b models.OrderItem) int {
		return int(a.ProductID) - int(b.ProductID)
	})

	var id int32
	err := d.db.WithTx(ctx, func(tx *db.Tx) error {
		for _, item := range reservations {
			ok, err := d.inventory.Reserve(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.Invariantf("Insufficient stock for product %d", item.ProductID)
			}
		}

		var err error
		id, err = db.ExecuteInsert(ctx, tx, insertOrderQuery,
			o.UserID, string(o.Status), o.TotalAmount, o.ShippingAddress, o.BillingAddress,
			o.PaymentMethod, o.OrderDate.Time, o.Notes)
		if err != nil {
			return err
		}
		for _, item := range o.Items {
			if _, err := db.ExecuteInsert(ctx, tx, insertOrderItemQuery, id, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}
	log.Printf("[ORDER] Order created: order_id=%d, user_id=%d, items=%d", id, o.UserID, len(o.Items))
	return id, nil
}

// FindByID returns the order with its items.
func (d *OrderDAO) FindByID(ctx context.Context, id int32) (models.Order, bool, error) {
	o, found, err := db.QueryOne(ctx, d.db, orderByIDQuery, mapOrder, id)
	if err != nil || !found {
		return o, found, err
	}
	if o.Items, err = db.QueryMany(ctx, d.db, orderItemsQuery, mapOrderItem, id); err != nil {
		return models.Order{}, false, err
	}
	return o, true, nil
}

// FindByUser returns a user's orders with their items, newest first.
func (d *OrderDAO) FindByUser(ctx context.Context, userID int32) ([]models.Order, error) {
	orders, err := db.QueryMany(ctx, d.db, ordersByUserQuery, mapOrder, userID)
	if err != nil || len(orders) == 0 {
		return orders, err
	}

	ids := make([]int32, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := db.QueryMany(ctx, d.db, fmt.Sprintf(orderItemsOfSQL, placeholders(len(ids))), mapOrderItem, int32Args(ids)...)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[int32][]models.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range orders {
		if its, ok := byOrder[orders[i].ID]; ok {
			orders[i].Items = its
		}
	}
	return orders, nil
}

// UpdateStatus stores the transition prev -> next. The row must still be in
// prev's status, otherwise a conflict is returned. Cancelling releases the
// reserved stock and delivering consumes it, in the same transaction.
func (d *OrderDAO) UpdateStatus(ctx context.Context, prev, next models.Order) error {
	if !prev.Status.CanTransitionTo(next.Status) {
		return apperrors.Invariantf("Cannot transition from %s to %s", prev.Status, next.Status)
	}
	err := d.db.WithTx(ctx, func(tx *db.Tx) error {
		affected, err := db.ExecuteUpdate(ctx, tx, updateOrderQuery,
			string(next.Status), nullableTimestamp(next.ShippedDate), nullableTimestamp(next.DeliveredDate),
			next.ID, string(prev.Status))
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperrors.Conflict("Order was modified concurrently")
		}
		if prev.Status == next.Status {
			return nil
		}

		switch next.Status {
		case models.OrderStatusCancelled:
			for _, item := range next.Items {
				if err := d.inventory.Release(ctx, tx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		case models.OrderStatusDelivered:
			for _, item := range next.Items {
				ok, err := d.inventory.Fulfil(ctx, tx, item.ProductID, item.Quantity)
				if err != nil {
					return err
				}
				if !ok {
					return apperrors.Invariantf("Reserved stock missing for product %d", item.ProductID)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update status of order %d: %w", next.ID, err)
	}
	log.Printf("[ORDER] Order status updated: order_id=%d, %s -> %s", next.ID, prev.Status, next.Status)
	return nil
}
