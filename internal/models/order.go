package models

import (
	"strings"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/shopspring/decimal"
)

// OrderStatus is a state of the order lifecycle
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
}

// ParseOrderStatus accepts the enum name in any case.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return status, nil
	}
	return "", apperrors.Validationf("Invalid order status: %s", s)
}

func (s OrderStatus) DisplayName() string {
	if s == "" {
		return ""
	}
	return string(s[0]) + strings.ToLower(string(s[1:]))
}

// Next returns the canonical successor; false for terminal states.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderStatusPending:
		return OrderStatusConfirmed, true
	case OrderStatusConfirmed:
		return OrderStatusShipped, true
	case OrderStatusShipped:
		return OrderStatusDelivered, true
	}
	return "", false
}

// CanTransitionTo reports whether s -> target is allowed. Staying put is always allowed.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s == target {
		return true
	}
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsFinal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) IsActive() bool {
	return !s.IsFinal()
}

// OrderItem is one product line of an order
type OrderItem struct {
	ID         int32           `json:"orderItemId"`
	OrderID    int32           `json:"orderId"`
	ProductID  int32           `json:"productId"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// NewOrderItem captures the unit price at order time.
func NewOrderItem(productID int32, quantity int, unitPrice decimal.Decimal) (OrderItem, error) {
	if quantity <= 0 {
		return OrderItem{}, apperrors.Invariant("Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return OrderItem{}, apperrors.Invariant("Unit price cannot be negative")
	}
	return OrderItem{
		ProductID:  productID,
		Quantity:   quantity,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}

// Order represents a placed order and its items
type Order struct {
	ID              int32           `json:"orderId"`
	UserID          int32           `json:"userId"`
	Status          OrderStatus     `json:"orderStatus"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	BillingAddress  string          `json:"billingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	OrderDate       Timestamp       `json:"orderDate"`
	ShippedDate     *Timestamp      `json:"shippedDate"`
	DeliveredDate   *Timestamp      `json:"deliveredDate"`
	Notes           string          `json:"notes"`
	Items           []OrderItem     `json:"orderItems"`
}

// NewOrder builds a PENDING order whose total is the sum of its item totals.
func NewOrder(userID int32, items []OrderItem, shippingAddress, billingAddress, paymentMethod, notes string) (Order, error) {
	if len(items) == 0 {
		return Order{}, apperrors.Validation("Order must contain at least one item")
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return Order{
		UserID:          userID,
		Status:          OrderStatusPending,
		TotalAmount:     total,
		ShippingAddress: shippingAddress,
		BillingAddress:  billingAddress,
		PaymentMethod:   paymentMethod,
		OrderDate:       Now(),
		Notes:           notes,
		Items:           items,
	}, nil
}

// WithStatus returns a copy of o moved to status. Shipped and delivered
// dates are stamped with now the first time those states are entered.
func (o Order) WithStatus(status OrderStatus, now time.Time) (Order, error) {
	if !o.Status.CanTransitionTo(status) {
		return o, apperrors.Invariantf("Cannot transition from %s to %s", o.Status, status)
	}
	o.Status = status
	switch {
	case status == OrderStatusShipped && o.ShippedDate == nil:
		ts := NewTimestamp(now)
		o.ShippedDate = &ts
	case status == OrderStatusDelivered && o.DeliveredDate == nil:
		ts := NewTimestamp(now)
		o.DeliveredDate = &ts
	}
	return o, nil
}

// Advance moves to the next canonical state. It returns false when the
// order is terminal, leaving it unchanged.
func (o Order) Advance(now time.Time) (Order, bool) {
	next, ok := o.Status.Next()
	if !ok {
		return o, false
	}
	updated, err := o.WithStatus(next, now)
	if err != nil {
		return o, false
	}
	return updated, true
}

// Cancel moves the order to CANCELLED unless it is already terminal.
func (o Order) Cancel(now time.Time) (Order, bool) {
	if o.Status.IsFinal() {
		return o, false
	}
	updated, err := o.WithStatus(OrderStatusCancelled, now)
	if err != nil {
		return o, false
	}
	return updated, true
}

// CanBeCancelled is true only before shipping.
func (o Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

func (o Order) TotalItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// Recalculate recomputes each item total and the order total from unit prices.
func (o Order) Recalculate() Order {
	items := make([]OrderItem, len(o.Items))
	for i, item := range o.Items {
		item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		items[i] = item
	}
	o.Items = items
	o.TotalAmount = o.ItemsTotal()
	return o
}

// ItemsTotal sums the item totals.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.TotalPrice)
	}
	return total
}
