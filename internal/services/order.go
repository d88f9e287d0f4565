package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/cache"
	"github.com/SigNoz/ecommerce-rest-api/internal/metrics"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OrderLine asks for quantity units of a product.
type OrderLine struct {
	ProductID int32 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

// PlaceOrderRequest is the body of an order placement.
type PlaceOrderRequest struct {
	Items           []OrderLine `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string      `json:"shippingAddress" validate:"required,max=500"`
	BillingAddress  string      `json:"billingAddress" validate:"omitempty,max=500"`
	PaymentMethod   string      `json:"paymentMethod" validate:"required,max=50"`
	Notes           string      `json:"notes" validate:"omitempty,max=1000"`
}

// OrderService handles order-related operations
type OrderService struct {
	orders   OrderStore
	products ProductStore
	cache    cache.ProductCache
	metrics  *metrics.AppMetrics
	now      func() time.Time
}

// NewOrderService creates a new order service. c may be nil when no
// product cache is in use.
func NewOrderService(orders OrderStore, products ProductStore, c cache.ProductCache, m *metrics.AppMetrics) *OrderService {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &OrderService{
		orders:   orders,
		products: products,
		cache:    c,
		metrics:  m,
		now:      time.Now,
	}
}

// PlaceOrder prices every line from the catalog, then stores the order,
// reserving stock for it.
func (s *OrderService) PlaceOrder(ctx context.Context, userID int32, req PlaceOrderRequest) (models.Order, error) {
	if len(req.Items) == 0 {
		return models.Order{}, apperrors.Validation("Order must contain at least one item")
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	categories := make(map[int32]string, len(req.Items))
	for _, line := range req.Items {
		p, found, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			return models.Order{}, fmt.Errorf("failed to get product: %w", err)
		}
		if !found || !p.IsActive {
			return models.Order{}, apperrors.Validationf("Product not available: %d", line.ProductID)
		}
		item, err := models.NewOrderItem(p.ID, line.Quantity, p.Price)
		if err != nil {
			return models.Order{}, err
		}
		items = append(items, item)
		categories[p.ID] = "uncategorized"
		if len(p.Categories) > 0 {
			categories[p.ID] = p.Categories[0].Name
		}
	}

	billing := req.BillingAddress
	if billing == "" {
		billing = req.ShippingAddress
	}
	order, err := models.NewOrder(userID, items, req.ShippingAddress, billing, req.PaymentMethod, req.Notes)
	if err != nil {
		return models.Order{}, err
	}

	id, err := s.orders.Create(ctx, order)
	if err != nil {
		return models.Order{}, err
	}
	s.invalidateProducts(ctx, order.Items)

	for _, item := range order.Items {
		attrs := s.metrics.WithServiceName([]attribute.KeyValue{
			attribute.String("product_category", categories[item.ProductID]),
			attribute.String("payment_method", order.PaymentMethod),
		})
		s.metrics.OrdersCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
		s.metrics.RevenueTotal.Add(ctx, item.TotalPrice.InexactFloat64(), metric.WithAttributes(attrs...))
	}

	return s.GetOrder(ctx, id)
}

// GetOrder returns an order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id int32) (models.Order, error) {
	o, found, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return models.Order{}, fmt.Errorf("failed to get order: %w", err)
	}
	if !found {
		return models.Order{}, apperrors.NotFound("Order not found")
	}
	return o, nil
}

// ListUserOrders returns a user's orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID int32) ([]models.Order, error) {
	return s.orders.FindByUser(ctx, userID)
}

// AdvanceOrder moves the order to its next canonical state.
func (s *OrderService) AdvanceOrder(ctx context.Context, id int32) (models.Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	next, ok := o.Advance(s.now())
	if !ok {
		return models.Order{}, apperrors.Invariant("Order cannot be advanced")
	}
	return s.store(ctx, o, next)
}

// CancelOrder cancels an order that is not yet delivered or cancelled and
// releases its reserved stock.
func (s *OrderService) CancelOrder(ctx context.Context, id int32) (models.Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	next, ok := o.Cancel(s.now())
	if !ok {
		return models.Order{}, apperrors.Invariant("Order cannot be cancelled")
	}
	return s.store(ctx, o, next)
}

// SetOrderStatus moves the order to status if the transition is allowed.
func (s *OrderService) SetOrderStatus(ctx context.Context, id int32, status models.OrderStatus) (models.Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	next, err := o.WithStatus(status, s.now())
	if err != nil {
		return models.Order{}, err
	}
	if next.Status == o.Status {
		return o, nil
	}
	return s.store(ctx, o, next)
}

func (s *OrderService) store(ctx context.Context, prev, next models.Order) (models.Order, error) {
	if err := s.orders.UpdateStatus(ctx, prev, next); err != nil {
		return models.Order{}, err
	}
	s.invalidateProducts(ctx, next.Items)

	s.metrics.OrderTransitions.Add(ctx, 1, metric.WithAttributes(s.metrics.WithServiceName([]attribute.KeyValue{
		attribute.String("from_status", string(prev.Status)),
		attribute.String("to_status", string(next.Status)),
	})...))
	log.Printf("[ORDER] order_id=%d %s -> %s", next.ID, prev.Status.DisplayName(), next.Status.DisplayName())
	return next, nil
}

// invalidateProducts drops cached products whose stock figures changed.
func (s *OrderService) invalidateProducts(ctx context.Context, items []models.OrderItem) {
	if s.cache == nil {
		return
	}
	ids := make([]int32, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	s.cache.Invalidate(ctx, ids...)
}
