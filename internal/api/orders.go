package api

import (
	"net/http"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
	"github.com/SigNoz/ecommerce-rest-api/internal/services"
)

// CreateOrderHandler handles POST /api/orders
func (a *App) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req services.PlaceOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err := a.orderService.PlaceOrder(r.Context(), user.ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// ListOrdersHandler handles GET /api/orders
func (a *App) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	user, err := a.currentUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	orders, err := a.orderService.ListUserOrders(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrderHandler handles GET /api/orders/{id}
func (a *App) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, _, err := a.visibleOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// AdvanceOrderHandler handles POST /api/orders/{id}/advance. Fulfilment
// (confirm, ship, deliver) is for administrators; owners may only cancel.
func (a *App) AdvanceOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, caller, err := a.visibleOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !caller.IsAdmin() {
		writeError(w, r, apperrors.Forbidden("Only administrators can advance orders"))
		return
	}

	order, err = a.orderService.AdvanceOrder(r.Context(), order.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// CancelOrderHandler handles POST /api/orders/{id}/cancel
func (a *App) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	order, _, err := a.visibleOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	order, err = a.orderService.CancelOrder(r.Context(), order.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// visibleOrder loads the {id} order and the caller if the caller owns it
// or is an administrator. Other callers get the same 404 as for a missing order.
func (a *App) visibleOrder(r *http.Request) (models.Order, models.User, error) {
	id, err := pathID(r, "Invalid order ID")
	if err != nil {
		return models.Order{}, models.User{}, err
	}
	user, err := a.currentUser(r)
	if err != nil {
		return models.Order{}, models.User{}, err
	}

	order, err := a.orderService.GetOrder(r.Context(), id)
	if err != nil {
		return models.Order{}, models.User{}, err
	}
	if order.UserID != user.ID && !user.IsAdmin() {
		return models.Order{}, models.User{}, apperrors.NotFound("Order not found")
	}
	return order, user, nil
}
