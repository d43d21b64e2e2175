package handler

import (
	"net/http"

	"github.com/thokbazaar/server/internal/auth"
	"github.com/thokbazaar/server/internal/domain"
	"github.com/thokbazaar/server/internal/service"
)

// OrdersHandler serves order retrieval and admin order management.
type OrdersHandler struct {
	orders service.OrderService
}

// NewOrdersHandler creates a new OrdersHandler.
func NewOrdersHandler(orders service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

type applyDiscountRequest struct {
	Amount int64  `json:"amount" validate:"gte=0"`
	Reason string `json:"reason" validate:"required,min=10"`
}

// List handles GET /api/orders, returning the caller's own orders.
func (h *OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	orders, err := h.orders.ListByUser(r.Context(), principal.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, orders)
}

// Get handles GET /api/orders/{id}. Owners and admins only.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	order, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if order.UserID != principal.UserID && !principal.IsAdmin() {
		respondError(w, r, service.ErrNotOrderOwner)
		return
	}
	respondData(w, r, order)
}

// UpdateStatus handles PATCH /api/admin/orders/{id}/status.
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), domain.OrderStatus(req.Status), req.Notes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, order)
}

// ApplyDiscount handles POST /api/admin/orders/{id}/discount.
func (h *OrdersHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req applyDiscountRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	order, err := h.orders.ApplyAdminDiscount(r.Context(), r.PathValue("id"), req.Amount, req.Reason)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, order)
}
