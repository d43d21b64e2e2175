package handler

import (
	"net/http"

	"github.com/thokbazaar/server/internal/auth"
	"github.com/thokbazaar/server/internal/domain"
	"github.com/thokbazaar/server/internal/service"
)

// CheckoutHandler serves the checkout pipeline endpoints.
type CheckoutHandler struct {
	checkout service.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkout service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type cartLineRequest struct {
	ProductID         string `json:"productId" validate:"required"`
	Size              string `json:"size"`
	Quantity          int32  `json:"quantity" validate:"required,gt=0"`
	ExpectedUnitPrice int64  `json:"expectedUnitPrice" validate:"omitempty,gt=0"`
}

type addressRequest struct {
	FullName   string `json:"fullName" validate:"required"`
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country" validate:"required,len=2"`
	Phone      string `json:"phone"`
}

type calculateRequest struct {
	Lines []cartLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type placeRequest struct {
	Lines   []cartLineRequest `json:"lines" validate:"required,min=1,dive"`
	Address addressRequest    `json:"address" validate:"required"`
}

type confirmRequest struct {
	OrderID          string `json:"orderId" validate:"required"`
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// Calculate handles POST /api/checkout/calculate.
func (h *CheckoutHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	breakdown, err := h.checkout.Calculate(r.Context(), cartLines(req.Lines))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, breakdown)
}

// Place handles POST /api/checkout/place.
func (h *CheckoutHandler) Place(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req placeRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.checkout.Place(r.Context(), principal.UserID, cartLines(req.Lines), domain.Address{
		FullName:   req.Address.FullName,
		Line1:      req.Address.Line1,
		Line2:      req.Address.Line2,
		City:       req.Address.City,
		State:      req.Address.State,
		PostalCode: req.Address.PostalCode,
		Country:    req.Address.Country,
		Phone:      req.Address.Phone,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, result)
}

// Confirm handles POST /api/checkout/confirm. Admins may confirm on behalf
// of any user; customers only their own orders.
func (h *CheckoutHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFromContext(r.Context())

	var req confirmRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	ownerID := principal.UserID
	if principal.IsAdmin() {
		ownerID = ""
	}

	order, err := h.checkout.ConfirmPayment(r.Context(), ownerID, req.OrderID, req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondData(w, r, order)
}

func cartLines(reqs []cartLineRequest) []domain.CartLine {
	lines := make([]domain.CartLine, 0, len(reqs))
	for _, l := range reqs {
		lines = append(lines, domain.CartLine{
			ProductID:         l.ProductID,
			Size:              l.Size,
			Quantity:          l.Quantity,
			ExpectedUnitPrice: l.ExpectedUnitPrice,
		})
	}
	return lines
}
