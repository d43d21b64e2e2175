// Package billing abstracts the payment gateway. The orchestrator creates a
// gateway order before taking money and verifies the gateway's signature
// before trusting any payment claim.
package billing

import (
	"context"
)

// CreateOrderParams describes the gateway order for one checkout attempt.
// Amount is integer paise.
type CreateOrderParams struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]interface{}
}

// GatewayOrder is the gateway's handle for a pending payment. The client pays
// against GatewayOrder.ID and the gateway signs that id into the callback.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// Provider is the payment gateway surface the checkout flow depends on.
type Provider interface {
	// CreateOrder registers a pending payment with the gateway.
	CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error)

	// VerifySignature checks that the gateway vouches for paymentID settling
	// orderID. Returns ErrSignatureInvalid on mismatch.
	VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) error
}
