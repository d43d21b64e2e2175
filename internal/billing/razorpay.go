package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/thokbazaar/server/internal/domain"
)

type razorpayProvider struct {
	client    *razorpay.Client
	keySecret string
}

// NewRazorpay creates a Provider backed by the Razorpay Orders API.
// keySecret is also the HMAC key for callback signature verification.
func NewRazorpay(keyID, keySecret string) Provider {
	return &razorpayProvider{
		client:    razorpay.NewClient(keyID, keySecret),
		keySecret: keySecret,
	}
}

func (p *razorpayProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error) {
	const op = "billing.create_order"

	if params.Amount <= 0 {
		return nil, domain.Invalid(op, "Order amount must be greater than 0")
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, op, "Request cancelled")
	}

	data := map[string]interface{}{
		"amount":   params.Amount,
		"currency": params.Currency,
		"receipt":  params.Receipt,
	}
	if len(params.Notes) > 0 {
		data["notes"] = params.Notes
	}

	// The Razorpay SDK does not take a context; the surrounding retry policy
	// bounds total time instead.
	body, err := p.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, domain.Errorf(domain.EINTERNAL, op, "Gateway returned an order without an id")
	}

	order := &GatewayOrder{
		ID:       id,
		Amount:   params.Amount,
		Currency: params.Currency,
	}
	if status, ok := body["status"].(string); ok {
		order.Status = status
	}
	if amount, ok := body["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	return order, nil
}

func (p *razorpayProvider) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) error {
	return VerifyHMAC(p.keySecret, gatewayOrderID, gatewayPaymentID, signature)
}

// VerifyHMAC checks a Razorpay-style payment signature: hex HMAC-SHA256 of
// "orderID|paymentID" keyed by the gateway secret. Comparison is constant
// time.
func VerifyHMAC(secret, gatewayOrderID, gatewayPaymentID, signature string) error {
	if gatewayOrderID == "" || gatewayPaymentID == "" || signature == "" {
		return ErrSignatureInvalid
	}

	expected := SignHMAC(secret, gatewayOrderID, gatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureInvalid
	}
	return nil
}

// SignHMAC computes the signature the gateway would attach to a successful
// payment. Exposed for tests and local development tooling.
func SignHMAC(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
