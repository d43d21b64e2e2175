package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// MockProvider is a billing provider for testing. Simulates gateway order
// creation and signature verification without calling the Razorpay API.
type MockProvider struct {
	// CreateOrderFunc allows customizing order creation behavior
	CreateOrderFunc func(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error)

	// VerifySignatureFunc allows customizing signature verification behavior
	VerifySignatureFunc func(gatewayOrderID, gatewayPaymentID, signature string) error

	// Secret is the HMAC key the default verification uses. Tests can sign
	// with Sign to produce valid callbacks.
	Secret string

	// Orders stores created gateway orders for retrieval
	Orders map[string]*GatewayOrder

	// CallLog tracks method calls for test assertions
	CallLog []string
}

// NewMockProvider creates a new mock billing provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Secret:  "test-secret",
		Orders:  make(map[string]*GatewayOrder),
		CallLog: []string{},
	}
}

// CreateOrder creates a mock gateway order.
func (m *MockProvider) CreateOrder(ctx context.Context, params CreateOrderParams) (*GatewayOrder, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateOrder(%d, %s)", params.Amount, params.Currency))

	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, params)
	}

	order := &GatewayOrder{
		ID:       "order_" + uuid.New().String()[:8],
		Amount:   params.Amount,
		Currency: params.Currency,
		Status:   "created",
	}
	m.Orders[order.ID] = order
	return order, nil
}

// VerifySignature verifies against Secret using the real HMAC scheme.
func (m *MockProvider) VerifySignature(gatewayOrderID, gatewayPaymentID, signature string) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("VerifySignature(%s, %s)", gatewayOrderID, gatewayPaymentID))

	if m.VerifySignatureFunc != nil {
		return m.VerifySignatureFunc(gatewayOrderID, gatewayPaymentID, signature)
	}

	return VerifyHMAC(m.Secret, gatewayOrderID, gatewayPaymentID, signature)
}

// Sign produces a signature the default VerifySignature accepts.
func (m *MockProvider) Sign(gatewayOrderID, gatewayPaymentID string) string {
	return SignHMAC(m.Secret, gatewayOrderID, gatewayPaymentID)
}
