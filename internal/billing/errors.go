package billing

import (
	"github.com/thokbazaar/server/internal/domain"
)

var (
	// ErrGatewayUnavailable means the gateway could not be reached or
	// returned a transient failure. Callers may retry.
	ErrGatewayUnavailable = domain.Errorf(domain.EUNAVAILABLE, "billing.create_order", "Payment gateway is unavailable")

	// ErrSignatureInvalid means the payment claim is not vouched for by the
	// gateway. Never retryable.
	ErrSignatureInvalid = domain.Errorf(domain.EPAYMENT, "billing.verify_signature", "Payment signature verification failed")
)
