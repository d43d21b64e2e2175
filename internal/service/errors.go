package service

import (
	"github.com/thokbazaar/server/internal/domain"
)

// Lookup errors - use domain.ENOTFOUND
var (
	ErrOrderNotFound   = domain.Errorf(domain.ENOTFOUND, "", "Order not found")
	ErrProductNotFound = domain.Errorf(domain.ENOTFOUND, "", "Product not found")
)

// Validation errors - use domain.EINVALID
var (
	ErrEmptyCart              = domain.Errorf(domain.EINVALID, "", "Cart is empty")
	ErrInvalidQuantity        = domain.Errorf(domain.EINVALID, "", "Quantity must be greater than 0")
	ErrInvalidStatus          = domain.Errorf(domain.EINVALID, "", "Unknown order status")
	ErrDiscountReasonTooShort = domain.Errorf(domain.EINVALID, "", "Discount reason must be at least 10 characters")
	ErrDiscountExceedsOrder   = domain.Errorf(domain.EINVALID, "", "Discount exceeds the discountable amount")
	ErrNegativeDiscount       = domain.Errorf(domain.EINVALID, "", "Discount must not be negative")
)

// State machine errors - use domain.ECONFLICT
var (
	ErrInvalidTransition    = domain.Errorf(domain.ECONFLICT, "", "Order status transition not allowed")
	ErrPaymentFinal         = domain.Errorf(domain.ECONFLICT, "", "Payment status is already final")
	ErrOrderNotDiscountable = domain.Errorf(domain.ECONFLICT, "", "Order can no longer be discounted")
	ErrInsufficientStock    = domain.Errorf(domain.ECONFLICT, "", "Insufficient stock for one or more items")
)

// Payment errors - use domain.EPAYMENT
var (
	ErrGatewayOrderMismatch = domain.Errorf(domain.EPAYMENT, "", "Payment does not belong to this order")
	ErrSignatureRejected    = domain.Errorf(domain.EPAYMENT, "", "Payment signature verification failed")
)

// Access errors
var (
	ErrNotOrderOwner = domain.Errorf(domain.EFORBIDDEN, "", "Order belongs to another user")
)
