// Package events publishes order lifecycle notifications. Publishing is
// fire-and-forget: checkout correctness never depends on a broker being up.
package events

import (
	"context"
	"time"
)

// Subjects for order lifecycle events.
const (
	SubjectOrderPlaced  = "orders.placed"
	SubjectOrderPaid    = "orders.paid"
	SubjectOrderFailed  = "orders.failed"
	SubjectOrderStatus  = "orders.status"
	SubjectStockExpired = "orders.reservation_expired"
)

// OrderEvent is the payload carried on every order subject.
type OrderEvent struct {
	OrderID       string    `json:"orderId"`
	UserID        string    `json:"userId,omitempty"`
	OrderStatus   string    `json:"orderStatus,omitempty"`
	PaymentStatus string    `json:"paymentStatus,omitempty"`
	Total         int64     `json:"total,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher pushes order events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, subject string, event OrderEvent) error
}
