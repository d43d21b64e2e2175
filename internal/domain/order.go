package domain

import (
	"time"
)

// OrderStatus is the fulfillment axis of an order's lifecycle.
type OrderStatus string

const (
	OrderPlaced     OrderStatus = "placed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// PaymentStatus is the payment axis, independent of fulfillment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// orderSuccessors encodes the legal fulfillment transitions. Cancelled is
// reachable from every pre-delivered state; delivered and cancelled are
// terminal.
var orderSuccessors = map[OrderStatus][]OrderStatus{
	OrderPlaced:     {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered, OrderCancelled},
	OrderDelivered:  {},
	OrderCancelled:  {},
}

// CanTransitionTo reports whether to is a legal successor of s.
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range orderSuccessors[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := orderSuccessors[s]
	return ok
}

// CanTransitionTo reports whether to is a legal payment successor of s.
// Paid and failed are terminal.
func (s PaymentStatus) CanTransitionTo(to PaymentStatus) bool {
	if s != PaymentPending {
		return false
	}
	return to == PaymentPaid || to == PaymentFailed
}

// StatusEntry is one append-only record in an order's status history. Both
// axes are captured together so the history reads as a complete timeline.
type StatusEntry struct {
	OrderStatus   OrderStatus   `json:"orderStatus" firestore:"orderStatus"`
	PaymentStatus PaymentStatus `json:"paymentStatus" firestore:"paymentStatus"`
	ChangedAt     time.Time     `json:"changedAt" firestore:"changedAt"`
	Notes         string        `json:"notes,omitempty" firestore:"notes"`
}

// OrderItem is a frozen snapshot of one ordered line. Unit price is captured
// at order time and is immune to later product edits.
type OrderItem struct {
	ProductID string `json:"productId" firestore:"productId"`
	Title     string `json:"title" firestore:"title"`
	Size      string `json:"size,omitempty" firestore:"size"`
	Quantity  int32  `json:"quantity" firestore:"quantity"`
	UnitPrice int64  `json:"unitPrice" firestore:"unitPrice"`
	LineTotal int64  `json:"lineTotal" firestore:"lineTotal"`
}

// Address is the shipping destination captured on the order.
type Address struct {
	FullName   string `json:"fullName" firestore:"fullName"`
	Line1      string `json:"line1" firestore:"line1"`
	Line2      string `json:"line2,omitempty" firestore:"line2"`
	City       string `json:"city" firestore:"city"`
	State      string `json:"state" firestore:"state"`
	PostalCode string `json:"postalCode" firestore:"postalCode"`
	Country    string `json:"country" firestore:"country"`
	Phone      string `json:"phone,omitempty" firestore:"phone"`
}

// Order is the persisted checkout result. Created once per checkout attempt,
// mutated only through state machine transitions, never deleted.
// Invariant: Total == Subtotal + Tax - PromoDiscount - AdminDiscount, floored at 0.
type Order struct {
	ID     string      `json:"id" firestore:"id"`
	UserID string      `json:"userId" firestore:"userId"`
	Items  []OrderItem `json:"items" firestore:"items"`

	Subtotal       int64   `json:"subtotal" firestore:"subtotal"`
	TaxRate        float64 `json:"taxRate" firestore:"taxRate"`
	Tax            int64   `json:"tax" firestore:"tax"`
	PromoCode      string  `json:"promoCode,omitempty" firestore:"promoCode"`
	PromoDiscount  int64   `json:"promoDiscount" firestore:"promoDiscount"`
	AdminDiscount  int64   `json:"adminDiscount" firestore:"adminDiscount"`
	DiscountReason string  `json:"discountReason,omitempty" firestore:"discountReason"`
	Total          int64   `json:"total" firestore:"total"`

	Address       Address       `json:"address" firestore:"address"`
	OrderStatus   OrderStatus   `json:"orderStatus" firestore:"orderStatus"`
	PaymentStatus PaymentStatus `json:"paymentStatus" firestore:"paymentStatus"`
	StatusHistory []StatusEntry `json:"statusHistory" firestore:"statusHistory"`

	ReservationID    string `json:"reservationId" firestore:"reservationId"`
	GatewayOrderID   string `json:"gatewayOrderId" firestore:"gatewayOrderId"`
	GatewayPaymentID string `json:"gatewayPaymentId,omitempty" firestore:"gatewayPaymentId"`
	GatewaySignature string `json:"gatewaySignature,omitempty" firestore:"gatewaySignature"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// RecomputeTotal re-derives Total from the frozen breakdown and current
// discounts, clamped at zero.
func (o *Order) RecomputeTotal() {
	total := o.Subtotal + o.Tax - o.PromoDiscount - o.AdminDiscount
	if total < 0 {
		total = 0
	}
	o.Total = total
}

// DiscountableAmount is the maximum admin discount that keeps Total non-negative.
func (o *Order) DiscountableAmount() int64 {
	return o.Subtotal + o.Tax - o.PromoDiscount
}

// AppendHistory records the current status pair with a timestamp and note.
func (o *Order) AppendHistory(at time.Time, notes string) {
	o.StatusHistory = append(o.StatusHistory, StatusEntry{
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		ChangedAt:     at,
		Notes:         notes,
	})
	o.UpdatedAt = at
}
