package domain

import (
	"time"
)

// ReservationState tracks the lifecycle of a stock hold.
type ReservationState string

const (
	// ReservationHeld means stock is decremented but the order is unpaid.
	ReservationHeld ReservationState = "held"

	// ReservationCommitted means payment succeeded; the decrement is permanent.
	ReservationCommitted ReservationState = "committed"

	// ReservationReleased means stock was returned (failure, cancel, or expiry).
	ReservationReleased ReservationState = "released"
)

// ReservedLine is one product's share of a hold.
type ReservedLine struct {
	ProductID string `json:"productId" firestore:"productId"`
	Size      string `json:"size,omitempty" firestore:"size"`
	Quantity  int32  `json:"quantity" firestore:"quantity"`
}

// Reservation is a temporary stock hold created at checkout start. Holds past
// ExpiresAt are swept back into availability; callers must not assume
// indefinite holds.
type Reservation struct {
	ID        string           `json:"id" firestore:"id"`
	OrderID   string           `json:"orderId" firestore:"orderId"`
	Lines     []ReservedLine   `json:"lines" firestore:"lines"`
	State     ReservationState `json:"state" firestore:"state"`
	ExpiresAt time.Time        `json:"expiresAt" firestore:"expiresAt"`
	CreatedAt time.Time        `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt" firestore:"updatedAt"`
}

// Expired reports whether a held reservation has passed its window.
func (r *Reservation) Expired(now time.Time) bool {
	return r.State == ReservationHeld && now.After(r.ExpiresAt)
}
