package domain

import (
	"time"
)

// Combo is a promotional rule: when the cart's wholesale bundle count reaches
// MinQuantity while the combo is active, ComboPrice replaces the wholesale
// line sum. An order references an applied combo by value (code + discount),
// frozen at order time.
type Combo struct {
	ID          string     `json:"id" firestore:"id"`
	Code        string     `json:"code" firestore:"code"`
	Description string     `json:"description,omitempty" firestore:"description"`
	MinQuantity int32      `json:"minQuantity" firestore:"minQuantity"`
	ComboPrice  int64      `json:"comboPrice" firestore:"comboPrice"`
	Active      bool       `json:"active" firestore:"active"`
	StartDate   time.Time  `json:"startDate" firestore:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty" firestore:"endDate"`
	UsageCount  int64      `json:"usageCount" firestore:"usageCount"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt"`
}

// ActiveAt reports whether the combo can be applied at the given instant.
// A nil EndDate means no expiry.
func (c *Combo) ActiveAt(now time.Time) bool {
	if !c.Active {
		return false
	}
	if now.Before(c.StartDate) {
		return false
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return false
	}
	return true
}
