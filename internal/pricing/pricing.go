// Package pricing computes authoritative, itemized order totals from catalog
// snapshots. It performs no I/O and is deterministic for identical inputs, so
// a breakdown can be recomputed during verification and compared bit-for-bit.
package pricing

import (
	"math"
	"sort"
	"time"

	"github.com/thokbazaar/server/internal/domain"
)

// Config carries the pricing-relevant server configuration. ShippingBuffer is
// the fixed amount added to retail display prices; it is never discounted and
// never persisted on the product.
type Config struct {
	TaxRate        float64
	ShippingBuffer int64
}

// Line is one priced cart line. Unit price comes strictly from the server-held
// product snapshot, never from client input.
type Line struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Size      string `json:"size,omitempty"`
	Quantity  int32  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
	LineTotal int64  `json:"lineTotal"`
}

// Breakdown is the fully itemized pricing result persisted with an order.
type Breakdown struct {
	Lines         []Line  `json:"lines"`
	Subtotal      int64   `json:"subtotal"`
	TaxRate       float64 `json:"taxRate"`
	Tax           int64   `json:"tax"`
	PromoCode     string  `json:"promoCode,omitempty"`
	PromoDiscount int64   `json:"promoDiscount"`
	Total         int64   `json:"total"`
}

// Calculate prices a cart against product snapshots, tax config, and the
// active combos. Wholesale: subtotal = sum(bundlePrice * bundles), tax =
// round(subtotal * rate), total = subtotal + tax - comboDiscount. Retail unit
// price is basePrice after discount (the shipping buffer is display-only).
func Calculate(cartLines []domain.CartLine, products map[string]domain.Product, combos []domain.Combo, cfg Config, now time.Time) (*Breakdown, error) {
	const op = "pricing.calculate"

	if len(cartLines) == 0 {
		return nil, domain.Invalid(op, "Cart is empty")
	}

	lines := make([]Line, 0, len(cartLines))
	demand := make(map[string]int32, len(cartLines))
	var subtotal int64
	var wholesaleSum int64
	var wholesaleQty int32

	for _, cl := range cartLines {
		if cl.Quantity <= 0 {
			return nil, domain.Invalid(op, "Quantity must be greater than 0")
		}

		product, ok := products[cl.ProductID]
		if !ok {
			return nil, domain.NotFound(op, "product", cl.ProductID)
		}

		// Duplicate lines for the same product draw from the same pool;
		// check the running total, not each line in isolation.
		key := cl.ProductID + "|" + cl.Size
		demand[key] += cl.Quantity
		if product.Available(cl.Size) < demand[key] {
			return nil, domain.Errorf(domain.ECONFLICT, op,
				"Insufficient stock for %s", product.Title)
		}

		unit := UnitPrice(product)
		if cl.ExpectedUnitPrice > 0 && product.IsLocked && cl.ExpectedUnitPrice != unit {
			return nil, domain.Errorf(domain.EINVALID, op,
				"Price changed for %s, refresh your cart", product.Title)
		}

		lineTotal := unit * int64(cl.Quantity)
		lines = append(lines, Line{
			ProductID: product.ID,
			Title:     product.Title,
			Size:      cl.Size,
			Quantity:  cl.Quantity,
			UnitPrice: unit,
			LineTotal: lineTotal,
		})

		subtotal += lineTotal
		if product.Kind == domain.ProductWholesale {
			wholesaleSum += lineTotal
			wholesaleQty += cl.Quantity
		}
	}

	tax := taxOn(subtotal, cfg.TaxRate)

	code, promoDiscount := bestCombo(combos, wholesaleQty, wholesaleSum, now)

	total := subtotal + tax - promoDiscount
	if total < 0 {
		total = 0
	}

	return &Breakdown{
		Lines:         lines,
		Subtotal:      subtotal,
		TaxRate:       cfg.TaxRate,
		Tax:           tax,
		PromoCode:     code,
		PromoDiscount: promoDiscount,
		Total:         total,
	}, nil
}

// UnitPrice resolves the chargeable unit price from a product snapshot:
// the bundle price for wholesale, the discounted base price for retail.
func UnitPrice(p domain.Product) int64 {
	if p.Kind == domain.ProductRetail {
		return ApplyDiscount(p.BasePrice, p.DiscountType, p.DiscountValue)
	}
	return p.BundlePrice
}

// ApplyDiscount adjusts a base price. Percentage values clamp to [0,100];
// flat results clamp to zero.
func ApplyDiscount(base int64, discountType domain.DiscountType, value int64) int64 {
	switch discountType {
	case domain.DiscountPercentage:
		if value < 0 {
			value = 0
		}
		if value > 100 {
			value = 100
		}
		return int64(math.Round(float64(base) * float64(100-value) / 100))
	case domain.DiscountFlat:
		result := base - value
		if result < 0 {
			result = 0
		}
		return result
	default:
		return base
	}
}

// RetailDisplayPrice is the catalog display price: discounted base plus the
// shipping buffer. The buffer is never part of the discount base.
func RetailDisplayPrice(p domain.Product, shippingBuffer int64) int64 {
	return ApplyDiscount(p.BasePrice, p.DiscountType, p.DiscountValue) + shippingBuffer
}

func taxOn(subtotal int64, rate float64) int64 {
	return int64(math.Round(float64(subtotal) * rate))
}

// bestCombo picks the single best (largest discount, i.e. lowest resulting
// total) combo active now whose minimum quantity the cart meets. Ties break
// toward the most recently created combo. The discount never exceeds the
// wholesale line sum.
func bestCombo(combos []domain.Combo, wholesaleQty int32, wholesaleSum int64, now time.Time) (string, int64) {
	// Deterministic scan order regardless of storage order.
	sorted := make([]domain.Combo, len(combos))
	copy(sorted, combos)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var code string
	var best int64
	for _, c := range sorted {
		if !c.ActiveAt(now) || wholesaleQty < c.MinQuantity {
			continue
		}
		discount := wholesaleSum - c.ComboPrice
		if discount <= 0 {
			continue
		}
		if discount > wholesaleSum {
			discount = wholesaleSum
		}
		// >= so a later-created combo wins ties.
		if discount >= best {
			best = discount
			code = c.Code
		}
	}
	return code, best
}
