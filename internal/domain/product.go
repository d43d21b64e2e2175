package domain

import (
	"time"
)

// ProductKind distinguishes the two storefront catalogs.
type ProductKind string

const (
	// ProductWholesale is sold in fixed-composition bundles at a bundle price.
	ProductWholesale ProductKind = "wholesale"

	// ProductRetail is sold per piece with optional discounting.
	ProductRetail ProductKind = "retail"
)

// DiscountType describes how a retail product's base price is adjusted.
type DiscountType string

const (
	DiscountNone       DiscountType = "none"
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

// Product is the catalog snapshot the pricing engine reads. All monetary
// amounts are integer paise. Stock fields are mutated only by the inventory
// ledger; IsLocked flips true on the first committed reservation and is never
// unset, freezing composition and price for historical order integrity.
type Product struct {
	ID       string      `json:"id" firestore:"id"`
	Title    string      `json:"title" firestore:"title"`
	Category string      `json:"category" firestore:"category"`
	Kind     ProductKind `json:"kind" firestore:"kind"`

	// Wholesale fields.
	BundleQty         int32            `json:"bundleQty,omitempty" firestore:"bundleQty"`
	BundleComposition map[string]int32 `json:"bundleComposition,omitempty" firestore:"bundleComposition"`
	BundlePrice       int64            `json:"bundlePrice,omitempty" firestore:"bundlePrice"`
	AvailableBundles  int32            `json:"availableBundles" firestore:"availableBundles"`
	IsLocked          bool             `json:"isLocked" firestore:"isLocked"`

	// Retail fields.
	BasePrice     int64            `json:"basePrice,omitempty" firestore:"basePrice"`
	DiscountType  DiscountType     `json:"discountType,omitempty" firestore:"discountType"`
	DiscountValue int64            `json:"discountValue,omitempty" firestore:"discountValue"`
	StockBySize   map[string]int32 `json:"stockBySize,omitempty" firestore:"stockBySize"`
	StyleCode     string           `json:"styleCode,omitempty" firestore:"styleCode"`
	Color         string           `json:"color,omitempty" firestore:"color"`

	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// Validate checks structural invariants for a catalog snapshot.
func (p *Product) Validate() error {
	const op = "product.validate"

	if p.ID == "" {
		return Invalid(op, "Product ID is required")
	}

	switch p.Kind {
	case ProductWholesale:
		if p.BundleQty <= 0 {
			return Invalid(op, "Bundle quantity must be greater than 0")
		}
		if p.BundlePrice <= 0 {
			return Invalid(op, "Bundle price must be greater than 0")
		}
		var sum int32
		for _, n := range p.BundleComposition {
			if n < 0 {
				return Invalid(op, "Bundle composition counts must not be negative")
			}
			sum += n
		}
		if sum != p.BundleQty {
			return Invalid(op, "Bundle composition must sum to the bundle quantity")
		}
		if p.AvailableBundles < 0 {
			return Invalid(op, "Available bundles must not be negative")
		}
	case ProductRetail:
		if p.BasePrice <= 0 {
			return Invalid(op, "Base price must be greater than 0")
		}
		switch p.DiscountType {
		case DiscountNone, DiscountPercentage, DiscountFlat, "":
		default:
			return Invalid(op, "Unknown discount type")
		}
	default:
		return Invalid(op, "Unknown product kind")
	}

	return nil
}

// Available reports the sellable stock for a product. For retail products the
// size selects the per-size counter; wholesale products ignore it.
func (p *Product) Available(size string) int32 {
	if p.Kind == ProductRetail {
		return p.StockBySize[size]
	}
	return p.AvailableBundles
}

// CartLine is a client-submitted line item. Quantity is bundles for wholesale
// products and pieces for retail ones. ExpectedUnitPrice, when non-zero, is
// the price the client last displayed; it is never used for charging, only to
// reject stale carts against locked products.
type CartLine struct {
	ProductID         string `json:"productId"`
	Size              string `json:"size,omitempty"`
	Quantity          int32  `json:"quantity"`
	ExpectedUnitPrice int64  `json:"expectedUnitPrice,omitempty"`
}
