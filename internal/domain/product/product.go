// Package product defines the catalog entities consumed by the checkout flow.
package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// DiscountType enumerates the supported product discount strategies.
type DiscountType string

const (
	// DiscountPercentage reduces the unit price by a percentage.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFixedAmount reduces the unit price by a fixed amount.
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

// Discount describes a time-bounded price reduction attached to a product.
// It only affects the effective price while Active and inside the
// [StartsAt, EndsAt] window.
type Discount struct {
	Type     DiscountType
	Amount   decimal.Decimal
	StartsAt time.Time
	EndsAt   time.Time
	Active   bool
}

// Product is a catalog item offered by a single seller.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Stock    int
	SellerID string
	Type     string
	IsActive bool
	Discount *Discount
}

// EffectivePrice returns the unit price with any active discount applied,
// clamped at zero. A discount outside its validity window, or marked
// inactive, leaves the base price untouched.
func (p Product) EffectivePrice(now time.Time) decimal.Decimal {
	d := p.Discount
	if d == nil || !d.Active {
		return p.Price
	}
	if now.Before(d.StartsAt) || now.After(d.EndsAt) {
		return p.Price
	}

	var price decimal.Decimal
	switch d.Type {
	case DiscountPercentage:
		price = p.Price.Sub(p.Price.Mul(d.Amount).Div(hundred))
	case DiscountFixedAmount:
		price = p.Price.Sub(d.Amount)
	default:
		return p.Price
	}

	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

var hundred = decimal.NewFromInt(100)

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
