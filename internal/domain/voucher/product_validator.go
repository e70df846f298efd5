package voucher

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/domain/money"
)

var hundred = decimal.NewFromInt(100)

// ProductDiscount is the outcome of a successful product voucher validation.
type ProductDiscount struct {
	Voucher *ProductVoucher
	Amount  decimal.Decimal
}

// ProductValidator validates product voucher codes against the order
// subtotal and the sellers/product types participating in the cart.
type ProductValidator struct {
	repo ProductRepository
	now  func() time.Time
}

// NewProductValidator creates a ProductValidator backed by the given repository.
func NewProductValidator(repo ProductRepository) *ProductValidator {
	return &ProductValidator{repo: repo, now: time.Now}
}

// Validate canonicalizes the code, looks it up, and checks expiry, usage cap,
// minimum order amount, and seller/type scope in that order. The first
// failing rule wins. On success it returns the computed discount; usage is
// not counted here but at order submission.
func (v *ProductValidator) Validate(
	ctx context.Context,
	code string,
	orderSubtotal decimal.Decimal,
	productTypes []string,
	sellerIDs []string,
) (*ProductDiscount, error) {
	pv, err := v.repo.FindByCode(ctx, Canonicalize(code))
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return nil, ErrInvalidCode
		}
		return nil, errors.Wrap(err, "lookup voucher")
	}
	if !pv.Active {
		return nil, ErrInvalidCode
	}

	now := v.now()
	if pv.ExpiresAt != nil && pv.ExpiresAt.Before(now) {
		return nil, ErrExpired
	}
	if pv.MaxUses > 0 && pv.UsedCount >= pv.MaxUses {
		return nil, ErrUsageLimitReached
	}
	if pv.MinOrderAmount.IsPositive() && orderSubtotal.LessThan(pv.MinOrderAmount) {
		return nil, &MinOrderError{Amount: pv.MinOrderAmount}
	}
	if pv.SellerID != "" && !contains(sellerIDs, pv.SellerID) {
		return nil, ErrNotApplicable
	}
	if len(pv.ProductTypes) > 0 && !intersects(pv.ProductTypes, productTypes) {
		return nil, ErrNotApplicable
	}

	var amount decimal.Decimal
	switch pv.Type {
	case DiscountPercentage:
		amount = orderSubtotal.Mul(pv.Value).Div(hundred)
	case DiscountFixedAmount:
		amount = decimal.Min(pv.Value, orderSubtotal)
	default:
		return nil, errors.Errorf("unsupported product voucher type: %q", pv.Type)
	}
	amount = money.FloorAtZero(amount).Round(2)

	return &ProductDiscount{Voucher: pv, Amount: amount}, nil
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, s := range a {
		if contains(b, s) {
			return true
		}
	}
	return false
}
