// Package voucher implements the two independently-stacked voucher classes:
// product vouchers discounting the item subtotal and delivery vouchers
// discounting the aggregate delivery fee.
package voucher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported voucher discount strategies.
type DiscountType string

const (
	// DiscountPercentage discounts a percentage of the target amount.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFixedAmount discounts a fixed amount, capped at the target.
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
	// DiscountFreeShipping waives the entire delivery fee. Delivery vouchers only.
	DiscountFreeShipping DiscountType = "FREE_SHIPPING"
)

// Validation errors carry the exact user-facing messages; handlers surface
// them verbatim.
var (
	ErrInvalidCode         = errors.New("Invalid voucher code.")
	ErrExpired             = errors.New("Voucher has expired.")
	ErrUsageLimitReached   = errors.New("Voucher usage limit reached.")
	ErrNotApplicable       = errors.New("Voucher is not valid for the items in your cart.")
	ErrInvalidDeliveryCode = errors.New("Invalid delivery voucher code.")
	ErrDeliveryExpired     = errors.New("Delivery voucher has expired.")
	ErrDeliveryUsageLimit  = errors.New("Delivery voucher usage limit reached.")
)

// MinOrderError indicates the order subtotal is below the voucher's minimum.
type MinOrderError struct {
	Amount decimal.Decimal
}

func (e *MinOrderError) Error() string {
	return fmt.Sprintf("Minimum order amount for this voucher is %s.", e.Amount)
}

// ProductVoucher discounts the item subtotal, optionally scoped to one
// issuing seller and a set of product types.
type ProductVoucher struct {
	Code           string
	Type           DiscountType
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	SellerID       string   // empty means platform-wide
	ProductTypes   []string // empty means all types
	ExpiresAt      *time.Time
	UsedCount      int
	MaxUses        int // zero means unlimited
	Active         bool
}

// DeliveryVoucher discounts the aggregate delivery fee only. Its discount is
// always clamped so it never exceeds the fee being discounted.
type DeliveryVoucher struct {
	Code           string
	Type           DiscountType
	Value          decimal.Decimal
	MinOrderAmount decimal.Decimal
	ExpiresAt      *time.Time
	UsedCount      int
	MaxUses        int // zero means unlimited
	Active         bool
}

// Canonicalize normalizes a voucher code for lookup: trimmed, uppercase.
func Canonicalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ProductRepository provides lookup and mutation of product vouchers.
type ProductRepository interface {
	// FindByCode looks up an active voucher by canonicalized code, returning
	// ErrInvalidCode when no match exists.
	FindByCode(ctx context.Context, code string) (*ProductVoucher, error)
	ListActive(ctx context.Context) ([]ProductVoucher, error)
	IncrementUses(ctx context.Context, code string) error
}

// DeliveryRepository provides the active delivery voucher list and usage
// tracking.
type DeliveryRepository interface {
	List(ctx context.Context) ([]DeliveryVoucher, error)
	IncrementUses(ctx context.Context, code string) error
}
