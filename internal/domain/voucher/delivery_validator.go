package voucher

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/domain/money"
)

// DeliveryDiscount is the outcome of a successful delivery voucher validation.
type DeliveryDiscount struct {
	Voucher *DeliveryVoucher
	Amount  decimal.Decimal
}

// DeliveryValidator validates delivery voucher codes against the voucher
// list, the total delivery fee, and the order subtotal.
type DeliveryValidator struct {
	repo DeliveryRepository
	now  func() time.Time
}

// NewDeliveryValidator creates a DeliveryValidator backed by the given repository.
func NewDeliveryValidator(repo DeliveryRepository) *DeliveryValidator {
	return &DeliveryValidator{repo: repo, now: time.Now}
}

// Validate runs the eligibility rules in order; the first failure wins:
// matching active code, expiry, usage cap, minimum order amount. The
// computed discount never exceeds the total delivery fee.
func (v *DeliveryValidator) Validate(
	ctx context.Context,
	code string,
	totalDeliveryFee decimal.Decimal,
	orderSubtotal decimal.Decimal,
) (*DeliveryDiscount, error) {
	vouchers, err := v.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list delivery vouchers")
	}

	canonical := Canonicalize(code)
	var dv *DeliveryVoucher
	for i := range vouchers {
		if Canonicalize(vouchers[i].Code) == canonical && vouchers[i].Active {
			dv = &vouchers[i]
			break
		}
	}
	if dv == nil {
		return nil, ErrInvalidDeliveryCode
	}

	now := v.now()
	if dv.ExpiresAt != nil && dv.ExpiresAt.Before(now) {
		return nil, ErrDeliveryExpired
	}
	if dv.MaxUses > 0 && dv.UsedCount >= dv.MaxUses {
		return nil, ErrDeliveryUsageLimit
	}
	if dv.MinOrderAmount.IsPositive() && orderSubtotal.LessThan(dv.MinOrderAmount) {
		return nil, &MinOrderError{Amount: dv.MinOrderAmount}
	}

	var amount decimal.Decimal
	switch dv.Type {
	case DiscountPercentage:
		amount = totalDeliveryFee.Mul(dv.Value).Div(hundred)
	case DiscountFixedAmount:
		amount = decimal.Min(dv.Value, totalDeliveryFee)
	case DiscountFreeShipping:
		amount = totalDeliveryFee
	default:
		return nil, errors.Errorf("unsupported delivery voucher type: %q", dv.Type)
	}

	// Never discount more than the fee itself.
	amount = decimal.Min(amount, totalDeliveryFee)
	amount = money.FloorAtZero(amount).Round(2)

	return &DeliveryDiscount{Voucher: dv, Amount: amount}, nil
}
