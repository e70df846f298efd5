package checkout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/domain/cart"
	"github.com/kukusoko/checkout-engine/internal/domain/money"
)

// Totals is the composed money breakdown for a checkout.
type Totals struct {
	Subtotal         decimal.Decimal
	ProductDiscount  decimal.Decimal
	DeliveryFeeGross decimal.Decimal
	DeliveryDiscount decimal.Decimal
	DeliveryFeeNet   decimal.Decimal
	GrandTotal       decimal.Decimal
}

// Subtotal sums effective price times quantity over all validated items in a
// single running total.
func Subtotal(items []cart.ValidatedItem, now time.Time) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		qty := decimal.NewFromInt(int64(it.Quantity))
		sum = sum.Add(it.Product.EffectivePrice(now).Mul(qty))
	}
	return sum
}

// ComposeTotals combines the subtotal, product voucher discount, gross
// delivery fee, and delivery voucher discount into the final breakdown.
//
// The net fee is clamped and rounded first; the grand total is then computed
// from the already-rounded net fee and rounded again. The rounding rule is
// not associative, so this two-stage order is part of the contract: charged
// payment amounts derive from GrandTotal.
func ComposeTotals(subtotal, productDiscount, deliveryFeeGross, deliveryDiscount decimal.Decimal) Totals {
	net := money.Round(money.FloorAtZero(deliveryFeeGross.Sub(deliveryDiscount)))
	grand := money.Round(money.FloorAtZero(subtotal.Sub(productDiscount).Add(net)))

	return Totals{
		Subtotal:         subtotal,
		ProductDiscount:  productDiscount,
		DeliveryFeeGross: deliveryFeeGross,
		DeliveryDiscount: deliveryDiscount,
		DeliveryFeeNet:   net,
		GrandTotal:       grand,
	}
}
