// Package delivery models per-seller delivery quotes and the boundary to the
// logistics service that owns the county-to-fee mapping.
package delivery

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrCannotProceed is returned when the logistics service reports that no
// order can be delivered to the requested location. The checkout flow must
// not advance past delivery review while this holds.
var ErrCannotProceed = errors.New("order cannot proceed to this location")

// CannotProceedError carries the logistics service's blocking message. It
// unwraps to ErrCannotProceed.
type CannotProceedError struct {
	Message string
}

func (e *CannotProceedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrCannotProceed.Error()
}

func (e *CannotProceedError) Unwrap() error { return ErrCannotProceed }

// Location identifies a delivery destination at county granularity.
type Location struct {
	County   string
	Province string
}

// Option is a seller-scoped delivery quote: whether that seller's portion of
// the cart can reach the location, what it costs, and how it would be
// fulfilled. Options are rebuilt from scratch on every location change and
// never persisted on their own.
type Option struct {
	SellerID       string
	SellerRole     string
	ItemIDs        []string
	Subtotal       decimal.Decimal
	Deliverable    bool
	Fee            decimal.Decimal
	FreeDelivery   bool
	PaymentMethods []string
	Message        string
	// PlatformFulfilled marks options carried by the marketplace's own
	// delivery network rather than the seller directly.
	PlatformFulfilled bool
}

// QuoteItem is one cart line sent to the logistics service.
type QuoteItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
	SellerID  string
}

// QuoteRequest asks for per-seller delivery options to one location.
type QuoteRequest struct {
	Items    []QuoteItem
	Location Location
}

// QuoteResult is the logistics service's answer. CanProceed=false is a hard
// stop regardless of individual option contents; Message carries the
// user-facing explanation.
type QuoteResult struct {
	Options    []Option
	CanProceed bool
	Message    string
}

// TotalFee sums the delivery fee across all options.
func (r *QuoteResult) TotalFee() decimal.Decimal {
	total := decimal.Zero
	for _, opt := range r.Options {
		total = total.Add(opt.Fee)
	}
	return total
}

// Quoter is the boundary to the logistics service. Implementations decide
// deliverability, fees, free-delivery eligibility, and accepted payment
// methods per seller; the checkout core only consumes the result.
type Quoter interface {
	Quote(ctx context.Context, req QuoteRequest) (*QuoteResult, error)
}
