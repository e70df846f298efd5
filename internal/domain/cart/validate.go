package cart

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/kukusoko/checkout-engine/internal/domain/product"
)

// Re-validation reasons surfaced per dropped item.
const (
	ReasonUnavailable     = "product is no longer available"
	ReasonPriceChanged    = "product price has changed"
	ReasonSellerChanged   = "product seller has changed"
	ReasonInvalidQuantity = "quantity must be at least 1"
)

// Validator re-verifies cart snapshots against the live catalog before
// checkout is allowed to proceed.
type Validator struct {
	products product.Repository
}

// NewValidator creates a Validator backed by the given product repository.
func NewValidator(products product.Repository) *Validator {
	return &Validator{products: products}
}

// itemOutcome holds the result slot for one cart line. Exactly one of the
// two pointers is set after a successful check.
type itemOutcome struct {
	valid   *ValidatedItem
	invalid *InvalidItem
}

// Revalidate fetches the current catalog state for every cart line
// concurrently and compares it against the client snapshot. Items whose
// price, seller, or active status no longer match are excluded with a
// per-item reason; surviving items keep their original order. One stale item
// degrades that item only, but a cart reduced to zero valid items returns
// ErrNoValidItems.
func (v *Validator) Revalidate(ctx context.Context, items []Item) ([]ValidatedItem, []InvalidItem, error) {
	if len(items) == 0 {
		return nil, nil, ErrNoValidItems
	}

	results := make([]itemOutcome, len(items))

	// One fetch per line item; each goroutine writes only its own slot.
	g, ctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			res, err := v.checkItem(ctx, item)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, errors.Wrap(err, "revalidate cart")
	}

	valid := make([]ValidatedItem, 0, len(items))
	var invalid []InvalidItem
	for _, res := range results {
		switch {
		case res.valid != nil:
			valid = append(valid, *res.valid)
		case res.invalid != nil:
			invalid = append(invalid, *res.invalid)
		}
	}

	if len(valid) == 0 {
		return nil, invalid, ErrNoValidItems
	}
	return valid, invalid, nil
}

func (v *Validator) checkItem(ctx context.Context, item Item) (itemOutcome, error) {
	reject := func(reason string) (itemOutcome, error) {
		return itemOutcome{invalid: &InvalidItem{ProductID: item.ProductID, Reason: reason}}, nil
	}

	if item.Quantity < 1 {
		return reject(ReasonInvalidQuantity)
	}

	p, err := v.products.GetByID(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return reject(ReasonUnavailable)
		}
		return itemOutcome{}, errors.Wrapf(err, "get product %s", item.ProductID)
	}

	switch {
	case !p.IsActive:
		return reject(ReasonUnavailable)
	case !p.Price.Equal(item.UnitPrice):
		return reject(ReasonPriceChanged)
	case p.SellerID != item.SellerID:
		return reject(ReasonSellerChanged)
	}

	return itemOutcome{valid: &ValidatedItem{Item: item, Product: *p}}, nil
}
