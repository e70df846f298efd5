// Package cart holds the client-side cart snapshot model, its server-side
// re-validation, and the per-seller partitioning used to build delivery
// options.
package cart

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/domain/product"
)

// ErrNoValidItems is returned when re-validation leaves the cart empty.
// A cart reduced to zero valid items cannot proceed to checkout.
var ErrNoValidItems = errors.New("no valid items remain in cart")

// Item is a snapshot of a product taken when it entered the cart. The
// snapshot fields are compared against live catalog state during
// re-validation; a mismatch drops the item rather than silently adopting
// either value.
type Item struct {
	ProductID   string
	Name        string
	UnitPrice   decimal.Decimal
	SellerID    string
	ProductType string
	IsActive    bool
	Quantity    int
}

// ValidatedItem pairs a cart snapshot with the live product it was verified
// against. Pricing downstream always uses the live product.
type ValidatedItem struct {
	Item
	Product product.Product
}

// InvalidItem describes a cart line that failed re-validation, with a
// user-facing reason.
type InvalidItem struct {
	ProductID string
	Reason    string
}

// SellerGroup is the subset of cart items owned by one seller.
type SellerGroup struct {
	SellerID string
	Items    []ValidatedItem
}

// PartitionBySeller groups items by owning seller. Item order is preserved
// within each group; groups appear in first-seen seller order. Every item
// lands in exactly one group.
func PartitionBySeller(items []ValidatedItem) []SellerGroup {
	index := make(map[string]int, len(items))
	groups := make([]SellerGroup, 0, len(items))

	for _, it := range items {
		i, ok := index[it.SellerID]
		if !ok {
			i = len(groups)
			index[it.SellerID] = i
			groups = append(groups, SellerGroup{SellerID: it.SellerID})
		}
		groups[i].Items = append(groups[i].Items, it)
	}
	return groups
}
