package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kukusoko/checkout-engine/internal/domain/product"
)

type stubProductRepo struct {
	products map[string]product.Product
}

func (s *stubProductRepo) List(_ context.Context) ([]product.Product, error) { return nil, nil }

func (s *stubProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (s *stubProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func snapshot(id, seller string, price int64, qty int) Item {
	return Item{
		ProductID: id,
		UnitPrice: decimal.NewFromInt(price),
		SellerID:  seller,
		IsActive:  true,
		Quantity:  qty,
	}
}

func live(id, seller string, price int64) product.Product {
	return product.Product{
		ID:       id,
		Price:    decimal.NewFromInt(price),
		SellerID: seller,
		IsActive: true,
	}
}

func TestPartitionBySeller(t *testing.T) {
	items := []ValidatedItem{
		{Item: snapshot("p1", "s1", 200, 1)},
		{Item: snapshot("p2", "s2", 300, 2)},
		{Item: snapshot("p3", "s1", 150, 1)},
		{Item: snapshot("p4", "s3", 800, 1)},
		{Item: snapshot("p5", "s2", 100, 4)},
	}

	groups := PartitionBySeller(items)

	require.Len(t, groups, 3)
	assert.Equal(t, "s1", groups[0].SellerID)
	assert.Equal(t, "s2", groups[1].SellerID)
	assert.Equal(t, "s3", groups[2].SellerID)

	// Every item appears exactly once, order preserved within groups.
	total := 0
	seen := map[string]int{}
	for _, g := range groups {
		total += len(g.Items)
		for _, it := range g.Items {
			seen[it.ProductID]++
			assert.Equal(t, g.SellerID, it.SellerID)
		}
	}
	assert.Equal(t, len(items), total)
	for id, n := range seen {
		assert.Equal(t, 1, n, "item %s appears %d times", id, n)
	}
	assert.Equal(t, "p1", groups[0].Items[0].ProductID)
	assert.Equal(t, "p3", groups[0].Items[1].ProductID)
}

func TestPartitionBySellerEmpty(t *testing.T) {
	assert.Empty(t, PartitionBySeller(nil))
}

func TestRevalidate(t *testing.T) {
	repo := &stubProductRepo{products: map[string]product.Product{
		"p1": live("p1", "s1", 200),
		"p2": live("p2", "s1", 300),
		"p3": live("p3", "s2", 150),
	}}
	v := NewValidator(repo)

	t.Run("all items valid", func(t *testing.T) {
		valid, invalid, err := v.Revalidate(context.Background(), []Item{
			snapshot("p1", "s1", 200, 2),
			snapshot("p3", "s2", 150, 1),
		})
		require.NoError(t, err)
		assert.Empty(t, invalid)
		require.Len(t, valid, 2)
		assert.Equal(t, "p1", valid[0].ProductID)
		assert.Equal(t, "p3", valid[1].ProductID)
	})

	t.Run("stale price drops only that item", func(t *testing.T) {
		valid, invalid, err := v.Revalidate(context.Background(), []Item{
			snapshot("p1", "s1", 180, 1), // client cached an old price
			snapshot("p2", "s1", 300, 1),
		})
		require.NoError(t, err)
		require.Len(t, valid, 1)
		assert.Equal(t, "p2", valid[0].ProductID)
		require.Len(t, invalid, 1)
		assert.Equal(t, "p1", invalid[0].ProductID)
		assert.Equal(t, ReasonPriceChanged, invalid[0].Reason)
	})

	t.Run("unknown product drops item", func(t *testing.T) {
		valid, invalid, err := v.Revalidate(context.Background(), []Item{
			snapshot("p1", "s1", 200, 1),
			snapshot("ghost", "s1", 100, 1),
		})
		require.NoError(t, err)
		assert.Len(t, valid, 1)
		require.Len(t, invalid, 1)
		assert.Equal(t, ReasonUnavailable, invalid[0].Reason)
	})

	t.Run("seller mismatch drops item", func(t *testing.T) {
		_, invalid, err := v.Revalidate(context.Background(), []Item{
			snapshot("p1", "s1", 200, 1),
			snapshot("p3", "s9", 150, 1),
		})
		require.NoError(t, err)
		require.Len(t, invalid, 1)
		assert.Equal(t, ReasonSellerChanged, invalid[0].Reason)
	})

	t.Run("zero quantity drops item", func(t *testing.T) {
		_, invalid, err := v.Revalidate(context.Background(), []Item{
			snapshot("p1", "s1", 200, 1),
			snapshot("p2", "s1", 300, 0),
		})
		require.NoError(t, err)
		require.Len(t, invalid, 1)
		assert.Equal(t, ReasonInvalidQuantity, invalid[0].Reason)
	})

	t.Run("cart reduced to zero valid items is a hard failure", func(t *testing.T) {
		valid, invalid, err := v.Revalidate(context.Background(), []Item{
			snapshot("ghost", "s1", 100, 1),
		})
		require.ErrorIs(t, err, ErrNoValidItems)
		assert.Empty(t, valid)
		assert.Len(t, invalid, 1)
	})

	t.Run("empty cart is a hard failure", func(t *testing.T) {
		_, _, err := v.Revalidate(context.Background(), nil)
		require.ErrorIs(t, err, ErrNoValidItems)
	})
}

func TestRevalidateInactiveProduct(t *testing.T) {
	inactive := live("p1", "s1", 200)
	inactive.IsActive = false
	repo := &stubProductRepo{products: map[string]product.Product{"p1": inactive}}

	_, invalid, err := NewValidator(repo).Revalidate(context.Background(), []Item{
		snapshot("p1", "s1", 200, 1),
	})
	assert.ErrorIs(t, err, ErrNoValidItems)
	require.Len(t, invalid, 1)
	assert.Equal(t, ReasonUnavailable, invalid[0].Reason)
}
