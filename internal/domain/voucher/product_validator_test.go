package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProductVoucherRepo struct {
	voucher *ProductVoucher
	err     error
}

func (s *stubProductVoucherRepo) FindByCode(_ context.Context, _ string) (*ProductVoucher, error) {
	return s.voucher, s.err
}

func (s *stubProductVoucherRepo) ListActive(_ context.Context) ([]ProductVoucher, error) {
	return nil, nil
}

func (s *stubProductVoucherRepo) IncrementUses(_ context.Context, _ string) error {
	return nil
}

func TestProductValidatorValidate(t *testing.T) {
	fixedNow := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := fixedNow.Add(-time.Hour)

	subtotal := decimal.NewFromInt(1000)
	cartTypes := []string{"broilers", "eggs"}
	cartSellers := []string{"s1", "s2"}

	tests := []struct {
		name       string
		repo       *stubProductVoucherRepo
		wantAmount string
		wantErr    string
	}{
		{
			name: "percentage discount on subtotal",
			repo: &stubProductVoucherRepo{voucher: &ProductVoucher{
				Code: "KUKU10", Type: DiscountPercentage, Value: decimal.NewFromInt(10), Active: true,
			}},
			wantAmount: "100",
		},
		{
			name: "fixed discount capped at subtotal",
			repo: &stubProductVoucherRepo{voucher: &ProductVoucher{
				Code: "HUGE", Type: DiscountFixedAmount, Value: decimal.NewFromInt(5000), Active: true,
			}},
			wantAmount: "1000",
		},
		{
			name:    "unknown code",
			repo:    &stubProductVoucherRepo{err: ErrInvalidCode},
			wantErr: "Invalid voucher code.",
		},
		{
			name: "inactive voucher",
			repo: &stubProductVoucherRepo{voucher: &ProductVoucher{
				Code: "OFF", Type: DiscountPercentage, Value: decimal.NewFromInt(10), Active: false,
			}},
			wantErr: "Invalid voucher code.",
		},
		{
			name: "expired voucher",
			repo: &stubProductVoucherRepo{voucher: &ProductVoucher{
				Code: "OLD", Type: DiscountPercentage, Value: decimal.NewFromInt(10), ExpiresAt: &past, Active: true,
			}},
			wantErr: "Voucher has expired.",
		},
		{
			name: "usage cap reached",
			repo: &stubProductVoucherRepo{voucher: &ProductVoucher{
				Code: "SPENT", Type: DiscountPercentage, Value: decimal.NewFromInt(10), MaxUses: 3, UsedCount: 3, Active: true,
			}},
			wantErr: "Voucher usage limit reached.",
		},
		{
			name: "below minimum order",
			repo: &stubProductVoucherRepo{voucher: &ProductVoucher{
				Code: "MIN2K", Type: DiscountPercentage, Value: decimal.NewFromInt(10),
				MinOrderAmount: decimal.NewFromInt(2000), Active: true,
			}},
			wantErr: "Minimum order amount for this voucher is 2000.",
		},
		{
			name: "seller scope mismatch",
			repo: &stubProductVoucherRepo{voucher: &ProductVoucher{
				Code: "S9ONLY", Type: DiscountPercentage, Value: decimal.NewFromInt(10),
				SellerID: "s9", Active: true,
			}},
			wantErr: "Voucher is not valid for the items in your cart.",
		},
		{
			name: "seller scope match",
			repo: &stubProductVoucherRepo{voucher: &ProductVoucher{
				Code: "S1ONLY", Type: DiscountPercentage, Value: decimal.NewFromInt(10),
				SellerID: "s1", Active: true,
			}},
			wantAmount: "100",
		},
		{
			name: "product type scope mismatch",
			repo: &stubProductVoucherRepo{voucher: &ProductVoucher{
				Code: "FEEDONLY", Type: DiscountPercentage, Value: decimal.NewFromInt(10),
				ProductTypes: []string{"feed"}, Active: true,
			}},
			wantErr: "Voucher is not valid for the items in your cart.",
		},
		{
			name: "product type scope match",
			repo: &stubProductVoucherRepo{voucher: &ProductVoucher{
				Code: "EGGDEAL", Type: DiscountPercentage, Value: decimal.NewFromInt(15),
				ProductTypes: []string{"eggs", "chicks"}, Active: true,
			}},
			wantAmount: "150",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewProductValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), "code", subtotal, cartTypes, cartSellers)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.EqualError(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			want := decimal.RequireFromString(tt.wantAmount)
			assert.True(t, want.Equal(got.Amount), "amount = %s, want %s", got.Amount, want)
		})
	}
}

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, "KUKU10", Canonicalize("  kuku10 "))
	assert.Equal(t, "SHIP20", Canonicalize("Ship20"))
}
