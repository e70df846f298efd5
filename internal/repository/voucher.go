package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/domain/voucher"
)

const (
	voucherColumns = `code, discount_type, value, min_order_amount, seller_id,
		product_types, expires_at, used_count, max_uses, active`

	getVoucherByCodeSQL = `SELECT ` + voucherColumns + `
		FROM vouchers WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	listActiveVouchersSQL = `SELECT ` + voucherColumns + `
		FROM vouchers WHERE active = TRUE ORDER BY code`

	incrementVoucherUsesSQL = `UPDATE vouchers SET used_count = used_count + 1 WHERE code = $1`
)

var _ voucher.ProductRepository = (*VoucherRepository)(nil)

// VoucherRepository implements voucher.ProductRepository backed by PostgreSQL.
type VoucherRepository struct {
	pool *pgxpool.Pool
}

// NewVoucherRepository returns a VoucherRepository that uses the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// FindByCode looks up an active product voucher by its code
// (case-insensitive). Returns voucher.ErrInvalidCode when no matching active
// voucher exists.
func (r *VoucherRepository) FindByCode(ctx context.Context, code string) (*voucher.ProductVoucher, error) {
	rows, err := r.pool.Query(ctx, getVoucherByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanProductVoucher)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrInvalidCode
		}
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}
	return &v, nil
}

// ListActive returns all active product vouchers ordered by code.
func (r *VoucherRepository) ListActive(ctx context.Context) ([]voucher.ProductVoucher, error) {
	rows, err := r.pool.Query(ctx, listActiveVouchersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active vouchers: %w", err)
	}
	return pgx.CollectRows(rows, scanProductVoucher)
}

// IncrementUses atomically increments the usage counter for the given code.
func (r *VoucherRepository) IncrementUses(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, incrementVoucherUsesSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing uses for voucher %q: %w", code, err)
	}
	return nil
}

func scanProductVoucher(row pgx.CollectableRow) (voucher.ProductVoucher, error) {
	var (
		v            voucher.ProductVoucher
		discountType string
		value        decimal.Decimal
		minOrder     decimal.Decimal
		expiresAt    *time.Time
		usedCount    int32
		maxUses      int32
	)
	err := row.Scan(
		&v.Code, &discountType, &value, &minOrder, &v.SellerID,
		&v.ProductTypes, &expiresAt, &usedCount, &maxUses, &v.Active,
	)
	v.Type = voucher.DiscountType(discountType)
	v.Value = value
	v.MinOrderAmount = minOrder
	v.ExpiresAt = expiresAt
	v.UsedCount = int(usedCount)
	v.MaxUses = int(maxUses)
	return v, err
}
