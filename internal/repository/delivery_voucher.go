package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/domain/voucher"
)

const (
	listDeliveryVouchersSQL = `SELECT code, discount_type, value, min_order_amount,
		expires_at, used_count, max_uses, active
		FROM delivery_vouchers WHERE active = TRUE ORDER BY code`

	incrementDeliveryVoucherUsesSQL = `UPDATE delivery_vouchers
		SET used_count = used_count + 1 WHERE code = $1`
)

var _ voucher.DeliveryRepository = (*DeliveryVoucherRepository)(nil)

// DeliveryVoucherRepository implements voucher.DeliveryRepository backed by
// PostgreSQL.
type DeliveryVoucherRepository struct {
	pool *pgxpool.Pool
}

// NewDeliveryVoucherRepository returns a DeliveryVoucherRepository that uses
// the given pool.
func NewDeliveryVoucherRepository(pool *pgxpool.Pool) *DeliveryVoucherRepository {
	return &DeliveryVoucherRepository{pool: pool}
}

// List returns all active delivery vouchers ordered by code.
func (r *DeliveryVoucherRepository) List(ctx context.Context) ([]voucher.DeliveryVoucher, error) {
	rows, err := r.pool.Query(ctx, listDeliveryVouchersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing delivery vouchers: %w", err)
	}
	return pgx.CollectRows(rows, scanDeliveryVoucher)
}

// IncrementUses atomically increments the usage counter for the given code.
func (r *DeliveryVoucherRepository) IncrementUses(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, incrementDeliveryVoucherUsesSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing uses for delivery voucher %q: %w", code, err)
	}
	return nil
}

func scanDeliveryVoucher(row pgx.CollectableRow) (voucher.DeliveryVoucher, error) {
	var (
		v            voucher.DeliveryVoucher
		discountType string
		value        decimal.Decimal
		minOrder     decimal.Decimal
		expiresAt    *time.Time
		usedCount    int32
		maxUses      int32
	)
	err := row.Scan(
		&v.Code, &discountType, &value, &minOrder,
		&expiresAt, &usedCount, &maxUses, &v.Active,
	)
	v.Type = voucher.DiscountType(discountType)
	v.Value = value
	v.MinOrderAmount = minOrder
	v.ExpiresAt = expiresAt
	v.UsedCount = int(usedCount)
	v.MaxUses = int(maxUses)
	return v, err
}
