package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, delivery_address, delivery_county, delivery_province,
		payment_preference, payment_phone, subtotal, product_discount, delivery_fee,
		delivery_discount, total, voucher_code, delivery_voucher_code, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	createOrderItemSQL = `INSERT INTO order_items (order_id, position, product_id, name, seller_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getOrderByIDSQL = `SELECT id, delivery_address, delivery_county, delivery_province,
		payment_preference, payment_phone, subtotal, product_discount, delivery_fee,
		delivery_discount, total, voucher_code, delivery_voucher_code, status, created_at
		FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT product_id, name, seller_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY position`
)

// ErrOrderNotFound is returned when a requested order does not exist.
var ErrOrderNotFound = errors.New("order not found")

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and its line items in a single transaction.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.DeliveryAddress, o.DeliveryCounty, o.DeliveryProvince,
		string(o.PaymentPreference), o.PaymentPhone, o.Subtotal, o.ProductDiscount,
		o.DeliveryFee, o.DeliveryDiscount, o.Total, o.VoucherCode,
		o.DeliveryVoucherCode, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for i, item := range o.Items {
		_, err = tx.Exec(ctx, createOrderItemSQL,
			o.ID, i, item.ProductID, item.Name, item.SellerID, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("creating order item %d for order %q: %w", i, o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order with its line items.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o          order.Order
		preference string
		status     string
		createdAt  time.Time
	)
	err := row.Scan(
		&o.ID, &o.DeliveryAddress, &o.DeliveryCounty, &o.DeliveryProvince,
		&preference, &o.PaymentPhone, &o.Subtotal, &o.ProductDiscount,
		&o.DeliveryFee, &o.DeliveryDiscount, &o.Total, &o.VoucherCode,
		&o.DeliveryVoucherCode, &status, &createdAt,
	)
	o.PaymentPreference = order.PaymentPreference(preference)
	o.Status = order.Status(status)
	o.CreatedAt = createdAt
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		item     order.Item
		quantity int32
		price    decimal.Decimal
	)
	err := row.Scan(&item.ProductID, &item.Name, &item.SellerID, &quantity, &price)
	item.Quantity = int(quantity)
	item.UnitPrice = price
	return item, err
}
