package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/domain/product"
)

const (
	productColumns = `id, name, price, stock, seller_id, product_type, is_active,
		discount_type, discount_amount, discount_starts_at, discount_ends_at, discount_active`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p              product.Product
		price          decimal.Decimal
		discountType   *string
		discountAmount *decimal.Decimal
		startsAt       *time.Time
		endsAt         *time.Time
		discountActive bool
	)
	err := row.Scan(
		&p.ID, &p.Name, &price, &p.Stock, &p.SellerID, &p.Type, &p.IsActive,
		&discountType, &discountAmount, &startsAt, &endsAt, &discountActive,
	)
	p.Price = price

	// A discount exists only when all its defining columns are present.
	if discountType != nil && discountAmount != nil && startsAt != nil && endsAt != nil {
		p.Discount = &product.Discount{
			Type:     product.DiscountType(*discountType),
			Amount:   *discountAmount,
			StartsAt: *startsAt,
			EndsAt:   *endsAt,
			Active:   discountActive,
		}
	}
	return p, err
}
