package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kukusoko/checkout-engine/internal/domain/checkout"
)

const (
	getSessionByIDSQL = `SELECT id, product_id, quantity, delivery_address, delivery_county,
		delivery_province, delivery_fee, is_completed, expires_at, created_at
		FROM checkout_sessions WHERE id = $1`

	createSessionSQL = `INSERT INTO checkout_sessions (id, product_id, quantity, delivery_address,
		delivery_county, delivery_province, delivery_fee, is_completed, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	completeSessionSQL = `UPDATE checkout_sessions SET is_completed = TRUE WHERE id = $1`
)

var _ checkout.SessionRepository = (*SessionRepository)(nil)

// SessionRepository implements checkout.SessionRepository backed by
// PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Get returns a checkout session by its identifier. Returns
// checkout.ErrSessionNotFound when no session exists.
func (r *SessionRepository) Get(ctx context.Context, id string) (*checkout.Session, error) {
	rows, err := r.pool.Query(ctx, getSessionByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting session %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, scanSession)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrSessionNotFound
		}
		return nil, fmt.Errorf("getting session %q: %w", id, err)
	}
	return &s, nil
}

// Create persists a new checkout session.
func (r *SessionRepository) Create(ctx context.Context, s *checkout.Session) error {
	_, err := r.pool.Exec(ctx, createSessionSQL,
		s.ID, s.ProductID, s.Quantity, s.DeliveryAddress, s.DeliveryCounty,
		s.DeliveryProvince, s.DeliveryFee, s.IsCompleted, s.ExpiresAt, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating session %q: %w", s.ID, err)
	}
	return nil
}

// MarkCompleted consumes the session so it cannot drive another checkout.
func (r *SessionRepository) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, completeSessionSQL, id)
	if err != nil {
		return fmt.Errorf("completing session %q: %w", id, err)
	}
	return nil
}

func scanSession(row pgx.CollectableRow) (checkout.Session, error) {
	var (
		s        checkout.Session
		quantity int32
	)
	err := row.Scan(
		&s.ID, &s.ProductID, &quantity, &s.DeliveryAddress, &s.DeliveryCounty,
		&s.DeliveryProvince, &s.DeliveryFee, &s.IsCompleted, &s.ExpiresAt, &s.CreatedAt,
	)
	s.Quantity = int(quantity)
	return s, err
}
