package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Express session errors.
var (
	ErrSessionNotFound  = errors.New("checkout session not found")
	ErrSessionExpired   = errors.New("checkout session has expired")
	ErrSessionCompleted = errors.New("checkout session already completed")
)

// Session is a server-persisted, time-limited single-product express
// checkout. The delivery fee is resolved when the session is created, which
// is what lets session-mode checkout skip the delivery review step.
type Session struct {
	ID               string
	ProductID        string
	Quantity         int
	DeliveryAddress  string
	DeliveryCounty   string
	DeliveryProvince string
	DeliveryFee      decimal.Decimal
	IsCompleted      bool
	ExpiresAt        time.Time
	CreatedAt        time.Time
}

// Usable reports whether the session can still drive a checkout. Expired or
// already-consumed sessions must redirect the customer away.
func (s *Session) Usable(now time.Time) error {
	if s.IsCompleted {
		return ErrSessionCompleted
	}
	if s.ExpiresAt.Before(now) {
		return ErrSessionExpired
	}
	return nil
}

// SessionRepository defines persistence operations for express sessions.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*Session, error)
	Create(ctx context.Context, s *Session) error
	// MarkCompleted consumes the session after a successful order.
	MarkCompleted(ctx context.Context, id string) error
}
