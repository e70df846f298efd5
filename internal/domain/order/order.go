// Package order defines the submitted order, payment preference, and the
// mobile-money payment boundary.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentPreference controls when the customer pays.
type PaymentPreference string

const (
	// PayBeforeDelivery collects payment at order time (STK push or manual).
	PayBeforeDelivery PaymentPreference = "BEFORE_DELIVERY"
	// PayAfterDelivery collects payment on fulfilment.
	PayAfterDelivery PaymentPreference = "AFTER_DELIVERY"
)

// Status tracks the order through payment and fulfilment.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPlaced         Status = "PLACED"
)

// Item is a line item with its price locked in at submission time.
type Item struct {
	ProductID string
	Name      string
	SellerID  string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is the composed order payload persisted at submission.
type Order struct {
	ID                  string
	Items               []Item
	DeliveryAddress     string
	DeliveryCounty      string
	DeliveryProvince    string
	PaymentPreference   PaymentPreference
	PaymentPhone        string
	Subtotal            decimal.Decimal
	ProductDiscount     decimal.Decimal
	DeliveryFee         decimal.Decimal // net fee after delivery voucher
	DeliveryDiscount    decimal.Decimal
	Total               decimal.Decimal
	VoucherCode         string
	DeliveryVoucherCode string
	Status              Status
	CreatedAt           time.Time
}

// STKResult describes the outcome of an STK push initiation. The order
// itself is already created by the time any of these fields matter: an error
// or fallback here never unwinds the order.
type STKResult struct {
	Initiated                 bool
	Error                     string
	FallbackToManual          bool
	ManualPaymentInstructions string
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}

// PaymentInitiator is the boundary to the mobile-money provider. Initiation
// is fire-and-forget: payment confirmation arrives asynchronously and is
// handled outside the checkout flow.
type PaymentInitiator interface {
	InitiateSTKPush(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*STKResult, error)
}
