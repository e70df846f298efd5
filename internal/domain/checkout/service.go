// Package checkout composes cart validation, delivery quoting, voucher
// application, and totals into order submission. It is the single code path
// for both the multi-item cart flow and the express session flow.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kukusoko/checkout-engine/internal/domain/cart"
	"github.com/kukusoko/checkout-engine/internal/domain/delivery"
	"github.com/kukusoko/checkout-engine/internal/domain/order"
	"github.com/kukusoko/checkout-engine/internal/domain/product"
	"github.com/kukusoko/checkout-engine/internal/domain/voucher"
)

// ErrMissingAddress is returned when no delivery address is available from
// either the request or the express session.
var ErrMissingAddress = errors.New("delivery address is required")

// ManualPaymentConfig holds the paybill details quoted when an STK push
// cannot complete and the customer must pay manually.
type ManualPaymentConfig struct {
	Paybill       string
	AccountPrefix string
}

// Instructions renders the manual payment message for one order.
func (c ManualPaymentConfig) Instructions(amount decimal.Decimal, orderID string) string {
	return fmt.Sprintf("Pay Ksh %s via M-Pesa paybill %s, account %s%s.",
		amount, c.Paybill, c.AccountPrefix, orderID)
}

// Deps bundles the collaborators the checkout service needs.
type Deps struct {
	Products         product.Repository
	CartValidator    *cart.Validator
	Quoter           delivery.Quoter
	ProductVouchers  *voucher.ProductValidator
	DeliveryVouchers *voucher.DeliveryValidator
	ProductRepo      voucher.ProductRepository
	DeliveryRepo     voucher.DeliveryRepository
	Orders           order.Repository
	Sessions         SessionRepository
	Payments         order.PaymentInitiator
	ManualPayment    ManualPaymentConfig
}

// Service runs the checkout flow end to end.
type Service struct {
	deps Deps
	now  func() time.Time
}

// NewService creates a checkout Service with the required collaborators.
func NewService(deps Deps) *Service {
	return &Service{deps: deps, now: time.Now}
}

// ValidateCart re-verifies every cart line against the live catalog.
func (s *Service) ValidateCart(ctx context.Context, items []cart.Item) ([]cart.ValidatedItem, []cart.InvalidItem, error) {
	return s.deps.CartValidator.Revalidate(ctx, items)
}

// DeliveryOptions quotes per-seller delivery for the validated items and
// enriches each returned option with the item IDs and discounted subtotal of
// its seller group. Options are rebuilt fresh on every call.
func (s *Service) DeliveryOptions(ctx context.Context, items []cart.ValidatedItem, loc delivery.Location) (*delivery.QuoteResult, error) {
	now := s.now()

	quoteItems := make([]delivery.QuoteItem, len(items))
	for i, it := range items {
		quoteItems[i] = delivery.QuoteItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Product.EffectivePrice(now),
			SellerID:  it.SellerID,
		}
	}

	quote, err := s.deps.Quoter.Quote(ctx, delivery.QuoteRequest{Items: quoteItems, Location: loc})
	if err != nil {
		return nil, errors.Wrap(err, "quote delivery")
	}

	groups := cart.PartitionBySeller(items)
	bySeller := make(map[string]cart.SellerGroup, len(groups))
	for _, g := range groups {
		bySeller[g.SellerID] = g
	}

	for i := range quote.Options {
		g, ok := bySeller[quote.Options[i].SellerID]
		if !ok {
			continue
		}
		ids := make([]string, len(g.Items))
		sub := decimal.Zero
		for j, it := range g.Items {
			ids[j] = it.ProductID
			qty := decimal.NewFromInt(int64(it.Quantity))
			sub = sub.Add(it.Product.EffectivePrice(now).Mul(qty))
		}
		quote.Options[i].ItemIDs = ids
		quote.Options[i].Subtotal = sub
	}

	return quote, nil
}

// ValidateProductVoucher validates a product voucher code against the
// current cart contents.
func (s *Service) ValidateProductVoucher(ctx context.Context, code string, items []cart.ValidatedItem) (*voucher.ProductDiscount, error) {
	subtotal := Subtotal(items, s.now())
	return s.deps.ProductVouchers.Validate(ctx, code, subtotal, productTypes(items), sellerIDs(items))
}

// ValidateDeliveryVoucher validates a delivery voucher code against the
// total delivery fee and the order subtotal.
func (s *Service) ValidateDeliveryVoucher(ctx context.Context, code string, totalFee, subtotal decimal.Decimal) (*voucher.DeliveryDiscount, error) {
	return s.deps.DeliveryVouchers.Validate(ctx, code, totalFee, subtotal)
}

// SubmitRequest is the composed order submission payload.
type SubmitRequest struct {
	Mode                Mode
	SessionID           string
	Items               []cart.Item
	Location            delivery.Location
	DeliveryAddress     string
	PaymentPreference   order.PaymentPreference
	PaymentPhone        string
	VoucherCode         string
	DeliveryVoucherCode string
	STKPush             bool
}

// SubmitResult is the outcome of a successful submission. InvalidItems lists
// cart lines dropped during final re-validation; STK is set only when a push
// was attempted.
type SubmitResult struct {
	Order        *order.Order
	Totals       Totals
	InvalidItems []cart.InvalidItem
	STK          *order.STKResult
}

// pricingInput is the unified intermediate both checkout modes produce
// before the shared pricing and persistence tail runs.
type pricingInput struct {
	items        []cart.ValidatedItem
	invalid      []cart.InvalidItem
	feeGross     decimal.Decimal
	county       string
	province     string
	address      string
	consumeAfter string // session to mark completed, when set
}

// Submit runs the full pipeline: cart or session load, delivery quoting,
// voucher validation, totals composition, order persistence, and optional
// STK push initiation. Any error before persistence leaves no trace; STK
// failures after persistence degrade to manual payment, never to a failed
// order.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	var (
		in  pricingInput
		err error
	)
	switch req.Mode {
	case ModeSession:
		in, err = s.loadSessionInput(ctx, req)
	default:
		in, err = s.loadCartInput(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if in.address == "" {
		return nil, ErrMissingAddress
	}

	now := s.now()
	subtotal := Subtotal(in.items, now)

	productDiscount := decimal.Zero
	if req.VoucherCode != "" {
		d, err := s.deps.ProductVouchers.Validate(ctx, req.VoucherCode, subtotal, productTypes(in.items), sellerIDs(in.items))
		if err != nil {
			return nil, err
		}
		productDiscount = d.Amount
	}

	deliveryDiscount := decimal.Zero
	if req.DeliveryVoucherCode != "" {
		d, err := s.deps.DeliveryVouchers.Validate(ctx, req.DeliveryVoucherCode, in.feeGross, subtotal)
		if err != nil {
			return nil, err
		}
		deliveryDiscount = d.Amount
	}

	totals := ComposeTotals(subtotal, productDiscount, in.feeGross, deliveryDiscount)

	o := &order.Order{
		ID:                  uuid.New().String(),
		Items:               orderItems(in.items, now),
		DeliveryAddress:     in.address,
		DeliveryCounty:      in.county,
		DeliveryProvince:    in.province,
		PaymentPreference:   req.PaymentPreference,
		PaymentPhone:        req.PaymentPhone,
		Subtotal:            totals.Subtotal,
		ProductDiscount:     totals.ProductDiscount,
		DeliveryFee:         totals.DeliveryFeeNet,
		DeliveryDiscount:    totals.DeliveryDiscount,
		Total:               totals.GrandTotal,
		VoucherCode:         voucherCodeOrEmpty(req.VoucherCode),
		DeliveryVoucherCode: voucherCodeOrEmpty(req.DeliveryVoucherCode),
		Status:              initialStatus(req),
		CreatedAt:           now,
	}
	if err := s.deps.Orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.countVoucherUses(ctx, req)

	if in.consumeAfter != "" {
		if err := s.deps.Sessions.MarkCompleted(ctx, in.consumeAfter); err != nil {
			zctx.From(ctx).Warn("mark session completed",
				zap.String("session_id", in.consumeAfter), zap.Error(err))
		}
	}

	result := &SubmitResult{Order: o, Totals: totals, InvalidItems: in.invalid}

	if req.STKPush && req.PaymentPreference == order.PayBeforeDelivery {
		result.STK = s.initiatePayment(ctx, o, totals.GrandTotal)
	}

	return result, nil
}

// loadCartInput re-validates the submitted cart and quotes delivery to the
// requested location. A quote with CanProceed=false is a hard stop.
func (s *Service) loadCartInput(ctx context.Context, req SubmitRequest) (pricingInput, error) {
	valid, invalid, err := s.deps.CartValidator.Revalidate(ctx, req.Items)
	if err != nil {
		return pricingInput{}, err
	}

	quote, err := s.DeliveryOptions(ctx, valid, req.Location)
	if err != nil {
		return pricingInput{}, err
	}
	if !quote.CanProceed {
		return pricingInput{}, &delivery.CannotProceedError{Message: quote.Message}
	}

	return pricingInput{
		items:    valid,
		invalid:  invalid,
		feeGross: quote.TotalFee(),
		county:   req.Location.County,
		province: req.Location.Province,
		address:  req.DeliveryAddress,
	}, nil
}

// loadSessionInput resolves an express session into the unified pricing
// input. The session already carries a resolved delivery fee, so no quote
// round-trip happens here.
func (s *Service) loadSessionInput(ctx context.Context, req SubmitRequest) (pricingInput, error) {
	sess, err := s.deps.Sessions.Get(ctx, req.SessionID)
	if err != nil {
		return pricingInput{}, err
	}
	if err := sess.Usable(s.now()); err != nil {
		return pricingInput{}, err
	}

	p, err := s.deps.Products.GetByID(ctx, sess.ProductID)
	if err != nil {
		return pricingInput{}, errors.Wrapf(err, "get session product %s", sess.ProductID)
	}
	if !p.IsActive {
		return pricingInput{}, cart.ErrNoValidItems
	}

	item := cart.ValidatedItem{
		Item: cart.Item{
			ProductID:   p.ID,
			Name:        p.Name,
			UnitPrice:   p.Price,
			SellerID:    p.SellerID,
			ProductType: p.Type,
			IsActive:    p.IsActive,
			Quantity:    sess.Quantity,
		},
		Product: *p,
	}

	address := req.DeliveryAddress
	if address == "" {
		address = sess.DeliveryAddress
	}
	county := req.Location.County
	if county == "" {
		county = sess.DeliveryCounty
	}
	province := req.Location.Province
	if province == "" {
		province = sess.DeliveryProvince
	}

	return pricingInput{
		items:        []cart.ValidatedItem{item},
		feeGross:     sess.DeliveryFee,
		county:       county,
		province:     province,
		address:      address,
		consumeAfter: sess.ID,
	}, nil
}

// countVoucherUses bumps usage counters for the vouchers applied to a
// persisted order. Failures are logged, not fatal: the order already exists.
func (s *Service) countVoucherUses(ctx context.Context, req SubmitRequest) {
	lg := zctx.From(ctx)
	if req.VoucherCode != "" {
		if err := s.deps.ProductRepo.IncrementUses(ctx, voucher.Canonicalize(req.VoucherCode)); err != nil {
			lg.Warn("increment product voucher uses", zap.Error(err))
		}
	}
	if req.DeliveryVoucherCode != "" {
		if err := s.deps.DeliveryRepo.IncrementUses(ctx, voucher.Canonicalize(req.DeliveryVoucherCode)); err != nil {
			lg.Warn("increment delivery voucher uses", zap.Error(err))
		}
	}
}

// initiatePayment fires the STK push. The order is already persisted, so any
// failure maps to the manual fallback path rather than an error.
func (s *Service) initiatePayment(ctx context.Context, o *order.Order, amount decimal.Decimal) *order.STKResult {
	res, err := s.deps.Payments.InitiateSTKPush(ctx, o.PaymentPhone, amount, o.ID)
	if err != nil {
		zctx.From(ctx).Warn("stk push initiation failed",
			zap.String("order_id", o.ID), zap.Error(err))
		return &order.STKResult{
			Initiated:                 false,
			Error:                     err.Error(),
			FallbackToManual:          true,
			ManualPaymentInstructions: s.deps.ManualPayment.Instructions(amount, o.ID),
		}
	}
	if res.FallbackToManual && res.ManualPaymentInstructions == "" {
		res.ManualPaymentInstructions = s.deps.ManualPayment.Instructions(amount, o.ID)
	}
	return res
}

func orderItems(items []cart.ValidatedItem, now time.Time) []order.Item {
	out := make([]order.Item, len(items))
	for i, it := range items {
		out[i] = order.Item{
			ProductID: it.ProductID,
			Name:      it.Product.Name,
			SellerID:  it.SellerID,
			Quantity:  it.Quantity,
			UnitPrice: it.Product.EffectivePrice(now),
		}
	}
	return out
}

func productTypes(items []cart.ValidatedItem) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, it := range items {
		if _, ok := seen[it.Product.Type]; ok {
			continue
		}
		seen[it.Product.Type] = struct{}{}
		out = append(out, it.Product.Type)
	}
	return out
}

func sellerIDs(items []cart.ValidatedItem) []string {
	seen := make(map[string]struct{}, len(items))
	var out []string
	for _, it := range items {
		if _, ok := seen[it.SellerID]; ok {
			continue
		}
		seen[it.SellerID] = struct{}{}
		out = append(out, it.SellerID)
	}
	return out
}

func voucherCodeOrEmpty(code string) string {
	if code == "" {
		return ""
	}
	return voucher.Canonicalize(code)
}

func initialStatus(req SubmitRequest) order.Status {
	if req.PaymentPreference == order.PayBeforeDelivery {
		return order.StatusPendingPayment
	}
	return order.StatusPlaced
}
