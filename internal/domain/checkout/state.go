package checkout

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/domain/cart"
	"github.com/kukusoko/checkout-engine/internal/domain/delivery"
	"github.com/kukusoko/checkout-engine/internal/domain/order"
	"github.com/kukusoko/checkout-engine/internal/domain/voucher"
)

// Step is one stage of the checkout wizard.
type Step string

const (
	StepLocationSelect     Step = "LOCATION_SELECT"
	StepDeliveryReview     Step = "DELIVERY_REVIEW"
	StepVouchersAndPayment Step = "VOUCHERS_AND_PAYMENT"
	StepConfirm            Step = "CONFIRM"
	StepSubmitted          Step = "SUBMITTED"
)

// Mode selects between the multi-item cart flow and the single-product
// express session flow.
type Mode string

const (
	ModeCart Mode = "CART"
	// ModeSession skips delivery review: the session-creation step already
	// resolved the delivery fee.
	ModeSession Mode = "SESSION"
)

// Event drives the wizard state machine.
type Event string

const (
	EventAdvance Event = "ADVANCE"
	EventBack    Event = "BACK"
	EventSubmit  Event = "SUBMIT"
)

// ErrInvalidTransition is returned for events a step cannot accept.
var ErrInvalidTransition = errors.New("invalid checkout transition")

// Transition is the pure step-transition function of the checkout wizard.
// Backward transitions are allowed everywhere except from StepSubmitted;
// EventSubmit is only accepted at StepConfirm.
func Transition(step Step, mode Mode, ev Event) (Step, error) {
	switch ev {
	case EventAdvance:
		switch step {
		case StepLocationSelect:
			if mode == ModeSession {
				return StepVouchersAndPayment, nil
			}
			return StepDeliveryReview, nil
		case StepDeliveryReview:
			return StepVouchersAndPayment, nil
		case StepVouchersAndPayment:
			return StepConfirm, nil
		}
	case EventBack:
		switch step {
		case StepLocationSelect:
			return StepLocationSelect, nil
		case StepDeliveryReview:
			return StepLocationSelect, nil
		case StepVouchersAndPayment:
			if mode == ModeSession {
				return StepLocationSelect, nil
			}
			return StepDeliveryReview, nil
		case StepConfirm:
			return StepVouchersAndPayment, nil
		}
	case EventSubmit:
		if step == StepConfirm {
			return StepSubmitted, nil
		}
	}
	return step, errors.Wrapf(ErrInvalidTransition, "step %s, event %s", step, ev)
}

// State is the single checkout struct threaded through every wizard step.
// The applied voucher slots hold at most one voucher per class; applying a
// new one replaces the previous, removing clears the discount to zero.
type State struct {
	Mode              Mode
	Step              Step
	Items             []cart.ValidatedItem
	Location          *delivery.Location
	Quote             *delivery.QuoteResult
	ProductVoucher    *voucher.ProductDiscount
	DeliveryVoucher   *voucher.DeliveryDiscount
	PaymentPreference order.PaymentPreference
}

// NewState starts a checkout at location selection.
func NewState(mode Mode) *State {
	return &State{Mode: mode, Step: StepLocationSelect}
}

// Apply advances the state machine in place.
func (s *State) Apply(ev Event) error {
	next, err := Transition(s.Step, s.Mode, ev)
	if err != nil {
		return err
	}
	s.Step = next
	return nil
}

// ApplyProductVoucher replaces any previously applied product voucher.
func (s *State) ApplyProductVoucher(d *voucher.ProductDiscount) {
	s.ProductVoucher = d
}

// RemoveProductVoucher clears the product voucher slot.
func (s *State) RemoveProductVoucher() {
	s.ProductVoucher = nil
}

// ApplyDeliveryVoucher replaces any previously applied delivery voucher.
func (s *State) ApplyDeliveryVoucher(d *voucher.DeliveryDiscount) {
	s.DeliveryVoucher = d
}

// RemoveDeliveryVoucher clears the delivery voucher slot.
func (s *State) RemoveDeliveryVoucher() {
	s.DeliveryVoucher = nil
}

// ProductDiscountAmount returns the applied product discount, or zero.
func (s *State) ProductDiscountAmount() decimal.Decimal {
	if s.ProductVoucher == nil {
		return decimal.Zero
	}
	return s.ProductVoucher.Amount
}

// DeliveryDiscountAmount returns the applied delivery discount, or zero.
func (s *State) DeliveryDiscountAmount() decimal.Decimal {
	if s.DeliveryVoucher == nil {
		return decimal.Zero
	}
	return s.DeliveryVoucher.Amount
}
