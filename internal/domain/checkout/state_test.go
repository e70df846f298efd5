package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kukusoko/checkout-engine/internal/domain/voucher"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		mode    Mode
		ev      Event
		want    Step
		wantErr bool
	}{
		{name: "cart advances to delivery review", step: StepLocationSelect, mode: ModeCart, ev: EventAdvance, want: StepDeliveryReview},
		{name: "session skips delivery review", step: StepLocationSelect, mode: ModeSession, ev: EventAdvance, want: StepVouchersAndPayment},
		{name: "review advances to vouchers", step: StepDeliveryReview, mode: ModeCart, ev: EventAdvance, want: StepVouchersAndPayment},
		{name: "vouchers advance to confirm", step: StepVouchersAndPayment, mode: ModeCart, ev: EventAdvance, want: StepConfirm},
		{name: "submit only from confirm", step: StepConfirm, mode: ModeCart, ev: EventSubmit, want: StepSubmitted},
		{name: "submit from vouchers rejected", step: StepVouchersAndPayment, mode: ModeCart, ev: EventSubmit, wantErr: true},
		{name: "advance from confirm rejected", step: StepConfirm, mode: ModeCart, ev: EventAdvance, wantErr: true},
		{name: "back from review", step: StepDeliveryReview, mode: ModeCart, ev: EventBack, want: StepLocationSelect},
		{name: "back from vouchers in cart mode", step: StepVouchersAndPayment, mode: ModeCart, ev: EventBack, want: StepDeliveryReview},
		{name: "back from vouchers in session mode", step: StepVouchersAndPayment, mode: ModeSession, ev: EventBack, want: StepLocationSelect},
		{name: "back from confirm", step: StepConfirm, mode: ModeCart, ev: EventBack, want: StepVouchersAndPayment},
		{name: "back at location select is a no-op", step: StepLocationSelect, mode: ModeCart, ev: EventBack, want: StepLocationSelect},
		{name: "no transitions out of submitted", step: StepSubmitted, mode: ModeCart, ev: EventBack, wantErr: true},
		{name: "no advance out of submitted", step: StepSubmitted, mode: ModeCart, ev: EventAdvance, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.step, tt.mode, tt.ev)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTransition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateVoucherSlots(t *testing.T) {
	s := NewState(ModeCart)

	assert.True(t, s.ProductDiscountAmount().IsZero())
	assert.True(t, s.DeliveryDiscountAmount().IsZero())

	a := &voucher.DeliveryDiscount{
		Voucher: &voucher.DeliveryVoucher{Code: "A"},
		Amount:  decimal.NewFromInt(50),
	}
	b := &voucher.DeliveryDiscount{
		Voucher: &voucher.DeliveryVoucher{Code: "B"},
		Amount:  decimal.NewFromInt(80),
	}

	// Applying B over A replaces A entirely — effects never stack.
	s.ApplyDeliveryVoucher(a)
	s.ApplyDeliveryVoucher(b)
	require.NotNil(t, s.DeliveryVoucher)
	assert.Equal(t, "B", s.DeliveryVoucher.Voucher.Code)
	assert.True(t, decimal.NewFromInt(80).Equal(s.DeliveryDiscountAmount()))

	s.RemoveDeliveryVoucher()
	assert.True(t, s.DeliveryDiscountAmount().IsZero())

	p := &voucher.ProductDiscount{
		Voucher: &voucher.ProductVoucher{Code: "KUKU10"},
		Amount:  decimal.NewFromInt(100),
	}
	s.ApplyProductVoucher(p)
	assert.True(t, decimal.NewFromInt(100).Equal(s.ProductDiscountAmount()))
	s.RemoveProductVoucher()
	assert.True(t, s.ProductDiscountAmount().IsZero())
}

func TestStateApply(t *testing.T) {
	s := NewState(ModeSession)
	require.NoError(t, s.Apply(EventAdvance))
	assert.Equal(t, StepVouchersAndPayment, s.Step)
	require.NoError(t, s.Apply(EventAdvance))
	require.NoError(t, s.Apply(EventSubmit))
	assert.Equal(t, StepSubmitted, s.Step)
	assert.Error(t, s.Apply(EventBack))
}
