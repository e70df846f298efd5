// Package mpesa implements the order.PaymentInitiator boundary against the
// mobile-money gateway that pushes STK payment prompts.
package mpesa

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kukusoko/checkout-engine/internal/domain/order"
)

var _ order.PaymentInitiator = (*Client)(nil)

// Client calls the payment gateway over HTTP.
type Client struct {
	baseURL   string
	shortcode string
	http      *http.Client
}

// NewClient creates a payment client for the given gateway base URL and
// business shortcode.
func NewClient(baseURL, shortcode string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		shortcode: shortcode,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// InitiateSTKPush asks the gateway to push a payment prompt to the given
// phone. The push is fire-and-forget: confirmation arrives asynchronously
// outside the checkout flow. A transport or gateway error is returned to the
// caller, which decides the manual-payment fallback.
func (c *Client) InitiateSTKPush(ctx context.Context, phone string, amount decimal.Decimal, reference string) (*order.STKResult, error) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("shortcode", func(e *jx.Encoder) { e.Str(c.shortcode) })
		e.Field("phone", func(e *jx.Encoder) { e.Str(phone) })
		e.Field("amount", func(e *jx.Encoder) { e.Float64(amount.InexactFloat64()) })
		e.Field("accountReference", func(e *jx.Encoder) { e.Str(reference) })
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/stkpush", bytes.NewReader(e.Bytes()))
	if err != nil {
		return nil, errors.Wrap(err, "build stk push request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "call payment gateway")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read stk push response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("payment gateway returned %d: %s", resp.StatusCode, raw)
	}

	return decodeSTKResult(raw)
}

func decodeSTKResult(raw []byte) (*order.STKResult, error) {
	d := jx.DecodeBytes(raw)
	res := &order.STKResult{}

	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "initiated":
			v, err := d.Bool()
			res.Initiated = v
			return err
		case "error":
			v, err := d.Str()
			res.Error = v
			return err
		case "fallbackToManual":
			v, err := d.Bool()
			res.FallbackToManual = v
			return err
		case "manualPaymentInstructions":
			v, err := d.Str()
			res.ManualPaymentInstructions = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode stk push response")
	}
	return res, nil
}
