// Package logistics implements the delivery.Quoter boundary against the
// marketplace's logistics service, which owns the county-to-fee mapping.
package logistics

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

	"github.com/kukusoko/checkout-engine/internal/domain/delivery"
)

var _ delivery.Quoter = (*Client)(nil)

// Client calls the logistics service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a logistics client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
	}
}

// Quote asks the logistics service for per-seller delivery options to one
// location. The response is decoded into a concrete QuoteResult before it
// reaches domain code; unknown fields are skipped.
func (c *Client) Quote(ctx context.Context, req delivery.QuoteRequest) (*delivery.QuoteResult, error) {
	body := encodeQuoteRequest(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/quotes", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build quote request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "call logistics service")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read quote response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("logistics service returned %d: %s", resp.StatusCode, raw)
	}

	result, err := decodeQuoteResult(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode quote response")
	}
	return result, nil
}

func encodeQuoteRequest(req delivery.QuoteRequest) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range req.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("price", func(e *jx.Encoder) { e.Float64(it.Price.InexactFloat64()) })
						e.Field("sellerId", func(e *jx.Encoder) { e.Str(it.SellerID) })
					})
				}
			})
		})
		e.Field("deliveryLocation", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("county", func(e *jx.Encoder) { e.Str(req.Location.County) })
				e.Field("province", func(e *jx.Encoder) { e.Str(req.Location.Province) })
			})
		})
	})
	return e.Bytes()
}

func decodeQuoteResult(raw []byte) (*delivery.QuoteResult, error) {
	d := jx.DecodeBytes(raw)
	result := &delivery.QuoteResult{}

	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "deliveryOptions":
			return d.Arr(func(d *jx.Decoder) error {
				opt, err := decodeOption(d)
				if err != nil {
					return err
				}
				result.Options = append(result.Options, opt)
				return nil
			})
		case "canProceedWithOrder":
			v, err := d.Bool()
			result.CanProceed = v
			return err
		case "message":
			v, err := d.Str()
			result.Message = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return result, nil
}

func decodeOption(d *jx.Decoder) (delivery.Option, error) {
	var opt delivery.Option
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "sellerId":
			v, err := d.Str()
			opt.SellerID = v
			return err
		case "sellerRole":
			v, err := d.Str()
			opt.SellerRole = v
			return err
		case "deliverable":
			v, err := d.Bool()
			opt.Deliverable = v
			return err
		case "deliveryFee":
			v, err := d.Float64()
			opt.Fee = decimal.NewFromFloat(v)
			return err
		case "freeDeliveryEligible":
			v, err := d.Bool()
			opt.FreeDelivery = v
			return err
		case "paymentMethods":
			return d.Arr(func(d *jx.Decoder) error {
				v, err := d.Str()
				opt.PaymentMethods = append(opt.PaymentMethods, v)
				return err
			})
		case "message":
			v, err := d.Str()
			opt.Message = v
			return err
		case "platformFulfilled":
			v, err := d.Bool()
			opt.PlatformFulfilled = v
			return err
		default:
			return d.Skip()
		}
	})
	return opt, err
}
