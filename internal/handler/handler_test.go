package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kukusoko/checkout-engine/internal/domain/auth"
	"github.com/kukusoko/checkout-engine/internal/domain/cart"
	"github.com/kukusoko/checkout-engine/internal/domain/checkout"
	"github.com/kukusoko/checkout-engine/internal/domain/delivery"
	"github.com/kukusoko/checkout-engine/internal/domain/order"
	"github.com/kukusoko/checkout-engine/internal/domain/product"
	"github.com/kukusoko/checkout-engine/internal/domain/voucher"
)

type fakeProductRepo struct {
	products map[string]product.Product
}

func (f *fakeProductRepo) List(_ context.Context) ([]product.Product, error) {
	out := make([]product.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeQuoter struct {
	result *delivery.QuoteResult
}

func (f *fakeQuoter) Quote(_ context.Context, _ delivery.QuoteRequest) (*delivery.QuoteResult, error) {
	return f.result, nil
}

type fakeVoucherRepo struct {
	vouchers map[string]voucher.ProductVoucher
	bumped   []string
}

func (f *fakeVoucherRepo) FindByCode(_ context.Context, code string) (*voucher.ProductVoucher, error) {
	v, ok := f.vouchers[voucher.Canonicalize(code)]
	if !ok {
		return nil, voucher.ErrInvalidCode
	}
	return &v, nil
}

func (f *fakeVoucherRepo) ListActive(_ context.Context) ([]voucher.ProductVoucher, error) {
	out := make([]voucher.ProductVoucher, 0, len(f.vouchers))
	for _, v := range f.vouchers {
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeVoucherRepo) IncrementUses(_ context.Context, code string) error {
	f.bumped = append(f.bumped, code)
	return nil
}

type fakeDeliveryVoucherRepo struct {
	vouchers []voucher.DeliveryVoucher
	bumped   []string
}

func (f *fakeDeliveryVoucherRepo) List(_ context.Context) ([]voucher.DeliveryVoucher, error) {
	return f.vouchers, nil
}

func (f *fakeDeliveryVoucherRepo) IncrementUses(_ context.Context, code string) error {
	f.bumped = append(f.bumped, code)
	return nil
}

type fakeOrderRepo struct {
	created []*order.Order
}

func (f *fakeOrderRepo) Create(_ context.Context, o *order.Order) error {
	f.created = append(f.created, o)
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	for _, o := range f.created {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, errors.New("order not found")
}

type fakeSessionRepo struct {
	sessions  map[string]checkout.Session
	completed []string
}

func (f *fakeSessionRepo) Get(_ context.Context, id string) (*checkout.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, checkout.ErrSessionNotFound
	}
	return &s, nil
}

func (f *fakeSessionRepo) Create(_ context.Context, s *checkout.Session) error {
	f.sessions[s.ID] = *s
	return nil
}

func (f *fakeSessionRepo) MarkCompleted(_ context.Context, id string) error {
	s := f.sessions[id]
	s.IsCompleted = true
	f.sessions[id] = s
	f.completed = append(f.completed, id)
	return nil
}

type fakePayments struct{}

func (fakePayments) InitiateSTKPush(_ context.Context, _ string, _ decimal.Decimal, _ string) (*order.STKResult, error) {
	return &order.STKResult{Initiated: true}, nil
}

type fakeAPIKeyRepo struct {
	hash string
}

func (f *fakeAPIKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if hash != f.hash {
		return nil, errors.New("api key not found")
	}
	return &auth.APIKeyInfo{ID: "k1", KeyHash: hash, Name: "test"}, nil
}

const testPepper = "pepper"

func apiKeyHash(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

type fixture struct {
	products         *fakeProductRepo
	quoter           *fakeQuoter
	vouchers         *fakeVoucherRepo
	deliveryVouchers *fakeDeliveryVoucherRepo
	orders           *fakeOrderRepo
	sessions         *fakeSessionRepo
	srv              *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		products: &fakeProductRepo{products: map[string]product.Product{
			"p1": {ID: "p1", Name: "Broiler", Price: decimal.NewFromInt(200), Stock: 10, SellerID: "s1", Type: "broiler", IsActive: true},
			"p2": {ID: "p2", Name: "Tray of eggs", Price: decimal.NewFromInt(450), Stock: 5, SellerID: "s2", Type: "eggs", IsActive: true},
		}},
		quoter: &fakeQuoter{result: &delivery.QuoteResult{
			CanProceed: true,
			Options: []delivery.Option{
				{SellerID: "s1", Deliverable: true, Fee: decimal.NewFromInt(100)},
				{SellerID: "s2", Deliverable: true, Fee: decimal.NewFromInt(150)},
			},
		}},
		vouchers: &fakeVoucherRepo{vouchers: map[string]voucher.ProductVoucher{
			"KUKU10": {Code: "KUKU10", Type: voucher.DiscountPercentage, Value: decimal.NewFromInt(10), Active: true},
		}},
		deliveryVouchers: &fakeDeliveryVoucherRepo{vouchers: []voucher.DeliveryVoucher{
			{Code: "SHIP50", Type: voucher.DiscountFixedAmount, Value: decimal.NewFromInt(50), MinOrderAmount: decimal.NewFromInt(500), Active: true},
		}},
		orders:   &fakeOrderRepo{},
		sessions: &fakeSessionRepo{sessions: map[string]checkout.Session{}},
	}

	svc := checkout.NewService(checkout.Deps{
		Products:         f.products,
		CartValidator:    cart.NewValidator(f.products),
		Quoter:           f.quoter,
		ProductVouchers:  voucher.NewProductValidator(f.vouchers),
		DeliveryVouchers: voucher.NewDeliveryValidator(f.deliveryVouchers),
		ProductRepo:      f.vouchers,
		DeliveryRepo:     f.deliveryVouchers,
		Orders:           f.orders,
		Sessions:         f.sessions,
		Payments:         fakePayments{},
		ManualPayment:    checkout.ManualPaymentConfig{Paybill: "400200", AccountPrefix: "KS-"},
	})

	h := NewHandler(f.products, svc, f.vouchers, f.deliveryVouchers, f.sessions)
	authMW := APIKeyAuth(&fakeAPIKeyRepo{hash: apiKeyHash("test-key")}, []byte(testPepper))

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes(authMW)))
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, withKey bool) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.srv.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withKey {
		req.Header.Set("X-API-Key", "test-key")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func cartBody() map[string]any {
	return map[string]any{
		"items": []map[string]any{
			{"productId": "p1", "name": "Broiler", "unitPrice": 200, "sellerId": "s1", "productType": "broiler", "isActive": true, "quantity": 2},
			{"productId": "p2", "name": "Tray of eggs", "unitPrice": 450, "sellerId": "s2", "productType": "eggs", "isActive": true, "quantity": 1},
		},
	}
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/products", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["products"], 2)
}

func TestGetProductNotFound(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodGet, "/api/products/nope", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Product not found.", body["error"])
}

func TestValidateCartDegradesStaleItem(t *testing.T) {
	f := newFixture(t)

	req := cartBody()
	items := req["items"].([]map[string]any)
	items[0]["unitPrice"] = 180 // stale price

	resp, body := f.do(t, http.MethodPost, "/api/checkout/validate-cart", req, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["validItems"], 1)

	invalid := body["invalidItems"].([]any)
	require.Len(t, invalid, 1)
	first := invalid[0].(map[string]any)
	assert.Equal(t, "p1", first["productId"])
	assert.Equal(t, "product price has changed", first["reason"])
}

func TestValidateCartAllInvalid(t *testing.T) {
	f := newFixture(t)

	req := map[string]any{
		"items": []map[string]any{
			{"productId": "ghost", "name": "Ghost", "unitPrice": 1, "sellerId": "s1", "productType": "x", "isActive": true, "quantity": 1},
		},
	}

	resp, body := f.do(t, http.MethodPost, "/api/checkout/validate-cart", req, false)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Empty(t, body["validItems"])
	assert.Len(t, body["invalidItems"], 1)
}

func TestDeliveryOptions(t *testing.T) {
	f := newFixture(t)

	req := cartBody()
	req["deliveryLocation"] = map[string]any{"county": "Nairobi", "province": "Nairobi"}

	resp, body := f.do(t, http.MethodPost, "/api/checkout/delivery-options", req, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["canProceedWithOrder"])
	assert.Equal(t, float64(250), body["totalDeliveryFee"])
	assert.Len(t, body["deliveryOptions"], 2)
}

func TestDeliveryOptionsBlocked(t *testing.T) {
	f := newFixture(t)
	f.quoter.result = &delivery.QuoteResult{
		CanProceed: false,
		Message:    "We do not deliver to this county yet.",
	}

	req := cartBody()
	req["deliveryLocation"] = map[string]any{"county": "Mandera", "province": "North Eastern"}

	resp, body := f.do(t, http.MethodPost, "/api/checkout/delivery-options", req, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["canProceedWithOrder"])
	assert.Equal(t, "We do not deliver to this county yet.", body["message"])
}

func TestValidateVoucher(t *testing.T) {
	f := newFixture(t)

	req := cartBody()
	req["code"] = "kuku10"

	resp, body := f.do(t, http.MethodPost, "/api/vouchers/validate", req, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, float64(85), body["discountAmount"]) // 10% of 850
}

func TestValidateVoucherInvalidCode(t *testing.T) {
	f := newFixture(t)

	req := cartBody()
	req["code"] = "NOPE"

	resp, body := f.do(t, http.MethodPost, "/api/vouchers/validate", req, false)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Invalid voucher code.", body["error"])
}

func TestValidateDeliveryVoucherMinOrder(t *testing.T) {
	f := newFixture(t)

	req := map[string]any{"code": "SHIP50", "totalDeliveryFee": 250, "orderSubtotal": 400}

	resp, body := f.do(t, http.MethodPost, "/api/delivery-vouchers/validate", req, false)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Minimum order amount for this voucher is 500.", body["error"])
}

func TestValidateDeliveryVoucherOK(t *testing.T) {
	f := newFixture(t)

	req := map[string]any{"code": "SHIP50", "totalDeliveryFee": 250, "orderSubtotal": 850}

	resp, body := f.do(t, http.MethodPost, "/api/delivery-vouchers/validate", req, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(50), body["discountAmount"])
}

func TestCreateOrderRequiresAPIKey(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/orders", cartBody(), false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "API key required.", body["error"])
	assert.Empty(t, f.orders.created)
}

func TestCreateOrder(t *testing.T) {
	f := newFixture(t)

	req := cartBody()
	req["deliveryLocation"] = map[string]any{"county": "Nairobi", "province": "Nairobi"}
	req["deliveryAddress"] = "Moi Avenue 12"
	req["paymentPreference"] = "AFTER_DELIVERY"

	resp, body := f.do(t, http.MethodPost, "/api/orders", req, true)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	o := body["order"].(map[string]any)
	assert.Equal(t, "PLACED", o["status"])

	totals := o["totals"].(map[string]any)
	assert.Equal(t, float64(850), totals["subtotal"])
	assert.Equal(t, float64(250), totals["deliveryFee"])
	assert.Equal(t, float64(1100), totals["total"])

	require.Len(t, f.orders.created, 1)
}

func TestCreateOrderWithVouchersAndSTK(t *testing.T) {
	f := newFixture(t)

	req := cartBody()
	req["deliveryLocation"] = map[string]any{"county": "Nairobi", "province": "Nairobi"}
	req["deliveryAddress"] = "Moi Avenue 12"
	req["paymentPreference"] = "BEFORE_DELIVERY"
	req["paymentPhone"] = "254700000001"
	req["voucherCode"] = "KUKU10"
	req["deliveryVoucherCode"] = "SHIP50"
	req["stkPush"] = true

	resp, body := f.do(t, http.MethodPost, "/api/orders", req, true)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	o := body["order"].(map[string]any)
	assert.Equal(t, "PENDING_PAYMENT", o["status"])

	totals := o["totals"].(map[string]any)
	assert.Equal(t, float64(85), totals["productDiscount"])
	assert.Equal(t, float64(200), totals["deliveryFee"])
	assert.Equal(t, float64(965), totals["total"])

	stk := body["stkPush"].(map[string]any)
	assert.Equal(t, true, stk["initiated"])

	assert.Equal(t, []string{"KUKU10"}, f.vouchers.bumped)
	assert.Equal(t, []string{"SHIP50"}, f.deliveryVouchers.bumped)
}

func TestCreateOrderBlockedLocation(t *testing.T) {
	f := newFixture(t)
	f.quoter.result = &delivery.QuoteResult{
		CanProceed: false,
		Message:    "We do not deliver to this county yet.",
	}

	req := cartBody()
	req["deliveryLocation"] = map[string]any{"county": "Mandera", "province": "North Eastern"}
	req["deliveryAddress"] = "Somewhere"
	req["paymentPreference"] = "AFTER_DELIVERY"

	resp, body := f.do(t, http.MethodPost, "/api/orders", req, true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "We do not deliver to this county yet.", body["error"])
	assert.Empty(t, f.orders.created)
}

func TestCreateOrderInvalidVoucherBlocks(t *testing.T) {
	f := newFixture(t)

	req := cartBody()
	req["deliveryLocation"] = map[string]any{"county": "Nairobi", "province": "Nairobi"}
	req["deliveryAddress"] = "Moi Avenue 12"
	req["paymentPreference"] = "AFTER_DELIVERY"
	req["voucherCode"] = "NOPE"

	resp, body := f.do(t, http.MethodPost, "/api/orders", req, true)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "Invalid voucher code.", body["error"])
	assert.Empty(t, f.orders.created)
}

func TestGetSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.sessions["sess-1"] = checkout.Session{
		ID:          "sess-1",
		ProductID:   "p1",
		Quantity:    3,
		DeliveryFee: decimal.NewFromInt(120),
		ExpiresAt:   time.Now().Add(time.Hour),
		CreatedAt:   time.Now(),
	}

	resp, body := f.do(t, http.MethodGet, "/api/checkout/session/sess-1", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "p1", body["productId"])
	assert.Equal(t, float64(120), body["deliveryFee"])
}

func TestGetSessionExpired(t *testing.T) {
	f := newFixture(t)
	f.sessions.sessions["sess-old"] = checkout.Session{
		ID:        "sess-old",
		ProductID: "p1",
		Quantity:  1,
		ExpiresAt: time.Now().Add(-time.Hour),
	}

	resp, _ := f.do(t, http.MethodGet, "/api/checkout/session/sess-old", nil, false)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestGetSessionNotFound(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodGet, "/api/checkout/session/nope", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPatchSessionConsumes(t *testing.T) {
	f := newFixture(t)
	f.sessions.sessions["sess-1"] = checkout.Session{
		ID:        "sess-1",
		ProductID: "p1",
		Quantity:  1,
		ExpiresAt: time.Now().Add(time.Hour),
	}

	resp, body := f.do(t, http.MethodPatch, "/api/checkout/session/sess-1", map[string]any{"isCompleted": true}, true)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["isCompleted"])
	assert.Equal(t, []string{"sess-1"}, f.sessions.completed)

	// A consumed session cannot be consumed again.
	resp, _ = f.do(t, http.MethodPatch, "/api/checkout/session/sess-1", map[string]any{"isCompleted": true}, true)
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestCreateOrderSessionMode(t *testing.T) {
	f := newFixture(t)
	f.sessions.sessions["sess-1"] = checkout.Session{
		ID:              "sess-1",
		ProductID:       "p1",
		Quantity:        3,
		DeliveryAddress: "Kimathi Street 4",
		DeliveryCounty:  "Nairobi",
		DeliveryFee:     decimal.NewFromInt(120),
		ExpiresAt:       time.Now().Add(time.Hour),
	}

	req := map[string]any{
		"mode":              "session",
		"sessionId":         "sess-1",
		"paymentPreference": "AFTER_DELIVERY",
	}

	resp, body := f.do(t, http.MethodPost, "/api/orders", req, true)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	o := body["order"].(map[string]any)
	totals := o["totals"].(map[string]any)
	assert.Equal(t, float64(600), totals["subtotal"])
	assert.Equal(t, float64(720), totals["total"])
	assert.Equal(t, []string{"sess-1"}, f.sessions.completed)
}
