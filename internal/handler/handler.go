// Package handler exposes the checkout engine over HTTP. It owns request
// decoding, response shaping, and the mapping from domain errors to status
// codes; all pricing decisions stay in the domain packages.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/kukusoko/checkout-engine/internal/domain/cart"
	"github.com/kukusoko/checkout-engine/internal/domain/checkout"
	"github.com/kukusoko/checkout-engine/internal/domain/delivery"
	"github.com/kukusoko/checkout-engine/internal/domain/product"
	"github.com/kukusoko/checkout-engine/internal/domain/voucher"
)

// Handler bundles the HTTP endpoints over the checkout service and the
// read-side repositories.
type Handler struct {
	products         product.Repository
	checkout         *checkout.Service
	vouchers         voucher.ProductRepository
	deliveryVouchers voucher.DeliveryRepository
	sessions         checkout.SessionRepository
}

// NewHandler creates a Handler with its collaborators.
func NewHandler(
	products product.Repository,
	svc *checkout.Service,
	vouchers voucher.ProductRepository,
	deliveryVouchers voucher.DeliveryRepository,
	sessions checkout.SessionRepository,
) *Handler {
	return &Handler{
		products:         products,
		checkout:         svc,
		vouchers:         vouchers,
		deliveryVouchers: deliveryVouchers,
		sessions:         sessions,
	}
}

// Routes builds the /api router. Order submission and session consumption
// mutate state and sit behind the API key middleware; the rest is public.
func (h *Handler) Routes(auth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)

	r.Get("/vouchers", h.listVouchers)
	r.Get("/delivery-vouchers", h.listDeliveryVouchers)
	r.Post("/vouchers/validate", h.validateVoucher)
	r.Post("/delivery-vouchers/validate", h.validateDeliveryVoucher)

	r.Post("/checkout/validate-cart", h.validateCart)
	r.Post("/checkout/delivery-options", h.deliveryOptions)
	r.Get("/checkout/session/{id}", h.getSession)

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/orders", h.createOrder)
		r.Patch("/checkout/session/{id}", h.patchSession)
	})

	return r
}

// errorResponse is the uniform error body. Voucher validation messages pass
// through verbatim so clients can show them directly.
type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// respondDomainError maps domain errors to HTTP statuses. Unknown errors are
// logged and hidden behind a generic 500.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var minOrder *voucher.MinOrderError
	var cannotProceed *delivery.CannotProceedError

	switch {
	case errors.As(err, &minOrder):
		respondError(w, http.StatusUnprocessableEntity, minOrder.Error())
	case errors.Is(err, voucher.ErrInvalidCode),
		errors.Is(err, voucher.ErrExpired),
		errors.Is(err, voucher.ErrUsageLimitReached),
		errors.Is(err, voucher.ErrNotApplicable),
		errors.Is(err, voucher.ErrInvalidDeliveryCode),
		errors.Is(err, voucher.ErrDeliveryExpired),
		errors.Is(err, voucher.ErrDeliveryUsageLimit):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &cannotProceed):
		respondError(w, http.StatusConflict, cannotProceed.Error())
	case errors.Is(err, cart.ErrNoValidItems):
		respondError(w, http.StatusConflict, "No valid items remain in your cart.")
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "Product not found.")
	case errors.Is(err, checkout.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "Checkout session not found.")
	case errors.Is(err, checkout.ErrSessionExpired),
		errors.Is(err, checkout.ErrSessionCompleted):
		respondError(w, http.StatusGone, err.Error())
	case errors.Is(err, checkout.ErrMissingAddress):
		respondError(w, http.StatusBadRequest, "Delivery address is required.")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
