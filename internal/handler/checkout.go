package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/kukusoko/checkout-engine/internal/domain/cart"
	"github.com/kukusoko/checkout-engine/internal/domain/checkout"
)

type validateCartRequest struct {
	Items []cartItemDTO `json:"items"`
}

type validateCartResponse struct {
	ValidItems   []validatedItemDTO `json:"validItems"`
	InvalidItems []invalidItemDTO   `json:"invalidItems"`
}

func (h *Handler) validateCart(w http.ResponseWriter, r *http.Request) {
	var req validateCartRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	valid, invalid, err := h.checkout.ValidateCart(r.Context(), cartItemsToDomain(req.Items))
	if err != nil && !errors.Is(err, cart.ErrNoValidItems) {
		respondDomainError(w, r, err)
		return
	}

	resp := validateCartResponse{
		ValidItems:   validatedItemsDTO(valid, time.Now()),
		InvalidItems: invalidItemsDTO(invalid),
	}
	// An emptied cart is still reported with its per-item reasons, just with
	// a status that stops the flow.
	status := http.StatusOK
	if errors.Is(err, cart.ErrNoValidItems) {
		status = http.StatusConflict
	}
	respondJSON(w, status, resp)
}

type deliveryOptionsRequest struct {
	Items            []cartItemDTO `json:"items"`
	DeliveryLocation locationDTO   `json:"deliveryLocation"`
}

type deliveryOptionsResponse struct {
	DeliveryOptions  []deliveryOptionDTO `json:"deliveryOptions"`
	CanProceed       bool                `json:"canProceedWithOrder"`
	Message          string              `json:"message,omitempty"`
	TotalDeliveryFee float64             `json:"totalDeliveryFee"`
	InvalidItems     []invalidItemDTO    `json:"invalidItems,omitempty"`
}

func (h *Handler) deliveryOptions(w http.ResponseWriter, r *http.Request) {
	var req deliveryOptionsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	valid, invalid, err := h.checkout.ValidateCart(r.Context(), cartItemsToDomain(req.Items))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	quote, err := h.checkout.DeliveryOptions(r.Context(), valid, req.DeliveryLocation.toDomain())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	// canProceedWithOrder=false passes through as a 200: the client renders
	// the blocking message, it is not a transport failure.
	respondJSON(w, http.StatusOK, deliveryOptionsResponse{
		DeliveryOptions:  deliveryOptionsDTO(quote.Options),
		CanProceed:       quote.CanProceed,
		Message:          quote.Message,
		TotalDeliveryFee: quote.TotalFee().InexactFloat64(),
		InvalidItems:     invalidItemsDTO(invalid),
	})
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if err := sess.Usable(time.Now()); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sessionToDTO(sess))
}

type patchSessionRequest struct {
	IsCompleted bool `json:"isCompleted"`
}

func (h *Handler) patchSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req patchSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if !req.IsCompleted {
		respondError(w, http.StatusBadRequest, "Only isCompleted=true is supported.")
		return
	}

	sess, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	if sess.IsCompleted {
		respondDomainError(w, r, checkout.ErrSessionCompleted)
		return
	}
	if err := h.sessions.MarkCompleted(r.Context(), id); err != nil {
		respondDomainError(w, r, err)
		return
	}

	sess.IsCompleted = true
	respondJSON(w, http.StatusOK, sessionToDTO(sess))
}
