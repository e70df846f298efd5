package handler

import (
	"net/http"

	"github.com/kukusoko/checkout-engine/internal/domain/checkout"
	"github.com/kukusoko/checkout-engine/internal/domain/order"
)

type createOrderRequest struct {
	Mode                string        `json:"mode,omitempty"` // "cart" (default) or "session"
	SessionID           string        `json:"sessionId,omitempty"`
	Items               []cartItemDTO `json:"items,omitempty"`
	DeliveryLocation    locationDTO   `json:"deliveryLocation"`
	DeliveryAddress     string        `json:"deliveryAddress"`
	PaymentPreference   string        `json:"paymentPreference"`
	PaymentPhone        string        `json:"paymentPhone,omitempty"`
	VoucherCode         string        `json:"voucherCode,omitempty"`
	DeliveryVoucherCode string        `json:"deliveryVoucherCode,omitempty"`
	STKPush             bool          `json:"stkPush,omitempty"`
}

type createOrderResponse struct {
	Order        orderDTO         `json:"order"`
	InvalidItems []invalidItemDTO `json:"invalidItems,omitempty"`
	STKPush      *stkResultDTO    `json:"stkPush,omitempty"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	mode := checkout.ModeCart
	if req.Mode == "session" {
		mode = checkout.ModeSession
		if req.SessionID == "" {
			respondError(w, http.StatusBadRequest, "sessionId is required for session checkout.")
			return
		}
	}

	preference := order.PaymentPreference(req.PaymentPreference)
	switch preference {
	case order.PayBeforeDelivery, order.PayAfterDelivery:
	default:
		respondError(w, http.StatusBadRequest, "Invalid payment preference.")
		return
	}
	if req.STKPush && preference == order.PayBeforeDelivery && req.PaymentPhone == "" {
		respondError(w, http.StatusBadRequest, "Payment phone is required for STK push.")
		return
	}

	res, err := h.checkout.Submit(r.Context(), checkout.SubmitRequest{
		Mode:                mode,
		SessionID:           req.SessionID,
		Items:               cartItemsToDomain(req.Items),
		Location:            req.DeliveryLocation.toDomain(),
		DeliveryAddress:     req.DeliveryAddress,
		PaymentPreference:   preference,
		PaymentPhone:        req.PaymentPhone,
		VoucherCode:         req.VoucherCode,
		DeliveryVoucherCode: req.DeliveryVoucherCode,
		STKPush:             req.STKPush,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, createOrderResponse{
		Order:        orderToDTO(res.Order, res.Totals),
		InvalidItems: invalidItemsDTO(res.InvalidItems),
		STKPush:      stkResultToDTO(res.STK),
	})
}
