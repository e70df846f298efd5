package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type voucherListResponse struct {
	Vouchers []voucherDTO `json:"vouchers"`
}

// listVouchers returns active product vouchers. The active filter is the only
// supported view; ?active=true is accepted for compatibility and anything
// else is rejected.
func (h *Handler) listVouchers(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("active"); v != "" && v != "true" {
		respondError(w, http.StatusBadRequest, "Only active vouchers can be listed.")
		return
	}

	vouchers, err := h.vouchers.ListActive(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]voucherDTO, len(vouchers))
	for i, v := range vouchers {
		out[i] = productVoucherToDTO(v)
	}
	respondJSON(w, http.StatusOK, voucherListResponse{Vouchers: out})
}

func (h *Handler) listDeliveryVouchers(w http.ResponseWriter, r *http.Request) {
	vouchers, err := h.deliveryVouchers.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]voucherDTO, len(vouchers))
	for i, v := range vouchers {
		out[i] = deliveryVoucherToDTO(v)
	}
	respondJSON(w, http.StatusOK, voucherListResponse{Vouchers: out})
}

type validateVoucherRequest struct {
	Code  string        `json:"code"`
	Items []cartItemDTO `json:"items"`
}

type validateVoucherResponse struct {
	Valid          bool       `json:"valid"`
	DiscountAmount float64    `json:"discountAmount"`
	Voucher        voucherDTO `json:"voucher"`
}

// validateVoucher checks a product voucher against the live cart. The cart is
// re-validated first so the voucher rules see current prices and sellers.
func (h *Handler) validateVoucher(w http.ResponseWriter, r *http.Request) {
	var req validateVoucherRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	valid, _, err := h.checkout.ValidateCart(r.Context(), cartItemsToDomain(req.Items))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	d, err := h.checkout.ValidateProductVoucher(r.Context(), req.Code, valid)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, validateVoucherResponse{
		Valid:          true,
		DiscountAmount: d.Amount.InexactFloat64(),
		Voucher:        productVoucherToDTO(*d.Voucher),
	})
}

type validateDeliveryVoucherRequest struct {
	Code             string  `json:"code"`
	TotalDeliveryFee float64 `json:"totalDeliveryFee"`
	OrderSubtotal    float64 `json:"orderSubtotal"`
}

func (h *Handler) validateDeliveryVoucher(w http.ResponseWriter, r *http.Request) {
	var req validateDeliveryVoucherRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	d, err := h.checkout.ValidateDeliveryVoucher(r.Context(), req.Code,
		decimal.NewFromFloat(req.TotalDeliveryFee), decimal.NewFromFloat(req.OrderSubtotal))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, validateVoucherResponse{
		Valid:          true,
		DiscountAmount: d.Amount.InexactFloat64(),
		Voucher:        deliveryVoucherToDTO(*d.Voucher),
	})
}
