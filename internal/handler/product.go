package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type productListResponse struct {
	Products []productDTO `json:"products"`
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	now := time.Now()
	out := make([]productDTO, len(products))
	for i, p := range products {
		out[i] = productToDTO(p, now)
	}
	respondJSON(w, http.StatusOK, productListResponse{Products: out})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, productToDTO(*p, time.Now()))
}
