package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kukusoko/checkout-engine/internal/domain/cart"
	"github.com/kukusoko/checkout-engine/internal/domain/checkout"
	"github.com/kukusoko/checkout-engine/internal/domain/delivery"
	"github.com/kukusoko/checkout-engine/internal/domain/order"
	"github.com/kukusoko/checkout-engine/internal/domain/product"
	"github.com/kukusoko/checkout-engine/internal/domain/voucher"
)

// Amounts cross the JSON edge as floats; everything internal stays decimal.

type cartItemDTO struct {
	ProductID   string  `json:"productId"`
	Name        string  `json:"name"`
	UnitPrice   float64 `json:"unitPrice"`
	SellerID    string  `json:"sellerId"`
	ProductType string  `json:"productType"`
	IsActive    bool    `json:"isActive"`
	Quantity    int     `json:"quantity"`
}

func (d cartItemDTO) toDomain() cart.Item {
	return cart.Item{
		ProductID:   d.ProductID,
		Name:        d.Name,
		UnitPrice:   decimal.NewFromFloat(d.UnitPrice),
		SellerID:    d.SellerID,
		ProductType: d.ProductType,
		IsActive:    d.IsActive,
		Quantity:    d.Quantity,
	}
}

func cartItemsToDomain(items []cartItemDTO) []cart.Item {
	out := make([]cart.Item, len(items))
	for i, it := range items {
		out[i] = it.toDomain()
	}
	return out
}

type validatedItemDTO struct {
	ProductID      string  `json:"productId"`
	Name           string  `json:"name"`
	UnitPrice      float64 `json:"unitPrice"`
	EffectivePrice float64 `json:"effectivePrice"`
	SellerID       string  `json:"sellerId"`
	ProductType    string  `json:"productType"`
	Quantity       int     `json:"quantity"`
}

func validatedItemsDTO(items []cart.ValidatedItem, now time.Time) []validatedItemDTO {
	out := make([]validatedItemDTO, len(items))
	for i, it := range items {
		out[i] = validatedItemDTO{
			ProductID:      it.ProductID,
			Name:           it.Product.Name,
			UnitPrice:      it.Product.Price.InexactFloat64(),
			EffectivePrice: it.Product.EffectivePrice(now).InexactFloat64(),
			SellerID:       it.SellerID,
			ProductType:    it.Product.Type,
			Quantity:       it.Quantity,
		}
	}
	return out
}

type invalidItemDTO struct {
	ProductID string `json:"productId"`
	Reason    string `json:"reason"`
}

func invalidItemsDTO(items []cart.InvalidItem) []invalidItemDTO {
	out := make([]invalidItemDTO, len(items))
	for i, it := range items {
		out[i] = invalidItemDTO{ProductID: it.ProductID, Reason: it.Reason}
	}
	return out
}

type locationDTO struct {
	County   string `json:"county"`
	Province string `json:"province"`
}

func (d locationDTO) toDomain() delivery.Location {
	return delivery.Location{County: d.County, Province: d.Province}
}

type deliveryOptionDTO struct {
	SellerID          string   `json:"sellerId"`
	SellerRole        string   `json:"sellerRole,omitempty"`
	ItemIDs           []string `json:"itemIds,omitempty"`
	Subtotal          float64  `json:"subtotal"`
	Deliverable       bool     `json:"deliverable"`
	DeliveryFee       float64  `json:"deliveryFee"`
	FreeDelivery      bool     `json:"freeDeliveryEligible"`
	PaymentMethods    []string `json:"paymentMethods,omitempty"`
	Message           string   `json:"message,omitempty"`
	PlatformFulfilled bool     `json:"platformFulfilled"`
}

func deliveryOptionsDTO(opts []delivery.Option) []deliveryOptionDTO {
	out := make([]deliveryOptionDTO, len(opts))
	for i, o := range opts {
		out[i] = deliveryOptionDTO{
			SellerID:          o.SellerID,
			SellerRole:        o.SellerRole,
			ItemIDs:           o.ItemIDs,
			Subtotal:          o.Subtotal.InexactFloat64(),
			Deliverable:       o.Deliverable,
			DeliveryFee:       o.Fee.InexactFloat64(),
			FreeDelivery:      o.FreeDelivery,
			PaymentMethods:    o.PaymentMethods,
			Message:           o.Message,
			PlatformFulfilled: o.PlatformFulfilled,
		}
	}
	return out
}

type productDiscountDTO struct {
	Type     string  `json:"type"`
	Amount   float64 `json:"amount"`
	StartsAt string  `json:"startsAt"`
	EndsAt   string  `json:"endsAt"`
	Active   bool    `json:"active"`
}

type productDTO struct {
	ID             string              `json:"id"`
	Name           string              `json:"name"`
	Price          float64             `json:"price"`
	EffectivePrice float64             `json:"effectivePrice"`
	Stock          int                 `json:"stock"`
	SellerID       string              `json:"sellerId"`
	ProductType    string              `json:"productType"`
	IsActive       bool                `json:"isActive"`
	Discount       *productDiscountDTO `json:"discount,omitempty"`
}

func productToDTO(p product.Product, now time.Time) productDTO {
	dto := productDTO{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price.InexactFloat64(),
		EffectivePrice: p.EffectivePrice(now).InexactFloat64(),
		Stock:          p.Stock,
		SellerID:       p.SellerID,
		ProductType:    p.Type,
		IsActive:       p.IsActive,
	}
	if d := p.Discount; d != nil {
		dto.Discount = &productDiscountDTO{
			Type:     string(d.Type),
			Amount:   d.Amount.InexactFloat64(),
			StartsAt: d.StartsAt.Format(time.RFC3339),
			EndsAt:   d.EndsAt.Format(time.RFC3339),
			Active:   d.Active,
		}
	}
	return dto
}

type voucherDTO struct {
	Code           string   `json:"code"`
	DiscountType   string   `json:"discountType"`
	Value          float64  `json:"value"`
	MinOrderAmount float64  `json:"minOrderAmount"`
	SellerID       string   `json:"sellerId,omitempty"`
	ProductTypes   []string `json:"productTypes,omitempty"`
	ExpiresAt      string   `json:"expiresAt,omitempty"`
}

func productVoucherToDTO(v voucher.ProductVoucher) voucherDTO {
	dto := voucherDTO{
		Code:           v.Code,
		DiscountType:   string(v.Type),
		Value:          v.Value.InexactFloat64(),
		MinOrderAmount: v.MinOrderAmount.InexactFloat64(),
		SellerID:       v.SellerID,
		ProductTypes:   v.ProductTypes,
	}
	if v.ExpiresAt != nil {
		dto.ExpiresAt = v.ExpiresAt.Format(time.RFC3339)
	}
	return dto
}

func deliveryVoucherToDTO(v voucher.DeliveryVoucher) voucherDTO {
	dto := voucherDTO{
		Code:           v.Code,
		DiscountType:   string(v.Type),
		Value:          v.Value.InexactFloat64(),
		MinOrderAmount: v.MinOrderAmount.InexactFloat64(),
	}
	if v.ExpiresAt != nil {
		dto.ExpiresAt = v.ExpiresAt.Format(time.RFC3339)
	}
	return dto
}

type totalsDTO struct {
	Subtotal         float64 `json:"subtotal"`
	ProductDiscount  float64 `json:"productDiscount"`
	DeliveryFeeGross float64 `json:"deliveryFeeGross"`
	DeliveryDiscount float64 `json:"deliveryDiscount"`
	DeliveryFeeNet   float64 `json:"deliveryFee"`
	GrandTotal       float64 `json:"total"`
}

func totalsToDTO(t checkout.Totals) totalsDTO {
	return totalsDTO{
		Subtotal:         t.Subtotal.InexactFloat64(),
		ProductDiscount:  t.ProductDiscount.InexactFloat64(),
		DeliveryFeeGross: t.DeliveryFeeGross.InexactFloat64(),
		DeliveryDiscount: t.DeliveryDiscount.InexactFloat64(),
		DeliveryFeeNet:   t.DeliveryFeeNet.InexactFloat64(),
		GrandTotal:       t.GrandTotal.InexactFloat64(),
	}
}

type orderDTO struct {
	ID                  string    `json:"id"`
	Status              string    `json:"status"`
	DeliveryAddress     string    `json:"deliveryAddress"`
	DeliveryCounty      string    `json:"deliveryCounty,omitempty"`
	DeliveryProvince    string    `json:"deliveryProvince,omitempty"`
	PaymentPreference   string    `json:"paymentPreference"`
	VoucherCode         string    `json:"voucherCode,omitempty"`
	DeliveryVoucherCode string    `json:"deliveryVoucherCode,omitempty"`
	Totals              totalsDTO `json:"totals"`
	CreatedAt           string    `json:"createdAt"`
}

func orderToDTO(o *order.Order, t checkout.Totals) orderDTO {
	return orderDTO{
		ID:                  o.ID,
		Status:              string(o.Status),
		DeliveryAddress:     o.DeliveryAddress,
		DeliveryCounty:      o.DeliveryCounty,
		DeliveryProvince:    o.DeliveryProvince,
		PaymentPreference:   string(o.PaymentPreference),
		VoucherCode:         o.VoucherCode,
		DeliveryVoucherCode: o.DeliveryVoucherCode,
		Totals:              totalsToDTO(t),
		CreatedAt:           o.CreatedAt.Format(time.RFC3339),
	}
}

type stkResultDTO struct {
	Initiated                 bool   `json:"initiated"`
	Error                     string `json:"error,omitempty"`
	FallbackToManual          bool   `json:"fallbackToManual"`
	ManualPaymentInstructions string `json:"manualPaymentInstructions,omitempty"`
}

func stkResultToDTO(r *order.STKResult) *stkResultDTO {
	if r == nil {
		return nil
	}
	return &stkResultDTO{
		Initiated:                 r.Initiated,
		Error:                     r.Error,
		FallbackToManual:          r.FallbackToManual,
		ManualPaymentInstructions: r.ManualPaymentInstructions,
	}
}

type sessionDTO struct {
	ID               string  `json:"id"`
	ProductID        string  `json:"productId"`
	Quantity         int     `json:"quantity"`
	DeliveryAddress  string  `json:"deliveryAddress,omitempty"`
	DeliveryCounty   string  `json:"deliveryCounty,omitempty"`
	DeliveryProvince string  `json:"deliveryProvince,omitempty"`
	DeliveryFee      float64 `json:"deliveryFee"`
	IsCompleted      bool    `json:"isCompleted"`
	ExpiresAt        string  `json:"expiresAt"`
	CreatedAt        string  `json:"createdAt"`
}

func sessionToDTO(s *checkout.Session) sessionDTO {
	return sessionDTO{
		ID:               s.ID,
		ProductID:        s.ProductID,
		Quantity:         s.Quantity,
		DeliveryAddress:  s.DeliveryAddress,
		DeliveryCounty:   s.DeliveryCounty,
		DeliveryProvince: s.DeliveryProvince,
		DeliveryFee:      s.DeliveryFee.InexactFloat64(),
		IsCompleted:      s.IsCompleted,
		ExpiresAt:        s.ExpiresAt.Format(time.RFC3339),
		CreatedAt:        s.CreatedAt.Format(time.RFC3339),
	}
}
