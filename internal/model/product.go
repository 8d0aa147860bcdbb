package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry. SKU is unique across live products.
type Product struct {
	ID          int64           `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductPatch lists the fields a partial update may change.
type ProductPatch struct {
	SKU         *string
	Name        *string
	Brand       *string
	Price       *decimal.Decimal
	Description *string
}

// IsEmpty reports whether the patch changes nothing.
func (p ProductPatch) IsEmpty() bool {
	return p.SKU == nil && p.Name == nil && p.Brand == nil && p.Price == nil && p.Description == nil
}

// Apply returns a copy of prod with the patch applied.
func (p ProductPatch) Apply(prod Product) Product {
	next := prod
	if p.SKU != nil {
		next.SKU = *p.SKU
	}
	if p.Name != nil {
		next.Name = *p.Name
	}
	if p.Brand != nil {
		next.Brand = *p.Brand
	}
	if p.Price != nil {
		next.Price = *p.Price
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	return next
}

// ProductHit is one anonymous view of a product detail page.
// ProductID is a weak reference: hits are not removed with their product.
type ProductHit struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	SeenAt    time.Time `json:"seen_at"`
}

// Prices are stored as NUMERIC(12,2).
const (
	PriceScale         = 2
	PriceIntegerDigits = 10
)

var maxPrice = decimal.New(1, PriceIntegerDigits)

// ValidPrice reports whether d is positive and fits the price column exactly,
// so that storing it neither rounds nor overflows.
func ValidPrice(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(PriceScale)) && d.LessThan(maxPrice)
}
