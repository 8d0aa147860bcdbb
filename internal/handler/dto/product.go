package dto

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/productcatalog/catalog/internal/model"
)

// CreateProductRequest represents the request body for creating a product.
// Price accepts a JSON number or a numeric string.
type CreateProductRequest struct {
	SKU         string          `json:"sku" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required,max=255"`
	Brand       string          `json:"brand" validate:"required,max=255"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Description string          `json:"description" validate:"max=4096"`
}

// UpdateProductRequest represents a partial product update.
type UpdateProductRequest struct {
	SKU         *string          `json:"sku,omitempty" validate:"omitempty,min=1,max=64"`
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Brand       *string          `json:"brand,omitempty" validate:"omitempty,min=1,max=255"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gt=0"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=4096"`
}

// Patch converts the request into a model patch.
func (r UpdateProductRequest) Patch() model.ProductPatch {
	return model.ProductPatch{
		SKU:         r.SKU,
		Name:        r.Name,
		Brand:       r.Brand,
		Price:       r.Price,
		Description: r.Description,
	}
}

// ProductResponse is the list view of a product.
type ProductResponse struct {
	ID    int64       `json:"id"`
	SKU   string      `json:"sku"`
	Name  string      `json:"name"`
	Brand string      `json:"brand"`
	Price json.Number `json:"price"`
}

// ProductDetailsResponse adds the description to ProductResponse.
type ProductDetailsResponse struct {
	ProductResponse
	Description string `json:"description"`
}

// HitsResponse is returned by GET /products/{id}/hits.
type HitsResponse struct {
	Hits int64 `json:"hits"`
}

// ToProductResponse converts a Product model to its list view.
func ToProductResponse(p *model.Product) ProductResponse {
	return ProductResponse{
		ID:    p.ID,
		SKU:   p.SKU,
		Name:  p.Name,
		Brand: p.Brand,
		Price: json.Number(p.Price.String()),
	}
}

// ToProductDetailsResponse converts a Product model to its detail view.
func ToProductDetailsResponse(p *model.Product) ProductDetailsResponse {
	return ProductDetailsResponse{
		ProductResponse: ToProductResponse(p),
		Description:     p.Description,
	}
}

// ToProductListResponse converts a slice of products.
func ToProductListResponse(products []model.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = ToProductResponse(&products[i])
	}
	return out
}
