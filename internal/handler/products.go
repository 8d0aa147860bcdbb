package handler

import (
	"log/slog"
	"net/http"

	"github.com/productcatalog/catalog/internal/auth"
	"github.com/productcatalog/catalog/internal/handler/dto"
	"github.com/productcatalog/catalog/internal/model"
	"github.com/productcatalog/catalog/internal/service"
)

// ProductHandler handles HTTP requests for product operations.
type ProductHandler struct {
	svc    *service.ProductService
	logger *slog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		svc:    svc,
		logger: logger,
	}
}

// List handles GET /products/.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.List(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProductListResponse(products))
}

// Get handles GET /products/{id}. Anonymous callers record a hit.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		handleServiceError(w, r, h.logger, service.ErrProductNotFound)
		return
	}

	p, err := h.svc.Get(r.Context(), id, auth.IdentityFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProductDetailsResponse(p))
}

// Hits handles GET /products/{id}/hits.
func (h *ProductHandler) Hits(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		handleServiceError(w, r, h.logger, service.ErrProductNotFound)
		return
	}

	n, err := h.svc.HitCount(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.HitsResponse{Hits: n})
}

// Create handles POST /products/.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req dto.CreateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.svc.Create(r.Context(), actor, service.CreateProductInput{
		SKU:         req.SKU,
		Name:        req.Name,
		Brand:       req.Brand,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProductDetailsResponse(p))
}

// Update handles PUT /products/{id}. Omitted fields keep their value.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := parseID(r)
	if !ok {
		handleServiceError(w, r, h.logger, service.ErrProductNotFound)
		return
	}

	var req dto.UpdateProductRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.svc.Update(r.Context(), actor, id, req.Patch())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProductDetailsResponse(p))
}

// Delete handles DELETE /products/{id}.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id, ok := parseID(r)
	if !ok {
		handleServiceError(w, r, h.logger, service.ErrProductNotFound)
		return
	}

	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DeletedResponse{ID: id})
}

// actor returns the authenticated caller of a mutating route.
func (h *ProductHandler) actor(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")
		return model.Identity{}, false
	}
	return *identity, true
}
