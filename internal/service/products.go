package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/productcatalog/catalog/internal/metrics"
	"github.com/productcatalog/catalog/internal/model"
	"github.com/productcatalog/catalog/internal/notify"
	"github.com/productcatalog/catalog/internal/repository"
)

// DemoProducts are seeded on startup when enabled.
var DemoProducts = []model.Product{
	{
		SKU:         "B079XC5PVV",
		Name:        "SSD Disk 1TB",
		Brand:       "Kingston",
		Price:       decimal.RequireFromString("2012.50"),
		Description: "Fast storage solution",
	},
	{
		SKU:         "B00U26V4VQ",
		Name:        "Catan classic",
		Brand:       "Catan Studio",
		Price:       decimal.RequireFromString("1140.26"),
		Description: "Classic board game",
	},
}

// ProductService handles catalog business logic.
type ProductService struct {
	store    ProductStore
	admins   AdminDirectory
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  metrics.Recorder
}

// NewProductService creates a new ProductService.
func NewProductService(store ProductStore, admins AdminDirectory, notifier notify.Notifier, logger *slog.Logger, recorder metrics.Recorder) *ProductService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &ProductService{
		store:    store,
		admins:   admins,
		notifier: notifier,
		logger:   logger.With("component", "service.products"),
		metrics:  recorder,
	}
}

// CreateProductInput defines input for creating a product.
type CreateProductInput struct {
	SKU         string
	Name        string
	Brand       string
	Price       decimal.Decimal
	Description string
}

// List returns all products. It never records hits.
func (s *ProductService) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Get returns a product. A nil caller is anonymous, and each anonymous view
// records exactly one hit.
func (s *ProductService) Get(ctx context.Context, id int64, caller *model.Identity) (*model.Product, error) {
	p, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, mapProductError(err)
	}

	if caller == nil {
		if err := s.store.RecordHit(ctx, p.ID); err != nil {
			return nil, fmt.Errorf("record hit: %w", err)
		}
		s.metrics.IncProductHit()
	}

	return p, nil
}

// HitCount returns how many anonymous views a product has had.
func (s *ProductService) HitCount(ctx context.Context, id int64) (int64, error) {
	if _, err := s.store.GetProductByID(ctx, id); err != nil {
		return 0, mapProductError(err)
	}
	n, err := s.store.CountHits(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("count hits: %w", err)
	}
	return n, nil
}

// Create adds a product and notifies the other admins.
func (s *ProductService) Create(ctx context.Context, actor model.Identity, input CreateProductInput) (*model.Product, error) {
	if !model.ValidPrice(input.Price) {
		return nil, ErrInvalidPrice
	}

	if err := s.ensureSKUFree(ctx, input.SKU, 0); err != nil {
		return nil, err
	}

	p := &model.Product{
		SKU:         input.SKU,
		Name:        input.Name,
		Brand:       input.Brand,
		Price:       input.Price,
		Description: input.Description,
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, mapProductError(err)
	}

	s.metrics.IncProductCreated()
	s.logger.Info("product created", "product_id", p.ID, "sku", p.SKU, "actor_id", actor.UserID)
	s.notifyAdmins(ctx, actor, fmt.Sprintf("created product #%d", p.ID))
	return p, nil
}

// Update applies a partial update and notifies the other admins.
func (s *ProductService) Update(ctx context.Context, actor model.Identity, id int64, patch model.ProductPatch) (*model.Product, error) {
	current, err := s.store.GetProductByID(ctx, id)
	if err != nil {
		return nil, mapProductError(err)
	}

	if patch.Price != nil && !model.ValidPrice(*patch.Price) {
		return nil, ErrInvalidPrice
	}
	if patch.SKU != nil && *patch.SKU != current.SKU {
		if err := s.ensureSKUFree(ctx, *patch.SKU, id); err != nil {
			return nil, err
		}
	}

	if patch.IsEmpty() {
		return current, nil
	}

	next := patch.Apply(*current)
	if err := s.store.UpdateProduct(ctx, &next); err != nil {
		return nil, mapProductError(err)
	}

	s.metrics.IncProductUpdated()
	s.logger.Info("product updated", "product_id", id, "actor_id", actor.UserID)
	s.notifyAdmins(ctx, actor, fmt.Sprintf("updated product #%d", id))
	return &next, nil
}

// Delete removes a product and notifies the other admins.
func (s *ProductService) Delete(ctx context.Context, actor model.Identity, id int64) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return mapProductError(err)
	}

	s.metrics.IncProductDeleted()
	s.logger.Info("product deleted", "product_id", id, "actor_id", actor.UserID)
	s.notifyAdmins(ctx, actor, fmt.Sprintf("deleted product #%d", id))
	return nil
}

// SeedProducts inserts the demo products whose SKU is not taken yet.
// It returns how many were inserted. No notifications are sent.
func (s *ProductService) SeedProducts(ctx context.Context, products []model.Product) (int, error) {
	inserted := 0
	for _, demo := range products {
		p := demo
		err := s.store.CreateProduct(ctx, &p)
		if errors.Is(err, repository.ErrSKUExists) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("seed product %s: %w", demo.SKU, err)
		}
		inserted++
	}
	if inserted > 0 {
		s.logger.Info("demo products seeded", "count", inserted)
	}
	return inserted, nil
}

func (s *ProductService) ensureSKUFree(ctx context.Context, sku string, selfID int64) error {
	existing, err := s.store.GetProductBySKU(ctx, sku)
	switch {
	case err == nil && existing.ID != selfID:
		return ErrSKUExists
	case err == nil, errors.Is(err, repository.ErrProductNotFound):
		return nil
	default:
		return fmt.Errorf("check sku: %w", err)
	}
}

// notifyAdmins resolves recipients synchronously and hands delivery to the notifier.
// Failures are logged and counted only.
func (s *ProductService) notifyAdmins(ctx context.Context, actor model.Identity, change string) {
	if s.notifier == nil {
		return
	}

	recipients, err := s.admins.ListAdminEmails(ctx, actor.UserID)
	if err != nil {
		s.logger.Warn("failed to resolve notification recipients",
			"change", change,
			"error", err,
		)
		s.metrics.IncNotification(metrics.NotificationFailed)
		return
	}

	s.notifier.Notify(actor.Email, change, recipients)
}

func mapProductError(err error) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return ErrProductNotFound
	case errors.Is(err, repository.ErrSKUExists):
		return ErrSKUExists
	default:
		return err
	}
}
