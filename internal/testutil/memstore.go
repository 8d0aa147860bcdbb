package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/productcatalog/catalog/internal/model"
	"github.com/productcatalog/catalog/internal/repository"
)

// MemStore is an in-memory stand-in for the PostgreSQL repository.
// It enforces the same uniqueness rules and returns the same sentinel errors.
type MemStore struct {
	mu        sync.Mutex
	users     map[int64]model.User
	products  map[int64]model.Product
	hits      map[int64]int64
	nextUser  int64
	nextProd  int64
	mutations int

	// Err, when set, is returned by every call.
	Err error
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		users:    make(map[int64]model.User),
		products: make(map[int64]model.Product),
		hits:     make(map[int64]int64),
	}
}

// Mutations returns how many writes reached the store.
func (s *MemStore) Mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutations
}

// Ping implements the readiness check.
func (s *MemStore) Ping(context.Context) error {
	return s.Err
}

// CreateUser implements the user store.
func (s *MemStore) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	s.nextUser++
	now := time.Now().UTC()
	user.ID = s.nextUser
	user.CreatedAt, user.UpdatedAt = now, now
	s.users[user.ID] = *user
	s.mutations++
	return nil
}

// GetUserByID implements the user store.
func (s *MemStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

// GetUserByEmail implements the user store.
func (s *MemStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// ListUsers implements the user store.
func (s *MemStore) ListUsers(context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateUser implements the user store.
func (s *MemStore) UpdateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	for id, u := range s.users {
		if id != user.ID && u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	user.UpdatedAt = time.Now().UTC()
	s.users[user.ID] = *user
	s.mutations++
	return nil
}

// DeleteUser implements the user store.
func (s *MemStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(s.users, id)
	s.mutations++
	return nil
}

// CountUsers implements the user store.
func (s *MemStore) CountUsers(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return int64(len(s.users)), nil
}

// ListAdminEmails implements the user store.
func (s *MemStore) ListAdminEmails(_ context.Context, excludeID int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	ids := make([]int64, 0)
	for id, u := range s.users {
		if u.IsAdmin && id != excludeID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	emails := make([]string, 0, len(ids))
	for _, id := range ids {
		emails = append(emails, s.users[id].Email)
	}
	return emails, nil
}

// CreateProduct implements the product store.
func (s *MemStore) CreateProduct(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.products {
		if existing.SKU == p.SKU {
			return repository.ErrSKUExists
		}
	}
	if err := storePrice(p); err != nil {
		return err
	}
	s.nextProd++
	now := time.Now().UTC()
	p.ID = s.nextProd
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = *p
	s.mutations++
	return nil
}

// GetProductByID implements the product store.
func (s *MemStore) GetProductByID(_ context.Context, id int64) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

// GetProductBySKU implements the product store.
func (s *MemStore) GetProductBySKU(_ context.Context, sku string) (*model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, p := range s.products {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, repository.ErrProductNotFound
}

// ListProducts implements the product store.
func (s *MemStore) ListProducts(context.Context) ([]model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateProduct implements the product store.
func (s *MemStore) UpdateProduct(_ context.Context, p *model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	for id, existing := range s.products {
		if id != p.ID && existing.SKU == p.SKU {
			return repository.ErrSKUExists
		}
	}
	if err := storePrice(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = *p
	s.mutations++
	return nil
}

// DeleteProduct implements the product store.
func (s *MemStore) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if _, ok := s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(s.products, id)
	s.mutations++
	return nil
}

// RecordHit implements the hit store.
func (s *MemStore) RecordHit(_ context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.hits[productID]++
	s.mutations++
	return nil
}

// CountHits implements the hit store.
func (s *MemStore) CountHits(_ context.Context, productID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return s.hits[productID], nil
}

// storePrice rounds p.Price the way the NUMERIC(12,2) column does and fails
// where Postgres would: overflow or a non-positive stored value.
func storePrice(p *model.Product) error {
	rounded := p.Price.Round(model.PriceScale)
	if rounded.Abs().GreaterThanOrEqual(decimal.New(1, model.PriceIntegerDigits)) {
		return fmt.Errorf("numeric field overflow: %s", p.Price)
	}
	if !rounded.IsPositive() {
		return fmt.Errorf("price check constraint violated: %s", p.Price)
	}
	p.Price = rounded
	return nil
}
