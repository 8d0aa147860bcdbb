// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"

	"github.com/productcatalog/catalog/internal/model"
)

// Service errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrProductNotFound    = errors.New("product not found")
	ErrSKUExists          = errors.New("sku already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnknownSubject     = errors.New("token subject does not exist")
	ErrInvalidPrice       = errors.New("price must be positive with at most 2 decimals and 10 integer digits")
	ErrEmptyPassword      = errors.New("password must not be empty")
)

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id int64) error
	CountUsers(ctx context.Context) (int64, error)
	ListAdminEmails(ctx context.Context, excludeID int64) ([]string, error)
}

// ProductStore persists products and their hit records.
type ProductStore interface {
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProductByID(ctx context.Context, id int64) (*model.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	UpdateProduct(ctx context.Context, p *model.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	RecordHit(ctx context.Context, productID int64) error
	CountHits(ctx context.Context, productID int64) (int64, error)
}

// AdminDirectory resolves notification recipients.
type AdminDirectory interface {
	ListAdminEmails(ctx context.Context, excludeID int64) ([]string, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	VerifyDummy(password string)
}

// TokenIssuer signs and verifies access tokens.
type TokenIssuer interface {
	Issue(subject string) (string, error)
	Subject(token string) (string, error)
}
