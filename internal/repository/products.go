package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/productcatalog/catalog/internal/model"
)

// Common errors for product repository operations.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrSKUExists       = errors.New("sku already exists")
)

// price is read as text so it never passes through a float.
const productColumns = `id, sku, name, brand, price::text, description, created_at, updated_at`

// CreateProduct inserts a new product and fills in the generated id and timestamps.
func (r *Repository) CreateProduct(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (sku, name, brand, price, description)
		VALUES ($1, $2, $3, $4::numeric, $5)
		RETURNING id, price::text, created_at, updated_at
	`

	var price string
	err := r.pool.QueryRow(ctx, query, p.SKU, p.Name, p.Brand, p.Price.String(), p.Description).
		Scan(&p.ID, &price, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "products_sku_key") {
			return ErrSKUExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return setStoredPrice(p, price)
}

// GetProductByID retrieves a product by its ID.
func (r *Repository) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product by ID: %w", err)
	}

	return p, nil
}

// GetProductBySKU retrieves a product by its SKU.
func (r *Repository) GetProductBySKU(ctx context.Context, sku string) (*model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE sku = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product by SKU: %w", err)
	}

	return p, nil
}

// ListProducts returns all products ordered by id.
func (r *Repository) ListProducts(ctx context.Context) ([]model.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// UpdateProduct overwrites the mutable fields of an existing product.
func (r *Repository) UpdateProduct(ctx context.Context, p *model.Product) error {
	query := `
		UPDATE products
		SET sku = $2, name = $3, brand = $4, price = $5::numeric, description = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING price::text, updated_at
	`

	var price string
	err := r.pool.QueryRow(ctx, query, p.ID, p.SKU, p.Name, p.Brand, p.Price.String(), p.Description).
		Scan(&price, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		if isUniqueViolation(err, "products_sku_key") {
			return ErrSKUExists
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	return setStoredPrice(p, price)
}

// DeleteProduct hard-deletes a product. Its hit records are left in place.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*model.Product, error) {
	var (
		p     model.Product
		price string
	)
	err := row.Scan(
		&p.ID,
		&p.SKU,
		&p.Name,
		&p.Brand,
		&price,
		&p.Description,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	return &p, nil
}

// setStoredPrice replaces p.Price with the value the column actually holds.
func setStoredPrice(p *model.Product, price string) error {
	stored, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = stored
	return nil
}
