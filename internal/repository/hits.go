package repository

import (
	"context"
	"fmt"
)

// RecordHit appends one view event for a product.
func (r *Repository) RecordHit(ctx context.Context, productID int64) error {
	if _, err := r.pool.Exec(ctx, `INSERT INTO product_hits (product_id) VALUES ($1)`, productID); err != nil {
		return fmt.Errorf("failed to record hit: %w", err)
	}
	return nil
}

// CountHits returns the number of view events recorded for a product.
func (r *Repository) CountHits(ctx context.Context, productID int64) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM product_hits WHERE product_id = $1`, productID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count hits: %w", err)
	}
	return n, nil
}
