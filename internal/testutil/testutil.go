// Package testutil holds shared helpers for unit and integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/productcatalog/catalog/internal/model"
	"github.com/productcatalog/catalog/internal/repository"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 731731

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema rolls back every migration and applies them again.
func ResetSchema(ctx context.Context, databaseURL string) error {
	if err := repository.Rollback(ctx, databaseURL); err != nil {
		return err
	}
	return repository.Migrate(ctx, databaseURL)
}

// NewTestRepository connects to TEST_DATABASE_URL, serializes on the advisory
// lock and resets the schema. The test is skipped when the variable is unset.
func NewTestRepository(t *testing.T) (context.Context, *repository.Repository) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration tests in short mode")
	}

	ctx := context.Background()
	dbURL := RequireEnv(t, "TEST_DATABASE_URL")

	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_ = unlock()
	})

	if err := ResetSchema(ctx, dbURL); err != nil {
		t.Fatalf("reset schema: %v", err)
	}

	return ctx, repo
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates an unsaved user with a placeholder password hash.
func NewTestUser(t testing.TB, email string, isAdmin bool) *model.User {
	t.Helper()
	return &model.User{
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=1024,t=1,p=1$dGVzdHNhbHQ$dGVzdGhhc2g",
		IsAdmin:      isAdmin,
	}
}

// NewTestProduct creates an unsaved product with sensible defaults.
func NewTestProduct(t testing.TB, sku string) *model.Product {
	t.Helper()
	return &model.Product{
		SKU:         sku,
		Name:        "Test product " + sku,
		Brand:       "Acme",
		Price:       decimal.RequireFromString("19.99"),
		Description: "Test description",
	}
}

// UniqueEmail generates a unique email address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

// UniqueSKU generates a unique SKU for tests.
func UniqueSKU(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
