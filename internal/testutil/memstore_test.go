package testutil

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
)

func TestMemStore_PriceColumnSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	p := NewTestProduct(t, "ROUND-1")
	p.Price = decimal.RequireFromString("10.005")
	if err := s.CreateProduct(ctx, p); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}
	if !p.Price.Equal(decimal.RequireFromString("10.01")) {
		t.Errorf("created price = %s, want 10.01", p.Price)
	}

	for _, price := range []string{"0.001", "99999999999999"} {
		q := NewTestProduct(t, UniqueSKU("BAD"))
		q.Price = decimal.RequireFromString(price)
		if err := s.CreateProduct(ctx, q); err == nil {
			t.Errorf("price %s should be rejected", price)
		}
	}
	if s.Mutations() != 1 {
		t.Errorf("expected one write, got %d", s.Mutations())
	}
}
