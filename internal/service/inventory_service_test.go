package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/domain"
)

func TestInventory_CreateUpdateAdjust(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.inventory.CreateProduct(ctx, domain.CreateProductRequest{
		SKU: "RICE-2KG", Name: "Rice 2kg", Price: dec("320"), Stock: 4,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var conflict *domain.ErrConflict
	if _, err := f.inventory.CreateProduct(ctx, domain.CreateProductRequest{
		SKU: "RICE-2KG", Name: "Other", Price: dec("1"),
	}); !errors.As(err, &conflict) {
		t.Errorf("duplicate SKU: expected ErrConflict, got %v", err)
	}

	name, price := "Pishori Rice 2kg", dec("340")
	updated, err := f.inventory.UpdateProduct(ctx, p.ID, domain.UpdateProductRequest{Name: &name, Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != name || !updated.Price.Equal(price) || updated.Stock != 4 {
		t.Errorf("unexpected product after update: %+v", updated)
	}

	adjusted, err := f.inventory.AdjustStock(ctx, p.ID, 6, "delivery")
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if adjusted.Stock != 10 {
		t.Errorf("stock = %d, want 10", adjusted.Stock)
	}

	var ise *domain.ErrInsufficientStock
	if _, err := f.inventory.AdjustStock(ctx, p.ID, -11, "shrinkage"); !errors.As(err, &ise) {
		t.Errorf("below zero: expected ErrInsufficientStock, got %v", err)
	}
	var ve *domain.ErrValidation
	if _, err := f.inventory.AdjustStock(ctx, p.ID, -1, ""); !errors.As(err, &ve) {
		t.Errorf("missing reason: expected ErrValidation, got %v", err)
	}

	got, _ := f.inventory.GetProduct(ctx, p.ID)
	if got.Stock != 10 {
		t.Errorf("rejected adjustments changed stock to %d", got.Stock)
	}
}

func TestInventory_LowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, p := range []domain.CreateProductRequest{
		{SKU: "A", Name: "A", Price: dec("1"), Stock: 50},
		{SKU: "B", Name: "B", Price: dec("1"), Stock: 5},
		{SKU: "C", Name: "C", Price: dec("1"), Stock: 0},
	} {
		if _, err := f.inventory.CreateProduct(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.SKU, err)
		}
	}

	low, err := f.inventory.LowStock(ctx)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(low) != 2 || low[0].SKU != "C" || low[1].SKU != "B" {
		t.Errorf("unexpected low stock: %+v", low)
	}
}
