package stock

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.Open(t, &models.Product{})))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestNewServiceRequiresRepository(t *testing.T) {
	if _, err := NewService(nil); err == nil {
		t.Fatal("expected error for nil repository")
	}
}

func TestServiceCreateValidates(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), CreateProductInput{
		SKU:          "  ",
		Name:         "Battery",
		SellingPrice: decimal.NewFromInt(-1),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected detail map, got %T", typed.Details())
	}
	if details["sku"] == "" || details["selling_price"] == "" {
		t.Fatalf("expected sku and selling_price details, got %v", details)
	}
}

func TestServiceCreateDuplicateSKU(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	input := CreateProductInput{SKU: "BAT-1", Name: "Battery", SellingPrice: decimal.NewFromInt(30)}

	if _, err := svc.Create(ctx, input); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(ctx, input)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestServiceUpdateTrimsAndKeepsQuantity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductInput{
		SKU:          "SCR-1",
		Name:         "Screen",
		SellingPrice: decimal.NewFromInt(80),
		Quantity:     4,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "  OLED Screen "
	price := decimal.NewFromInt(95)
	updated, err := svc.Update(ctx, created.ID, UpdateProductInput{Name: &name, SellingPrice: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "OLED Screen" {
		t.Fatalf("expected trimmed name, got %q", updated.Name)
	}
	if !updated.SellingPrice.Equal(price) {
		t.Fatalf("expected price %s, got %s", price, updated.SellingPrice)
	}
	if updated.Quantity != 4 {
		t.Fatalf("expected quantity untouched, got %d", updated.Quantity)
	}
}

func TestServiceAdjust(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateProductInput{
		SKU:               "CBL-1",
		Name:              "Lightning Cable",
		SellingPrice:      decimal.NewFromInt(8),
		Quantity:          2,
		LowStockThreshold: 3,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.LowStock {
		t.Fatal("expected low stock flag")
	}

	adjusted, err := svc.Adjust(ctx, created.ID, 10)
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if adjusted.Quantity != 12 || adjusted.LowStock {
		t.Fatalf("expected 12 units not low, got %d low=%v", adjusted.Quantity, adjusted.LowStock)
	}

	if _, err := svc.Adjust(ctx, created.ID, -13); !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for oversell, got %v", err)
	}
	if _, err := svc.Adjust(ctx, created.ID, 0); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation for zero delta, got %v", err)
	}
	if _, err := svc.Adjust(ctx, uuid.New(), 1); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceGetMissing(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Get(context.Background(), uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
