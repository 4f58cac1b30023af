package transactions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/pkg/db/dbtest"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/pagination"
)

func TestServiceSummaryTotals(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.Transaction{}, &models.TransactionLine{}))
	seedSale(t, repo, "INV-000001", enums.PaymentTypeCash, "25.00")
	seedSale(t, repo, "INV-000002", enums.PaymentTypeBankTransfer, "12.25")

	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	summary, err := svc.Summary(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Count != 2 {
		t.Fatalf("expected 2 sales, got %d", summary.Count)
	}
	if !summary.Total.Equal(decimal.RequireFromString("37.25")) {
		t.Fatalf("expected total 37.25, got %s", summary.Total)
	}
	if summary.ByPayment[0].Label != "Bank transfer" {
		t.Fatalf("expected bank transfer label, got %q", summary.ByPayment[0].Label)
	}
}

func TestServiceValidation(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t, &models.Transaction{}, &models.TransactionLine{})))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	now := time.Now()
	earlier := now.Add(-time.Hour)
	if _, err := svc.Summary(ctx, &now, &earlier); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for inverted window, got %v", err)
	}
	if _, err := svc.GetByInvoiceNumber(ctx, "  "); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for blank invoice, got %v", err)
	}
	if _, err := svc.Get(ctx, uuid.New()); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestServiceListPages(t *testing.T) {
	repo := NewRepository(dbtest.Open(t, &models.Transaction{}, &models.TransactionLine{}))
	for _, n := range []string{"INV-000001", "INV-000002", "INV-000003"} {
		seedSale(t, repo, n, enums.PaymentTypeCard, "1.00")
	}
	svc, _ := NewService(repo)

	page, err := svc.List(context.Background(), ListParams{Params: paginationParams(2)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("expected 2 items and a cursor, got %d items cursor=%q", len(page.Items), page.NextCursor)
	}
}

func paginationParams(limit int) pagination.Params {
	return pagination.Params{Limit: limit}
}
