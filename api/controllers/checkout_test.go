package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	checkoutsvc "github.com/angelmondragon/repairshop-backend/internal/checkout"
	"github.com/angelmondragon/repairshop-backend/internal/transactions"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
)

type stubCheckoutService struct {
	result *checkoutsvc.Result
	status *checkoutsvc.Status
	err    error
	input  checkoutsvc.CheckoutInput
	staff  uuid.UUID
}

func (s *stubCheckoutService) Checkout(ctx context.Context, staffID uuid.UUID, input checkoutsvc.CheckoutInput) (*checkoutsvc.Result, error) {
	s.input = input
	return s.result, s.err
}

func (s *stubCheckoutService) Status(ctx context.Context, staffID uuid.UUID, sessionID string) (*checkoutsvc.Status, error) {
	s.staff = staffID
	return s.status, s.err
}

func TestCheckoutSuccess(t *testing.T) {
	t.Parallel()

	txn := &transactions.TransactionDTO{
		ID:            uuid.New(),
		InvoiceNumber: "INV-000101",
		CustomerName:  "Walk-in",
		PaymentType:   enums.PaymentTypeCash,
		Total:         decimal.RequireFromString("45.00"),
	}
	svc := &stubCheckoutService{result: &checkoutsvc.Result{Transaction: txn, NextInvoiceNumber: "INV-000102"}}
	handler := Checkout(svc, nil)

	req := withStaff(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"session_id":"abc123","payment_type":"cash","customer_name":" Walk-in "}`)), enums.StaffRoleCashier)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.SessionID != "abc123" || svc.input.CustomerName != "Walk-in" {
		t.Fatalf("unexpected input %+v", svc.input)
	}

	var envelope struct {
		Data struct {
			Transaction struct {
				InvoiceNumber string `json:"invoice_number"`
			} `json:"transaction"`
			NextInvoiceNumber string `json:"next_invoice_number"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Transaction.InvoiceNumber != "INV-000101" || envelope.Data.NextInvoiceNumber != "INV-000102" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestCheckoutRequiresPaymentType(t *testing.T) {
	t.Parallel()

	handler := Checkout(&stubCheckoutService{}, nil)
	req := withStaff(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"session_id":"abc123"}`)), enums.StaffRoleCashier)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCheckoutInsufficientStockIsConflict(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock")}
	handler := Checkout(svc, nil)
	req := withStaff(httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"session_id":"abc123","payment_type":"card"}`)), enums.StaffRoleCashier)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestCheckoutStatus(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{status: &checkoutsvc.Status{SessionID: "abc123", State: enums.CheckoutStateSubmitting}}
	handler := CheckoutStatus(svc, nil)

	req := withStaff(withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "sessionId", "abc123"), enums.StaffRoleCashier)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"state":"submitting"`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
	if svc.staff == uuid.Nil {
		t.Fatalf("status lookup was not scoped to the caller")
	}
}

func TestCheckoutStatusRequiresStaff(t *testing.T) {
	t.Parallel()

	svc := &stubCheckoutService{status: &checkoutsvc.Status{SessionID: "abc123", State: enums.CheckoutStateCompleted}}
	handler := CheckoutStatus(svc, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "sessionId", "abc123")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
