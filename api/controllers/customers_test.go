package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/api/middleware"
	"github.com/angelmondragon/repairshop-backend/internal/customers"
	"github.com/angelmondragon/repairshop-backend/internal/pattern"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/pagination"
)

type stubCustomerService struct {
	customer   *customers.CustomerDTO
	seq        pattern.Sequence
	err        error
	listParams customers.ListParams
	created    customers.CreateInput
	match      bool
}

func (s *stubCustomerService) Create(ctx context.Context, staffID uuid.UUID, input customers.CreateInput) (*customers.CustomerDTO, error) {
	s.created = input
	return s.customer, s.err
}

func (s *stubCustomerService) Update(ctx context.Context, id uuid.UUID, input customers.UpdateInput) (*customers.CustomerDTO, error) {
	return s.customer, s.err
}

func (s *stubCustomerService) UpdateStatus(ctx context.Context, staffID, id uuid.UUID, status string) (*customers.CustomerDTO, error) {
	return s.customer, s.err
}

func (s *stubCustomerService) Get(ctx context.Context, id uuid.UUID) (*customers.CustomerDTO, error) {
	return s.customer, s.err
}

func (s *stubCustomerService) List(ctx context.Context, params customers.ListParams) (*pagination.Page[customers.CustomerDTO], error) {
	s.listParams = params
	if s.err != nil {
		return nil, s.err
	}
	return &pagination.Page[customers.CustomerDTO]{Items: []customers.CustomerDTO{*s.customer}}, nil
}

func (s *stubCustomerService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

func (s *stubCustomerService) Pattern(ctx context.Context, id uuid.UUID) (pattern.Sequence, error) {
	return s.seq, s.err
}

func (s *stubCustomerService) ReplayTimeline(ctx context.Context, id uuid.UUID) (*customers.ReplayDTO, error) {
	return nil, s.err
}

func (s *stubCustomerService) Replayer(ctx context.Context, id uuid.UUID, opts ...pattern.ReplayOption) (*pattern.Replayer, error) {
	if s.err != nil {
		return nil, s.err
	}
	return pattern.NewReplayer(pattern.DefaultGrid(), s.seq, pattern.WithTimer(immediateTimer))
}

func (s *stubCustomerService) VerifyPattern(ctx context.Context, id uuid.UUID, attempt string) (bool, error) {
	return s.match, s.err
}

func immediateTimer(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.RouteContext(req.Context())
	if rc == nil {
		rc = chi.NewRouteContext()
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	}
	rc.URLParams.Add(key, value)
	return req
}

func withStaff(req *http.Request, role enums.StaffRole) *http.Request {
	return req.WithContext(middleware.WithStaff(req.Context(), uuid.NewString(), string(role)))
}

func TestCustomerCreateReturnsCreated(t *testing.T) {
	svc := &stubCustomerService{customer: &customers.CustomerDTO{ID: uuid.New(), InvoiceNumber: "INV-000042"}}
	handler := CustomerCreate(svc, nil)

	body := `{"name":"  Ana Ruiz ","phone":"555-0101","device_model":"Pixel 7","issue_description":"cracked screen","pattern_lock":"01258","estimated_cost":"89.90","advance_paid":20}`
	req := withStaff(httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(body)), enums.StaffRoleTechnician)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created.Name != "Ana Ruiz" {
		t.Fatalf("expected trimmed name, got %q", svc.created.Name)
	}
	if svc.created.PatternLock == nil || *svc.created.PatternLock != "01258" {
		t.Fatalf("expected pattern to be forwarded")
	}
	if !svc.created.EstimatedCost.Equal(decimal.RequireFromString("89.90")) {
		t.Fatalf("unexpected estimated cost %s", svc.created.EstimatedCost)
	}
}

func TestCustomerCreateRequiresStaff(t *testing.T) {
	handler := CustomerCreate(&stubCustomerService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCustomerCreateValidationError(t *testing.T) {
	handler := CustomerCreate(&stubCustomerService{}, nil)
	req := withStaff(httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(`{"name":"Ana","phone":"1","device_model":"X","issue_description":"y","advance_paid":-5}`)), enums.StaffRoleOwner)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCustomerListParsesStatusFilter(t *testing.T) {
	svc := &stubCustomerService{customer: &customers.CustomerDTO{ID: uuid.New()}}
	handler := CustomerList(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/customers?status=ready&q=pixel&limit=10", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.listParams.Status == nil || *svc.listParams.Status != enums.RepairStatusReady {
		t.Fatalf("expected ready status filter")
	}
	if svc.listParams.Search != "pixel" || svc.listParams.Limit != 10 {
		t.Fatalf("unexpected params %+v", svc.listParams)
	}

	bad := httptest.NewRecorder()
	handler.ServeHTTP(bad, httptest.NewRequest(http.MethodGet, "/api/v1/customers?status=lost", nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status got %d", bad.Code)
	}
}

func TestCustomerGetNotFound(t *testing.T) {
	handler := CustomerGet(&stubCustomerService{err: pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")}, nil)
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), customerIDParam, uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCustomerPatternReplayStream(t *testing.T) {
	svc := &stubCustomerService{seq: pattern.Sequence{0, 1, 2, 5}}
	handler := CustomerPatternReplayStream(svc, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), customerIDParam, uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := resp.Body.String()
	if n := strings.Count(body, "event: frame\n"); n != 4 {
		t.Fatalf("expected 4 frames got %d:\n%s", n, body)
	}
	if !strings.HasSuffix(body, "event: done\ndata: {\"frames\":4}\n\n") {
		t.Fatalf("expected done event, got:\n%s", body)
	}

	var last pattern.Frame
	events := strings.Split(strings.TrimSpace(body), "\n\n")
	lastFrame := events[len(events)-2]
	data := lastFrame[strings.Index(lastFrame, "data: ")+len("data: "):]
	if err := json.Unmarshal([]byte(data), &last); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if len(last.Segments) != 3 {
		t.Fatalf("expected 3 segments in final frame got %d", len(last.Segments))
	}
}

func TestCustomerPatternReplayStreamMissingPattern(t *testing.T) {
	handler := CustomerPatternReplayStream(&stubCustomerService{err: pkgerrors.New(pkgerrors.CodeNotFound, "customer has no pattern lock")}, nil)
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), customerIDParam, uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCustomerPatternVerify(t *testing.T) {
	handler := CustomerPatternVerify(&stubCustomerService{match: true}, nil)
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"pattern":"01258"}`)), customerIDParam, uuid.NewString())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Match bool `json:"match"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Data.Match {
		t.Fatalf("expected match")
	}
}

func TestCustomerHandlersWithoutService(t *testing.T) {
	resp := httptest.NewRecorder()
	CustomerList(nil, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
