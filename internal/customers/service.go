// Package customers manages repair intake tickets and the device unlock
// credentials stored with them.
package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/internal/pattern"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/repairshop-backend/pkg/pagination"
)

// Service exposes intake ticket operations.
type Service interface {
	Create(ctx context.Context, staffID uuid.UUID, input CreateInput) (*CustomerDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CustomerDTO, error)
	UpdateStatus(ctx context.Context, staffID, id uuid.UUID, status string) (*CustomerDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[CustomerDTO], error)
	Delete(ctx context.Context, id uuid.UUID) error
	Pattern(ctx context.Context, id uuid.UUID) (pattern.Sequence, error)
	ReplayTimeline(ctx context.Context, id uuid.UUID) (*ReplayDTO, error)
	Replayer(ctx context.Context, id uuid.UUID, opts ...pattern.ReplayOption) (*pattern.Replayer, error)
	VerifyPattern(ctx context.Context, id uuid.UUID, attempt string) (bool, error)
}

// CreateInput is the intake form.
type CreateInput struct {
	Name               string
	Phone              string
	Email              *string
	DeviceBrand        string
	DeviceModel        string
	IMEI               *string
	IssueDescription   string
	PatternLock        *string
	Passcode           *string
	EstimatedCost      decimal.Decimal
	AdvancePaid        decimal.Decimal
	ExpectedDeliveryAt *time.Time
}

// UpdateInput carries optional edits; nil fields are left untouched. An empty
// PatternLock or Passcode clears the stored credential.
type UpdateInput struct {
	Name               *string
	Phone              *string
	Email              *string
	DeviceBrand        *string
	DeviceModel        *string
	IMEI               *string
	IssueDescription   *string
	PatternLock        *string
	Passcode           *string
	EstimatedCost      *decimal.Decimal
	AdvancePaid        *decimal.Decimal
	ExpectedDeliveryAt *time.Time
}

// ReplayDTO is the precomputed animation for a stored pattern.
type ReplayDTO struct {
	CustomerID uuid.UUID            `json:"customer_id"`
	StepMS     int64                `json:"step_ms"`
	GridSize   float64              `json:"grid_size"`
	NodeRadius float64              `json:"node_radius"`
	Frames     []pattern.TimedFrame `json:"frames"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, customer *models.Customer) error
	Save(ctx context.Context, customer *models.Customer) error
	SaveTx(ctx context.Context, tx *gorm.DB, customer *models.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	FindByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, params ListParams) ([]models.Customer, error)
}

type invoiceAllocator interface {
	Next(ctx context.Context, tx *gorm.DB) (string, error)
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Tx       txRunner
	Repo     repository
	Invoices invoiceAllocator
	Outbox   outboxPublisher
	Logger   *logger.Logger
	Grid     *pattern.Grid
	Step     time.Duration
}

type service struct {
	tx       txRunner
	repo     repository
	invoices invoiceAllocator
	outbox   outboxPublisher
	logg     *logger.Logger
	grid     pattern.Grid
	step     time.Duration
	validate *validator.Validate
}

func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice allocator required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	grid := pattern.DefaultGrid()
	if params.Grid != nil {
		grid = *params.Grid
	}
	step := params.Step
	if step <= 0 {
		step = pattern.DefaultStepDelay
	}
	return &service{
		tx:       params.Tx,
		repo:     params.Repo,
		invoices: params.Invoices,
		outbox:   params.Outbox,
		logg:     params.Logger,
		grid:     grid,
		step:     step,
		validate: validator.New(),
	}, nil
}

func (s *service) Create(ctx context.Context, staffID uuid.UUID, input CreateInput) (*CustomerDTO, error) {
	customer := &models.Customer{
		Name:               strings.TrimSpace(input.Name),
		Phone:              strings.TrimSpace(input.Phone),
		Email:              trimOptional(input.Email),
		DeviceBrand:        strings.TrimSpace(input.DeviceBrand),
		DeviceModel:        strings.TrimSpace(input.DeviceModel),
		IMEI:               trimOptional(input.IMEI),
		IssueDescription:   strings.TrimSpace(input.IssueDescription),
		PatternLock:        trimOptional(input.PatternLock),
		Passcode:           trimOptional(input.Passcode),
		EstimatedCost:      input.EstimatedCost,
		AdvancePaid:        input.AdvancePaid,
		Status:             enums.RepairStatusReceived,
		ExpectedDeliveryAt: input.ExpectedDeliveryAt,
	}
	if staffID != uuid.Nil {
		customer.CreatedBy = &staffID
	}
	if err := s.validateCustomer(customer); err != nil {
		return nil, err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := s.invoices.Next(ctx, tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate invoice number")
		}
		customer.InvoiceNumber = number
		if err := s.repo.CreateTx(ctx, tx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create customer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithInvoiceNumber(ctx, customer.InvoiceNumber), "repair intake created")
	}
	return ToDTO(customer), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*CustomerDTO, error) {
	customer, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		customer.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		customer.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Email != nil {
		customer.Email = trimOptional(input.Email)
	}
	if input.DeviceBrand != nil {
		customer.DeviceBrand = strings.TrimSpace(*input.DeviceBrand)
	}
	if input.DeviceModel != nil {
		customer.DeviceModel = strings.TrimSpace(*input.DeviceModel)
	}
	if input.IMEI != nil {
		customer.IMEI = trimOptional(input.IMEI)
	}
	if input.IssueDescription != nil {
		customer.IssueDescription = strings.TrimSpace(*input.IssueDescription)
	}
	if input.PatternLock != nil {
		customer.PatternLock = trimOptional(input.PatternLock)
	}
	if input.Passcode != nil {
		customer.Passcode = trimOptional(input.Passcode)
	}
	if input.EstimatedCost != nil {
		customer.EstimatedCost = *input.EstimatedCost
	}
	if input.AdvancePaid != nil {
		customer.AdvancePaid = *input.AdvancePaid
	}
	if input.ExpectedDeliveryAt != nil {
		customer.ExpectedDeliveryAt = input.ExpectedDeliveryAt
	}

	if err := s.validateCustomer(customer); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update customer")
	}
	return ToDTO(customer), nil
}

// UpdateStatus moves the ticket along the repair workflow. Reaching ready
// queues a customer_device_ready event in the same transaction.
func (s *service) UpdateStatus(ctx context.Context, staffID, id uuid.UUID, status string) (*CustomerDTO, error) {
	next, err := enums.ParseRepairStatus(strings.TrimSpace(status))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid repair status").
			WithDetails(map[string]string{"status": err.Error()})
	}

	var updated *models.Customer
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		customer, err := s.repo.FindByIDTx(ctx, tx, id)
		if err != nil {
			return mapLookupError(err)
		}
		if customer.Status == next {
			updated = customer
			return nil
		}
		if !customer.Status.CanTransitionTo(next) {
			return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot move repair from %s to %s", customer.Status, next)
		}
		customer.Status = next
		if err := s.repo.SaveTx(ctx, tx, customer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update repair status")
		}
		if next == enums.RepairStatusReady {
			if err := s.outbox.EmitIfNotExists(ctx, tx, deviceReadyEvent(customer, staffID)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue device ready event")
			}
		}
		updated = customer
		return nil
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update repair status")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"invoice_number": updated.InvoiceNumber,
			"status":         updated.Status,
		})
		s.logg.Info(logCtx, "repair status updated")
	}
	return ToDTO(updated), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error) {
	customer, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToDTO(customer), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[CustomerDTO], error) {
	params.Limit = pagination.NormalizeLimit(params.Limit)
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid repair status")
	}
	rows, err := s.repo.List(ctx, params)
	switch {
	case errors.Is(err, pagination.ErrInvalidCursor):
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customers")
	}
	dtos := make([]CustomerDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *ToDTO(&rows[i]))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(c CustomerDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return &page, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapLookupError(err)
	}
	return nil
}

// Pattern returns the stored unlock pattern. Tickets without one yield NOT_FOUND.
func (s *service) Pattern(ctx context.Context, id uuid.UUID) (pattern.Sequence, error) {
	customer, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if customer.PatternLock == nil || *customer.PatternLock == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer has no pattern lock")
	}
	seq, err := pattern.Parse(*customer.PatternLock)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored pattern is corrupt")
	}
	return seq, nil
}

func (s *service) ReplayTimeline(ctx context.Context, id uuid.UUID) (*ReplayDTO, error) {
	seq, err := s.Pattern(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ReplayDTO{
		CustomerID: id,
		StepMS:     s.step.Milliseconds(),
		GridSize:   s.grid.Size(),
		NodeRadius: s.grid.Radius(),
		Frames:     pattern.Timeline(s.grid, seq, s.step),
	}, nil
}

// Replayer builds a one-shot animation for the stored pattern.
func (s *service) Replayer(ctx context.Context, id uuid.UUID, opts ...pattern.ReplayOption) (*pattern.Replayer, error) {
	seq, err := s.Pattern(ctx, id)
	if err != nil {
		return nil, err
	}
	options := append([]pattern.ReplayOption{pattern.WithStepDelay(s.step)}, opts...)
	replayer, err := pattern.NewReplayer(s.grid, seq, options...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build pattern replay")
	}
	return replayer, nil
}

// VerifyPattern compares an attempt against the stored credential. A malformed
// attempt is a validation error, a wrong one is simply false.
func (s *service) VerifyPattern(ctx context.Context, id uuid.UUID, attempt string) (bool, error) {
	candidate, err := pattern.Parse(attempt)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pattern").
			WithDetails(map[string]string{"pattern": err.Error()})
	}
	stored, err := s.Pattern(ctx, id)
	if err != nil {
		return false, err
	}
	return pattern.Equal(stored, candidate), nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLookupError(err)
	}
	return customer, nil
}

func (s *service) validateCustomer(c *models.Customer) error {
	details := map[string]string{}
	if c.Name == "" {
		details["name"] = "required"
	}
	if c.Phone == "" {
		details["phone"] = "required"
	}
	if c.DeviceModel == "" {
		details["device_model"] = "required"
	}
	if c.Email != nil {
		if err := s.validate.Var(*c.Email, "email"); err != nil {
			details["email"] = "must be a valid email"
		}
	}
	if c.PatternLock != nil {
		seq, err := pattern.Parse(*c.PatternLock)
		if err != nil {
			details["pattern_lock"] = err.Error()
		} else {
			encoded := seq.Encode()
			c.PatternLock = &encoded
		}
	}
	if c.EstimatedCost.IsNegative() {
		details["estimated_cost"] = "must be >= 0"
	}
	if c.AdvancePaid.IsNegative() {
		details["advance_paid"] = "must be >= 0"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid customer").WithDetails(details)
	}
	return nil
}

func mapLookupError(err error) error {
	if errors.Is(err, ErrCustomerNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deviceReadyEvent(c *models.Customer, staffID uuid.UUID) outbox.DomainEvent {
	data := payloads.CustomerDeviceReadyEvent{
		CustomerID:    c.ID,
		InvoiceNumber: c.InvoiceNumber,
		Name:          c.Name,
		Phone:         c.Phone,
		DeviceModel:   c.DeviceModel,
		BalanceDue:    c.BalanceDue(),
	}
	if c.Email != nil {
		data.Email = *c.Email
	}
	var actor *outbox.ActorRef
	if staffID != uuid.Nil {
		actor = &outbox.ActorRef{StaffID: staffID}
	}
	return outbox.DomainEvent{
		EventType:     enums.EventCustomerDeviceReady,
		AggregateType: enums.AggregateCustomer,
		AggregateID:   c.ID,
		Actor:         actor,
		Data:          data,
	}
}
