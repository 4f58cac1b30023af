// Package checkout turns a session cart into a persisted sale.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/internal/cart"
	"github.com/angelmondragon/repairshop-backend/internal/stock"
	"github.com/angelmondragon/repairshop-backend/internal/transactions"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox"
	"github.com/angelmondragon/repairshop-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	Load(ctx context.Context, staffID, sessionID string) (cart.Cart, error)
	Delete(ctx context.Context, staffID, sessionID string) error
}

type invoiceAllocator interface {
	Next(ctx context.Context, tx *gorm.DB) (string, error)
	Peek(ctx context.Context) (string, error)
}

type saleWriter interface {
	CreateTx(ctx context.Context, tx *gorm.DB, record *models.Transaction) error
}

type stockDecrementer interface {
	DecrementTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type submissionGuard interface {
	Acquire(ctx context.Context, staffID, sessionID string) error
	Complete(ctx context.Context, staffID, sessionID string, transactionID uuid.UUID, invoiceNumber string) error
	Fail(ctx context.Context, staffID, sessionID string, cause error) error
	Status(ctx context.Context, staffID, sessionID string) (Status, error)
}

// Service executes checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, staffID uuid.UUID, input CheckoutInput) (*Result, error)
	Status(ctx context.Context, staffID uuid.UUID, sessionID string) (*Status, error)
}

// CheckoutInput is the customer data captured at the counter.
type CheckoutInput struct {
	SessionID     string
	CustomerName  string
	CustomerPhone string
	CustomerEmail *string
	PaymentType   string
}

// Result describes the committed sale.
type Result struct {
	Transaction       *transactions.TransactionDTO `json:"transaction"`
	NextInvoiceNumber string                       `json:"next_invoice_number,omitempty"`
}

type ServiceParams struct {
	Tx       txRunner
	Carts    cartStore
	Guard    submissionGuard
	Invoices invoiceAllocator
	Sales    saleWriter
	Stock    stockDecrementer
	Outbox   outboxPublisher
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Currency string
}

type service struct {
	tx       txRunner
	carts    cartStore
	guard    submissionGuard
	invoices invoiceAllocator
	sales    saleWriter
	stock    stockDecrementer
	outbox   outboxPublisher
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	currency string
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("checkout guard required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice allocator required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("transaction writer required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:       params.Tx,
		carts:    params.Carts,
		guard:    params.Guard,
		invoices: params.Invoices,
		sales:    params.Sales,
		stock:    params.Stock,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		currency: params.Currency,
		validate: validator.New(),
		now:      time.Now,
	}, nil
}

type customerInfo struct {
	name    string
	phone   string
	email   *string
	payment enums.PaymentType
}

func (s *service) Checkout(ctx context.Context, staffID uuid.UUID, input CheckoutInput) (*Result, error) {
	started := s.now()
	sessionID := strings.TrimSpace(input.SessionID)
	if s.logg != nil {
		ctx = s.logg.WithSessionID(ctx, sessionID)
	}

	customer, err := s.validateInput(sessionID, input)
	if err != nil {
		s.metrics.ObserveAttempt(metrics.OutcomeRejected, s.now().Sub(started))
		return nil, err
	}

	staff := staffID.String()

	// The guard is taken before the cart is read so a second submission never
	// works from a snapshot of a cart the first one is about to sell.
	if err := s.guard.Acquire(ctx, staff, sessionID); err != nil {
		switch {
		case errors.Is(err, ErrAlreadySubmitting):
			s.metrics.ObserveAttempt(metrics.OutcomeConflict, s.now().Sub(started))
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already in progress for this session")
		case errors.Is(err, ErrAlreadyCompleted):
			s.metrics.ObserveAttempt(metrics.OutcomeConflict, s.now().Sub(started))
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already completed for this session")
		}
		s.metrics.ObserveAttempt(metrics.OutcomeFailed, s.now().Sub(started))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout guard")
	}

	current, err := s.carts.Load(ctx, staff, sessionID)
	if err != nil {
		if errors.Is(err, cart.ErrSessionNotFound) {
			err = pkgerrors.New(pkgerrors.CodeNotFound, "cart session not found or expired")
		} else {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart session")
		}
		return nil, s.reject(ctx, staff, sessionID, started, err)
	}
	if current.IsEmpty() {
		return nil, s.reject(ctx, staff, sessionID, started, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty"))
	}

	record := buildTransaction(current, customer, staffID)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		number, err := s.invoices.Next(ctx, tx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate invoice number")
		}
		record.InvoiceNumber = number

		if err := s.sales.CreateTx(ctx, tx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist transaction")
		}
		for _, line := range record.Lines {
			if err := s.stock.DecrementTx(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return stock.MapStockError(err, line.ProductID)
			}
		}
		if err := s.outbox.Emit(ctx, tx, saleCompletedEvent(record, staffID, s.currency)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue sale event")
		}
		return nil
	})
	if err != nil {
		s.metrics.ObserveAttempt(metrics.OutcomeFailed, s.now().Sub(started))
		if failErr := s.guard.Fail(ctx, staff, sessionID, err); failErr != nil {
			s.warn(ctx, "record checkout failure", failErr)
		}
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checkout failed")
	}

	if s.logg != nil {
		ctx = s.logg.WithInvoiceNumber(ctx, record.InvoiceNumber)
	}
	if err := s.guard.Complete(ctx, staff, sessionID, record.ID, record.InvoiceNumber); err != nil {
		s.warn(ctx, "record checkout completion", err)
	}
	if err := s.carts.Delete(ctx, staff, sessionID); err != nil {
		s.warn(ctx, "clear cart after checkout", err)
	}
	next, err := s.invoices.Peek(ctx)
	if err != nil {
		s.warn(ctx, "peek next invoice number", err)
	}

	s.metrics.ObserveAttempt(metrics.OutcomeCompleted, s.now().Sub(started))
	s.metrics.ObserveSale(string(record.PaymentType), record.Total, current.Units())
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "total", record.Total.StringFixed(2)), "checkout completed")
	}

	return &Result{
		Transaction:       transactions.ToDTO(record),
		NextInvoiceNumber: next,
	}, nil
}

// reject releases the guard taken for a submission that never reached the
// database, leaving the session retryable.
func (s *service) reject(ctx context.Context, staffID, sessionID string, started time.Time, cause error) error {
	s.metrics.ObserveAttempt(metrics.OutcomeRejected, s.now().Sub(started))
	if err := s.guard.Fail(ctx, staffID, sessionID, cause); err != nil {
		s.warn(ctx, "release checkout guard", err)
	}
	return cause
}

func (s *service) Status(ctx context.Context, staffID uuid.UUID, sessionID string) (*Status, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	st, err := s.guard.Status(ctx, staffID.String(), sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read checkout status")
	}
	return &st, nil
}

func (s *service) validateInput(sessionID string, input CheckoutInput) (customerInfo, error) {
	details := map[string]string{}
	info := customerInfo{
		name:  strings.TrimSpace(input.CustomerName),
		phone: strings.TrimSpace(input.CustomerPhone),
	}
	if sessionID == "" {
		details["session_id"] = "required"
	}
	if info.name == "" {
		details["customer_name"] = "required"
	}
	if info.phone == "" {
		details["customer_phone"] = "required"
	}
	if input.CustomerEmail != nil {
		if email := strings.TrimSpace(*input.CustomerEmail); email != "" {
			if err := s.validate.Var(email, "email"); err != nil {
				details["customer_email"] = "must be a valid email"
			}
			info.email = &email
		}
	}
	payment, err := enums.ParsePaymentType(input.PaymentType)
	if err != nil {
		details["payment_type"] = "must be one of cash, card, bank_transfer, mobile_wallet"
	}
	info.payment = payment

	if len(details) > 0 {
		return customerInfo{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid checkout request").WithDetails(details)
	}
	return info, nil
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}

func buildTransaction(c cart.Cart, customer customerInfo, staffID uuid.UUID) *models.Transaction {
	lines := c.Lines()
	record := &models.Transaction{
		ID:            uuid.New(),
		CustomerName:  customer.name,
		CustomerPhone: customer.phone,
		CustomerEmail: customer.email,
		PaymentType:   customer.payment,
		Total:         c.Total(),
		Lines:         make([]models.TransactionLine, 0, len(lines)),
	}
	if staffID != uuid.Nil {
		record.StaffUserID = &staffID
	}
	for i, l := range lines {
		record.Lines = append(record.Lines, models.TransactionLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			LineTotal:   l.Subtotal(),
			Position:    i,
		})
	}
	return record
}

func saleCompletedEvent(record *models.Transaction, staffID uuid.UUID, currency string) outbox.DomainEvent {
	lines := make([]payloads.SaleLine, 0, len(record.Lines))
	for _, l := range record.Lines {
		lines = append(lines, payloads.SaleLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		})
	}
	data := payloads.SaleCompletedEvent{
		TransactionID: record.ID,
		InvoiceNumber: record.InvoiceNumber,
		CustomerName:  record.CustomerName,
		CustomerPhone: record.CustomerPhone,
		PaymentType:   record.PaymentType,
		Total:         record.Total,
		Currency:      currency,
		Lines:         lines,
		StaffID:       record.StaffUserID,
		CompletedAt:   time.Now().UTC(),
	}
	if record.CustomerEmail != nil {
		data.CustomerEmail = *record.CustomerEmail
	}
	var actor *outbox.ActorRef
	if staffID != uuid.Nil {
		actor = &outbox.ActorRef{StaffID: staffID}
	}
	return outbox.DomainEvent{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateTransaction,
		AggregateID:   record.ID,
		Actor:         actor,
		Data:          data,
		Version:       1,
	}
}
