package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/pagination"
)

// Service exposes the read side of recorded sales.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*TransactionDTO, error)
	GetByInvoiceNumber(ctx context.Context, number string) (*TransactionDTO, error)
	List(ctx context.Context, params ListParams) (*pagination.Page[TransactionDTO], error)
	Summary(ctx context.Context, from, to *time.Time) (*SummaryDTO, error)
}

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	FindByInvoiceNumber(ctx context.Context, number string) (*models.Transaction, error)
	List(ctx context.Context, params ListParams) ([]models.Transaction, error)
	SummaryByPaymentType(ctx context.Context, from, to *time.Time) ([]PaymentTotal, error)
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transaction repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*TransactionDTO, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapFindError(err)
	}
	return ToDTO(record), nil
}

func (s *service) GetByInvoiceNumber(ctx context.Context, number string) (*TransactionDTO, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice number is required")
	}
	record, err := s.repo.FindByInvoiceNumber(ctx, number)
	if err != nil {
		return nil, mapFindError(err)
	}
	return ToDTO(record), nil
}

func (s *service) List(ctx context.Context, params ListParams) (*pagination.Page[TransactionDTO], error) {
	if err := validateWindow(params.From, params.To); err != nil {
		return nil, err
	}
	params.Search = strings.TrimSpace(params.Search)
	rows, err := s.repo.List(ctx, params)
	switch {
	case errors.Is(err, pagination.ErrInvalidCursor):
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list transactions")
	}
	dtos := make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *ToDTO(&rows[i]))
	}
	page := pagination.BuildPage(dtos, params.Limit, func(t TransactionDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return &page, nil
}

func (s *service) Summary(ctx context.Context, from, to *time.Time) (*SummaryDTO, error) {
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	rows, err := s.repo.SummaryByPaymentType(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize sales")
	}
	summary := &SummaryDTO{From: from, To: to, Total: decimal.Zero, ByPayment: make([]PaymentSummaryDTO, 0, len(rows))}
	for _, row := range rows {
		summary.Count += row.Count
		summary.Total = summary.Total.Add(row.Total)
		summary.ByPayment = append(summary.ByPayment, PaymentSummaryDTO{
			PaymentType: row.PaymentType,
			Label:       row.PaymentType.Label(),
			Count:       row.Count,
			Total:       row.Total,
		})
	}
	return summary, nil
}

func validateWindow(from, to *time.Time) error {
	if from != nil && to != nil && !from.Before(*to) {
		return pkgerrors.New(pkgerrors.CodeValidation, "from must be before to")
	}
	return nil
}

func mapFindError(err error) error {
	if errors.Is(err, ErrTransactionNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load transaction")
}
