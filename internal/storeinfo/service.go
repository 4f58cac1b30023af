// Package storeinfo holds the shop details printed on receipts and slips.
package storeinfo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
)

type Service interface {
	Get(ctx context.Context) (*StoreInfoDTO, error)
	Upsert(ctx context.Context, input UpsertInput) (*StoreInfoDTO, error)
}

type UpsertInput struct {
	Name          string
	Address       string
	Phone         string
	Email         string
	TaxID         string
	ReceiptFooter string
}

type StoreInfoDTO struct {
	Name          string     `json:"name"`
	Address       string     `json:"address"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email"`
	TaxID         string     `json:"tax_id"`
	ReceiptFooter string     `json:"receipt_footer"`
	Configured    bool       `json:"configured"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

type repository interface {
	Get(ctx context.Context) (*models.StoreInfo, error)
	Upsert(ctx context.Context, info *models.StoreInfo) error
}

type service struct {
	repo     repository
	fallback string
	validate *validator.Validate
}

// NewService builds the service. fallbackName is shown until the owner saves
// the shop details.
func NewService(repo repository, fallbackName string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store info repository required")
	}
	return &service{repo: repo, fallback: fallbackName, validate: validator.New()}, nil
}

func (s *service) Get(ctx context.Context) (*StoreInfoDTO, error) {
	info, err := s.repo.Get(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store info")
	}
	if info == nil {
		return &StoreInfoDTO{Name: s.fallback}, nil
	}
	return toDTO(info), nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*StoreInfoDTO, error) {
	info := &models.StoreInfo{
		Name:          strings.TrimSpace(input.Name),
		Address:       strings.TrimSpace(input.Address),
		Phone:         strings.TrimSpace(input.Phone),
		Email:         strings.TrimSpace(input.Email),
		TaxID:         strings.TrimSpace(input.TaxID),
		ReceiptFooter: strings.TrimSpace(input.ReceiptFooter),
	}

	details := map[string]string{}
	if info.Name == "" {
		details["name"] = "required"
	}
	if info.Email != "" {
		if err := s.validate.Var(info.Email, "email"); err != nil {
			details["email"] = "must be a valid email"
		}
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid store info").WithDetails(details)
	}

	if err := s.repo.Upsert(ctx, info); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save store info")
	}
	return toDTO(info), nil
}

func toDTO(info *models.StoreInfo) *StoreInfoDTO {
	updated := info.UpdatedAt
	return &StoreInfoDTO{
		Name:          info.Name,
		Address:       info.Address,
		Phone:         info.Phone,
		Email:         info.Email,
		TaxID:         info.TaxID,
		ReceiptFooter: info.ReceiptFooter,
		Configured:    true,
		UpdatedAt:     &updated,
	}
}
