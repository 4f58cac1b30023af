// Package staff manages the employees who sign in to the counter app.
package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/security"
)

const minPasswordLength = 8

type Service interface {
	Create(ctx context.Context, input CreateInput) (*StaffDTO, error)
	List(ctx context.Context) ([]StaffDTO, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type CreateInput struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required"`
	Role     string `validate:"required"`
	Password string `validate:"required"`
}

type repository interface {
	Create(ctx context.Context, user *models.StaffUser) error
	FindByEmail(ctx context.Context, email string) (*models.StaffUser, error)
	List(ctx context.Context) ([]models.StaffUser, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error)
}

// sessionRevoker ends the live sessions of a deactivated staff member.
type sessionRevoker interface {
	RevokeAll(ctx context.Context, staffID uuid.UUID) (int, error)
}

type service struct {
	repo     repository
	password config.PasswordConfig
	sessions sessionRevoker
	validate *validator.Validate
}

// NewService builds the staff service. sessions may be nil when no API
// sessions exist to revoke, as in the CLI.
func NewService(repo repository, password config.PasswordConfig, sessions sessionRevoker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("staff repository required")
	}
	return &service{repo: repo, password: password, sessions: sessions, validate: validator.New()}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*StaffDTO, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if err := s.validate.Struct(input); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid staff user")
	}
	role, err := enums.ParseStaffRole(input.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	if len(input.Password) < minPasswordLength {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "password must be at least %d characters", minPasswordLength)
	}

	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup staff user")
	}

	hash, err := security.HashPassword(input.Password, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user := &models.StaffUser{
		Email:        input.Email,
		Name:         input.Name,
		Role:         role,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create staff user")
	}
	return FromModel(user), nil
}

func (s *service) List(ctx context.Context) ([]StaffDTO, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list staff users")
	}
	out := make([]StaffDTO, 0, len(users))
	for i := range users {
		out = append(out, *FromModel(&users[i]))
	}
	return out, nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	rows, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update staff user")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "staff user not found")
	}
	if !active && s.sessions != nil {
		if _, err := s.sessions.RevokeAll(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke sessions")
		}
	}
	return nil
}
