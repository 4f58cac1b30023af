package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairshop-backend/internal/staff"
	pkgAuth "github.com/angelmondragon/repairshop-backend/pkg/auth"
	"github.com/angelmondragon/repairshop-backend/pkg/auth/session"
	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/repairshop-backend/pkg/errors"
	"github.com/angelmondragon/repairshop-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service issues and rotates staff sessions.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error)
	Logout(ctx context.Context, accessToken string) error
}

type service struct {
	users   userRepository
	session sessionManager
	jwtCfg  config.JWTConfig
	now     func() time.Time
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.StaffUser, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.StaffUser, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type sessionManager interface {
	Generate(ctx context.Context, staffID uuid.UUID, accessID string) (string, error)
	Rotate(ctx context.Context, staffID uuid.UUID, oldAccessID, provided string) (string, string, error)
	Revoke(ctx context.Context, staffID uuid.UUID, accessID string) error
}

type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.UserRepo == nil:
		return nil, errors.New("staff repository is required")
	case params.SessionManager == nil:
		return nil, errors.New("session manager is required")
	}
	return &service{
		users:   params.UserRepo,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now

	grantID := session.NewAccessID()
	access, err := s.mint(now, user, grantID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.session.Generate(ctx, user.ID, grantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}
	return &LoginResponse{AccessToken: access, RefreshToken: refresh, Staff: staff.FromModel(user)}, nil
}

// Refresh rotates the session and re-reads the staff row so a deactivated or
// re-roled user cannot keep an old grant alive.
func (s *service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResponse, error) {
	claims, err := s.sessionClaims(req.AccessToken)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refresh_token is required")
	}

	user, err := s.lookup(s.users.FindByID(ctx, claims.StaffID))
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		_ = s.session.Revoke(ctx, user.ID, claims.ID)
		return nil, errInvalidCredentials()
	}

	grantID, refresh, err := s.session.Rotate(ctx, user.ID, claims.ID, req.RefreshToken)
	switch {
	case errors.Is(err, session.ErrInvalidRefreshToken):
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rotate session")
	}

	access, err := s.mint(s.now(), user, grantID)
	if err != nil {
		return nil, err
	}
	return &RefreshResponse{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout revokes the refresh session tied to the access token. Expired tokens
// are accepted.
func (s *service) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.sessionClaims(accessToken)
	if err != nil {
		return err
	}
	if err := s.session.Revoke(ctx, claims.StaffID, claims.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke session")
	}
	return nil
}

func errInvalidCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
}

// lookup maps a missing staff row to invalid credentials so callers cannot
// probe which e-mails exist.
func (s *service) lookup(user *models.StaffUser, err error) (*models.StaffUser, error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errInvalidCredentials()
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup staff user")
	}
	return user, nil
}

func (s *service) sessionClaims(accessToken string) (*pkgAuth.AccessTokenClaims, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, accessToken)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	case claims.ID == "":
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	return claims, nil
}

func (s *service) mint(now time.Time, user *models.StaffUser, grantID string) (string, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		StaffID: user.ID,
		Role:    user.Role,
		JTI:     grantID,
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return token, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.StaffUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errInvalidCredentials()
	}
	user, err := s.lookup(s.users.FindByEmail(ctx, email))
	if err != nil {
		return nil, err
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	case !valid || !user.IsActive:
		return nil, errInvalidCredentials()
	}
	return user, nil
}
