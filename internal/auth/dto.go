package auth

import "github.com/angelmondragon/repairshop-backend/internal/staff"

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest pairs the (possibly expired) access token with its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LoginResponse contains the tokens and staff profile produced by a successful login.
type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	Staff        *staff.StaffDTO `json:"staff"`
}

type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
