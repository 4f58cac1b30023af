package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	StaffID uuid.UUID
	Role    enums.StaffRole
	// JTI doubles as the refresh-session key; generated when empty.
	JTI string
}

// AccessTokenClaims is the typed JWT issued to the counter app.
type AccessTokenClaims struct {
	StaffID uuid.UUID       `json:"staff_id"`
	Role    enums.StaffRole `json:"role"`
	jwt.RegisteredClaims
}
