package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
)

// clockSkew tolerates small drift between the API replicas and the tills.
const clockSkew = 30 * time.Second

var (
	errNoSecret  = errors.New("jwt secret is required")
	errNoIssuer  = errors.New("jwt issuer is required")
	errBadExpiry = errors.New("jwt expiration minutes must be positive")
	errNoStaff   = errors.New("staff id is required")
)

// HS256 only; tokens are minted and checked by the same service.
var signingMethod = jwt.SigningMethodHS256

// MintAccessToken signs an access token valid from now for the configured
// number of minutes. An empty JTI gets a fresh uuid.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	switch {
	case cfg.Secret == "":
		return "", errNoSecret
	case cfg.Issuer == "":
		return "", errNoIssuer
	case cfg.ExpirationMinutes <= 0:
		return "", errBadExpiry
	case payload.StaffID == uuid.Nil:
		return "", errNoStaff
	case !payload.Role.IsValid():
		return "", fmt.Errorf("invalid staff role %q", payload.Role)
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	claims := AccessTokenClaims{
		StaffID: payload.StaffID,
		Role:    payload.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   payload.StaffID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken checks signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	return parse(cfg, token, jwt.WithExpirationRequired(), jwt.WithLeeway(clockSkew))
}

// ParseAccessTokenAllowExpired skips the time checks. Refresh and logout use
// it to read the jti of a token that has already run out.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, token string) (*AccessTokenClaims, error) {
	return parse(cfg, token, jwt.WithoutClaimsValidation())
}

func parse(cfg config.JWTConfig, token string, opts ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errNoSecret
	}
	opts = append(opts,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	claims := new(AccessTokenClaims)
	key := func(*jwt.Token) (any, error) { return []byte(cfg.Secret), nil }
	if _, err := jwt.ParseWithClaims(token, claims, key, opts...); err != nil {
		return nil, err
	}
	// WithoutClaimsValidation also skips the issuer check.
	if claims.Issuer != cfg.Issuer {
		return nil, jwt.ErrTokenInvalidIssuer
	}
	return claims, nil
}
