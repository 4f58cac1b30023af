package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "repairshop", ExpirationMinutes: 30}

func TestMintAndParseAccessToken(t *testing.T) {
	staffID := uuid.New()
	token, err := MintAccessToken(testJWT, time.Now().UTC(), AccessTokenPayload{
		StaffID: staffID,
		Role:    enums.StaffRoleCashier,
		JTI:     "jti-123",
	})
	require.NoError(t, err)

	claims, err := ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, staffID, claims.StaffID)
	assert.Equal(t, enums.StaffRoleCashier, claims.Role)
	assert.Equal(t, "jti-123", claims.ID)
	assert.Equal(t, "repairshop", claims.Issuer)
}

func TestMintRejectsInvalidPayload(t *testing.T) {
	_, err := MintAccessToken(testJWT, time.Now(), AccessTokenPayload{StaffID: uuid.New(), Role: "admin"})
	require.Error(t, err)

	_, err = MintAccessToken(testJWT, time.Now(), AccessTokenPayload{Role: enums.StaffRoleOwner})
	require.Error(t, err)

	_, err = MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, time.Now(), AccessTokenPayload{StaffID: uuid.New(), Role: enums.StaffRoleOwner})
	require.Error(t, err)
}

func TestParseRejectsExpiredButAllowExpiredReadsJTI(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		StaffID: uuid.New(),
		Role:    enums.StaffRoleOwner,
		JTI:     "old-jti",
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(testJWT, token)
	require.Error(t, err)

	claims, err := ParseAccessTokenAllowExpired(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, "old-jti", claims.ID)
}

func TestParseRejectsWrongIssuerAndSecret(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now(), AccessTokenPayload{StaffID: uuid.New(), Role: enums.StaffRoleOwner})
	require.NoError(t, err)

	other := testJWT
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, token)
	require.Error(t, err)

	other = testJWT
	other.Secret = "different"
	_, err = ParseAccessToken(other, token)
	require.Error(t, err)
}

func TestParseToleratesClockSkew(t *testing.T) {
	cfg := testJWT
	cfg.ExpirationMinutes = 1
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Minute-10*time.Second), AccessTokenPayload{StaffID: uuid.New(), Role: enums.StaffRoleTechnician})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, token)
	assert.NoError(t, err, "ten seconds past expiry is within the skew allowance")

	token, err = MintAccessToken(cfg, time.Now().Add(-2*time.Minute), AccessTokenPayload{StaffID: uuid.New(), Role: enums.StaffRoleTechnician})
	require.NoError(t, err)
	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestAllowExpiredStillChecksIssuerAndAlgorithm(t *testing.T) {
	token, err := MintAccessToken(testJWT, time.Now().Add(-time.Hour), AccessTokenPayload{StaffID: uuid.New(), Role: enums.StaffRoleOwner})
	require.NoError(t, err)
	other := testJWT
	other.Issuer = "another-shop"
	_, err = ParseAccessTokenAllowExpired(other, token)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessTokenClaims{
		StaffID:          uuid.New(),
		Role:             enums.StaffRoleOwner,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: testJWT.Issuer, ID: "x"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseAccessTokenAllowExpired(testJWT, unsigned)
	assert.Error(t, err)
}
