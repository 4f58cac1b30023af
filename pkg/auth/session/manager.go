// Package session stores refresh tokens in Redis, one per access id (the JWT
// jti), and indexes them per staff member so an owner can cut off a
// deactivated employee everywhere at once.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	redisclient "github.com/angelmondragon/repairshop-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errBlankID             = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SRem(ctx context.Context, key string, members ...string) error
	AccessSessionKey(accessID string) string
	StaffSessionsKey(staffID string) string
}

// AccessSessionChecker is what the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store store
	ttl   time.Duration
}

func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= access {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, access)
	}
	return &Manager{store: client, ttl: ttl}, nil
}

// NewAccessID mints the jti that keys a session.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for staffID under accessID and returns its
// refresh token.
func (m *Manager) Generate(ctx context.Context, staffID uuid.UUID, accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errBlankID
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), token, m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	if err := m.store.SAdd(ctx, m.store.StaffSessionsKey(staffID.String()), m.ttl, accessID); err != nil {
		return "", fmt.Errorf("index session: %w", err)
	}
	return token, nil
}

// Rotate trades a valid refresh token for a fresh access id and token. The
// old session is gone afterwards, so a refresh token works once.
func (m *Manager) Rotate(ctx context.Context, staffID uuid.UUID, oldAccessID, provided string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", ErrInvalidRefreshToken
	}
	stored, err := m.store.Get(ctx, m.store.AccessSessionKey(oldAccessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return "", "", ErrInvalidRefreshToken
	case err != nil:
		return "", "", err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.Generate(ctx, staffID, accessID)
	if err != nil {
		return "", "", err
	}
	if err := m.Revoke(ctx, staffID, oldAccessID); err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

func (m *Manager) Revoke(ctx context.Context, staffID uuid.UUID, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errBlankID
	}
	if err := m.store.Del(ctx, m.store.AccessSessionKey(accessID)); err != nil {
		return err
	}
	return m.store.SRem(ctx, m.store.StaffSessionsKey(staffID.String()), accessID)
}

// RevokeAll ends every session of staffID and reports how many were open.
func (m *Manager) RevokeAll(ctx context.Context, staffID uuid.UUID) (int, error) {
	index := m.store.StaffSessionsKey(staffID.String())
	ids, err := m.store.SMembers(ctx, index)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, m.store.AccessSessionKey(id))
	}
	keys = append(keys, index)
	if err := m.store.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete sessions: %w", err)
	}
	return len(ids), nil
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errBlankID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
