package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/repairshop-backend/pkg/redis"
)

// ErrSessionNotFound is returned when a cart session expired or never existed.
var ErrSessionNotFound = errors.New("cart session not found")

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(staffID, sessionID string) string
}

// Store keeps session carts in Redis. Each write refreshes the TTL.
type Store struct {
	kv  kvStore
	ttl time.Duration
}

func NewStore(kv kvStore, ttl time.Duration) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("cart store requires redis")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cart ttl must be positive")
	}
	return &Store{kv: kv, ttl: ttl}, nil
}

func (s *Store) Load(ctx context.Context, staffID, sessionID string) (Cart, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(staffID, sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, ErrSessionNotFound
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return c, nil
}

func (s *Store) Save(ctx context.Context, staffID, sessionID string, c Cart) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(staffID, sessionID), string(payload), s.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, staffID, sessionID string) error {
	return s.kv.Del(ctx, s.kv.CartKey(staffID, sessionID))
}
