// Package idempotency remembers which outbox events a consumer has already
// handled. Pub/Sub delivers at least once, so every side effect (receipt
// mail, analytics row) is claimed here first.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/pkg/instance"
	"github.com/angelmondragon/repairshop-backend/pkg/redis"
)

const processedScope = "evt:processed:"

type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

// NewManager keeps claims for ttl; zero keeps them forever.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl, now: time.Now}, nil
}

// CheckAndMarkProcessed claims eventID for consumer. It reports true when an
// earlier delivery already holds the claim. The stored value names the
// claiming instance and time.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := m.store.SetNX(ctx, key, instance.ID()+"@"+m.now().UTC().Format(time.RFC3339), m.ttl)
	if err != nil {
		return false, err
	}
	return !claimed, nil
}

// Delete drops a claim so a redelivery is processed again.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey(processedScope+consumer, eventID.String()), nil
}
