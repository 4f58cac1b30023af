package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/redis"
)

type memoryStore struct {
	values map[string]any
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]any{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v.(string), nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "rs:idempotency:" + scope + ":" + id
}

func TestSecondDeliveryIsReportedAsProcessed(t *testing.T) {
	t.Setenv("REPAIRSHOP_INSTANCE_ID", "worker-a")
	store := newMemoryStore()
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)
	manager.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	eventID := uuid.New()
	key := "rs:idempotency:evt:processed:receipt-mailer:" + eventID.String()

	already, err := manager.CheckAndMarkProcessed(ctx, "receipt-mailer", eventID)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "worker-a@2026-03-14T12:00:00Z", store.values[key])
	assert.Equal(t, 24*time.Hour, store.ttls[key])

	already, err = manager.CheckAndMarkProcessed(ctx, "receipt-mailer", eventID)
	require.NoError(t, err)
	assert.True(t, already)

	already, err = manager.CheckAndMarkProcessed(ctx, "sales-analytics", eventID)
	require.NoError(t, err)
	assert.False(t, already, "claims are per consumer")
}

func TestDeleteReleasesClaim(t *testing.T) {
	store := newMemoryStore()
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()
	eventID := uuid.New()

	_, err = manager.CheckAndMarkProcessed(ctx, "receipt-mailer", eventID)
	require.NoError(t, err)
	require.NoError(t, manager.Delete(ctx, "receipt-mailer", eventID))

	already, err := manager.CheckAndMarkProcessed(ctx, "receipt-mailer", eventID)
	require.NoError(t, err)
	assert.False(t, already)
}

func TestRejectsBadInput(t *testing.T) {
	_, err := NewManager(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewManager(newMemoryStore(), -time.Second)
	assert.Error(t, err)

	store := newMemoryStore()
	manager, err := NewManager(store, 0)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = manager.CheckAndMarkProcessed(ctx, "", uuid.New())
	assert.Error(t, err)
	_, err = manager.CheckAndMarkProcessed(ctx, "receipt-mailer", uuid.Nil)
	assert.Error(t, err)

	store.err = errors.New("redis down")
	_, err = manager.CheckAndMarkProcessed(ctx, "receipt-mailer", uuid.New())
	assert.ErrorContains(t, err, "redis down")
}
