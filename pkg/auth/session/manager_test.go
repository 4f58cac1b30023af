package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	sets   map[string]map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, sets: map[string]map[string]bool{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
		delete(m.sets, k)
	}
	return nil
}

func (m *memoryStore) SAdd(_ context.Context, key string, _ time.Duration, members ...string) error {
	if m.sets[key] == nil {
		m.sets[key] = map[string]bool{}
	}
	for _, member := range members {
		m.sets[key][member] = true
	}
	return nil
}

func (m *memoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	out := []string{}
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *memoryStore) SRem(_ context.Context, key string, members ...string) error {
	for _, member := range members {
		delete(m.sets[key], member)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string { return "sess:" + accessID }
func (m *memoryStore) StaffSessionsKey(staffID string) string  { return "staff:" + staffID }

func newTestManager() (*Manager, *memoryStore) {
	store := newMemoryStore()
	return &Manager{store: store, ttl: time.Hour}, store
}

func TestGenerateAndRotate(t *testing.T) {
	manager, store := newTestManager()
	ctx := context.Background()
	staffID := uuid.New()

	token, err := manager.Generate(ctx, staffID, "access-1")
	require.NoError(t, err)
	assert.Equal(t, token, store.values["sess:access-1"])
	assert.True(t, store.sets["staff:"+staffID.String()]["access-1"])

	_, _, err = manager.Rotate(ctx, staffID, "access-1", "wrong")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	newID, newToken, err := manager.Rotate(ctx, staffID, "access-1", token)
	require.NoError(t, err)
	assert.NotContains(t, store.values, "sess:access-1")
	assert.Equal(t, newToken, store.values["sess:"+newID])
	assert.Equal(t, map[string]bool{newID: true}, store.sets["staff:"+staffID.String()])

	_, _, err = manager.Rotate(ctx, staffID, "access-1", token)
	assert.True(t, errors.Is(err, ErrInvalidRefreshToken), "refresh tokens are single use")
}

func TestRevokeAllEndsEverySessionOfOneStaffMember(t *testing.T) {
	manager, store := newTestManager()
	ctx := context.Background()
	leaving, staying := uuid.New(), uuid.New()

	for _, id := range []string{"counter", "phone"} {
		_, err := manager.Generate(ctx, leaving, id)
		require.NoError(t, err)
	}
	_, err := manager.Generate(ctx, staying, "bench")
	require.NoError(t, err)

	n, err := manager.RevokeAll(ctx, leaving)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for id, want := range map[string]bool{"counter": false, "phone": false, "bench": true} {
		ok, err := manager.HasSession(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, ok, id)
	}
	assert.NotContains(t, store.sets, "staff:"+leaving.String())
}

func TestRevokeAndBlankIDs(t *testing.T) {
	manager, _ := newTestManager()
	ctx := context.Background()
	staffID := uuid.New()

	_, err := manager.Generate(ctx, staffID, "access-9")
	require.NoError(t, err)
	require.NoError(t, manager.Revoke(ctx, staffID, "access-9"))

	ok, err := manager.HasSession(ctx, "access-9")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = manager.Generate(ctx, staffID, "  ")
	assert.Error(t, err)
	_, err = manager.HasSession(ctx, "")
	assert.Error(t, err)
}
