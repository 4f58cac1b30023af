package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/repairshop-backend/pkg/redis"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, value.(string), ttl)
	return nil
}

func (m *memoryKV) set(key, value string, ttl time.Duration) {
	m.data[key] = value
	m.ttls[key] = ttl
}

func (m *memoryKV) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.set(key, value.(string), ttl)
	return true, nil
}

func (m *memoryKV) CompareAndSwap(_ context.Context, key, prev, next string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; !ok || v != prev {
		return false, nil
	}
	m.set(key, next, ttl)
	return true, nil
}

func (m *memoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryKV) CartKey(staffID, sessionID string) string {
	return strings.Join([]string{"rs", "cart", staffID, sessionID}, ":")
}

func (m *memoryKV) CheckoutKey(staffID, sessionID string) string {
	return strings.Join([]string{"rs", "checkout", staffID, sessionID}, ":")
}
