package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairshop-backend/pkg/instance"
)

// defaultLockTTL bounds how long a crashed worker can block the schedule.
const defaultLockTTL = 30 * time.Minute

// Lock keeps two cron workers from running the same cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, want string) (bool, error)
}

// RedisLock is a SET NX lock. The value is a token naming this instance, and
// only the token holder can release it.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
	token string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	switch {
	case store == nil:
		return nil, errors.New("lock store is required")
	case key == "":
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	token := fmt.Sprintf("%s:%s", instance.ID(), uuid.NewString())
	acquired, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if acquired {
		l.token = token
	}
	return acquired, nil
}

// Release is a no-op when the lock was never taken or has since expired and
// passed to someone else.
func (l *RedisLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.store.CompareAndDelete(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
