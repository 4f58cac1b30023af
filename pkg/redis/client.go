// Package redis wraps go-redis with the handful of commands the services use
// and the key layout they share.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// Nil is returned by reads against a missing key.
var Nil = redis.Nil

var errNotInitialized = errors.New("redis client not initialized")

// cmdable is the subset of redis.Cmdable the wrapper calls.
type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
	SAdd(context.Context, string, ...any) *redis.IntCmd
	SMembers(context.Context, string) *redis.StringSliceCmd
	SRem(context.Context, string, ...any) *redis.IntCmd
}

type Client struct {
	cmd     cmdable
	scripts redis.Scripter
	conn    *redis.Client
}

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// compareAndSwap replaces KEYS[1] with ARGV[2] for ARGV[3] milliseconds only
// while it still holds ARGV[1].
var compareAndSwap = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// Pinger is the readiness probe surface.
type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore is what request replay and consumer dedupe need.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// New connects and pings. Failed and slow commands are logged when logg is set.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if logg != nil {
		conn.AddHook(commandLogger{logg: logg, slow: cfg.SlowCommand})
	}
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"addr": opts.Addr, "db": opts.DB, "pool_size": opts.PoolSize}), "redis connection established")
	}
	return &Client{cmd: conn, scripts: conn, conn: conn}, nil
}

// options prefers REPAIRSHOP_REDIS_URL; explicit settings fill whatever the
// URL leaves unset.
func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts := &redis.Options{Addr: cfg.Address, Password: cfg.Password}
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		opts = parsed
	}
	if opts.Addr == "" {
		return nil, errors.New("redis url or address is required")
	}
	orDefault(&opts.DB, cfg.DB)
	orDefault(&opts.PoolSize, cfg.PoolSize)
	orDefault(&opts.MinIdleConns, cfg.MinIdleConns)
	orDefault(&opts.DialTimeout, cfg.DialTimeout)
	orDefault(&opts.ReadTimeout, cfg.ReadTimeout)
	orDefault(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func orDefault[T comparable](dst *T, v T) {
	var zero T
	if *dst == zero {
		*dst = v
	}
}

func (c *Client) ready() error {
	if c == nil || c.cmd == nil {
		return errNotInitialized
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmd.Ping(ctx).Err()
}

// Set stores value; a zero ttl keeps the key forever.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmd.Set(ctx, key, value, ttl).Err()
}

// Get returns Nil for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.cmd.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.cmd.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.cmd.Del(ctx, keys...).Err()
}

// CompareAndDelete deletes key if its value is still want and reports whether
// it did. Lock owners use it so an expired lock taken over by another
// instance is never released by the old holder.
func (c *Client) CompareAndDelete(ctx context.Context, key, want string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	if c.scripts == nil {
		return false, errNotInitialized
	}
	n, err := compareAndDelete.Run(ctx, c.scripts, []string{key}, want).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompareAndSwap sets key to next with ttl only if it still holds prev, so two
// callers racing to take over the same value cannot both win.
func (c *Client) CompareAndSwap(ctx context.Context, key, prev, next string, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	if c.scripts == nil {
		return false, errNotInitialized
	}
	if ttl <= 0 {
		return false, fmt.Errorf("compare and swap %s: ttl must be positive", key)
	}
	n, err := compareAndSwap.Run(ctx, c.scripts, []string{key}, prev, next, ttl.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// IncrWithTTL increments key and starts its expiry on the first increment,
// so a window is measured from the first hit.
func (c *Client) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	n, err := c.cmd.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 && ttl > 0 {
		if err := c.cmd.Expire(ctx, key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// FixedWindowAllow counts one hit against scope and reports whether the
// count is still within limit.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	n, err := c.IncrWithTTL(ctx, c.RateLimitKey(scope), window)
	if err != nil {
		return false, 0, err
	}
	return n <= limit, n, nil
}

// SAdd adds members and pushes the set's expiry out to ttl.
func (c *Client) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.cmd.SAdd(ctx, key, anySlice(members)...).Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	return c.cmd.Expire(ctx, key, ttl).Err()
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	return c.cmd.SMembers(ctx, key).Result()
}

func (c *Client) SRem(ctx context.Context, key string, members ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.cmd.SRem(ctx, key, anySlice(members)...).Err()
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func anySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
