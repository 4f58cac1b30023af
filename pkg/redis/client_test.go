package redis

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// fakeRedis keeps strings, sets and counters in maps and answers the
// compare-and-delete and compare-and-swap scripts by evaluating them natively.
type fakeRedis struct {
	strings map[string]string
	sets    map[string]map[string]bool
	expires []string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{strings: map[string]string{}, sets: map[string]map[string]bool{}}
}

func newTestClient() (*Client, *fakeRedis) {
	f := newFakeRedis()
	return &Client{cmd: f, scripts: f}, f
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd { return redis.NewStatusResult("PONG", nil) }

func (f *fakeRedis) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	s, ok := value.(string)
	if !ok {
		return redis.NewStatusResult("", errors.New("only strings"))
	}
	f.strings[key] = s
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.strings[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, ok := f.strings[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.strings[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	n, _ := strconv.ParseInt(f.strings[key], 10, 64)
	n++
	f.strings[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Expire(_ context.Context, key string, _ time.Duration) *redis.BoolCmd {
	f.expires = append(f.expires, key)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.strings[k]; ok {
			n++
		}
		delete(f.strings, k)
		delete(f.sets, k)
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) SAdd(_ context.Context, key string, members ...any) *redis.IntCmd {
	if f.sets[key] == nil {
		f.sets[key] = map[string]bool{}
	}
	for _, m := range members {
		f.sets[key][m.(string)] = true
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeRedis) SMembers(_ context.Context, key string) *redis.StringSliceCmd {
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return redis.NewStringSliceResult(out, nil)
}

func (f *fakeRedis) SRem(_ context.Context, key string, members ...any) *redis.IntCmd {
	for _, m := range members {
		delete(f.sets[key], m.(string))
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeRedis) compareAndDelete(keys []string, args []any) *redis.Cmd {
	if v, ok := f.strings[keys[0]]; ok && v == args[0] {
		delete(f.strings, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeRedis) compareAndSwap(keys []string, args []any) *redis.Cmd {
	if v, ok := f.strings[keys[0]]; ok && v == args[0] {
		f.strings[keys[0]] = args[1].(string)
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeRedis) runScript(keys []string, args []any) *redis.Cmd {
	if len(args) == 3 {
		return f.compareAndSwap(keys, args)
	}
	return f.compareAndDelete(keys, args)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.runScript(keys, args)
}

func (f *fakeRedis) EvalSha(_ context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	return f.runScript(keys, args)
}

func (f *fakeRedis) EvalRO(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeRedis) EvalShaRO(ctx context.Context, sha string, keys []string, args ...any) *redis.Cmd {
	return f.EvalSha(ctx, sha, keys, args...)
}

func (f *fakeRedis) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeRedis) ScriptLoad(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("sha", nil)
}

func TestFixedWindowStartsExpiryOnFirstHit(t *testing.T) {
	ctx := context.Background()
	client, fake := newTestClient()

	for i, want := range []bool{true, true, false} {
		allowed, count, err := client.FixedWindowAllow(ctx, "login:ip:10.0.0.1", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, allowed, "hit %d", i+1)
		assert.EqualValues(t, i+1, count)
	}
	assert.Equal(t, []string{"rs:rate_limit:login:ip:10.0.0.1"}, fake.expires)
}

func TestCompareAndDeleteOnlyRemovesMatchingValue(t *testing.T) {
	ctx := context.Background()
	client, fake := newTestClient()
	key := client.LockKey("cron:prod")
	fake.strings[key] = "cron-a:1"

	deleted, err := client.CompareAndDelete(ctx, key, "cron-b:2")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Contains(t, fake.strings, key)

	deleted, err = client.CompareAndDelete(ctx, key, "cron-a:1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NotContains(t, fake.strings, key)
}

func TestCompareAndSwapOnlyReplacesExpectedValue(t *testing.T) {
	ctx := context.Background()
	client, fake := newTestClient()
	key := client.CheckoutKey("staff-1", "sess-1")
	fake.strings[key] = `{"state":"failed"}`

	swapped, err := client.CompareAndSwap(ctx, key, `{"state":"completed"}`, `{"state":"submitting"}`, time.Minute)
	require.NoError(t, err)
	assert.False(t, swapped)
	assert.Equal(t, `{"state":"failed"}`, fake.strings[key])

	swapped, err = client.CompareAndSwap(ctx, key, `{"state":"failed"}`, `{"state":"submitting"}`, time.Minute)
	require.NoError(t, err)
	assert.True(t, swapped)
	assert.Equal(t, `{"state":"submitting"}`, fake.strings[key])

	swapped, err = client.CompareAndSwap(ctx, key, `{"state":"failed"}`, `{"state":"submitting"}`, time.Minute)
	require.NoError(t, err)
	assert.False(t, swapped, "second taker loses")

	_, err = client.CompareAndSwap(ctx, key, "a", "b", 0)
	assert.Error(t, err)
}

func TestSetNXGetDel(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestClient()
	key := client.CheckoutKey("staff-1", "sess-1")

	first, err := client.SetNX(ctx, key, "submitting", time.Minute)
	require.NoError(t, err)
	second, err := client.SetNX(ctx, key, "submitting", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)

	require.NoError(t, client.Del(ctx, key))
	require.NoError(t, client.Del(ctx))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, Nil)
}

func TestSetIndexRefreshesExpiry(t *testing.T) {
	ctx := context.Background()
	client, fake := newTestClient()
	key := client.StaffSessionsKey("staff-1")

	require.NoError(t, client.SAdd(ctx, key, time.Hour, "jti-1", "jti-2"))
	require.NoError(t, client.SAdd(ctx, key, 0, "jti-3"))
	require.NoError(t, client.SRem(ctx, key, "jti-1", "jti-3"))

	members, err := client.SMembers(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"jti-2"}, members)
	assert.Equal(t, []string{key}, fake.expires)
}

func TestKeysAreNamespaced(t *testing.T) {
	c := &Client{}
	assert.Equal(t, "rs", Key())
	assert.Equal(t, "rs:a:b", Key(" a ", "", "b"))
	assert.Equal(t, "rs:idempotency:checkout:abc", c.IdempotencyKey("checkout", "abc"))
	assert.Equal(t, "rs:rate_limit:login", c.RateLimitKey("login"))
	assert.Equal(t, "rs:session:access:jti-1", c.AccessSessionKey("jti-1"))
	assert.Equal(t, "rs:session:staff:staff-1", c.StaffSessionsKey("staff-1"))
	assert.Equal(t, "rs:cart:staff-1:sess-1", c.CartKey("staff-1", "sess-1"))
	assert.Equal(t, "rs:checkout:staff-1:sess-1", c.CheckoutKey("staff-1", " sess-1 "))
	assert.Equal(t, "rs:lock:cron:prod", c.LockKey("cron:prod"))
}

func TestUninitializedClient(t *testing.T) {
	var nilClient *Client
	assert.ErrorIs(t, nilClient.Ping(context.Background()), errNotInitialized)
	assert.NoError(t, nilClient.Close())

	empty := &Client{}
	_, err := empty.CompareAndDelete(context.Background(), "k", "v")
	assert.ErrorIs(t, err, errNotInitialized)
	assert.NoError(t, empty.Close())
}

func TestOptions(t *testing.T) {
	_, err := options(config.RedisConfig{})
	assert.EqualError(t, err, "redis url or address is required")

	opts, err := options(config.RedisConfig{URL: "redis://localhost:6379/2", DB: 5, PoolSize: 7, DialTimeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB, "the url's db wins")
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)

	opts, err = options(config.RedisConfig{Address: "cache:6380", Password: "pw", DB: 1})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 1, opts.DB)
}

func TestCommandLoggerReportsFailuresAndSlowCommands(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "redis-test", Level: logger.ParseLevel("debug"), Output: &buf})
	ctx := context.Background()

	process := func(h commandLogger, delay time.Duration, err error) {
		next := func(context.Context, redis.Cmder) error {
			time.Sleep(delay)
			return err
		}
		_ = h.ProcessHook(next)(ctx, redis.NewStringCmd(ctx, "get", "rs:session:access:secret-token"))
	}

	process(commandLogger{logg: logg, slow: time.Second}, 0, redis.Nil)
	assert.Empty(t, buf.String(), "a missing key is not a failure")

	process(commandLogger{logg: logg, slow: time.Second}, 0, errors.New("READONLY"))
	assert.Contains(t, buf.String(), "redis command failed")
	assert.Contains(t, buf.String(), `"command":"get"`)
	assert.NotContains(t, buf.String(), "secret-token")

	buf.Reset()
	process(commandLogger{logg: logg, slow: time.Millisecond}, 5*time.Millisecond, nil)
	assert.Contains(t, buf.String(), "slow redis command")
}
