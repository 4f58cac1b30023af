package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

// commandLogger reports failed and slow commands. Only command names are
// logged: arguments carry refresh tokens and cart contents.
type commandLogger struct {
	logg *logger.Logger
	slow time.Duration
}

var _ redis.Hook = commandLogger{}

func (h commandLogger) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logg.Error(h.logg.WithField(ctx, "addr", addr), "redis dial failed", err)
		}
		return conn, err
	}
}

func (h commandLogger) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		started := time.Now()
		err := next(ctx, cmd)
		h.observe(ctx, cmd.Name(), 1, time.Since(started), err)
		return err
	}
}

func (h commandLogger) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		started := time.Now()
		err := next(ctx, cmds)
		name := "pipeline"
		if len(cmds) > 0 {
			name = cmds[0].Name()
		}
		h.observe(ctx, name, len(cmds), time.Since(started), err)
		return err
	}
}

func (h commandLogger) observe(ctx context.Context, name string, n int, took time.Duration, err error) {
	failed := err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled)
	slow := h.slow > 0 && took > h.slow
	if !failed && !slow {
		return
	}
	ctx = h.logg.WithFields(ctx, map[string]any{
		"command":     name,
		"commands":    n,
		"duration_ms": took.Milliseconds(),
	})
	if failed {
		h.logg.Error(ctx, "redis command failed", err)
		return
	}
	h.logg.Warn(ctx, "slow redis command")
}
