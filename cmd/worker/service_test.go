package main

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

type fakeRunner struct {
	name string
	err  error
}

func (f fakeRunner) Name() string { return f.name }

func (f fakeRunner) Run(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return ctx.Err()
}

func newTestWorker(deps map[string]pinger, runners ...runner) *Service {
	return &Service{
		logg:      logger.New(logger.Options{ServiceName: "worker-test", Output: io.Discard}),
		consumers: runners,
		deps:      deps,
	}
}

func TestWorkerStopsWhenAConsumerFails(t *testing.T) {
	svc := newTestWorker(nil, fakeRunner{name: "analytics"}, fakeRunner{name: "mail", err: errors.New("subscription deleted")})

	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mail")
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestWorkerReturnsOnCancel(t *testing.T) {
	svc := newTestWorker(nil, fakeRunner{name: "analytics"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkerRefusesToStartWithUnhealthyDependency(t *testing.T) {
	started := false
	svc := newTestWorker(map[string]pinger{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}, runnerFunc{name: "analytics", fn: func() { started = true }})

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
	assert.False(t, started)
}

type runnerFunc struct {
	name string
	fn   func()
}

func (r runnerFunc) Name() string { return r.name }

func (r runnerFunc) Run(context.Context) error {
	r.fn()
	return nil
}
