package bootstrap

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/config"
	"github.com/angelmondragon/repairshop-backend/pkg/logger"
)

func newRuntime() *Runtime {
	return &Runtime{
		Config: &config.Config{},
		Logger: logger.New(logger.Options{ServiceName: "bootstrap-test", Output: io.Discard}),
	}
}

func TestCloseRunsNewestFirstAndKeepsGoing(t *testing.T) {
	rt := newRuntime()
	var order []string
	rt.OnClose("database", func() error { order = append(order, "database"); return nil })
	rt.OnClose("redis", func() error { order = append(order, "redis"); return errors.New("conn reset") })
	rt.OnClose("pubsub", func() error { order = append(order, "pubsub"); return nil })

	err := rt.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close redis: conn reset")
	assert.Equal(t, []string{"pubsub", "redis", "database"}, order)

	assert.NoError(t, rt.Close(), "closers run once")
}

func TestSignalContextCarriesServiceFields(t *testing.T) {
	rt := newRuntime()
	rt.Config.App.Env = "test"
	ctx, stop := rt.SignalContext(context.Background())
	defer stop()
	assert.NoError(t, ctx.Err())

	stop()
	<-ctx.Done()
}

func TestServeMetricsDisabledWithoutAddress(t *testing.T) {
	rt := newRuntime()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rt.ServeMetrics(ctx)
}
