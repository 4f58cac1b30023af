package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairshop-backend/pkg/metrics"
)

type fakeLock struct {
	held bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.held = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func newTestService(t *testing.T, lock Lock, m *metrics.CronMetrics, jobs ...Job) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Registry: NewRegistry(jobs...),
		Lock:     lock,
		Metrics:  m,
	})
	require.NoError(t, err)
	return svc
}

func TestRunOnceKeepsGoingPastAFailedJob(t *testing.T) {
	ok := &testJob{name: "low-stock-alert"}
	failing := &testJob{name: "outbox-retention", err: errors.New("db down")}
	lock := &fakeLock{}
	svc := newTestService(t, lock, nil, failing, ok)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, ok.runs)
	assert.False(t, lock.held, "lock released after the cycle")
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := &testJob{name: "low-stock-alert"}
	svc := newTestService(t, &fakeLock{held: true}, metrics.NewCronMetrics(reg), job)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var skipped float64
	for _, mf := range mfs {
		if mf.GetName() == "repairshop_cron_cycles_skipped_total" {
			skipped = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, skipped)
}

func TestRunJobByName(t *testing.T) {
	failing := &testJob{name: "outbox-retention", err: errors.New("boom")}
	other := &testJob{name: "low-stock-alert"}
	lock := &fakeLock{}
	svc := newTestService(t, lock, nil, other, failing)

	assert.Error(t, svc.RunJob(context.Background(), "outbox-retention"))
	assert.Equal(t, 1, failing.runs)
	assert.Zero(t, other.runs)
	assert.False(t, lock.held)

	assert.Error(t, svc.RunJob(context.Background(), "nope"))
}

func TestRegistryDropsNilAndCopies(t *testing.T) {
	registry := NewRegistry(&testJob{name: "a"}, nil, &testJob{name: "b"})
	jobs := registry.Jobs()
	require.Len(t, jobs, 2)

	jobs[0] = nil
	_, ok := registry.Lookup("a")
	assert.True(t, ok, "Jobs returns a copy")
}
