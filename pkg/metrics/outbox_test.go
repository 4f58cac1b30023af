package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxMetricsRecordSettlement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.ObserveBatch(3, 90*time.Second)
	m.ObserveBatch(0, time.Hour)
	m.Settled("sale_completed", OutboxPublished)
	m.Settled("sale_completed", OutboxPublished)
	m.Settled("low_stock_detected", OutboxDeadLettered)
	m.ObservePublish("rs-sales-events", 20*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	events := family(mfs, "repairshop_outbox_events_total")
	require.NotNil(t, events)
	assert.Equal(t, 2.0, counterWith(events, map[string]string{"event_type": "sale_completed", "outcome": OutboxPublished}))
	assert.Equal(t, 1.0, counterWith(events, map[string]string{"event_type": "low_stock_detected", "outcome": OutboxDeadLettered}))

	batch := family(mfs, "repairshop_outbox_batch_rows")
	require.NotNil(t, batch)
	assert.EqualValues(t, 1, batch.GetMetric()[0].GetHistogram().GetSampleCount(), "empty batches are not recorded")

	lag := family(mfs, "repairshop_outbox_oldest_row_age_seconds")
	require.NotNil(t, lag)
	assert.Equal(t, 90.0, lag.GetMetric()[0].GetGauge().GetValue())
}

func TestNilOutboxMetricsAreNoops(t *testing.T) {
	m := NewOutboxMetrics(nil)
	assert.Nil(t, m)
	m.Settled("x", OutboxRetry)
	m.ObservePublish("t", time.Second)
	m.ObserveBatch(1, time.Second)
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCronMetrics(reg).SkippedCycle()
	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	res, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "repairshop_cron_cycles_skipped_total 1")

	res, err = http.Get(srv.URL + "/health/live")
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}
