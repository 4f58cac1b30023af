package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutMetricsRecordOutcomesAndRevenue(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCheckoutMetrics(reg)

	m.ObserveAttempt(OutcomeCompleted, 40*time.Millisecond)
	m.ObserveAttempt(OutcomeRejected, time.Millisecond)
	m.ObserveSale("cash", decimal.RequireFromString("25.00"), 3)
	m.ObserveSale("cash", decimal.RequireFromString("10.50"), 1)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	attempts := family(mfs, "repairshop_checkout_attempts_total")
	require.NotNil(t, attempts)
	assert.Equal(t, 1.0, counterWith(attempts, map[string]string{"outcome": OutcomeCompleted}))
	assert.Equal(t, 1.0, counterWith(attempts, map[string]string{"outcome": OutcomeRejected}))

	revenue := family(mfs, "repairshop_checkout_revenue_total")
	require.NotNil(t, revenue)
	assert.InDelta(t, 35.5, counterWith(revenue, map[string]string{"payment_type": "cash"}), 0.0001)

	items := family(mfs, "repairshop_checkout_items_sold_total")
	require.NotNil(t, items)
	assert.Equal(t, 4.0, items.GetMetric()[0].GetCounter().GetValue())
}

func TestNilCheckoutMetricsAreNoops(t *testing.T) {
	var m *CheckoutMetrics
	m.ObserveAttempt(OutcomeFailed, time.Second)
	m.ObserveSale("card", decimal.NewFromInt(1), 1)

	NewCheckoutMetrics(nil).ObserveAttempt(OutcomeFailed, time.Second)
}
