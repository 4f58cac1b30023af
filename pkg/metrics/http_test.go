package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsLabelsByRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe(http.MethodGet, "/api/v1/customers/{customerId}", http.StatusOK, 5*time.Millisecond)
	m.Observe(http.MethodGet, "/api/v1/customers/{customerId}", http.StatusOK, 7*time.Millisecond)
	m.Observe(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	requests := family(mfs, "repairshop_http_requests_total")
	require.NotNil(t, requests)
	counts := map[string]float64{}
	for _, metric := range requests.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "route" {
				counts[label.GetValue()] += metric.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, 2.0, counts["/api/v1/customers/{customerId}"])
	assert.Equal(t, 1.0, counts["unmatched"])
}

func TestNilHTTPMetricsAreNoops(t *testing.T) {
	var m *HTTPMetrics
	m.Observe(http.MethodGet, "/", http.StatusOK, time.Second)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", http.StatusOK, time.Second)
}
