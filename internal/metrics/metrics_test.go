package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		HelixRequestsTotal,
		HelixRequestDuration,
		HelixRetriesTotal,
		RateLimitWaitSeconds,
		TokenRefreshesTotal,
		CollectionCreatorsTotal,
		CollectionPhaseErrorsTotal,
	}

	for _, c := range collectors {
		desc := make(chan *prometheus.Desc, 1)
		c.Describe(desc)
		close(desc)

		require.NotNil(t, <-desc, "metric should have a valid descriptor")
	}
}

func TestCounterMetrics(t *testing.T) {
	tests := []struct {
		name   string
		vec    *prometheus.CounterVec
		labels []string
	}{
		{name: "requests", vec: HelixRequestsTotal, labels: []string{"/streams", "200"}},
		{name: "retries", vec: HelixRetriesTotal, labels: []string{"throttled"}},
		{name: "token refreshes", vec: TokenRefreshesTotal, labels: []string{"success"}},
		{name: "creators", vec: CollectionCreatorsTotal, labels: []string{"live_sweep"}},
		{name: "phase errors", vec: CollectionPhaseErrorsTotal, labels: []string{"offline_sweep"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.vec.WithLabelValues(tt.labels...)
			before := testutil.ToFloat64(c)
			c.Inc()
			assert.Equal(t, before+1, testutil.ToFloat64(c))
		})
	}
}

func TestHistogramMetrics(t *testing.T) {
	HelixRequestDuration.WithLabelValues("/users").Observe(0.2)
	RateLimitWaitSeconds.Observe(1.5)

	assert.Equal(t, 1, testutil.CollectAndCount(HelixRequestDuration, "helix_request_duration_seconds"))
	assert.Equal(t, 1, testutil.CollectAndCount(RateLimitWaitSeconds, "ratelimit_wait_seconds"))
}
