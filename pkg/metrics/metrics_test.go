package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/platter/pkg/metrics"
)

func TestObserveAPICountsTransportFailuresAsError(t *testing.T) {
	before := testutil.ToFloat64(metrics.APIRequestTotal.WithLabelValues("GET", "/health", "error"))
	metrics.ObserveAPI("GET", "/health", 0, time.Now())
	after := testutil.ToFloat64(metrics.APIRequestTotal.WithLabelValues("GET", "/health", "error"))
	assert.Equal(t, before+1, after)
}

func TestHandlerExposesPlatterMetrics(t *testing.T) {
	metrics.PollFetches.WithLabelValues("delivery", "applied").Inc()

	rec := httptest.NewRecorder()
	metrics.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "platter_poll_fetches_total")
}
