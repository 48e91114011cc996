package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"wisdom-core/internal/domain/entity"
	"wisdom-core/internal/retry"
)

func TestMetrics_Resolver(t *testing.T) {
	m := New()
	m.ObserveResolution(entity.SourceFallback, "network")
	m.ObserveResolution(entity.SourceFallback, "network")
	m.ObserveResolution(entity.SourceRemote, "")
	m.ObserveTier("remote", 100*time.Millisecond, entity.NewServiceError(entity.FailureAuth, "x", 401, errors.New("no")))
	m.ObserveTier("direct", time.Second, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.resolutions.WithLabelValues("fallback", "network")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues("remote", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tierFailures.WithLabelValues("remote", "auth")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.tierFailures.WithLabelValues("direct", "upstream")))
}

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveSessionState("id", retry.StateExhausted)
	m.ObservePayment("paypal", "success")
	m.ObserveQuota("exceeded")
	m.ObserveKeyRefresh(errors.New("x"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionStates.WithLabelValues("exhausted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.payments.WithLabelValues("paypal", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quota.WithLabelValues("exceeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.keyRefreshes.WithLabelValues("false")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObservePayment("razorpay", "cancelled")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `wisdom_payments_callbacks_total{outcome="cancelled",provider="razorpay"} 1`)
}
