package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCall(t *testing.T) {
	m := New()
	m.ObserveCall("yotpo.https.loyalty.api", "OK", 20*time.Millisecond)
	m.ObserveCall("yotpo.https.loyalty.api", "OK", 10*time.Millisecond)
	m.ObserveCall("yotpo.https.loyalty.api", "ERROR", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.serviceCalls.WithLabelValues("yotpo.https.loyalty.api", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.serviceCalls.WithLabelValues("yotpo.https.loyalty.api", "ERROR")))
}

func TestJobRunsAndExports(t *testing.T) {
	m := New()
	m.ObserveJobRun("ExportOrders", "ERROR")
	m.AddExportedOrders("reviews", 3)
	m.AddExportedOrders("reviews", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("ExportOrders", "ERROR")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.exportedOrders.WithLabelValues("reviews")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("svc", "OK", time.Second)
		m.ObserveJobRun("job", "OK")
		m.AddExportedOrders("reviews", 1)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveJobRun("ExportOrders", "OK")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), MetricJobRunsTotal)
}
