package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New("hotel_test", reg), reg
}

func TestMetrics_Middleware(t *testing.T) {
	m, _ := newTestMetrics(t)

	r := gin.New()
	r.Use(m.Middleware("/metrics"))
	r.GET("/api/v1/rooms/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", m.Handler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rooms/1", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/rooms/:id", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpRequestsInFlight))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hotel_test_http_requests_total")
}

func TestMetrics_DomainCounters(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordReservation("check_in", "CHECKED_IN")
	m.RecordReservation("check_in", "CHECKED_IN")
	m.RecordTransaction("REFUND", "SUCCESS")
	m.RecordVersionConflict("payment_success")
	m.AddExpired(4)
	m.AddExpired(0)
	m.RecordCache("statistics", true)
	m.RecordCache("statistics", false)
	m.RecordEvent("mqtt", errors.New("offline"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reservationsTotal.WithLabelValues("check_in", "CHECKED_IN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactionsTotal.WithLabelValues("REFUND", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.versionConflicts.WithLabelValues("payment_success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.expiredReservations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequestsTotal.WithLabelValues("statistics", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("mqtt", "error")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordReservation("create", "PENDING")
		m.RecordTransaction("PAYMENT", "FAILED")
		m.RecordVersionConflict("create")
		m.AddExpired(1)
		m.RecordCache("statistics", true)
		m.RecordEvent("sms", nil)
	})
}
