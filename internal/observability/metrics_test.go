package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordDomainCounters(t *testing.T) {
	m := NewMetrics()
	m.MessageAppended("user")
	m.MessageAppended("user")
	m.CreditsMoved("debit", 3)
	m.PollHint("hit")

	require.Equal(t, float64(2), testutil.ToFloat64(m.messages.WithLabelValues("user")))
	require.Equal(t, float64(3), testutil.ToFloat64(m.credits.WithLabelValues("debit")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.pollHints.WithLabelValues("hit")))
}

func TestMetricsHandlerExposesRequests(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/sessions", "POST", 201, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `http_requests_total{method="POST",path="/sessions",status="201"} 1`))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.MessageAppended("user")
		m.PollHint("miss")
	})
}
