package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RecordBase("mass", true)
	m.RecordBase("mass", true)
	m.RecordBase("volume", false)
	m.RecordFraction("infeasible")
	m.RecordCacheLookup("base", "hit")
	m.RecordPOP("full", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BaseComputations.WithLabelValues("mass", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BaseComputations.WithLabelValues("volume", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PatientFractions.WithLabelValues("infeasible")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("base", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.POPDocuments.WithLabelValues("full", "ok")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordBase("mass", true)
		m.RecordFraction("ok")
		m.RecordCacheLookup("base", "miss")
		m.RecordPOP("base", "ok")
		m.RecordHTTPRequest("/health", http.MethodGet, 200, time.Millisecond)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("/dilutio/api/v1/base/compute", http.MethodPost, 200, 5*time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "dilutio_http_request_duration_seconds")
	assert.Contains(t, string(body), `route="/dilutio/api/v1/base/compute"`)
}
