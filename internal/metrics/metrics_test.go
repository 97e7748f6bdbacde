package metrics

import (
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
	m.ChunksIngested(3)
	m.ChunksIngested(2)
	m.Evaluated(true, false)
	m.Evaluated(false, true)
	m.Evaluated(false, false)
	m.OrphanSkipped()
	m.SetIndexSize(42)
	m.SearchServed(time.Millisecond)
	m.HTTPRequest(http.MethodGet, "/health", 200)

	assert.Equal(t, 5.0, testutil.ToFloat64(m.chunksIngested))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("true")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.saturations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.orphansSkipped))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.indexSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.searches))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ChunksIngested(1)
		m.BatchFailed()
		m.SetIndexSize(1)
		m.IndexRebuilt(time.Second)
		m.SearchServed(time.Second)
		m.OrphanSkipped()
		m.Evaluated(true, true)
		m.HTTPRequest("GET", "/", 200)
	})
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ChunksIngested(1)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "zkrag_chunks_ingested_total 1")
}
