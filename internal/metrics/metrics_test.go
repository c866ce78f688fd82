package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/ragpipe/internal/apperr"
)

func TestMetrics_ObserveStage(t *testing.T) {
	m := New()
	m.ObserveStage(apperr.StageEmbed, time.Now(), nil)
	m.ObserveStage(apperr.StageEmbed, time.Now(), apperr.New(apperr.KindTokenLimitExceeded, "x", "too long"))
	m.ObserveStage(apperr.StageSearch, time.Now(), apperr.New(apperr.KindCollectionNotFound, "x", "missing"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageErrors.WithLabelValues("embed", "token_limit_exceeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageErrors.WithLabelValues("search", "collection_not_found")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))

	m.AddVectors(3)
	m.AddVectors(0)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.vectorsAdded))
}

func TestMetrics_nilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveStage(apperr.StageChunk, time.Now(), nil)
	m.AddVectors(1)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.AddVectors(2)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rag_vectors_added_total 2")
}
