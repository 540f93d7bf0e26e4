package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordsGraphMetrics(t *testing.T) {
	c := NewCollector("test")

	c.RecordRelationEdit("add", nil)
	c.RecordRelationEdit("add", errors.New("boom"))
	c.RecordRemoval(3, false)
	c.RecordRemoval(0, true)
	c.RecordEventPublish("removed", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.RelationEdits.WithLabelValues("add", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RelationEdits.WithLabelValues("add", OutcomeFailure)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.NodesRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RemovalsRefused))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EventsPublished.WithLabelValues("removed", OutcomeSuccess)))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)
		c.RecordRelationEdit("remove", nil)
		c.RecordRemoval(1, false)
		c.RecordEventPublish("added", nil)
	})
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector("test")
	c.RecordHTTPRequest("GET", "/api/v2/nodes", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",route="/api/v2/nodes",status="200"} 1`)
}
