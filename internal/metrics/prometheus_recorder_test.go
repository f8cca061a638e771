package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("discover", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("discover", ResultSuccess)
	pr.IncBuildOutcome(BuildOutcomeSuccess)
	pr.IncEntries("page", "new")
	pr.IncEntries("page", "new")
	pr.IncPostWrite("insert")
	pr.SetIndexedPosts(3)
	pr.IncRebuild("watch")

	assert.InDelta(t, 2, testutil.ToFloat64(pr.entries.WithLabelValues("page", "new")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.postWrites.WithLabelValues("insert")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.indexedPosts), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncBuildOutcome(BuildOutcomeFailed)

	rec := httptest.NewRecorder()
	HTTPHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sitebuilder_build_outcomes_total{outcome="failed"} 1`)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveBuildDuration(time.Second)
	r.IncBuildOutcome(BuildOutcomeCanceled)
	r.IncEntries("asset", "changed")
}
