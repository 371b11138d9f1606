package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObserveStageDuration("pages", 150*time.Millisecond)
	pr.ObserveBuildDuration(500 * time.Millisecond)
	pr.IncStageResult("pages", ResultWarning)
	pr.IncBuildOutcome(BuildOutcomeWarning)
	pr.AddStageItems("pages", 3, 1)
	pr.SetIndexedFiles("post", 7)
	pr.ObserveCommandDuration(20*time.Millisecond, false)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"sitebuilder_stage_duration_seconds",
		"sitebuilder_build_duration_seconds",
		"sitebuilder_stage_results_total",
		"sitebuilder_build_outcomes_total",
		"sitebuilder_stage_items_total",
		"sitebuilder_indexed_files",
		"sitebuilder_command_duration_seconds",
	} {
		require.True(t, names[want], want)
	}
}

func TestPrometheusRecorder_NilSafe(t *testing.T) {
	var pr *PrometheusRecorder
	pr.IncStageResult("css", ResultSuccess)
	pr.AddStageItems("css", 1, 0)
}

func TestHTTPHandler(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncBuildOutcome(BuildOutcomeSuccess)

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `sitebuilder_build_outcomes_total{outcome="success"} 1`)
}

func TestTestRecorderCounts(t *testing.T) {
	r := newTestRecorder()
	r.ObserveStageDuration("css", time.Millisecond)
	r.IncStageResult("css", ResultSuccess)
	r.IncStageResult("css", ResultSuccess)
	r.IncBuildOutcome(BuildOutcomeSuccess)
	require.Equal(t, 1, r.stageDurations["css"])
	require.Equal(t, 2, r.stageResults["css"][ResultSuccess])
	require.Equal(t, 1, r.buildOutcomes[BuildOutcomeSuccess])
}

func TestNewRegistryIncludesRuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	NewPrometheusRecorder(reg).IncBuildOutcome(BuildOutcomeWarning)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["go_goroutines"])
	require.True(t, names["sitebuilder_build_outcomes_total"])
}
