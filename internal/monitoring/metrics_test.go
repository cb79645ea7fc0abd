package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCollector_CountsAndMirrors(t *testing.T) {
	monitor := NewMonitor()
	mc := NewMetricsCollector(monitor)

	mc.BlocksCreated("generator", 3)
	mc.BlocksCreated("manual", 1)
	mc.RecipeUnscheduled("no_slot")
	mc.RecipeUnscheduled("no_slot")
	mc.ConflictRejected("machine")
	mc.ForcedAssignment()
	mc.GenerationFinished(0.02)

	families, err := mc.Registry().Gather()
	require.NoError(t, err)
	counters := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			if metric.GetCounter() == nil {
				continue
			}
			name := family.GetName()
			for _, label := range metric.GetLabel() {
				name += "/" + label.GetValue()
			}
			counters[name] = metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 3.0, counters["creamery_blocks_created_total/generator"])
	assert.Equal(t, 2.0, counters["creamery_recipes_unscheduled_total/no_slot"])
	assert.Equal(t, 1.0, counters["creamery_forced_assignments_total"])

	stats := monitor.GetMetrics()
	assert.Equal(t, 3.0, stats["blocks_created_generator"])
	assert.Equal(t, 2.0, stats["unscheduled_no_slot"])
	assert.Equal(t, 1.0, stats["conflicts_machine"])
	assert.Equal(t, 1.0, stats["generation_runs"])
}

func TestMetricsCollector_Handler(t *testing.T) {
	mc := NewMetricsCollector(nil)
	mc.RecordRequest(http.MethodGet, "/api/v1/plans/:id", http.StatusOK, 0.01)
	mc.ForcedAssignment()

	rec := httptest.NewRecorder()
	mc.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "creamery_forced_assignments_total 1")
	assert.Contains(t, body, `creamery_http_request_duration_seconds_count{method="GET",route="/api/v1/plans/:id",status="200"} 1`)
}
