package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_GetMetrics(t *testing.T) {
	m := NewMonitor()
	m.RecordMetric("test_metric", 42)

	metrics := m.GetMetrics()

	value, exists := metrics["test_metric"]
	require.True(t, exists)
	assert.Equal(t, 42, value)

	_, exists = metrics["uptime_seconds"]
	assert.True(t, exists)
}

func TestMonitor_IncrementMetric(t *testing.T) {
	m := NewMonitor()

	m.IncrementMetric("blocks_created_manual", 1)
	m.IncrementMetric("blocks_created_manual", 2)

	value, exists := m.GetMetric("blocks_created_manual")
	require.True(t, exists)
	assert.Equal(t, 3.0, value)
}

func TestMonitor_RecordGeneration(t *testing.T) {
	m := NewMonitor()

	m.RecordGeneration("shop", 7, 6, 1)

	metrics := m.GetMetrics()
	assert.Equal(t, 6, metrics["shop_plan_7_blocks_created"])
	assert.Equal(t, 1, metrics["shop_plan_7_recipes_unscheduled"])
	_, exists := metrics["shop_plan_7_last_generated"]
	assert.True(t, exists)
}
