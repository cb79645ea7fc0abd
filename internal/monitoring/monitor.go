package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor keeps an in-process snapshot of scheduling activity for the stats endpoint
type Monitor struct {
	metrics      map[string]interface{}
	metricsMutex sync.RWMutex
	startTime    time.Time
}

// NewMonitor creates a new monitoring instance
func NewMonitor() *Monitor {
	return &Monitor{
		metrics:   make(map[string]interface{}),
		startTime: time.Now(),
	}
}

// RecordMetric records a metric value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics[name] = value
}

// IncrementMetric adds delta to a numeric metric, starting from zero
func (m *Monitor) IncrementMetric(name string, delta float64) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	current, _ := m.metrics[name].(float64)
	m.metrics[name] = current + delta
}

// GetMetric returns a specific metric value
func (m *Monitor) GetMetric(name string) (interface{}, bool) {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()
	value, exists := m.metrics[name]
	return value, exists
}

// GetMetrics returns all current metrics
func (m *Monitor) GetMetrics() map[string]interface{} {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()

	// copy so callers can range without holding the lock
	metrics := make(map[string]interface{}, len(m.metrics))
	for k, v := range m.metrics {
		metrics[k] = v
	}

	metrics["uptime_seconds"] = time.Since(m.startTime).Seconds()

	return metrics
}

// RecordGeneration stores the outcome of the latest generation run for a plan
func (m *Monitor) RecordGeneration(owner string, planID uint, created, unscheduled int) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()

	prefix := fmt.Sprintf("%s_plan_%d_", owner, planID)
	m.metrics[prefix+"blocks_created"] = created
	m.metrics[prefix+"recipes_unscheduled"] = unscheduled
	m.metrics[prefix+"last_generated"] = time.Now().Format(time.RFC3339)
}
