package utils

import (
	"sync"
	"time"
)

// Tracks client-side mutation metrics across the system
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount uint64
	errorCount   uint64

	submissionCount uint64
	confirmedCount  uint64
	rollbackCount   uint64
	toggleCount     uint64

	// Maps operation name to list of latencies in nanoseconds
	operationTimes map[string][]int64

	systemStartTime time.Time
}

// MetricsSnapshot is a point-in-time copy of the collector's counters.
type MetricsSnapshot struct {
	Requests    uint64
	Errors      uint64
	Submissions uint64
	Confirmed   uint64
	Rollbacks   uint64
	Toggles     uint64
	Uptime      time.Duration
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operationTimes:  make(map[string][]int64),
		systemStartTime: time.Now(),
	}
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.requestCount++
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
}

func (mc *MetricsCollector) IncrementSubmissions() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.submissionCount++
}

func (mc *MetricsCollector) IncrementConfirmed() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.confirmedCount++
}

func (mc *MetricsCollector) IncrementRollbacks() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.rollbackCount++
}

func (mc *MetricsCollector) IncrementToggles() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.toggleCount++
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.operationTimes[operationName]; !exists {
		mc.operationTimes[operationName] = make([]int64, 0)
	}
	mc.operationTimes[operationName] = append(
		mc.operationTimes[operationName],
		duration.Nanoseconds(),
	)
}

// AverageLatency returns the mean recorded latency for an operation, or 0
// when nothing has been recorded.
func (mc *MetricsCollector) AverageLatency(operationName string) time.Duration {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	samples := mc.operationTimes[operationName]
	if len(samples) == 0 {
		return 0
	}
	var total int64
	for _, ns := range samples {
		total += ns
	}
	return time.Duration(total / int64(len(samples)))
}

func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	return MetricsSnapshot{
		Requests:    mc.requestCount,
		Errors:      mc.errorCount,
		Submissions: mc.submissionCount,
		Confirmed:   mc.confirmedCount,
		Rollbacks:   mc.rollbackCount,
		Toggles:     mc.toggleCount,
		Uptime:      time.Since(mc.systemStartTime),
	}
}
