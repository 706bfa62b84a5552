// metrics.go - Metrics collection for the ledger.

package chain

import (
	"sync"
	"time"
)

// Predefined metric names.
const (
	MetricSubmittedTransactions = "submitted_transactions"
	MetricRejectedTransactions  = "rejected_transactions"
	MetricBlocksMined           = "blocks_mined"
	MetricMiningCancelled       = "mining_cancelled"
	MetricPendingTransactions   = "pending_transactions"
	MetricMiningSeconds         = "mining_seconds"
)

// TimingStats summarizes recorded durations for one metric.
type TimingStats struct {
	Count int64   `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
}

// MetricsSummary is a point-in-time snapshot of every metric.
type MetricsSummary struct {
	Counters map[string]int64       `json:"counters"`
	Gauges   map[string]float64     `json:"gauges"`
	Timings  map[string]TimingStats `json:"timings"`
}

// MetricsCollector gathers counters, gauges, and duration samples from the
// state manager. Safe for concurrent use.
type MetricsCollector struct {
	mu        sync.RWMutex
	counters  map[string]int64
	gauges    map[string]float64
	durations map[string][]float64
}

// NewMetricsCollector creates an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:  make(map[string]int64),
		gauges:    make(map[string]float64),
		durations: make(map[string][]float64),
	}
}

// IncrementCounter adds one to a counter metric.
func (mc *MetricsCollector) IncrementCounter(name string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[name]++
}

// Counter reads a counter metric.
func (mc *MetricsCollector) Counter(name string) int64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.counters[name]
}

// SetGauge sets a gauge metric value.
func (mc *MetricsCollector) SetGauge(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.gauges[name] = value
}

// Gauge reads a gauge metric.
func (mc *MetricsCollector) Gauge(name string) float64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.gauges[name]
}

// RecordDuration records one duration sample in seconds.
func (mc *MetricsCollector) RecordDuration(name string, d time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	samples := append(mc.durations[name], d.Seconds())
	// Keep only the last 1000 samples for memory efficiency.
	if len(samples) > 1000 {
		samples = samples[len(samples)-1000:]
	}
	mc.durations[name] = samples
}

// Summary returns a snapshot of all collected metrics.
func (mc *MetricsCollector) Summary() MetricsSummary {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	out := MetricsSummary{
		Counters: make(map[string]int64, len(mc.counters)),
		Gauges:   make(map[string]float64, len(mc.gauges)),
		Timings:  make(map[string]TimingStats, len(mc.durations)),
	}
	for name, v := range mc.counters {
		out.Counters[name] = v
	}
	for name, v := range mc.gauges {
		out.Gauges[name] = v
	}
	for name, samples := range mc.durations {
		if len(samples) == 0 {
			continue
		}
		stats := TimingStats{
			Count: int64(len(samples)),
			Min:   samples[0],
			Max:   samples[0],
		}
		var sum float64
		for _, s := range samples {
			if s < stats.Min {
				stats.Min = s
			}
			if s > stats.Max {
				stats.Max = s
			}
			sum += s
		}
		stats.Avg = sum / float64(len(samples))
		out.Timings[name] = stats
	}
	return out
}

// Reset clears all metrics.
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters = make(map[string]int64)
	mc.gauges = make(map[string]float64)
	mc.durations = make(map[string][]float64)
}
