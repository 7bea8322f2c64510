// Package metrics keeps in-memory timing statistics for archtrace's hot
// paths: trace recomputation, data loading, board rendering, assistant round
// trips and diagram export.
//
// Collection is on unless ARCHTRACE_METRICS=0. Typical use:
//
//	defer metrics.Timer(metrics.TraceRecompute)()
package metrics

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("ARCHTRACE_METRICS") != "0")
}

// Enabled reports whether measurements are recorded.
func Enabled() bool { return enabled.Load() }

// SetEnabled turns collection on or off.
func SetEnabled(e bool) { enabled.Store(e) }

// TimingMetric accumulates durations for one named operation. Safe for
// concurrent use.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64
	max   atomic.Int64
	min   atomic.Int64 // 0 until the first record
}

var (
	registryMu sync.Mutex
	registry   []*TimingMetric
)

// register adds a metric to the report, keeping declaration order.
func register(name string) *TimingMetric {
	m := newTimingMetric(name)
	registryMu.Lock()
	registry = append(registry, m)
	registryMu.Unlock()
	return m
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

// Record adds one measurement.
func (m *TimingMetric) Record(d time.Duration) {
	if !enabled.Load() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)

	for {
		old := m.max.Load()
		if ns <= old || m.max.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.min.Load()
		if (old != 0 && ns >= old) || m.min.CompareAndSwap(old, ns) {
			break
		}
	}
}

func (m *TimingMetric) Name() string { return m.name }
func (m *TimingMetric) Count() int64 { return m.count.Load() }
func (m *TimingMetric) MaxNs() int64 { return m.max.Load() }

// MinNs is 0 when nothing was recorded.
func (m *TimingMetric) MinNs() int64 { return m.min.Load() }

// AvgNs is 0 when nothing was recorded.
func (m *TimingMetric) AvgNs() int64 {
	n := m.count.Load()
	if n == 0 {
		return 0
	}
	return m.total.Load() / n
}

// Stats returns a snapshot in milliseconds.
func (m *TimingMetric) Stats() TimingStats {
	return TimingStats{
		Name:    m.name,
		Count:   m.count.Load(),
		TotalMs: ms(m.total.Load()),
		AvgMs:   ms(m.AvgNs()),
		MaxMs:   ms(m.max.Load()),
		MinMs:   ms(m.min.Load()),
	}
}

// Reset clears all measurements.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.total.Store(0)
	m.max.Store(0)
	m.min.Store(0)
}

func ms(ns int64) float64 { return float64(ns) / 1e6 }

// TimingStats is a point-in-time copy of a metric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts a measurement; call the returned func to record it.
func Timer(m *TimingMetric) func() {
	return TimerWithCallback(m, nil)
}

// TimerWithCallback is Timer that also hands the elapsed time to cb.
func TimerWithCallback(m *TimingMetric, cb func(time.Duration)) func() {
	if !enabled.Load() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		if cb != nil {
			cb(d)
		}
	}
}

var (
	TraceRecompute = register("trace_recompute")
	AssistantCall  = register("assistant_call")
	DiagramExport  = register("diagram_export")
	DataLoad       = register("data_load")
	UIRender       = register("ui_render")
)

// AllTimingMetrics returns the registered metrics in declaration order.
func AllTimingMetrics() []*TimingMetric {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]*TimingMetric, len(registry))
	copy(out, registry)
	return out
}

// ResetAll clears every registered metric.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
}

// AllTimingStats returns stats for the metrics that have data.
func AllTimingStats() []TimingStats {
	var stats []TimingStats
	for _, m := range AllTimingMetrics() {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// Report writes one line per metric with data, in registration order.
// Nothing is written when no metric has been recorded.
func Report(w io.Writer) error {
	for _, s := range AllTimingStats() {
		_, err := fmt.Fprintf(w, "%-16s count=%-5d avg=%8.3fms max=%8.3fms min=%8.3fms\n",
			s.Name, s.Count, s.AvgMs, s.MaxMs, s.MinMs)
		if err != nil {
			return err
		}
	}
	return nil
}
