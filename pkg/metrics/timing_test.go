package metrics

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimingMetric_Record(t *testing.T) {
	m := newTimingMetric("test")
	m.Record(2 * time.Millisecond)
	m.Record(4 * time.Millisecond)
	m.Record(6 * time.Millisecond)

	if m.Count() != 3 {
		t.Errorf("Expected count 3, got %d", m.Count())
	}
	if m.MinNs() != int64(2*time.Millisecond) {
		t.Errorf("Expected min 2ms, got %d", m.MinNs())
	}
	if m.MaxNs() != int64(6*time.Millisecond) {
		t.Errorf("Expected max 6ms, got %d", m.MaxNs())
	}
	if m.AvgNs() != int64(4*time.Millisecond) {
		t.Errorf("Expected avg 4ms, got %d", m.AvgNs())
	}

	s := m.Stats()
	if s.Name != "test" || s.AvgMs != 4 || s.TotalMs != 12 {
		t.Errorf("Unexpected stats: %+v", s)
	}

	m.Reset()
	if m.Count() != 0 || m.AvgNs() != 0 || m.MinNs() != 0 {
		t.Error("Expected Reset to clear all values")
	}
}

func TestTimingMetric_ConcurrentRecord(t *testing.T) {
	m := newTimingMetric("concurrent")

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(d time.Duration) {
			defer wg.Done()
			m.Record(d)
		}(time.Duration(i) * time.Microsecond)
	}
	wg.Wait()

	if m.Count() != 50 {
		t.Errorf("Expected 50 records, got %d", m.Count())
	}
	if m.MinNs() != int64(time.Microsecond) || m.MaxNs() != int64(50*time.Microsecond) {
		t.Errorf("Expected bounds 1µs..50µs, got %d..%d", m.MinNs(), m.MaxNs())
	}
}

func TestDisabledRecordsNothing(t *testing.T) {
	prev := Enabled()
	SetEnabled(false)
	defer SetEnabled(prev)

	m := newTimingMetric("off")
	Timer(m)()
	m.Record(time.Millisecond)
	if m.Count() != 0 {
		t.Errorf("Expected nothing recorded while disabled, got %d", m.Count())
	}
}

func TestTimerWithCallback(t *testing.T) {
	prev := Enabled()
	SetEnabled(true)
	defer SetEnabled(prev)

	m := newTimingMetric("cb")
	var got time.Duration
	stop := TimerWithCallback(m, func(d time.Duration) { got = d })
	time.Sleep(time.Millisecond)
	stop()

	if m.Count() != 1 {
		t.Errorf("Expected one record, got %d", m.Count())
	}
	if got < time.Millisecond {
		t.Errorf("Expected callback with elapsed time, got %v", got)
	}
	if Timer(nil) == nil {
		t.Error("Expected a no-op stop func for a nil metric")
	}
}

func TestReport(t *testing.T) {
	prev := Enabled()
	SetEnabled(true)
	defer SetEnabled(prev)
	ResetAll()
	defer ResetAll()

	var empty bytes.Buffer
	if err := Report(&empty); err != nil || empty.Len() != 0 {
		t.Errorf("Expected empty report, got %q (%v)", empty.String(), err)
	}

	TraceRecompute.Record(3 * time.Millisecond)
	DataLoad.Record(time.Millisecond)

	var buf bytes.Buffer
	if err := Report(&buf); err != nil {
		t.Fatalf("Report: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "trace_recompute") || !strings.HasPrefix(lines[1], "data_load") {
		t.Errorf("Expected registration order, got:\n%s", buf.String())
	}
	if !strings.Contains(lines[0], "count=1") || !strings.Contains(lines[0], "3.000ms") {
		t.Errorf("Unexpected line %q", lines[0])
	}
}
