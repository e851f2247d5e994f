package benchmarks

import (
	"slices"
	"sync"
	"testing"
	"time"
)

// Latencies coleta durações de várias goroutines e reporta percentis.
type Latencies struct {
	mu        sync.Mutex
	durations []time.Duration
}

func (l *Latencies) Record(d time.Duration) {
	l.mu.Lock()
	l.durations = append(l.durations, d)
	l.mu.Unlock()
}

func (l *Latencies) Percentile(p float64) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.durations) == 0 {
		return 0
	}
	sorted := slices.Clone(l.durations)
	slices.Sort(sorted)
	return sorted[int(float64(len(sorted)-1)*p)]
}

func (l *Latencies) Mean() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range l.durations {
		total += d
	}
	return total / time.Duration(len(l.durations))
}

func (l *Latencies) Max() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.durations) == 0 {
		return 0
	}
	return slices.Max(l.durations)
}

// Report anexa p50/p95/p99 ao resultado do benchmark.
func (l *Latencies) Report(b *testing.B) {
	b.ReportMetric(float64(l.Percentile(0.50).Microseconds()), "p50-µs")
	b.ReportMetric(float64(l.Percentile(0.95).Microseconds()), "p95-µs")
	b.ReportMetric(float64(l.Percentile(0.99).Microseconds()), "p99-µs")
}
