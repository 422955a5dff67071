// Package buckets holds the single in-memory aggregation state of the
// daemon (Buckets) and the derivation of timer summary statistics
// (Process). Buckets is owned and mutated exclusively by the event loop;
// every other component only ever produces Metric values for it to
// consume.
package buckets

import (
	"sync"
	"time"

	"github.com/coreflux/statsaggd/internal/metric"
)

// Buckets is the running aggregation state for one flush window.
//
// counters and timers retain their keys across reset so that a backend
// which saw a name once continues to see it (at zero/empty) on subsequent
// flushes, matching etsy/statsd-compatible behavior. Gauges keep their
// last value across reset unless deleteGaugesAfterFlush is set.
type Buckets struct {
	mu sync.Mutex

	counters map[string]float64
	gauges   map[string]float64
	timers   map[string][]float64
	timerD   map[string]float64

	badMessages   uint64
	totalMessages uint64

	serverStartTime time.Time
	lastMessage     time.Time

	flushIntervalSeconds float64
	deleteGaugesAfter    bool
}

// New creates an empty Buckets. flushIntervalSeconds feeds the processor's
// count_ps derivation; deleteGaugesAfterFlush controls whether gauges
// survive a reset.
func New(flushIntervalSeconds float64, deleteGaugesAfterFlush bool) *Buckets {
	now := time.Now()
	return &Buckets{
		counters:             make(map[string]float64),
		gauges:               make(map[string]float64),
		timers:               make(map[string][]float64),
		timerD:               make(map[string]float64),
		serverStartTime:      now,
		lastMessage:          now,
		flushIntervalSeconds: flushIntervalSeconds,
		deleteGaugesAfter:    deleteGaugesAfterFlush,
	}
}

// Add ingests one Metric, mutating the corresponding running aggregate.
// Add must only ever be called from the event loop goroutine; the mutex
// below is taken by every accessor as well, so each call sees a consistent
// map, but it does not serialize multi-call sequences such as a flush.
func (b *Buckets) Add(m metric.Metric) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch m.Kind {
	case metric.Counter:
		rate := m.Rate
		if rate <= 0 || rate > 1 {
			rate = 1
		}
		b.counters[m.Name] += m.Value * (1.0 / rate)
	case metric.Gauge:
		b.gauges[m.Name] = m.Value
	case metric.Timer:
		b.timers[m.Name] = append(b.timers[m.Name], m.Value)
	}

	b.totalMessages++
	b.lastMessage = time.Now()
}

// AddBadMessage records one unparseable datagram/line.
func (b *Buckets) AddBadMessage() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalMessages++
	b.badMessages++
}

// Reset zeroes counters (keys retained), empties timer series (keys
// retained), clears bad/total message counts, and — if configured —
// clears gauges. server_start_time is never touched.
func (b *Buckets) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for k := range b.counters {
		b.counters[k] = 0
	}
	for k := range b.timers {
		b.timers[k] = nil
	}
	if b.deleteGaugesAfter {
		b.gauges = make(map[string]float64)
	}
	b.badMessages = 0
	b.totalMessages = 0
}

// Counters returns a snapshot copy of the counter map.
func (b *Buckets) Counters() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyF64Map(b.counters)
}

// Gauges returns a snapshot copy of the gauge map.
func (b *Buckets) Gauges() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyF64Map(b.gauges)
}

// Timers returns a snapshot copy of the timer series map.
func (b *Buckets) Timers() map[string][]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string][]float64, len(b.timers))
	for k, v := range b.timers {
		cp := make([]float64, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// TimerData returns a snapshot copy of the derived timer statistics,
// populated by the most recent call to Process.
func (b *Buckets) TimerData() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyF64Map(b.timerD)
}

// BadMessages returns the count of unparseable input seen this window.
func (b *Buckets) BadMessages() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.badMessages
}

// TotalMessages returns the count of all input (good + bad) seen this window.
func (b *Buckets) TotalMessages() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalMessages
}

// StartTime returns the immutable process/daemon start time.
func (b *Buckets) StartTime() time.Time {
	return b.serverStartTime
}

// LastMessage returns the wall-clock time of the most recent Add.
func (b *Buckets) LastMessage() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastMessage
}

// FlushInterval returns the configured flush interval in seconds.
func (b *Buckets) FlushInterval() float64 {
	return b.flushIntervalSeconds
}

func copyF64Map(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// setTimerData replaces the derived-statistics table. Only Process calls this.
func (b *Buckets) setTimerData(data map[string]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timerD = data
}

// timersSnapshotForProcess returns the raw (uncopied-per-value) timer
// series under lock, for Process's exclusive internal use.
func (b *Buckets) timersSnapshotForProcess() map[string][]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string][]float64, len(b.timers))
	for k, v := range b.timers {
		cp := make([]float64, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}
