// Package metric defines the immutable sample type that flows from the
// ingest parser, the peer decoder and the event loop into Buckets.
package metric

import "fmt"

// Kind tags which aggregation semantics a Metric carries.
type Kind int

const (
	// Counter is a monotonic additive metric. Rate rescales the
	// contribution at ingest: value * (1/Rate).
	Counter Kind = iota
	// Gauge is a last-write-wins scalar.
	Gauge
	// Timer is a single observation appended to a per-name series.
	Timer
)

func (k Kind) String() string {
	switch k {
	case Counter:
		return "counter"
	case Gauge:
		return "gauge"
	case Timer:
		return "timer"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Metric is a single immutable sample.
type Metric struct {
	Name  string
	Value float64
	Kind  Kind
	// Rate is only meaningful for Counter; it must be in (0, 1]. A decoded
	// peer batch always rehydrates Counter samples with Rate == 1.0 since
	// the sending node already applied sampling before encoding.
	Rate float64
}

// NewCounter builds a sampled counter Metric. Rate must be in (0, 1].
func NewCounter(name string, value, rate float64) Metric {
	return Metric{Name: name, Value: value, Kind: Counter, Rate: rate}
}

// NewGauge builds a Gauge Metric.
func NewGauge(name string, value float64) Metric {
	return Metric{Name: name, Value: value, Kind: Gauge}
}

// NewTimer builds a Timer Metric.
func NewTimer(name string, value float64) Metric {
	return Metric{Name: name, Value: value, Kind: Timer}
}
