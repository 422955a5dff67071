package buckets

import (
	"math"
	"sort"
	"time"

	"github.com/coreflux/statsaggd/internal/metric"
)

// processingTimeMetric is the name of the self-timing counter Process emits
// into the very Buckets it just derived statistics from.
const processingTimeMetric = "statsd.processing_time"

// Process derives timer summary statistics into timer_data and appends one
// statsd.processing_time counter sample recording how long derivation took.
// It is idempotent within a flush cycle (repeated calls without an
// intervening Add recompute identical derived fields, modulo the second
// processing_time sample each call also injects) and must be called at
// most once per flush, immediately before the backend fan-out.
func (b *Buckets) Process() {
	start := time.Now()

	series := b.timersSnapshotForProcess()
	data := make(map[string]float64, len(series)*10)

	for name, raw := range series {
		v := filterFinite(raw)
		if len(v) == 0 {
			continue
		}
		sort.Float64s(v)

		n := float64(len(v))
		var sum float64
		for _, x := range v {
			sum += x
		}
		mean := sum / n

		var sumSq float64
		for _, x := range v {
			d := x - mean
			sumSq += d * d
		}
		stddev := math.Sqrt(sumSq / n)

		data[name+".min"] = v[0]
		data[name+".max"] = v[len(v)-1]
		data[name+".count"] = n
		data[name+".count_ps"] = n / b.flushIntervalSeconds
		data[name+".mean"] = mean
		data[name+".median"] = percentile(v, 0.5)
		data[name+".stddev"] = stddev
		data[name+".upper_90"] = percentile(v, 0.90)
		data[name+".upper_95"] = percentile(v, 0.95)
		data[name+".upper_99"] = percentile(v, 0.99)
	}

	b.setTimerData(data)

	elapsed := time.Since(start)
	b.Add(metric.NewCounter(processingTimeMetric, float64(elapsed.Milliseconds()), 1.0))
}

// percentile implements the canonical (non-interpolating) percentile
// contract: index = floor(n*tile); average [index-1, index] when n is
// even, else return v[index]. v must already be sorted ascending. This is
// preserved exactly for wire/derivation compatibility — it is not
// nearest-rank and not linear interpolation, and must not be "fixed".
func percentile(v []float64, tile float64) float64 {
	n := float64(len(v))
	index := int(math.Floor(n * tile))
	if len(v)%2 == 0 {
		return (v[index-1] + v[index]) / 2.0
	}
	return v[index]
}

// filterFinite drops NaN/Inf samples before sorting. The processor is only
// ever fed values appended by Buckets.Add, but a malformed upstream parser
// or a corrupted peer batch could in principle inject a NaN timer sample;
// dropping it here keeps percentile/mean/stddev well-defined rather than
// propagating NaN through the whole derived table.
func filterFinite(v []float64) []float64 {
	out := make([]float64, 0, len(v))
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}
