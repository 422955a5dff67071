package buckets

import (
	"testing"

	"github.com/coreflux/statsaggd/internal/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var timerSamples = []float64{
	13.1, 33.7, 34.7, 3.4, 1.4, 0.7, 5.6, 1.4, 24.5, 0.7,
	5.6, 9.4, 0.7, 3.6, 6.7, 6.3, 4.3, 6.1, 0.7, 3.7,
	3.4, 1.4, 0.7, 5.6, 1.4, 24.5, 0.7, 5.6, 9.4, 0.7,
	3.6, 6.7, 6.3, 4.3, 6.1, 0.7, 3.7, 12.1,
}

func makeTimerBuckets() *Buckets {
	b := New(10, false)
	for _, v := range timerSamples {
		b.Add(metric.NewTimer("some.timer", v))
	}
	return b
}

func assertClose(t *testing.T, expected float64, data map[string]float64, key string) {
	t.Helper()
	v, ok := data[key]
	require.True(t, ok, "missing %s", key)
	assert.InDelta(t, expected, v, 0.001, "%s", key)
}

func TestProcessTimerStatistics(t *testing.T) {
	b := makeTimerBuckets()
	b.Process()

	data := b.TimerData()
	assertClose(t, 0.7, data, "some.timer.min")
	assertClose(t, 34.7, data, "some.timer.max")
	assertClose(t, 38.0, data, "some.timer.count")
	assertClose(t, 6.926, data, "some.timer.mean")
	assertClose(t, 4.300, data, "some.timer.median")
	assertClose(t, 8.439, data, "some.timer.stddev")
	assertClose(t, 18.800, data, "some.timer.upper_90")
	assertClose(t, 29.100, data, "some.timer.upper_95")
	assertClose(t, 34.200, data, "some.timer.upper_99")
}

func TestProcessEmitsProcessingTimeCounter(t *testing.T) {
	b := makeTimerBuckets()
	b.Process()
	assert.Contains(t, b.Counters(), processingTimeMetric)
}

// TestProcessIdempotence covers TP5: two Process calls without an
// intervening Add yield equal derived timer fields (the second call also
// adds a second processing_time sample, which this test ignores by only
// comparing timer_data).
func TestProcessIdempotence(t *testing.T) {
	b := makeTimerBuckets()
	b.Process()
	first := b.TimerData()

	b.Process()
	second := b.TimerData()

	assert.Equal(t, first, second)
}

// TestPercentileVector38 is the canonical n=38 reference vector (TP9).
func TestPercentileVector38(t *testing.T) {
	b := makeTimerBuckets()
	b.Process()
	data := b.TimerData()
	for _, tc := range []struct {
		key      string
		expected float64
	}{
		{"some.timer.upper_90", 18.800},
		{"some.timer.upper_95", 29.100},
		{"some.timer.upper_99", 34.200},
	} {
		assertClose(t, tc.expected, data, tc.key)
	}
}

func TestNoTimerDataForEmptySeries(t *testing.T) {
	b := New(10, false)
	b.Process()
	assert.Empty(t, b.TimerData())
}

func TestPercentileSmallN(t *testing.T) {
	assert.Equal(t, 5.0, percentile([]float64{5}, 0.5))
	assert.Equal(t, 1.5, percentile([]float64{1, 2}, 0.5))
}
