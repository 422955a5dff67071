package buckets

import (
	"testing"

	"github.com/coreflux/statsaggd/internal/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterAdditivity(t *testing.T) {
	b := New(10, false)
	b.Add(metric.NewCounter("foo", 1, 1))
	b.Add(metric.NewCounter("foo", 1, 1))
	assert.Equal(t, 2.0, b.Counters()["foo"])
}

func TestCounterSampledAdditivity(t *testing.T) {
	b := New(10, false)
	b.Add(metric.NewCounter("foo", 1, 0.1))
	b.Add(metric.NewCounter("foo", 1, 0.5))
	assert.Equal(t, 12.0, b.Counters()["foo"])
}

func TestGaugeLastWriteWins(t *testing.T) {
	b := New(10, false)
	b.Add(metric.NewGauge("g", 1))
	b.Add(metric.NewGauge("g", 2))
	b.Add(metric.NewGauge("g", 3))
	assert.Equal(t, 3.0, b.Gauges()["g"])
}

func TestTimerRetention(t *testing.T) {
	b := New(10, false)
	b.Add(metric.NewTimer("t", 1))
	b.Add(metric.NewTimer("t", 2))
	b.Add(metric.NewTimer("t", 3))
	assert.Equal(t, []float64{1, 2, 3}, b.Timers()["t"])
}

func TestBadMessages(t *testing.T) {
	b := New(10, false)
	b.AddBadMessage()
	assert.EqualValues(t, 1, b.BadMessages())
	assert.EqualValues(t, 1, b.TotalMessages())

	b.AddBadMessage()
	assert.EqualValues(t, 2, b.BadMessages())
	assert.EqualValues(t, 2, b.TotalMessages())
}

func TestResetInvariants(t *testing.T) {
	b := New(10, false)
	b.Add(metric.NewCounter("c", 5, 1))
	b.Add(metric.NewTimer("t", 1))
	b.Add(metric.NewGauge("g", 9))
	b.AddBadMessage()

	b.Reset()

	counters := b.Counters()
	require.Contains(t, counters, "c")
	assert.Equal(t, 0.0, counters["c"])

	timers := b.Timers()
	require.Contains(t, timers, "t")
	assert.Empty(t, timers["t"])

	gauges := b.Gauges()
	require.Contains(t, gauges, "g")
	assert.Equal(t, 9.0, gauges["g"]) // gauges survive reset by default

	assert.EqualValues(t, 0, b.TotalMessages())
	assert.EqualValues(t, 0, b.BadMessages())
}

func TestResetDeletesGaugesWhenConfigured(t *testing.T) {
	b := New(10, true)
	b.Add(metric.NewGauge("g", 9))
	b.Reset()
	assert.NotContains(t, b.Gauges(), "g")
}

func TestBadMessagesAndGoodMessageCounted(t *testing.T) {
	b := New(10, false)
	b.AddBadMessage()
	b.Add(metric.NewCounter("ok", 1, 1))

	assert.EqualValues(t, 1, b.BadMessages())
	assert.EqualValues(t, 2, b.TotalMessages())
	assert.Len(t, b.Counters(), 1)
}
