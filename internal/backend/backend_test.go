package backend

import (
	"errors"
	"io"
	"testing"

	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/coreflux/statsaggd/internal/metric"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name      string
	err       error
	flushed   bool
	snapshots int
}

func (f *fakeBackend) Name() string { return f.name }
func (f *fakeBackend) Flush(snapshot *buckets.Buckets) error {
	f.flushed = true
	f.snapshots++
	return f.err
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// TestFactoryOrder covers the "construction order is invocation order"
// contract (original_source/src/backend.rs's factory).
func TestFactoryOrder(t *testing.T) {
	backends := Factory(Config{Console: true, Graphite: true, Statsd: true,
		GraphiteHost: "127.0.0.1", GraphitePort: 2003,
		StatsdHost: "127.0.0.1", StatsdPort: 8125, StatsdPacketSize: 1024,
	}, testLogger())

	require.Len(t, backends, 3)
	assert.Equal(t, "console", backends[0].Name())
	assert.Equal(t, "graphite", backends[1].Name())
	assert.Equal(t, "statsd", backends[2].Name())
}

func TestFactorySelectsOnlyConfigured(t *testing.T) {
	backends := Factory(Config{Console: true}, testLogger())
	require.Len(t, backends, 1)
	assert.Equal(t, "console", backends[0].Name())
}

// TestFailingBackendDoesNotBlockOthers covers S6: one backend erroring
// must not prevent a later backend in the same flush from receiving the
// snapshot.
func TestFailingBackendDoesNotBlockOthers(t *testing.T) {
	failing := &fakeBackend{name: "failing", err: errors.New("boom")}
	ok := &fakeBackend{name: "ok"}

	backends := []Backend{failing, ok}
	snapshot := buckets.New(10, false)
	snapshot.Add(metric.NewCounter("foo", 1, 1))

	for _, b := range backends {
		if err := b.Flush(snapshot); err != nil {
			// event loop contract: log and continue, never abort.
			_ = err
		}
	}

	assert.True(t, failing.flushed)
	assert.True(t, ok.flushed)
	assert.Equal(t, 1, ok.snapshots)
}

func TestPackLinesRespectsMaxSize(t *testing.T) {
	lines := []string{"a:1|c", "b:2|c", "c:3|c"}
	packets := packLines(lines, 12)
	for _, p := range packets {
		assert.LessOrEqual(t, len(p), 12)
	}
	// every line must still show up somewhere across the packets.
	joined := ""
	for _, p := range packets {
		joined += p + "\n"
	}
	for _, l := range lines {
		assert.Contains(t, joined, l)
	}
}

func TestPackLinesSingleOversizedLineSentAlone(t *testing.T) {
	lines := []string{"this.is.a.very.long.metric.name.indeed:12345|c"}
	packets := packLines(lines, 4)
	require.Len(t, packets, 1)
	assert.Equal(t, lines[0], packets[0])
}
