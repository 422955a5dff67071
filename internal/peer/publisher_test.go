package peer

import (
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/coreflux/statsaggd/internal/metric"
	"github.com/coreflux/statsaggd/internal/selfstats"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// TestNewPublisherSkipsUnreachablePeers covers the "one bad peer URL must
// not prevent the others from being wired" contract: dialing a
// non-listening port fails and is swallowed rather than returned as a
// constructor error.
func TestNewPublisherSkipsUnreachablePeers(t *testing.T) {
	p := NewPublisher("statsaggd.batches", []string{"nats://127.0.0.1:1"}, testLogger(), nil)
	assert.NotNil(t, p)
	assert.Empty(t, p.conns)

	// Publish on a publisher with no live peer connections must not panic
	// or block.
	p.Publish([]byte("payload"))
}

// TestNewPublisherWiresStats covers the "DESIGN.md claims this component
// is mutated throughout" contract: the *selfstats.Stats passed to
// NewPublisher must be the one Publish later increments on a dropped send,
// not merely accepted and ignored.
func TestNewPublisherWiresStats(t *testing.T) {
	stats := selfstats.New(prometheus.NewRegistry())
	p := NewPublisher("statsaggd.batches", nil, testLogger(), stats)
	assert.Same(t, stats, p.stats)
}

// TestFlushBackendEncodesThenPublishes covers the adapter the event loop's
// ordinary backend fan-out drives: it checks the backend's name and that
// Flush encodes and publishes a snapshot without error even with zero
// reachable peers (Publish is then a no-op, not an error).
func TestFlushBackendEncodesThenPublishes(t *testing.T) {
	p := NewPublisher("statsaggd.batches", nil, testLogger(), nil)
	fb := NewFlushBackend(p)

	assert.Equal(t, "peer", fb.Name())

	b := buckets.New(10, false)
	b.Add(metric.NewCounter("hits", 1, 1))

	assert.NoError(t, fb.Flush(b))
}
