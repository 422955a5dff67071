// Package peer fans out aggregated snapshots to sibling statsaggd nodes and
// ingests snapshots fanned out by them, standing in for
// original_source/src/backends/statsd_zmq.rs's ZeroMQ PUB/SUB peer mesh.
// The retrieved example pack has no ZeroMQ client, but the teacher's
// go.mod already depends on github.com/nats-io/nats.go, whose
// subject-based pub/sub model and per-subscription pending-limit knobs
// map directly onto the same "broadcast snapshot, drop slow followers"
// contract.
package peer

import (
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/coreflux/statsaggd/internal/codec"
	"github.com/coreflux/statsaggd/internal/selfstats"
)

// pendingMsgLimit bounds how many unflushed publishes NATS will buffer per
// connection before Publish starts returning errors. Kept low: a peer that
// can't keep up with one flush interval's worth of snapshots should be
// dropped from, not queued behind.
const pendingMsgLimit = 4

// Publisher maintains one NATS connection per configured peer and
// broadcasts the same encoded batch to all of them. A slow or disconnected
// peer never blocks the others, matching spec.md's instruction that peer
// fan-out is best-effort.
type Publisher struct {
	subject string
	log     *logrus.Entry
	stats   *selfstats.Stats

	mu    sync.Mutex
	conns map[string]*nats.Conn
}

// NewPublisher dials every peer URL eagerly; a peer that fails to dial is
// logged and skipped, and is not dialed again by this Publisher. A
// connection that was established reconnects after a loss through
// nats.go's own reconnect handling. stats may be nil, in which case
// dropped-publish counting is skipped.
func NewPublisher(subject string, peerURLs []string, log *logrus.Entry, stats *selfstats.Stats) *Publisher {
	p := &Publisher{
		subject: subject,
		log:     log.WithField("component", "peer.publisher"),
		stats:   stats,
		conns:   make(map[string]*nats.Conn, len(peerURLs)),
	}

	for _, url := range peerURLs {
		conn, err := nats.Connect(url,
			nats.PendingLimits(pendingMsgLimit, -1),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			p.log.WithError(err).WithField("peer", url).Warn("unable to connect to peer")
			continue
		}
		p.conns[url] = conn
	}

	return p
}

// Publish sends the same already-encoded batch to every reachable peer.
// Per-peer publish errors are logged and otherwise ignored: a peer falling
// behind loses that flush's snapshot rather than stalling the sender.
func (p *Publisher) Publish(payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for url, conn := range p.conns {
		if err := conn.Publish(p.subject, payload); err != nil {
			p.log.WithError(err).WithField("peer", url).Warn("dropped snapshot for slow or unreachable peer")
			if p.stats != nil {
				p.stats.PeerPublishDrops.Inc()
			}
		}
	}
}

// Close closes every peer connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, conn := range p.conns {
		conn.Close()
	}
}

// FlushBackend adapts Publisher to the backend.Backend contract (§4.3's
// "model as... a narrow interface with one method flush(snapshot)" design
// note) so the event loop's ordinary fan-out also drives inter-node
// publish: encode the snapshot once per flush, then broadcast the same
// bytes to every peer.
type FlushBackend struct {
	publisher *Publisher
}

// NewFlushBackend wraps publisher as a Backend the factory-built fan-out
// list can include alongside console/graphite/statsd-forward.
func NewFlushBackend(publisher *Publisher) *FlushBackend {
	return &FlushBackend{publisher: publisher}
}

// Name identifies this backend in logs.
func (f *FlushBackend) Name() string { return "peer" }

// Flush encodes the snapshot once and publishes the same compressed bytes
// to every configured peer. Per-peer send failures are handled inside
// Publisher.Publish (logged, non-blocking); Flush itself only reports an
// encode failure, which would indicate a broken batch schema rather than a
// transport problem.
func (f *FlushBackend) Flush(snapshot *buckets.Buckets) error {
	payload, _, err := codec.Encode(snapshot)
	if err != nil {
		return err
	}
	f.publisher.Publish(payload)
	return nil
}
