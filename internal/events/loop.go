package events

import (
	"net"
	"time"

	"github.com/coreflux/statsaggd/internal/backend"
	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/coreflux/statsaggd/internal/selfstats"
	"github.com/sirupsen/logrus"
)

// AdminHandler dispatches one admin request (carried as a net.Conn) against
// a read-only view of the live Buckets. It runs on the event-loop goroutine,
// so it must not block for long — spec.md §5 calls this out explicitly as
// a suspension point shared with backend flushes.
type AdminHandler func(conn net.Conn, snapshot *buckets.Buckets)

// Loop owns Buckets exclusively and drains a single event channel. Every
// other component in this daemon only ever produces Events; Loop is the
// only consumer and the only thing allowed to mutate Buckets.
type Loop struct {
	buckets  *buckets.Buckets
	backends []backend.Backend
	admin    AdminHandler
	log      *logrus.Entry
	stats    *selfstats.Stats

	events chan Event
}

// New builds a Loop. events should be a buffered channel shared with every
// producer (UDP workers, the peer subscriber, the admin acceptor); the
// flush ticker is expected to send on it with a blocking send. stats may
// be nil, in which case backend flush error/latency recording is skipped.
func New(b *buckets.Buckets, backends []backend.Backend, admin AdminHandler, events chan Event, log *logrus.Entry, stats *selfstats.Stats) *Loop {
	return &Loop{
		buckets:  b,
		backends: backends,
		admin:    admin,
		events:   events,
		log:      log.WithField("component", "eventloop"),
		stats:    stats,
	}
}

// Run drains events until the channel is closed, which this loop treats as
// EventChannelDisconnected: fatal, since the daemon cannot make progress
// without an ingest path. Run returns (rather than os.Exit) so cmd/statsaggd
// controls process-exit behavior and exit codes.
func (l *Loop) Run() error {
	for ev := range l.events {
		l.handle(ev)
	}
	return errEventChannelDisconnected
}

func (l *Loop) handle(ev Event) {
	switch ev.Kind {
	case KindParsedMetrics:
		if ev.Parsed.Err != nil {
			l.buckets.AddBadMessage()
			l.log.WithError(ev.Parsed.Err).Debug("dropped malformed datagram")
			return
		}
		for _, m := range ev.Parsed.Metrics {
			l.buckets.Add(m)
		}

	case KindPeerBatch:
		if ev.Batch == nil {
			return
		}
		for {
			m, ok := ev.Batch.Next()
			if !ok {
				break
			}
			l.buckets.Add(m)
		}

	case KindTimerFlush:
		l.flush()

	case KindAdminCommand:
		if l.admin != nil && ev.Conn != nil {
			l.admin(ev.Conn, l.buckets)
		}
	}
}

func (l *Loop) flush() {
	l.buckets.Process()
	for _, b := range l.backends {
		start := time.Now()
		err := b.Flush(l.buckets)
		if l.stats != nil {
			l.stats.BackendFlushSeconds.WithLabelValues(b.Name()).Observe(time.Since(start).Seconds())
		}
		if err != nil {
			l.log.WithError(err).WithField("backend", b.Name()).Warn("backend flush failed")
			if l.stats != nil {
				l.stats.BackendFlushErrors.WithLabelValues(b.Name()).Inc()
			}
		}
	}
	l.buckets.Reset()
}
