package ingest

import (
	"net"

	"github.com/coreflux/statsaggd/internal/events"
	"github.com/coreflux/statsaggd/internal/selfstats"
	"github.com/sirupsen/logrus"
)

// datagramBufferSize is the max UDP payload this listener accepts per
// recvfrom; StatsD datagrams are small, but clients can legally batch many
// lines per packet up to the path MTU.
const datagramBufferSize = 65507

// Listener owns the UDP socket and a pool of parser workers. Grounded on
// plugins/inputs/statsd/statsd.go's udpListen: one goroutine reads off the
// socket into a pooled buffer and hands it to a worker pool; here, with no
// measurement aggregation to protect, each worker parses and forwards
// directly rather than staging through an intermediate channel.
type Listener struct {
	conn    *net.UDPConn
	events  chan<- events.Event
	log     *logrus.Entry
	workers int
	stats   *selfstats.Stats
}

// NewListener binds addr (host:port) for UDP and returns a Listener ready
// to Run. workers controls how many goroutines read concurrently off the
// same socket, matching the teacher's configurable parser pool size. stats
// may be nil, in which case dropped-datagram counting is skipped.
func NewListener(addr string, workers int, out chan<- events.Event, log *logrus.Entry, stats *selfstats.Stats) (*Listener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	if workers < 1 {
		workers = 1
	}
	return &Listener{
		conn:    conn,
		events:  out,
		log:     log.WithField("component", "ingest.udp"),
		workers: workers,
		stats:   stats,
	}, nil
}

// Run starts the configured number of reader goroutines and blocks until
// one of them returns (on a socket read error, typically from Close).
// Every goroutine shares the same UDP socket; the kernel distributes
// incoming datagrams across whichever goroutine calls ReadFromUDP next.
func (l *Listener) Run() error {
	errs := make(chan error, l.workers)
	for i := 0; i < l.workers; i++ {
		go func() {
			errs <- l.readLoop()
		}()
	}
	return <-errs
}

// Close unblocks every reader goroutine by closing the shared socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

func (l *Listener) readLoop() error {
	buf := make([]byte, datagramBufferSize)
	for {
		n, _, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])

		metrics, parseErr := ParseDatagram(payload)
		var ev events.Event
		if parseErr != nil {
			ev = events.NewParseError(parseErr)
		} else {
			ev = events.NewParsedMetrics(metrics)
		}

		// Non-blocking send: per spec, a full event channel means the
		// aggregator is the bottleneck, and UDP loss is cheaper than
		// head-of-line blocking every other ingest worker behind it.
		select {
		case l.events <- ev:
		default:
			l.log.Warn("event channel full, dropping datagram")
			if l.stats != nil {
				l.stats.DatagramsDropped.Inc()
			}
		}
	}
}
