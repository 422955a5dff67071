package backend

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/sirupsen/logrus"
)

// Graphite ships the snapshot over the Graphite/carbon plaintext line
// protocol ("<path> <value> <unix-timestamp>\n"), dialing fresh on every
// flush. Dial/write idiom grounded on plugins/inputs/statsd/statsd.go's
// TCP connection handling, applied here to egress instead of ingest.
type Graphite struct {
	addr string
	log  *logrus.Entry
	dial func(network, address string) (net.Conn, error)
}

// NewGraphite builds a Graphite backend dialing host:port on every flush.
func NewGraphite(host string, port int, log *logrus.Entry) *Graphite {
	return &Graphite{
		addr: fmt.Sprintf("%s:%d", host, port),
		log:  log.WithField("backend", "graphite"),
		dial: net.Dial,
	}
}

// Name identifies this backend in logs.
func (g *Graphite) Name() string { return "graphite" }

// Flush writes every counter, gauge and derived timer stat as one carbon
// line each. A dial or write failure is logged and returned (the caller
// treats it as a BackendTransientError: contained, non-fatal, retried
// implicitly on the next flush).
func (g *Graphite) Flush(snapshot *buckets.Buckets) error {
	conn, err := g.dial("tcp", g.addr)
	if err != nil {
		g.log.WithError(err).Warn("unable to connect to graphite")
		return err
	}
	defer conn.Close()

	now := time.Now().Unix()
	w := bufio.NewWriter(conn)

	for k, v := range snapshot.Counters() {
		fmt.Fprintf(w, "%s %v %d\n", k, v, now)
	}
	for k, v := range snapshot.Gauges() {
		fmt.Fprintf(w, "%s %v %d\n", k, v, now)
	}
	for k, v := range snapshot.TimerData() {
		fmt.Fprintf(w, "%s %v %d\n", k, v, now)
	}

	if err := w.Flush(); err != nil {
		g.log.WithError(err).Warn("unable to write to graphite")
		return err
	}
	g.log.WithField("addr", g.addr).Debug("flushed snapshot to graphite")
	return nil
}
