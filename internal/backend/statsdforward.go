package backend

import (
	"fmt"
	"net"
	"strings"

	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/sirupsen/logrus"
)

// StatsdForward re-emits the snapshot as StatsD protocol lines to a
// downstream peer over UDP, packing as many lines as fit under
// packetSize per datagram. Counters are forwarded at rate 1.0 (already
// summed locally); gauges forward as gauges; derived timer statistics
// forward as gauges, since they are already-reduced scalars rather than
// raw samples a downstream aggregator could re-derive percentiles from.
type StatsdForward struct {
	addr       string
	packetSize int
	log        *logrus.Entry
}

// NewStatsdForward builds a StatsD-forward backend targeting host:port.
func NewStatsdForward(host string, port, packetSize int, log *logrus.Entry) *StatsdForward {
	return &StatsdForward{
		addr:       fmt.Sprintf("%s:%d", host, port),
		packetSize: packetSize,
		log:        log.WithField("backend", "statsd"),
	}
}

// Name identifies this backend in logs.
func (s *StatsdForward) Name() string { return "statsd" }

// Flush sends every counter/gauge/derived-timer-stat as a statsd line,
// batching lines into UDP datagrams no larger than packetSize.
func (s *StatsdForward) Flush(snapshot *buckets.Buckets) error {
	conn, err := net.Dial("udp", s.addr)
	if err != nil {
		s.log.WithError(err).Warn("unable to connect to downstream statsd")
		return err
	}
	defer conn.Close()

	var lines []string
	for k, v := range snapshot.Counters() {
		lines = append(lines, fmt.Sprintf("%s:%v|c", k, v))
	}
	for k, v := range snapshot.Gauges() {
		lines = append(lines, fmt.Sprintf("%s:%v|g", k, v))
	}
	for k, v := range snapshot.TimerData() {
		lines = append(lines, fmt.Sprintf("%s:%v|g", k, v))
	}

	for _, packet := range packLines(lines, s.packetSize) {
		if _, err := conn.Write([]byte(packet)); err != nil {
			s.log.WithError(err).Warn("unable to write to downstream statsd")
			return err
		}
	}
	s.log.WithField("addr", s.addr).Debug("flushed snapshot to downstream statsd")
	return nil
}

// packLines greedily packs newline-joined statsd lines into packets no
// larger than maxSize bytes. A single line longer than maxSize is sent
// alone, oversized, rather than dropped.
func packLines(lines []string, maxSize int) []string {
	var packets []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			packets = append(packets, current.String())
			current.Reset()
		}
	}

	for _, line := range lines {
		candidateLen := current.Len() + len(line) + 1
		if current.Len() > 0 && candidateLen > maxSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	flush()

	return packets
}
