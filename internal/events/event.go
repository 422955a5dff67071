// Package events implements the single-threaded event loop that owns
// Buckets: it is the only component that ever calls Buckets.Add,
// Buckets.Process or Buckets.Reset, serializing every state mutation onto
// one goroutine the way original_source/src/main.rs's central dispatch
// loop does.
package events

import (
	"net"

	"github.com/coreflux/statsaggd/internal/codec"
	"github.com/coreflux/statsaggd/internal/metric"
)

// ParseResult is the UDP parser's output for a single datagram: either a
// list of Metric to ingest, or a parse error.
type ParseResult struct {
	Metrics []metric.Metric
	Err     error
}

// Kind discriminates the Event union.
type Kind int

const (
	// KindParsedMetrics carries one datagram's parse result.
	KindParsedMetrics Kind = iota
	// KindPeerBatch carries one decoded remote snapshot.
	KindPeerBatch
	// KindTimerFlush triggers Process -> backend fan-out -> Reset.
	KindTimerFlush
	// KindAdminCommand carries one admin request, as a net.Conn, to dispatch.
	KindAdminCommand
)

// Event is the tagged union consumed by the event loop. Exactly one of
// the payload fields is meaningful, selected by Kind.
type Event struct {
	Kind Kind

	Parsed ParseResult
	Batch  *codec.Batch
	Conn   net.Conn
}

// NewParsedMetrics builds a successful ParsedMetrics event.
func NewParsedMetrics(metrics []metric.Metric) Event {
	return Event{Kind: KindParsedMetrics, Parsed: ParseResult{Metrics: metrics}}
}

// NewParseError builds a failed ParsedMetrics event.
func NewParseError(err error) Event {
	return Event{Kind: KindParsedMetrics, Parsed: ParseResult{Err: err}}
}

// NewPeerBatch builds a PeerBatch event.
func NewPeerBatch(b *codec.Batch) Event {
	return Event{Kind: KindPeerBatch, Batch: b}
}

// TimerFlushEvent is the single shared TimerFlush event value.
var TimerFlushEvent = Event{Kind: KindTimerFlush}

// NewAdminCommand builds an AdminCommand event wrapping the accepted
// connection.
func NewAdminCommand(conn net.Conn) Event {
	return Event{Kind: KindAdminCommand, Conn: conn}
}
