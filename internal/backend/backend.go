// Package backend defines the fan-out contract the event loop calls on
// every flush, plus the concrete console/graphite/statsd-forward sinks and
// the ordered factory that builds the configured set of them.
package backend

import (
	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/sirupsen/logrus"
)

// Backend is the one-method contract a flush sink implements. Flush is
// called synchronously by the event loop immediately after
// Buckets.Process, once per configured backend, in construction order. A
// Backend must not retain snapshot beyond the call and must not mutate it.
// A returned error is logged by the caller; it never aborts the event loop
// and never prevents other backends from receiving the same snapshot.
type Backend interface {
	Name() string
	Flush(snapshot *buckets.Buckets) error
}

// Config selects which backends the Factory builds and how they are wired.
type Config struct {
	Console bool

	Graphite     bool
	GraphiteHost string
	GraphitePort int

	Statsd           bool
	StatsdHost       string
	StatsdPort       int
	StatsdPacketSize int
}

// Factory builds the configured ordered set of backends. Construction
// order is invocation order: console, then graphite, then statsd-forward,
// mirroring original_source/src/backend.rs's factory.
func Factory(cfg Config, log *logrus.Entry) []Backend {
	var out []Backend
	if cfg.Console {
		out = append(out, NewConsole(log))
	}
	if cfg.Graphite {
		out = append(out, NewGraphite(cfg.GraphiteHost, cfg.GraphitePort, log))
	}
	if cfg.Statsd {
		out = append(out, NewStatsdForward(cfg.StatsdHost, cfg.StatsdPort, cfg.StatsdPacketSize, log))
	}
	return out
}
