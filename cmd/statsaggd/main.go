// Command statsaggd is the process entrypoint: parse configuration, build
// Buckets and the configured backends, start the ingest/admin/peer/flush
// goroutines, and run the event loop until it returns. Grounded on
// original_source/src/main.rs's central wiring (spawn UDP server, admin
// server, flush timer loop, then block on the event channel).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/coreflux/statsaggd/internal/admin"
	"github.com/coreflux/statsaggd/internal/backend"
	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/coreflux/statsaggd/internal/config"
	"github.com/coreflux/statsaggd/internal/events"
	"github.com/coreflux/statsaggd/internal/ingest"
	"github.com/coreflux/statsaggd/internal/peer"
	"github.com/coreflux/statsaggd/internal/selfstats"
)

// eventChannelCapacity bounds the shared MPSC channel every producer
// (UDP workers, admin acceptor, peer subscriber, flush ticker) sends on.
// Ingest workers use a non-blocking send and drop on overflow; the flush
// ticker sends blocking, so a full channel delays a tick but never drops it.
const eventChannelCapacity = 4096

func main() {
	app := &cli.App{
		Name:   "statsaggd",
		Usage:  "StatsD-compatible metric aggregation daemon",
		Flags:  config.Flags(),
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "statsaggd:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return fatal("config", err)
	}

	log := newLogger(cfg.LogLevel)

	b := buckets.New(cfg.FlushIntervalSecs, cfg.DeleteGaugesAfter)

	backends := backend.Factory(backend.Config{
		Console:          cfg.Console,
		Graphite:         cfg.Graphite,
		GraphiteHost:     cfg.GraphiteHost,
		GraphitePort:     cfg.GraphitePort,
		Statsd:           cfg.Statsd,
		StatsdHost:       cfg.StatsdHost,
		StatsdPort:       cfg.StatsdPort,
		StatsdPacketSize: cfg.StatsdPacketSize,
	}, log.WithField("component", "backend"))

	eventCh := make(chan events.Event, eventChannelCapacity)

	reg := prometheus.NewRegistry()
	stats := selfstats.New(reg)

	udpAddr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	listener, err := ingest.NewListener(udpAddr, cfg.IngestWorkers, eventCh, log, stats)
	if err != nil {
		return fatal("udp bind", err)
	}

	adminAddr := fmt.Sprintf("%s:%d", cfg.AdminHost, cfg.AdminPort)
	acceptor, err := admin.NewAcceptor(adminAddr, eventCh, log)
	if err != nil {
		return fatal("admin bind", err)
	}

	var publisher *peer.Publisher
	if len(cfg.Peers) > 0 {
		publisher = peer.NewPublisher(cfg.PeerSubject, cfg.Peers, log, stats)
		defer publisher.Close()
		backends = append(backends, peer.NewFlushBackend(publisher))
	}

	var subscriber *peer.Subscriber
	if cfg.PeerListenURL != "" {
		subscriber, err = peer.NewSubscriber(cfg.PeerListenURL, cfg.PeerSubject, eventCh, log)
		if err != nil {
			log.WithError(err).Warn("unable to start peer subscriber; continuing without inter-node fan-in")
		} else {
			defer subscriber.Close()
		}
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := selfstats.Serve(cfg.MetricsAddr, reg); err != nil {
				log.WithError(err).Error("self-stats server exited")
			}
		}()
	}

	log.WithFields(logrus.Fields{
		"udp":   udpAddr,
		"admin": adminAddr,
		"start": b.StartTime(),
	}).Info("starting statsaggd")

	go func() {
		if err := listener.Run(); err != nil {
			log.WithError(err).Error("udp listener exited")
		}
	}()
	go func() {
		if err := acceptor.Run(); err != nil {
			log.WithError(err).Error("admin acceptor exited")
		}
	}()

	stopFlush := make(chan struct{})
	go events.RunFlushTicker(eventCh, time.Duration(cfg.FlushIntervalSecs*float64(time.Second)), stopFlush)
	defer close(stopFlush)

	loop := events.New(b, backends, admin.Dispatch, eventCh, log, stats)
	if err := loop.Run(); err != nil {
		return fatal("event loop", err)
	}
	return nil
}

func newLogger(level string) *logrus.Entry {
	l := logrus.New()
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	}
	return logrus.NewEntry(l)
}

func fatal(stage string, err error) error {
	return cli.Exit(fmt.Sprintf("%s: %v", stage, err), 1)
}
