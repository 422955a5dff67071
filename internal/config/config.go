// Package config assembles the daemon's configuration from CLI flags
// (github.com/urfave/cli/v2) with an optional TOML overlay
// (github.com/BurntSushi/toml), mirroring the flag-then-file layering the
// teacher's own plugin configuration uses, adapted here into one flat
// Config struct instead of per-plugin TOML blocks.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v2"
)

// Config holds every externally configurable knob named in spec.md §6 plus
// the ambient-stack additions (metrics-addr, log-level, peers, config).
type Config struct {
	Port               int
	FlushIntervalSecs  float64
	DeleteGaugesAfter  bool
	IngestWorkers      int

	Console bool

	Graphite     bool
	GraphiteHost string
	GraphitePort int

	Statsd           bool
	StatsdHost       string
	StatsdPort       int
	StatsdPacketSize int

	AdminHost string
	AdminPort int

	Peers         []string
	PeerSubject   string
	PeerListenURL string

	MetricsAddr string
	LogLevel    string
}

// fileOverlay mirrors the subset of Config that may come from a TOML file;
// a CLI flag the user set explicitly always takes precedence over the file.
type fileOverlay struct {
	Port              *int      `toml:"port"`
	FlushIntervalSecs *float64  `toml:"flush_interval"`
	DeleteGaugesAfter *bool     `toml:"delete_gauges_after_flush"`
	IngestWorkers     *int      `toml:"ingest_workers"`
	Console           *bool     `toml:"console"`
	Graphite          *bool     `toml:"graphite"`
	GraphiteHost      *string   `toml:"graphite_host"`
	GraphitePort      *int      `toml:"graphite_port"`
	Statsd            *bool     `toml:"statsd"`
	StatsdHost        *string   `toml:"statsd_host"`
	StatsdPort        *int      `toml:"statsd_port"`
	StatsdPacketSize  *int      `toml:"statsd_packet_size"`
	AdminHost         *string   `toml:"admin_host"`
	AdminPort         *int      `toml:"admin_port"`
	Peers             *[]string `toml:"peers"`
	PeerSubject       *string   `toml:"peer_subject"`
	PeerListenURL     *string   `toml:"peer_listen_url"`
	MetricsAddr       *string   `toml:"metrics_addr"`
	LogLevel          *string   `toml:"log_level"`
}

// Flags returns the urfave/cli flag set this daemon accepts.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "port", Value: 8125, Usage: "UDP ingest port"},
		&cli.Float64Flag{Name: "flush-interval", Value: 10, Usage: "flush interval in seconds"},
		&cli.BoolFlag{Name: "delete-gauges-after-flush", Value: false},
		&cli.IntFlag{Name: "ingest-workers", Value: 4},

		&cli.BoolFlag{Name: "console"},

		&cli.BoolFlag{Name: "graphite"},
		&cli.StringFlag{Name: "graphite-host", Value: "127.0.0.1"},
		&cli.IntFlag{Name: "graphite-port", Value: 2003},

		&cli.BoolFlag{Name: "statsd"},
		&cli.StringFlag{Name: "statsd-host", Value: "127.0.0.1"},
		&cli.IntFlag{Name: "statsd-port", Value: 8125},
		&cli.IntFlag{Name: "statsd-packet-size", Value: 16384},

		&cli.StringFlag{Name: "admin-host", Value: "127.0.0.1"},
		&cli.IntFlag{Name: "admin-port", Value: 8126},

		&cli.StringSliceFlag{Name: "peers", Usage: "repeatable NATS peer URL"},
		&cli.StringFlag{Name: "peer-subject", Value: "statsaggd.batches"},
		&cli.StringFlag{Name: "peer-listen-url", Value: "nats://127.0.0.1:4222"},

		&cli.StringFlag{Name: "metrics-addr", Usage: "address to serve Prometheus /metrics on; empty disables"},
		&cli.StringFlag{Name: "log-level", Value: "info"},

		&cli.StringFlag{Name: "config", Usage: "optional TOML config file, overlaid under CLI flags"},
	}
}

// FromContext builds a Config from parsed CLI flags, applying an optional
// TOML overlay first for any value the user didn't pass explicitly on the
// command line.
func FromContext(c *cli.Context) (Config, error) {
	cfg := Config{
		Port:              c.Int("port"),
		FlushIntervalSecs: c.Float64("flush-interval"),
		DeleteGaugesAfter: c.Bool("delete-gauges-after-flush"),
		IngestWorkers:     c.Int("ingest-workers"),
		Console:           c.Bool("console"),
		Graphite:          c.Bool("graphite"),
		GraphiteHost:      c.String("graphite-host"),
		GraphitePort:      c.Int("graphite-port"),
		Statsd:            c.Bool("statsd"),
		StatsdHost:        c.String("statsd-host"),
		StatsdPort:        c.Int("statsd-port"),
		StatsdPacketSize:  c.Int("statsd-packet-size"),
		AdminHost:         c.String("admin-host"),
		AdminPort:         c.Int("admin-port"),
		Peers:             c.StringSlice("peers"),
		PeerSubject:       c.String("peer-subject"),
		PeerListenURL:     c.String("peer-listen-url"),
		MetricsAddr:       c.String("metrics-addr"),
		LogLevel:          c.String("log-level"),
	}

	path := c.String("config")
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	var overlay fileOverlay
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	applyOverlay(&cfg, overlay, c)

	return cfg, nil
}

// applyOverlay fills in a field from the TOML file only when the user did
// not explicitly set the corresponding CLI flag, so "flag beats file"
// holds regardless of declaration order.
func applyOverlay(cfg *Config, o fileOverlay, c *cli.Context) {
	if o.Port != nil && !c.IsSet("port") {
		cfg.Port = *o.Port
	}
	if o.FlushIntervalSecs != nil && !c.IsSet("flush-interval") {
		cfg.FlushIntervalSecs = *o.FlushIntervalSecs
	}
	if o.DeleteGaugesAfter != nil && !c.IsSet("delete-gauges-after-flush") {
		cfg.DeleteGaugesAfter = *o.DeleteGaugesAfter
	}
	if o.IngestWorkers != nil && !c.IsSet("ingest-workers") {
		cfg.IngestWorkers = *o.IngestWorkers
	}
	if o.Console != nil && !c.IsSet("console") {
		cfg.Console = *o.Console
	}
	if o.Graphite != nil && !c.IsSet("graphite") {
		cfg.Graphite = *o.Graphite
	}
	if o.GraphiteHost != nil && !c.IsSet("graphite-host") {
		cfg.GraphiteHost = *o.GraphiteHost
	}
	if o.GraphitePort != nil && !c.IsSet("graphite-port") {
		cfg.GraphitePort = *o.GraphitePort
	}
	if o.Statsd != nil && !c.IsSet("statsd") {
		cfg.Statsd = *o.Statsd
	}
	if o.StatsdHost != nil && !c.IsSet("statsd-host") {
		cfg.StatsdHost = *o.StatsdHost
	}
	if o.StatsdPort != nil && !c.IsSet("statsd-port") {
		cfg.StatsdPort = *o.StatsdPort
	}
	if o.StatsdPacketSize != nil && !c.IsSet("statsd-packet-size") {
		cfg.StatsdPacketSize = *o.StatsdPacketSize
	}
	if o.AdminHost != nil && !c.IsSet("admin-host") {
		cfg.AdminHost = *o.AdminHost
	}
	if o.AdminPort != nil && !c.IsSet("admin-port") {
		cfg.AdminPort = *o.AdminPort
	}
	if o.Peers != nil && !c.IsSet("peers") {
		cfg.Peers = *o.Peers
	}
	if o.PeerSubject != nil && !c.IsSet("peer-subject") {
		cfg.PeerSubject = *o.PeerSubject
	}
	if o.PeerListenURL != nil && !c.IsSet("peer-listen-url") {
		cfg.PeerListenURL = *o.PeerListenURL
	}
	if o.MetricsAddr != nil && !c.IsSet("metrics-addr") {
		cfg.MetricsAddr = *o.MetricsAddr
	}
	if o.LogLevel != nil && !c.IsSet("log-level") {
		cfg.LogLevel = *o.LogLevel
	}
}
