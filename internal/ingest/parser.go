// Package ingest implements the UDP front door: a worker pool that reads
// datagrams off a single socket, parses StatsD line-protocol metrics out of
// them, and pushes ParsedMetrics events onto the event loop's channel.
// Adapted (simplified to the three kinds this daemon aggregates) from
// plugins/inputs/statsd/statsd.go's udpListen/parser split.
package ingest

import (
	"errors"
	"strconv"
	"strings"

	"github.com/coreflux/statsaggd/internal/metric"
)

// errParseLine is the sentinel returned for a malformed line, and for a
// datagram that holds no metric lines at all.
var errParseLine = errors.New("ingest: malformed statsd line")

// ParseDatagram splits a UDP payload into lines and parses each as one
// StatsD metric. Per spec, a datagram containing ANY malformed line is
// rejected as a whole: the caller reports one bad_messages increment for
// the datagram rather than partially ingesting it.
func ParseDatagram(payload []byte) ([]metric.Metric, error) {
	text := string(payload)
	lines := strings.Split(text, "\n")

	var metrics []metric.Metric
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m, err := parseLine(line)
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}

	if len(metrics) == 0 {
		return nil, errParseLine
	}
	return metrics, nil
}

// parseLine parses one "bucket:value|type[|@rate]" line. Supported types
// are g (gauge), c (counter) and ms (timer); anything else is rejected,
// matching spec.md's three-kind Metric type.
func parseLine(line string) (metric.Metric, error) {
	bits := strings.Split(line, ":")
	if len(bits) != 2 {
		return metric.Metric{}, errParseLine
	}
	name := bits[0]
	if name == "" {
		return metric.Metric{}, errParseLine
	}

	fields := strings.Split(bits[1], "|")
	if len(fields) < 2 {
		return metric.Metric{}, errParseLine
	}

	value, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return metric.Metric{}, errParseLine
	}

	rate := 1.0
	if len(fields) > 2 {
		r, ok := parseRate(fields[2])
		if !ok {
			return metric.Metric{}, errParseLine
		}
		rate = r
	}

	switch fields[1] {
	case "g":
		return metric.NewGauge(name, value), nil
	case "c":
		return metric.NewCounter(name, value, rate), nil
	case "ms":
		return metric.NewTimer(name, value), nil
	default:
		return metric.Metric{}, errParseLine
	}
}

// parseRate parses a "@0.1"-style sample rate field.
func parseRate(field string) (float64, bool) {
	if len(field) < 2 || field[0] != '@' {
		return 0, false
	}
	r, err := strconv.ParseFloat(field[1:], 64)
	if err != nil {
		return 0, false
	}
	return r, true
}
