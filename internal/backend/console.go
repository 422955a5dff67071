package backend

import (
	"fmt"
	"sort"

	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/sirupsen/logrus"
)

// Console writes the current snapshot directly to stdout, one line per
// metric, in deterministic (sorted) name order.
type Console struct {
	log *logrus.Entry
}

// NewConsole builds a Console backend.
func NewConsole(log *logrus.Entry) *Console {
	return &Console{log: log.WithField("backend", "console")}
}

// Name identifies this backend in logs.
func (c *Console) Name() string { return "console" }

// Flush prints counters, gauges, and derived timer statistics.
func (c *Console) Flush(snapshot *buckets.Buckets) error {
	counters := snapshot.Counters()
	for _, k := range sortedKeys(counters) {
		fmt.Printf("counter %s %v\n", k, counters[k])
	}
	gauges := snapshot.Gauges()
	for _, k := range sortedKeys(gauges) {
		fmt.Printf("gauge %s %v\n", k, gauges[k])
	}
	timerData := snapshot.TimerData()
	for _, k := range sortedKeys(timerData) {
		fmt.Printf("timer %s %v\n", k, timerData[k])
	}
	c.log.Debug("flushed snapshot to console")
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
