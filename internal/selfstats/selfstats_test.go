package selfstats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrementIndependently(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New(reg)

	s.DatagramsDropped.Inc()
	s.DatagramsDropped.Inc()
	s.PeerPublishDrops.Inc()
	s.BackendFlushErrors.WithLabelValues("graphite").Inc()

	var m dto.Metric
	require.NoError(t, s.DatagramsDropped.Write(&m))
	require.Equal(t, 2.0, m.GetCounter().GetValue())

	var pm dto.Metric
	require.NoError(t, s.PeerPublishDrops.Write(&pm))
	require.Equal(t, 1.0, pm.GetCounter().GetValue())
}
