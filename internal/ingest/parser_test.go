package ingest

import (
	"testing"

	"github.com/coreflux/statsaggd/internal/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDatagramSingleCounter(t *testing.T) {
	metrics, err := ParseDatagram([]byte("foo:1|c"))
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "foo", metrics[0].Name)
	assert.Equal(t, metric.Counter, metrics[0].Kind)
	assert.Equal(t, 1.0, metrics[0].Value)
	assert.Equal(t, 1.0, metrics[0].Rate)
}

func TestParseDatagramSampledCounter(t *testing.T) {
	metrics, err := ParseDatagram([]byte("foo:1|c|@0.1"))
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, 0.1, metrics[0].Rate)
}

func TestParseDatagramMultipleLines(t *testing.T) {
	metrics, err := ParseDatagram([]byte("foo:1|c\nbar:42|g\nbaz:7|ms"))
	require.NoError(t, err)
	require.Len(t, metrics, 3)
	assert.Equal(t, metric.Counter, metrics[0].Kind)
	assert.Equal(t, metric.Gauge, metrics[1].Kind)
	assert.Equal(t, metric.Timer, metrics[2].Kind)
}

func TestParseDatagramBlankLinesIgnored(t *testing.T) {
	metrics, err := ParseDatagram([]byte("foo:1|c\n\n\nbar:2|c"))
	require.NoError(t, err)
	assert.Len(t, metrics, 2)
}

// TestParseDatagramRejectsWhole covers the all-or-nothing contract: one
// malformed line anywhere in the datagram rejects the entire datagram
// rather than ingesting the valid lines around it.
func TestParseDatagramRejectsWhole(t *testing.T) {
	_, err := ParseDatagram([]byte("foo:1|c\nnotvalid\nbar:2|c"))
	assert.Error(t, err)
}

func TestParseDatagramRejectsUnknownType(t *testing.T) {
	_, err := ParseDatagram([]byte("foo:1|h"))
	assert.Error(t, err)
}

func TestParseDatagramRejectsMissingValue(t *testing.T) {
	_, err := ParseDatagram([]byte("foo:|c"))
	assert.Error(t, err)
}

func TestParseDatagramRejectsEmpty(t *testing.T) {
	_, err := ParseDatagram([]byte(""))
	assert.Error(t, err)
}

func TestParseDatagramRejectsBadRate(t *testing.T) {
	_, err := ParseDatagram([]byte("foo:1|c|@notanumber"))
	assert.Error(t, err)
}
