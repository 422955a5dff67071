// Package codec implements the inter-node batch wire format: a snapshot of
// a flush window encoded as a sorted, schema-framed Avro record of three
// parallel lists (labels/values/kinds), then LZ4-compressed at level 9.
//
// The schema is a direct Go-ecosystem analog of the capnproto schema this
// spec was distilled from (see original_source/src/statsd_batch.rs): a
// positional record of a text list, an f64 list and an enum list, the same
// three fields in the same order. Decoding is all-or-nothing: any
// structural or validation failure drops the whole batch rather than
// admitting a partially-decoded one.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/coreflux/statsaggd/internal/buckets"
	"github.com/coreflux/statsaggd/internal/metric"
	"github.com/linkedin/goavro/v2"
	"github.com/pierrec/lz4/v4"
)

// batchSchema mirrors statsd_batch.rs's capnp schema: metric_labels
// (text_list), metric_values (primitive_list<f64>), metric_kinds
// (enum_list{Gauge=0,Counter=1,Timer=2}). Field order and enum ordinals are
// preserved verbatim as part of the wire contract.
const batchSchema = `
{
  "type": "record",
  "name": "Batch",
  "fields": [
    {"name": "labels", "type": {"type": "array", "items": "string"}},
    {"name": "values", "type": {"type": "array", "items": "double"}},
    {"name": "kinds", "type": {"type": "array", "items":
      {"type": "enum", "name": "Kind", "symbols": ["GAUGE", "COUNTER", "TIMER"]}
    }}
  ]
}`

var batchCodec *goavro.Codec

func init() {
	c, err := goavro.NewCodec(batchSchema)
	if err != nil {
		// The schema above is a fixed literal; a failure here means the
		// binary itself is broken, not that bad data arrived at runtime.
		panic(fmt.Sprintf("codec: invalid batch schema: %v", err))
	}
	batchCodec = c
}

// ErrInvalidBatch is returned (wrapped) whenever a decoded batch fails the
// all-or-nothing structural validation: unequal list lengths, an empty
// batch, or an unreadable label/kind.
var ErrInvalidBatch = errors.New("codec: invalid batch")

func kindSymbol(k metric.Kind) (string, error) {
	switch k {
	case metric.Gauge:
		return "GAUGE", nil
	case metric.Counter:
		return "COUNTER", nil
	case metric.Timer:
		return "TIMER", nil
	default:
		return "", fmt.Errorf("%w: unknown metric kind %v", ErrInvalidBatch, k)
	}
}

func kindFromSymbol(s string) (metric.Kind, error) {
	switch s {
	case "GAUGE":
		return metric.Gauge, nil
	case "COUNTER":
		return metric.Counter, nil
	case "TIMER":
		return metric.Timer, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind symbol %q", ErrInvalidBatch, s)
	}
}

type triple struct {
	label string
	kind  metric.Kind
	value float64
}

// collect gathers every triple spec.md §4.4 step 1 names: the two
// bad/total message self-counters, every counter, every gauge, and one
// triple per timer sample (not per timer name).
func collect(b *buckets.Buckets) []triple {
	counters := b.Counters()
	gauges := b.Gauges()
	timers := b.Timers()

	out := make([]triple, 0, 2+len(counters)+len(gauges))
	out = append(out, triple{"statsd.bad_messages", metric.Counter, float64(b.BadMessages())})
	out = append(out, triple{"statsd.total_messages", metric.Counter, float64(b.TotalMessages())})

	for k, v := range counters {
		out = append(out, triple{k, metric.Counter, v})
	}
	for k, v := range gauges {
		out = append(out, triple{k, metric.Gauge, v})
	}
	for k, series := range timers {
		for _, v := range series {
			out = append(out, triple{k, metric.Timer, v})
		}
	}
	return out
}

// Encode serializes the given snapshot into the LZ4-compressed Avro batch
// format. It returns the compressed bytes and the size of the
// (pre-compression) serialized record, mirroring spec.md's
// encode(snapshot) -> (bytes, uncompressed_size) contract.
func Encode(b *buckets.Buckets) (compressed []byte, uncompressedSize int, err error) {
	triples := collect(b)
	sort.SliceStable(triples, func(i, j int) bool { return triples[i].label < triples[j].label })

	labels := make([]interface{}, len(triples))
	values := make([]interface{}, len(triples))
	kinds := make([]interface{}, len(triples))
	for i, t := range triples {
		sym, err := kindSymbol(t.kind)
		if err != nil {
			return nil, 0, err
		}
		labels[i] = t.label
		values[i] = t.value
		kinds[i] = sym
	}

	native := map[string]interface{}{
		"labels": labels,
		"values": values,
		"kinds":  kinds,
	}

	raw, err := batchCodec.BinaryFromNative(nil, native)
	if err != nil {
		return nil, 0, fmt.Errorf("codec: encode: %w", err)
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if err := zw.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
		return nil, 0, fmt.Errorf("codec: configure lz4: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, 0, fmt.Errorf("codec: lz4 compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("codec: lz4 close: %w", err)
	}

	return buf.Bytes(), len(raw), nil
}

// Batch is the decoded, validated form of an inter-node snapshot. It holds
// the rehydrated Metric list (Counter samples always carry Rate 1.0: the
// sending node already applied sampling) and exposes a simple
// index-cursor iterator.
type Batch struct {
	metrics []metric.Metric
	cursor  int
}

// Len returns the number of metrics in the batch.
func (b *Batch) Len() int { return len(b.metrics) }

// Next returns the next Metric and true, or a zero Metric and false once
// the batch is exhausted.
func (b *Batch) Next() (metric.Metric, bool) {
	if b.cursor >= len(b.metrics) {
		return metric.Metric{}, false
	}
	m := b.metrics[b.cursor]
	b.cursor++
	return m, true
}

// Reset rewinds the iterator to the beginning.
func (b *Batch) Reset() { b.cursor = 0 }

// Decode validates and decodes one inter-node frame. Decompression failure,
// an empty payload, unequal-length lists, an empty batch, or any
// unreadable label/kind rejects the entire frame: decode never returns a
// partially-populated Batch.
func Decode(data []byte) (*Batch, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidBatch)
	}

	zr := lz4.NewReader(bytes.NewReader(data))
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4 decompress: %v", ErrInvalidBatch, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: zero decompressed bytes", ErrInvalidBatch)
	}

	native, _, err := batchCodec.NativeFromBinary(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: schema decode: %v", ErrInvalidBatch, err)
	}

	rec, ok := native.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: not a record", ErrInvalidBatch)
	}

	labelsIface, ok1 := rec["labels"].([]interface{})
	valuesIface, ok2 := rec["values"].([]interface{})
	kindsIface, ok3 := rec["kinds"].([]interface{})
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: missing list field", ErrInvalidBatch)
	}

	n := len(labelsIface)
	if n == 0 || len(valuesIface) != n || len(kindsIface) != n {
		return nil, fmt.Errorf("%w: list length mismatch (labels=%d values=%d kinds=%d)",
			ErrInvalidBatch, n, len(valuesIface), len(kindsIface))
	}

	metrics := make([]metric.Metric, n)
	for i := 0; i < n; i++ {
		label, ok := labelsIface[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: label[%d] not text", ErrInvalidBatch, i)
		}
		value, ok := valuesIface[i].(float64)
		if !ok {
			return nil, fmt.Errorf("%w: value[%d] not a double", ErrInvalidBatch, i)
		}
		kindSym, ok := kindsIface[i].(string)
		if !ok {
			return nil, fmt.Errorf("%w: kind[%d] not an enum symbol", ErrInvalidBatch, i)
		}
		kind, err := kindFromSymbol(kindSym)
		if err != nil {
			return nil, err
		}

		switch kind {
		case metric.Counter:
			metrics[i] = metric.NewCounter(label, value, 1.0)
		case metric.Gauge:
			metrics[i] = metric.NewGauge(label, value)
		case metric.Timer:
			metrics[i] = metric.NewTimer(label, value)
		}
	}

	return &Batch{metrics: metrics}, nil
}
