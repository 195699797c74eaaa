// Package metrics provides optional, zero-cost-when-unused
// instrumentation for the reader and writer engines: counters and a
// latency histogram exported the way the teacher instruments its own
// I/O paths (pebble wires prometheus/client_golang and
// HdrHistogram-go throughout its read/write/compaction pipelines).
//
// A nil *Metrics is always safe to use — every method is a no-op on
// a nil receiver — so callers that don't care about observability
// never pay for it.
package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics aggregates the counters and histograms ZS exposes.
type Metrics struct {
	BlocksRead        prometheus.Counter
	BlocksWritten     prometheus.Counter
	BytesDecompressed prometheus.Counter
	BytesCompressed   prometheus.Counter
	CRCFailures       prometheus.Counter

	decompressLatency *hdrhistogram.Histogram
}

// New returns a Metrics struct with fresh, unregistered prometheus
// collectors and a decompression-latency histogram spanning 1
// microsecond to 10 seconds with 3 significant figures, mirroring the
// precision pebble's own internal histograms use.
func New() *Metrics {
	return &Metrics{
		BlocksRead:        prometheus.NewCounter(prometheus.CounterOpts{Name: "zs_blocks_read_total"}),
		BlocksWritten:     prometheus.NewCounter(prometheus.CounterOpts{Name: "zs_blocks_written_total"}),
		BytesDecompressed: prometheus.NewCounter(prometheus.CounterOpts{Name: "zs_bytes_decompressed_total"}),
		BytesCompressed:   prometheus.NewCounter(prometheus.CounterOpts{Name: "zs_bytes_compressed_total"}),
		CRCFailures:       prometheus.NewCounter(prometheus.CounterOpts{Name: "zs_crc_failures_total"}),
		decompressLatency: hdrhistogram.New(1, 10_000_000, 3),
	}
}

// Register adds every collector to reg, so callers can plug ZS's
// metrics into an existing prometheus.Registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil {
		return nil
	}
	for _, c := range []prometheus.Collector{m.BlocksRead, m.BlocksWritten, m.BytesDecompressed, m.BytesCompressed, m.CRCFailures} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) recordBlockRead(n int) {
	if m == nil {
		return
	}
	m.BlocksRead.Inc()
	m.BytesDecompressed.Add(float64(n))
}

// RecordBlockRead accounts for one decoded block of n payload bytes.
func (m *Metrics) RecordBlockRead(n int) { m.recordBlockRead(n) }

// RecordBlockWritten accounts for one written, compressed block of n
// on-disk bytes.
func (m *Metrics) RecordBlockWritten(n int) {
	if m == nil {
		return
	}
	m.BlocksWritten.Inc()
	m.BytesCompressed.Add(float64(n))
}

// RecordCRCFailure accounts for one block that failed to decode. The
// reader calls it for every block.Decode error: a CRC mismatch, a
// length or level framing error, or a decompression failure.
func (m *Metrics) RecordCRCFailure() {
	if m == nil {
		return
	}
	m.CRCFailures.Inc()
}

// ObserveDecompressLatency records how long a single block
// decompression took.
func (m *Metrics) ObserveDecompressLatency(d time.Duration) {
	if m == nil {
		return
	}
	_ = m.decompressLatency.RecordValue(d.Microseconds())
}

// DecompressLatencyHistogram returns a snapshot of the decompression
// latency histogram, or nil if m is nil.
func (m *Metrics) DecompressLatencyHistogram() *hdrhistogram.Histogram {
	if m == nil {
		return nil
	}
	return m.decompressLatency
}
