package zs

import (
	"context"
	"time"

	"github.com/cockroachdb/zs/block"
	"github.com/cockroachdb/zs/codec"
	"github.com/cockroachdb/zs/metrics"
	"github.com/cockroachdb/zs/transport"
	"github.com/cockroachdb/zs/zserr"
)

// DefaultWorkers is the decompression worker-pool size Open uses when
// the caller doesn't override it with WithWorkers. It is a fixed
// count, independent of GOMAXPROCS.
const DefaultWorkers = 4

// Reader opens a ZS file for point lookups, range scans, and bulk
// block operations. A Reader is safe for concurrent use by multiple
// goroutines (spec.md §5): Search, BlockMap, and BlockExec may all be
// in flight at once.
type Reader struct {
	tr        transport.Transport
	ownsTr    bool
	header    Header
	headerEnd uint64
	codec     codec.Codec
	workers   int
	metrics   *metrics.Metrics
}

// Option configures Open.
type Option func(*Reader)

// WithWorkers overrides the decompression worker-pool size. 0 means
// "run in-thread, no worker pool" (spec.md §4.6).
func WithWorkers(j int) Option {
	return func(r *Reader) { r.workers = j }
}

// WithMetrics attaches a metrics.Metrics sink. A nil sink (the
// default) disables instrumentation at zero cost.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reader) { r.metrics = m }
}

// Open reads and validates the magic and header of the file served by
// tr, returning a Reader ready for queries. tr is not closed by
// Close; callers that want Open to own tr's lifetime should use
// OpenFile or OpenHTTP instead.
func Open(ctx context.Context, tr transport.Transport, opts ...Option) (*Reader, error) {
	h, headerEnd, err := readMagicAndHeader(ctx, tr)
	if err != nil {
		return nil, err
	}
	c, err := codec.ByName(h.Codec)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		tr:        tr,
		header:    h,
		headerEnd: headerEnd,
		codec:     c,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// OpenFile opens the local file at path and parses its header. The
// returned Reader owns the file descriptor; Close releases it.
func OpenFile(ctx context.Context, path string, opts ...Option) (*Reader, error) {
	tr, err := transport.OpenFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Open(ctx, tr, opts...)
	if err != nil {
		tr.Close()
		return nil, err
	}
	r.ownsTr = true
	return r, nil
}

// OpenHTTP opens a ZS file served over HTTP Range: GET at url.
func OpenHTTP(ctx context.Context, url string, opts ...Option) (*Reader, error) {
	tr := transport.NewHTTPTransport(url)
	r, err := Open(ctx, tr, opts...)
	if err != nil {
		tr.Close()
		return nil, err
	}
	r.ownsTr = true
	return r, nil
}

// Header returns the file's parsed header fields.
func (r *Reader) Header() Header { return r.header }

// Close releases the underlying transport if Open's caller didn't
// supply it directly (OpenFile, OpenHTTP). Queries in flight at the
// time of Close should be driven with a cancellable context; Close
// itself does not forcibly abort them.
func (r *Reader) Close() error {
	if r.ownsTr {
		return r.tr.Close()
	}
	return nil
}

// fetchBlock reads and decodes the block at handle (voffsets are
// relative to headerEnd, spec.md §6.1).
func (r *Reader) fetchBlock(ctx context.Context, h block.Handle) (block.Decoded, error) {
	if err := ctx.Err(); err != nil {
		return block.Decoded{}, zserr.Wrap(zserr.Cancelled, err, "reader: fetching block")
	}
	raw := make([]byte, h.Length)
	if err := r.tr.ReadAt(ctx, raw, r.headerEnd+h.Offset); err != nil {
		return block.Decoded{}, err
	}
	start := time.Now()
	decoded, err := block.Decode(raw, r.codec)
	if err != nil {
		r.metrics.RecordCRCFailure()
		return block.Decoded{}, err
	}
	r.metrics.ObserveDecompressLatency(time.Since(start))
	r.metrics.RecordBlockRead(len(decoded.Payload))
	return decoded, nil
}

// rootHandle returns the handle of the tree's root block. The writer
// always finishes with a root at index level ≥ 1 (spec.md §4.7), but
// collectLeaves tolerates a level-0 root defensively.
func (r *Reader) rootHandle() block.Handle {
	return r.header.RootHandle()
}
