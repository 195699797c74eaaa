// Package transport implements the random-access byte sources ZS
// reads from: a local file (positional pread) or an HTTP server that
// supports Range: GET. Every Transport must be safe for concurrent
// calls to ReadAt — the reader engine dispatches block fetches from a
// pool of worker goroutines (spec.md §4.3, §5).
package transport

import (
	"context"
	"io"
)

// Transport is a random-access byte source.
type Transport interface {
	// Length returns the total size of the underlying resource in
	// bytes.
	Length(ctx context.Context) (uint64, error)
	// ReadAt fetches exactly len(p) bytes starting at offset. It must
	// be safe to call concurrently from multiple goroutines.
	ReadAt(ctx context.Context, p []byte, offset uint64) error
	// StreamAt returns a lazy byte sequence starting at offset,
	// suitable for a full linear scan (the validator's body pass, or
	// a bulk dump) without pre-declaring a length. Callers must
	// Close the returned ReadCloser.
	StreamAt(ctx context.Context, offset uint64) (io.ReadCloser, error)
	// Close releases any resources the transport owns (file
	// descriptors, pooled HTTP connections).
	Close() error
}
