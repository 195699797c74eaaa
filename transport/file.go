package transport

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/zs/zserr"
)

// FileTransport reads a local, already-written ZS file. Positional
// reads are dispatched to pread (see file_unix.go/file_other.go),
// which the OS guarantees is safe for concurrent callers sharing one
// file descriptor — the same property spec.md §4.3 requires and the
// teacher's vfs layer relies on for concurrent sstable reads.
type FileTransport struct {
	f *os.File
}

// OpenFile opens path for reading as a Transport.
func OpenFile(path string) (*FileTransport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, zserr.IOErrorf(err, "transport: opening %s", zserr.Safe(path))
	}
	return &FileTransport{f: f}, nil
}

// NewFileTransport wraps an already-open file. The Transport takes
// ownership and will close it.
func NewFileTransport(f *os.File) *FileTransport { return &FileTransport{f: f} }

func (t *FileTransport) Length(ctx context.Context) (uint64, error) {
	fi, err := t.f.Stat()
	if err != nil {
		return 0, zserr.IOErrorf(err, "transport: stat")
	}
	if fi.Size() < 0 {
		return 0, zserr.IOErrorf(nil, "transport: negative file size")
	}
	return uint64(fi.Size()), nil
}

func (t *FileTransport) ReadAt(ctx context.Context, p []byte, offset uint64) error {
	if len(p) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return zserr.Wrap(zserr.Cancelled, err, "transport: read cancelled")
	}
	n, err := preadFull(t.f, p, int64(offset))
	if err != nil && err != io.EOF {
		return zserr.IOErrorf(err, "transport: pread at offset %d", zserr.Safe(offset))
	}
	if n < len(p) {
		return zserr.IOErrorf(io.ErrUnexpectedEOF, "transport: short read at offset %d (got %d, want %d)",
			zserr.Safe(offset), zserr.Safe(n), zserr.Safe(len(p)))
	}
	return nil
}

func (t *FileTransport) StreamAt(ctx context.Context, offset uint64) (io.ReadCloser, error) {
	sr := io.NewSectionReader(t.f, int64(offset), int64(^uint64(0)>>1)-int64(offset))
	return io.NopCloser(sr), nil
}

func (t *FileTransport) Close() error {
	return t.f.Close()
}
