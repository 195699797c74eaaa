package zs

import (
	"bytes"
	"crypto/sha256"
	"hash"
	"os"
	"sync"

	"github.com/cockroachdb/zs/block"
	"github.com/cockroachdb/zs/codec"
	"github.com/cockroachdb/zs/metrics"
	"github.com/cockroachdb/zs/zserr"
)

// DefaultApproxBlockSize is the packer's target payload size before a
// block is flushed — spec.md §4.7.
const DefaultApproxBlockSize = 384 * 1024

type writerState int

const (
	stateOpen writerState = iota
	stateWriting
	stateFinishing
	stateClosed
)

// Writer builds a ZS file from a sorted record stream. A Writer moves
// through the states Open → Writing → Finishing → Closed; Close is
// idempotent from any state and, from Writing, flushes buffered
// records to disk without completing the root or flipping the magic
// (spec.md §4.7), so an abandoned file is left with `SSZ…` magic and
// is rejected by readers.
//
// A Writer is not safe for concurrent calls from multiple producers
// (spec.md §4.7, "Concurrency").
type Writer struct {
	f               *os.File
	codecName       string
	cdc             codec.Codec
	approxBlockSize int
	metadata        []byte
	headerEnd       uint64

	mu    sync.Mutex
	state writerState

	dataBuilder block.DataBuilder
	haveLast    bool
	lastRecord  []byte

	nextVoffset  uint64
	lastHandle   block.Handle
	haveAnyBlock bool

	levelBuilders   map[block.Level]*block.IndexBuilder
	levelBlockCount map[block.Level]int

	hasher hash.Hash

	metrics *metrics.Metrics
}

// WriterOption configures Create.
type WriterOption func(*Writer)

// WithWriterCodec selects the block codec by name (default "none").
func WithWriterCodec(name string) WriterOption {
	return func(w *Writer) { w.codecName = name }
}

// WithApproxBlockSize overrides the packer's target block size.
func WithApproxBlockSize(n int) WriterOption {
	return func(w *Writer) { w.approxBlockSize = n }
}

// WithWriterMetadata attaches a UTF-8 JSON object as the file's
// metadata blob. Must be valid per spec.md §6.2 or Create fails.
func WithWriterMetadata(metadata []byte) WriterOption {
	return func(w *Writer) { w.metadata = metadata }
}

// WithWriterMetrics attaches an optional metrics sink.
func WithWriterMetrics(m *metrics.Metrics) WriterOption {
	return func(w *Writer) { w.metrics = m }
}

// Create opens path for writing and reserves its header region. The
// codec defaults to "none"; select another with WithWriterCodec.
func Create(path string, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		codecName:       "none",
		approxBlockSize: DefaultApproxBlockSize,
		levelBuilders:   make(map[block.Level]*block.IndexBuilder),
		levelBlockCount: make(map[block.Level]int),
		hasher:          sha256.New(),
		state:           stateOpen,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.metadata == nil {
		w.metadata = []byte(`{}`)
	}
	if err := validateMetadataJSON(w.metadata); err != nil {
		return nil, err
	}
	c, err := codec.ByName(w.codecName)
	if err != nil {
		return nil, err
	}
	w.cdc = c

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, zserr.IOErrorf(err, "writer: creating %s", zserr.Safe(path))
	}
	w.f = f

	if _, err := f.WriteAt(MagicBad[:], 0); err != nil {
		f.Close()
		return nil, zserr.IOErrorf(err, "writer: writing initial magic")
	}
	placeholder, err := encodeHeader(0, 0, 0, [32]byte{}, w.codecName, w.metadata)
	if err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.WriteAt(placeholder, magicLen); err != nil {
		f.Close()
		return nil, zserr.IOErrorf(err, "writer: writing header placeholder")
	}
	w.headerEnd = uint64(magicLen + len(placeholder))
	w.state = stateWriting
	return w, nil
}

// checkOrder validates that record is non-decreasing relative to the
// last record accepted by Add or AddDataBlock, per spec.md §4.7's
// BadUsage contract ("stating the first out-of-order pair").
func (w *Writer) checkOrder(record []byte) error {
	if w.haveLast && bytes.Compare(record, w.lastRecord) < 0 {
		return zserr.BadUsagef("writer: out-of-order record: %q follows %q", zserr.Safe(record), zserr.Safe(w.lastRecord))
	}
	w.lastRecord = append(w.lastRecord[:0], record...)
	w.haveLast = true
	return nil
}

// Add appends one record to the stream, packing it into the current
// data block and flushing when the block would exceed
// approx_block_size (spec.md §4.7 step 1).
func (w *Writer) Add(record []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != stateWriting {
		return zserr.BadUsagef("writer: Add called in state other than Writing")
	}
	if err := w.checkOrder(record); err != nil {
		return err
	}
	w.dataBuilder.Add(record)
	if w.dataBuilder.Len() > w.approxBlockSize {
		return w.flushDataBlockLocked()
	}
	return nil
}

// AddDataBlock is the advanced entry point for callers that build
// data blocks directly (spec.md §4.7, "pre-packed add_data_block").
// records must be individually non-decreasing and collectively sort
// after every record accepted so far; the block is flushed
// immediately regardless of approx_block_size.
func (w *Writer) AddDataBlock(records [][]byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != stateWriting {
		return zserr.BadUsagef("writer: AddDataBlock called in state other than Writing")
	}
	if len(records) == 0 {
		return zserr.BadUsagef("writer: AddDataBlock called with no records")
	}
	if w.dataBuilder.Entries() > 0 {
		if err := w.flushDataBlockLocked(); err != nil {
			return err
		}
	}
	var b block.DataBuilder
	for _, rec := range records {
		if err := w.checkOrder(rec); err != nil {
			return err
		}
		b.Add(rec)
	}
	return w.flushBuiltDataBlockLocked(&b)
}

// flushDataBlockLocked flushes the packer's current buffer, if any.
// Caller must hold w.mu.
func (w *Writer) flushDataBlockLocked() error {
	if w.dataBuilder.Entries() == 0 {
		return nil
	}
	b := w.dataBuilder
	w.dataBuilder.Reset()
	return w.flushBuiltDataBlockLocked(&b)
}

func (w *Writer) flushBuiltDataBlockLocked(b *block.DataBuilder) error {
	payload := b.Finish()
	handle, err := w.compressAndWriteLocked(block.DataLevel, payload)
	if err != nil {
		return err
	}
	w.hasher.Write(payload)
	firstKey, err := block.First(payload)
	if err != nil {
		return err
	}
	return w.addToLevelLocked(1, firstKey, handle)
}

// compressAndWriteLocked compresses payload, frames it as a block at
// level, and appends it to the file at the next voffset. Caller must
// hold w.mu.
func (w *Writer) compressAndWriteLocked(level block.Level, payload []byte) (block.Handle, error) {
	compressed, err := w.cdc.Encode(nil, payload)
	if err != nil {
		return block.Handle{}, zserr.Wrap(zserr.BadUsage, err, "writer: compressing level %d block", level)
	}
	encoded := block.Encode(nil, level, compressed)
	handle := block.Handle{Offset: w.nextVoffset, Length: uint64(len(encoded))}
	if _, err := w.f.WriteAt(encoded, int64(w.headerEnd+handle.Offset)); err != nil {
		return block.Handle{}, zserr.IOErrorf(err, "writer: appending block at voffset %d", zserr.Safe(handle.Offset))
	}
	w.nextVoffset += uint64(len(encoded))
	w.lastHandle = handle
	w.haveAnyBlock = true
	w.metrics.RecordBlockWritten(len(encoded))
	return handle, nil
}

// addToLevelLocked appends (key, handle) to level's index buffer,
// cascading a flush upward when the buffer crosses approx_block_size
// (spec.md §4.7 step 4, "Level builder"). A mid-stream flush can never
// be the file's final one, so it always promotes its block to level+1
// rather than guessing it might end up being the root — only Finish's
// forced cascade is in a position to know no more siblings are coming.
// Caller must hold w.mu.
func (w *Writer) addToLevelLocked(level block.Level, key []byte, handle block.Handle) error {
	lb := w.levelBuilders[level]
	if lb == nil {
		lb = &block.IndexBuilder{}
		w.levelBuilders[level] = lb
	}
	lb.Add(key, handle)
	if lb.Len() > w.approxBlockSize {
		return w.flushLevelLocked(level, false)
	}
	return nil
}

// flushLevelLocked flushes level's accumulated index entries as one
// block. isFinalFlush is true only for the forced cascade Finish runs
// once no more records will ever arrive; only then can a lone block
// with nothing pending above it safely stop without being promoted —
// a mid-stream flush always promotes, since a later flush of the same
// level could otherwise need a sibling that was never registered with
// level+1 (spec.md §4.7, "cascade upward until exactly one block
// remains at some level n ≥ 1"). Caller must hold w.mu.
func (w *Writer) flushLevelLocked(level block.Level, isFinalFlush bool) error {
	lb := w.levelBuilders[level]
	payload := lb.Finish()
	w.levelBuilders[level] = nil

	handle, err := w.compressAndWriteLocked(level, payload)
	if err != nil {
		return err
	}
	w.levelBlockCount[level]++

	entries, err := block.Entries(payload)
	if err != nil {
		return err
	}
	firstKey := entries[0].Key

	if isFinalFlush && w.levelBlockCount[level] == 1 && w.levelBuilders[level+1] == nil {
		return nil
	}
	return w.addToLevelLocked(level+1, firstKey, handle)
}

// Finish flushes all buffered records, cascades every partial index
// level upward until exactly one block remains (the root, always at
// level ≥ 1 per spec.md §4.7), writes the final header in place, and
// atomically flips the magic to mark the file complete.
func (w *Writer) Finish() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != stateWriting {
		return zserr.BadUsagef("writer: Finish called in state other than Writing")
	}
	w.state = stateFinishing

	if err := w.flushDataBlockLocked(); err != nil {
		return err
	}
	// Walk every index level up to the format's ceiling, not just until
	// the first empty one: a mid-stream cascade can leave a lower level
	// empty (just flushed and promoted) while a higher level still has
	// pending entries of its own, so stopping at the first gap would
	// silently drop everything above it.
	for level := block.Level(1); level < block.ReservedLevel; level++ {
		lb := w.levelBuilders[level]
		if lb == nil || lb.Entries() == 0 {
			continue
		}
		if err := w.flushLevelLocked(level, true); err != nil {
			return err
		}
	}
	if !w.haveAnyBlock {
		return zserr.BadUsagef("writer: Finish called with no records written")
	}

	var sha [32]byte
	copy(sha[:], w.hasher.Sum(nil))
	totalLen := w.headerEnd + w.nextVoffset

	headerBytes, err := encodeHeader(w.lastHandle.Offset, w.lastHandle.Length, totalLen, sha, w.codecName, w.metadata)
	if err != nil {
		return err
	}
	if _, err := w.f.WriteAt(headerBytes, magicLen); err != nil {
		return zserr.IOErrorf(err, "writer: writing final header")
	}
	if err := w.f.Sync(); err != nil {
		return zserr.IOErrorf(err, "writer: fsync before magic flip")
	}
	if _, err := w.f.WriteAt(MagicGood[:3], 0); err != nil {
		return zserr.IOErrorf(err, "writer: flipping magic")
	}
	if err := w.f.Sync(); err != nil {
		return zserr.IOErrorf(err, "writer: fsync after magic flip")
	}

	w.state = stateClosed
	return w.f.Close()
}

// Close is idempotent from any state. From Writing, it flushes any
// buffered records to disk (so they are not silently dropped) without
// completing the root block, the header, or the magic flip, leaving
// the file with `SSZ…` magic so readers reject it — per spec.md §5,
// "Closing the writer before finish() leaves the file with SSZ
// magic."
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == stateClosed {
		return nil
	}
	if w.state == stateWriting {
		if err := w.flushDataBlockLocked(); err != nil {
			w.state = stateClosed
			w.f.Close()
			return err
		}
	}
	w.state = stateClosed
	return w.f.Close()
}
