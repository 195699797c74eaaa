package block

import (
	"github.com/cockroachdb/zs/internal/varint"
	"github.com/cockroachdb/zs/zserr"
)

// DataBuilder accumulates records into a data-block payload: a
// concatenation of (uleb128 length, bytes) entries (spec.md §6.4).
type DataBuilder struct {
	buf     []byte
	entries int
}

// Reset clears the builder for reuse.
func (b *DataBuilder) Reset() {
	b.buf = b.buf[:0]
	b.entries = 0
}

// Add appends one record to the payload under construction.
func (b *DataBuilder) Add(record []byte) {
	b.buf = varint.AppendUleb128(b.buf, uint64(len(record)))
	b.buf = append(b.buf, record...)
	b.entries++
}

// Len returns the number of bytes the payload would currently encode
// to, without copying.
func (b *DataBuilder) Len() int { return len(b.buf) }

// Entries returns the number of records added since the last Reset.
func (b *DataBuilder) Entries() int { return b.entries }

// Finish returns the built payload. The builder must not be reused
// without a Reset.
func (b *DataBuilder) Finish() []byte { return b.buf }

// DataIterator walks the records of a decoded data-block payload.
type DataIterator struct {
	payload []byte
	pos     int
}

// NewDataIterator returns an iterator over payload, a decoded
// data-block payload as produced by block.Decode.
func NewDataIterator(payload []byte) *DataIterator {
	return &DataIterator{payload: payload}
}

// Next returns the next record, or (nil, false, nil) at the end of
// the payload. A Corrupt error is returned if the payload is
// truncated mid-entry or has trailing garbage after a final partial
// varint — any other framing violation in between is also Corrupt,
// per spec.md §4.5.
func (it *DataIterator) Next() ([]byte, bool, error) {
	if it.pos == len(it.payload) {
		return nil, false, nil
	}
	if it.pos > len(it.payload) {
		return nil, false, zserr.Corruptf("data block: iterator past end of payload")
	}
	length, n, err := varint.DecodeUleb128(it.payload[it.pos:])
	if err != nil {
		return nil, false, zserr.Wrap(zserr.Corrupt, err, "data block: decoding record length at offset %d", it.pos)
	}
	start := it.pos + n
	end := start + int(length)
	if end > len(it.payload) || end < start {
		return nil, false, zserr.Corruptf("data block: record at offset %d truncated (declared length %d)", it.pos, length)
	}
	record := it.payload[start:end]
	it.pos = end
	return record, true, nil
}

// First decodes and returns the payload's first record, without
// affecting iteration state elsewhere. The writer uses it to take a
// data block's index key (spec.md §4.8, invariant 6).
func First(payload []byte) ([]byte, error) {
	it := NewDataIterator(payload)
	rec, ok, err := it.Next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, zserr.Corruptf("data block: payload has no entries")
	}
	return rec, nil
}

// Last decodes and returns the payload's last record.
func Last(payload []byte) ([]byte, error) {
	it := NewDataIterator(payload)
	var last []byte
	var any bool
	for {
		rec, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		last = rec
		any = true
	}
	if !any {
		return nil, zserr.Corruptf("data block: payload has no entries")
	}
	return last, nil
}

// Count decodes and counts the records in payload.
func Count(payload []byte) (int, error) {
	it := NewDataIterator(payload)
	n := 0
	for {
		_, ok, err := it.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			return n, nil
		}
		n++
	}
}
