package block

import (
	"github.com/cockroachdb/zs/internal/varint"
	"github.com/cockroachdb/zs/zserr"
)

// IndexEntry is one (key, child) pair of an index-block payload
// (spec.md §6.5).
type IndexEntry struct {
	Key   []byte
	Child Handle
}

// IndexBuilder accumulates (key, child) entries into an index-block
// payload: a concatenation of (uleb128 keylen, key, uleb128
// child_voffset, uleb128 child_length) entries.
type IndexBuilder struct {
	buf     []byte
	entries int
}

// Reset clears the builder for reuse.
func (b *IndexBuilder) Reset() {
	b.buf = b.buf[:0]
	b.entries = 0
}

// Add appends one separator key and its child handle.
func (b *IndexBuilder) Add(key []byte, child Handle) {
	b.buf = varint.AppendUleb128(b.buf, uint64(len(key)))
	b.buf = append(b.buf, key...)
	b.buf = child.AppendVarints(b.buf)
	b.entries++
}

// Len returns the number of bytes the payload would currently encode
// to.
func (b *IndexBuilder) Len() int { return len(b.buf) }

// Entries returns the number of entries added since the last Reset.
func (b *IndexBuilder) Entries() int { return b.entries }

// Finish returns the built payload.
func (b *IndexBuilder) Finish() []byte { return b.buf }

// IndexIterator walks the entries of a decoded index-block payload.
type IndexIterator struct {
	payload []byte
	pos     int
}

// NewIndexIterator returns an iterator over payload, a decoded
// index-block payload as produced by block.Decode.
func NewIndexIterator(payload []byte) *IndexIterator {
	return &IndexIterator{payload: payload}
}

// Next returns the next entry, or (IndexEntry{}, false, nil) at the
// end of the payload.
func (it *IndexIterator) Next() (IndexEntry, bool, error) {
	if it.pos == len(it.payload) {
		return IndexEntry{}, false, nil
	}
	if it.pos > len(it.payload) {
		return IndexEntry{}, false, zserr.Corruptf("index block: iterator past end of payload")
	}
	keyLen, n, err := varint.DecodeUleb128(it.payload[it.pos:])
	if err != nil {
		return IndexEntry{}, false, zserr.Wrap(zserr.Corrupt, err, "index block: decoding key length at offset %d", it.pos)
	}
	keyStart := it.pos + n
	keyEnd := keyStart + int(keyLen)
	if keyEnd > len(it.payload) || keyEnd < keyStart {
		return IndexEntry{}, false, zserr.Corruptf("index block: key at offset %d truncated", it.pos)
	}
	key := it.payload[keyStart:keyEnd]

	handle, hn, err := DecodeHandle(it.payload[keyEnd:])
	if err != nil {
		return IndexEntry{}, false, zserr.Wrap(zserr.Corrupt, err, "index block: decoding child handle for key at offset %d", it.pos)
	}
	it.pos = keyEnd + hn
	return IndexEntry{Key: key, Child: handle}, true, nil
}

// Entries decodes every entry in payload into a slice, in order. Used
// by the reader's tree descent and by the validator.
func Entries(payload []byte) ([]IndexEntry, error) {
	it := NewIndexIterator(payload)
	var out []IndexEntry
	for {
		e, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, e)
	}
}
