package block

import (
	"github.com/cockroachdb/zs/internal/varint"
	"github.com/cockroachdb/zs/zserr"
)

// Handle locates a block: its voffset and its total on-disk length
// (the length field, the level byte, the compressed payload, and the
// trailing CRC — everything the reader needs to fetch in one range
// read before calling Decode). Adapted from the varint-encoded offset/length pair idiom in
// the teacher's sstable/table.go block.Handle, simplified to the one
// pair ZS needs (no block-properties suffix).
type Handle struct {
	Offset uint64
	Length uint64
}

// AppendVarints appends the handle as two uleb128 values, matching
// the index-entry encoding of spec.md §6.5
// (child_voffset, child_length).
func (h Handle) AppendVarints(dst []byte) []byte {
	dst = varint.AppendUleb128(dst, h.Offset)
	dst = varint.AppendUleb128(dst, h.Length)
	return dst
}

// DecodeHandle reads a Handle from the front of buf, returning the
// number of bytes consumed.
func DecodeHandle(buf []byte) (Handle, int, error) {
	off, n1, err := varint.DecodeUleb128(buf)
	if err != nil {
		return Handle{}, 0, zserr.Wrap(zserr.BadFormat, err, "block: decoding handle offset")
	}
	length, n2, err := varint.DecodeUleb128(buf[n1:])
	if err != nil {
		return Handle{}, 0, zserr.Wrap(zserr.BadFormat, err, "block: decoding handle length")
	}
	return Handle{Offset: off, Length: length}, n1 + n2, nil
}
