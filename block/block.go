// Package block implements the on-disk block framing, CRC tagging,
// and compression of spec.md §4.4 and §6.3: the unit every ZS file
// body is built from, whether a data block (level 0) or an index
// block (level 1..63).
//
// Adapted from the footer/handle parsing idiom of the teacher's
// sstable/table.go (varint-encoded handles, a CRC trailer checked
// before the payload is trusted) but rewritten for ZS's single block
// format — the teacher negotiates three legacy on-disk table formats
// that have no ZS analogue.
package block

import (
	"github.com/cockroachdb/zs/codec"
	"github.com/cockroachdb/zs/internal/crc64xz"
	"github.com/cockroachdb/zs/internal/varint"
	"github.com/cockroachdb/zs/zserr"
)

// Level is the depth tag of a block. 0 is a data block; 1..63 are
// index blocks (interior tree nodes); 64..255 are reserved for future
// versions and are never followed by this reader (spec.md §9, "Open
// question — level-≥64 blocks").
type Level uint8

// DataLevel is the level of every leaf (data) block.
const DataLevel Level = 0

// MaxIndexLevel is the highest level an index block may carry.
const MaxIndexLevel Level = 63

// ReservedLevel is the first level this reader refuses to follow.
const ReservedLevel Level = 64

// IsIndex reports whether l is an interior (index) level.
func (l Level) IsIndex() bool { return l > DataLevel && l < ReservedLevel }

// trailerLen is the width of the CRC-64/XZ trailer.
const trailerLen = 8

// Encode frames level and an already-compressed payload into the
// on-disk block layout of spec.md §6.3:
//
//	uleb128 payload_len ‖ u8 level ‖ compressed_payload ‖ u64le crc
//
// payload_len counts the level byte plus the compressed payload
// (i.e. everything between the length field and the CRC trailer).
func Encode(dst []byte, level Level, compressed []byte) []byte {
	payloadLen := uint64(1 + len(compressed))
	dst = varint.AppendUleb128(dst, payloadLen)
	lenFieldEnd := len(dst)
	dst = append(dst, byte(level))
	dst = append(dst, compressed...)
	crc := crc64xz.Checksum(dst[lenFieldEnd:])
	dst = varint.AppendU64LE(dst, crc)
	return dst
}

// EncodedLen returns the total on-disk length Encode would produce
// for a compressed payload of length n, without doing the work.
func EncodedLen(n int) int {
	return varint.Uleb128Len(uint64(1+n)) + 1 + n + trailerLen
}

// Decoded is a block after CRC verification, framing removal, and
// decompression.
type Decoded struct {
	Level   Level
	Payload []byte
}

// Decode validates and unframes raw on-disk block bytes (exactly
// handle.Length bytes, as the reader fetches them), per spec.md §4.4
// steps 2-5.
func Decode(raw []byte, c codec.Codec) (Decoded, error) {
	payloadLen, n, err := varint.DecodeUleb128(raw)
	if err != nil {
		return Decoded{}, zserr.Wrap(zserr.BadFormat, err, "block: decoding length field")
	}
	if payloadLen < 1 {
		return Decoded{}, zserr.Corruptf("block: payload length %d too small to hold a level byte", payloadLen)
	}
	want := uint64(n) + payloadLen + trailerLen
	if want != uint64(len(raw)) {
		return Decoded{}, zserr.Corruptf("block length mismatch: header declares %d bytes, block handle supplied %d", want, len(raw))
	}

	body := raw[n : uint64(n)+payloadLen]
	trailer := raw[uint64(n)+payloadLen:]
	gotCRC, err := varint.DecodeU64LE(trailer)
	if err != nil {
		return Decoded{}, zserr.Wrap(zserr.BadFormat, err, "block: decoding CRC trailer")
	}
	wantCRC := crc64xz.Checksum(body)
	if gotCRC != wantCRC {
		return Decoded{}, zserr.Corruptf("block CRC mismatch: on-disk %#x, computed %#x", gotCRC, wantCRC)
	}

	level := Level(body[0])
	if level >= ReservedLevel {
		return Decoded{}, zserr.Corruptf("block: level %d is reserved; this reader cannot follow it", level)
	}
	compressed := body[1:]
	payload, err := c.Decode(nil, compressed)
	if err != nil {
		return Decoded{}, zserr.Wrap(zserr.Corrupt, err, "block: decompressing level %d payload", level)
	}
	return Decoded{Level: level, Payload: payload}, nil
}
