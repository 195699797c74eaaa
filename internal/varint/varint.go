// Package varint implements the canonical uleb128 and u64le encodings
// spec.md §4.1 requires: little-endian base-128, continuation bit is
// the MSB, and — unlike encoding/binary's Uvarint — decoding rejects
// any non-shortest ("non-canonical") encoding.
package varint

import "github.com/cockroachdb/zs/zserr"

// MaxLen is the longest a uleb128 encoding of a uint64 can legally be.
const MaxLen = 10

// AppendUleb128 appends the canonical uleb128 encoding of v to dst and
// returns the extended slice.
func AppendUleb128(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Uleb128Len returns the length in bytes of v's canonical encoding.
func Uleb128Len(v uint64) int {
	n := 1
	for v >= 0x80 {
		n++
		v >>= 7
	}
	return n
}

// DecodeUleb128 reads a canonical uleb128 value from the front of buf.
// It returns the value, the number of bytes consumed, and an error of
// kind BadFormat if buf is truncated, the encoding is wider than 64
// bits, or the encoding is not the shortest possible (a trailing
// 0x80..0x00 continuation byte sequence).
func DecodeUleb128(buf []byte) (value uint64, n int, err error) {
	var shift uint
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if shift >= 64 {
			return 0, 0, zserr.BadFormatf("uleb128: value wider than 64 bits")
		}
		payload := uint64(b & 0x7f)
		if shift == 63 && payload > 1 {
			return 0, 0, zserr.BadFormatf("uleb128: value overflows 64 bits")
		}
		value |= payload << shift
		if b&0x80 == 0 {
			n = i + 1
			// Canonical encoding check: the final byte's payload must
			// not be zero unless it is the first (and only) byte —
			// i.e. no byte beyond the first may be 0x00 with no
			// continuation, since that means a shorter encoding
			// exists.
			if n > 1 && payload == 0 {
				return 0, 0, zserr.BadFormatf("uleb128: non-canonical encoding (trailing zero byte)")
			}
			return value, n, nil
		}
		shift += 7
	}
	return 0, 0, zserr.BadFormatf("uleb128: truncated")
}

// AppendU64LE appends v to dst as 8 little-endian bytes.
func AppendU64LE(dst []byte, v uint64) []byte {
	return append(dst,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// DecodeU64LE reads 8 little-endian bytes from the front of buf.
func DecodeU64LE(buf []byte) (uint64, error) {
	if len(buf) < 8 {
		return 0, zserr.BadFormatf("u64le: truncated (need 8 bytes, have %d)", len(buf))
	}
	return uint64(buf[0]) | uint64(buf[1])<<8 | uint64(buf[2])<<16 | uint64(buf[3])<<24 |
		uint64(buf[4])<<32 | uint64(buf[5])<<40 | uint64(buf[6])<<48 | uint64(buf[7])<<56, nil
}
