// Package zs implements the ZS container format: a read-only,
// terabyte-scale-capable, compressed, CRC-checked B+-tree-like
// structure over an ordered multiset of opaque binary records
// (spec.md §1-§3). This package provides the writer, reader, and
// validator; codec, transport, and block framing live in sibling
// packages so advanced callers can drive them directly.
package zs

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/cockroachdb/zs/block"
	"github.com/cockroachdb/zs/codec"
	"github.com/cockroachdb/zs/internal/crc64xz"
	"github.com/cockroachdb/zs/internal/varint"
	"github.com/cockroachdb/zs/transport"
	"github.com/cockroachdb/zs/zserr"
)

// MagicGood is written once the file body and header are complete —
// spec.md §6.1, "complete, valid file".
var MagicGood = [8]byte{0x5A, 0x53, 0x53, 0x1C, 0x8E, 0x6C, 0x00, 0x01}

// MagicBad is the magic every file starts with before the writer
// flips it on Finish — spec.md §6.1, "incomplete/in-progress".
var MagicBad = [8]byte{0x53, 0x53, 0x5A, 0x1C, 0x8E, 0x6C, 0x00, 0x01}

const magicLen = 8

// headerTrailerLen is the width of the header's own CRC-64/XZ
// trailer.
const headerTrailerLen = 8

// Header holds the parsed, read-only fields of a ZS file, per
// spec.md §6.2.
type Header struct {
	RootOffset      uint64
	RootLength      uint64
	TotalFileLength uint64
	DataSHA256      [32]byte
	Codec           string
	Metadata        json.RawMessage
}

// RootHandle returns the root index block's handle.
func (h Header) RootHandle() block.Handle {
	return block.Handle{Offset: h.RootOffset, Length: h.RootLength}
}

// encodeHeader renders fields into the on-disk header layout of
// spec.md §6.2 (everything between magic and the trailing header
// CRC), including the header_len prefix and trailing CRC.
func encodeHeader(rootOff, rootLen, totalLen uint64, sha [32]byte, codecName string, metadata []byte) ([]byte, error) {
	field, err := codec.EncodeHeaderField(codecName)
	if err != nil {
		return nil, err
	}

	var body []byte
	body = varint.AppendU64LE(body, rootOff)
	body = varint.AppendU64LE(body, rootLen)
	body = varint.AppendU64LE(body, totalLen)
	body = append(body, sha[:]...)
	body = append(body, field[:]...)
	body = varint.AppendU64LE(body, uint64(len(metadata)))
	body = append(body, metadata...)

	return encodeHeaderRaw(body)
}

// encodeHeaderRaw wraps an already-assembled header body (everything
// between header_len and the trailing CRC) with its length prefix and
// CRC-64/XZ trailer. Exposed for tests exercising the "ignore
// trailing bytes" forward-compatibility rule of spec.md §9.
func encodeHeaderRaw(body []byte) ([]byte, error) {
	out := varint.AppendU64LE(nil, uint64(len(body)))
	out = append(out, body...)
	crc := crc64xz.Checksum(body)
	out = varint.AppendU64LE(out, crc)
	return out, nil
}

// parseHeader parses the header region (everything after the 8-byte
// magic) from buf, which must contain at least the header_len field.
// It returns the parsed Header and the total number of header bytes
// consumed (header_len field + header_len + trailing CRC).
func parseHeader(buf []byte) (Header, int, error) {
	headerLen, err := varint.DecodeU64LE(buf)
	if err != nil {
		return Header{}, 0, zserr.Wrap(zserr.BadFormat, err, "header: decoding header_len")
	}
	need := 8 + headerLen + headerTrailerLen
	if uint64(len(buf)) < need {
		return Header{}, 0, zserr.BadFormatf("header: truncated (need %d bytes, have %d)", need, len(buf))
	}

	body := buf[8 : 8+headerLen]
	trailer := buf[8+headerLen : need]
	gotCRC, err := varint.DecodeU64LE(trailer)
	if err != nil {
		return Header{}, 0, zserr.Wrap(zserr.BadFormat, err, "header: decoding CRC trailer")
	}
	wantCRC := crc64xz.Checksum(body)
	if gotCRC != wantCRC {
		return Header{}, 0, zserr.Corruptf("header CRC mismatch: on-disk %#x, computed %#x", gotCRC, wantCRC)
	}

	var h Header
	rest := body
	h.RootOffset, err = varint.DecodeU64LE(rest)
	if err != nil {
		return Header{}, 0, zserr.Wrap(zserr.BadFormat, err, "header: decoding root_index_offset")
	}
	rest = rest[8:]
	h.RootLength, err = varint.DecodeU64LE(rest)
	if err != nil {
		return Header{}, 0, zserr.Wrap(zserr.BadFormat, err, "header: decoding root_index_length")
	}
	rest = rest[8:]
	h.TotalFileLength, err = varint.DecodeU64LE(rest)
	if err != nil {
		return Header{}, 0, zserr.Wrap(zserr.BadFormat, err, "header: decoding total_file_length")
	}
	rest = rest[8:]
	if len(rest) < 32 {
		return Header{}, 0, zserr.BadFormatf("header: truncated sha256 field")
	}
	copy(h.DataSHA256[:], rest[:32])
	rest = rest[32:]
	if len(rest) < codec.NameLen {
		return Header{}, 0, zserr.BadFormatf("header: truncated codec field")
	}
	var field [codec.NameLen]byte
	copy(field[:], rest[:codec.NameLen])
	h.Codec = codec.DecodeHeaderField(field)
	rest = rest[codec.NameLen:]

	metaLen, err := varint.DecodeU64LE(rest)
	if err != nil {
		return Header{}, 0, zserr.Wrap(zserr.BadFormat, err, "header: decoding metadata_len")
	}
	rest = rest[8:]
	if uint64(len(rest)) < metaLen {
		return Header{}, 0, zserr.BadFormatf("header: truncated metadata (declared %d bytes, have %d)", metaLen, len(rest))
	}
	metaBytes := rest[:metaLen]
	if !utf8.Valid(metaBytes) {
		return Header{}, 0, zserr.BadFormatf("header: metadata is not valid UTF-8")
	}
	var probe interface{}
	if err := json.Unmarshal(metaBytes, &probe); err != nil {
		return Header{}, 0, zserr.Wrap(zserr.BadFormat, err, "header: metadata is not valid JSON")
	}
	if _, ok := probe.(map[string]interface{}); !ok {
		return Header{}, 0, zserr.BadFormatf("header: metadata JSON is not a top-level object")
	}
	h.Metadata = json.RawMessage(append([]byte(nil), metaBytes...))
	// Trailing bytes inside header_len after metadata are ignored
	// (spec.md §9, "Open question — metadata trailing bytes").

	return h, int(need), nil
}

// validateMetadataJSON is exposed for the writer, which must refuse
// to build a file whose metadata would fail the reader's own checks.
func validateMetadataJSON(metadata []byte) error {
	if !utf8.Valid(metadata) {
		return zserr.BadUsagef("metadata: not valid UTF-8")
	}
	var probe interface{}
	if err := json.Unmarshal(metadata, &probe); err != nil {
		return zserr.Wrap(zserr.BadUsage, err, "metadata: not valid JSON")
	}
	if _, ok := probe.(map[string]interface{}); !ok {
		return zserr.BadUsagef("metadata: must be a top-level JSON object")
	}
	return nil
}

// readMagicAndHeader fetches and parses the file's magic and header,
// returning the header and the voffset base (header_end, the first
// byte after the header — all Handle offsets are relative to it).
//
// It reads in two passes: first just enough to learn header_len
// (spec.md §6.2's first field), then exactly the bytes that field
// declares, so a single large HTTP range transport never needs a
// third fetch to grow a guessed prefix.
func readMagicAndHeader(ctx context.Context, tr transport.Transport) (Header, uint64, error) {
	length, err := tr.Length(ctx)
	if err != nil {
		return Header{}, 0, err
	}
	const minPrefix = magicLen + 8 // magic + header_len field
	if length < minPrefix {
		return Header{}, 0, zserr.BadFormatf("file too small to contain a header")
	}

	prefix := make([]byte, minPrefix)
	if err := tr.ReadAt(ctx, prefix, 0); err != nil {
		return Header{}, 0, err
	}

	var magic [8]byte
	copy(magic[:], prefix[:8])
	switch magic {
	case MagicGood:
		// continue parsing
	case MagicBad:
		return Header{}, 0, zserr.Corruptf("incomplete file: writer never finished")
	default:
		return Header{}, 0, zserr.BadFormatf("bad magic number: %x", magic)
	}

	headerLen, err := varint.DecodeU64LE(prefix[magicLen:])
	if err != nil {
		return Header{}, 0, zserr.Wrap(zserr.BadFormat, err, "header: decoding header_len")
	}
	need := uint64(8) + headerLen + headerTrailerLen
	if magicLen+need > length {
		return Header{}, 0, zserr.BadFormatf("header: declares %d bytes but file is only %d bytes", need, length)
	}

	headerRegion := make([]byte, need)
	if err := tr.ReadAt(ctx, headerRegion, magicLen); err != nil {
		return Header{}, 0, err
	}

	h, n, err := parseHeader(headerRegion)
	if err != nil {
		return Header{}, 0, err
	}
	headerEnd := uint64(magicLen + n)
	if h.TotalFileLength != length {
		return Header{}, 0, zserr.Corruptf("file length mismatch: header declares %d, transport reports %d", h.TotalFileLength, length)
	}
	if _, codecErr := codec.ByName(h.Codec); codecErr != nil {
		return Header{}, 0, codecErr
	}
	return h, headerEnd, nil
}
