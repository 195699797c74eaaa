// Package framing implements the minimal record-framing formats the
// `zs` CLI's `make` and `dump` subcommands read and write on stdin
// and stdout — spec.md §1 calls these "out of scope... specified only
// by their framing rules" and §6.6 names three: a u64le length
// prefix, a uleb128 length prefix, or a caller-supplied terminator
// byte string.
package framing

import (
	"bufio"
	"bytes"
	"io"

	"github.com/cockroachdb/zs/internal/varint"
	"github.com/cockroachdb/zs/zserr"
)

// Mode selects a record framing.
type Mode int

const (
	// U64LE frames each record with an 8-byte little-endian length
	// prefix.
	U64LE Mode = iota
	// Uleb128 frames each record with a uleb128 length prefix.
	Uleb128
	// Terminator frames records by a caller-supplied delimiter byte
	// string; records must not contain the terminator.
	Terminator
)

// Reader reads successive records from an underlying byte stream
// according to a Mode.
type Reader struct {
	br         *bufio.Reader
	mode       Mode
	terminator []byte
}

// NewReader wraps r for Mode-framed reading. terminator is only
// consulted when mode == Terminator.
func NewReader(r io.Reader, mode Mode, terminator []byte) *Reader {
	return &Reader{br: bufio.NewReader(r), mode: mode, terminator: terminator}
}

// Next returns the next record, or (nil, false, nil) at clean EOF.
func (fr *Reader) Next() ([]byte, bool, error) {
	switch fr.mode {
	case U64LE:
		return fr.nextLengthPrefixed(8)
	case Uleb128:
		return fr.nextUleb128Prefixed()
	case Terminator:
		return fr.nextTerminated()
	default:
		return nil, false, zserr.BadUsagef("framing: unknown mode %d", fr.mode)
	}
}

func (fr *Reader) nextLengthPrefixed(prefixLen int) ([]byte, bool, error) {
	prefix := make([]byte, prefixLen)
	if _, err := io.ReadFull(fr.br, prefix); err != nil {
		if err == io.EOF {
			return nil, false, nil
		}
		return nil, false, zserr.BadFormatf("framing: short length prefix: %v", err)
	}
	n, err := varint.DecodeU64LE(prefix)
	if err != nil {
		return nil, false, zserr.Wrap(zserr.BadFormat, err, "framing: decoding u64le length prefix")
	}
	rec := make([]byte, n)
	if _, err := io.ReadFull(fr.br, rec); err != nil {
		return nil, false, zserr.Wrap(zserr.BadFormat, err, "framing: short record body (declared %d bytes)", n)
	}
	return rec, true, nil
}

func (fr *Reader) nextUleb128Prefixed() ([]byte, bool, error) {
	first, err := fr.br.ReadByte()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, zserr.BadFormatf("framing: reading uleb128 prefix: %v", err)
	}
	buf := []byte{first}
	for first&0x80 != 0 {
		b, err := fr.br.ReadByte()
		if err != nil {
			return nil, false, zserr.Wrap(zserr.BadFormat, err, "framing: truncated uleb128 prefix")
		}
		buf = append(buf, b)
		first = b
	}
	n, _, err := varint.DecodeUleb128(buf)
	if err != nil {
		return nil, false, zserr.Wrap(zserr.BadFormat, err, "framing: decoding uleb128 length prefix")
	}
	rec := make([]byte, n)
	if _, err := io.ReadFull(fr.br, rec); err != nil {
		return nil, false, zserr.Wrap(zserr.BadFormat, err, "framing: short record body (declared %d bytes)", n)
	}
	return rec, true, nil
}

func (fr *Reader) nextTerminated() ([]byte, bool, error) {
	if len(fr.terminator) == 0 {
		return nil, false, zserr.BadUsagef("framing: terminator mode requires a non-empty terminator")
	}
	var buf []byte
	for {
		b, err := fr.br.ReadByte()
		if err == io.EOF {
			if len(buf) == 0 {
				return nil, false, nil
			}
			return nil, false, zserr.BadFormatf("framing: input ended mid-record without a terminator")
		}
		if err != nil {
			return nil, false, zserr.IOErrorf(err, "framing: reading record")
		}
		buf = append(buf, b)
		if bytes.HasSuffix(buf, fr.terminator) {
			return buf[:len(buf)-len(fr.terminator)], true, nil
		}
	}
}

// Writer writes records to an underlying byte stream according to a
// Mode.
type Writer struct {
	w          io.Writer
	mode       Mode
	terminator []byte
}

// NewWriter wraps w for Mode-framed writing.
func NewWriter(w io.Writer, mode Mode, terminator []byte) *Writer {
	return &Writer{w: w, mode: mode, terminator: terminator}
}

// Write emits one framed record.
func (fw *Writer) Write(record []byte) error {
	switch fw.mode {
	case U64LE:
		prefix := varint.AppendU64LE(nil, uint64(len(record)))
		if _, err := fw.w.Write(prefix); err != nil {
			return zserr.IOErrorf(err, "framing: writing length prefix")
		}
		if _, err := fw.w.Write(record); err != nil {
			return zserr.IOErrorf(err, "framing: writing record body")
		}
		return nil
	case Uleb128:
		prefix := varint.AppendUleb128(nil, uint64(len(record)))
		if _, err := fw.w.Write(prefix); err != nil {
			return zserr.IOErrorf(err, "framing: writing length prefix")
		}
		if _, err := fw.w.Write(record); err != nil {
			return zserr.IOErrorf(err, "framing: writing record body")
		}
		return nil
	case Terminator:
		if len(fw.terminator) == 0 {
			return zserr.BadUsagef("framing: terminator mode requires a non-empty terminator")
		}
		if bytes.Contains(record, fw.terminator) {
			return zserr.BadUsagef("framing: record contains the terminator sequence")
		}
		if _, err := fw.w.Write(record); err != nil {
			return zserr.IOErrorf(err, "framing: writing record body")
		}
		if _, err := fw.w.Write(fw.terminator); err != nil {
			return zserr.IOErrorf(err, "framing: writing terminator")
		}
		return nil
	default:
		return zserr.BadUsagef("framing: unknown mode %d", fw.mode)
	}
}
