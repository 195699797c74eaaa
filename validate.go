package zs

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"io"

	"github.com/cockroachdb/zs/block"
	"github.com/cockroachdb/zs/zserr"
)

// blockRef identifies one on-disk block by its voffset handle, used
// to reconcile the tree-walk's reachable set against a linear body
// scan (spec.md §4.8, invariant 3).
type blockRef struct {
	handle block.Handle
	level  block.Level
}

// Validate re-reads the entire file and enforces every invariant of
// spec.md §3 and every framing rule of §4.1-§4.5. It returns the
// first violation found, wrapped with the appropriate Kind.
func (r *Reader) Validate(ctx context.Context) error {
	reachable := make(map[uint64]blockRef)
	if err := r.walkForValidation(ctx, r.rootHandle(), block.ReservedLevel, nil, nil, reachable); err != nil {
		return err
	}

	if err := r.reconcileBodyScan(ctx, reachable); err != nil {
		return err
	}

	if err := r.verifySHA256(ctx); err != nil {
		return err
	}

	return nil
}

// walkForValidation descends the tree from h, checking invariants 1,
// 4, 5, 6 along the way and recording every visited block into
// reachable (invariant 3). parentLevel is block.ReservedLevel at the
// root (no parent to check against). lowerBoundKey and upperBoundKey
// bracket the span this subtree is permitted to cover, propagated
// down from the parent's separator keys (invariant 6); either may be
// nil for an unbounded side.
func (r *Reader) walkForValidation(ctx context.Context, h block.Handle, parentLevel block.Level, lowerBoundKey, upperBoundKey []byte, reachable map[uint64]blockRef) error {
	if _, dup := reachable[h.Offset]; dup {
		return zserr.Corruptf("validate: block at voffset %d referenced more than once (invariant 3)", h.Offset)
	}
	if bodyLen := r.header.TotalFileLength - r.headerEnd; h.Offset > bodyLen || h.Length > bodyLen-h.Offset {
		return zserr.Corruptf("validate: block handle (voffset %d, length %d) extends past the end of the file", h.Offset, h.Length)
	}

	decoded, err := r.fetchBlock(ctx, h)
	if err != nil {
		return err
	}
	reachable[h.Offset] = blockRef{handle: h, level: decoded.Level}

	if parentLevel != block.ReservedLevel && decoded.Level.IsIndex() && parentLevel != decoded.Level+1 {
		return zserr.Corruptf("validate: index block at level %d referenced by level %d parent, want level %d (invariant 4)",
			decoded.Level, parentLevel, parentLevel-1)
	}
	if parentLevel != block.ReservedLevel && !decoded.Level.IsIndex() && parentLevel != 1 {
		return zserr.Corruptf("validate: data block referenced by level %d parent, want level 1 (invariant 4)", parentLevel)
	}

	if decoded.Level == block.DataLevel {
		return r.validateDataBlock(decoded.Payload, lowerBoundKey, upperBoundKey)
	}

	entries, err := block.Entries(decoded.Payload)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return zserr.Corruptf("validate: index block at voffset %d has no entries", h.Offset)
	}
	for i, e := range entries {
		if i > 0 && bytes.Compare(entries[i-1].Key, e.Key) > 0 {
			return zserr.Corruptf("validate: index keys out of order at voffset %d (invariant 5)", h.Offset)
		}
	}
	if lowerBoundKey != nil && bytes.Compare(entries[0].Key, lowerBoundKey) < 0 {
		return zserr.Corruptf("validate: first index key %q precedes inherited lower bound %q (invariant 6)", entries[0].Key, lowerBoundKey)
	}

	for i, e := range entries {
		childLower := e.Key
		var childUpper []byte
		if i+1 < len(entries) {
			childUpper = entries[i+1].Key
		} else {
			childUpper = upperBoundKey
		}
		if err := r.walkForValidation(ctx, e.Child, decoded.Level, childLower, childUpper, reachable); err != nil {
			return err
		}
	}
	return nil
}

// validateDataBlock checks invariant 1 (non-decreasing within the
// block) and, via lowerBoundKey/upperBoundKey, the data-block half of
// invariant 6 (the separator key bounds the span correctly).
func (r *Reader) validateDataBlock(payload, lowerBoundKey, upperBoundKey []byte) error {
	it := block.NewDataIterator(payload)
	var prev []byte
	var havePrev bool
	first := true
	for {
		rec, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if havePrev && bytes.Compare(prev, rec) > 0 {
			return zserr.Corruptf("validate: records out of order within data block (invariant 1): %q then %q", prev, rec)
		}
		if first && lowerBoundKey != nil && bytes.Compare(rec, lowerBoundKey) < 0 {
			return zserr.Corruptf("validate: first record %q precedes separator key %q (invariant 6)", rec, lowerBoundKey)
		}
		if upperBoundKey != nil && bytes.Compare(rec, upperBoundKey) > 0 {
			return zserr.Corruptf("validate: record %q greater than next separator key %q (invariant 6)", rec, upperBoundKey)
		}
		prev = append(prev[:0:0], rec...)
		havePrev = true
		first = false
	}
	if !havePrev {
		return zserr.Corruptf("validate: data block has no entries")
	}
	return nil
}

// reconcileBodyScan linearly streams the file body — without loading
// it into memory, since files are terabyte-scale — learning each
// block's on-disk length from its leading uleb128 field, and checks
// that the set of (offset, length) pairs visited equals exactly the
// set the tree walk reached (invariant 3: every block except the root
// is referenced by exactly one index entry, and the walk already
// rejected double-references — this additionally catches orphaned
// blocks the walk never reached).
func (r *Reader) reconcileBodyScan(ctx context.Context, reachable map[uint64]blockRef) error {
	length, err := r.tr.Length(ctx)
	if err != nil {
		return err
	}
	if length < r.headerEnd {
		return zserr.Corruptf("validate: file shorter than header_end")
	}
	bodyLen := length - r.headerEnd

	stream, err := r.tr.StreamAt(ctx, r.headerEnd)
	if err != nil {
		return err
	}
	defer stream.Close()
	br := bufio.NewReader(stream)

	seen := make(map[uint64]bool, len(reachable))
	var pos uint64
	for pos < bodyLen {
		if err := ctx.Err(); err != nil {
			return zserr.Wrap(zserr.Cancelled, err, "validate: body scan")
		}
		payloadLen, n, err := readUlebFromReader(br)
		if err != nil {
			return zserr.Wrap(zserr.BadFormat, err, "validate: decoding block length field at voffset %d", pos)
		}
		total := uint64(n) + payloadLen + 8
		if pos+total > bodyLen {
			return zserr.Corruptf("validate: block at voffset %d truncated", pos)
		}
		if _, err := io.CopyN(io.Discard, br, int64(total)-int64(n)); err != nil {
			return zserr.IOErrorf(err, "validate: skipping block body at voffset %d", pos)
		}

		h := block.Handle{Offset: pos, Length: total}
		ref, ok := reachable[h.Offset]
		if !ok {
			return zserr.Corruptf("validate: block at voffset %d exists in the body but is unreached by the tree (invariant 3)", h.Offset)
		}
		if ref.handle.Length != h.Length {
			return zserr.Corruptf("validate: block at voffset %d has length %d in the body but %d via its index entry", h.Offset, h.Length, ref.handle.Length)
		}
		seen[h.Offset] = true
		pos += total
	}
	if len(seen) != len(reachable) {
		return zserr.Corruptf("validate: tree walk reached %d blocks but the body scan found %d (invariant 3)", len(reachable), len(seen))
	}
	return nil
}

// readUlebFromReader decodes one uleb128 value from a streaming
// reader, returning the value and the number of bytes consumed.
func readUlebFromReader(br *bufio.Reader) (uint64, int, error) {
	var result uint64
	var shift uint
	n := 0
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		n++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift >= 70 {
			return 0, 0, zserr.BadFormatf("validate: uleb128 exceeds 64 bits")
		}
	}
	return result, n, nil
}

// verifySHA256 recomputes SHA-256 over every data block's decoded
// payload, in file order, and compares it against the header
// (invariant 8).
func (r *Reader) verifySHA256(ctx context.Context) error {
	h := sha256.New()
	leaves, err := r.collectLeaves(ctx, r.rootHandle(), nil, nil)
	if err != nil {
		return err
	}
	for _, handle := range leaves {
		decoded, err := r.fetchBlock(ctx, handle)
		if err != nil {
			return err
		}
		h.Write(decoded.Payload)
	}
	var got [32]byte
	copy(got[:], h.Sum(nil))
	if got != r.header.DataSHA256 {
		return zserr.Corruptf("validate: data SHA-256 mismatch: header has %x, computed %x (invariant 8)", r.header.DataSHA256, got)
	}
	return nil
}
