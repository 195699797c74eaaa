// Package codec implements the named block-payload compression
// schemes spec.md §4.2 and §6.2 describe. A codec is identified by a
// null-padded 16-byte ASCII name stored in the file header; every
// block in a file is compressed with that one codec.
package codec

import (
	"fmt"

	"github.com/cockroachdb/zs/zserr"
)

// NameLen is the fixed width of the codec name field in the header.
const NameLen = 16

// Codec compresses and decompresses block payloads.
type Codec interface {
	// Name is the codec's canonical name, at most NameLen bytes.
	Name() string
	// Encode compresses src, appending to dst.
	Encode(dst, src []byte) ([]byte, error)
	// Decode decompresses src, appending to dst.
	Decode(dst, src []byte) ([]byte, error)
}

var registry = map[string]Codec{}

func register(c Codec) {
	if len(c.Name()) > NameLen {
		panic(fmt.Sprintf("codec: name %q exceeds %d bytes", c.Name(), NameLen))
	}
	registry[c.Name()] = c
}

// ByName returns the registered codec for name, or a BadFormat error
// if name is not a recognized codec — spec.md §4.2: "Unknown codec
// name ⇒ BadFormat at open."
func ByName(name string) (Codec, error) {
	c, ok := registry[name]
	if !ok {
		return nil, zserr.BadFormatf("codec: unknown codec %q", zserr.Safe(name))
	}
	return c, nil
}

// EncodeHeaderField renders a codec name as the null-padded 16-byte
// ASCII field spec.md §6.2 stores in the header.
func EncodeHeaderField(name string) ([NameLen]byte, error) {
	var out [NameLen]byte
	if len(name) > NameLen {
		return out, zserr.BadUsagef("codec: name %q longer than %d bytes", name, NameLen)
	}
	copy(out[:], name)
	return out, nil
}

// DecodeHeaderField extracts the codec name from its null-padded
// on-disk field.
func DecodeHeaderField(field [NameLen]byte) string {
	n := NameLen
	for n > 0 && field[n-1] == 0 {
		n--
	}
	return string(field[:n])
}
