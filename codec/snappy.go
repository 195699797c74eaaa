package codec

import "github.com/golang/snappy"

func init() { register(snappyCodec{}) }

// snappyCodec is an extension codec beyond spec.md's four named
// schemes, wired because golang/snappy is pebble's own historical
// default block codec and the header's codec field has room for it.
type snappyCodec struct{}

func (snappyCodec) Name() string { return "snappy" }

func (snappyCodec) Encode(dst, src []byte) ([]byte, error) {
	out := snappy.Encode(nil, src)
	return append(dst, out...), nil
}

func (snappyCodec) Decode(dst, src []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, src)
	if err != nil {
		return nil, err
	}
	return append(dst, out...), nil
}
