package codec

import "github.com/DataDog/zstd"

func init() { register(zstdCodec{}) }

// zstdCodec is an extension codec beyond spec.md's four named
// schemes (none/deflate/bz2/lzma): the header's codec field is an
// open 16-byte ASCII namespace, and DataDog/zstd is a dependency the
// teacher itself carries.
type zstdCodec struct{}

func (zstdCodec) Name() string { return "zstd" }

func (zstdCodec) Encode(dst, src []byte) ([]byte, error) {
	out, err := zstd.Compress(nil, src)
	if err != nil {
		return nil, err
	}
	return append(dst, out...), nil
}

func (zstdCodec) Decode(dst, src []byte) ([]byte, error) {
	out, err := zstd.Decompress(nil, src)
	if err != nil {
		return nil, err
	}
	return append(dst, out...), nil
}
