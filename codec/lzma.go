package codec

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"
)

func init() { register(lzmaCodec{}) }

// lzmaCodec implements the lzma codec as an .xz container over LZMA2,
// via github.com/ulikunitz/xz — a dependency of the dsnet-compress
// pack entry and of two other_examples files, and the only pure-Go
// LZMA/XZ implementation in the pack.
type lzmaCodec struct{}

func (lzmaCodec) Name() string { return "lzma" }

func (lzmaCodec) Encode(dst, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return append(dst, buf.Bytes()...), nil
}

func (lzmaCodec) Decode(dst, src []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	buf := bytes.NewBuffer(dst)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
