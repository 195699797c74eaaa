package codec

import (
	"bytes"
	"io"

	"github.com/dsnet/compress/bzip2"
)

func init() { register(bzip2Codec{}) }

// bzip2Codec implements the bz2 codec using dsnet/compress/bzip2, the
// only library in the example pack that can both read and write
// bzip2 streams — stdlib compress/bzip2 is decode-only and cannot
// serve the writer side of ZS at all.
type bzip2Codec struct{}

func (bzip2Codec) Name() string { return "bz2" }

func (bzip2Codec) Encode(dst, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriterLevel(&buf, bzip2.BestCompression)
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

func (bzip2Codec) Decode(dst, src []byte) ([]byte, error) {
	r, err := bzip2.NewReader(bytes.NewReader(src), nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	buf := bytes.NewBuffer(dst)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
