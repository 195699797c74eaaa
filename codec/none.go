package codec

func init() { register(noneCodec{}) }

// noneCodec is the identity codec: block payloads are stored
// uncompressed.
type noneCodec struct{}

func (noneCodec) Name() string { return "none" }

func (noneCodec) Encode(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}

func (noneCodec) Decode(dst, src []byte) ([]byte, error) {
	return append(dst, src...), nil
}
