package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTripAllCodecs(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeated: " +
		"the quick brown fox jumps over the lazy dog")
	for _, name := range []string{"none", "deflate", "bz2", "lzma", "zstd", "snappy"} {
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			require.NoError(t, err)

			compressed, err := c.Encode(nil, payload)
			require.NoError(t, err)

			decoded, err := c.Decode(nil, compressed)
			require.NoError(t, err)
			require.Equal(t, payload, decoded)
		})
	}
}

func TestByNameUnknown(t *testing.T) {
	_, err := ByName("lz4")
	require.Error(t, err)
}

func TestHeaderFieldRoundTrip(t *testing.T) {
	field, err := EncodeHeaderField("deflate")
	require.NoError(t, err)
	require.Equal(t, "deflate", DecodeHeaderField(field))

	var zero [NameLen]byte
	require.Equal(t, "", DecodeHeaderField(zero))
}

func TestHeaderFieldTooLong(t *testing.T) {
	_, err := EncodeHeaderField("this-name-is-way-too-long-for-the-field")
	require.Error(t, err)
}
