package varint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUleb128RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 0x7F, 0x80, 0x107F, 1 << 33, 1<<64 - 1}
	for _, v := range values {
		buf := AppendUleb128(nil, v)
		require.Equal(t, Uleb128Len(v), len(buf))
		got, n, err := DecodeUleb128(buf)
		require.NoError(t, err)
		require.Equal(t, len(buf), n)
		require.Equal(t, v, got)
	}
}

func TestUleb128RejectsNonCanonical(t *testing.T) {
	cases := [][]byte{
		{0x80, 0x00},       // zero padded to two bytes
		{0x85, 0x00},       // five padded to two bytes
		{0x85, 0x80, 0x00}, // padded to three bytes
	}
	for _, buf := range cases {
		_, _, err := DecodeUleb128(buf)
		require.Error(t, err)
	}
}

func TestUleb128RejectsTruncated(t *testing.T) {
	_, _, err := DecodeUleb128([]byte{0x80, 0x80})
	require.Error(t, err)
	_, _, err = DecodeUleb128(nil)
	require.Error(t, err)
}

func TestUleb128RejectsOverflow(t *testing.T) {
	// Nine continuation bytes then 0x02: the last byte sets bit 64,
	// so the value would need 65 bits.
	buf := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}
	_, _, err := DecodeUleb128(buf)
	require.Error(t, err)
}

func TestU64LERoundTrip(t *testing.T) {
	v := uint64(0x0123456789abcdef)
	buf := AppendU64LE(nil, v)
	require.Equal(t, []byte{0xef, 0xcd, 0xab, 0x89, 0x67, 0x45, 0x23, 0x01}, buf)
	got, err := DecodeU64LE(buf)
	require.NoError(t, err)
	require.Equal(t, v, got)
}

func TestU64LETruncated(t *testing.T) {
	_, err := DecodeU64LE([]byte{1, 2, 3})
	require.Error(t, err)
}
