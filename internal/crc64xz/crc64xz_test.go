package crc64xz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCheckValue is the canonical CRC-64/XZ check value spec.md §8
// requires: CRC-64/XZ("123456789") == 0x995dc9bbdf1939fa.
func TestCheckValue(t *testing.T) {
	require.Equal(t, uint64(0x995dc9bbdf1939fa), Checksum([]byte("123456789")))
}

func TestDigestMatchesChecksum(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	d := New()
	_, err := d.Write(data[:10])
	require.NoError(t, err)
	_, err = d.Write(data[10:])
	require.NoError(t, err)
	require.Equal(t, Checksum(data), d.Sum64())
}

func TestDigestReset(t *testing.T) {
	d := New()
	_, _ = d.Write([]byte("abc"))
	d.Reset()
	_, _ = d.Write([]byte("123456789"))
	require.Equal(t, uint64(0x995dc9bbdf1939fa), d.Sum64())
}
