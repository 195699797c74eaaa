package block

import (
	"testing"

	"github.com/cockroachdb/zs/codec"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c, err := codec.ByName("none")
	require.NoError(t, err)

	var db DataBuilder
	db.Add([]byte("aa"))
	db.Add([]byte("ab"))
	payload := db.Finish()

	compressed, err := c.Encode(nil, payload)
	require.NoError(t, err)
	frame := Encode(nil, DataLevel, compressed)
	require.Equal(t, EncodedLen(len(compressed)), len(frame))

	decoded, err := Decode(frame, c)
	require.NoError(t, err)
	require.Equal(t, DataLevel, decoded.Level)
	require.Equal(t, payload, decoded.Payload)
}

func TestDecodeRejectsBadCRC(t *testing.T) {
	c, _ := codec.ByName("none")
	frame := Encode(nil, DataLevel, []byte("hello"))
	frame[len(frame)-1] ^= 0xff // flip a trailer byte

	_, err := Decode(frame, c)
	require.Error(t, err)
}

func TestDecodeRejectsReservedLevel(t *testing.T) {
	c, _ := codec.ByName("none")
	frame := Encode(nil, Level(64), []byte("hello"))

	_, err := Decode(frame, c)
	require.Error(t, err)
}

func TestDecodeRejectsLengthMismatch(t *testing.T) {
	c, _ := codec.ByName("none")
	frame := Encode(nil, DataLevel, []byte("hello"))
	truncated := frame[:len(frame)-1]

	_, err := Decode(truncated, c)
	require.Error(t, err)
}

func TestDataIteratorRoundTrip(t *testing.T) {
	records := [][]byte{[]byte("a"), []byte(""), []byte("ccc"), []byte("dd")}
	var db DataBuilder
	for _, r := range records {
		db.Add(r)
	}
	payload := db.Finish()

	it := NewDataIterator(payload)
	var got [][]byte
	for {
		rec, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, append([]byte(nil), rec...))
	}
	require.Equal(t, records, got)

	first, err := First(payload)
	require.NoError(t, err)
	require.Equal(t, records[0], first)

	last, err := Last(payload)
	require.NoError(t, err)
	require.Equal(t, records[len(records)-1], last)

	n, err := Count(payload)
	require.NoError(t, err)
	require.Equal(t, len(records), n)
}

func TestIndexIteratorRoundTrip(t *testing.T) {
	var ib IndexBuilder
	ib.Add([]byte("aa"), Handle{Offset: 0, Length: 10})
	ib.Add([]byte("bb"), Handle{Offset: 10, Length: 20})
	payload := ib.Finish()

	entries, err := Entries(payload)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, []byte("aa"), entries[0].Key)
	require.Equal(t, Handle{Offset: 0, Length: 10}, entries[0].Child)
	require.Equal(t, []byte("bb"), entries[1].Key)
	require.Equal(t, Handle{Offset: 10, Length: 20}, entries[1].Child)
}

func TestDataIteratorTruncated(t *testing.T) {
	it := NewDataIterator([]byte{0x05, 'a', 'b'}) // declares 5 bytes, has 2
	_, _, err := it.Next()
	require.Error(t, err)
}
