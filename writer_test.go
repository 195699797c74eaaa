package zs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/zs/internal/testutil"
	"github.com/cockroachdb/zs/zserr"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "out.zs")
}

func TestWriterRoundTripSmall(t *testing.T) {
	records := testutil.SortedRecords(5)
	path := tempPath(t)

	w, err := Create(path)
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, w.Add(r))
	}
	require.NoError(t, w.Finish())

	ctx := context.Background()
	r, err := OpenFile(ctx, path)
	require.NoError(t, err)
	defer r.Close()

	it, err := r.Search(ctx, Query{})
	require.NoError(t, err)
	defer it.Close()

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
}

func TestWriterRejectsOutOfOrderRecords(t *testing.T) {
	path := tempPath(t)
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Add([]byte("b")))
	err = w.Add([]byte("a"))
	require.Error(t, err)
	require.True(t, zserr.Is(err, zserr.BadUsage))
	require.NoError(t, w.Close())
}

func TestWriterFinishWithNoRecordsFails(t *testing.T) {
	path := tempPath(t)
	w, err := Create(path)
	require.NoError(t, err)
	err = w.Finish()
	require.Error(t, err)
	require.True(t, zserr.Is(err, zserr.BadUsage))
}

func TestWriterMultiLevelCascadeValidates(t *testing.T) {
	// A small approx_block_size forces many data blocks and, in turn,
	// several index levels before the cascade converges on one root,
	// exercising the level-builder beyond a single level. It must stay
	// comfortably larger than one index entry's worst-case encoded
	// size, or every level's builder would overflow on its very first
	// entry and the cascade would promote one level per record instead
	// of batching several records per block.
	records := testutil.SortedRecords(200)
	path := tempPath(t)

	w, err := Create(path, WithApproxBlockSize(64))
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, w.Add(r))
	}
	require.NoError(t, w.Finish())

	ctx := context.Background()
	r, err := OpenFile(ctx, path)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Validate(ctx))

	count, err := countAll(ctx, r)
	require.NoError(t, err)
	require.Equal(t, len(records), count)
}

func TestWriterAddDataBlockBypassesPacker(t *testing.T) {
	path := tempPath(t)
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Add([]byte("a")))
	require.NoError(t, w.AddDataBlock([][]byte{[]byte("b"), []byte("c")}))
	require.NoError(t, w.Add([]byte("d")))
	require.NoError(t, w.Finish())

	ctx := context.Background()
	r, err := OpenFile(ctx, path)
	require.NoError(t, err)
	defer r.Close()
	require.NoError(t, r.Validate(ctx))
}

func TestWriterAddDataBlockRejectsOutOfOrderWithinBlock(t *testing.T) {
	path := tempPath(t)
	w, err := Create(path)
	require.NoError(t, err)
	err = w.AddDataBlock([][]byte{[]byte("z"), []byte("a")})
	require.Error(t, err)
	require.True(t, zserr.Is(err, zserr.BadUsage))
	require.NoError(t, w.Close())
}

func TestCloseBeforeFinishLeavesBadMagic(t *testing.T) {
	path := tempPath(t)
	w, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, w.Add([]byte("a")))
	require.NoError(t, w.Close())

	ctx := context.Background()
	_, err = OpenFile(ctx, path)
	require.Error(t, err)
	require.True(t, zserr.Is(err, zserr.Corrupt))
}

func TestCreateRejectsBadMetadata(t *testing.T) {
	path := tempPath(t)
	_, err := Create(path, WithWriterMetadata([]byte("not json")))
	require.Error(t, err)
	require.True(t, zserr.Is(err, zserr.BadUsage))
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr) || statErr == nil)
}

func countAll(ctx context.Context, r *Reader) (int, error) {
	it, err := r.Search(ctx, Query{})
	if err != nil {
		return 0, err
	}
	defer it.Close()
	n := 0
	for {
		_, ok, err := it.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			return n, nil
		}
		n++
	}
}
