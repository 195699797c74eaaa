package zs

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/zs/internal/testutil"
	"github.com/cockroachdb/zs/zserr"
)

func TestValidatePassesOnWellFormedFile(t *testing.T) {
	records := testutil.SortedRecords(100)
	path := tempPath(t)
	w, err := Create(path, WithApproxBlockSize(48))
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
}

func TestValidateDetectsBlockCRCCorruption(t *testing.T) {
	path := tempPath(t)
	w, err := Create(path, WithApproxBlockSize(48))
	require.NoError(t, err)
	for _, r := range testutil.SortedRecords(30) {
		require.NoError(t, w.Add(r))
	}
	require.NoError(t, w.Finish())

	flipByteNear(t, path, 0.5)

	ctx := context.Background()
	r, err := OpenFile(ctx, path)
	if err != nil {
		// The flipped byte landed in the header; header parsing itself
		// already rejected it.
		require.True(t, zserr.Is(err, zserr.Corrupt) || zserr.Is(err, zserr.BadFormat))
		return
	}
	defer r.Close()
	err = r.Validate(ctx)
	require.Error(t, err)
}

func TestValidateRejectsTruncatedFile(t *testing.T) {
	path := tempPath(t)
	w, err := Create(path, WithApproxBlockSize(48))
	require.NoError(t, err)
	for _, r := range testutil.SortedRecords(30) {
		require.NoError(t, w.Add(r))
	}
	require.NoError(t, w.Finish())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-4))

	ctx := context.Background()
	_, err = OpenFile(ctx, path)
	require.Error(t, err)
}

// flipByteNear flips one byte at the given fraction of the file's
// length, far enough into the body to usually land inside a block
// payload rather than the header.
func flipByteNear(t *testing.T, path string, frac float64) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	idx := int(float64(len(data)) * frac)
	if idx >= len(data) {
		idx = len(data) - 1
	}
	data[idx] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))
}
