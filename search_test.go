package zs

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/zs/block"
	"github.com/cockroachdb/zs/internal/testutil"
	"github.com/cockroachdb/zs/zserr"
)

func buildTestFile(t *testing.T, records [][]byte, opts ...WriterOption) *Reader {
	t.Helper()
	path := tempPath(t)
	w, err := Create(path, opts...)
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, w.Add(r))
	}
	require.NoError(t, w.Finish())

	r, err := OpenFile(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func drain(t *testing.T, it *Iterator) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		rec, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, append([]byte(nil), rec...))
	}
}

func TestSearchRange(t *testing.T) {
	records := testutil.SortedRecords(50)
	r := buildTestFile(t, records, WithApproxBlockSize(64))

	it, err := r.Search(context.Background(), Query{
		Start: []byte("record-00010"),
		Stop:  []byte("record-00015"),
	})
	require.NoError(t, err)
	got := drain(t, it)
	require.Equal(t, records[10:15], got)
}

func TestSearchPrefix(t *testing.T) {
	records := testutil.SortedRecordsWithPrefixes([]string{"aa", "bb", "cc"}, 10)
	r := buildTestFile(t, records, WithApproxBlockSize(48))

	it, err := r.Search(context.Background(), Query{Prefix: []byte("bb")})
	require.NoError(t, err)
	got := drain(t, it)
	require.Len(t, got, 10)
	for _, rec := range got {
		require.True(t, len(rec) >= 2 && string(rec[:2]) == "bb")
	}
}

func TestSearchRejectsInvertedRange(t *testing.T) {
	r := buildTestFile(t, testutil.SortedRecords(3))
	_, err := r.Search(context.Background(), Query{Start: []byte("z"), Stop: []byte("a")})
	require.Error(t, err)
	require.True(t, zserr.Is(err, zserr.BadUsage))
}

func TestSearchEmptyRangeYieldsNothing(t *testing.T) {
	r := buildTestFile(t, testutil.SortedRecords(20), WithApproxBlockSize(48))
	it, err := r.Search(context.Background(), Query{
		Start: []byte("record-00100"),
		Stop:  []byte("record-00200"),
	})
	require.NoError(t, err)
	got := drain(t, it)
	require.Empty(t, got)
}

func TestBlockMapCountsRecordsPerBlock(t *testing.T) {
	records := testutil.SortedRecords(40)
	r := buildTestFile(t, records, WithApproxBlockSize(48))

	results, err := r.BlockMap(context.Background(), Query{}, func(payload []byte) (interface{}, error) {
		n, err := countPayload(payload)
		return n, err
	})
	require.NoError(t, err)

	total := 0
	for _, v := range results {
		total += v.(int)
	}
	require.Equal(t, len(records), total)
}

func TestBlockExecVisitsEveryLeaf(t *testing.T) {
	records := testutil.SortedRecords(40)
	r := buildTestFile(t, records, WithApproxBlockSize(48))

	var mu sync.Mutex
	total := 0
	err := r.BlockExec(context.Background(), Query{}, func(payload []byte) error {
		n, err := countPayload(payload)
		mu.Lock()
		total += n
		mu.Unlock()
		return err
	})
	require.NoError(t, err)
	require.Equal(t, len(records), total)
}

func TestSearchWorksWithoutWorkerPool(t *testing.T) {
	records := testutil.SortedRecords(30)
	path := tempPath(t)
	w, err := Create(path, WithApproxBlockSize(48))
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, w.Add(r))
	}
	require.NoError(t, w.Finish())

	r, err := OpenFile(context.Background(), path, WithWorkers(0))
	require.NoError(t, err)
	defer r.Close()

	it, err := r.Search(context.Background(), Query{})
	require.NoError(t, err)
	got := drain(t, it)
	require.Equal(t, records, got)
}

func countPayload(payload []byte) (int, error) {
	it := block.NewDataIterator(payload)
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
