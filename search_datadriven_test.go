package zs

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/stretchr/testify/require"
)

// TestSearchDataDriven runs the fixtures under testdata/search through
// build/search commands, in the teacher's datadriven style
// (data_test.go's runGetCmd/runIterCmd). "build" takes one record per
// line and writes each as its own data block via AddDataBlock, so a
// fixture can pin exact leaf boundaries -- including a duplicate value
// spanning more than one leaf with identical separator keys, which a
// size-driven packer would rarely reproduce on demand.
func TestSearchDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata/search", func(t *testing.T, path string) {
		var r *Reader
		t.Cleanup(func() {
			if r != nil {
				r.Close()
			}
		})

		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			switch d.Cmd {
			case "build":
				return runBuildCmd(t, d, &r)
			case "search":
				return runSearchCmd(t, d, r)
			default:
				t.Fatalf("unknown command %q", d.Cmd)
				return ""
			}
		})
	})
}

func runBuildCmd(t *testing.T, d *datadriven.TestData, r **Reader) string {
	t.Helper()
	path := tempPath(t)
	w, err := Create(path)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(d.Input), "\n") {
		if line == "" {
			continue
		}
		require.NoError(t, w.AddDataBlock([][]byte{[]byte(line)}))
	}
	require.NoError(t, w.Finish())

	if *r != nil {
		require.NoError(t, (*r).Close())
	}
	opened, err := OpenFile(context.Background(), path)
	require.NoError(t, err)
	*r = opened
	return ""
}

func runSearchCmd(t *testing.T, d *datadriven.TestData, r *Reader) string {
	t.Helper()
	var q Query
	for _, arg := range d.CmdArgs {
		switch arg.Key {
		case "start":
			q.Start = []byte(arg.Vals[0])
		case "stop":
			q.Stop = []byte(arg.Vals[0])
		case "prefix":
			q.Prefix = []byte(arg.Vals[0])
		}
	}

	it, err := r.Search(context.Background(), q)
	require.NoError(t, err)
	defer it.Close()

	var out []string
	for {
		rec, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, string(rec))
	}
	if len(out) == 0 {
		return "(none)\n"
	}
	return strings.Join(out, "\n") + "\n"
}
