package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cockroachdb/zs/framing"
)

func captureStdout(t *testing.T, f func()) []byte {
	t.Helper()
	orig := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	f()

	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}

func writeFramedInput(t *testing.T, path string, records [][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	fw := framing.NewWriter(f, framing.U64LE, nil)
	for _, r := range records {
		require.NoError(t, fw.Write(r))
	}
}

func TestMakeDumpValidateInfoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.bin")
	outPath := filepath.Join(dir, "out.zs")

	records := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	writeFramedInput(t, inPath, records)

	makeCmd := newMakeCmd()
	makeCmd.SetArgs([]string{"--length-prefixed=u64le", inPath, outPath})
	require.NoError(t, makeCmd.Execute())

	validateCmd := newValidateCmd()
	validateCmd.SetArgs([]string{outPath})
	out := captureStdout(t, func() {
		require.NoError(t, validateCmd.Execute())
	})
	require.Contains(t, string(out), "OK")

	dumpCmd := newDumpCmd()
	dumpCmd.SetArgs([]string{"--length-prefixed=u64le", outPath})
	dumped := captureStdout(t, func() {
		require.NoError(t, dumpCmd.Execute())
	})

	fr := framing.NewReader(bytes.NewReader(dumped), framing.U64LE, nil)
	var got [][]byte
	for {
		rec, ok, err := fr.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, append([]byte(nil), rec...))
	}
	require.Equal(t, records, got)

	infoCmd := newInfoCmd()
	infoCmd.SetArgs([]string{"-m", outPath})
	meta := captureStdout(t, func() {
		require.NoError(t, infoCmd.Execute())
	})
	require.Contains(t, string(meta), "{}")
}

func TestDumpWithPrefixFilter(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.bin")
	outPath := filepath.Join(dir, "out.zs")

	records := [][]byte{[]byte("aa1"), []byte("aa2"), []byte("bb1")}
	writeFramedInput(t, inPath, records)

	makeCmd := newMakeCmd()
	makeCmd.SetArgs([]string{"--length-prefixed=u64le", inPath, outPath})
	require.NoError(t, makeCmd.Execute())

	dumpCmd := newDumpCmd()
	dumpCmd.SetArgs([]string{"--length-prefixed=u64le", "--prefix=aa", outPath})
	dumped := captureStdout(t, func() {
		require.NoError(t, dumpCmd.Execute())
	})

	fr := framing.NewReader(bytes.NewReader(dumped), framing.U64LE, nil)
	var got [][]byte
	for {
		rec, ok, err := fr.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, append([]byte(nil), rec...))
	}
	require.Equal(t, records[:2], got)
}
