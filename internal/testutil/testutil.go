// Package testutil builds small, deterministic fixtures for the
// round-trip and invariant tests spec.md §8 calls for, standing in for
// the teacher's sstable/test_fixtures.go (which depends on a hamlet
// word-count corpus not present in this pack).
package testutil

import "fmt"

// SortedRecords returns n distinct, already-sorted records of the form
// "record-00000", "record-00001", .... Every record is the same width,
// so callers can reason about block boundaries by count alone.
func SortedRecords(n int) [][]byte {
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = []byte(fmt.Sprintf("record-%05d", i))
	}
	return out
}

// SortedRecordsWithPrefixes returns n records split evenly across the
// given prefixes, sorted overall (prefixes must already be sorted).
// Useful for exercising Query.Prefix against a file with more than one
// prefix group.
func SortedRecordsWithPrefixes(prefixes []string, perPrefix int) [][]byte {
	var out [][]byte
	for _, p := range prefixes {
		for i := 0; i < perPrefix; i++ {
			out = append(out, []byte(fmt.Sprintf("%s-%05d", p, i)))
		}
	}
	return out
}
