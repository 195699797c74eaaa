package main

import (
	"github.com/spf13/cobra"

	"github.com/cockroachdb/zs/framing"
	"github.com/cockroachdb/zs/zserr"
)

// framingFlags holds the --length-prefixed/--terminator flags shared
// by `make` and `dump` (spec.md §6.6).
type framingFlags struct {
	lengthPrefixed string
	terminator     string
}

func (f *framingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.lengthPrefixed, "length-prefixed", "", "record framing: u64le or uleb128")
	cmd.Flags().StringVar(&f.terminator, "terminator", "", "record framing: a literal terminator byte string")
}

func (f *framingFlags) resolve() (framing.Mode, []byte, error) {
	switch {
	case f.lengthPrefixed != "" && f.terminator != "":
		return 0, nil, zserr.BadUsagef("--length-prefixed and --terminator are mutually exclusive")
	case f.lengthPrefixed == "u64le":
		return framing.U64LE, nil, nil
	case f.lengthPrefixed == "uleb128":
		return framing.Uleb128, nil, nil
	case f.lengthPrefixed != "":
		return 0, nil, zserr.BadUsagef("--length-prefixed must be u64le or uleb128, got %q", f.lengthPrefixed)
	case f.terminator != "":
		return framing.Terminator, []byte(f.terminator), nil
	default:
		return framing.U64LE, nil, nil
	}
}
