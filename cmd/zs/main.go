// Command zs is the collaborator CLI front-end for the ZS container
// format: build a file from a sorted record stream (`make`), stream
// matching records back out (`dump`), print header fields (`info`),
// or exhaustively check every invariant (`validate`) — spec.md §6.6.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cockroachdb/zs/zserr"
)

func main() {
	root := &cobra.Command{
		Use:           "zs",
		Short:         "read, build, and validate ZS container files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMakeCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newValidateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "zs:", err)
		os.Exit(zserr.ExitCode(err))
	}
}
