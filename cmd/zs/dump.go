package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	zs "github.com/cockroachdb/zs"
	"github.com/cockroachdb/zs/framing"
)

func newDumpCmd() *cobra.Command {
	var (
		start, stop, prefix string
		workers             int
		ff                  framingFlags
	)
	cmd := &cobra.Command{
		Use:   "dump FILE_OR_URL",
		Short: "stream records matching a range or prefix query to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, terminator, err := ff.resolve()
			if err != nil {
				return err
			}

			ctx := context.Background()
			r, err := openTarget(ctx, args[0], workers)
			if err != nil {
				return err
			}
			defer r.Close()

			q := zs.Query{}
			if start != "" {
				q.Start = []byte(start)
			}
			if stop != "" {
				q.Stop = []byte(stop)
			}
			if prefix != "" {
				q.Prefix = []byte(prefix)
			}

			it, err := r.Search(ctx, q)
			if err != nil {
				return err
			}
			defer it.Close()

			fw := framing.NewWriter(os.Stdout, mode, terminator)
			for {
				rec, ok, err := it.Next()
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := fw.Write(rec); err != nil {
					return err
				}
			}
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "inclusive lower bound")
	cmd.Flags().StringVar(&stop, "stop", "", "exclusive upper bound")
	cmd.Flags().StringVar(&prefix, "prefix", "", "match records with this prefix")
	cmd.Flags().IntVarP(&workers, "jobs", "j", 0, "decompression worker count (0: reader default)")
	ff.register(cmd)
	return cmd
}
