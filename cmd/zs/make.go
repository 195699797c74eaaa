package main

import (
	"os"

	"github.com/spf13/cobra"

	zs "github.com/cockroachdb/zs"
	"github.com/cockroachdb/zs/framing"
	"github.com/cockroachdb/zs/zserr"
)

func newMakeCmd() *cobra.Command {
	var (
		codecName       string
		approxBlockSize int
		metadata        string
		ff              framingFlags
	)
	cmd := &cobra.Command{
		Use:   "make INPUT OUT",
		Short: "build a ZS file from a sorted, framed record stream",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, terminator, err := ff.resolve()
			if err != nil {
				return err
			}

			in := os.Stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return zserr.IOErrorf(err, "make: opening %s", zserr.Safe(args[0]))
				}
				defer f.Close()
				in = f
			}

			var opts []zs.WriterOption
			if codecName != "" {
				opts = append(opts, zs.WithWriterCodec(codecName))
			}
			if approxBlockSize > 0 {
				opts = append(opts, zs.WithApproxBlockSize(approxBlockSize))
			}
			if metadata != "" {
				opts = append(opts, zs.WithWriterMetadata([]byte(metadata)))
			}

			w, err := zs.Create(args[1], opts...)
			if err != nil {
				return err
			}

			fr := framing.NewReader(in, mode, terminator)
			for {
				rec, ok, err := fr.Next()
				if err != nil {
					w.Close()
					return err
				}
				if !ok {
					break
				}
				if err := w.Add(rec); err != nil {
					w.Close()
					return err
				}
			}
			return w.Finish()
		},
	}
	cmd.Flags().StringVar(&codecName, "codec", "", "block compression codec (default: none)")
	cmd.Flags().IntVar(&approxBlockSize, "approx-block-size", 0, "target uncompressed block size in bytes")
	cmd.Flags().StringVar(&metadata, "metadata", "", "JSON object stored as the file's metadata blob")
	ff.register(cmd)
	return cmd
}
