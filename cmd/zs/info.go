package main

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	var metadataOnly bool
	cmd := &cobra.Command{
		Use:   "info FILE_OR_URL",
		Short: "print a ZS file's header fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			r, err := openTarget(ctx, args[0], 0)
			if err != nil {
				return err
			}
			defer r.Close()

			h := r.Header()
			if metadataOnly {
				fmt.Fprintln(os.Stdout, string(h.Metadata))
				return nil
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"field", "value"})
			table.Append([]string{"root_offset", fmt.Sprint(h.RootOffset)})
			table.Append([]string{"root_length", fmt.Sprint(h.RootLength)})
			table.Append([]string{"total_file_length", fmt.Sprint(h.TotalFileLength)})
			table.Append([]string{"data_sha256", fmt.Sprintf("%x", h.DataSHA256)})
			table.Append([]string{"codec", h.Codec})
			table.Append([]string{"metadata", string(h.Metadata)})
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&metadataOnly, "metadata", "m", false, "print only the metadata JSON blob")
	return cmd
}
