package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate FILE_OR_URL",
		Short: "check every invariant of a ZS file, reporting the first violation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			r, err := openTarget(ctx, args[0], 0)
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.Validate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "OK")
			return nil
		},
	}
	return cmd
}
