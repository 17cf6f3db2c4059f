package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCleanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete the plane files from the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, err := newExtractor(opts)
			if err != nil {
				return err
			}

			n, err := ext.State()
			if err != nil {
				return err
			}

			if err := ext.Reset(); err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d plane files from %v\n", n, opts.cfg.OutputDir)
			return err
		},
	}
}
