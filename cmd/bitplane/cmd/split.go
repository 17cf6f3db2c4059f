package cmd

import (
	"github.com/spf13/cobra"

	"github.com/spacemeshos/bitplane/extraction"
)

func newSplitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "split",
		Short: "Write the eight bit-plane files of the input image",
		Long: `Split writes one file per bit index 0..7, replacing existing files.
If the input length is not a multiple of 8 the trailing bits of every plane
are dropped, unless --partial says otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, opts)
		},
	}
}

func runSplit(cmd *cobra.Command, opts *options) error {
	ext, err := newExtractor(opts)
	if err != nil {
		return err
	}

	var planes []extraction.Plane
	if opts.cfg.Stream {
		planes, err = ext.RunStream()
	} else {
		planes, err = ext.Run()
	}
	if err != nil {
		return err
	}

	report(cmd.OutOrStdout(), planes)
	return nil
}
