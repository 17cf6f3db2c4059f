package cmd

import (
	"github.com/spf13/cobra"
)

func newVerifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the plane files against the input image",
		Long: `Verify unpacks every plane file and compares it bit by bit with the
input image, using the same pattern and partial mode as split.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ext, err := newExtractor(opts)
			if err != nil {
				return err
			}

			planes, err := ext.Verify()
			if err != nil {
				return err
			}

			report(cmd.OutOrStdout(), planes)
			return nil
		},
	}
}
