package cmd

import (
	"fmt"
	"os"

	smlog "github.com/spacemeshos/smutil/log"
	"github.com/spf13/cobra"

	"github.com/spacemeshos/bitplane/config"
	"github.com/spacemeshos/bitplane/extraction"
)

var (
	// Version is the version of the binary.
	Version = "0.0.0"

	// Commit is the commit hash of the binary.
	Commit = ""
)

const defaultLogFileName = "bitplane.log"

// options holds the flags which are not part of config.Config.
type options struct {
	configFile string
	logDebug   bool
	logDir     string

	cfg *config.Config
}

// Execute runs the root command and exits with a non-zero status on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "bitplane:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "bitplane",
		Short: "Split a byte-wide memory image into its eight bit-planes",
		Long: `bitplane reads a byte-wide memory image (e.g. an EPROM dump) and writes
one file per bit position. Plane i holds bit i of every input byte, packed
eight input bytes per output byte, first byte in the least-significant bit.

Without a subcommand bitplane runs split.`,
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts.configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			opts.cfg = cfg

			smlog.DebugMode(opts.logDebug)
			if opts.logDir != "" {
				smlog.InitSpacemeshLoggingSystem(opts.logDir, defaultLogFileName)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, opts)
		},
	}

	setFlags(rootCmd, opts)

	rootCmd.AddCommand(newSplitCmd(opts))
	rootCmd.AddCommand(newVerifyCmd(opts))
	rootCmd.AddCommand(newCleanCmd(opts))
	rootCmd.AddCommand(newDecodeCmd(opts))

	return rootCmd
}

func newExtractor(opts *options) (*extraction.Extractor, error) {
	ext, err := extraction.NewExtractor(opts.cfg)
	if err != nil {
		return nil, err
	}
	ext.SetLogger(smlog.AppLog)
	return ext, nil
}
