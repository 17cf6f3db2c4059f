package cmd

import (
	"fmt"

	"github.com/spacemeshos/smutil"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spacemeshos/bitplane/config"
)

// loadConfig merges, from lowest to highest priority, the defaults, the
// config file (if given) and the flags set on the command line.
func loadConfig(cmd *cobra.Command, configFile string) (*config.Config, error) {
	vip := viper.New()
	if err := vip.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	if configFile != "" {
		vip.SetConfigFile(smutil.GetCanonicalPath(configFile))
		if err := vip.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := config.DefaultConfig()
	if err := vip.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setFlags(cmd *cobra.Command, opts *options) {
	def := config.DefaultConfig()
	flags := cmd.PersistentFlags()

	flags.StringVar(&opts.configFile, "config", "",
		"Path to configuration file (toml, yaml or json)")

	flags.BoolVar(&opts.logDebug, "logdebug", false,
		"Whether to enable debug logging")

	flags.StringVar(&opts.logDir, "logdir", "",
		"Directory to write bitplane.log to; logs go to stdout only when empty")

	// Split config.

	flags.String("input", def.InputPath,
		"Input image path")

	flags.String("outdir", def.OutputDir,
		"Directory to write the plane files to")

	flags.String("pattern", def.OutputPattern,
		"Plane file name template; %d is replaced by the bit index")

	flags.String("partial", string(def.Partial),
		"Handling of a trailing partial group of 8 bytes: truncate, pad or reject")

	flags.Bool("stream", def.Stream,
		"Stream the input instead of reading it into memory")

	flags.Bool("no-space-check", def.DisableSpaceAvailabilityChecks,
		"Skip the free disk space check")
}
