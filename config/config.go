package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PartialMode selects what happens to the trailing bits of a plane when the
// input length is not a multiple of 8.
type PartialMode string

const (
	// PartialTruncate silently drops the trailing partial group.
	PartialTruncate PartialMode = "truncate"
	// PartialPad zero-fills the high bits of one final plane byte.
	PartialPad PartialMode = "pad"
	// PartialReject fails the run before any output is written.
	PartialReject PartialMode = "reject"
)

const (
	DefaultInputPath     = "am27c010_image_alphastation500.bin"
	DefaultOutputDir     = "."
	DefaultOutputPattern = "srom_%d.bin"
	DefaultPartialMode   = PartialTruncate
)

type Config struct {
	InputPath     string      `mapstructure:"input"`
	OutputDir     string      `mapstructure:"outdir"`
	OutputPattern string      `mapstructure:"pattern"`
	Partial       PartialMode `mapstructure:"partial"`
	Stream        bool        `mapstructure:"stream"`

	DisableSpaceAvailabilityChecks bool `mapstructure:"no-space-check"`

	Decode DecodeConfig `mapstructure:",squash"`
}

func (cfg *Config) Validate() error {
	if cfg.InputPath == "" {
		return fmt.Errorf("invalid `InputPath`; expected: non-empty path")
	}

	if cfg.OutputDir == "" {
		return fmt.Errorf("invalid `OutputDir`; expected: non-empty path")
	}

	if err := validatePattern(cfg.OutputPattern); err != nil {
		return err
	}

	switch cfg.Partial {
	case PartialTruncate, PartialPad, PartialReject:
	default:
		return fmt.Errorf("invalid `Partial`; expected: one of %q, %q, %q, given: %q",
			PartialTruncate, PartialPad, PartialReject, cfg.Partial)
	}

	return nil
}

func validatePattern(pattern string) error {
	if strings.ContainsRune(pattern, '/') || strings.ContainsRune(pattern, filepath.Separator) {
		return fmt.Errorf("invalid `OutputPattern`; expected: a file name without directories, given: %q", pattern)
	}

	verbs := strings.Count(strings.ReplaceAll(pattern, "%%", ""), "%")
	if verbs != 1 || !strings.Contains(pattern, "%d") {
		return fmt.Errorf("invalid `OutputPattern`; expected: exactly one %%d verb, given: %q", pattern)
	}

	return nil
}

func DefaultConfig() *Config {
	return &Config{
		InputPath:     DefaultInputPath,
		OutputDir:     DefaultOutputDir,
		OutputPattern: DefaultOutputPattern,
		Partial:       DefaultPartialMode,
		Decode:        DefaultDecodeConfig(),
	}
}
