package config

import (
	"fmt"
)

const (
	DefaultSROMBinPath = "srom_decoded.bin"
	DefaultSROMAsmPath = "srom_decoded.asm"
	DefaultObjdump     = "alpha-linux-gnu-objdump"
)

// DecodeConfig configures the SROM decode pass. Its input defaults to plane 0
// of a split with the default pattern, which holds the serial ROM stream.
type DecodeConfig struct {
	InputPath string `mapstructure:"srom-input"`
	BinPath   string `mapstructure:"srom-bin"`

	// AsmPath is the annotated listing; no listing is written when empty.
	AsmPath string `mapstructure:"srom-asm"`
	Objdump string `mapstructure:"objdump"`

	// ListingPath, when set, is annotated instead of running Objdump.
	ListingPath string `mapstructure:"listing"`
}

func (cfg *DecodeConfig) Validate() error {
	if cfg.InputPath == "" {
		return fmt.Errorf("invalid `SROM InputPath`; expected: non-empty path")
	}

	if cfg.BinPath == "" {
		return fmt.Errorf("invalid `SROM BinPath`; expected: non-empty path")
	}

	if cfg.AsmPath != "" && cfg.ListingPath == "" && cfg.Objdump == "" {
		return fmt.Errorf("invalid `Objdump`; expected: an executable or a listing to annotate")
	}

	return nil
}

func DefaultDecodeConfig() DecodeConfig {
	return DecodeConfig{
		InputPath: fmt.Sprintf(DefaultOutputPattern, 0),
		BinPath:   DefaultSROMBinPath,
		AsmPath:   DefaultSROMAsmPath,
		Objdump:   DefaultObjdump,
	}
}
