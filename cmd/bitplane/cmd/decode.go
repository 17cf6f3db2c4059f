package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"

	smlog "github.com/spacemeshos/smutil/log"
	"github.com/spf13/cobra"

	"github.com/spacemeshos/bitplane/config"
	"github.com/spacemeshos/bitplane/persistence"
	"github.com/spacemeshos/bitplane/srom"
)

func newDecodeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode an Alpha 21164 SROM stream into instructions",
		Long: `Decode reads a 21164 serial ROM image (by default plane 0 of a split),
gathers the instruction bits of every 25-byte icache fill line and writes
them as raw little-endian Alpha instructions.

Unless --srom-asm is empty, the instructions are then disassembled with
objdump (or --listing is read instead) and the PALcode hardware
instructions are annotated with the registers they access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, &opts.cfg.Decode)
		},
	}

	def := config.DefaultDecodeConfig()
	flags := cmd.Flags()

	flags.String("srom-input", def.InputPath,
		"SROM image path")

	flags.String("srom-bin", def.BinPath,
		"Path to write the decoded instructions to")

	flags.String("srom-asm", def.AsmPath,
		"Path to write the annotated disassembly to; skipped when empty")

	flags.String("objdump", def.Objdump,
		"objdump executable supporting the alpha architecture")

	flags.String("listing", def.ListingPath,
		"Existing objdump listing of --srom-bin to annotate instead of running objdump")

	return cmd
}

func runDecode(cmd *cobra.Command, cfg *config.DecodeConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := persistence.ReadImage(cfg.InputPath)
	if err != nil {
		return err
	}

	d := srom.NewDecoder()
	d.SetLogger(smlog.AppLog)

	decoded := d.Decode(data)
	if _, err := persistence.WriteFile(cfg.BinPath, -1, decoded); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintf(out, "decoded %d lines of %v into %v\n",
		len(data)/srom.LineSize, cfg.InputPath, cfg.BinPath); err != nil {
		return err
	}

	if cfg.AsmPath == "" {
		return nil
	}

	var listing []byte
	if cfg.ListingPath != "" {
		listing, err = persistence.ReadImage(cfg.ListingPath)
	} else {
		listing, err = srom.Disassemble(cmd.Context(), cfg.Objdump, cfg.BinPath)
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			smlog.Warning("%v not available, skipping disassembly: %v", cfg.Objdump, err)
			return nil
		}
	}
	if err != nil {
		return err
	}

	fw, err := persistence.NewFileWriter(cfg.AsmPath, -1)
	if err != nil {
		return err
	}
	n, err := d.Annotate(bytes.NewReader(listing), fw)
	if _, cerr := fw.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "annotated %d PAL instructions in %v\n", n, cfg.AsmPath)
	return err
}
