package srom

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultObjdump is the GNU binutils objdump built for Alpha targets.
const DefaultObjdump = "alpha-linux-gnu-objdump"

// Disassemble runs objdump on the raw Alpha instruction file at path and
// returns its listing.
func Disassemble(ctx context.Context, objdump, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, objdump, "-b", "binary", "-m", "alpha", "-D", path)
	stderr := bytes.NewBuffer(nil)
	cmd.Stderr = stderr

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%v failure: %w: %v", objdump, err, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("%v failure: %w", objdump, err)
	}

	return out, nil
}
