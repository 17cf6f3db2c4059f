package shared

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spacemeshos/sha256-simd"
)

// PlaneFilename returns the output path of plane idx.
func PlaneFilename(dir, pattern string, idx int) string {
	return filepath.Join(dir, fmt.Sprintf(pattern, idx))
}

// Digest returns the hex encoded SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LockFilename returns the lock file guarding the output directory dir.
// It lives in the system temp directory so that a run leaves nothing but the
// plane files behind in dir.
func LockFilename(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(os.TempDir(), lockFilePrefix+Digest([]byte(abs))[:16]+".lock"), nil
}
