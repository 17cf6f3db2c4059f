package extraction

import (
	"errors"
	"fmt"
	"github.com/gofrs/flock"
	"github.com/spacemeshos/bitplane/config"
	"github.com/spacemeshos/bitplane/shared"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
)

func testConfig(t *testing.T, image []byte) *Config {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.InputPath = filepath.Join(dir, config.DefaultInputPath)
	cfg.OutputDir = filepath.Join(dir, "out")
	require.NoError(t, os.WriteFile(cfg.InputPath, image, shared.OwnerReadWrite))
	return cfg
}

func readPlanes(t *testing.T, cfg *Config) [][]byte {
	planes := make([][]byte, shared.NumPlanes)
	for idx := range planes {
		data, err := os.ReadFile(shared.PlaneFilename(cfg.OutputDir, cfg.OutputPattern, idx))
		require.NoError(t, err)
		planes[idx] = data
	}
	return planes
}

type recordingLogger struct {
	shared.NoopLogger
	warnings []string
}

func (l *recordingLogger) Warning(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

func TestRunScenario(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	planes, err := ext.Run()
	req.NoError(err)
	req.Len(planes, shared.NumPlanes)

	for idx, plane := range planes {
		req.Equal(idx, plane.Index)
		req.Equal(filepath.Join(cfg.OutputDir, fmt.Sprintf("srom_%d.bin", idx)), plane.Path)
		req.EqualValues(1, plane.Size)
		req.Zero(plane.TrailingBits)
	}

	data := readPlanes(t, cfg)
	req.Equal([]byte{0x55}, data[0])
	req.Equal([]byte{0x66}, data[1])
	req.Equal([]byte{0x78}, data[2])
	req.Equal([]byte{0x80}, data[3])
	req.Equal(shared.Digest([]byte{0x55}), planes[0].Digest)
}

func TestRunEmptyInput(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, nil)

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	_, err = ext.Run()
	req.NoError(err)

	for _, data := range readPlanes(t, cfg) {
		req.Empty(data)
	}
}

func TestRunTruncatesPartialGroup(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(10, 10))

	logger := &recordingLogger{}
	ext, err := NewExtractor(cfg)
	req.NoError(err)
	ext.SetLogger(logger)

	planes, err := ext.Run()
	req.NoError(err)
	for _, plane := range planes {
		req.EqualValues(1, plane.Size)
		req.Equal(2, plane.TrailingBits)
	}
	for _, data := range readPlanes(t, cfg) {
		req.Len(data, 1)
	}
	req.Len(logger.warnings, 1)
	req.Contains(logger.warnings[0], "dropped 2 trailing bits")

	_, err = ext.Verify()
	req.NoError(err)
}

func TestRunPad(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(11, 10))
	cfg.Partial = config.PartialPad

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	_, err = ext.Run()
	req.NoError(err)

	for _, data := range readPlanes(t, cfg) {
		req.Len(data, 2)
		req.Zero(data[1] & 0xFC)
	}

	_, err = ext.Verify()
	req.NoError(err)
}

func TestRunReject(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(12, 10))
	cfg.Partial = config.PartialReject

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	_, err = ext.Run()
	req.True(errors.Is(err, shared.ErrPartialGroup))

	_, err = ext.RunStream()
	req.True(errors.Is(err, shared.ErrPartialGroup))

	req.NoDirExists(cfg.OutputDir)
}

func TestRunIdempotent(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(13, 1024))

	ext, err := NewExtractor(cfg)
	req.NoError(err)

	first, err := ext.Run()
	req.NoError(err)
	firstData := readPlanes(t, cfg)

	second, err := ext.Run()
	req.NoError(err)
	req.Equal(first, second)
	req.Equal(firstData, readPlanes(t, cfg))
}

func TestRunTruncatesPreviousOutput(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, bytesOf(0xFF, 64))

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	_, err = ext.Run()
	req.NoError(err)

	req.NoError(os.WriteFile(cfg.InputPath, bytesOf(0x00, 8), shared.OwnerReadWrite))
	_, err = ext.Run()
	req.NoError(err)

	for _, data := range readPlanes(t, cfg) {
		req.Equal([]byte{0x00}, data)
	}
}

func TestRunMissingSource(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, nil)
	req.NoError(os.Remove(cfg.InputPath))

	ext, err := NewExtractor(cfg)
	req.NoError(err)

	_, err = ext.Run()
	var srcErr *shared.SourceError
	req.True(errors.As(err, &srcErr))
	req.True(errors.Is(err, os.ErrNotExist))

	_, err = ext.RunStream()
	req.True(errors.As(err, &srcErr))

	req.NoDirExists(cfg.OutputDir)
}

func TestRunOutputFailureKeepsEarlierPlanes(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(14, 64))
	req.NoError(os.MkdirAll(shared.PlaneFilename(cfg.OutputDir, cfg.OutputPattern, 3), shared.OwnerReadWriteExec))

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	planes, err := ext.Run()

	var outErr *shared.OutputError
	req.True(errors.As(err, &outErr))
	req.Equal(3, outErr.Index)
	req.Len(planes, 3)

	for idx := 0; idx < 3; idx++ {
		req.FileExists(shared.PlaneFilename(cfg.OutputDir, cfg.OutputPattern, idx))
	}
	for idx := 4; idx < shared.NumPlanes; idx++ {
		req.NoFileExists(shared.PlaneFilename(cfg.OutputDir, cfg.OutputPattern, idx))
	}
}

func TestRunStreamMatchesRun(t *testing.T) {
	req := require.New(t)

	for _, mode := range []PartialMode{config.PartialTruncate, config.PartialPad} {
		cfg := testConfig(t, randomImage(15, 4099))
		cfg.Partial = mode

		ext, err := NewExtractor(cfg)
		req.NoError(err)

		buffered, err := ext.Run()
		req.NoError(err)
		bufferedData := readPlanes(t, cfg)

		streamed, err := ext.RunStream()
		req.NoError(err)
		req.Equal(buffered, streamed)
		req.Equal(bufferedData, readPlanes(t, cfg))
	}
}

func TestRunLocked(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(16, 16))
	req.NoError(os.MkdirAll(cfg.OutputDir, shared.OwnerReadWriteExec))

	path, err := shared.LockFilename(cfg.OutputDir)
	req.NoError(err)
	fl := flock.New(path)
	locked, err := fl.TryLock()
	req.NoError(err)
	req.True(locked)

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	_, err = ext.Run()
	req.True(errors.Is(err, shared.ErrLocked))

	req.NoError(fl.Unlock())
	_, err = ext.Run()
	req.NoError(err)
}

func TestVerifyDetectsFlippedBit(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(17, 512))

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	_, err = ext.Run()
	req.NoError(err)

	planes, err := ext.Verify()
	req.NoError(err)
	req.Len(planes, shared.NumPlanes)

	path := shared.PlaneFilename(cfg.OutputDir, cfg.OutputPattern, 4)
	data, err := os.ReadFile(path)
	req.NoError(err)
	data[10] ^= 0x20
	req.NoError(os.WriteFile(path, data, shared.OwnerReadWrite))

	planes, err = ext.Verify()
	req.True(errors.Is(err, shared.ErrPlaneMismatch))
	req.Contains(err.Error(), "bit 85")
	req.Len(planes, 4)
}

func TestVerifySizeMismatch(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(18, 64))

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	_, err = ext.Run()
	req.NoError(err)

	path := shared.PlaneFilename(cfg.OutputDir, cfg.OutputPattern, 0)
	req.NoError(os.WriteFile(path, []byte{0x00}, shared.OwnerReadWrite))

	_, err = ext.Verify()
	req.True(errors.Is(err, shared.ErrPlaneMismatch))
}

func TestVerifyMissingPlane(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(19, 64))

	ext, err := NewExtractor(cfg)
	req.NoError(err)

	_, err = ext.Verify()
	var srcErr *shared.SourceError
	req.True(errors.As(err, &srcErr))
}

func TestResetAndState(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(20, 64))

	ext, err := NewExtractor(cfg)
	req.NoError(err)

	n, err := ext.State()
	req.NoError(err)
	req.Zero(n)

	_, err = ext.Run()
	req.NoError(err)

	n, err = ext.State()
	req.NoError(err)
	req.Equal(shared.NumPlanes, n)

	req.NoError(ext.Reset())
	n, err = ext.State()
	req.NoError(err)
	req.Zero(n)

	// Nothing left to delete.
	req.NoError(ext.Reset())

	entries, err := os.ReadDir(cfg.OutputDir)
	req.NoError(err)
	req.Empty(entries)
}

func TestRunLeavesOnlyPlanes(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(23, 64))

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	for _, run := range []func() ([]Plane, error){ext.Run, ext.RunStream} {
		_, err = run()
		req.NoError(err)

		entries, err := os.ReadDir(cfg.OutputDir)
		req.NoError(err)
		req.Len(entries, shared.NumPlanes)
		for idx, entry := range entries {
			req.Equal(fmt.Sprintf("srom_%d.bin", idx), entry.Name())
		}
	}
}

func TestResetMissingOutputDir(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, randomImage(24, 64))
	cfg.OutputDir = filepath.Join(t.TempDir(), "missing", "out")

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	req.NoError(ext.Reset())
	req.NoDirExists(cfg.OutputDir)
	req.NoDirExists(filepath.Dir(cfg.OutputDir))
}

func TestVerifyPaddedPlane(t *testing.T) {
	req := require.New(t)
	cfg := testConfig(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01, 0x01})
	cfg.Partial = config.PartialPad

	ext, err := NewExtractor(cfg)
	req.NoError(err)
	_, err = ext.Run()
	req.NoError(err)

	planes, err := ext.Verify()
	req.NoError(err)
	req.Len(planes, shared.NumPlanes)

	// Set a padding bit of plane 0.
	path := shared.PlaneFilename(cfg.OutputDir, cfg.OutputPattern, 0)
	data, err := os.ReadFile(path)
	req.NoError(err)
	req.Equal([]byte{0xFF, 0x03}, data)
	data[1] |= 0x80
	req.NoError(os.WriteFile(path, data, shared.OwnerReadWrite))

	_, err = ext.Verify()
	req.True(errors.Is(err, shared.ErrPlaneMismatch))
	req.Contains(err.Error(), "bit 15")
}

func TestRunDefaultConfig(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()
	wd, err := os.Getwd()
	req.NoError(err)
	req.NoError(os.Chdir(dir))
	defer func() { req.NoError(os.Chdir(wd)) }()

	image := randomImage(21, 128<<10)
	req.NoError(os.WriteFile(config.DefaultInputPath, image, shared.OwnerReadWrite))

	ext, err := NewExtractor(config.DefaultConfig())
	req.NoError(err)
	_, err = ext.Run()
	req.NoError(err)

	for idx := 0; idx < shared.NumPlanes; idx++ {
		info, err := os.Stat(fmt.Sprintf("srom_%d.bin", idx))
		req.NoError(err)
		req.EqualValues(16<<10, info.Size())
	}
}

func TestNewExtractorInvalidConfig(t *testing.T) {
	req := require.New(t)
	cfg := config.DefaultConfig()
	cfg.OutputPattern = "srom.bin"

	_, err := NewExtractor(cfg)
	req.Error(err)
}

func TestDiskState(t *testing.T) {
	req := require.New(t)
	dir := t.TempDir()

	d := NewDiskState(filepath.Join(dir, "missing"), config.DefaultOutputPattern)
	n, err := d.NumPlanesWritten()
	req.NoError(err)
	req.Zero(n)

	d = NewDiskState(dir, config.DefaultOutputPattern)
	req.NoError(os.WriteFile(filepath.Join(dir, "srom_0.bin"), bytesOf(0, 3), shared.OwnerReadWrite))
	req.NoError(os.WriteFile(filepath.Join(dir, "srom_7.bin"), bytesOf(0, 5), shared.OwnerReadWrite))
	req.NoError(os.WriteFile(filepath.Join(dir, "srom_8.bin"), bytesOf(0, 100), shared.OwnerReadWrite))
	req.NoError(os.WriteFile(filepath.Join(dir, "other.bin"), bytesOf(0, 100), shared.OwnerReadWrite))

	n, err = d.NumPlanesWritten()
	req.NoError(err)
	req.Equal(2, n)

	size, err := d.NumBytesWritten()
	req.NoError(err)
	req.EqualValues(8, size)
}

func bytesOf(b byte, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = b
	}
	return data
}
