package extraction

import (
	"bytes"
	"code.cloudfoundry.org/bytefmt"
	"encoding/hex"
	"fmt"
	"github.com/gofrs/flock"
	"github.com/spacemeshos/bitplane/bitstream"
	"github.com/spacemeshos/bitplane/config"
	"github.com/spacemeshos/bitplane/persistence"
	"github.com/spacemeshos/bitplane/shared"
	"github.com/spacemeshos/sha256-simd"
	"hash"
	"io"
	"os"
)

// Plane describes one written (or verified) plane file.
type Plane struct {
	Index  int
	Path   string
	Size   int64
	Digest string

	// TrailingBits is the number of input bytes past the last complete group,
	// which is the number of bits per plane that were dropped or padded.
	TrailingBits int
}

type Extractor struct {
	cfg    *Config
	logger Logger
}

func NewExtractor(cfg *Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Extractor{cfg, shared.NoopLogger{}}, nil
}

func (e *Extractor) SetLogger(logger Logger) {
	e.logger = logger
}

// Run reads the whole input image and writes the eight planes in ascending
// bit order, each fully built in memory before its file is written.
// On a write failure the planes written before it remain on disk.
func (e *Extractor) Run() ([]Plane, error) {
	info, err := os.Stat(e.cfg.InputPath)
	if err != nil {
		return nil, &shared.SourceError{Path: e.cfg.InputPath, Err: err}
	}
	e.checkMemory(info.Size())

	image, err := persistence.ReadImage(e.cfg.InputPath)
	if err != nil {
		return nil, err
	}

	layout := config.DerivePlanesLayout(*e.cfg, int64(len(image)))
	if err := e.checkPartial(layout, int64(len(image))); err != nil {
		return nil, err
	}

	if err := e.makeOutputDir(); err != nil {
		return nil, err
	}

	unlock, err := e.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := e.checkSpace(layout); err != nil {
		return nil, err
	}

	e.logger.Info("splitting %v (%v) into %d planes of %v",
		e.cfg.InputPath, bytefmt.ByteSize(uint64(len(image))), layout.NumPlanes, bytefmt.ByteSize(uint64(layout.PlaneSize)))

	planes := make([]Plane, 0, shared.NumPlanes)
	for idx := 0; idx < shared.NumPlanes; idx++ {
		data, err := ExtractPlane(image, uint(idx), e.cfg.Partial)
		if err != nil {
			return planes, err
		}

		path := shared.PlaneFilename(e.cfg.OutputDir, e.cfg.OutputPattern, idx)
		info, err := persistence.WriteFile(path, idx, data)
		if err != nil {
			e.logger.Error("plane %d: %v", idx, err)
			return planes, err
		}

		plane := Plane{
			Index:        idx,
			Path:         path,
			Size:         info.Size(),
			Digest:       shared.Digest(data),
			TrailingBits: layout.TrailingBits,
		}
		e.logger.Debug("plane %d written: %v, %d bytes", idx, path, plane.Size)
		planes = append(planes, plane)
	}

	e.logPartial(layout)

	return planes, nil
}

// RunStream produces the same planes as Run without buffering the input image.
// All eight plane files are open for the duration of the pass.
func (e *Extractor) RunStream() ([]Plane, error) {
	r, err := persistence.NewFileReader(e.cfg.InputPath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	size, err := r.Size()
	if err != nil {
		return nil, err
	}

	layout := config.DerivePlanesLayout(*e.cfg, size)
	if err := e.checkPartial(layout, size); err != nil {
		return nil, err
	}

	if err := e.makeOutputDir(); err != nil {
		return nil, err
	}

	unlock, err := e.lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := e.checkSpace(layout); err != nil {
		return nil, err
	}

	e.logger.Info("streaming %v (%v) into %d planes of %v",
		e.cfg.InputPath, bytefmt.ByteSize(uint64(size)), layout.NumPlanes, bytefmt.ByteSize(uint64(layout.PlaneSize)))

	fws := make([]*persistence.FileWriter, shared.NumPlanes)
	defer func() {
		for _, fw := range fws {
			if fw != nil {
				_, _ = fw.Close()
			}
		}
	}()

	hashers := make([]hash.Hash, shared.NumPlanes)
	ws := make([]io.Writer, shared.NumPlanes)
	for idx := range fws {
		fw, err := persistence.NewFileWriter(shared.PlaneFilename(e.cfg.OutputDir, e.cfg.OutputPattern, idx), idx)
		if err != nil {
			return nil, err
		}
		fws[idx] = fw
		hashers[idx] = sha256.New()
		ws[idx] = io.MultiWriter(fw, hashers[idx])
	}

	n, err := SplitStream(r, ws, e.cfg.Partial)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("consumed %d input bytes", n)

	planes := make([]Plane, 0, shared.NumPlanes)
	for idx, fw := range fws {
		path := fw.Name()
		info, err := fw.Close()
		fws[idx] = nil
		if err != nil {
			return planes, err
		}
		planes = append(planes, Plane{
			Index:        idx,
			Path:         path,
			Size:         info.Size(),
			Digest:       hex.EncodeToString(hashers[idx].Sum(nil)),
			TrailingBits: layout.TrailingBits,
		})
	}

	e.logPartial(layout)

	return planes, nil
}

// Verify checks every plane file against the input image, bit by bit.
func (e *Extractor) Verify() ([]Plane, error) {
	image, err := persistence.ReadImage(e.cfg.InputPath)
	if err != nil {
		return nil, err
	}

	layout := config.DerivePlanesLayout(*e.cfg, int64(len(image)))
	if err := e.checkPartial(layout, int64(len(image))); err != nil {
		return nil, err
	}

	planes := make([]Plane, 0, shared.NumPlanes)
	for idx := 0; idx < shared.NumPlanes; idx++ {
		path := shared.PlaneFilename(e.cfg.OutputDir, e.cfg.OutputPattern, idx)
		data, err := persistence.ReadImage(path)
		if err != nil {
			return planes, err
		}

		if int64(len(data)) != layout.PlaneSize {
			return planes, fmt.Errorf("%w: plane %d (%v) size; expected: %d, found: %d",
				shared.ErrPlaneMismatch, idx, path, layout.PlaneSize, len(data))
		}

		if err := verifyPlane(image, data, uint(idx)); err != nil {
			return planes, fmt.Errorf("%w: plane %d (%v) %v", shared.ErrPlaneMismatch, idx, path, err)
		}

		planes = append(planes, Plane{
			Index:        idx,
			Path:         path,
			Size:         int64(len(data)),
			Digest:       shared.Digest(data),
			TrailingBits: layout.TrailingBits,
		})
		e.logger.Debug("plane %d verified: %v", idx, path)
	}

	return planes, nil
}

func verifyPlane(image, data []byte, idx uint) error {
	br := bitstream.NewReader(bytes.NewReader(data))

	// Complete groups are compared a whole plane byte at a time.
	full := len(image) / shared.GroupSize
	if full > len(data) {
		full = len(data)
	}
	for k := 0; k < full; k++ {
		b, err := br.ReadByte()
		if err != nil {
			return err
		}

		for j := 0; j < shared.GroupSize; j++ {
			i := k*shared.GroupSize + j
			if found, expected := bitstream.BitOf(b, uint(j)), bitstream.BitOf(image[i], idx); found != expected {
				return fmt.Errorf("bit %d; expected: %v, found: %v", i, expected, found)
			}
		}
	}

	// A padded final byte holds the trailing bits followed by zeros.
	for i := full * shared.GroupSize; i < len(data)*8; i++ {
		bit, err := br.ReadBit()
		if err != nil {
			return err
		}

		expected := bitstream.Zero
		if i < len(image) {
			expected = bitstream.BitOf(image[i], idx)
		}
		if bit != expected {
			return fmt.Errorf("bit %d; expected: %v, found: %v", i, expected, bit)
		}
	}
	return nil
}

// Reset deletes the plane files from the output directory.
// A missing output directory is left missing.
func (e *Extractor) Reset() error {
	if _, err := os.Stat(e.cfg.OutputDir); os.IsNotExist(err) {
		return nil
	}

	unlock, err := e.lock()
	if err != nil {
		return err
	}
	defer unlock()

	for idx := 0; idx < shared.NumPlanes; idx++ {
		path := shared.PlaneFilename(e.cfg.OutputDir, e.cfg.OutputPattern, idx)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete file (%v): %w", path, err)
		}
	}

	return nil
}

// State returns the number of plane files present in the output directory.
func (e *Extractor) State() (int, error) {
	return NewDiskState(e.cfg.OutputDir, e.cfg.OutputPattern).NumPlanesWritten()
}

func (e *Extractor) makeOutputDir() error {
	if err := os.MkdirAll(e.cfg.OutputDir, shared.OwnerReadWriteExec); err != nil {
		return &shared.OutputError{Path: e.cfg.OutputDir, Index: -1, Err: err}
	}
	return nil
}

func (e *Extractor) lock() (func(), error) {
	path, err := shared.LockFilename(e.cfg.OutputDir)
	if err != nil {
		return nil, &shared.OutputError{Path: e.cfg.OutputDir, Index: -1, Err: err}
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, &shared.OutputError{Path: fl.Path(), Index: -1, Err: err}
	}
	if !locked {
		return nil, fmt.Errorf("%w: %v", shared.ErrLocked, e.cfg.OutputDir)
	}

	return func() {
		if err := fl.Unlock(); err != nil {
			e.logger.Warning("failed to release lock %v: %v", fl.Path(), err)
		}
	}, nil
}

func (e *Extractor) checkPartial(layout config.PlanesLayout, size int64) error {
	if e.cfg.Partial == config.PartialReject && layout.TrailingBits > 0 {
		return fmt.Errorf("%w: %v has length %d", shared.ErrPartialGroup, e.cfg.InputPath, size)
	}
	return nil
}

func (e *Extractor) checkSpace(layout config.PlanesLayout) error {
	if e.cfg.DisableSpaceAvailabilityChecks {
		return nil
	}

	// Existing planes are truncated before being rewritten.
	existing, err := NewDiskState(e.cfg.OutputDir, e.cfg.OutputPattern).NumBytesWritten()
	if err != nil {
		return err
	}

	required := layout.TotalSize()
	if existing >= required {
		return nil
	}
	required -= existing

	available := shared.AvailableSpace(e.cfg.OutputDir)
	if required > available {
		return fmt.Errorf("%w. required: %v, available: %v",
			shared.ErrNotEnoughSpace, bytefmt.ByteSize(required), bytefmt.ByteSize(available))
	}

	return nil
}

func (e *Extractor) checkMemory(size int64) {
	available, err := shared.AvailableMemory()
	if err != nil {
		e.logger.Debug("memory probe failure: %v", err)
		return
	}

	// The image plus one plane buffer are held at once.
	required := uint64(size) + uint64(size)/shared.GroupSize
	if required > available {
		e.logger.Warning("input needs %v of memory, %v available; consider streaming mode",
			bytefmt.ByteSize(required), bytefmt.ByteSize(available))
	}
}

func (e *Extractor) logPartial(layout config.PlanesLayout) {
	if layout.TrailingBits == 0 {
		return
	}

	switch e.cfg.Partial {
	case config.PartialPad:
		e.logger.Warning("input length is not a multiple of %d; zero-padded %d bits per plane",
			shared.GroupSize, shared.GroupSize-layout.TrailingBits)
	default:
		e.logger.Warning("input length is not a multiple of %d; dropped %d trailing bits per plane",
			shared.GroupSize, layout.TrailingBits)
	}
}
