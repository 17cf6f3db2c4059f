package extraction

import (
	"os"
	"path/filepath"

	"github.com/spacemeshos/bitplane/shared"
)

// DiskState inspects the plane files present in an output directory.
type DiskState struct {
	dir     string
	pattern string
}

func NewDiskState(dir, pattern string) *DiskState {
	return &DiskState{dir, pattern}
}

func (d *DiskState) NumPlanesWritten() (int, error) {
	files, err := d.planeFiles()
	if err != nil {
		return 0, err
	}

	return len(files), nil
}

func (d *DiskState) NumBytesWritten() (uint64, error) {
	files, err := d.planeFiles()
	if err != nil {
		return 0, err
	}

	var numBytesWritten uint64
	for _, file := range files {
		numBytesWritten += uint64(file.Size())
	}

	return numBytesWritten, nil
}

func (d *DiskState) planeFiles() ([]os.FileInfo, error) {
	names := make(map[string]bool, shared.NumPlanes)
	for idx := 0; idx < shared.NumPlanes; idx++ {
		names[filepath.Base(shared.PlaneFilename(d.dir, d.pattern, idx))] = true
	}

	return GetFiles(d.dir, func(info os.FileInfo) bool {
		return !info.IsDir() && names[info.Name()]
	})
}

func GetFiles(dir string, predicate func(os.FileInfo) bool) ([]os.FileInfo, error) {
	allFiles, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	includedFiles := make([]os.FileInfo, 0)
	for _, file := range allFiles {
		info, err := file.Info()
		if err != nil {
			continue
		}

		if predicate(info) {
			includedFiles = append(includedFiles, info)
		}
	}

	return includedFiles, nil
}
