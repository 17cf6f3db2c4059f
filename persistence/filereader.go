package persistence

import (
	"bufio"
	"github.com/spacemeshos/bitplane/shared"
	"io"
	"os"
)

// FileReader reads an input image or a plane file sequentially.
type FileReader struct {
	file *os.File
	buf  *bufio.Reader
}

// A compile time check to ensure that FileReader fully implements the io.ReadCloser interface.
var _ io.ReadCloser = (*FileReader)(nil)

func NewFileReader(name string) (*FileReader, error) {
	file, err := os.OpenFile(name, os.O_RDONLY, shared.OwnerReadWrite)
	if err != nil {
		return nil, &shared.SourceError{Path: name, Err: err}
	}

	return &FileReader{
		file: file,
		buf:  bufio.NewReader(file),
	}, nil
}

func (r *FileReader) Read(p []byte) (int, error) {
	n, err := r.buf.Read(p)
	if err != nil && err != io.EOF {
		return n, &shared.SourceError{Path: r.file.Name(), Err: err}
	}
	return n, err
}

// Size returns the file size in bytes.
func (r *FileReader) Size() (int64, error) {
	info, err := r.file.Stat()
	if err != nil {
		return 0, &shared.SourceError{Path: r.file.Name(), Err: err}
	}
	return info.Size(), nil
}

func (r *FileReader) Close() error {
	r.buf = nil
	return r.file.Close()
}

// ReadImage reads the whole file into memory.
func ReadImage(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, &shared.SourceError{Path: name, Err: err}
	}
	return data, nil
}
