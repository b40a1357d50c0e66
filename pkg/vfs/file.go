package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/exp/mmap"
)

type fileBackend struct{}

// mappedReader adds sequential reads on top of a mmap.ReaderAt.
type mappedReader struct {
	*io.SectionReader
	ra *mmap.ReaderAt
}

func (r *mappedReader) Close() error { return r.ra.Close() }

func (fileBackend) openRead(loc string) (Reader, error) {
	ra, err := mmap.Open(loc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, loc)
		}
		return nil, fmt.Errorf("vfs: opening %s: %w", loc, err)
	}
	return &mappedReader{SectionReader: io.NewSectionReader(ra, 0, int64(ra.Len())), ra: ra}, nil
}

func (fileBackend) openWrite(loc string) (io.WriteCloser, error) {
	if dir := filepath.Dir(loc); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("vfs: creating directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(loc)
	if err != nil {
		return nil, fmt.Errorf("vfs: creating %s: %w", loc, err)
	}
	return f, nil
}

func (fileBackend) stat(loc string) (int64, bool, error) {
	fi, err := os.Stat(loc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, false, fmt.Errorf("%w: %s", ErrNotExist, loc)
		}
		return 0, false, err
	}
	return fi.Size(), fi.IsDir(), nil
}

func (fileBackend) mapRead(loc string) (*Mapping, error) {
	return mapFile(loc)
}
