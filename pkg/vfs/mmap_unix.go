//go:build linux || darwin || freebsd || netbsd || openbsd

package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile maps the whole file at path read-only and shared. The mapping
// outlives the file descriptor.
func mapFile(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, fmt.Errorf("vfs: opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("vfs: stat %s: %w", path, err)
	}
	size := fi.Size()
	if size == 0 {
		return &Mapping{Data: []byte{}}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("vfs: %s is too large to map (%d bytes)", path, size)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("vfs: mapping %s: %w", path, err)
	}
	return &Mapping{
		Data:    data,
		release: func() error { return unix.Munmap(data) },
	}, nil
}
