//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// mapFile reads the file into memory on platforms without unix.Mmap.
func mapFile(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, fmt.Errorf("vfs: reading %s: %w", path, err)
	}
	return &Mapping{Data: data}, nil
}
