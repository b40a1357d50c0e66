package vfs

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// memBackend keeps whole files in a map keyed by cleaned path. Mappings
// share the stored slice, so files must not be rewritten while mapped.
type memBackend struct {
	mu    sync.RWMutex
	files map[string][]byte
}

var memStore = &memBackend{files: make(map[string][]byte)}

type memReader struct {
	*bytes.Reader
}

func (memReader) Close() error { return nil }

type memWriter struct {
	loc string
	buf bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memWriter) Close() error {
	memStore.mu.Lock()
	defer memStore.mu.Unlock()
	memStore.files[w.loc] = w.buf.Bytes()
	return nil
}

func (m *memBackend) get(loc string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[loc]
	return data, ok
}

func (m *memBackend) openRead(loc string) (Reader, error) {
	data, ok := m.get(loc)
	if !ok {
		return nil, fmt.Errorf("%w: mem://%s", ErrNotExist, loc)
	}
	return memReader{bytes.NewReader(data)}, nil
}

func (m *memBackend) openWrite(loc string) (io.WriteCloser, error) {
	return &memWriter{loc: loc}, nil
}

func (m *memBackend) stat(loc string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if data, ok := m.files[loc]; ok {
		return int64(len(data)), false, nil
	}
	prefix := loc + "/"
	if loc == "" {
		prefix = ""
	}
	for name := range m.files {
		if strings.HasPrefix(name, prefix) {
			return 0, true, nil
		}
	}
	return 0, false, fmt.Errorf("%w: mem://%s", ErrNotExist, loc)
}

func (m *memBackend) mapRead(loc string) (*Mapping, error) {
	data, ok := m.get(loc)
	if !ok {
		return nil, fmt.Errorf("%w: mem://%s", ErrNotExist, loc)
	}
	return &Mapping{Data: data}, nil
}

// Remove deletes a local or mem:// file.
func Remove(rawURL string) error {
	scheme, rest := schemeOf(rawURL)
	switch scheme {
	case "", "file":
		if err := os.Remove(filepath.FromSlash(rest)); err != nil {
			return fmt.Errorf("vfs: removing %s: %w", rawURL, err)
		}
		return nil
	case "mem":
	default:
		return fmt.Errorf("%w: remove on %q", ErrUnsupportedScheme, scheme)
	}
	loc := cleanMemPath(rest)
	memStore.mu.Lock()
	defer memStore.mu.Unlock()
	if _, ok := memStore.files[loc]; !ok {
		return fmt.Errorf("%w: %s", ErrNotExist, rawURL)
	}
	delete(memStore.files, loc)
	return nil
}

// List returns the mem:// files below the folder rawURL, sorted.
func List(rawURL string) []string {
	scheme, rest := schemeOf(rawURL)
	if scheme != "mem" {
		return nil
	}
	prefix := cleanMemPath(rest)
	if prefix != "" {
		prefix += "/"
	}
	memStore.mu.RLock()
	defer memStore.mu.RUnlock()
	var out []string
	for name := range memStore.files {
		if strings.HasPrefix(name, prefix) {
			out = append(out, "mem://"+name)
		}
	}
	sort.Strings(out)
	return out
}

// Rename moves a file within one local or mem:// store.
func Rename(from, to string) error {
	fs, floc := schemeOf(from)
	ts, tloc := schemeOf(to)
	if fs != ts && !(fs == "" && ts == "file" || fs == "file" && ts == "") {
		return fmt.Errorf("%w: rename across %q and %q", ErrUnsupportedScheme, fs, ts)
	}
	switch fs {
	case "", "file":
		if err := os.Rename(filepath.FromSlash(floc), filepath.FromSlash(tloc)); err != nil {
			return fmt.Errorf("vfs: renaming %s: %w", from, err)
		}
		return nil
	case "mem":
		f, t := cleanMemPath(floc), cleanMemPath(tloc)
		memStore.mu.Lock()
		defer memStore.mu.Unlock()
		data, ok := memStore.files[f]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotExist, from)
		}
		delete(memStore.files, f)
		memStore.files[t] = data
		return nil
	}
	return fmt.Errorf("%w: rename on %q", ErrUnsupportedScheme, fs)
}
